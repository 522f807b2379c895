package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/redman/internal/models"
)

func candidate(id int64, media, format, encoding string) models.Release {
	return models.Release{
		ID:          id,
		ReleaseType: models.ReleaseTypeAlbum,
		Media:       media,
		Format:      format,
		Encoding:    encoding,
	}
}

func TestSelectVariantPicksLowestRank(t *testing.T) {
	candidates := []models.Release{
		candidate(1, "WEB", "MP3", "320"),
		candidate(2, "CD", "MP3", "V0 (VBR)"),
		candidate(3, "WEB", "MP3", "V0 (VBR)"),
	}

	best, ok := SelectVariant(candidates)
	require.True(t, ok)
	assert.Equal(t, int64(2), best.ID)
}

func TestSelectVariantRankOrder(t *testing.T) {
	tests := []struct {
		name       string
		candidates []models.Release
		wantID     int64
	}{
		{
			name: "WEB V0 beats CD 320",
			candidates: []models.Release{
				candidate(1, "CD", "MP3", "320"),
				candidate(2, "WEB", "MP3", "V0 (VBR)"),
			},
			wantID: 2,
		},
		{
			name: "CD 320 beats WEB 320",
			candidates: []models.Release{
				candidate(1, "WEB", "MP3", "320"),
				candidate(2, "CD", "MP3", "320"),
			},
			wantID: 2,
		},
		{
			name: "ties go to the first candidate",
			candidates: []models.Release{
				candidate(7, "CD", "MP3", "V0 (VBR)"),
				candidate(3, "CD", "MP3", "V0 (VBR)"),
			},
			wantID: 7,
		},
		{
			name: "filtered candidates never win",
			candidates: []models.Release{
				candidate(1, "CD", "FLAC", "Lossless"),
				candidate(2, "Vinyl", "MP3", "V0 (VBR)"),
				candidate(3, "WEB", "MP3", "320"),
			},
			wantID: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best, ok := SelectVariant(tt.candidates)
			require.True(t, ok)
			assert.Equal(t, tt.wantID, best.ID)
		})
	}
}

func TestSelectVariantNoSurvivors(t *testing.T) {
	compilation := candidate(1, "CD", "MP3", "V0 (VBR)")
	compilation.ReleaseType = 7

	candidates := []models.Release{
		compilation,
		candidate(2, "CD", "FLAC", "24bit Lossless"),
		candidate(3, "WEB", "MP3", "V2 (VBR)"),
		candidate(4, "SACD", "MP3", "320"),
	}

	_, ok := SelectVariant(candidates)
	assert.False(t, ok)

	_, ok = SelectVariant(nil)
	assert.False(t, ok)
}

func TestSelectReleasesOnePerWork(t *testing.T) {
	works := []models.Work{
		{Name: "A", Candidates: []models.Release{
			candidate(10, "WEB", "MP3", "320"),
			candidate(11, "CD", "MP3", "320"),
		}},
		{Name: "B", Candidates: []models.Release{
			candidate(20, "CD", "FLAC", "Lossless"),
		}},
		{Name: "C", Candidates: []models.Release{
			candidate(30, "WEB", "MP3", "V0 (VBR)"),
		}},
	}

	selected := SelectReleases(works)
	require.Len(t, selected, 2)
	assert.Equal(t, int64(11), selected[0].ID)
	assert.Equal(t, int64(30), selected[1].ID)
	for _, r := range selected {
		assert.True(t, IsSelectable(r))
	}
}
