package tracker

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/redman/internal/models"
)

func decodePayload(t *testing.T, raw string, dest interface{}) {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	require.NoError(t, json.Unmarshal(env.Response, dest))
}

func TestNormalizeCollage(t *testing.T) {
	var collage Collage
	decodePayload(t, collageJSON, &collage)

	works, err := Normalize(&collage, 5)
	require.NoError(t, err)
	require.Len(t, works, 1)

	work := works[0]
	assert.Equal(t, "Rock & Roll", work.Name)
	assert.Equal(t, 1971, work.Year)
	assert.Equal(t, 1, work.ReleaseType)
	assert.Equal(t, "Led Zeppelin, Guest 'Star'", work.ArtistNames)

	require.Len(t, work.Candidates, 2, "normalization does not filter")
	first := work.Candidates[0]
	assert.Equal(t, int64(100), first.ID)
	assert.Equal(t, "Rock & Roll", first.AlbumName)
	assert.Equal(t, "Led Zeppelin, Guest 'Star'", first.ArtistNames)
	assert.Equal(t, 1971, first.Year)
	assert.Equal(t, 5, first.Weight)
	assert.Equal(t, 8, first.FileCount)
	assert.Equal(t, "FLAC", work.Candidates[1].Format)
}

func TestNormalizeArtist(t *testing.T) {
	var artist Artist
	decodePayload(t, artistJSON, &artist)

	works, err := Normalize(&artist, 10)
	require.NoError(t, err)
	require.Len(t, works, 1)

	release := works[0].Candidates[0]
	assert.Equal(t, "Simon & Garfunkel", release.ArtistNames)
	assert.Equal(t, "Bookends", release.AlbumName)
	assert.Equal(t, 1968, release.Year)
	assert.Equal(t, models.EncodingV0, release.Encoding)
	assert.Equal(t, 10, release.Weight)
}

func TestNormalizeCollageNonNumericYear(t *testing.T) {
	collage := &Collage{
		ID: 1,
		Groups: []CollageGroup{
			{Name: "Fine", Year: "2001", ReleaseType: "1"},
			{Name: "Broken", Year: "two thousand", ReleaseType: "1"},
		},
	}

	_, err := Normalize(collage, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrParse))
	assert.Contains(t, err.Error(), "Broken")
}

func TestNormalizeCollageNonNumericReleaseType(t *testing.T) {
	collage := &Collage{
		Groups: []CollageGroup{{Name: "X", Year: "2001", ReleaseType: "Album"}},
	}

	_, err := Normalize(collage, 1)
	assert.True(t, errors.Is(err, models.ErrParse))
}

func TestNormalizeKeepsGroupOrder(t *testing.T) {
	artist := &Artist{
		Name: "A",
		Groups: []ArtistGroup{
			{Name: "First", Torrents: []Torrent{{ID: 3}, {ID: 1}}},
			{Name: "Second"},
		},
	}

	works, err := Normalize(artist, 1)
	require.NoError(t, err)
	require.Len(t, works, 2)
	assert.Equal(t, "First", works[0].Name)
	assert.Equal(t, int64(3), works[0].Candidates[0].ID)
	assert.Equal(t, int64(1), works[0].Candidates[1].ID)
	assert.Empty(t, works[1].Candidates)
}
