package utils

import (
	"sort"

	"github.com/amaumene/redman/internal/models"
)

// IsSelectable reports whether a release passes the variant filter:
// an original album, MP3, from CD or WEB, encoded V0 or 320.
func IsSelectable(r models.Release) bool {
	if r.ReleaseType != models.ReleaseTypeAlbum || r.Format != models.FormatMP3 {
		return false
	}
	if r.Media != models.MediaCD && r.Media != models.MediaWEB {
		return false
	}
	return r.Encoding == models.EncodingV0 || r.Encoding == models.Encoding320
}

// variantRank orders accepted (media, encoding) pairs, lowest is preferred.
// VBR beats fixed bitrate first, then CD beats WEB.
func variantRank(r models.Release) int {
	switch {
	case r.Media == models.MediaCD && r.Encoding == models.EncodingV0:
		return 0
	case r.Media == models.MediaWEB && r.Encoding == models.EncodingV0:
		return 1
	case r.Media == models.MediaCD && r.Encoding == models.Encoding320:
		return 2
	case r.Media == models.MediaWEB && r.Encoding == models.Encoding320:
		return 3
	default:
		return 99
	}
}

// RankVariants filters candidates and sorts survivors by preference.
// Equal ranks keep input order.
func RankVariants(candidates []models.Release) []models.Release {
	ranked := make([]models.Release, 0, len(candidates))
	for _, c := range candidates {
		if IsSelectable(c) {
			ranked = append(ranked, c)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return variantRank(ranked[i]) < variantRank(ranked[j])
	})

	return ranked
}

// SelectVariant picks the single preferred release of a work.
// Returns false when no candidate passes the filter.
func SelectVariant(candidates []models.Release) (models.Release, bool) {
	ranked := RankVariants(candidates)
	if len(ranked) == 0 {
		return models.Release{}, false
	}
	return ranked[0], true
}

// SelectReleases applies SelectVariant to every work, dropping works without a survivor
func SelectReleases(works []models.Work) []models.Release {
	selected := make([]models.Release, 0, len(works))
	for _, w := range works {
		if r, ok := SelectVariant(w.Candidates); ok {
			selected = append(selected, r)
		}
	}
	return selected
}
