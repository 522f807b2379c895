package tracker

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/amaumene/redman/internal/models"
)

// Normalize flattens a catalog payload into works carrying all of their
// candidate releases, in payload order. Nothing is filtered here.
func Normalize(payload CatalogPayload, weight int) ([]models.Work, error) {
	switch p := payload.(type) {
	case *Artist:
		return normalizeArtist(p, weight), nil
	case *Collage:
		return normalizeCollage(p, weight)
	default:
		return nil, fmt.Errorf("unsupported catalog payload %T", payload)
	}
}

func normalizeArtist(artist *Artist, weight int) []models.Work {
	artistName := decodeEntities(artist.Name)
	works := make([]models.Work, 0, len(artist.Groups))

	for _, g := range artist.Groups {
		work := models.Work{
			Name:        decodeEntities(g.Name),
			Year:        g.Year,
			ReleaseType: g.ReleaseType,
			ArtistNames: artistName,
		}
		work.Candidates = buildCandidates(work, g.Torrents, weight)
		works = append(works, work)
	}

	return works
}

func normalizeCollage(collage *Collage, weight int) ([]models.Work, error) {
	works := make([]models.Work, 0, len(collage.Groups))

	for _, g := range collage.Groups {
		year, err := parseNumber("year", g.Name, g.Year)
		if err != nil {
			return nil, err
		}
		releaseType, err := parseNumber("releaseType", g.Name, g.ReleaseType)
		if err != nil {
			return nil, err
		}

		names := make([]string, 0, len(g.MusicInfo.Artists))
		for _, a := range g.MusicInfo.Artists {
			names = append(names, decodeEntities(a.Name))
		}

		work := models.Work{
			Name:        decodeEntities(g.Name),
			Year:        year,
			ReleaseType: releaseType,
			ArtistNames: strings.Join(names, ", "),
		}
		work.Candidates = buildCandidates(work, g.Torrents, weight)
		works = append(works, work)
	}

	return works, nil
}

func buildCandidates(work models.Work, torrents []Torrent, weight int) []models.Release {
	candidates := make([]models.Release, 0, len(torrents))
	for _, t := range torrents {
		candidates = append(candidates, models.Release{
			ID:          t.ID,
			AlbumName:   work.Name,
			ArtistNames: work.ArtistNames,
			Year:        work.Year,
			ReleaseType: work.ReleaseType,
			Media:       t.Media,
			Format:      t.Format,
			Encoding:    t.Encoding,
			FileCount:   t.FileCount,
			Size:        t.Size,
			Weight:      weight,
		})
	}
	return candidates
}

// parseNumber converts a string-typed numeric field; anything non-numeric is fatal
func parseNumber(field, group, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%w: group %q has non-numeric %s %q", models.ErrParse, decodeEntities(group), field, value)
	}
	return n, nil
}

// decodeEntities turns tracker HTML entities (&amp;, &#39;, ...) back into text
func decodeEntities(s string) string {
	return html.UnescapeString(s)
}
