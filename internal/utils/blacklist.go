package utils

import (
	"bufio"
	"os"
	"strings"

	"github.com/amaumene/redman/internal/models"
)

// Blacklist holds terms that exclude releases from downloading
type Blacklist struct {
	terms []string
}

// NewBlacklist builds a blacklist from in-memory terms
func NewBlacklist(terms ...string) *Blacklist {
	b := &Blacklist{}
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term != "" {
			b.terms = append(b.terms, strings.ToLower(term))
		}
	}
	return b
}

// LoadBlacklist loads blacklist terms from a file, one per line.
// Blank lines and lines starting with # are ignored.
func LoadBlacklist(path string) (*Blacklist, error) {
	// If no file is configured or it doesn't exist, return empty blacklist
	if path == "" {
		return &Blacklist{}, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Blacklist{}, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var terms []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		term := strings.TrimSpace(scanner.Text())
		if term != "" && !strings.HasPrefix(term, "#") {
			terms = append(terms, term)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return NewBlacklist(terms...), nil
}

// Len returns the number of terms
func (b *Blacklist) Len() int {
	return len(b.terms)
}

// IsBlacklisted checks the artist and album of a release against every term.
// Returns (isBlacklisted, matchedTerm).
func (b *Blacklist) IsBlacklisted(r models.Release) (bool, string) {
	artist := strings.ToLower(r.ArtistNames)
	album := strings.ToLower(r.AlbumName)

	for _, term := range b.terms {
		if strings.Contains(artist, term) || strings.Contains(album, term) {
			return true, term
		}
	}

	return false, ""
}
