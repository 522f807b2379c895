package utils

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// MatchKey reduces a name to a loose comparison key: lowercased, diacritics
// folded, every rune that is not a letter or digit removed.
// "Abbey Road" and "abbey-road!" share the key "abbeyroad".
func MatchKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = lower.String(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// KeysMatch compares two match keys, tolerating up to maxDistance edits.
// maxDistance 0 requires equality.
func KeysMatch(a, b string, maxDistance int) bool {
	if a == b {
		return true
	}
	if maxDistance <= 0 {
		return false
	}
	return levenshtein.ComputeDistance(a, b) <= maxDistance
}
