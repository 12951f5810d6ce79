package app

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"clinic_reviews/internal/domain"
)

// TextPrefixRunes is how much of the review text takes part in identity.
const TextPrefixRunes = 64

// fold case-folds s, strips diacritics and collapses whitespace.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(out)), " ")
}

// IdentityKey is the cross-source key: two records are the same review only
// if both folded author and folded text prefix match. Rating and date never
// take part.
func IdentityKey(author, text string) string {
	if author == "" {
		author = domain.AnonymousAuthor
	}
	t := fold(text)
	if r := []rune(t); len(r) > TextPrefixRunes {
		t = strings.TrimSpace(string(r[:TextPrefixRunes]))
	}
	return fold(author) + "|" + t
}

// DerivedID is the stable id for records that arrive without one.
func DerivedID(author, text string) string {
	sum := sha1.Sum([]byte(IdentityKey(author, text)))
	return hex.EncodeToString(sum[:])
}
