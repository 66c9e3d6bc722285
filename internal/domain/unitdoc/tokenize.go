package unitdoc

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinTokenLength drops tokens shorter than this many runes.
const MinTokenLength = 2

var folder = cases.Fold()

// Tokenize splits text into case-folded, diacritic-free keyword tokens.
// The same function normalizes both indexed text and query text.
func Tokenize(text string) []string {
	strip := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(strip, text)
	if err != nil {
		plain = text
	}
	plain = folder.String(plain)

	fields := strings.FieldsFunc(plain, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= MinTokenLength {
			out = append(out, f)
		}
	}
	return out
}

// KeywordBag tokenizes every input and returns the sorted distinct tokens.
func KeywordBag(texts ...string) []string {
	var bag []string
	for _, t := range texts {
		bag = append(bag, Tokenize(t)...)
	}
	slices.Sort(bag)
	return slices.Compact(bag)
}
