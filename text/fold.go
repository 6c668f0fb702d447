package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Collapse joins the lines of s and squeezes runs of whitespace to a single
// space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Fold returns the comparison form of s: NFKC normalised, case folded and
// whitespace collapsed.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	// A Caser keeps state, so each call gets its own.
	return Collapse(cases.Fold().String(norm.NFKC.String(s)))
}

// Equal reports whether a and b have the same folded form.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Tokens splits s into folded runs of letters and digits.
func Tokens(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// ContainsTokens reports whether every token of needle occurs among the
// tokens of haystack. An empty needle is never contained.
func ContainsTokens(haystack, needle string) bool {
	want := Tokens(needle)
	if len(want) == 0 {
		return false
	}
	have := make(map[string]bool)
	for _, tok := range Tokens(haystack) {
		have[tok] = true
	}
	for _, tok := range want {
		if !have[tok] {
			return false
		}
	}
	return true
}
