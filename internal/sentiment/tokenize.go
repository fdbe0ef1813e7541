package sentiment

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "`", "'")

// fold normalises s to NFKC and applies Unicode case folding.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(apostrophes.Replace(s)))
}

// tokenize splits text into folded words. Letters, digits, apostrophes and
// inner hyphens are kept; everything else separates tokens.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(fold(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-')
	})
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'-")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
