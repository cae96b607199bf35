package pattern

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Wildcard stands for any run of characters inside a pattern.
const Wildcard = "*"

var (
	digitRun       = regexp.MustCompile(`\d+`)
	attributeValue = regexp.MustCompile(`(?i)\b(model|type|size|grade)\s+\S+`)
	spaceRun       = regexp.MustCompile(`\s+`)
)

// Generalize turns a concrete description into a reusable pattern: digit runs
// become wildcards and "model/type/size/grade <value>" phrases keep only the keyword.
func Generalize(description string) string {
	g := digitRun.ReplaceAllString(description, Wildcard)
	g = attributeValue.ReplaceAllString(g, "$1 "+Wildcard)
	g = spaceRun.ReplaceAllString(g, " ")
	return strings.TrimSpace(g)
}

// HasLiteral reports whether pattern keeps at least one letter or digit once
// wildcards are removed. A pattern without one would match any description.
func HasLiteral(pattern string) bool {
	return strings.ContainsFunc(strings.ReplaceAll(pattern, Wildcard, ""), func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	})
}

// Key builds the pattern identity key from a supplier and generalized descriptions.
func Key(supplier, invoicePattern, estimatePattern string) string {
	return strings.ToLower(fmt.Sprintf("%s:%s:%s", strings.TrimSpace(supplier), invoicePattern, estimatePattern))
}
