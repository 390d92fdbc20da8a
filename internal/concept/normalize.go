package concept

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold case-folds text for caseless comparison. It applies NFKC
// normalization first and collapses runs of whitespace to one space.
func Fold(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Slugify converts free text to slug form: case-folded, every run of
// non-alphanumeric characters collapsed to a single underscore, with
// leading and trailing underscores trimmed.
func Slugify(s string) string {
	return collapse(Fold(s), isAlnum)
}

// SlugVariants returns the slug forms tried for an exact slug lookup,
// most specific first and without duplicates: the plain slug, a variant
// that keeps hyphens ("GLP-1" -> "glp-1") and a separator-free variant
// ("GLP-1" -> "glp1").
func SlugVariants(s string) []string {
	folded := Fold(s)
	candidates := []string{
		Slugify(s),
		collapse(folded, func(r rune) bool { return isAlnum(r) || r == '-' }),
		strings.Map(func(r rune) rune {
			if isAlnum(r) {
				return r
			}
			return -1
		}, folded),
	}

	variants := make([]string, 0, len(candidates))
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		c = strings.Trim(c, "-_")
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		variants = append(variants, c)
	}
	return variants
}

// Tokenize splits text into case-folded word tokens on non-alphanumeric
// boundaries. Tokens keep their order and may repeat.
func Tokenize(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool { return !isAlnum(r) })
}

// TokenSet returns the distinct tokens of s in sorted order.
func TokenSet(s string) []string {
	tokens := Tokenize(s)
	if len(tokens) == 0 {
		return nil
	}
	sort.Strings(tokens)
	out := tokens[:1]
	for _, t := range tokens[1:] {
		if t != out[len(out)-1] {
			out = append(out, t)
		}
	}
	return out
}

func collapse(s string, keep func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	pending := false
	for _, r := range s {
		if keep(r) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
