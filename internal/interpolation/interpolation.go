// Package interpolation shields tokens that must survive translation
// verbatim, such as full-width codenames and printf verbs, behind numbered
// placeholders.
package interpolation

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Mapping stores the original token and its safe replacement.
type Mapping struct {
	Original    string
	Placeholder string
	Index       int
}

// varMatch stores a detected token position.
type varMatch struct {
	start, end int
	value      string
}

// patterns detect tokens that the model must not touch.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`[Ａ-Ｚ]{2,}`),                            // full-width codenames: ＸＸＸ
	regexp.MustCompile(`\{[0-9]+\}`),                           // {0}, {1}
	regexp.MustCompile(`%[-+0-9]*\.?[0-9]*[dsfieEgGxXoubcpq]`), // %d, %s, %2d
	regexp.MustCompile(`%%`),                                   // escaped percent literal
}

// Protect replaces every token with a {{var_N}} placeholder. It returns the
// safe string and the mappings needed to restore the tokens afterwards.
func Protect(text string) (string, []Mapping) {
	var all []varMatch
	for _, p := range patterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			all = append(all, varMatch{start: loc[0], end: loc[1], value: text[loc[0]:loc[1]]})
		}
	}
	if len(all) == 0 {
		return text, nil
	}

	// By position, longest first on ties.
	slices.SortFunc(all, func(a, b varMatch) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(b.end-b.start, a.end-a.start)
	})

	var kept []varMatch
	lastEnd := -1
	for _, m := range all {
		if m.start >= lastEnd {
			kept = append(kept, m)
			lastEnd = m.end
		}
	}

	var b strings.Builder
	mappings := make([]Mapping, len(kept))
	prev := 0
	for i, m := range kept {
		ph := fmt.Sprintf("{{var_%d}}", i+1)
		mappings[i] = Mapping{Original: m.value, Placeholder: ph, Index: i + 1}
		b.WriteString(text[prev:m.start])
		b.WriteString(ph)
		prev = m.end
	}
	b.WriteString(text[prev:])
	return b.String(), mappings
}

// Restore puts the original tokens back in place of their placeholders.
func Restore(translated string, mappings []Mapping) string {
	result := translated
	for _, m := range mappings {
		result = strings.Replace(result, m.Placeholder, m.Original, 1)
	}
	return result
}

// Missing returns the placeholders that do not occur in translated.
func Missing(translated string, mappings []Mapping) []string {
	var out []string
	for _, m := range mappings {
		if !strings.Contains(translated, m.Placeholder) {
			out = append(out, m.Placeholder)
		}
	}
	return out
}
