package msgscript

import (
	"regexp"
	"strconv"
	"strings"
)

// placeholderPattern matches "{text}" and "{textN}".
var placeholderPattern = regexp.MustCompile(`\{text(\d*)\}`)

// indexedPlaceholder returns "{textN}".
func indexedPlaceholder(n int) string {
	return "{text" + strconv.Itoa(n) + "}"
}

// fill describes the values substituted into a template.
type fill struct {
	// bare replaces every "{text}" when set; otherwise "{text}" is kept verbatim.
	bare    string
	hasBare bool
	// indexed[N] replaces the first "{textN}". Later duplicates and indexes
	// beyond the slice are removed.
	indexed []string
}

// render substitutes placeholders in one left-to-right pass. Substituted text
// is never scanned again, so a value containing "{text0}" stays as it is.
func render(format string, f fill) string {
	matches := placeholderPattern.FindAllStringSubmatchIndex(format, -1)
	if len(matches) == 0 {
		return format
	}

	var b strings.Builder
	b.Grow(len(format))
	used := make(map[int]bool)
	last := 0
	for _, m := range matches {
		b.WriteString(format[last:m[0]])
		last = m[1]

		digits := format[m[2]:m[3]]
		if digits == "" {
			if f.hasBare {
				b.WriteString(f.bare)
			} else {
				b.WriteString(format[m[0]:m[1]])
			}
			continue
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n >= len(f.indexed) || used[n] {
			continue
		}
		used[n] = true
		b.WriteString(f.indexed[n])
	}
	b.WriteString(format[last:])
	return b.String()
}

// maxPlaceholderIndex returns the largest N of any "{textN}" in format, or -1.
func maxPlaceholderIndex(format string) int {
	hi := -1
	for _, m := range placeholderPattern.FindAllStringSubmatch(format, -1) {
		if m[1] == "" {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > hi {
			hi = n
		}
	}
	return hi
}

// Expand returns the line with its own segments substituted back into the
// template, i.e. the source text it was parsed from.
func Expand(l Line) string {
	switch v := l.(type) {
	case *Speaker:
		return render(v.Format, fill{bare: v.Text, hasBare: true})
	case *Dialogue:
		if v.Single {
			return render(v.Format, fill{bare: v.Text(), hasBare: true, indexed: []string{v.Text()}})
		}
		return render(v.Format, fill{indexed: v.Segments})
	}
	return ""
}
