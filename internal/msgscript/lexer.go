package msgscript

import (
	"regexp"
	"strings"
)

// TokenKind distinguishes literal text from bracketed markers.
type TokenKind int

const (
	TokenText TokenKind = iota
	TokenMarker
)

// Token is one run of a lexed line. Concatenating the values of all tokens
// of a line yields the line unchanged.
type Token struct {
	Kind  TokenKind
	Value string
}

// markerEnd returns the index just past the marker that opens at s[start],
// or -1 when the bracket is never balanced before the end of s.
//
// Brackets nest, but only outside parentheses: in "[color(a])]" the "]"
// inside "(...)" does not close the marker.
func markerEnd(s string, start int) int {
	depth, paren := 1, 0
	for j := start + 1; j < len(s); j++ {
		switch s[j] {
		case '[':
			if paren == 0 {
				depth++
			}
		case ']':
			if paren == 0 {
				depth--
				if depth == 0 {
					return j + 1
				}
			}
		case '(':
			paren++
		case ')':
			paren--
		}
	}
	return -1
}

// Lex splits a line into text and marker tokens. An unbalanced "[" is kept
// as literal text and scanning resumes at the next byte. Adjacent text is
// coalesced into one token.
func Lex(line string) []Token {
	var (
		tokens []Token
		text   strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			tokens = append(tokens, Token{Kind: TokenText, Value: text.String()})
			text.Reset()
		}
	}

	for i := 0; i < len(line); {
		if line[i] == '[' {
			if end := markerEnd(line, i); end > 0 {
				flush()
				tokens = append(tokens, Token{Kind: TokenMarker, Value: line[i:end]})
				i = end
				continue
			}
		}
		text.WriteByte(line[i])
		i++
	}
	flush()
	return tokens
}

// MarkerSplit is the result of ExtractMarkers.
type MarkerSplit struct {
	// Text is every non-marker character of the line, trimmed.
	Text string
	// Before holds markers seen before the first non-whitespace text.
	Before []string
	// After holds the remaining markers.
	After []string
}

// Markers returns Before followed by After.
func (m MarkerSplit) Markers() []string {
	out := make([]string, 0, len(m.Before)+len(m.After))
	out = append(out, m.Before...)
	return append(out, m.After...)
}

// ExtractMarkers separates a line into its text and its markers, classifying
// each marker by whether text had started when it was seen.
func ExtractMarkers(line string) MarkerSplit {
	var (
		split   MarkerSplit
		text    strings.Builder
		started bool
	)
	for _, tok := range Lex(line) {
		if tok.Kind == TokenMarker {
			if started {
				split.After = append(split.After, tok.Value)
			} else {
				split.Before = append(split.Before, tok.Value)
			}
			continue
		}
		if strings.TrimSpace(tok.Value) != "" {
			started = true
		}
		text.WriteString(tok.Value)
	}
	split.Text = strings.TrimSpace(text.String())
	return split
}

// colorMarker matches a whole [color(...)] marker with an opaque argument.
var colorMarker = regexp.MustCompile(`^\[color\([^)]+\)\]$`)

// IsColorMarker reports whether m has the syntactic shape [color(...)].
func IsColorMarker(m string) bool {
	return colorMarker.MatchString(m)
}
