package msgscript

import (
	"strings"
	"unicode"
)

// Parse tokenizes script text into a Document. It never fails: malformed
// markers become literal text and a block without "[end]" stops at the next
// header. CRLF line endings are read as LF.
func Parse(src string) *Document {
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	doc := NewDocument()

	i := skipToHeader(lines, 0)
	doc.Comments = append(doc.Comments, newChunk(lines[:i]))

	for i < len(lines) {
		name := headerName(lines[i])
		var block []Line
		block, i = parseBlock(lines, i+1)
		doc.add(name, &MessageBlock{Lines: MergeTabRuns(block)})

		start := i
		i = skipToHeader(lines, i)
		doc.Comments = append(doc.Comments, newChunk(lines[start:i]))
	}
	return doc
}

// IsHeader reports whether a line opens a message block: trimmed, it ends
// with ":" and does not start with "#".
func IsHeader(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasSuffix(t, ":") && !strings.HasPrefix(t, "#")
}

func headerName(line string) string {
	t := strings.TrimSpace(line)
	return strings.TrimSpace(t[:len(t)-1])
}

func skipToHeader(lines []string, i int) int {
	for i < len(lines) && !IsHeader(lines[i]) {
		i++
	}
	return i
}

func newChunk(lines []string) Chunk {
	if len(lines) == 0 {
		return nil
	}
	return append(Chunk(nil), lines...)
}

// add registers a block. A repeated name replaces the earlier block and is
// listed again in Order.
func (d *Document) add(name string, b *MessageBlock) {
	d.Messages[name] = b
	d.Order = append(d.Order, name)
}

// parseBlock collects the lines of one block starting at lines[i]. It stops
// after the first line whose template contains "[end]", or before the next
// header. Blank lines are skipped.
func parseBlock(lines []string, i int) ([]Line, int) {
	var out []Line
	first := true
	for ; i < len(lines); i++ {
		raw := lines[i]
		if IsHeader(raw) {
			break
		}
		if strings.TrimSpace(raw) == "" {
			continue
		}

		var line Line
		if first {
			first = false
			if sp, ok := ParseSpeaker(raw); ok {
				line = sp
			}
		}
		if line == nil {
			line = ParseLine(raw)
		}
		out = append(out, line)

		if strings.Contains(line.Template(), endMarker) {
			return out, i + 1
		}
	}
	return out, i
}

// ParseSpeaker applies the speaker heuristic: a line qualifies when it has
// no [tab] marker and at least two [color(...)] markers. The first and last
// color markers frame the template and the trimmed text is the name.
func ParseSpeaker(line string) (*Speaker, bool) {
	split := ExtractMarkers(line)

	var colors []string
	for _, m := range split.Markers() {
		if m == tabMarker {
			return nil, false
		}
		if IsColorMarker(m) {
			colors = append(colors, m)
		}
	}
	if len(colors) < 2 {
		return nil, false
	}
	return &Speaker{
		Text:   split.Text,
		Format: colors[0] + textPlaceholder + colors[len(colors)-1],
	}, true
}

// piece is one element of a template under construction: literal text, or
// the index of a segment when seg >= 0.
type piece struct {
	lit string
	seg int
}

// ParseLine segments a dialogue line. Text between markers is trimmed into
// segments; the whitespace trimmed away stays in the template around the
// placeholder so that the template expands back to the line. Trailing
// whitespace of the line is dropped. It returns nil for a blank line.
func ParseLine(line string) *Dialogue {
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	if strings.TrimSpace(line) == "" {
		return nil
	}

	var (
		segments []string
		pieces   []piece
	)
	for _, tok := range Lex(line) {
		if tok.Kind == TokenMarker {
			pieces = append(pieces, piece{lit: tok.Value, seg: -1})
			continue
		}
		left := strings.TrimLeftFunc(tok.Value, unicode.IsSpace)
		text := strings.TrimRightFunc(left, unicode.IsSpace)
		if text == "" {
			pieces = append(pieces, piece{lit: tok.Value, seg: -1})
			continue
		}
		lead := tok.Value[:len(tok.Value)-len(left)]
		trail := left[len(text):]
		pieces = append(pieces,
			piece{lit: lead, seg: -1},
			piece{seg: len(segments)},
			piece{lit: trail, seg: -1},
		)
		segments = append(segments, text)
	}

	single := len(segments) <= 1
	var format strings.Builder
	for _, p := range pieces {
		switch {
		case p.seg < 0:
			format.WriteString(p.lit)
		case single:
			format.WriteString(textPlaceholder)
		default:
			format.WriteString(indexedPlaceholder(p.seg))
		}
	}
	return &Dialogue{Segments: segments, Format: format.String(), Single: single}
}
