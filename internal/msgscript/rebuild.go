package msgscript

import "strings"

// Rebuild serializes doc back into script text, substituting translations
// by item id. Missing or empty translations fall back to the original text,
// so Rebuild(Parse(s), nil) reproduces s up to trailing whitespace and line
// endings. tr may be nil.
func Rebuild(doc *Document, tr Translations) string {
	var out []string
	if len(doc.Comments) > 0 {
		out = append(out, doc.Comments[0]...)
	}

	for k, name := range doc.Order {
		out = append(out, name+":")
		if block := doc.Messages[name]; block != nil {
			nums := dialogueNumbers(block.Lines)
			for i, l := range block.Lines {
				out = append(out, renderLine(name, l, nums[i], tr))
			}
		}

		if k+1 < len(doc.Comments) {
			out = append(out, doc.Comments[k+1]...)
		} else {
			out = append(out, "")
		}
	}
	return strings.Join(out, "\n")
}

// renderLine fills one line's template. n is the line's dialogue number, or
// -1 when the line is not numbered.
func renderLine(msg string, l Line, n int, tr Translations) string {
	switch v := l.(type) {
	case *Speaker:
		return render(v.Format, fill{bare: tr.lookup(SpeakerID(msg), v.Text), hasBare: true})

	case *Dialogue:
		if !v.Single {
			values := make([]string, len(v.Segments))
			for s, seg := range v.Segments {
				values[s] = seg
				if n >= 0 {
					values[s] = tr.lookup(SegmentID(msg, n, s), seg)
				}
			}
			return render(v.Format, fill{indexed: values})
		}

		text := v.Text()
		if n >= 0 {
			text = tr.lookup(DialogueID(msg, n), text)
		}
		f := fill{bare: text, hasBare: true}
		if hi := maxPlaceholderIndex(v.Format); hi >= 0 {
			// Scalar text under an indexed template: segment translations win,
			// otherwise the whole text goes to {text0} and the rest are blanked.
			f.indexed = make([]string, hi+1)
			for s := range f.indexed {
				if n >= 0 {
					if seg, ok := tr[SegmentID(msg, n, s)]; ok && seg != "" {
						f.indexed[s] = seg
						continue
					}
				}
				if s == 0 {
					f.indexed[s] = text
				}
			}
		}
		return render(v.Format, f)
	}
	return ""
}

// Apply returns a deep copy of doc with translated text written into its
// lines, using the same ids as ExtractTexts. Rebuilding the copy without
// translations gives the same script as rebuilding doc with tr.
func (d *Document) Apply(tr Translations) *Document {
	out := d.Clone()
	for _, name := range out.Order {
		block := out.Messages[name]
		if block == nil {
			continue
		}
		nums := dialogueNumbers(block.Lines)
		for i, l := range block.Lines {
			switch v := l.(type) {
			case *Speaker:
				v.Text = tr.lookup(SpeakerID(name), v.Text)
			case *Dialogue:
				n := nums[i]
				if n < 0 {
					continue
				}
				if v.Single {
					v.Segments[0] = tr.lookup(DialogueID(name, n), v.Segments[0])
					continue
				}
				for s, seg := range v.Segments {
					v.Segments[s] = tr.lookup(SegmentID(name, n, s), seg)
				}
			}
		}
	}
	return out
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	out := &Document{
		Comments: make([]Chunk, len(d.Comments)),
		Messages: make(map[string]*MessageBlock, len(d.Messages)),
		Order:    append([]string(nil), d.Order...),
	}
	for i, c := range d.Comments {
		out.Comments[i] = newChunk(c)
	}
	for name, block := range d.Messages {
		if block == nil {
			out.Messages[name] = nil
			continue
		}
		lines := make([]Line, len(block.Lines))
		for i, l := range block.Lines {
			switch v := l.(type) {
			case *Speaker:
				cp := *v
				lines[i] = &cp
			case *Dialogue:
				cp := *v
				cp.Segments = append([]string(nil), v.Segments...)
				lines[i] = &cp
			}
		}
		out.Messages[name] = &MessageBlock{Lines: lines}
	}
	return out
}
