package msgscript

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrUnknownLineType is returned when decoding a line whose type is neither
// "speaker" nor "dialogue".
var ErrUnknownLineType = errors.New("unknown line type")

type wireDocument struct {
	// A comment region of zero lines is null; "" is one blank line.
	Comments []*string           `json:"comments"`
	Messages map[string]wireBlock `json:"messages"`
	Order    []string             `json:"order"`
}

type wireBlock struct {
	Lines []wireLine `json:"lines"`
}

type wireLine struct {
	Type   LineKind        `json:"type"`
	Text   json.RawMessage `json:"text"`
	Format string          `json:"format"`
}

// MarshalJSON encodes the document in the structural exchange shape.
func (d *Document) MarshalJSON() ([]byte, error) {
	w := wireDocument{
		Comments: make([]*string, len(d.Comments)),
		Messages: make(map[string]wireBlock, len(d.Messages)),
		Order:    d.Order,
	}
	if w.Order == nil {
		w.Order = []string{}
	}
	for i, c := range d.Comments {
		if len(c) > 0 {
			s := strings.Join(c, "\n")
			w.Comments[i] = &s
		}
	}
	for name, block := range d.Messages {
		wb := wireBlock{Lines: []wireLine{}}
		if block != nil {
			for _, l := range block.Lines {
				wl, err := encodeLine(l)
				if err != nil {
					return nil, fmt.Errorf("message %s: %w", name, err)
				}
				wb.Lines = append(wb.Lines, wl)
			}
		}
		w.Messages[name] = wb
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func encodeLine(l Line) (wireLine, error) {
	var text any
	switch v := l.(type) {
	case *Speaker:
		text = v.Text
	case *Dialogue:
		if v.Single {
			text = v.Text()
		} else {
			text = v.Segments
		}
	default:
		return wireLine{}, fmt.Errorf("%w: %T", ErrUnknownLineType, l)
	}
	raw, err := marshalNoEscape(text)
	if err != nil {
		return wireLine{}, err
	}
	return wireLine{Type: l.Kind(), Text: raw, Format: l.Template()}, nil
}

func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes the structural exchange shape. Dialogue text may be a
// string, a list of strings, null or absent.
func (d *Document) UnmarshalJSON(data []byte) error {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	doc := Document{
		Comments: make([]Chunk, len(w.Comments)),
		Messages: make(map[string]*MessageBlock, len(w.Messages)),
		Order:    w.Order,
	}
	for i, c := range w.Comments {
		if c != nil {
			doc.Comments[i] = strings.Split(*c, "\n")
		}
	}
	for name, wb := range w.Messages {
		block := &MessageBlock{Lines: make([]Line, 0, len(wb.Lines))}
		for i, wl := range wb.Lines {
			l, err := decodeLine(wl)
			if err != nil {
				return fmt.Errorf("message %s line %d: %w", name, i, err)
			}
			block.Lines = append(block.Lines, l)
		}
		doc.Messages[name] = block
	}
	*d = doc
	return nil
}

func decodeLine(wl wireLine) (Line, error) {
	raw := bytes.TrimSpace(wl.Text)
	isNull := len(raw) == 0 || bytes.Equal(raw, []byte("null"))

	switch wl.Type {
	case KindSpeaker:
		var text string
		if !isNull {
			if err := json.Unmarshal(raw, &text); err != nil {
				return nil, fmt.Errorf("speaker text: %w", err)
			}
		}
		return &Speaker{Text: text, Format: wl.Format}, nil

	case KindDialogue:
		d := &Dialogue{Format: wl.Format, Single: true}
		switch {
		case isNull:
		case raw[0] == '[':
			var segs []*string
			if err := json.Unmarshal(raw, &segs); err != nil {
				return nil, fmt.Errorf("dialogue segments: %w", err)
			}
			d.Single = false
			d.Segments = make([]string, len(segs))
			for i, s := range segs {
				if s != nil {
					d.Segments[i] = *s
				}
			}
		default:
			var text string
			if err := json.Unmarshal(raw, &text); err != nil {
				return nil, fmt.Errorf("dialogue text: %w", err)
			}
			if text != "" {
				d.Segments = []string{text}
			}
		}
		return d, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLineType, wl.Type)
}

// Encode writes doc as indented JSON without HTML escaping.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}

// Decode reads one document from r.
func Decode(r io.Reader) (*Document, error) {
	doc := NewDocument()
	if err := json.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}

// ReadTranslations decodes the per-message translation list
// ({message: [{id, text}]}) into a flat Translations map.
func ReadTranslations(r io.Reader) (Translations, error) {
	var perMessage map[string][]TranslatableItem
	if err := json.NewDecoder(r).Decode(&perMessage); err != nil {
		return nil, fmt.Errorf("decode translations: %w", err)
	}
	texts := make([]MessageTexts, 0, len(perMessage))
	for msg, items := range perMessage {
		texts = append(texts, MessageTexts{Message: msg, Items: items})
	}
	return TranslationsFrom(texts), nil
}

// WriteTexts encodes extracted texts as the per-message translation list.
func WriteTexts(w io.Writer, texts []MessageTexts) error {
	perMessage := make(map[string][]TranslatableItem, len(texts))
	for _, mt := range texts {
		perMessage[mt.Message] = mt.Items
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(perMessage); err != nil {
		return fmt.Errorf("encode texts: %w", err)
	}
	return nil
}
