// Package msgscript converts tag-annotated .msg dialogue scripts into a
// structural document, extracts translatable strings from it, and rebuilds
// the script with translated strings re-injected into the original markers.
//
// The package performs no I/O and keeps no state between calls.
package msgscript

// Placeholders used inside format templates.
const (
	textPlaceholder = "{text}"

	tabMarker = "[tab]"
	endMarker = "[end]"
)

// LineKind names the wire type of a Line.
type LineKind string

const (
	KindSpeaker  LineKind = "speaker"
	KindDialogue LineKind = "dialogue"
)

// Line is one logical line of a message block. It is implemented only by
// *Speaker and *Dialogue.
type Line interface {
	Kind() LineKind
	// Template returns the format template of the line.
	Template() string
	sealed()
}

// Speaker is the leading name line of a message block, e.g.
// "[color(yellow)]お婆さん[color(white)]".
type Speaker struct {
	// Text is the speaker name.
	Text string
	// Format is open marker + "{text}" + close marker.
	Format string
}

func (*Speaker) Kind() LineKind { return KindSpeaker }
func (s *Speaker) Template() string { return s.Format }
func (*Speaker) sealed() {}

// Dialogue is a line of spoken text interleaved with markers.
type Dialogue struct {
	// Segments are the trimmed text runs in source order.
	Segments []string
	// Format holds the markers verbatim with "{text}" or "{text0}", "{text1}", ...
	// standing in for the segments.
	Format string
	// Single marks the scalar form: the text travels as one string, the
	// template uses the bare "{text}" placeholder and the item id carries no
	// segment suffix. Pure-marker lines are Single with no segments.
	Single bool
}

func (*Dialogue) Kind() LineKind { return KindDialogue }
func (d *Dialogue) Template() string { return d.Format }
func (*Dialogue) sealed() {}

// Text returns the scalar text of a Single dialogue, or "" otherwise.
func (d *Dialogue) Text() string {
	if !d.Single || len(d.Segments) == 0 {
		return ""
	}
	return d.Segments[0]
}

// HasText reports whether the dialogue has at least one non-empty segment.
func (d *Dialogue) HasText() bool {
	for _, s := range d.Segments {
		if s != "" {
			return true
		}
	}
	return false
}

// MessageBlock is a named group of lines.
type MessageBlock struct {
	Lines []Line
}

// Chunk holds the raw physical lines of one comment region, kept verbatim.
// A nil or empty Chunk is a region of zero lines.
type Chunk []string

// Document is the structural form of one script file.
type Document struct {
	// Comments holds the leading region followed by the region after each block.
	Comments []Chunk
	Messages map[string]*MessageBlock
	// Order lists message names in file order.
	Order []string
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{Messages: make(map[string]*MessageBlock)}
}

// DuplicateNames returns the message names that occur more than once in
// Order, in first-seen order. Every occurrence of such a name rebuilds from
// the last block parsed under it.
func (d *Document) DuplicateNames() []string {
	seen := make(map[string]int, len(d.Order))
	var dups []string
	for _, name := range d.Order {
		seen[name]++
		if seen[name] == 2 {
			dups = append(dups, name)
		}
	}
	return dups
}

// TranslatableItem is one extracted string and its stable id.
type TranslatableItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// MessageTexts groups the items of one message block.
type MessageTexts struct {
	Message string
	Items   []TranslatableItem
}

// Translations maps item ids to replacement text.
type Translations map[string]string

// lookup returns the translation for id, or fallback when it is absent or empty.
func (t Translations) lookup(id, fallback string) string {
	if v, ok := t[id]; ok && v != "" {
		return v
	}
	return fallback
}
