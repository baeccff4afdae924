package corpus

import (
	"strings"

	"msg-translator/internal/msgscript"
)

// TextItem is one dialogue item in texts.json.
type TextItem struct {
	Msg string `json:"msg"`
	// Speaker is the original speaker name of the block, or null.
	Speaker *string `json:"speaker"`
	ID      string  `json:"id"`
	Text    string  `json:"text"`
}

// SpeakerName returns the trimmed speaker name, or "".
func (it TextItem) SpeakerName() string {
	if it.Speaker == nil {
		return ""
	}
	return strings.TrimSpace(*it.Speaker)
}

// Texts maps a file key to its dialogue items in document order.
type Texts map[string][]TextItem

// Speakers maps an original speaker name to its translation ("" when not
// yet translated).
type Speakers map[string]string

// Extract flattens a bundle into dialogue items and the set of speakers.
// Speaker items are not listed in Texts; each dialogue item carries the
// speaker of its block instead.
func Extract(b Bundle) (Texts, Speakers) {
	texts := make(Texts, len(b))
	speakers := make(Speakers)

	for _, key := range b.Keys() {
		items := []TextItem{}
		for _, mt := range msgscript.ExtractTexts(b[key]) {
			var current *string
			for _, it := range mt.Items {
				if it.ID == msgscript.SpeakerID(mt.Message) {
					// A blank name has nothing to translate and no items
					// attribute to it.
					if strings.TrimSpace(it.Text) == "" {
						continue
					}
					name := it.Text
					current = &name
					if _, ok := speakers[name]; !ok {
						speakers[name] = ""
					}
					continue
				}
				items = append(items, TextItem{Msg: mt.Message, Speaker: current, ID: it.ID, Text: it.Text})
			}
		}
		texts[key] = items
	}
	return texts, speakers
}

// Count returns the number of items across all files.
func (t Texts) Count() int {
	n := 0
	for _, items := range t {
		n += len(items)
	}
	return n
}

// Keys returns the file keys in sorted order.
func (t Texts) Keys() []string {
	return sortedKeys(t)
}

// Clone returns a deep copy of t.
func (t Texts) Clone() Texts {
	out := make(Texts, len(t))
	for k, items := range t {
		out[k] = append([]TextItem(nil), items...)
	}
	return out
}

// Translations returns the item translations of one file.
func (t Texts) Translations(key string) msgscript.Translations {
	tr := make(msgscript.Translations)
	for _, it := range t[key] {
		tr[it.ID] = it.Text
	}
	return tr
}

// Resume prepares the working copy for a translation run. Items already
// translated in previous keep their text; every other item, and every file
// or item missing from previous, starts from the original.
func Resume(original, previous Texts) Texts {
	out := make(Texts, len(original))
	for key, items := range original {
		prev := previous[key]
		merged := make([]TextItem, len(items))
		for i, it := range items {
			merged[i] = it
			if i >= len(prev) {
				continue
			}
			done := strings.TrimSpace(prev[i].Text)
			if done != "" && done != strings.TrimSpace(it.Text) {
				merged[i] = prev[i]
			}
		}
		out[key] = merged
	}
	return out
}

// Translated returns the number of speakers with a non-empty translation.
func (s Speakers) Translated() int {
	n := 0
	for _, v := range s {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// Keys returns the speaker names in sorted order.
func (s Speakers) Keys() []string {
	return sortedKeys(s)
}

// Overlay copies non-empty translations from other for names already in s.
func (s Speakers) Overlay(other Speakers) int {
	n := 0
	for name, v := range other {
		if _, ok := s[name]; ok && strings.TrimSpace(v) != "" {
			s[name] = v
			n++
		}
	}
	return n
}

// Clone returns a copy of s.
func (s Speakers) Clone() Speakers {
	out := make(Speakers, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// LoadTexts reads a texts.json file.
func LoadTexts(path string) (Texts, error) {
	t := make(Texts)
	if err := ReadJSON(path, &t); err != nil {
		return nil, err
	}
	return t, nil
}

// LoadSpeakers reads a speakers.json file.
func LoadSpeakers(path string) (Speakers, error) {
	s := make(Speakers)
	if err := ReadJSON(path, &s); err != nil {
		return nil, err
	}
	return s, nil
}
