package corpus

import (
	"sort"
	"strings"

	"msg-translator/internal/msgscript"
)

// SpeakerMap builds the speaker translation map used by Apply: every
// speaker referenced by texts maps to itself, then non-empty entries of
// translated take over.
func SpeakerMap(texts Texts, translated Speakers) Speakers {
	m := make(Speakers)
	for _, items := range texts {
		for _, it := range items {
			if name := it.SpeakerName(); name != "" {
				m[name] = name
			}
		}
	}
	for name, v := range translated {
		if strings.TrimSpace(v) != "" {
			m[name] = v
		}
	}
	return m
}

// Apply returns a translated copy of the bundle. Dialogue items are matched
// by id within their file; speaker lines are matched by their original name.
// The source bundle is not modified.
func Apply(b Bundle, texts Texts, speakers Speakers) Bundle {
	out := make(Bundle, len(b))
	for key, doc := range b {
		tr := texts.Translations(key)
		for _, name := range doc.Order {
			if orig, ok := speakerOf(doc.Messages[name]); ok {
				if v := speakers[orig]; v != "" {
					tr[msgscript.SpeakerID(name)] = v
				}
			}
		}
		out[key] = doc.Apply(tr)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
