// Package corpus holds the exchange files of the translation pipeline: the
// bundle of structural documents, the flat texts and speakers lists handed
// to translators, and the fold-in of their translations.
package corpus

import (
	"sort"

	"msg-translator/internal/msgscript"
)

// Bundle maps a file key (file name without extension) to its document.
type Bundle map[string]*msgscript.Document

// LoadBundle reads an all.json bundle.
func LoadBundle(path string) (Bundle, error) {
	b := make(Bundle)
	if err := ReadJSON(path, &b); err != nil {
		return nil, err
	}
	return b, nil
}

// Save writes the bundle to path.
func (b Bundle) Save(path string) error {
	return WriteJSON(path, b)
}

// Keys returns the file keys in sorted order.
func (b Bundle) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// speakerOf returns the original speaker name of a block, if it has one.
func speakerOf(block *msgscript.MessageBlock) (string, bool) {
	if block == nil {
		return "", false
	}
	for _, l := range block.Lines {
		if sp, ok := l.(*msgscript.Speaker); ok {
			return sp.Text, true
		}
	}
	return "", false
}
