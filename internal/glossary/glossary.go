// Package glossary selects the fixed term translations that apply to a
// piece of source text.
package glossary

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"msg-translator/internal/corpus"
)

// Term is one glossary entry.
type Term struct {
	Original    string
	Translation string
}

// Terms maps an original term to its required translation.
type Terms map[string]string

// Load reads a terms file. Entries with an empty translation are dropped.
// A missing file yields an empty glossary.
func Load(path string) (Terms, error) {
	raw := make(map[string]string)
	err := corpus.ReadJSON(path, &raw)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", path).Msg("No terms file")
		return Terms{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load terms: %w", err)
	}

	terms := make(Terms, len(raw))
	terms.Add(raw)
	log.Info().Int("terms", len(terms)).Str("path", path).Msg("Loaded terms")
	return terms, nil
}

// Add merges entries with a non-empty translation into t.
func (t Terms) Add(entries map[string]string) {
	for k, v := range entries {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		t[k] = v
	}
}

// Relevant returns the terms that occur in text. Longer terms win when more
// than limit match; the result is sorted by original term. limit <= 0 means no
// limit.
func (t Terms) Relevant(text string, limit int) []Term {
	var found []Term
	for k, v := range t {
		if strings.Contains(text, k) {
			found = append(found, Term{Original: k, Translation: v})
		}
	}

	slices.SortFunc(found, func(a, b Term) int {
		if c := cmp.Compare(utf8.RuneCountInString(b.Original), utf8.RuneCountInString(a.Original)); c != 0 {
			return c
		}
		return cmp.Compare(a.Original, b.Original)
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	slices.SortFunc(found, func(a, b Term) int { return cmp.Compare(a.Original, b.Original) })
	return found
}
