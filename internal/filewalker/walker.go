package filewalker

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"msg-translator/internal/parser"

	"github.com/rs/zerolog/log"
)

// SupportedExtensions lists file types handled by the tool.
var SupportedExtensions = map[string]bool{
	".msg": true,
}

// Walker discovers script files and dispatches them to the correct parser.
type Walker struct {
	parsers []parser.Parser
}

// NewWalker creates a Walker over the given parsers.
func NewWalker(parsers ...parser.Parser) *Walker {
	return &Walker{parsers: parsers}
}

// FileEntry represents a discovered file ready for processing.
type FileEntry struct {
	// Key is the file name without extension; bundles are keyed by it.
	Key    string
	Path   string
	Ext    string
	Parser parser.Parser
}

// entry dispatches path to a parser by ext, which is taken from the file
// name rather than the path: manifest entries point at archive members such
// as "7.efb$/msg.txt".
func (w *Walker) entry(key, path, ext string) (FileEntry, bool) {
	ext = strings.ToLower(ext)
	if !SupportedExtensions[ext] {
		return FileEntry{}, false
	}
	for _, p := range w.parsers {
		if p.CanParse(ext) {
			return FileEntry{Key: key, Path: path, Ext: ext, Parser: p}, true
		}
	}
	return FileEntry{}, false
}

// Walk discovers all supported files under the given root directory.
func (w *Walker) Walk(root string) ([]FileEntry, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root path: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}

	var entries []FileEntry

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Error walking path")
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(d.Name())
		key := strings.TrimSuffix(d.Name(), ext)
		if e, ok := w.entry(key, path, ext); ok {
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}

	log.Info().Int("count", len(entries)).Str("root", root).Msg("Discovered files")
	return entries, nil
}

// FromManifest resolves the .msg entries of a manifest against base. Files
// that do not exist are returned by key in missing.
func (w *Walker) FromManifest(m *Manifest, base string) (entries []FileEntry, missing []string) {
	for _, name := range m.Names() {
		key, ok := strings.CutSuffix(name, ".msg")
		if !ok {
			continue
		}
		path := filepath.Join(base, m.Files[name])
		if _, err := os.Stat(path); err != nil {
			log.Warn().Str("file", name).Str("path", path).Msg("File not found, skipping")
			missing = append(missing, name)
			continue
		}
		if e, ok := w.entry(key, path, ".msg"); ok {
			entries = append(entries, e)
		}
	}

	log.Info().Int("count", len(entries)).Int("missing", len(missing)).Msg("Resolved manifest")
	return entries, missing
}

// ParseFile parses a single file using the appropriate parser.
func (w *Walker) ParseFile(entry FileEntry) (*parser.ParseResult, error) {
	return entry.Parser.Parse(entry.Path)
}

// SortEntries orders entries by key.
func SortEntries(entries []FileEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
}
