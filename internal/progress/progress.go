// Package progress tracks which dialogue items a translation run has
// finished, so an interrupted run can resume where it stopped.
package progress

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"msg-translator/internal/corpus"
)

// Version is the progress file format written by this package.
const Version = "1.2"

// Stats summarises a run.
type Stats struct {
	Total         int `json:"total"`
	Completed     int `json:"completed"`
	Failed        int `json:"failed"`
	SpeakersTotal int `json:"speakers_total"`
}

// Progress is the persisted state of a translation run. It is safe for
// concurrent use.
type Progress struct {
	mu sync.Mutex

	Version    string              `json:"version"`
	SourceFile string              `json:"source_file"`
	OutputFile string              `json:"output_file"`
	Completed  map[string][]string `json:"completed"`
	Failed     map[string][]string `json:"failed"`
	Stats      Stats               `json:"stats"`
}

// New returns an empty progress record.
func New(source, output string) *Progress {
	return &Progress{
		Version:    Version,
		SourceFile: source,
		OutputFile: output,
		Completed:  make(map[string][]string),
		Failed:     make(map[string][]string),
	}
}

// Load reads the progress file at path. A missing file, or one written by a
// different format version, yields a fresh record.
func Load(path, source, output string) (*Progress, error) {
	p := New(source, output)
	err := corpus.ReadJSON(path, p)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return New(source, output), nil
	case err != nil:
		return nil, fmt.Errorf("load progress: %w", err)
	}

	if p.Version != Version {
		log.Warn().Str("path", path).Str("version", p.Version).Msg("Progress file has another version, starting fresh")
		return New(source, output), nil
	}
	if p.Completed == nil {
		p.Completed = make(map[string][]string)
	}
	if p.Failed == nil {
		p.Failed = make(map[string][]string)
	}
	p.SourceFile, p.OutputFile = source, output
	return p, nil
}

// Save writes the record to path with refreshed stats.
func (p *Progress) Save(path string, total, speakers int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Stats = Stats{
		Total:         total,
		Completed:     count(p.Completed),
		Failed:        count(p.Failed),
		SpeakersTotal: speakers,
	}
	if err := corpus.WriteJSON(path, p); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// IsCompleted reports whether item id of file is done.
func (p *Progress) IsCompleted(file, id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.Completed[file], id)
}

// IsFailed reports whether item id of file failed in an earlier attempt.
func (p *Progress) IsFailed(file, id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Contains(p.Failed[file], id)
}

// MarkCompleted records a success and clears any earlier failure.
func (p *Progress) MarkCompleted(file, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !slices.Contains(p.Completed[file], id) {
		p.Completed[file] = append(p.Completed[file], id)
	}
	p.Failed[file] = remove(p.Failed[file], id)
	if len(p.Failed[file]) == 0 {
		delete(p.Failed, file)
	}
}

// MarkFailed records a failure.
func (p *Progress) MarkFailed(file, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !slices.Contains(p.Failed[file], id) {
		p.Failed[file] = append(p.Failed[file], id)
	}
}

// Counts returns the number of completed and failed items.
func (p *Progress) Counts() (completed, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return count(p.Completed), count(p.Failed)
}

func count(m map[string][]string) int {
	n := 0
	for _, ids := range m {
		n += len(ids)
	}
	return n
}

func remove(ids []string, id string) []string {
	return slices.DeleteFunc(ids, func(s string) bool { return s == id })
}
