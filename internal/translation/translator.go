package translation

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"msg-translator/internal/config"
	"msg-translator/internal/corpus"
	"msg-translator/internal/glossary"
	"msg-translator/internal/interpolation"
	"msg-translator/internal/progress"
	"msg-translator/internal/textutil"
	"msg-translator/internal/worker"
)

// ErrLostPlaceholder is returned when a reply drops a protected token.
var ErrLostPlaceholder = errors.New("translation lost a placeholder")

// speakerSamples is the number of sample lines sent with a speaker name.
const speakerSamples = 5

// Memory is a translation memory keyed by source text.
type Memory interface {
	Get(ctx context.Context, source string) (string, bool)
	Set(ctx context.Context, source, translated string) error
	SetBatch(ctx context.Context, pairs map[string]string) error
}

// Memory key kinds.
const (
	kindSpeaker  = "speaker"
	kindDialogue = "dialogue"
)

func memoryKey(kind, source string) string {
	return kind + "\x00" + source
}

// Options controls one translation run.
type Options struct {
	// TextsFile is the texts.json to translate.
	TextsFile string
	// OutputFile defaults to texts_translated.json next to TextsFile.
	OutputFile string
	// ProgressFile defaults to translate_progress.json next to TextsFile.
	ProgressFile string
	Resume       bool
	RetryFailed  bool
	DryRun       bool
	MaxTasks     int
	Workers      int
}

func (o *Options) setDefaults() {
	dir := filepath.Dir(o.TextsFile)
	if o.OutputFile == "" {
		o.OutputFile = filepath.Join(dir, "texts_translated.json")
	}
	if o.ProgressFile == "" {
		o.ProgressFile = filepath.Join(dir, "translate_progress.json")
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
}

// Summary reports the outcome of a run.
type Summary struct {
	Items              int
	Tasks              int
	Skipped            int
	Translated         int
	Failed             int
	SpeakersTotal      int
	SpeakersTranslated int
	SpeakersFailed     int
	Interrupted        bool
	Speakers           corpus.Speakers
}

// Translator runs batch translations of texts.json files.
type Translator struct {
	client  Completer
	prompts *PromptBuilder
	terms   glossary.Terms
	memory  Memory
	cfg     *config.Config

	mu       sync.Mutex
	original corpus.Texts
	working  corpus.Texts
	speakers corpus.Speakers
	progress *progress.Progress
	opts     Options
	total    int
}

// NewTranslator creates a translator. memory may be nil.
func NewTranslator(cfg *config.Config, client Completer, terms glossary.Terms, memory Memory) *Translator {
	if terms == nil {
		terms = glossary.Terms{}
	}
	return &Translator{
		client:  client,
		prompts: NewPromptBuilder(cfg),
		terms:   terms,
		memory:  memory,
		cfg:     cfg,
	}
}

type itemTask struct {
	file    string
	idx     int
	id      string
	text    string
	speaker string
	retry   bool
}

// Run translates speakers first and then every pending dialogue item.
// Outputs and progress are saved periodically and once more at the end,
// also when ctx is cancelled.
func (t *Translator) Run(ctx context.Context, opts Options) (*Summary, error) {
	opts.setDefaults()
	if err := t.load(opts); err != nil {
		return nil, err
	}

	t.total = t.logStats()
	sum := &Summary{
		Items:         t.total,
		SpeakersTotal: len(t.speakers),
	}
	if opts.DryRun {
		sum.SpeakersTranslated = t.speakers.Translated()
		sum.Speakers = t.speakers.Clone()
		log.Info().Msg("Dry run, nothing translated")
		return sum, nil
	}

	t.seedMemory(ctx)
	t.translateSpeakers(ctx, sum)
	if ctx.Err() != nil {
		sum.Interrupted = true
		return sum, t.finish(sum)
	}

	tasks := t.collectTasks(sum)
	if len(tasks) == 0 {
		log.Info().Msg("No items to translate")
		return sum, t.finish(sum)
	}
	t.translateItems(ctx, tasks, sum)
	sum.Interrupted = ctx.Err() != nil
	return sum, t.finish(sum)
}

func (t *Translator) load(opts Options) error {
	original, err := corpus.LoadTexts(opts.TextsFile)
	if err != nil {
		return fmt.Errorf("load texts: %w", err)
	}

	var prog *progress.Progress
	if opts.Resume || opts.RetryFailed {
		prog, err = progress.Load(opts.ProgressFile, opts.TextsFile, opts.OutputFile)
		if err != nil {
			log.Warn().Err(err).Msg("Ignoring unreadable progress file")
			prog = progress.New(opts.TextsFile, opts.OutputFile)
		}
	} else {
		prog = progress.New(opts.TextsFile, opts.OutputFile)
	}

	working := original.Clone()
	previous, err := corpus.LoadTexts(opts.OutputFile)
	switch {
	case err == nil:
		working = corpus.Resume(original, previous)
		log.Info().Str("path", opts.OutputFile).Msg("Resuming from existing output")
	case !errors.Is(err, fs.ErrNotExist):
		log.Warn().Err(err).Msg("Ignoring unreadable output file")
	}

	speakers, err := loadSpeakers(filepath.Dir(opts.TextsFile), filepath.Dir(opts.OutputFile))
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.original, t.working, t.speakers, t.progress, t.opts = original, working, speakers, prog, opts
	return nil
}

// seedMemory stores the translations restored from earlier output in the
// translation memory, so repeated lines elsewhere reuse them.
func (t *Translator) seedMemory(ctx context.Context) {
	if t.memory == nil {
		return
	}

	t.mu.Lock()
	pairs := make(map[string]string)
	for key, items := range t.working {
		orig := t.original[key]
		for i, it := range items {
			if i >= len(orig) || it.Text == orig[i].Text || strings.TrimSpace(it.Text) == "" {
				continue
			}
			pairs[memoryKey(kindDialogue, orig[i].Text)] = it.Text
		}
	}
	for name, v := range t.speakers {
		if strings.TrimSpace(v) != "" {
			pairs[memoryKey(kindSpeaker, name)] = v
		}
	}
	t.mu.Unlock()

	if len(pairs) == 0 {
		return
	}
	if err := t.memory.SetBatch(ctx, pairs); err != nil {
		log.Warn().Err(err).Msg("Failed to seed translation memory")
		return
	}
	log.Info().Int("pairs", len(pairs)).Msg("Seeded translation memory from earlier output")
}

// loadSpeakers reads speakers.json and overlays the translations already
// present in speakers_translated.json.
func loadSpeakers(textsDir, outputDir string) (corpus.Speakers, error) {
	speakers, err := corpus.LoadSpeakers(filepath.Join(textsDir, "speakers.json"))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		speakers = corpus.Speakers{}
	case err != nil:
		return nil, fmt.Errorf("load speakers: %w", err)
	}

	done, err := corpus.LoadSpeakers(filepath.Join(outputDir, "speakers_translated.json"))
	switch {
	case err == nil:
		if n := speakers.Overlay(done); n > 0 {
			log.Info().Int("speakers", n).Msg("Restored translated speakers")
		}
	case !errors.Is(err, fs.ErrNotExist):
		log.Warn().Err(err).Msg("Ignoring unreadable speakers_translated.json")
	}
	return speakers, nil
}

// logStats logs the size of the run and returns the number of items with
// text.
func (t *Translator) logStats() int {
	var pending, empty, japanese int
	for _, items := range t.original {
		for _, it := range items {
			text := strings.TrimSpace(it.Text)
			if text == "" {
				empty++
				continue
			}
			pending++
			if textutil.ContainsJapanese(text) {
				japanese++
			}
		}
	}
	log.Info().
		Int("files", len(t.original)).
		Int("texts", pending).
		Int("japanese", japanese).
		Int("empty", empty).
		Int("speakers", len(t.speakers)).
		Int("speakers_translated", t.speakers.Translated()).
		Msg("Loaded texts")
	return pending
}

func (t *Translator) translateSpeakers(ctx context.Context, sum *Summary) {
	var names []string
	for _, name := range t.speakers.Keys() {
		if strings.TrimSpace(t.speakers[name]) == "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return
	}
	log.Info().Int("speakers", len(names)).Str("model", t.cfg.TranslationModel).Msg("Translating speakers")

	interval := worker.SaveInterval(len(names))
	pool := worker.NewPool(t.opts.Workers, func(ctx context.Context, name string) (string, error) {
		samples := t.speakerSamples(name)
		log.Debug().Str("speaker", name).Int("samples", len(samples)).Msg("Translating speaker")
		return t.translate(ctx, kindSpeaker, Request{
			Text:    name,
			Before:  samples,
			Samples: true,
			Terms:   t.terms.Relevant(name, t.cfg.MaxTerms),
		})
	}).OnDone(func(finished, total int, task worker.Task[string, string]) {
		t.mu.Lock()
		if task.Err != nil {
			sum.SpeakersFailed++
			log.Warn().Err(task.Err).Str("speaker", task.Input).Msg("Speaker translation failed")
		} else {
			t.speakers[task.Input] = task.Result
			sum.SpeakersTranslated++
			log.Info().Str("speaker", task.Input).Str("translation", task.Result).Msgf("[%d/%d] Speaker translated", finished, total)
		}
		t.mu.Unlock()
		if finished%interval == 0 || finished == total {
			t.checkpoint()
		}
	})
	pool.Execute(ctx, names)
}

// speakerSamples returns up to speakerSamples lines spoken by name.
func (t *Translator) speakerSamples(name string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []string
	for _, key := range t.working.Keys() {
		orig := t.original[key]
		for i, it := range t.working[key] {
			if it.SpeakerName() != name {
				continue
			}
			text := strings.TrimSpace(it.Text)
			if text == "" && i < len(orig) {
				text = strings.TrimSpace(orig[i].Text)
			}
			if text != "" {
				out = append(out, text)
				if len(out) == speakerSamples {
					return out
				}
			}
		}
	}
	return out
}

func (t *Translator) collectTasks(sum *Summary) []itemTask {
	var tasks []itemTask
	retries := 0
	for _, key := range t.working.Keys() {
		orig := t.original[key]
		for i, it := range t.working[key] {
			text := it.Text
			if i < len(orig) {
				text = orig[i].Text
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}

			id := it.ID
			if id == "" {
				id = strconv.Itoa(i)
			}
			completed := t.progress.IsCompleted(key, id)
			failed := t.progress.IsFailed(key, id)
			if completed && !t.opts.RetryFailed {
				sum.Skipped++
				continue
			}
			if t.opts.RetryFailed && !failed {
				continue
			}
			if failed {
				retries++
			}
			tasks = append(tasks, itemTask{file: key, idx: i, id: id, text: text, speaker: it.SpeakerName(), retry: failed})
		}
	}

	if sum.Skipped > 0 {
		log.Info().Int("skipped", sum.Skipped).Msg("Skipping completed items")
	}
	if retries > 0 {
		log.Info().Int("retries", retries).Msg("Retrying failed items")
	}
	if t.opts.MaxTasks > 0 && len(tasks) > t.opts.MaxTasks {
		log.Info().Int("tasks", len(tasks)).Int("max_tasks", t.opts.MaxTasks).Msg("Limiting task count")
		tasks = tasks[:t.opts.MaxTasks]
	}
	sum.Tasks = len(tasks)
	return tasks
}

func (t *Translator) translateItems(ctx context.Context, tasks []itemTask, sum *Summary) {
	log.Info().Int("tasks", len(tasks)).Int("workers", t.opts.Workers).Str("model", t.cfg.TranslationModel).Msg("Translating texts")

	interval := worker.SaveInterval(len(tasks))
	pool := worker.NewPool(t.opts.Workers, t.translateItem).
		OnDone(func(finished, total int, task worker.Task[itemTask, string]) {
			in := task.Input
			t.mu.Lock()
			if task.Err != nil {
				sum.Failed++
				t.progress.MarkFailed(in.file, in.id)
				log.Warn().Err(task.Err).Str("file", in.file).Str("id", in.id).Msg("Translation failed")
			} else {
				t.working[in.file][in.idx].Text = task.Result
				sum.Translated++
				t.progress.MarkCompleted(in.file, in.id)
				log.Info().
					Str("file", in.file).
					Str("id", in.id).
					Str("translation", textutil.Truncate(task.Result, 50)).
					Msgf("[%d/%d] Translated", finished, total)
			}
			t.mu.Unlock()
			if finished%interval == 0 || finished == total {
				t.checkpoint()
			}
		})
	pool.Execute(ctx, tasks)
}

func (t *Translator) translateItem(ctx context.Context, task itemTask) (string, error) {
	speaker, lines := t.fileContext(task.file, task.speaker)
	terms := t.terms.Relevant(task.text, t.cfg.MaxTerms)
	budget := max(0, t.cfg.ContextMaxChars-t.prompts.BaseChars(task.text, terms, speaker))
	before, after := Window(lines, task.idx, budget, t.cfg.ContextMaxItems)

	log.Debug().
		Str("file", task.file).
		Str("id", task.id).
		Bool("retry", task.retry).
		Str("speaker", speaker).
		Int("before", len(before)).
		Int("after", len(after)).
		Str("text", textutil.Truncate(task.text, 50)).
		Msg("Translating")

	return t.translate(ctx, kindDialogue, Request{
		Text:    task.text,
		Speaker: speaker,
		Before:  before,
		After:   after,
		Terms:   terms,
	})
}

// fileContext returns the display name of speaker and the context lines of
// file, using translations where they exist.
func (t *Translator) fileContext(file, speaker string) (string, []ContextLine) {
	t.mu.Lock()
	defer t.mu.Unlock()

	items := t.working[file]
	orig := t.original[file]
	lines := make([]ContextLine, len(items))
	for i, it := range items {
		key := it.SpeakerName()
		text := strings.TrimSpace(it.Text)
		if text == "" && i < len(orig) {
			text = strings.TrimSpace(orig[i].Text)
			if key == "" {
				key = orig[i].SpeakerName()
			}
		}
		lines[i] = ContextLine{Speaker: t.displayName(key), Text: text}
	}
	return t.displayName(speaker), lines
}

// displayName returns the translated speaker name when known. Callers hold
// t.mu.
func (t *Translator) displayName(speaker string) string {
	if speaker == "" {
		return ""
	}
	if v := strings.TrimSpace(t.speakers[speaker]); v != "" {
		return v
	}
	return speaker
}

// translate sends one request, consulting the translation memory first.
func (t *Translator) translate(ctx context.Context, kind string, req Request) (string, error) {
	key := memoryKey(kind, req.Text)
	if t.memory != nil {
		if v, ok := t.memory.Get(ctx, key); ok {
			log.Debug().Str("kind", kind).Msg("Translation memory hit")
			return v, nil
		}
	}

	source := req.Text
	safe, mappings := interpolation.Protect(source)
	req.Text = safe

	reply, err := t.client.Complete(ctx, t.prompts.Messages(req))
	if err != nil {
		return "", err
	}
	if reply == "" {
		return "", ErrEmptyResponse
	}
	if missing := interpolation.Missing(reply, mappings); len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrLostPlaceholder, strings.Join(missing, ", "))
	}
	reply = interpolation.Restore(reply, mappings)

	if t.memory != nil {
		if err := t.memory.Set(ctx, key, reply); err != nil {
			log.Warn().Err(err).Msg("Failed to store translation memory")
		}
	}
	return reply, nil
}

// checkpoint saves outputs and progress, logging failures.
func (t *Translator) checkpoint() {
	if err := t.save(); err != nil {
		log.Warn().Err(err).Msg("Checkpoint failed")
	}
}

func (t *Translator) finish(sum *Summary) error {
	if err := t.save(); err != nil {
		return err
	}
	t.mu.Lock()
	sum.Speakers = t.speakers.Clone()
	t.mu.Unlock()

	completed, failed := t.progress.Counts()
	log.Info().
		Int("translated", sum.Translated).
		Int("failed", sum.Failed).
		Int("speakers_translated", sum.SpeakersTranslated).
		Int("speakers_failed", sum.SpeakersFailed).
		Int("completed_total", completed).
		Int("failed_total", failed).
		Int("items", sum.Items).
		Bool("interrupted", sum.Interrupted).
		Str("output", t.opts.OutputFile).
		Msg("Translation finished")
	if failed > 0 && !sum.Interrupted {
		log.Info().Msg("Run again with --retry-failed to retry failed items")
	}
	return nil
}

// save writes texts_translated.json, speakers_translated.json and the
// progress file.
func (t *Translator) save() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := corpus.WriteJSON(t.opts.OutputFile, t.working); err != nil {
		return fmt.Errorf("save texts: %w", err)
	}
	if len(t.speakers) > 0 {
		path := filepath.Join(filepath.Dir(t.opts.OutputFile), "speakers_translated.json")
		if err := corpus.WriteJSON(path, t.speakers); err != nil {
			return fmt.Errorf("save speakers: %w", err)
		}
	}
	return t.progress.Save(t.opts.ProgressFile, t.total, len(t.speakers))
}
