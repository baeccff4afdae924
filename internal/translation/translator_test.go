package translation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"msg-translator/internal/corpus"
	"msg-translator/internal/glossary"
	"msg-translator/internal/progress"
)

const translatePrefix = "Translate the following text and output only the translation:\n"

// fakeCompleter answers with "T(text)" unless fail says otherwise.
type fakeCompleter struct {
	mu    sync.Mutex
	calls [][]Message
	fail  func(text string) (string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, msgs []Message) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, msgs)
	f.mu.Unlock()

	text := strings.TrimPrefix(msgs[len(msgs)-1].Content, translatePrefix)
	if f.fail != nil {
		return f.fail(text)
	}
	return "T(" + text + ")", nil
}

func (f *fakeCompleter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// find returns the conversation whose text to translate is text.
func (f *fakeCompleter) find(text string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msgs := range f.calls {
		if msgs[len(msgs)-1].Content == translatePrefix+text {
			return msgs
		}
	}
	return nil
}

type mapMemory struct {
	mu sync.Mutex
	m  map[string]string
}

func (m *mapMemory) Get(_ context.Context, source string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[source]
	return v, ok
}

func (m *mapMemory) Set(_ context.Context, source, translated string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[source] = translated
	return nil
}

func (m *mapMemory) SetBatch(_ context.Context, pairs map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range pairs {
		m.m[k] = v
	}
	return nil
}

func strp(s string) *string { return &s }

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	texts := corpus.Texts{
		"E0000": {
			{Msg: "M0", Speaker: strp("舞耶"), ID: "M0_dialogue_0", Text: "こんにちは"},
			{Msg: "M0", Speaker: strp("舞耶"), ID: "M0_dialogue_1", Text: "   "},
			{Msg: "M1", ID: "M1_dialogue_0", Text: "ＪＯＫＥＲだ"},
		},
	}
	if err := corpus.WriteJSON(filepath.Join(dir, "texts.json"), texts); err != nil {
		t.Fatal(err)
	}
	if err := corpus.WriteJSON(filepath.Join(dir, "speakers.json"), corpus.Speakers{"舞耶": ""}); err != nil {
		t.Fatal(err)
	}
	return filepath.Join(dir, "texts.json")
}

func runOpts(textsFile string) Options {
	return Options{TextsFile: textsFile, Resume: true, Workers: 2}
}

func TestRunTranslatesSpeakersThenTexts(t *testing.T) {
	textsFile := writeFixture(t)
	fc := &fakeCompleter{}
	tr := NewTranslator(testConfig(""), fc, glossary.Terms{"舞耶": "舞耶"}, nil)

	// One worker keeps the items in order, so later lines are still
	// untranslated when they appear as context.
	opts := runOpts(textsFile)
	opts.Workers = 1
	sum, err := tr.Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Translated != 2 || sum.Failed != 0 || sum.SpeakersTranslated != 1 || sum.Items != 2 {
		t.Fatalf("Summary = %+v", sum)
	}

	dir := filepath.Dir(textsFile)
	out, err := corpus.LoadTexts(filepath.Join(dir, "texts_translated.json"))
	if err != nil {
		t.Fatal(err)
	}
	items := out["E0000"]
	if items[0].Text != "T(こんにちは)" || items[1].Text != "   " || items[2].Text != "T(ＪＯＫＥＲだ)" {
		t.Fatalf("translated items = %+v", items)
	}

	speakers, err := corpus.LoadSpeakers(filepath.Join(dir, "speakers_translated.json"))
	if err != nil {
		t.Fatal(err)
	}
	if speakers["舞耶"] != "T(舞耶)" {
		t.Fatalf("speakers = %v", speakers)
	}

	// The dialogue request sees the translated speaker name and context.
	msgs := fc.find("こんにちは")
	if len(msgs) != 3 {
		t.Fatalf("dialogue conversation = %+v", msgs)
	}
	if !strings.Contains(msgs[1].Content, "Speaker: T(舞耶)") || !strings.Contains(msgs[1].Content, "Following lines:\n1. ＪＯＫＥＲだ") {
		t.Fatalf("context message = %q", msgs[1].Content)
	}
	if strings.Contains(msgs[0].Content, "Glossary") {
		t.Fatal("unrelated term in dialogue system prompt")
	}

	// The speaker request carries sample lines and its glossary entry.
	msgs = fc.find("舞耶")
	if msgs == nil || !strings.Contains(msgs[1].Content, "Sample lines for this speaker:\n1. こんにちは") {
		t.Fatalf("speaker conversation = %+v", msgs)
	}
	if !strings.Contains(msgs[0].Content, `"舞耶" → "舞耶"`) {
		t.Fatal("relevant term missing from system prompt")
	}

	// Codenames are protected on the wire.
	if fc.find("{{var_1}}だ") == nil {
		t.Fatal("codename was sent unprotected")
	}

	prog, err := progress.Load(filepath.Join(dir, "translate_progress.json"), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if prog.Stats.Completed != 2 || prog.Stats.Total != 2 || prog.Stats.SpeakersTotal != 1 {
		t.Fatalf("progress stats = %+v", prog.Stats)
	}
}

func TestRunResumesWithoutRepeatingWork(t *testing.T) {
	textsFile := writeFixture(t)
	if _, err := NewTranslator(testConfig(""), &fakeCompleter{}, nil, nil).Run(context.Background(), runOpts(textsFile)); err != nil {
		t.Fatal(err)
	}

	fc := &fakeCompleter{}
	sum, err := NewTranslator(testConfig(""), fc, nil, nil).Run(context.Background(), runOpts(textsFile))
	if err != nil {
		t.Fatal(err)
	}
	if fc.count() != 0 || sum.Skipped != 2 {
		t.Fatalf("second run made %d calls, skipped %d", fc.count(), sum.Skipped)
	}
}

func TestRunRetryFailed(t *testing.T) {
	textsFile := writeFixture(t)
	failing := &fakeCompleter{fail: func(text string) (string, error) {
		if strings.Contains(text, "{{var_1}}") {
			return "", errors.New("boom")
		}
		return "T(" + text + ")", nil
	}}
	sum, err := NewTranslator(testConfig(""), failing, nil, nil).Run(context.Background(), runOpts(textsFile))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Failed != 1 || sum.Translated != 1 {
		t.Fatalf("Summary = %+v", sum)
	}

	fc := &fakeCompleter{}
	opts := runOpts(textsFile)
	opts.RetryFailed = true
	sum, err = NewTranslator(testConfig(""), fc, nil, nil).Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if fc.count() != 1 || sum.Translated != 1 {
		t.Fatalf("retry made %d calls, Summary = %+v", fc.count(), sum)
	}

	prog, err := progress.Load(filepath.Join(filepath.Dir(textsFile), "translate_progress.json"), "", "")
	if err != nil {
		t.Fatal(err)
	}
	if prog.IsFailed("E0000", "M1_dialogue_0") || !prog.IsCompleted("E0000", "M1_dialogue_0") {
		t.Fatalf("progress = %+v", prog)
	}
}

func TestRunFailsOnLostPlaceholder(t *testing.T) {
	textsFile := writeFixture(t)
	fc := &fakeCompleter{fail: func(text string) (string, error) {
		return strings.ReplaceAll(text, "{{var_1}}", ""), nil
	}}
	sum, err := NewTranslator(testConfig(""), fc, nil, nil).Run(context.Background(), runOpts(textsFile))
	if err != nil {
		t.Fatal(err)
	}
	if sum.Failed != 1 {
		t.Fatalf("Summary = %+v", sum)
	}
}

func TestRunMaxTasksAndDryRun(t *testing.T) {
	textsFile := writeFixture(t)

	fc := &fakeCompleter{}
	opts := runOpts(textsFile)
	opts.DryRun = true
	if _, err := NewTranslator(testConfig(""), fc, nil, nil).Run(context.Background(), opts); err != nil {
		t.Fatal(err)
	}
	if fc.count() != 0 {
		t.Fatal("dry run called the model")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(textsFile), "texts_translated.json")); !os.IsNotExist(err) {
		t.Fatal("dry run wrote output")
	}

	opts = runOpts(textsFile)
	opts.MaxTasks = 1
	sum, err := NewTranslator(testConfig(""), fc, nil, nil).Run(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if sum.Tasks != 1 || sum.Translated != 1 {
		t.Fatalf("Summary = %+v", sum)
	}
}

func TestRunUsesMemory(t *testing.T) {
	textsFile := writeFixture(t)
	mem := &mapMemory{m: map[string]string{
		"speaker\x00舞耶":         "舞耶",
		"dialogue\x00こんにちは":    "你好",
		"dialogue\x00ＪＯＫＥＲだ": "是ＪＯＫＥＲ",
	}}
	fc := &fakeCompleter{}
	sum, err := NewTranslator(testConfig(""), fc, nil, mem).Run(context.Background(), runOpts(textsFile))
	if err != nil {
		t.Fatal(err)
	}
	if fc.count() != 0 || sum.Translated != 2 {
		t.Fatalf("calls = %d, Summary = %+v", fc.count(), sum)
	}
	if sum.Speakers["舞耶"] != "舞耶" {
		t.Fatalf("speakers = %v", sum.Speakers)
	}
}

func TestRunSeedsMemoryFromEarlierOutput(t *testing.T) {
	textsFile := writeFixture(t)
	if _, err := NewTranslator(testConfig(""), &fakeCompleter{}, nil, nil).Run(context.Background(), runOpts(textsFile)); err != nil {
		t.Fatal(err)
	}

	mem := &mapMemory{m: map[string]string{}}
	fc := &fakeCompleter{}
	if _, err := NewTranslator(testConfig(""), fc, nil, mem).Run(context.Background(), runOpts(textsFile)); err != nil {
		t.Fatal(err)
	}
	if fc.count() != 0 {
		t.Fatalf("resumed run made %d calls", fc.count())
	}

	want := map[string]string{
		"speaker\x00舞耶":         "T(舞耶)",
		"dialogue\x00こんにちは":    "T(こんにちは)",
		"dialogue\x00ＪＯＫＥＲだ": "T(ＪＯＫＥＲだ)",
	}
	for k, v := range want {
		if got := mem.m[k]; got != v {
			t.Errorf("memory[%q] = %q, want %q", k, got, v)
		}
	}
	if _, ok := mem.m["dialogue\x00   "]; ok {
		t.Error("blank item was seeded")
	}
}
