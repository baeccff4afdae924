package msgscript

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Parse(sampleScript)); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	doc, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := Rebuild(doc, nil); got != sampleScript {
		t.Fatalf("Rebuild after JSON round trip = %q", got)
	}
}

func TestEncodeShape(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, Parse("A:\n[color(a)]<名>[color(b)]\n一[wait]&二[end]\nB:\n三[end]")); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(buf.String(), "<名>") || !strings.Contains(buf.String(), "&二") {
		t.Fatalf("output is HTML-escaped:\n%s", buf.String())
	}

	var raw struct {
		Comments []*string `json:"comments"`
		Messages map[string]struct {
			Lines []struct {
				Type string          `json:"type"`
				Text json.RawMessage `json:"text"`
			} `json:"lines"`
		} `json:"messages"`
		Order []string `json:"order"`
	}
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(raw.Comments) != 3 || raw.Comments[0] != nil || raw.Comments[1] != nil {
		t.Fatalf("comments = %v, want three null regions", raw.Comments)
	}
	lines := raw.Messages["A"].Lines
	if lines[0].Type != "speaker" || compact(t, lines[0].Text) != `"<名>"` {
		t.Fatalf("speaker line = %s %s", lines[0].Type, lines[0].Text)
	}
	if lines[1].Type != "dialogue" || compact(t, lines[1].Text) != `["一","&二"]` {
		t.Fatalf("dialogue line = %s %s", lines[1].Type, lines[1].Text)
	}
	if got := compact(t, raw.Messages["B"].Lines[0].Text); got != `"三"` {
		t.Fatalf("scalar dialogue text = %s", got)
	}
}

func compact(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		t.Fatalf("Compact: %v", err)
	}
	return buf.String()
}

func TestDecodeExternalDocument(t *testing.T) {
	src := `{
  "comments": ["# c", ""],
  "messages": {
    "A": {"lines": [
      {"type": "speaker", "text": "X", "format": "[color(a)]{text}[color(b)]"},
      {"type": "dialogue", "text": ["p", null, "q"], "format": "[tab]{text0}[tab]{text1}{text2}[end]"},
      {"type": "dialogue", "text": null, "format": "[sync]"}
    ]}
  },
  "order": ["A"]
}`
	doc, err := Decode(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	want := "# c\nA:\n[color(a)]X[color(b)]\n[tab]p[tab]q[end]\n[sync]\n"
	if got := Rebuild(doc, nil); got != want {
		t.Fatalf("Rebuild = %q, want %q", got, want)
	}

	items := Items("A", doc.Messages["A"])
	if len(items) != 3 || items[2].ID != "A_dialogue_0_seg_2" {
		t.Fatalf("Items = %#v", items)
	}
}

func TestDecodeUnknownLineType(t *testing.T) {
	src := `{"comments": [null], "messages": {"A": {"lines": [{"type": "choice", "text": "x", "format": "{text}"}]}}, "order": ["A"]}`
	_, err := Decode(strings.NewReader(src))
	if !errors.Is(err, ErrUnknownLineType) {
		t.Fatalf("Decode error = %v, want ErrUnknownLineType", err)
	}
}

func TestWriteAndReadTranslations(t *testing.T) {
	texts := ExtractTexts(Parse(sampleScript))

	var buf bytes.Buffer
	if err := WriteTexts(&buf, texts); err != nil {
		t.Fatalf("WriteTexts: %v", err)
	}
	tr, err := ReadTranslations(&buf)
	if err != nil {
		t.Fatalf("ReadTranslations: %v", err)
	}

	want := TranslationsFrom(texts)
	if len(tr) != len(want) {
		t.Fatalf("got %d translations, want %d", len(tr), len(want))
	}
	for id, text := range want {
		if tr[id] != text {
			t.Fatalf("tr[%q] = %q, want %q", id, tr[id], text)
		}
	}
}
