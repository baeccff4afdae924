package msgscript

import (
	"reflect"
	"testing"
)

const sampleScript = `# event E0000
# generated by the dumper

E0000_00:
[color(yellow)]お婆さん[color(white)]
[tab]なんとまぁ、
[tab]寂しい背中だい…[end]

E0000_01:
[sync][wait][clear][end]

E0000_02:
ただの[wait]テストです。[end]
`

func TestParseLineSegments(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		segments []string
		format   string
		single   bool
	}{
		{
			name:     "single segment after marker",
			line:     "[tab]なんとまぁ、",
			segments: []string{"なんとまぁ、"},
			format:   "[tab]{text}",
			single:   true,
		},
		{
			name:   "pure markers",
			line:   "[sync][wait][clear][end]",
			format: "[sync][wait][clear][end]",
			single: true,
		},
		{
			name:     "two segments",
			line:     "前半[wait]後半[end]",
			segments: []string{"前半", "後半"},
			format:   "{text0}[wait]{text1}[end]",
		},
		{
			name:     "whitespace around segments stays in the template",
			line:     "  hello [wait] world  ",
			segments: []string{"hello", "world"},
			format:   "  {text0} [wait] {text1}",
		},
		{
			name:     "whitespace-only run between markers",
			line:     "[a] [b]x",
			segments: []string{"x"},
			format:   "[a] [b]{text}",
			single:   true,
		},
		{
			name:     "unbalanced bracket joins the segment",
			line:     "値[x]は[5",
			segments: []string{"値", "は[5"},
			format:   "{text0}[x]{text1}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseLine(tt.line)
			if d == nil {
				t.Fatalf("ParseLine(%q) = nil", tt.line)
			}
			if !reflect.DeepEqual(d.Segments, tt.segments) {
				t.Fatalf("Segments = %#v, want %#v", d.Segments, tt.segments)
			}
			if d.Format != tt.format {
				t.Fatalf("Format = %q, want %q", d.Format, tt.format)
			}
			if d.Single != tt.single {
				t.Fatalf("Single = %v, want %v", d.Single, tt.single)
			}
		})
	}
}

func TestParseLineBlank(t *testing.T) {
	for _, line := range []string{"", "   ", "\t"} {
		if d := ParseLine(line); d != nil {
			t.Fatalf("ParseLine(%q) = %#v, want nil", line, d)
		}
	}
}

func TestParseLineTemplateExpandsToLine(t *testing.T) {
	lines := []string{
		"[tab]なんとまぁ、",
		"  前[wait] 中 [color(red)]後[end]",
		"[sync][end]",
		"文[x(a,(b))]章",
	}
	for _, line := range lines {
		if got := Expand(ParseLine(line)); got != line {
			t.Fatalf("Expand(ParseLine(%q)) = %q", line, got)
		}
	}
}

func TestParseSpeaker(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		ok     bool
		text   string
		format string
	}{
		{
			name:   "two color markers",
			line:   "[color(yellow)]お婆さん[color(white)]",
			ok:     true,
			text:   "お婆さん",
			format: "[color(yellow)]{text}[color(white)]",
		},
		{
			name:   "first and last of three",
			line:   "[color(red)]ア[color(blue)]イ[color(white)]",
			ok:     true,
			text:   "アイ",
			format: "[color(red)]{text}[color(white)]",
		},
		{name: "tab disqualifies", line: "[tab][color(yellow)]名[color(white)]"},
		{name: "one color marker", line: "[color(yellow)]名前"},
		{name: "no markers", line: "名前"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp, ok := ParseSpeaker(tt.line)
			if ok != tt.ok {
				t.Fatalf("ParseSpeaker(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			}
			if !ok {
				return
			}
			if sp.Text != tt.text || sp.Format != tt.format {
				t.Fatalf("ParseSpeaker(%q) = %+v, want text %q format %q", tt.line, sp, tt.text, tt.format)
			}
		})
	}
}

func TestIsHeader(t *testing.T) {
	tests := map[string]bool{
		"E0000_00:":   true,
		"  E0000_00:": true,
		"E0000_00 : ": true,
		"# note:":     false,
		"E0000_00":    false,
		"[tab]は：":    false,
	}
	for in, want := range tests {
		if got := IsHeader(in); got != want {
			t.Errorf("IsHeader(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseDocumentStructure(t *testing.T) {
	doc := Parse(sampleScript)

	if want := []string{"E0000_00", "E0000_01", "E0000_02"}; !reflect.DeepEqual(doc.Order, want) {
		t.Fatalf("Order = %v, want %v", doc.Order, want)
	}
	if len(doc.Comments) != len(doc.Messages)+1 {
		t.Fatalf("len(Comments) = %d, want %d", len(doc.Comments), len(doc.Messages)+1)
	}
	if want := (Chunk{"# event E0000", "# generated by the dumper", ""}); !reflect.DeepEqual(doc.Comments[0], want) {
		t.Fatalf("Comments[0] = %#v, want %#v", doc.Comments[0], want)
	}

	first := doc.Messages["E0000_00"].Lines
	if len(first) != 2 {
		t.Fatalf("E0000_00 has %d lines, want 2", len(first))
	}
	sp, ok := first[0].(*Speaker)
	if !ok {
		t.Fatalf("first line is %T, want *Speaker", first[0])
	}
	if sp.Text != "お婆さん" || sp.Format != "[color(yellow)]{text}[color(white)]" {
		t.Fatalf("speaker = %+v", sp)
	}
	d, ok := first[1].(*Dialogue)
	if !ok {
		t.Fatalf("second line is %T, want *Dialogue", first[1])
	}
	if want := []string{"なんとまぁ、", "寂しい背中だい…"}; !reflect.DeepEqual(d.Segments, want) {
		t.Fatalf("merged segments = %v, want %v", d.Segments, want)
	}
	if d.Format != "[tab]{text0}\n[tab]{text1}[end]" {
		t.Fatalf("merged format = %q", d.Format)
	}

	pure := doc.Messages["E0000_01"].Lines[0].(*Dialogue)
	if pure.HasText() || pure.Format != "[sync][wait][clear][end]" {
		t.Fatalf("pure-marker line = %+v", pure)
	}
}

func TestParseSpeakerHeuristicRunsOncePerBlock(t *testing.T) {
	doc := Parse("M:\n[tab][color(a)]名[color(b)]\n[color(a)]名[color(b)][end]\n")
	lines := doc.Messages["M"].Lines
	for i, l := range lines {
		if _, ok := l.(*Speaker); ok {
			t.Fatalf("line %d classified as speaker", i)
		}
	}
}

func TestParseSpeakerSkipsLeadingBlankLines(t *testing.T) {
	doc := Parse("M:\n\n[color(yellow)]名[color(white)]\n本文[end]\n")
	if _, ok := doc.Messages["M"].Lines[0].(*Speaker); !ok {
		t.Fatalf("first content line is %T, want *Speaker", doc.Messages["M"].Lines[0])
	}
}

func TestParseUnterminatedBlockEndsAtHeader(t *testing.T) {
	doc := Parse("A:\n一行目\n二行目\nB:\n三行目[end]\n")

	if got := len(doc.Messages["A"].Lines); got != 2 {
		t.Fatalf("A has %d lines, want 2", got)
	}
	if got := len(doc.Messages["B"].Lines); got != 1 {
		t.Fatalf("B has %d lines, want 1", got)
	}
	if doc.Comments[1] != nil {
		t.Fatalf("Comments[1] = %#v, want no lines", doc.Comments[1])
	}
}

func TestParseStopsAfterEnd(t *testing.T) {
	doc := Parse("A:\n本文[end]\n// trailing note\n\nB:\n次[end]")
	if got := len(doc.Messages["A"].Lines); got != 1 {
		t.Fatalf("A has %d lines, want 1", got)
	}
	if want := (Chunk{"// trailing note", ""}); !reflect.DeepEqual(doc.Comments[1], want) {
		t.Fatalf("Comments[1] = %#v, want %#v", doc.Comments[1], want)
	}
}

func TestParseNoHeaders(t *testing.T) {
	doc := Parse("# only a comment\n")
	if len(doc.Order) != 0 || len(doc.Comments) != 1 {
		t.Fatalf("doc = %+v", doc)
	}
	if got := Rebuild(doc, nil); got != "# only a comment\n" {
		t.Fatalf("Rebuild = %q", got)
	}
}
