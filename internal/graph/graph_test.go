package graph

import (
	"reflect"
	"testing"

	"msg-translator/internal/corpus"
	"msg-translator/internal/glossary"
)

func name(s string) *string { return &s }

func TestSpeakerTerms(t *testing.T) {
	got := SpeakerTerms(corpus.Speakers{"舞耶": "舞耶", "克哉": "", "うらら": "乌拉拉"})
	want := []Term{
		{Original: "うらら", Translation: "乌拉拉", Category: CategorySpeaker},
		{Original: "舞耶", Translation: "舞耶", Category: CategorySpeaker},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SpeakerTerms = %v, want %v", got, want)
	}
}

func TestGlossaryTerms(t *testing.T) {
	got := GlossaryTerms(glossary.Terms{"編集長": "主编"})
	if len(got) != 1 || got[0].Category != CategoryTerm || got[0].Translation != "主编" {
		t.Fatalf("GlossaryTerms = %v", got)
	}
}

func TestSpeakerScripts(t *testing.T) {
	texts := corpus.Texts{
		"E0001": {{Speaker: name("舞耶")}, {Speaker: name("舞耶")}, {}},
		"E0000": {{Speaker: name("舞耶")}, {Speaker: name(" 克哉 ")}},
	}
	got := SpeakerScripts(texts)
	want := map[string][]string{
		"舞耶": {"E0000", "E0001"},
		"克哉": {"E0000"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SpeakerScripts = %v, want %v", got, want)
	}
}
