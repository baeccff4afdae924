package translation

import (
	"fmt"
	"strings"

	"msg-translator/internal/config"
	"msg-translator/internal/glossary"
	"msg-translator/internal/textutil"
)

// Request describes one text to translate together with its context.
type Request struct {
	Text    string
	Speaker string
	// Before holds the preceding lines, or sample lines of the speaker
	// being translated when Samples is set.
	Before  []string
	After   []string
	Samples bool
	Terms   []glossary.Term
}

// PromptBuilder constructs the chat messages for a translation.
type PromptBuilder struct {
	gameTitle  string
	sourceLang string
	targetLang string
}

// NewPromptBuilder creates a prompt builder from cfg.
func NewPromptBuilder(cfg *config.Config) *PromptBuilder {
	return &PromptBuilder{
		gameTitle:  cfg.GameTitle,
		sourceLang: cfg.SourceLang,
		targetLang: cfg.TargetLang,
	}
}

const systemTemplate = `You are translating the %[1]s text of the game %[3]s into %[2]s.

Rules:
1. Output natural, fluent %[2]s only.
2. Never romanize names. Names written with kanji keep their kanji; kana-only names use the established %[2]s name if there is one, otherwise keep the kana.
3. Do not change, exaggerate, soften or mock the meaning. Do not add emotional colour or nicknames.
4. Titles, roles and forms of address must read naturally in %[2]s and stay formal and accurate. Never turn them into English.
5. Keep each character's tone and keep names and forms of address consistent across the script.
6. Use the context lines to resolve pronouns, forms of address and the speaker's identity, but translate only the given text.
7. Codenames written in full-width capitals (such as ＪＯＫＥＲ) are fixed symbols: do not translate, annotate or change them.
8. Copy placeholders such as {{var_1}} exactly as they appear.
9. Output only the translation, with no explanation, notes or quotes.
%[4]s`

const termsHeader = `
Glossary (mandatory). These terms occur in the text and must be translated exactly as listed:
`

// System returns the system prompt with the given terms.
func (pb *PromptBuilder) System(terms []glossary.Term) string {
	var section strings.Builder
	if len(terms) > 0 {
		section.WriteString(termsHeader)
		for _, t := range terms {
			fmt.Fprintf(&section, "  %q → %q\n", t.Original, t.Translation)
		}
	}
	return fmt.Sprintf(systemTemplate, pb.sourceLang, pb.targetLang, pb.gameTitle, section.String())
}

const contextHeader = "Context for understanding only, do not translate:"

// Context returns the context message, or "" when there is no context.
func (pb *PromptBuilder) Context(req Request) string {
	var parts []string
	if req.Speaker != "" {
		parts = append(parts, "Speaker: "+req.Speaker)
	}
	if len(req.Before) > 0 {
		if req.Samples {
			parts = append(parts, "Sample lines for this speaker:")
		} else {
			parts = append(parts, "Preceding lines:")
		}
		parts = append(parts, numbered(req.Before)...)
	}
	if len(req.After) > 0 {
		parts = append(parts, "Following lines:")
		parts = append(parts, numbered(req.After)...)
	}
	if len(parts) == 0 {
		return ""
	}
	return contextHeader + "\n" + strings.Join(parts, "\n")
}

// Translate returns the final user message carrying the text.
func (pb *PromptBuilder) Translate(text string) string {
	return "Translate the following text and output only the translation:\n" + text
}

// Messages assembles the conversation for req.
func (pb *PromptBuilder) Messages(req Request) []Message {
	msgs := []Message{{Role: "system", Content: pb.System(req.Terms)}}
	if ctx := pb.Context(req); ctx != "" {
		msgs = append(msgs, Message{Role: "user", Content: ctx})
	}
	return append(msgs, Message{Role: "user", Content: pb.Translate(req.Text)})
}

// BaseChars returns the size in characters of the prompt for text without
// any context lines. The remainder of the context budget goes to context.
func (pb *PromptBuilder) BaseChars(text string, terms []glossary.Term, speaker string) int {
	n := textutil.RuneLen(pb.System(terms)) + textutil.RuneLen(pb.Translate(text))
	if speaker != "" {
		n += textutil.RuneLen(pb.Context(Request{Speaker: speaker}))
	}
	return n
}

func numbered(lines []string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = fmt.Sprintf("%d. %s", i+1, l)
	}
	return out
}
