package parser

import (
	"fmt"
	"os"

	"msg-translator/internal/msgscript"
)

// MsgParser handles tag-annotated .msg dialogue scripts.
type MsgParser struct {
	encoding Encoding
}

func NewMsgParser(enc Encoding) *MsgParser {
	if enc == "" {
		enc = UTF8
	}
	return &MsgParser{encoding: enc}
}

func (p *MsgParser) CanParse(ext string) bool {
	return ext == ".msg"
}

func (p *MsgParser) Parse(filePath string) (*ParseResult, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read msg file: %w", err)
	}
	result, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}
	result.FilePath = filePath
	return result, nil
}

// ParseBytes parses script content that has already been read.
func (p *MsgParser) ParseBytes(data []byte) (*ParseResult, error) {
	text, err := p.encoding.Decode(data)
	if err != nil {
		return nil, err
	}
	doc := msgscript.Parse(text)
	return &ParseResult{
		FileType: "msg",
		Encoding: p.encoding,
		Texts:    collectTexts(doc),
		Document: doc,
	}, nil
}

// collectTexts flattens extracted items, tagging each with the speaker of
// its block.
func collectTexts(doc *msgscript.Document) []ExtractedText {
	var out []ExtractedText
	for _, mt := range msgscript.ExtractTexts(doc) {
		speaker := ""
		for _, it := range mt.Items {
			if it.ID == msgscript.SpeakerID(mt.Message) {
				speaker = it.Text
			}
			out = append(out, ExtractedText{
				ID:      it.ID,
				Message: mt.Message,
				Speaker: speaker,
				Text:    it.Text,
			})
		}
	}
	return out
}

func (p *MsgParser) Reconstruct(result *ParseResult, translations map[string]string) ([]byte, error) {
	if result == nil || result.Document == nil {
		return nil, fmt.Errorf("reconstruct: no document")
	}
	text := msgscript.Rebuild(result.Document, msgscript.Translations(translations))
	enc := result.Encoding
	if enc == "" {
		enc = p.encoding
	}
	out, err := enc.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("reconstruct %s: %w", result.FilePath, err)
	}
	return out, nil
}
