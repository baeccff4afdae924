package parser

import "msg-translator/internal/msgscript"

// ExtractedText represents a translatable string extracted from a script file.
type ExtractedText struct {
	// ID is the stable item id, e.g. "E0000_00_dialogue_0_seg_1".
	ID string
	// Message is the name of the block the text belongs to.
	Message string
	// Speaker is the original speaker name of the block, if any.
	Speaker string
	// Text is the original translatable string.
	Text string
}

// IsSpeaker reports whether the text is a speaker name rather than dialogue.
func (e ExtractedText) IsSpeaker() bool {
	return e.ID == msgscript.SpeakerID(e.Message)
}

// ParseResult holds parsing output for a single file.
type ParseResult struct {
	// FilePath is the path the file was read from.
	FilePath string
	// FileType is the detected type (msg).
	FileType string
	// Encoding is the encoding the file was decoded from.
	Encoding Encoding
	// Texts are the extracted translatable strings in document order.
	Texts []ExtractedText
	// Document preserves the full structure for reconstruction.
	Document *msgscript.Document
}

// Parser is the interface for all file format parsers.
type Parser interface {
	// CanParse returns true if this parser handles the given file extension.
	CanParse(ext string) bool
	// Parse extracts translatable strings from a file.
	Parse(filePath string) (*ParseResult, error)
	// Reconstruct rebuilds the file with translated strings keyed by item id.
	Reconstruct(result *ParseResult, translations map[string]string) ([]byte, error)
}
