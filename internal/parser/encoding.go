package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names the byte encoding of script files on disk.
type Encoding string

const (
	UTF8     Encoding = "utf-8"
	ShiftJIS Encoding = "shift_jis"
)

// ParseEncoding maps a configured encoding name to an Encoding.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf-8", "utf8":
		return UTF8, nil
	case "shift_jis", "shift-jis", "sjis", "cp932":
		return ShiftJIS, nil
	}
	return "", fmt.Errorf("unsupported encoding %q", name)
}

// Decode converts raw file bytes to text. A leading UTF-8 byte order mark
// is removed. Invalid UTF-8 input is rejected rather than repaired.
func (e Encoding) Decode(data []byte) (string, error) {
	switch e {
	case ShiftJIS:
		out, err := japanese.ShiftJIS.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("decode shift_jis: %w", err)
		}
		return string(out), nil
	default:
		if !utf8.Valid(data) {
			return "", fmt.Errorf("decode utf-8: invalid byte sequence")
		}
		out, err := unicode.UTF8BOM.NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("decode utf-8: %w", err)
		}
		return string(out), nil
	}
}

// Encode converts text back to file bytes. UTF-8 output carries no byte
// order mark.
func (e Encoding) Encode(text string) ([]byte, error) {
	switch e {
	case ShiftJIS:
		out, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(text))
		if err != nil {
			return nil, fmt.Errorf("encode shift_jis: %w", err)
		}
		return out, nil
	default:
		return []byte(text), nil
	}
}
