package vfs

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding is a character encoding label.
type Encoding string

// Encodings recognized by DetectEncoding.
const (
	EncodingUTF8    Encoding = "utf-8"
	EncodingUTF8BOM Encoding = "utf-8-bom"
	EncodingUTF16LE Encoding = "utf-16le"
	EncodingUTF16BE Encoding = "utf-16be"
	EncodingLatin1  Encoding = "iso-8859-1"
	EncodingASCII   Encoding = "ascii"
)

// HasBOM reports whether files in this encoding start with a byte order mark.
func (e Encoding) HasBOM() bool {
	return e == EncodingUTF8BOM || e == EncodingUTF16LE || e == EncodingUTF16BE
}

func (e Encoding) codec() encoding.Encoding {
	switch e {
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case EncodingLatin1:
		return charmap.ISO8859_1
	}
	return nil
}

// Decode converts content in encoding e, byte order mark already removed,
// to UTF-8.
func Decode(content []byte, e Encoding) ([]byte, error) {
	c := e.codec()
	if c == nil {
		return content, nil
	}
	return c.NewDecoder().Bytes(content)
}

// Encode converts UTF-8 text to encoding e. It fails when text holds a
// character e cannot represent.
func Encode(text []byte, e Encoding) ([]byte, error) {
	c := e.codec()
	if c == nil {
		return text, nil
	}
	return c.NewEncoder().Bytes(text)
}

// LineEnding is a line terminator style.
type LineEnding string

// Line ending styles.
const (
	LineEndingLF    LineEnding = "lf"
	LineEndingCRLF  LineEnding = "crlf"
	LineEndingCR    LineEnding = "cr"
	LineEndingMixed LineEnding = "mixed"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DetectEncoding looks for a byte order mark, then validates UTF-8, and
// falls back to Latin-1.
func DetectEncoding(content []byte) Encoding {
	switch {
	case len(content) == 0:
		return EncodingUTF8
	case bytes.HasPrefix(content, bomUTF8):
		return EncodingUTF8BOM
	case bytes.HasPrefix(content, bomUTF16LE):
		return EncodingUTF16LE
	case bytes.HasPrefix(content, bomUTF16BE):
		return EncodingUTF16BE
	case !utf8.Valid(content):
		return EncodingLatin1
	}
	for _, b := range content {
		if b >= utf8.RuneSelf {
			return EncodingUTF8
		}
	}
	return EncodingASCII
}

// DetectLineEnding returns the line ending used in content. Content using
// more than one style is reported as mixed; content without line breaks
// defaults to LF.
func DetectLineEnding(content []byte) LineEnding {
	var lf, crlf, cr int
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '\r':
			if i+1 < len(content) && content[i+1] == '\n' {
				crlf++
				i++
			} else {
				cr++
			}
		case '\n':
			lf++
		}
	}

	styles := 0
	for _, n := range []int{lf, crlf, cr} {
		if n > 0 {
			styles++
		}
	}
	switch {
	case styles > 1:
		return LineEndingMixed
	case crlf > 0:
		return LineEndingCRLF
	case cr > 0:
		return LineEndingCR
	default:
		return LineEndingLF
	}
}

// StripBOM removes a byte order mark from content.
func StripBOM(content []byte) ([]byte, Encoding) {
	switch {
	case bytes.HasPrefix(content, bomUTF8):
		return content[len(bomUTF8):], EncodingUTF8BOM
	case bytes.HasPrefix(content, bomUTF16LE):
		return content[len(bomUTF16LE):], EncodingUTF16LE
	case bytes.HasPrefix(content, bomUTF16BE):
		return content[len(bomUTF16BE):], EncodingUTF16BE
	}
	return content, EncodingUTF8
}

// AddBOM prepends the byte order mark of encoding, if it has one.
func AddBOM(content []byte, encoding Encoding) []byte {
	var bom []byte
	switch encoding {
	case EncodingUTF8BOM:
		bom = bomUTF8
	case EncodingUTF16LE:
		bom = bomUTF16LE
	case EncodingUTF16BE:
		bom = bomUTF16BE
	default:
		return content
	}
	if bytes.HasPrefix(content, bom) {
		return content
	}
	out := make([]byte, 0, len(bom)+len(content))
	out = append(out, bom...)
	return append(out, content...)
}

// ApplyLineEnding converts LF-terminated content to ending. Mixed endings
// leave content as it is.
func ApplyLineEnding(content []byte, ending LineEnding) []byte {
	switch ending {
	case LineEndingCRLF:
		return bytes.ReplaceAll(content, []byte{'\n'}, []byte{'\r', '\n'})
	case LineEndingCR:
		return bytes.ReplaceAll(content, []byte{'\n'}, []byte{'\r'})
	default:
		return content
	}
}

// IsBinary guesses whether content is binary: NUL bytes, or more than 10%
// control characters in the first 8KB.
func IsBinary(content []byte) bool {
	sample := content
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	if len(sample) == 0 {
		return false
	}
	if bytes.IndexByte(sample, 0) >= 0 {
		return true
	}

	control := 0
	for _, b := range sample {
		if b < 32 && b != '\t' && b != '\n' && b != '\r' {
			control++
		}
	}
	return control*10 > len(sample)
}

// EncodingInfo holds what DetectEncodingInfo found.
type EncodingInfo struct {
	Encoding   Encoding
	LineEnding LineEnding
	HasBOM     bool
	IsBinary   bool
}

// DetectEncodingInfo performs full detection on content. UTF-16 content
// with a byte order mark is not binary; its line ending is detected on the
// decoded text.
func DetectEncodingInfo(content []byte) EncodingInfo {
	if enc := DetectEncoding(content); enc == EncodingUTF16LE || enc == EncodingUTF16BE {
		body, _ := StripBOM(content)
		text, err := Decode(body, enc)
		if err != nil {
			return EncodingInfo{IsBinary: true}
		}
		return EncodingInfo{Encoding: enc, LineEnding: DetectLineEnding(text), HasBOM: true}
	}
	if IsBinary(content) {
		return EncodingInfo{IsBinary: true}
	}
	enc := DetectEncoding(content)
	return EncodingInfo{
		Encoding:   enc,
		LineEnding: DetectLineEnding(content),
		HasBOM:     enc.HasBOM(),
	}
}
