package vfs

import (
	"bytes"
	"testing"
)

func TestDetectEncoding(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    Encoding
	}{
		{"empty", []byte{}, EncodingUTF8},
		{"ASCII", []byte("Hello, World!"), EncodingASCII},
		{"UTF-8", []byte("Hello, 世界!"), EncodingUTF8},
		{"UTF-8 BOM", append([]byte{0xEF, 0xBB, 0xBF}, "Hello"...), EncodingUTF8BOM},
		{"UTF-16 LE BOM", []byte{0xFF, 0xFE, 0x48, 0x00}, EncodingUTF16LE},
		{"UTF-16 BE BOM", []byte{0xFE, 0xFF, 0x00, 0x48}, EncodingUTF16BE},
		{"Latin-1", []byte{0x80, 0x90, 0xA0}, EncodingLatin1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectEncoding(tt.content); got != tt.want {
				t.Errorf("DetectEncoding() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectLineEnding(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    LineEnding
	}{
		{"empty", "", LineEndingLF},
		{"no newlines", "single line", LineEndingLF},
		{"LF", "a\nb\nc", LineEndingLF},
		{"CRLF", "a\r\nb\r\n", LineEndingCRLF},
		{"CR", "a\rb\r", LineEndingCR},
		{"mixed", "a\r\nb\nc", LineEndingMixed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLineEnding([]byte(tt.content)); got != tt.want {
				t.Errorf("DetectLineEnding() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBOMRoundTrip(t *testing.T) {
	withBOM := append([]byte{0xEF, 0xBB, 0xBF}, "text"...)

	stripped, enc := StripBOM(withBOM)
	if enc != EncodingUTF8BOM || string(stripped) != "text" {
		t.Fatalf("StripBOM = %q, %v", stripped, enc)
	}
	if got := AddBOM(stripped, enc); !bytes.Equal(got, withBOM) {
		t.Errorf("AddBOM = %v, want %v", got, withBOM)
	}
	if got := AddBOM(withBOM, enc); !bytes.Equal(got, withBOM) {
		t.Error("AddBOM should not add a second BOM")
	}
	if got := AddBOM([]byte("x"), EncodingUTF8); string(got) != "x" {
		t.Errorf("AddBOM without BOM encoding = %q", got)
	}
}

func TestApplyLineEnding(t *testing.T) {
	tests := []struct {
		ending LineEnding
		want   string
	}{
		{LineEndingLF, "a\nb\n"},
		{LineEndingCRLF, "a\r\nb\r\n"},
		{LineEndingCR, "a\rb\r"},
		{LineEndingMixed, "a\nb\n"},
	}
	for _, tt := range tests {
		if got := string(ApplyLineEnding([]byte("a\nb\n"), tt.ending)); got != tt.want {
			t.Errorf("ApplyLineEnding(%v) = %q, want %q", tt.ending, got, tt.want)
		}
	}
}

func TestIsBinary(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		want    bool
	}{
		{"empty", nil, false},
		{"text", []byte("hello\tworld\r\n"), false},
		{"null byte", []byte("abc\x00def"), true},
		{"control heavy", []byte("\x01\x02\x03\x04abc"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBinary(tt.content); got != tt.want {
				t.Errorf("IsBinary() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectEncodingInfo(t *testing.T) {
	info := DetectEncodingInfo(append([]byte{0xEF, 0xBB, 0xBF}, "a\r\nb\r\n"...))
	if !info.HasBOM || info.Encoding != EncodingUTF8BOM || info.LineEnding != LineEndingCRLF {
		t.Errorf("DetectEncodingInfo = %+v", info)
	}
}

func TestDecodeEncode(t *testing.T) {
	tests := []struct {
		name    string
		enc     Encoding
		encoded []byte
		text    string
	}{
		{"utf-8", EncodingUTF8, []byte("h\u00e9"), "h\u00e9"},
		{"latin-1", EncodingLatin1, []byte{'h', 0xE9}, "h\u00e9"},
		{"utf-16le", EncodingUTF16LE, []byte{'h', 0, 0xE9, 0}, "h\u00e9"},
		{"utf-16be", EncodingUTF16BE, []byte{0, 'h', 0, 0xE9}, "h\u00e9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.encoded, tt.enc)
			if err != nil || string(got) != tt.text {
				t.Fatalf("Decode = %q, %v; want %q", got, err, tt.text)
			}
			back, err := Encode(got, tt.enc)
			if err != nil || !bytes.Equal(back, tt.encoded) {
				t.Errorf("Encode = %v, %v; want %v", back, err, tt.encoded)
			}
		})
	}
}

func TestEncodeUnrepresentable(t *testing.T) {
	if _, err := Encode([]byte("\u4e16"), EncodingLatin1); err == nil {
		t.Error("Latin-1 cannot hold CJK text")
	}
}

func TestDetectEncodingInfoUTF16(t *testing.T) {
	content := []byte{0xFF, 0xFE, 'a', 0, '\r', 0, '\n', 0, 'b', 0}
	info := DetectEncodingInfo(content)
	if info.IsBinary || info.Encoding != EncodingUTF16LE || info.LineEnding != LineEndingCRLF {
		t.Errorf("DetectEncodingInfo = %+v", info)
	}
}
