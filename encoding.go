package contentkit

import (
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// Supported encoding names besides WHATWG labels.
const (
	EncodingUTF8   = "utf8"
	EncodingBase64 = "base64"
)

// NormalizeEncoding maps an encoding label to its canonical name.
// Empty and UTF-8 aliases normalize to EncodingUTF8.
func NormalizeEncoding(enc string) string {
	enc = strings.ToLower(strings.TrimSpace(enc))
	switch enc {
	case "", "utf8", "utf-8":
		return EncodingUTF8
	default:
		return enc
	}
}

// DecodeContent converts stored bytes to a content string.
func DecodeContent(raw []byte, enc string) (string, error) {
	switch enc = NormalizeEncoding(enc); enc {
	case EncodingUTF8:
		return string(raw), nil
	case EncodingBase64:
		return base64.StdEncoding.EncodeToString(raw), nil
	}

	e, err := htmlindex.Get(enc)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedEncoding, enc)
	}
	out, err := e.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncodeContent converts a content string to the bytes to store.
func EncodeContent(content string, enc string) ([]byte, error) {
	switch enc = NormalizeEncoding(enc); enc {
	case EncodingUTF8:
		return []byte(content), nil
	case EncodingBase64:
		return base64.StdEncoding.DecodeString(content)
	}

	e, err := htmlindex.Get(enc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEncoding, enc)
	}
	return e.NewEncoder().Bytes([]byte(content))
}

// WriteEncodingFor picks the encoding a write should use given the encoding
// of the existing entry.
func WriteEncodingFor(existing string, opts *WriteOptions) string {
	requested := opts.WriteEncoding()
	switch {
	case requested == "":
		return NormalizeEncoding(existing)
	case existing == "" || (opts != nil && opts.OverwriteEncoding):
		return NormalizeEncoding(requested)
	default:
		return NormalizeEncoding(existing)
	}
}
