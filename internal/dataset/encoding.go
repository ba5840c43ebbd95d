package dataset

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names the character set of an input file.
type Encoding string

const (
	// EncodingAuto picks UTF-8 (with or without BOM) when the whole file is
	// valid UTF-8 and Latin-1 otherwise.
	EncodingAuto   Encoding = "auto"
	EncodingUTF8   Encoding = "utf-8"
	EncodingLatin1 Encoding = "latin1"
)

// ParseEncoding accepts the CLI spellings of an encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return EncodingAuto, nil
	case "utf-8", "utf8", "utf-8-sig":
		return EncodingUTF8, nil
	case "latin1", "latin-1", "iso-8859-1":
		return EncodingLatin1, nil
	}
	return "", fmt.Errorf("unknown encoding %q (want auto, utf-8 or latin1)", s)
}

// decode wraps r so it yields UTF-8 text. It returns the encoding actually used.
func decode(r io.Reader, enc Encoding) (io.Reader, Encoding, error) {
	switch enc {
	case EncodingUTF8:
		return unicode.UTF8BOM.NewDecoder().Reader(r), EncodingUTF8, nil
	case EncodingLatin1:
		return charmap.ISO8859_1.NewDecoder().Reader(r), EncodingLatin1, nil
	case EncodingAuto, "":
	default:
		return nil, "", fmt.Errorf("unknown encoding %q", enc)
	}

	// The whole file is checked: one invalid sequence anywhere means Latin-1.
	// A BOM is itself valid UTF-8 and is stripped by the decoder.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", err
	}
	if utf8.Valid(data) {
		return unicode.UTF8BOM.NewDecoder().Reader(bytes.NewReader(data)), EncodingUTF8, nil
	}
	return charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(data)), EncodingLatin1, nil
}
