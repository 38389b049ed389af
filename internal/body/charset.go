package body

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// aliasEncodings covers names that appear in real mail but are missing or
// surprising in the IANA index. Keys are lower-case.
var aliasEncodings = map[string]encoding.Encoding{
	"cp1255":         charmap.Windows1255,
	"windows-1255":   charmap.Windows1255,
	"iso-8859-8-i":   charmap.ISO8859_8,
	"iso_8859-8":     charmap.ISO8859_8,
	"cp1252":         charmap.Windows1252,
	"ansi_x3.4-1968": encoding.Nop, // ASCII; pass bytes through
	"us-ascii":       encoding.Nop,
	"utf8":           unicode.UTF8,
	"utf-16":         unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16le":       unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be":       unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"utf-32":         utf32.UTF32(utf32.LittleEndian, utf32.UseBOM),
	"utf-32le":       utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM),
	"utf-32be":       utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
}

// lookupEncoding resolves a charset label to an encoding. The empty label
// and utf-8 return nil, meaning "already UTF-8".
func lookupEncoding(label string) (encoding.Encoding, error) {
	name := strings.ToLower(strings.TrimSpace(label))
	if name == "" || name == "utf-8" {
		return nil, nil
	}
	if enc, ok := aliasEncodings[name]; ok {
		if enc == encoding.Nop {
			return nil, nil
		}
		return enc, nil
	}
	enc, err := ianaindex.MIME.Encoding(name)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("body: unknown charset %q", label)
	}
	return enc, nil
}

// decodeCharset converts raw part bytes in the declared charset to UTF-8.
// Unknown charsets fall back to Windows-1252, the superset most mislabeled
// 8-bit mail actually uses.
func decodeCharset(raw []byte, label string) string {
	enc, err := lookupEncoding(label)
	if err != nil {
		enc = charmap.Windows1252
	}
	if enc == nil {
		// Already UTF-8; strip a BOM if one leaked through.
		return string(bytes.TrimPrefix(raw, []byte{0xEF, 0xBB, 0xBF}))
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		// Best effort: hand back the raw bytes rather than lose the part.
		return string(raw)
	}
	return string(decoded)
}
