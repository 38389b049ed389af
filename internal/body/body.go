// Package body implements the ActiveSync body pipeline: choosing a body
// type against the client's BodyPreference set, extracting text from
// stored MIME, transcoding charsets to UTF-8, synthesizing MIME when none
// is stored, and truncating without splitting UTF-8 code points.
//
// EstimatedDataSize always reports the untruncated length of the selected
// body in its wire encoding ([MS-ASAIRS] 2.2.2.17); reporting the
// truncated size breaks iOS Mail.
package body

import (
	"strings"
	"time"
)

// Payload is the assembled wire body for one item: the bytes to emit
// under <Data>, plus the metadata the <Body> envelope carries.
type Payload struct {
	// Type is the selected body type (1 plain, 2 HTML, 4 MIME).
	Type int

	// Data is the (possibly truncated) wire content. UTF-8 text for
	// types 1 and 2, raw message bytes for type 4.
	Data []byte

	// EstimatedSize is the byte length of the full untruncated body in
	// its wire encoding, regardless of truncation.
	EstimatedSize int

	// Truncated reports whether Data is a prefix of the full body.
	Truncated bool

	// ContentType is emitted for MIME payloads only.
	ContentType string
}

// Source is the body material available for one mail item, plus the
// headers needed to synthesize a MIME message when none is stored. Body
// fields may be empty; at least one should be populated for a useful
// payload.
type Source struct {
	Plain string
	HTML  string
	MIME  []byte

	// Header material for MIME synthesis.
	From      string
	To        string
	Subject   string
	Date      time.Time
	MessageID string
}

// NativeType reports the body type the item is naturally stored as,
// emitted as airsyncbase:NativeBodyType.
func (s *Source) NativeType() int {
	switch {
	case s.HTML != "":
		return 2
	case s.Plain != "":
		return 1
	case len(s.MIME) > 0:
		return 4
	default:
		return 1
	}
}

// truncateUTF8 returns the longest prefix of s not exceeding max bytes
// that does not split a multi-byte code point.
func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	// Back up over continuation bytes (10xxxxxx).
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}

// normalizeNewlines collapses CRLF to LF. Applied after truncation so the
// emitted prefix stays within the requested size.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
