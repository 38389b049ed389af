package wbxml

import (
	"strconv"
)

// Control bytes defined by the WBXML 1.3 specification.
const (
	tokenSwitchPage byte = 0x00
	tokenEnd        byte = 0x01
	tokenStrI       byte = 0x03
	tokenOpaque     byte = 0xC3

	// tagHasContent is set on a tag byte when the element carries
	// children or an inline string.
	tagHasContent byte = 0x40
)

// Document header emitted before the token stream: WBXML v1.3, unknown
// public identifier, UTF-8 (0x6A), empty string table.
var documentHeader = []byte{0x03, 0x01, 0x6A, 0x00}

// Encoder builds a WBXML document. It tracks the active codepage and only
// emits SWITCH_PAGE when a tag from a different page is written, matching
// the byte-exact output ActiveSync clients expect.
//
// The zero value is not usable; call NewEncoder, which writes the document
// header.
type Encoder struct {
	buf  []byte
	page byte
	// depth counts open elements so Bytes can reject unbalanced documents.
	depth int
}

// NewEncoder returns an Encoder with the WBXML header already written and
// codepage 0 active.
func NewEncoder() *Encoder {
	e := &Encoder{buf: make([]byte, 0, 256)}
	e.buf = append(e.buf, documentHeader...)
	return e
}

// switchPage emits SWITCH_PAGE if page differs from the active codepage.
func (e *Encoder) switchPage(page byte) {
	if page == e.page {
		return
	}
	e.buf = append(e.buf, tokenSwitchPage, page)
	e.page = page
}

// StartTag opens an element that will carry content. Close it with EndTag.
func (e *Encoder) StartTag(page, tag byte) {
	e.switchPage(page)
	e.buf = append(e.buf, tag|tagHasContent)
	e.depth++
}

// EmptyTag writes a contentless element such as <MoreAvailable/>.
// No EndTag is required.
func (e *Encoder) EmptyTag(page, tag byte) {
	e.switchPage(page)
	e.buf = append(e.buf, tag)
}

// EndTag closes the innermost open element.
func (e *Encoder) EndTag() {
	e.buf = append(e.buf, tokenEnd)
	e.depth--
}

// WriteString writes an inline STR_I string: UTF-8 bytes followed by NUL.
func (e *Encoder) WriteString(s string) {
	e.buf = append(e.buf, tokenStrI)
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0x00)
}

// WriteOpaque writes an OPAQUE run: 0xC3, mb_u32 length, raw bytes. Used
// for MIME (Type=4) body data, which may contain NUL bytes.
func (e *Encoder) WriteOpaque(b []byte) {
	e.buf = append(e.buf, tokenOpaque)
	e.buf = appendMBUint32(e.buf, uint32(len(b)))
	e.buf = append(e.buf, b...)
}

// TextTag writes a complete <tag>s</tag> element.
func (e *Encoder) TextTag(page, tag byte, s string) {
	e.StartTag(page, tag)
	e.WriteString(s)
	e.EndTag()
}

// IntTag writes a complete <tag>n</tag> element with a decimal value.
func (e *Encoder) IntTag(page, tag byte, n int) {
	e.TextTag(page, tag, strconv.Itoa(n))
}

// Len returns the number of bytes written so far, including the header.
func (e *Encoder) Len() int {
	return len(e.buf)
}

// Bytes returns the encoded document. It panics if elements are left open;
// an unbalanced document is a programming error that would otherwise be
// silently discarded by the client.
func (e *Encoder) Bytes() []byte {
	if e.depth != 0 {
		panic("wbxml: unbalanced document: " + strconv.Itoa(e.depth) + " element(s) left open")
	}
	return e.buf
}

// appendMBUint32 appends the WBXML multi-byte uint32 encoding of v:
// big-endian groups of 7 bits, continuation bit 0x80 on all but the last.
func appendMBUint32(dst []byte, v uint32) []byte {
	var tmp [5]byte
	i := len(tmp)
	i--
	tmp[i] = byte(v & 0x7F)
	v >>= 7
	for v > 0 {
		i--
		tmp[i] = byte(v&0x7F) | 0x80
		v >>= 7
	}
	return append(dst, tmp[i:]...)
}
