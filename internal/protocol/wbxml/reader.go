package wbxml

import (
	"errors"
	"fmt"
)

// ErrShortRead is returned when the document ends mid-token.
var ErrShortRead = errors.New("wbxml: short read")

// ErrBadHeader is returned when the document does not start with a WBXML
// header this decoder understands.
var ErrBadHeader = errors.New("wbxml: bad header")

// TokenKind discriminates the events produced by Decoder.Next.
type TokenKind int

const (
	// TokenTag is an element start. Page/Code identify the element;
	// HasContent reports whether an END token will follow its content.
	TokenTag TokenKind = iota
	// TokenEnd closes the innermost open element.
	TokenEnd
	// TokenString is an inline STR_I string.
	TokenString
	// TokenOpaque is an OPAQUE byte run.
	TokenOpaque
)

// Token is a single decoded WBXML event.
type Token struct {
	Kind       TokenKind
	Page       byte
	Code       byte
	HasContent bool
	Text       string
	Data       []byte
}

// Decoder is a targeted WBXML tokenizer. It recognizes only the control
// bytes ActiveSync requests use (SWITCH_PAGE, END, STR_I, OPAQUE and plain
// tags); anything else surfaces as an error. Unknown tags are not an
// error — callers skip them structurally with Skip.
//
// The decoder accumulates the first error; after that Next reports no
// more tokens and Err returns the cause.
type Decoder struct {
	data []byte
	pos  int
	page byte
	err  error
}

// NewDecoder parses the WBXML document header and positions the decoder
// at the first body token. The version byte must be 0x01–0x03, the
// charset must be UTF-8 and the string table must be consumable.
func NewDecoder(data []byte) (*Decoder, error) {
	d := &Decoder{data: data}
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: %d byte document", ErrBadHeader, len(data))
	}
	version := d.readByte()
	if version > 0x03 {
		return nil, fmt.Errorf("%w: unsupported version 0x%02x", ErrBadHeader, version)
	}
	d.readMBUint32() // public identifier; 0x01 = unknown
	charset := d.readMBUint32()
	if charset != 0x6A && charset != 0 {
		return nil, fmt.Errorf("%w: unsupported charset 0x%02x", ErrBadHeader, charset)
	}
	tableLen := d.readMBUint32()
	if int(tableLen) > len(d.data)-d.pos {
		return nil, fmt.Errorf("%w: string table overruns document", ErrBadHeader)
	}
	d.pos += int(tableLen)
	if d.err != nil {
		return nil, d.err
	}
	return d, nil
}

// Err returns the first error encountered, if any.
func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) readByte() byte {
	if d.err != nil {
		return 0
	}
	if d.pos >= len(d.data) {
		d.err = fmt.Errorf("%w: need 1 byte at offset %d", ErrShortRead, d.pos)
		return 0
	}
	b := d.data[d.pos]
	d.pos++
	return b
}

// readMBUint32 reads a multi-byte uint32 (big-endian base 128).
func (d *Decoder) readMBUint32() uint32 {
	var v uint32
	for i := 0; i < 5; i++ {
		b := d.readByte()
		if d.err != nil {
			return 0
		}
		v = v<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return v
		}
	}
	d.err = fmt.Errorf("wbxml: mb_u32 longer than 5 bytes at offset %d", d.pos)
	return 0
}

// readString reads the remainder of a STR_I inline string (the 0x03 has
// already been consumed).
func (d *Decoder) readString() string {
	start := d.pos
	for d.pos < len(d.data) {
		if d.data[d.pos] == 0x00 {
			s := string(d.data[start:d.pos])
			d.pos++
			return s
		}
		d.pos++
	}
	d.err = fmt.Errorf("%w: unterminated string at offset %d", ErrShortRead, start)
	return ""
}

// Next returns the next token. The second result is false at end of
// document or after an error; check Err to distinguish.
func (d *Decoder) Next() (Token, bool) {
	for {
		if d.err != nil || d.pos >= len(d.data) {
			return Token{}, false
		}
		b := d.readByte()
		switch b {
		case tokenSwitchPage:
			d.page = d.readByte()
			continue
		case tokenEnd:
			return Token{Kind: TokenEnd}, d.err == nil
		case tokenStrI:
			s := d.readString()
			return Token{Kind: TokenString, Text: s}, d.err == nil
		case tokenOpaque:
			n := d.readMBUint32()
			if d.err != nil {
				return Token{}, false
			}
			if int(n) > len(d.data)-d.pos {
				d.err = fmt.Errorf("%w: opaque run of %d bytes at offset %d", ErrShortRead, n, d.pos)
				return Token{}, false
			}
			data := d.data[d.pos : d.pos+int(n)]
			d.pos += int(n)
			return Token{Kind: TokenOpaque, Data: data}, true
		default:
			// Attribute tokens (bit 7) never appear in ActiveSync
			// requests; reject them rather than misparse.
			if b&0x80 != 0 {
				d.err = fmt.Errorf("wbxml: unexpected attribute token 0x%02x at offset %d", b, d.pos-1)
				return Token{}, false
			}
			return Token{
				Kind:       TokenTag,
				Page:       d.page,
				Code:       b &^ tagHasContent,
				HasContent: b&tagHasContent != 0,
			}, true
		}
	}
}

// Skip consumes the content of the element opened by tag, including its
// matching END. It is a no-op for contentless tags. Nested unknown
// elements are skipped recursively.
func (d *Decoder) Skip(tag Token) {
	if tag.Kind != TokenTag || !tag.HasContent {
		return
	}
	depth := 1
	for depth > 0 {
		tok, ok := d.Next()
		if !ok {
			if d.err == nil {
				d.err = fmt.Errorf("%w: unterminated element", ErrShortRead)
			}
			return
		}
		switch tok.Kind {
		case TokenTag:
			if tok.HasContent {
				depth++
			}
		case TokenEnd:
			depth--
		}
	}
}

// TextContent consumes the content of the element opened by tag and
// returns its concatenated inline text. Child elements are skipped. The
// matching END is consumed. Contentless tags yield "".
func (d *Decoder) TextContent(tag Token) string {
	if tag.Kind != TokenTag || !tag.HasContent {
		return ""
	}
	var text string
	for {
		tok, ok := d.Next()
		if !ok {
			if d.err == nil {
				d.err = fmt.Errorf("%w: unterminated element", ErrShortRead)
			}
			return text
		}
		switch tok.Kind {
		case TokenString:
			text += tok.Text
		case TokenOpaque:
			text += string(tok.Data)
		case TokenTag:
			d.Skip(tok)
		case TokenEnd:
			return text
		}
	}
}
