package body

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
)

// TextParts holds the renderable text extracted from a MIME message.
type TextParts struct {
	Plain string
	HTML  string
}

// ExtractText walks a stored RFC 5322 message and pulls out the first
// text/plain and text/html parts, decoded to UTF-8. Multipart containers
// are walked depth-first; attachments and non-text parts are skipped.
func ExtractText(raw []byte) (*TextParts, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("body: parse message: %w", err)
	}

	var parts TextParts
	contentType := msg.Header.Get("Content-Type")
	encoding := msg.Header.Get("Content-Transfer-Encoding")
	if err := walkPart(msg.Body, contentType, encoding, &parts, 0); err != nil {
		return nil, err
	}
	return &parts, nil
}

// maxMIMEDepth bounds nesting so a malformed message cannot recurse
// without limit.
const maxMIMEDepth = 10

func walkPart(r io.Reader, contentType, transferEncoding string, out *TextParts, depth int) error {
	if depth > maxMIMEDepth {
		return nil
	}
	if contentType == "" {
		contentType = "text/plain; charset=us-ascii"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Treat an unparsable type as plain text rather than fail the item.
		mediaType, params = "text/plain", nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return fmt.Errorf("body: multipart without boundary")
		}
		mr := multipart.NewReader(r, boundary)
		for {
			p, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("body: read part: %w", err)
			}
			childType := p.Header.Get("Content-Type")
			childEnc := p.Header.Get("Content-Transfer-Encoding")
			if err := walkPart(p, childType, childEnc, out, depth+1); err != nil {
				return err
			}
			if out.Plain != "" && out.HTML != "" {
				return nil
			}
		}
	}

	switch mediaType {
	case "text/plain":
		if out.Plain != "" {
			return nil
		}
	case "text/html":
		if out.HTML != "" {
			return nil
		}
	default:
		// Attachment or non-text part.
		return nil
	}

	decoded, err := io.ReadAll(decodeTransfer(r, transferEncoding))
	if err != nil {
		return fmt.Errorf("body: decode part: %w", err)
	}
	text := decodeCharset(decoded, params["charset"])
	if mediaType == "text/plain" {
		out.Plain = text
	} else {
		out.HTML = text
	}
	return nil
}

// decodeTransfer wraps r with the Content-Transfer-Encoding decoder.
// 7bit, 8bit, binary and unknown values pass through unchanged.
func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, &base64CleanReader{r: r})
	default:
		return r
	}
}

// base64CleanReader strips CR and LF so folded base64 bodies decode
// without configuring a lax decoder.
type base64CleanReader struct {
	r   io.Reader
	buf []byte
}

func (c *base64CleanReader) Read(p []byte) (int, error) {
	if c.buf == nil {
		c.buf = make([]byte, 4096)
	}
	for {
		n, err := c.r.Read(c.buf)
		if n == 0 {
			return 0, err
		}
		out := 0
		for _, b := range c.buf[:n] {
			if b == '\r' || b == '\n' {
				continue
			}
			p[out] = b
			out++
			if out == len(p) {
				break
			}
		}
		if out > 0 {
			return out, nil
		}
		if err != nil {
			return 0, err
		}
	}
}
