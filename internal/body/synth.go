package body

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime/quotedprintable"
	"strings"
	"time"
)

// SynthesizeMIME builds an RFC 5322 message for an item that has no stored
// MIME form. The boundary is derived from the item content so repeated
// calls for the same item produce byte-identical output.
func SynthesizeMIME(src *Source) []byte {
	if src.Plain == "" && src.HTML == "" {
		return nil
	}

	boundary := deriveBoundary(src)
	var buf bytes.Buffer

	writeHeader(&buf, "From", src.From)
	writeHeader(&buf, "To", src.To)
	writeHeader(&buf, "Subject", src.Subject)
	if !src.Date.IsZero() {
		writeHeader(&buf, "Date", src.Date.UTC().Format(time.RFC1123Z))
	}
	if src.MessageID != "" {
		writeHeader(&buf, "Message-ID", src.MessageID)
	}
	writeHeader(&buf, "MIME-Version", "1.0")

	switch {
	case src.Plain != "" && src.HTML != "":
		writeHeader(&buf, "Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", boundary))
		buf.WriteString("\r\n")
		writeTextPart(&buf, boundary, "text/plain", src.Plain)
		writeTextPart(&buf, boundary, "text/html", src.HTML)
		fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	case src.HTML != "":
		writeSinglePart(&buf, "text/html", src.HTML)
	default:
		writeSinglePart(&buf, "text/plain", src.Plain)
	}

	return buf.Bytes()
}

// deriveBoundary hashes the item content into a boundary token. Stable
// across calls, and never collides with body text in practice.
func deriveBoundary(src *Source) string {
	h := sha256.New()
	h.Write([]byte(src.MessageID))
	h.Write([]byte{0})
	h.Write([]byte(src.Plain))
	h.Write([]byte{0})
	h.Write([]byte(src.HTML))
	return "=_" + hex.EncodeToString(h.Sum(nil))[:24]
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(buf, "%s: %s\r\n", name, value)
}

func writeTextPart(buf *bytes.Buffer, boundary, mediaType, text string) {
	fmt.Fprintf(buf, "--%s\r\n", boundary)
	fmt.Fprintf(buf, "Content-Type: %s; charset=utf-8\r\n", mediaType)
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	writeQuotedPrintable(buf, text)
	buf.WriteString("\r\n")
}

func writeSinglePart(buf *bytes.Buffer, mediaType, text string) {
	fmt.Fprintf(buf, "Content-Type: %s; charset=utf-8\r\n", mediaType)
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	writeQuotedPrintable(buf, text)
	buf.WriteString("\r\n")
}

func writeQuotedPrintable(buf *bytes.Buffer, text string) {
	// Encode with CRLF line endings so the message is wire-legal.
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\n", "\r\n")
	w := quotedprintable.NewWriter(buf)
	_, _ = w.Write([]byte(normalized))
	_ = w.Close()
}
