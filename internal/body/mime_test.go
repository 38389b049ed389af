package body

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTextSimplePlain(t *testing.T) {
	raw := []byte("From: a@example.com\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		"hello world\r\n")
	parts, err := ExtractText(raw)
	require.NoError(t, err)
	assert.Equal(t, "hello world\r\n", parts.Plain)
	assert.Empty(t, parts.HTML)
}

func TestExtractTextMultipartAlternative(t *testing.T) {
	htmlSrc := "<p>Héllo</p>"
	b64 := base64.StdEncoding.EncodeToString([]byte(htmlSrc))
	// Fold the base64 to exercise line-break stripping in the decoder.
	folded := b64[:8] + "\r\n" + b64[8:]

	raw := []byte("MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/alternative; boundary=\"bnd42\"\r\n" +
		"\r\n" +
		"--bnd42\r\n" +
		"Content-Type: text/plain; charset=windows-1255\r\n" +
		"Content-Transfer-Encoding: quoted-printable\r\n" +
		"\r\n" +
		"=F9=EC=E5=ED\r\n" +
		"--bnd42\r\n" +
		"Content-Type: text/html; charset=utf-8\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		folded + "\r\n" +
		"--bnd42--\r\n")

	parts, err := ExtractText(raw)
	require.NoError(t, err)
	assert.Equal(t, "שלום", parts.Plain)
	assert.Equal(t, htmlSrc, parts.HTML)
}

func TestExtractTextSkipsAttachments(t *testing.T) {
	raw := []byte("MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
		"\r\n" +
		"--outer\r\n" +
		"Content-Type: application/pdf\r\n" +
		"Content-Transfer-Encoding: base64\r\n" +
		"\r\n" +
		"JVBERi0=\r\n" +
		"--outer\r\n" +
		"Content-Type: text/plain; charset=us-ascii\r\n" +
		"\r\n" +
		"see attachment\r\n" +
		"--outer--\r\n")

	parts, err := ExtractText(raw)
	require.NoError(t, err)
	assert.Equal(t, "see attachment", parts.Plain)
}

func TestExtractTextBadMessage(t *testing.T) {
	_, err := ExtractText([]byte("not a mime message"))
	assert.Error(t, err)
}

func TestDecodeCharset(t *testing.T) {
	tests := []struct {
		name  string
		label string
		raw   []byte
		want  string
	}{
		{"UTF8Passthrough", "utf-8", []byte("plain"), "plain"},
		{"UTF8BOMStripped", "", []byte{0xEF, 0xBB, 0xBF, 'h', 'i'}, "hi"},
		{"Windows1255", "windows-1255", []byte{0xF9, 0xEC, 0xE5, 0xED}, "שלום"},
		{"ISO8859_8", "iso-8859-8", []byte{0xE0}, "א"},
		{"ISO8859_8I", "iso-8859-8-i", []byte{0xE0}, "א"},
		{"Windows1252", "windows-1252", []byte{0x93, 'q', 0x94}, "“q”"},
		{"UTF16BOM", "utf-16", []byte{0xFF, 0xFE, 0x41, 0x00}, "A"},
		{"UTF16BE", "utf-16be", []byte{0x00, 0x42}, "B"},
		{"UnknownFallsBackTo1252", "x-no-such-charset", []byte{0x93}, "“"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeCharset(tt.raw, tt.label))
		})
	}
}

func TestStripTags(t *testing.T) {
	html := `<html><head><style>p{color:red}</style></head>` +
		`<body><p>First &amp; foremost</p><div>Second</div>` +
		`<script>alert("x")</script>line<br>break</body></html>`
	got := StripTags(html)
	assert.Equal(t, "First & foremost\nSecond\nline\nbreak", got)
}

func TestSynthesizeMIMEDeterministic(t *testing.T) {
	src := &Source{
		Plain:   "hello",
		HTML:    "<p>hello</p>",
		From:    "alice@example.com",
		To:      "bob@example.com",
		Subject: "greetings",
	}
	first := SynthesizeMIME(src)
	second := SynthesizeMIME(src)
	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestSynthesizeMIMERoundTrips(t *testing.T) {
	src := &Source{
		Plain:   "hello\nworld",
		HTML:    "<p>hello world</p>",
		From:    "alice@example.com",
		To:      "bob@example.com",
		Subject: "greetings",
	}
	raw := SynthesizeMIME(src)
	parts, err := ExtractText(raw)
	require.NoError(t, err)
	assert.Equal(t, "hello\r\nworld", parts.Plain)
	assert.Equal(t, "<p>hello world</p>", parts.HTML)
}

func TestSynthesizeMIMESinglePart(t *testing.T) {
	src := &Source{Plain: "only text", From: "a@example.com"}
	raw := SynthesizeMIME(src)
	parts, err := ExtractText(raw)
	require.NoError(t, err)
	assert.Equal(t, "only text\r\n", parts.Plain)
	assert.Empty(t, parts.HTML)
}

func TestSynthesizeMIMEEmptySource(t *testing.T) {
	assert.Nil(t, SynthesizeMIME(&Source{}))
}
