package body

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmail/easgate/internal/protocol/eas"
)

func intp(v int) *int { return &v }

func TestBuildHonorsClientPreference(t *testing.T) {
	src := &Source{Plain: "plain text", HTML: "<p>rich</p>"}

	p, err := Build(src, []eas.BodyPreference{{Type: eas.BodyTypePlain}}, false)
	require.NoError(t, err)
	assert.Equal(t, eas.BodyTypePlain, p.Type)
	assert.Equal(t, "plain text", string(p.Data))
	assert.False(t, p.Truncated)
}

func TestBuildSyncOrderPrefersHTML(t *testing.T) {
	src := &Source{Plain: "plain", HTML: "<b>html</b>"}
	p, err := Build(src, nil, false)
	require.NoError(t, err)
	assert.Equal(t, eas.BodyTypeHTML, p.Type)
	assert.Equal(t, "<b>html</b>", string(p.Data))
}

func TestBuildFetchOrderPrefersMIME(t *testing.T) {
	raw := []byte("MIME-Version: 1.0\r\nContent-Type: text/plain\r\n\r\nhello\r\n")
	src := &Source{Plain: "hello", MIME: raw}
	p, err := Build(src, nil, true)
	require.NoError(t, err)
	assert.Equal(t, eas.BodyTypeMIME, p.Type)
	assert.Equal(t, raw, p.Data)
	assert.Equal(t, "message/rfc822", p.ContentType)
}

func TestBuildNoContent(t *testing.T) {
	_, err := Build(&Source{}, nil, false)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestBuildUnsatisfiablePreferenceFallsBack(t *testing.T) {
	// RTF is never served; the server falls back to its own order.
	src := &Source{Plain: "only plain"}
	p, err := Build(src, []eas.BodyPreference{{Type: eas.BodyTypeRTF}}, false)
	require.NoError(t, err)
	assert.Equal(t, eas.BodyTypePlain, p.Type)
}

func TestMergePreferencesLargestTruncationWins(t *testing.T) {
	merged := mergePreferences([]eas.BodyPreference{
		{Type: eas.BodyTypeHTML, TruncationSize: intp(500)},
		{Type: eas.BodyTypeHTML, TruncationSize: intp(2000)},
		{Type: eas.BodyTypePlain, TruncationSize: intp(100)},
		{Type: eas.BodyTypePlain}, // unlimited beats any number
	})
	require.Len(t, merged, 2)
	assert.Equal(t, eas.BodyTypeHTML, merged[0].Type)
	require.NotNil(t, merged[0].TruncationSize)
	assert.Equal(t, 2000, *merged[0].TruncationSize)
	assert.Equal(t, eas.BodyTypePlain, merged[1].Type)
	assert.Nil(t, merged[1].TruncationSize)
}

func TestBuildTruncationReportsFullSize(t *testing.T) {
	src := &Source{Plain: strings.Repeat("x", 100)}
	p, err := Build(src, []eas.BodyPreference{{Type: eas.BodyTypePlain, TruncationSize: intp(10)}}, false)
	require.NoError(t, err)
	assert.True(t, p.Truncated)
	assert.Len(t, p.Data, 10)
	assert.Equal(t, 100, p.EstimatedSize)
}

func TestBuildTruncationUTF8Safe(t *testing.T) {
	// "héllo": é is two bytes; a cut at byte 2 must back up to "h".
	src := &Source{Plain: "héllo"}
	p, err := Build(src, []eas.BodyPreference{{Type: eas.BodyTypePlain, TruncationSize: intp(2)}}, false)
	require.NoError(t, err)
	assert.Equal(t, "h", string(p.Data))
	assert.True(t, p.Truncated)
	assert.Equal(t, len("héllo"), p.EstimatedSize)
}

func TestBuildEstimatedSizeBeforeNewlineNormalization(t *testing.T) {
	src := &Source{Plain: "a\r\nb"}
	p, err := Build(src, []eas.BodyPreference{{Type: eas.BodyTypePlain}}, false)
	require.NoError(t, err)
	assert.Equal(t, 4, p.EstimatedSize)
	assert.Equal(t, "a\nb", string(p.Data))
	assert.False(t, p.Truncated)
}

func TestBuildTruncateThenNormalize(t *testing.T) {
	// The 3-byte cut lands after CRLF; normalization shrinks the emitted
	// prefix but the cut itself is taken on the wire form.
	src := &Source{Plain: "a\r\nb"}
	p, err := Build(src, []eas.BodyPreference{{Type: eas.BodyTypePlain, TruncationSize: intp(3)}}, false)
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(p.Data))
	assert.True(t, p.Truncated)
	assert.Equal(t, 4, p.EstimatedSize)
}

func TestBuildPlainFromHTMLStripsTags(t *testing.T) {
	src := &Source{HTML: "<html><body><p>Hello</p><p>World</p></body></html>"}
	p, err := Build(src, []eas.BodyPreference{{Type: eas.BodyTypePlain}}, false)
	require.NoError(t, err)
	assert.Equal(t, eas.BodyTypePlain, p.Type)
	assert.Equal(t, "Hello\nWorld", string(p.Data))
}

func TestBuildMIMERespectsTruncation(t *testing.T) {
	raw := []byte("MIME-Version: 1.0\r\nContent-Type: text/plain\r\n\r\n" + strings.Repeat("y", 200))
	src := &Source{MIME: raw}
	p, err := Build(src, []eas.BodyPreference{{Type: eas.BodyTypeMIME, TruncationSize: intp(50)}}, false)
	require.NoError(t, err)
	assert.True(t, p.Truncated)
	assert.Len(t, p.Data, 50)
	assert.Equal(t, len(raw), p.EstimatedSize)
	assert.Equal(t, raw[:50], p.Data)
}

func TestNativeType(t *testing.T) {
	assert.Equal(t, 2, (&Source{HTML: "<p>x</p>", Plain: "x"}).NativeType())
	assert.Equal(t, 1, (&Source{Plain: "x"}).NativeType())
	assert.Equal(t, 4, (&Source{MIME: []byte("raw")}).NativeType())
	assert.Equal(t, 1, (&Source{}).NativeType())
}
