package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmail/easgate/internal/protocol/eas"
	"github.com/veilmail/easgate/internal/protocol/wbxml"
	"github.com/veilmail/easgate/pkg/mailstore"
)

func testItem() *mailstore.Item {
	return &mailstore.Item{
		ID:         42,
		Folder:     "inbox",
		Subject:    "quarterly report",
		From:       "bob@example.com",
		To:         "alice@example.com",
		ReceivedAt: time.Date(2025, 6, 1, 12, 30, 45, 0, time.UTC),
		Read:       true,
		BodyPlain:  "see attached",
		MessageID:  "<report-1@example.com>",
	}
}

// tagRef identifies one element for order assertions.
type tagRef struct {
	page byte
	code byte
}

// tagSequence lists every element start in document order.
func tagSequence(t *testing.T, payload []byte) []tagRef {
	t.Helper()
	d, err := wbxml.NewDecoder(payload)
	require.NoError(t, err)

	var seq []tagRef
	for {
		tok, ok := d.Next()
		if !ok {
			break
		}
		if tok.Kind == wbxml.TokenTag {
			seq = append(seq, tagRef{tok.Page, tok.Code})
		}
	}
	require.NoError(t, d.Err())
	return seq
}

func TestEncodeIsDeterministic(t *testing.T) {
	batch := &Batch{
		ResponseKey:   "7",
		CollectionID:  "inbox",
		Adds:          []*mailstore.Item{testItem()},
		MoreAvailable: true,
	}

	first, err := batch.Encode()
	require.NoError(t, err)
	second, err := batch.Encode()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEncodeElementOrder(t *testing.T) {
	batch := &Batch{
		ResponseKey:   "3",
		CollectionID:  "inbox",
		Adds:          []*mailstore.Item{testItem()},
		MoreAvailable: true,
	}
	payload, err := batch.Encode()
	require.NoError(t, err)

	want := []tagRef{
		{wbxml.PageAirSync, wbxml.AirSyncSync},
		{wbxml.PageAirSync, wbxml.AirSyncCollections},
		{wbxml.PageAirSync, wbxml.AirSyncCollection},
		{wbxml.PageAirSync, wbxml.AirSyncSyncKey},
		{wbxml.PageAirSync, wbxml.AirSyncCollectionId},
		{wbxml.PageAirSync, wbxml.AirSyncClass},
		{wbxml.PageAirSync, wbxml.AirSyncStatus},
		{wbxml.PageAirSync, wbxml.AirSyncCommands},
		{wbxml.PageAirSync, wbxml.AirSyncAdd},
		{wbxml.PageAirSync, wbxml.AirSyncServerId},
		{wbxml.PageAirSync, wbxml.AirSyncApplicationData},
		{wbxml.PageEmail, wbxml.EmailSubject},
		{wbxml.PageEmail, wbxml.EmailFrom},
		{wbxml.PageEmail, wbxml.EmailTo},
		{wbxml.PageEmail, wbxml.EmailDateReceived},
		{wbxml.PageEmail, wbxml.EmailMessageClass},
		{wbxml.PageEmail, wbxml.EmailRead},
		{wbxml.PageEmail, wbxml.EmailInternetCPID},
		{wbxml.PageAirSyncBase, wbxml.BaseBody},
		{wbxml.PageAirSyncBase, wbxml.BaseType},
		{wbxml.PageAirSyncBase, wbxml.BaseEstimatedDataSize},
		{wbxml.PageAirSyncBase, wbxml.BaseTruncated},
		{wbxml.PageAirSyncBase, wbxml.BaseData},
		{wbxml.PageAirSyncBase, wbxml.BaseNativeBodyType},
		{wbxml.PageAirSync, wbxml.AirSyncMoreAvailable},
	}
	assert.Equal(t, want, tagSequence(t, payload))
}

func TestEncodeDateAndFlags(t *testing.T) {
	batch := &Batch{
		ResponseKey:  "1",
		CollectionID: "inbox",
		Adds:         []*mailstore.Item{testItem()},
	}
	payload, err := batch.Encode()
	require.NoError(t, err)

	d, err := wbxml.NewDecoder(payload)
	require.NoError(t, err)

	fields := map[tagRef]string{}
	for {
		tok, ok := d.Next()
		if !ok {
			break
		}
		if tok.Kind != wbxml.TokenTag {
			continue
		}
		switch {
		case tok.Page == wbxml.PageEmail,
			tok.Page == wbxml.PageAirSyncBase && tok.Code != wbxml.BaseBody:
			fields[tagRef{tok.Page, tok.Code}] = d.TextContent(tok)
		}
	}
	require.NoError(t, d.Err())

	assert.Equal(t, "2025-06-01T12:30:45.000Z", fields[tagRef{wbxml.PageEmail, wbxml.EmailDateReceived}])
	assert.Equal(t, "IPM.Note", fields[tagRef{wbxml.PageEmail, wbxml.EmailMessageClass}])
	assert.Equal(t, "1", fields[tagRef{wbxml.PageEmail, wbxml.EmailRead}])
	assert.Equal(t, "65001", fields[tagRef{wbxml.PageEmail, wbxml.EmailInternetCPID}])
	assert.Equal(t, "1", fields[tagRef{wbxml.PageAirSyncBase, wbxml.BaseType}], "plain text body")
	assert.Equal(t, "see attached", fields[tagRef{wbxml.PageAirSyncBase, wbxml.BaseData}])
	assert.Equal(t, "1", fields[tagRef{wbxml.PageAirSyncBase, wbxml.BaseNativeBodyType}])
}

func TestEncodeMIMEUsesOpaque(t *testing.T) {
	raw := []byte("From: bob@example.com\r\n\r\nhello\r\n")
	item := testItem()
	item.BodyPlain = ""
	item.MIMEContent = raw

	batch := &Batch{
		ResponseKey:  "1",
		CollectionID: "inbox",
		Adds:         []*mailstore.Item{item},
		Preferences:  []eas.BodyPreference{{Type: eas.BodyTypeMIME}},
	}
	payload, err := batch.Encode()
	require.NoError(t, err)

	d, err := wbxml.NewDecoder(payload)
	require.NoError(t, err)

	var opaque []byte
	var contentType string
	for {
		tok, ok := d.Next()
		if !ok {
			break
		}
		if tok.Kind != wbxml.TokenTag || tok.Page != wbxml.PageAirSyncBase {
			continue
		}
		switch tok.Code {
		case wbxml.BaseData:
			inner, ok := d.Next()
			require.True(t, ok)
			require.Equal(t, wbxml.TokenOpaque, inner.Kind, "MIME bodies travel as OPAQUE")
			opaque = inner.Data
		case wbxml.BaseContentType:
			contentType = d.TextContent(tok)
		}
	}
	require.NoError(t, d.Err())

	assert.Equal(t, raw, opaque)
	assert.Equal(t, "message/rfc822", contentType)
}

func TestEncodeFetchResponses(t *testing.T) {
	batch := &Batch{
		ResponseKey:  "4",
		CollectionID: "inbox",
		Fetches:      []*mailstore.Item{testItem()},
	}
	payload, err := batch.Encode()
	require.NoError(t, err)

	seq := tagSequence(t, payload)
	assert.Contains(t, seq, tagRef{wbxml.PageAirSync, wbxml.AirSyncResponses})
	assert.Contains(t, seq, tagRef{wbxml.PageAirSync, wbxml.AirSyncFetch})
	assert.NotContains(t, seq, tagRef{wbxml.PageAirSync, wbxml.AirSyncCommands},
		"fetch-only batch carries no Commands block")
	assert.NotContains(t, seq, tagRef{wbxml.PageAirSync, wbxml.AirSyncMoreAvailable})
}

func TestEncodeInvalidKey(t *testing.T) {
	payload := EncodeInvalidKey("inbox")

	want := []tagRef{
		{wbxml.PageAirSync, wbxml.AirSyncSync},
		{wbxml.PageAirSync, wbxml.AirSyncStatus},
		{wbxml.PageAirSync, wbxml.AirSyncCollections},
		{wbxml.PageAirSync, wbxml.AirSyncCollection},
		{wbxml.PageAirSync, wbxml.AirSyncSyncKey},
		{wbxml.PageAirSync, wbxml.AirSyncCollectionId},
		{wbxml.PageAirSync, wbxml.AirSyncClass},
		{wbxml.PageAirSync, wbxml.AirSyncStatus},
	}
	assert.Equal(t, want, tagSequence(t, payload))

	ds := decodeSync(t, payload)
	assert.Equal(t, "0", ds.syncKey)
	assert.Equal(t, []string{"3", "3"}, ds.statuses)
}

func TestEncodeItemWithoutBodySkipsBodyBlock(t *testing.T) {
	item := testItem()
	item.BodyPlain = ""
	item.BodyHTML = ""
	item.MIMEContent = nil
	item.Subject = "(no content)"
	item.From = ""
	item.To = ""

	batch := &Batch{
		ResponseKey:  "1",
		CollectionID: "inbox",
		Adds:         []*mailstore.Item{item},
	}
	payload, err := batch.Encode()
	require.NoError(t, err)

	seq := tagSequence(t, payload)
	assert.NotContains(t, seq, tagRef{wbxml.PageAirSyncBase, wbxml.BaseBody})
	assert.Contains(t, seq, tagRef{wbxml.PageEmail, wbxml.EmailSubject})
}
