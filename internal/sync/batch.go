package sync

import (
	"errors"
	"strconv"

	"github.com/veilmail/easgate/internal/body"
	"github.com/veilmail/easgate/internal/protocol/eas"
	"github.com/veilmail/easgate/internal/protocol/wbxml"
	"github.com/veilmail/easgate/pkg/mailstore"
)

// dateReceivedFormat is the wire form of email:DateReceived.
const dateReceivedFormat = "2006-01-02T15:04:05.000Z"

// utf8CPID is the InternetCPID value for UTF-8 content.
const utf8CPID = "65001"

// Batch describes one Sync response before encoding. Encoding a Batch is
// deterministic: identical inputs produce identical bytes, which the
// idempotency cache relies on.
type Batch struct {
	ResponseKey   string
	CollectionID  string
	Adds          []*mailstore.Item
	MoreAvailable bool
	Fetches       []*mailstore.Item
	Preferences   []eas.BodyPreference
}

// SentIDs returns the ids emitted as Add commands, in emission order.
func (b *Batch) SentIDs() []int64 {
	ids := make([]int64, len(b.Adds))
	for i, item := range b.Adds {
		ids[i] = item.ID
	}
	return ids
}

// Encode renders the Sync response WBXML for the batch.
//
// Element order under Collection is SyncKey, CollectionId, Class, Status,
// Commands, MoreAvailable, Responses; clients silently discard responses
// that deviate.
func (b *Batch) Encode() ([]byte, error) {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageAirSync, wbxml.AirSyncSync)
	e.StartTag(wbxml.PageAirSync, wbxml.AirSyncCollections)
	e.StartTag(wbxml.PageAirSync, wbxml.AirSyncCollection)

	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncSyncKey, b.ResponseKey)
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncCollectionId, b.CollectionID)
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncClass, "Email")
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncStatus, strconv.Itoa(eas.StatusSuccess))

	if len(b.Adds) > 0 {
		e.StartTag(wbxml.PageAirSync, wbxml.AirSyncCommands)
		for _, item := range b.Adds {
			e.StartTag(wbxml.PageAirSync, wbxml.AirSyncAdd)
			e.TextTag(wbxml.PageAirSync, wbxml.AirSyncServerId, strconv.FormatInt(item.ID, 10))
			e.StartTag(wbxml.PageAirSync, wbxml.AirSyncApplicationData)
			if err := EncodeEmail(e, item, b.Preferences, false); err != nil {
				return nil, err
			}
			e.EndTag() // ApplicationData
			e.EndTag() // Add
		}
		e.EndTag() // Commands
	}

	if b.MoreAvailable {
		e.EmptyTag(wbxml.PageAirSync, wbxml.AirSyncMoreAvailable)
	}

	if len(b.Fetches) > 0 {
		e.StartTag(wbxml.PageAirSync, wbxml.AirSyncResponses)
		for _, item := range b.Fetches {
			e.StartTag(wbxml.PageAirSync, wbxml.AirSyncFetch)
			e.TextTag(wbxml.PageAirSync, wbxml.AirSyncServerId, strconv.FormatInt(item.ID, 10))
			e.TextTag(wbxml.PageAirSync, wbxml.AirSyncStatus, strconv.Itoa(eas.StatusSuccess))
			e.StartTag(wbxml.PageAirSync, wbxml.AirSyncApplicationData)
			if err := EncodeEmail(e, item, b.Preferences, true); err != nil {
				return nil, err
			}
			e.EndTag() // ApplicationData
			e.EndTag() // Fetch
		}
		e.EndTag() // Responses
	}

	e.EndTag() // Collection
	e.EndTag() // Collections
	e.EndTag() // Sync
	return e.Bytes(), nil
}

// EncodeInvalidKey renders the minimal Status=3 response that forces the
// client to restart from SyncKey 0.
func EncodeInvalidKey(collectionID string) []byte {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageAirSync, wbxml.AirSyncSync)
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncStatus, strconv.Itoa(eas.StatusServerError))
	e.StartTag(wbxml.PageAirSync, wbxml.AirSyncCollections)
	e.StartTag(wbxml.PageAirSync, wbxml.AirSyncCollection)
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncSyncKey, "0")
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncCollectionId, collectionID)
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncClass, "Email")
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncStatus, strconv.Itoa(eas.StatusServerError))
	e.EndTag()
	e.EndTag()
	e.EndTag()
	return e.Bytes()
}

// EncodeEmail writes the email application data for one item:
// addressing, flags, then the selected body under airsyncbase. Body order
// is Type, EstimatedDataSize, Truncated, Data, ContentType;
// NativeBodyType is a sibling of Body.
func EncodeEmail(e *wbxml.Encoder, item *mailstore.Item, prefs []eas.BodyPreference, singleFetch bool) error {
	e.TextTag(wbxml.PageEmail, wbxml.EmailSubject, item.Subject)
	e.TextTag(wbxml.PageEmail, wbxml.EmailFrom, item.From)
	e.TextTag(wbxml.PageEmail, wbxml.EmailTo, item.To)
	e.TextTag(wbxml.PageEmail, wbxml.EmailDateReceived, item.ReceivedAt.UTC().Format(dateReceivedFormat))
	e.TextTag(wbxml.PageEmail, wbxml.EmailMessageClass, "IPM.Note")
	e.TextTag(wbxml.PageEmail, wbxml.EmailRead, boolDigit(item.Read))
	e.TextTag(wbxml.PageEmail, wbxml.EmailInternetCPID, utf8CPID)

	src := bodySource(item)
	payload, err := body.Build(src, prefs, singleFetch)
	if errors.Is(err, body.ErrNoContent) {
		return nil
	}
	if err != nil {
		return err
	}

	e.StartTag(wbxml.PageAirSyncBase, wbxml.BaseBody)
	e.IntTag(wbxml.PageAirSyncBase, wbxml.BaseType, payload.Type)
	e.IntTag(wbxml.PageAirSyncBase, wbxml.BaseEstimatedDataSize, payload.EstimatedSize)
	e.TextTag(wbxml.PageAirSyncBase, wbxml.BaseTruncated, boolDigit(payload.Truncated))
	if payload.Type == eas.BodyTypeMIME {
		e.StartTag(wbxml.PageAirSyncBase, wbxml.BaseData)
		e.WriteOpaque(payload.Data)
		e.EndTag()
	} else {
		e.TextTag(wbxml.PageAirSyncBase, wbxml.BaseData, string(payload.Data))
	}
	if payload.ContentType != "" {
		e.TextTag(wbxml.PageAirSyncBase, wbxml.BaseContentType, payload.ContentType)
	}
	e.EndTag() // Body

	e.IntTag(wbxml.PageAirSyncBase, wbxml.BaseNativeBodyType, src.NativeType())
	return nil
}

func bodySource(item *mailstore.Item) *body.Source {
	return &body.Source{
		Plain:     item.BodyPlain,
		HTML:      item.BodyHTML,
		MIME:      item.MIMEContent,
		From:      item.From,
		To:        item.To,
		Subject:   item.Subject,
		Date:      item.ReceivedAt,
		MessageID: item.MessageID,
	}
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
