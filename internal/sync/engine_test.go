package sync

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmail/easgate/internal/protocol/eas"
	"github.com/veilmail/easgate/internal/protocol/wbxml"
	"github.com/veilmail/easgate/pkg/mailstore"
	"github.com/veilmail/easgate/pkg/mailstore/memory"
	"github.com/veilmail/easgate/pkg/state/models"
	"github.com/veilmail/easgate/pkg/state/store"
)

const (
	testUser   = "alice"
	testDevice = "Appl8XYZ123"
	testInbox  = "inbox"
)

func newTestEngine(t *testing.T) (*Engine, *memory.Store, *store.GORMStore) {
	t.Helper()

	st, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	cache, err := NewBatchCache()
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	mail := memory.New()
	return NewEngine(st, mail, cache), mail, st
}

// seedInbox adds n messages with explicit ids startID, startID+1, ...
func seedInbox(t *testing.T, mail *memory.Store, startID int64, n int) {
	t.Helper()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := mail.AddItem(context.Background(), testUser, &mailstore.Item{
			ID:         startID + int64(i),
			Folder:     testInbox,
			Subject:    fmt.Sprintf("message %d", i+1),
			From:       "sender@example.com",
			To:         "alice@example.com",
			ReceivedAt: base.Add(time.Duration(i) * time.Minute),
			BodyPlain:  fmt.Sprintf("body %d", i+1),
		})
		require.NoError(t, err)
	}
}

func syncReq(key string, window int) *eas.SyncRequest {
	return &eas.SyncRequest{
		SyncKey:      key,
		CollectionID: testInbox,
		WindowSize:   window,
	}
}

// decodedSync is the structural view of a Sync response used by the
// assertions below.
type decodedSync struct {
	syncKey      string
	collectionID string
	statuses     []string // every airsync Status in document order
	addIDs       []string
	more         bool
	fetchIDs     []string
}

// decodeSync walks the response and collects the fields the tests assert
// on. Non-AirSync subtrees (email fields, body) are skipped structurally.
func decodeSync(t *testing.T, payload []byte) *decodedSync {
	t.Helper()
	require.GreaterOrEqual(t, len(payload), 4)
	assert.Equal(t, []byte{0x03, 0x01, 0x6A, 0x00}, payload[:4], "wbxml header")

	d, err := wbxml.NewDecoder(payload)
	require.NoError(t, err)

	ds := &decodedSync{}
	var stack []byte // open airsync container elements
	inside := func(code byte) bool {
		for _, c := range stack {
			if c == code {
				return true
			}
		}
		return false
	}

	for {
		tok, ok := d.Next()
		if !ok {
			break
		}
		if tok.Kind == wbxml.TokenEnd {
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}
		if tok.Kind != wbxml.TokenTag {
			continue
		}
		if tok.Page != wbxml.PageAirSync {
			d.Skip(tok)
			continue
		}
		switch tok.Code {
		case wbxml.AirSyncSync, wbxml.AirSyncCollections, wbxml.AirSyncCollection,
			wbxml.AirSyncCommands, wbxml.AirSyncAdd, wbxml.AirSyncResponses,
			wbxml.AirSyncFetch, wbxml.AirSyncApplicationData:
			if tok.HasContent {
				stack = append(stack, tok.Code)
			}
		case wbxml.AirSyncSyncKey:
			ds.syncKey = d.TextContent(tok)
		case wbxml.AirSyncCollectionId:
			ds.collectionID = d.TextContent(tok)
		case wbxml.AirSyncStatus:
			ds.statuses = append(ds.statuses, d.TextContent(tok))
		case wbxml.AirSyncMoreAvailable:
			ds.more = true
			d.Skip(tok)
		case wbxml.AirSyncServerId:
			id := d.TextContent(tok)
			if inside(wbxml.AirSyncResponses) {
				ds.fetchIDs = append(ds.fetchIDs, id)
			} else {
				ds.addIDs = append(ds.addIDs, id)
			}
		default:
			d.Skip(tok)
		}
	}
	require.NoError(t, d.Err())
	return ds
}

func TestInitialSync(t *testing.T) {
	engine, mail, st := newTestEngine(t)
	seedInbox(t, mail, 100, 12)
	ctx := context.Background()

	payload, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("0", 5))
	require.NoError(t, err)

	ds := decodeSync(t, payload)
	assert.Equal(t, "1", ds.syncKey)
	assert.Equal(t, testInbox, ds.collectionID)
	assert.Equal(t, []string{"1"}, ds.statuses)
	assert.Equal(t, []string{"111", "110", "109", "108", "107"}, ds.addIDs, "newest first")
	assert.True(t, ds.more)

	cs, err := st.LoadState(ctx, testUser, testDevice, testInbox)
	require.NoError(t, err)
	assert.Equal(t, "1", cs.SyncKey)
	require.True(t, cs.HasPending())
	assert.Equal(t, "1", *cs.PendingSyncKey)
	assert.ElementsMatch(t, []int64{111, 110, 109, 108, 107}, cs.PendingIDList())
	assert.Empty(t, cs.SyncedIDList(), "nothing acknowledged yet")
}

func TestAcknowledgeAdvancesBatch(t *testing.T) {
	engine, mail, st := newTestEngine(t)
	seedInbox(t, mail, 100, 12)
	ctx := context.Background()

	_, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("0", 5))
	require.NoError(t, err)

	payload, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("1", 5))
	require.NoError(t, err)

	ds := decodeSync(t, payload)
	assert.Equal(t, "2", ds.syncKey)
	assert.Equal(t, []string{"106", "105", "104", "103", "102"}, ds.addIDs)
	assert.True(t, ds.more)

	cs, err := st.LoadState(ctx, testUser, testDevice, testInbox)
	require.NoError(t, err)
	assert.Equal(t, "2", cs.SyncKey)
	assert.ElementsMatch(t, []int64{107, 108, 109, 110, 111}, cs.SyncedIDList())
	require.True(t, cs.HasPending())
	assert.Equal(t, "2", *cs.PendingSyncKey)
}

func TestRetransmitIsByteIdentical(t *testing.T) {
	engine, mail, st := newTestEngine(t)
	seedInbox(t, mail, 100, 12)
	ctx := context.Background()

	first, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("0", 5))
	require.NoError(t, err)

	// The reply was lost; the client repeats the initial request.
	second, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("0", 5))
	require.NoError(t, err)
	assert.Equal(t, first, second, "retransmit must replay the exact bytes")

	cs, err := st.LoadState(ctx, testUser, testDevice, testInbox)
	require.NoError(t, err)
	require.True(t, cs.HasPending(), "retransmit must not consume the pending batch")
	assert.Equal(t, "1", *cs.PendingSyncKey)
}

func TestResendPreviousKey(t *testing.T) {
	engine, mail, _ := newTestEngine(t)
	seedInbox(t, mail, 100, 12)
	ctx := context.Background()

	_, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("0", 5))
	require.NoError(t, err)
	batch2, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("1", 5))
	require.NoError(t, err)

	// Client never saw the key-2 reply and repeats its last confirmed key.
	replay, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("1", 5))
	require.NoError(t, err)
	assert.Equal(t, batch2, replay)
}

func TestStaleKeyForcesReset(t *testing.T) {
	engine, mail, st := newTestEngine(t)
	seedInbox(t, mail, 100, 12)
	ctx := context.Background()

	// A device restored from backup presents a key far behind the
	// partnership's confirmed position.
	_, err := st.Mutate(ctx, testUser, testDevice, testInbox, func(s *models.CollectionState) error {
		s.SyncKey = "6"
		s.Counter = 6
		s.SetPending("7", []int64{111})
		return nil
	})
	require.NoError(t, err)

	payload, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("2", 5))
	require.NoError(t, err)

	ds := decodeSync(t, payload)
	assert.Equal(t, "0", ds.syncKey)
	assert.Equal(t, []string{"3", "3"}, ds.statuses)
	assert.Empty(t, ds.addIDs)

	cs, err := st.LoadState(ctx, testUser, testDevice, testInbox)
	require.NoError(t, err)
	assert.Equal(t, "6", cs.SyncKey, "stale request must not mutate state")
	require.True(t, cs.HasPending())
	assert.Equal(t, "7", *cs.PendingSyncKey)
}

func TestNonNumericKeyForcesReset(t *testing.T) {
	engine, mail, _ := newTestEngine(t)
	seedInbox(t, mail, 100, 3)

	payload, err := engine.HandleSync(context.Background(), testUser, testDevice, syncReq("{bogus}", 0))
	require.NoError(t, err)

	ds := decodeSync(t, payload)
	assert.Equal(t, "0", ds.syncKey)
	assert.Equal(t, []string{"3", "3"}, ds.statuses)
}

func TestFetchOnlyDoesNotAdvanceKey(t *testing.T) {
	engine, mail, st := newTestEngine(t)
	seedInbox(t, mail, 1, 2)
	ctx := context.Background()

	_, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("0", 0))
	require.NoError(t, err)
	_, err = engine.HandleSync(ctx, testUser, testDevice, syncReq("1", 0))
	require.NoError(t, err)

	req := syncReq("1", 0)
	req.FetchServerIDs = []string{"1"}
	payload, err := engine.HandleSync(ctx, testUser, testDevice, req)
	require.NoError(t, err)

	ds := decodeSync(t, payload)
	assert.Equal(t, "1", ds.syncKey, "fetch-only reply must not bump the key")
	assert.Empty(t, ds.addIDs)
	assert.False(t, ds.more)
	assert.Equal(t, []string{"1"}, ds.fetchIDs)

	cs, err := st.LoadState(ctx, testUser, testDevice, testInbox)
	require.NoError(t, err)
	assert.Equal(t, "1", cs.SyncKey)
	assert.False(t, cs.HasPending())
}

func TestFullSyncHasNoDuplicates(t *testing.T) {
	engine, mail, _ := newTestEngine(t)
	seedInbox(t, mail, 100, 12)
	ctx := context.Background()

	seen := make(map[string]int)
	key := "0"
	var lastMore bool
	for i := 0; i < 5; i++ {
		payload, err := engine.HandleSync(ctx, testUser, testDevice, syncReq(key, 5))
		require.NoError(t, err)
		ds := decodeSync(t, payload)
		for _, id := range ds.addIDs {
			seen[id]++
		}
		lastMore = ds.more
		if !ds.more && len(ds.addIDs) == 0 {
			break
		}
		key = ds.syncKey
	}

	assert.False(t, lastMore)
	assert.Len(t, seen, 12, "every message delivered")
	for id, n := range seen {
		assert.Equal(t, 1, n, "message %s delivered more than once", id)
	}
}

func TestWindowSizeClamped(t *testing.T) {
	engine, mail, _ := newTestEngine(t)
	seedInbox(t, mail, 1, 120)
	ctx := context.Background()

	t.Run("above maximum", func(t *testing.T) {
		payload, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("0", 500))
		require.NoError(t, err)
		ds := decodeSync(t, payload)
		assert.Len(t, ds.addIDs, eas.MaxWindowSize)
		assert.True(t, ds.more)
	})

	t.Run("absent uses default", func(t *testing.T) {
		payload, err := engine.HandleSync(ctx, testUser, "OtherDevice", syncReq("0", 0))
		require.NoError(t, err)
		ds := decodeSync(t, payload)
		assert.Len(t, ds.addIDs, eas.DefaultWindowSize)
		assert.True(t, ds.more)
	})
}

func TestAckBeyondPendingRecovers(t *testing.T) {
	engine, mail, _ := newTestEngine(t)
	seedInbox(t, mail, 100, 12)
	ctx := context.Background()

	_, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("0", 5))
	require.NoError(t, err)

	// The client already advanced past the staged key after a reply was
	// lost in transit; treat it as the acknowledgment it implies.
	payload, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("2", 5))
	require.NoError(t, err)
	ds := decodeSync(t, payload)
	assert.Equal(t, "2", ds.syncKey)
	assert.Equal(t, []string{"106", "105", "104", "103", "102"}, ds.addIDs)
}

func TestCacheMissOnResendForcesReset(t *testing.T) {
	engine, mail, _ := newTestEngine(t)
	seedInbox(t, mail, 100, 12)
	ctx := context.Background()

	_, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("0", 5))
	require.NoError(t, err)

	// Simulate eviction between the original reply and the retransmit.
	fresh, err := NewBatchCache()
	require.NoError(t, err)
	t.Cleanup(fresh.Close)
	engine.cache = fresh

	payload, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("0", 5))
	require.NoError(t, err)
	ds := decodeSync(t, payload)
	assert.Equal(t, "0", ds.syncKey)
	assert.Equal(t, []string{"3", "3"}, ds.statuses)
}

func TestDriftedStateTriggersResync(t *testing.T) {
	engine, mail, st := newTestEngine(t)
	seedInbox(t, mail, 1, 3)
	ctx := context.Background()

	_, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("0", 0))
	require.NoError(t, err)
	_, err = engine.HandleSync(ctx, testUser, testDevice, syncReq("1", 0))
	require.NoError(t, err)

	t.Run("quiescent poll leaves state alone", func(t *testing.T) {
		payload, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("1", 0))
		require.NoError(t, err)
		ds := decodeSync(t, payload)
		assert.Empty(t, ds.addIDs)

		cs, err := st.LoadState(ctx, testUser, testDevice, testInbox)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{1, 2, 3}, cs.SyncedIDList())
	})

	t.Run("acknowledged ids past store max force resync", func(t *testing.T) {
		// The acknowledged set covers everything in the folder plus an id
		// the store never issued, so nothing is left to send.
		_, err := st.Mutate(ctx, testUser, testDevice, testInbox, func(s *models.CollectionState) error {
			s.SetSyncedIDs([]int64{1, 2, 3, 900})
			return nil
		})
		require.NoError(t, err)

		payload, err := engine.HandleSync(ctx, testUser, testDevice, syncReq("1", 0))
		require.NoError(t, err)
		ds := decodeSync(t, payload)
		assert.Equal(t, []string{"3", "2", "1"}, ds.addIDs, "all items redelivered")
	})
}

func TestConcurrentCollectionsAreIndependent(t *testing.T) {
	engine, mail, _ := newTestEngine(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, folder := range []string{"inbox", "sent"} {
		_, err := mail.AddItem(ctx, testUser, &mailstore.Item{
			ID:         int64(i + 1),
			Folder:     folder,
			Subject:    "hello " + folder,
			From:       "sender@example.com",
			To:         "alice@example.com",
			ReceivedAt: base,
			BodyPlain:  "hi",
		})
		require.NoError(t, err)
	}

	inboxReq := &eas.SyncRequest{SyncKey: "0", CollectionID: "inbox"}
	sentReq := &eas.SyncRequest{SyncKey: "0", CollectionID: "sent"}

	inboxPayload, err := engine.HandleSync(ctx, testUser, testDevice, inboxReq)
	require.NoError(t, err)
	sentPayload, err := engine.HandleSync(ctx, testUser, testDevice, sentReq)
	require.NoError(t, err)

	assert.Equal(t, []string{"1"}, decodeSync(t, inboxPayload).addIDs)
	assert.Equal(t, []string{"2"}, decodeSync(t, sentPayload).addIDs)
}
