// Package sync implements the per-collection sync state machine: key
// dispatch, batch construction, pending-batch staging, and idempotent
// resends.
package sync

import (
	"context"
	"strconv"
	gosync "sync"

	"github.com/veilmail/easgate/internal/logger"
	"github.com/veilmail/easgate/internal/protocol/eas"
	"github.com/veilmail/easgate/pkg/mailstore"
	"github.com/veilmail/easgate/pkg/metrics"
	"github.com/veilmail/easgate/pkg/state/models"
)

// staleKeyWindow is how far a client key may drift from the confirmed key
// before the request is answered with the invalid-key reset.
const staleKeyWindow = 3

// StateStore is the slice of the state store the engine mutates.
type StateStore interface {
	LoadState(ctx context.Context, user, deviceID, collectionID string) (*models.CollectionState, error)
	Mutate(ctx context.Context, user, deviceID, collectionID string, fn func(*models.CollectionState) error) (*models.CollectionState, error)
}

// Engine drives the Sync command for every collection. All requests for
// the same (user, device, collection) are serialized; distinct keys
// proceed in parallel.
type Engine struct {
	state   StateStore
	mail    mailstore.Store
	cache   *BatchCache
	metrics metrics.EASMetrics

	locks gosync.Map // lock key -> *collectionLock
}

type collectionLock struct {
	mu gosync.Mutex
}

// NewEngine builds the sync engine.
func NewEngine(state StateStore, mail mailstore.Store, cache *BatchCache) *Engine {
	return &Engine{
		state: state,
		mail:  mail,
		cache: cache,
	}
}

// SetMetrics attaches batch observability. Must be called before the
// engine starts serving.
func (e *Engine) SetMetrics(m metrics.EASMetrics) {
	e.metrics = m
}

// lockFor returns the serialization lock for one collection key.
func (e *Engine) lockFor(user, deviceID, collectionID string) *collectionLock {
	key := user + "|" + deviceID + "|" + collectionID
	l, _ := e.locks.LoadOrStore(key, &collectionLock{})
	return l.(*collectionLock)
}

// HandleSync processes one Sync request and returns the encoded response.
// Errors are internal failures; the caller maps them to a Status=3
// document. Protocol-level outcomes (invalid key, resend) are returned as
// regular payloads.
func (e *Engine) HandleSync(ctx context.Context, user, deviceID string, req *eas.SyncRequest) ([]byte, error) {
	lock := e.lockFor(user, deviceID, req.CollectionID)
	lock.mu.Lock()
	defer lock.mu.Unlock()

	st, err := e.state.LoadState(ctx, user, deviceID, req.CollectionID)
	if err != nil {
		return nil, err
	}

	clientKey := req.SyncKey
	clientNum, numeric := parseKey(clientKey)
	pendingNum := int64(-1)
	if st.HasPending() {
		pendingNum, _ = parseKey(*st.PendingSyncKey)
	}

	switch {
	case clientKey == "0":
		// A repeated initial request while the first batch is still
		// pending is a retry, not a second reset.
		if st.HasPending() && *st.PendingSyncKey == "1" {
			return e.resend(ctx, user, deviceID, req, st)
		}
		return e.initialSync(ctx, user, deviceID, req)

	case st.HasPending() && numeric && clientNum >= pendingNum:
		// Acknowledgment; clientNum > pendingNum recovers from a reply
		// lost in transit after the client already advanced.
		committed, err := e.state.Mutate(ctx, user, deviceID, req.CollectionID, func(s *models.CollectionState) error {
			if !s.HasPending() {
				return models.ErrNoPendingBatch
			}
			s.SyncKey = *s.PendingSyncKey
			s.SetSyncedIDs(append(s.SyncedIDList(), s.PendingIDList()...))
			s.ClearPending()
			return nil
		})
		if err != nil {
			return nil, err
		}
		return e.nextBatch(ctx, user, deviceID, req, committed)

	case st.HasPending() && (clientKey == st.SyncKey || (numeric && clientNum == pendingNum-1)):
		return e.resend(ctx, user, deviceID, req, st)

	case !numeric, absDiff(clientNum, keyNum(st.SyncKey)) > staleKeyWindow:
		logger.WarnCtx(ctx, "Stale sync key, forcing client reset",
			logger.Username(user),
			logger.DeviceID(deviceID),
			logger.CollectionID(req.CollectionID),
			logger.SyncKey(clientKey))
		return EncodeInvalidKey(req.CollectionID), nil

	default:
		return e.nextBatch(ctx, user, deviceID, req, st)
	}
}

// initialSync handles client key "0": wipe the collection state and send
// the first batch under key "1".
func (e *Engine) initialSync(ctx context.Context, user, deviceID string, req *eas.SyncRequest) ([]byte, error) {
	st, err := e.state.Mutate(ctx, user, deviceID, req.CollectionID, func(s *models.CollectionState) error {
		s.SyncKey = "1"
		s.Counter = 1
		s.SetSyncedIDs(nil)
		s.ClearPending()
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Collection reset",
		logger.Username(user),
		logger.DeviceID(deviceID),
		logger.CollectionID(req.CollectionID))

	return e.buildAndStage(ctx, user, deviceID, req, st, true)
}

// nextBatch computes the batch that follows the confirmed state.
func (e *Engine) nextBatch(ctx context.Context, user, deviceID string, req *eas.SyncRequest, st *models.CollectionState) ([]byte, error) {
	return e.buildAndStage(ctx, user, deviceID, req, st, false)
}

// resend replays the cached response for the pending key. A cache miss is
// answered with the invalid-key reset; the client recovers by restarting
// from key 0.
func (e *Engine) resend(ctx context.Context, user, deviceID string, req *eas.SyncRequest, st *models.CollectionState) ([]byte, error) {
	payload, ok := e.cache.Get(user, deviceID, req.CollectionID, *st.PendingSyncKey)
	if !ok {
		logger.WarnCtx(ctx, "Pending batch evicted from cache, forcing client reset",
			logger.Username(user),
			logger.DeviceID(deviceID),
			logger.CollectionID(req.CollectionID),
			logger.SyncKey(*st.PendingSyncKey))
		return EncodeInvalidKey(req.CollectionID), nil
	}
	return payload, nil
}

// buildAndStage queries the store, assembles the batch, persists the key
// advance and pending staging, caches the payload, and returns it. State
// is durable before the payload is handed back for writing.
func (e *Engine) buildAndStage(ctx context.Context, user, deviceID string, req *eas.SyncRequest, st *models.CollectionState, isReset bool) ([]byte, error) {
	items, err := e.mail.ListFolder(ctx, user, req.CollectionID, 0)
	if err != nil {
		return nil, err
	}

	excluded := make(map[int64]struct{})
	for _, id := range st.SyncedIDList() {
		excluded[id] = struct{}{}
	}

	unsent := make([]*mailstore.Item, 0, len(items))
	for _, item := range items {
		if _, ok := excluded[item.ID]; !ok {
			unsent = append(unsent, item)
		}
	}

	// A client whose acknowledged ids have drifted beyond everything the
	// store holds would otherwise never receive mail again.
	if len(unsent) == 0 && len(req.FetchServerIDs) == 0 && e.stateDrifted(st, items) {
		logger.WarnCtx(ctx, "Acknowledged ids drifted past the store, forcing full resync",
			logger.Username(user),
			logger.DeviceID(deviceID),
			logger.CollectionID(req.CollectionID))
		st, err = e.state.Mutate(ctx, user, deviceID, req.CollectionID, func(s *models.CollectionState) error {
			s.SetSyncedIDs(nil)
			return nil
		})
		if err != nil {
			return nil, err
		}
		unsent = items
	}

	window := eas.DefaultWindowSize
	if req.WindowSize > 0 {
		window = req.WindowSize
	}
	if window > eas.MaxWindowSize {
		window = eas.MaxWindowSize
	}

	adds := unsent
	more := false
	if len(unsent) > window {
		adds = unsent[:window]
		more = true
	}

	fetches, err := e.resolveFetches(ctx, user, req.FetchServerIDs)
	if err != nil {
		return nil, err
	}

	// A reply carrying no Add and no MoreAvailable must not advance the
	// key; iOS drops the collection when a Fetch-only response bumps it.
	responseKey := st.SyncKey
	bump := len(adds) > 0 || more
	if bump && !isReset {
		responseKey = strconv.Itoa(st.Counter + 1)
	}
	if isReset {
		responseKey = "1"
	}

	batch := &Batch{
		ResponseKey:   responseKey,
		CollectionID:  req.CollectionID,
		Adds:          adds,
		MoreAvailable: more,
		Fetches:       fetches,
		Preferences:   req.BodyPreferences,
	}
	payload, err := batch.Encode()
	if err != nil {
		return nil, err
	}

	if bump {
		_, err = e.state.Mutate(ctx, user, deviceID, req.CollectionID, func(s *models.CollectionState) error {
			if !isReset {
				s.Counter++
			}
			s.SetPending(responseKey, batch.SentIDs())
			return nil
		})
		if err != nil {
			return nil, err
		}
		e.cache.Put(user, deviceID, req.CollectionID, responseKey, payload)
	}

	if e.metrics != nil {
		e.metrics.RecordSyncBatch(len(adds))
	}

	logger.DebugCtx(ctx, "Sync batch built",
		logger.Username(user),
		logger.DeviceID(deviceID),
		logger.CollectionID(req.CollectionID),
		logger.SyncKey(responseKey),
		logger.ItemCount(len(adds)),
		logger.MoreAvailable(more))

	return payload, nil
}

// stateDrifted reports whether the acknowledged set can no longer be
// satisfied by the store: the folder is empty while ids are acknowledged,
// or the highest acknowledged id exceeds everything the store holds.
func (e *Engine) stateDrifted(st *models.CollectionState, items []*mailstore.Item) bool {
	synced := st.SyncedIDList()
	if len(synced) == 0 {
		return false
	}
	if len(items) == 0 {
		return true
	}
	var storeMax int64
	for _, item := range items {
		if item.ID > storeMax {
			storeMax = item.ID
		}
	}
	return synced[len(synced)-1] > storeMax
}

// resolveFetches loads the items named by Fetch commands. Unknown ids are
// dropped silently; the client treats a missing Fetch block as a deleted
// item.
func (e *Engine) resolveFetches(ctx context.Context, user string, serverIDs []string) ([]*mailstore.Item, error) {
	if len(serverIDs) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(serverIDs))
	for _, sid := range serverIDs {
		id, err := strconv.ParseInt(sid, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return e.mail.GetItems(ctx, user, ids)
}

func parseKey(key string) (int64, bool) {
	n, err := strconv.ParseInt(key, 10, 64)
	return n, err == nil
}

func keyNum(key string) int64 {
	n, _ := parseKey(key)
	return n
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
