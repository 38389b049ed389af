// Package ping implements the Ping long-poll: each request holds one
// change subscription on the mail store and suspends until a watched
// folder changes, the heartbeat expires, or the client disconnects.
package ping

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/veilmail/easgate/internal/logger"
	"github.com/veilmail/easgate/internal/protocol/eas"
	"github.com/veilmail/easgate/internal/protocol/wbxml"
	"github.com/veilmail/easgate/pkg/mailstore"
)

// pingStatusMissingParams is the Ping status for a request naming no
// folders to monitor ([MS-ASCMD] 2.2.1.13.2.11).
const pingStatusMissingParams = 3

// Bounds is the heartbeat window. Zero fields fall back to the protocol
// defaults; tests shrink them so expiry paths run in milliseconds.
type Bounds struct {
	Min     time.Duration
	Max     time.Duration
	Default time.Duration
}

func (b *Bounds) applyDefaults() {
	if b.Min <= 0 {
		b.Min = eas.MinHeartbeat * time.Second
	}
	if b.Max <= 0 {
		b.Max = eas.MaxHeartbeat * time.Second
	}
	if b.Default <= 0 {
		b.Default = eas.DefaultHeartbeat * time.Second
	}
}

// Engine serves Ping requests. Each request is independent; concurrent
// Pings for the same user each hold their own subscription.
type Engine struct {
	mail   mailstore.Store
	bounds Bounds
	active atomic.Int64
}

// New builds a Ping engine over the given mail store.
func New(mail mailstore.Store, bounds Bounds) *Engine {
	bounds.applyDefaults()
	return &Engine{mail: mail, bounds: bounds}
}

// Active returns the number of Ping requests currently suspended.
func (e *Engine) Active() int64 {
	return e.active.Load()
}

// heartbeat converts the client-requested seconds into the effective
// wait, clamping into the configured window. Zero means the client left
// the choice to the server.
func (e *Engine) heartbeat(seconds int) time.Duration {
	if seconds <= 0 {
		return e.bounds.Default
	}
	d := time.Duration(seconds) * time.Second
	if d < e.bounds.Min {
		return e.bounds.Min
	}
	if d > e.bounds.Max {
		return e.bounds.Max
	}
	return d
}

// HandlePing suspends until a watched folder changes or the heartbeat
// expires, then returns the encoded Ping response. On client disconnect
// it unsubscribes and returns ctx.Err with no payload.
func (e *Engine) HandlePing(ctx context.Context, user string, req *eas.PingRequest) ([]byte, error) {
	if len(req.FolderIDs) == 0 {
		return encodeResponse(pingStatusMissingParams, nil), nil
	}

	hb := e.heartbeat(req.HeartbeatSeconds)

	e.active.Add(1)
	defer e.active.Add(-1)

	// A failed subscribe degrades to a plain heartbeat wait: the nil
	// event channel never fires and the client re-Pings after Status 1.
	var event <-chan struct{}
	handle, err := e.mail.Subscribe(user, req.FolderIDs)
	if err != nil {
		logger.WarnCtx(ctx, "Ping subscription failed, degrading to heartbeat wait",
			logger.Username(user),
			logger.Folders(req.FolderIDs),
			logger.Err(err))
	} else {
		defer e.mail.Unsubscribe(handle)
		event = handle.Event()
	}

	timer := time.NewTimer(hb)
	defer timer.Stop()

	logger.DebugCtx(ctx, "Ping waiting",
		logger.Username(user),
		logger.Heartbeat(int(hb/time.Second)),
		logger.Folders(req.FolderIDs))

	select {
	case <-ctx.Done():
		return nil, ctx.Err()

	case <-event:
		changed := handle.Changed()
		logger.InfoCtx(ctx, "Ping woke for folder changes",
			logger.Username(user),
			logger.Folders(changed))
		return encodeResponse(eas.PingStatusChanges, changed), nil

	case <-timer.C:
		logger.DebugCtx(ctx, "Ping heartbeat expired", logger.Username(user))
		return encodeResponse(eas.StatusSuccess, nil), nil
	}
}

// encodeResponse renders the Ping response document. The Folders list is
// present only for Status 2.
func encodeResponse(status int, changed []string) []byte {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PagePing, wbxml.PingPing)
	e.TextTag(wbxml.PagePing, wbxml.PingStatus, strconv.Itoa(status))
	if len(changed) > 0 {
		e.StartTag(wbxml.PagePing, wbxml.PingFolders)
		for _, id := range changed {
			e.TextTag(wbxml.PagePing, wbxml.PingFolder, id)
		}
		e.EndTag()
	}
	e.EndTag()
	return e.Bytes()
}
