// Package mailstore defines the read-only mail access interface the sync
// core consumes, plus the change-notification contract Ping relies on.
//
// Two implementations ship with the server: an in-memory store used by
// tests and demos (pkg/mailstore/memory) and a durable BadgerDB store
// (pkg/mailstore/badger). Deployments backed by a real mail system
// implement Store against it.
package mailstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested item does not exist.
var ErrNotFound = errors.New("mailstore: item not found")

// Item is the read-only view of one mail message. IDs are monotonic with
// receipt order within a folder, so newest-first means descending id.
type Item struct {
	ID         int64
	Folder     string // folder code, see eas.SystemFolders
	Subject    string
	From       string
	To         string
	ReceivedAt time.Time
	Read       bool

	// Body material; any subset may be populated.
	BodyPlain   string
	BodyHTML    string
	MIMEContent []byte
	MessageID   string
}

// Handle is an active change subscription. Event is signaled at most once
// per subscription; the waiter re-subscribes if it wants further signals.
type Handle interface {
	// Event is readable once a change lands in any watched folder.
	Event() <-chan struct{}

	// Changed lists the watched folders that received items since the
	// subscription was created, in arrival order without duplicates.
	Changed() []string
}

// Store is the mail access surface the sync core requires.
type Store interface {
	// ListFolder returns up to limit items for a folder, newest-first by
	// id. limit <= 0 means no limit.
	ListFolder(ctx context.Context, user, folder string, limit int) ([]*Item, error)

	// GetItems resolves items by id for Fetch handling. Missing ids are
	// skipped, not errors; callers detect gaps by comparing lengths.
	GetItems(ctx context.Context, user string, ids []int64) ([]*Item, error)

	// Subscribe registers for change events on the given folders. The
	// caller must Unsubscribe on every exit path.
	Subscribe(user string, folders []string) (Handle, error)

	// Unsubscribe releases a subscription. Safe to call with a handle
	// that was already signaled.
	Unsubscribe(h Handle)
}
