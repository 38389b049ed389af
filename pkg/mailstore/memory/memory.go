// Package memory provides an in-memory mailstore.Store used by tests and
// the demo configuration. Items are held per (user, folder) with ids
// assigned from a per-user counter, matching the ordering contract of
// the durable stores.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/veilmail/easgate/pkg/mailstore"
)

// Store is an in-memory mailstore.Store. The zero value is not usable;
// call New.
type Store struct {
	mailstore.Notifier

	mu      sync.RWMutex
	items   map[string]map[string][]*mailstore.Item // user -> folder -> items
	counter map[string]int64                        // user -> last id
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		items:   make(map[string]map[string][]*mailstore.Item),
		counter: make(map[string]int64),
	}
}

// AddItem stores a copy of item under (user, item.Folder), assigns the
// next monotonic id when item.ID is zero, and signals subscribers. Ids
// are unique per user so Fetch can resolve them without folder context.
// Returns the assigned id.
func (s *Store) AddItem(ctx context.Context, user string, item *mailstore.Item) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	stored := *item
	if stored.ID == 0 {
		s.counter[user]++
		stored.ID = s.counter[user]
	} else if stored.ID > s.counter[user] {
		s.counter[user] = stored.ID
	}
	if s.items[user] == nil {
		s.items[user] = make(map[string][]*mailstore.Item)
	}
	s.items[user][item.Folder] = append(s.items[user][item.Folder], &stored)
	s.mu.Unlock()

	s.Notify(user, item.Folder)
	return stored.ID, nil
}

// ListFolder implements mailstore.Store.
func (s *Store) ListFolder(ctx context.Context, user, folder string, limit int) ([]*mailstore.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.items[user][folder]
	out := make([]*mailstore.Item, len(src))
	copy(out, src)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetItems implements mailstore.Store. Missing ids are skipped.
func (s *Store) GetItems(ctx context.Context, user string, ids []int64) ([]*mailstore.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*mailstore.Item
	for _, folder := range s.items[user] {
		for _, item := range folder {
			if _, ok := want[item.ID]; ok {
				out = append(out, item)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
