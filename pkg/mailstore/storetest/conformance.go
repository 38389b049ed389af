// Package storetest provides a conformance suite run against every
// mailstore.Store implementation. New implementations add one test file
// that calls RunConformanceSuite with a factory.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmail/easgate/pkg/mailstore"
)

// WritableStore is a mailstore.Store that can also receive items, which
// the suite needs to seed data and trigger notifications.
type WritableStore interface {
	mailstore.Store
	AddItem(ctx context.Context, user string, item *mailstore.Item) (int64, error)
}

// Factory builds a fresh, empty store for one test.
type Factory func(t *testing.T) WritableStore

// RunConformanceSuite asserts the Store contract: newest-first ordering,
// per-user monotonic ids, Fetch resolution by bare id, and single-shot
// change notification.
func RunConformanceSuite(t *testing.T, factory Factory) {
	t.Run("ListFolderNewestFirst", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		var ids []int64
		for _, subject := range []string{"first", "second", "third"} {
			id, err := store.AddItem(ctx, "alice", &mailstore.Item{
				Folder:     "1",
				Subject:    subject,
				ReceivedAt: time.Now(),
			})
			require.NoError(t, err)
			ids = append(ids, id)
		}
		assert.Less(t, ids[0], ids[1])
		assert.Less(t, ids[1], ids[2])

		items, err := store.ListFolder(ctx, "alice", "1", 0)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, "third", items[0].Subject)
		assert.Equal(t, "second", items[1].Subject)
		assert.Equal(t, "first", items[2].Subject)
	})

	t.Run("ListFolderLimit", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			_, err := store.AddItem(ctx, "alice", &mailstore.Item{Folder: "1"})
			require.NoError(t, err)
		}
		items, err := store.ListFolder(ctx, "alice", "1", 2)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("ListFolderEmptyAndIsolated", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		_, err := store.AddItem(ctx, "alice", &mailstore.Item{Folder: "1"})
		require.NoError(t, err)

		items, err := store.ListFolder(ctx, "alice", "4", 0)
		require.NoError(t, err)
		assert.Empty(t, items)

		items, err = store.ListFolder(ctx, "bob", "1", 0)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("GetItemsResolvesAcrossFolders", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		inboxID, err := store.AddItem(ctx, "alice", &mailstore.Item{Folder: "1", Subject: "in inbox"})
		require.NoError(t, err)
		sentID, err := store.AddItem(ctx, "alice", &mailstore.Item{Folder: "4", Subject: "in sent"})
		require.NoError(t, err)

		items, err := store.GetItems(ctx, "alice", []int64{inboxID, sentID, 9999})
		require.NoError(t, err)
		require.Len(t, items, 2)

		subjects := map[int64]string{}
		for _, it := range items {
			subjects[it.ID] = it.Subject
		}
		assert.Equal(t, "in inbox", subjects[inboxID])
		assert.Equal(t, "in sent", subjects[sentID])
	})

	t.Run("SubscribeSignalsOnChange", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		h, err := store.Subscribe("alice", []string{"1", "2"})
		require.NoError(t, err)
		defer store.Unsubscribe(h)

		select {
		case <-h.Event():
			t.Fatal("subscription signaled before any change")
		default:
		}

		_, err = store.AddItem(ctx, "alice", &mailstore.Item{Folder: "1"})
		require.NoError(t, err)

		select {
		case <-h.Event():
		case <-time.After(time.Second):
			t.Fatal("subscription not signaled after change")
		}
		assert.Equal(t, []string{"1"}, h.Changed())

		// A second change in another watched folder accumulates without
		// re-firing the single-shot event.
		_, err = store.AddItem(ctx, "alice", &mailstore.Item{Folder: "2"})
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2"}, h.Changed())
	})

	t.Run("SubscribeIgnoresUnwatchedFolderAndOtherUsers", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		h, err := store.Subscribe("alice", []string{"1"})
		require.NoError(t, err)
		defer store.Unsubscribe(h)

		_, err = store.AddItem(ctx, "alice", &mailstore.Item{Folder: "4"})
		require.NoError(t, err)
		_, err = store.AddItem(ctx, "bob", &mailstore.Item{Folder: "1"})
		require.NoError(t, err)

		select {
		case <-h.Event():
			t.Fatal("subscription signaled for unwatched change")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("UnsubscribeStopsSignals", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		h, err := store.Subscribe("alice", []string{"1"})
		require.NoError(t, err)
		store.Unsubscribe(h)

		_, err = store.AddItem(ctx, "alice", &mailstore.Item{Folder: "1"})
		require.NoError(t, err)

		select {
		case <-h.Event():
			t.Fatal("unsubscribed handle was signaled")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("ConcurrentSubscriptionsAreIndependent", func(t *testing.T) {
		store := factory(t)
		ctx := context.Background()

		h1, err := store.Subscribe("alice", []string{"1"})
		require.NoError(t, err)
		defer store.Unsubscribe(h1)
		h2, err := store.Subscribe("alice", []string{"1"})
		require.NoError(t, err)
		defer store.Unsubscribe(h2)

		_, err = store.AddItem(ctx, "alice", &mailstore.Item{Folder: "1"})
		require.NoError(t, err)

		for _, h := range []mailstore.Handle{h1, h2} {
			select {
			case <-h.Event():
			case <-time.After(time.Second):
				t.Fatal("one of the concurrent subscriptions missed the change")
			}
		}
	})
}
