package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmail/easgate/pkg/state/models"
)

// createTestStore creates an in-memory SQLite store for testing.
func createTestStore(t *testing.T) *GORMStore {
	t.Helper()
	store, err := New(&Config{
		Type: DatabaseTypeSQLite,
		SQLite: SQLiteConfig{
			Path: ":memory:",
		},
	})
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNew(t *testing.T) {
	t.Run("default config uses sqlite", func(t *testing.T) {
		config := &Config{}
		config.ApplyDefaults()
		assert.Equal(t, DatabaseTypeSQLite, config.Type)
	})

	t.Run("invalid config returns error", func(t *testing.T) {
		_, err := New(&Config{Type: "invalid"})
		assert.Error(t, err)
	})

	t.Run("creates in-memory store", func(t *testing.T) {
		store := createTestStore(t)
		assert.NotNil(t, store.DB())
	})
}

func TestDeviceOperations(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	t.Run("get or create", func(t *testing.T) {
		dev, err := store.GetOrCreateDevice(ctx, "alice", "DEV1", "iPhone")
		require.NoError(t, err)
		assert.Equal(t, "DEV1", dev.DeviceID)
		assert.False(t, dev.IsProvisioned)
		assert.Equal(t, models.UnprovisionedPolicyKey, dev.PolicyKey)

		// Second call returns the same row, not a duplicate.
		again, err := store.GetOrCreateDevice(ctx, "alice", "DEV1", "iPhone")
		require.NoError(t, err)
		assert.Equal(t, dev.ID, again.ID)

		devices, err := store.ListDevices(ctx)
		require.NoError(t, err)
		assert.Len(t, devices, 1)
	})

	t.Run("mark provisioned", func(t *testing.T) {
		require.NoError(t, store.MarkProvisioned(ctx, "alice", "DEV1"))

		dev, err := store.GetDevice(ctx, "alice", "DEV1")
		require.NoError(t, err)
		assert.True(t, dev.IsProvisioned)
		assert.Equal(t, models.ProvisionedPolicyKey, dev.PolicyKey)
	})

	t.Run("mark provisioned unknown device", func(t *testing.T) {
		err := store.MarkProvisioned(ctx, "alice", "NOPE")
		assert.ErrorIs(t, err, models.ErrDeviceNotFound)
	})

	t.Run("forget removes state", func(t *testing.T) {
		_, err := store.Mutate(ctx, "alice", "DEV1", "1", func(st *models.CollectionState) error {
			st.SyncKey = "3"
			st.Counter = 3
			return nil
		})
		require.NoError(t, err)

		require.NoError(t, store.ForgetDevice(ctx, "alice", "DEV1"))

		_, err = store.GetDevice(ctx, "alice", "DEV1")
		assert.ErrorIs(t, err, models.ErrDeviceNotFound)

		st, err := store.LoadState(ctx, "alice", "DEV1", "1")
		require.NoError(t, err)
		assert.Equal(t, "0", st.SyncKey)
	})
}

func TestCollectionStateLifecycle(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	t.Run("load missing returns zero state", func(t *testing.T) {
		st, err := store.LoadState(ctx, "alice", "DEV1", "1")
		require.NoError(t, err)
		assert.Equal(t, "0", st.SyncKey)
		assert.Zero(t, st.Counter)
		assert.Empty(t, st.SyncedIDList())
		assert.False(t, st.HasPending())
	})

	t.Run("stage and commit", func(t *testing.T) {
		_, err := store.Mutate(ctx, "alice", "DEV1", "1", func(st *models.CollectionState) error {
			st.SyncKey = "1"
			st.Counter = 1
			st.SetPending("1", []int64{5, 4, 3})
			return nil
		})
		require.NoError(t, err)

		st, err := store.LoadState(ctx, "alice", "DEV1", "1")
		require.NoError(t, err)
		require.True(t, st.HasPending())
		assert.Equal(t, "1", *st.PendingSyncKey)
		assert.Equal(t, []int64{5, 4, 3}, st.PendingIDList())
		require.NotNil(t, st.PendingMaxID)
		assert.EqualValues(t, 5, *st.PendingMaxID)

		st, err = store.CommitPending(ctx, "alice", "DEV1", "1")
		require.NoError(t, err)
		assert.Equal(t, "1", st.SyncKey)
		assert.Equal(t, []int64{3, 4, 5}, st.SyncedIDList())
		assert.False(t, st.HasPending())
	})

	t.Run("commit without pending fails", func(t *testing.T) {
		_, err := store.CommitPending(ctx, "alice", "DEV1", "1")
		assert.ErrorIs(t, err, models.ErrNoPendingBatch)
	})

	t.Run("reset clears everything", func(t *testing.T) {
		st, err := store.ResetState(ctx, "alice", "DEV1", "1")
		require.NoError(t, err)
		assert.Equal(t, "0", st.SyncKey)
		assert.Zero(t, st.Counter)
		assert.Empty(t, st.SyncedIDList())
		assert.False(t, st.HasPending())
	})
}

func TestSyncedIDCap(t *testing.T) {
	st := &models.CollectionState{}
	ids := make([]int64, models.SyncedIDCap+100)
	for i := range ids {
		ids[i] = int64(i + 1)
	}
	st.SetSyncedIDs(ids)

	got := st.SyncedIDList()
	require.Len(t, got, models.SyncedIDCap)
	// The oldest (lowest) ids are dropped.
	assert.EqualValues(t, 101, got[0])
	assert.EqualValues(t, models.SyncedIDCap+100, got[len(got)-1])
}

func TestHierarchyOperations(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	st, err := store.LoadHierarchy(ctx, "alice", "DEV1")
	require.NoError(t, err)
	assert.Equal(t, "0", st.SyncKey)

	st, err = store.AdvanceHierarchy(ctx, "alice", "DEV1")
	require.NoError(t, err)
	assert.Equal(t, "1", st.SyncKey)
	assert.Equal(t, 1, st.Counter)

	st, err = store.AdvanceHierarchy(ctx, "alice", "DEV1")
	require.NoError(t, err)
	assert.Equal(t, "2", st.SyncKey)
}

func TestUserOperations(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		id, err := store.CreateUser(ctx, &models.User{
			Username:     "alice",
			PasswordHash: "$2a$10$fake",
			Enabled:      true,
			DisplayName:  "Alice Levi",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		user, err := store.GetUser(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "Alice Levi", user.GetDisplayName())
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := store.CreateUser(ctx, &models.User{Username: "alice", PasswordHash: "x"})
		assert.ErrorIs(t, err, models.ErrDuplicateUser)
	})

	t.Run("set password", func(t *testing.T) {
		require.NoError(t, store.SetPassword(ctx, "alice", "$2a$10$new"))
		user, err := store.GetUser(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "$2a$10$new", user.PasswordHash)

		err = store.SetPassword(ctx, "nobody", "x")
		assert.ErrorIs(t, err, models.ErrUserNotFound)
	})

	t.Run("search", func(t *testing.T) {
		_, err := store.CreateUser(ctx, &models.User{Username: "bob", PasswordHash: "x"})
		require.NoError(t, err)

		users, err := store.SearchUsers(ctx, "ali", 10)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "alice", users[0].Username)

		users, err = store.SearchUsers(ctx, "zzz", 10)
		require.NoError(t, err)
		assert.Empty(t, users)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteUser(ctx, "bob"))
		_, err := store.GetUser(ctx, "bob")
		assert.ErrorIs(t, err, models.ErrUserNotFound)
	})
}
