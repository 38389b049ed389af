//go:build integration

package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/veilmail/easgate/pkg/state/models"
)

// sharedContainer is started once in TestMain and shared by all postgres
// tests in the package.
var sharedContainer *tcpostgres.PostgresContainer

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("easgate_test"),
		tcpostgres.WithUsername("easgate_test"),
		tcpostgres.WithPassword("easgate_test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}
	sharedContainer = container

	code := m.Run()

	_ = container.Terminate(ctx)
	os.Exit(code)
}

// createPostgresStore connects a GORMStore to the shared container.
func createPostgresStore(t *testing.T) *GORMStore {
	t.Helper()
	ctx := context.Background()

	host, err := sharedContainer.Host(ctx)
	require.NoError(t, err)
	port, err := sharedContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	store, err := New(&Config{
		Type: DatabaseTypePostgres,
		Postgres: PostgresConfig{
			Host:     host,
			Port:     port.Int(),
			Database: "easgate_test",
			User:     "easgate_test",
			Password: "easgate_test",
			SSLMode:  "disable",
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPostgresCollectionState(t *testing.T) {
	store := createPostgresStore(t)
	ctx := context.Background()

	_, err := store.Mutate(ctx, "alice", "PGDEV", "1", func(st *models.CollectionState) error {
		st.SyncKey = "1"
		st.Counter = 1
		st.SetPending("1", []int64{2, 1})
		return nil
	})
	require.NoError(t, err)

	st, err := store.CommitPending(ctx, "alice", "PGDEV", "1")
	require.NoError(t, err)
	assert.Equal(t, "1", st.SyncKey)
	assert.Equal(t, []int64{1, 2}, st.SyncedIDList())
	assert.False(t, st.HasPending())
}

func TestPostgresDeviceUpsert(t *testing.T) {
	store := createPostgresStore(t)
	ctx := context.Background()

	first, err := store.GetOrCreateDevice(ctx, "alice", "PGDEV2", "iPhone")
	require.NoError(t, err)
	second, err := store.GetOrCreateDevice(ctx, "alice", "PGDEV2", "iPhone")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// Duplicate usernames map onto the postgres unique constraint path.
	_, err = store.CreateUser(ctx, &models.User{Username: "pg-dup", PasswordHash: "x"})
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, &models.User{Username: "pg-dup", PasswordHash: "x"})
	assert.ErrorIs(t, err, models.ErrDuplicateUser)
}
