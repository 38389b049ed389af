// Package badger implements a durable mailstore.Store on BadgerDB. It is
// the reference store for standalone deployments; installations fronting
// an existing mail system implement mailstore.Store against that system
// instead.
package badger

import (
	"fmt"
	"sync"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/veilmail/easgate/pkg/mailstore"
)

// BadgerMailStore is a mailstore.Store backed by a BadgerDB instance.
type BadgerMailStore struct {
	mailstore.Notifier

	db *badgerdb.DB

	mu   sync.Mutex
	seqs map[string]*badgerdb.Sequence // user -> id sequence
}

// NewBadgerMailStore opens (or creates) a store at path.
func NewBadgerMailStore(path string) (*BadgerMailStore, error) {
	opts := badgerdb.DefaultOptions(path)
	opts.Logger = nil
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open mail store at %s: %w", path, err)
	}
	return &BadgerMailStore{
		db:   db,
		seqs: make(map[string]*badgerdb.Sequence),
	}, nil
}

// Close releases all id sequences and closes the database.
func (s *BadgerMailStore) Close() error {
	s.mu.Lock()
	for _, seq := range s.seqs {
		_ = seq.Release()
	}
	s.seqs = nil
	s.mu.Unlock()
	return s.db.Close()
}

// nextID reserves the next monotonic item id for a user. Sequences are
// cached per user and leased in small bands so restarts stay monotonic.
func (s *BadgerMailStore) nextID(user string) (int64, error) {
	s.mu.Lock()
	seq, ok := s.seqs[user]
	if !ok {
		var err error
		seq, err = s.db.GetSequence(keySequence(user), 64)
		if err != nil {
			s.mu.Unlock()
			return 0, fmt.Errorf("failed to open id sequence for %s: %w", user, err)
		}
		s.seqs[user] = seq
	}
	s.mu.Unlock()

	n, err := seq.Next()
	if err != nil {
		return 0, fmt.Errorf("failed to reserve item id: %w", err)
	}
	// Sequence starts at 0; item ids start at 1.
	return int64(n) + 1, nil
}
