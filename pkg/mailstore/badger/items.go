package badger

import (
	"context"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/veilmail/easgate/pkg/mailstore"
)

// AddItem stores item for user, assigning the next monotonic id when
// item.ID is zero, and signals subscribers watching its folder. Returns
// the assigned id.
func (s *BadgerMailStore) AddItem(ctx context.Context, user string, item *mailstore.Item) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	stored := *item
	if stored.ID == 0 {
		id, err := s.nextID(user)
		if err != nil {
			return 0, err
		}
		stored.ID = id
	}

	data, err := encodeItem(&stored)
	if err != nil {
		return 0, err
	}

	err = s.db.Update(func(txn *badgerdb.Txn) error {
		if err := txn.Set(keyItem(user, stored.Folder, stored.ID), data); err != nil {
			return fmt.Errorf("failed to store item %d: %w", stored.ID, err)
		}
		if err := txn.Set(keyIndex(user, stored.ID), []byte(stored.Folder)); err != nil {
			return fmt.Errorf("failed to index item %d: %w", stored.ID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.Notify(user, stored.Folder)
	return stored.ID, nil
}

// ListFolder implements mailstore.Store. A reverse prefix scan over the
// zero-padded item keys yields the newest-first order directly.
func (s *BadgerMailStore) ListFolder(ctx context.Context, user, folder string, limit int) ([]*mailstore.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []*mailstore.Item
	prefix := keyItemFolderPrefix(user, folder)

	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the last possible key in the prefix range.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(items) >= limit {
				return nil
			}
			err := it.Item().Value(func(val []byte) error {
				item, err := decodeItem(val)
				if err != nil {
					return err
				}
				items = append(items, item)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folder, err)
	}

	return items, nil
}

// GetItems implements mailstore.Store. Missing ids are skipped.
func (s *BadgerMailStore) GetItems(ctx context.Context, user string, ids []int64) ([]*mailstore.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []*mailstore.Item

	err := s.db.View(func(txn *badgerdb.Txn) error {
		for _, id := range ids {
			idxItem, err := txn.Get(keyIndex(user, id))
			if err == badgerdb.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}

			var folder string
			if err := idxItem.Value(func(val []byte) error {
				folder = string(val)
				return nil
			}); err != nil {
				return err
			}

			dataItem, err := txn.Get(keyItem(user, folder, id))
			if err == badgerdb.ErrKeyNotFound {
				continue
			}
			if err != nil {
				return err
			}

			if err := dataItem.Value(func(val []byte) error {
				item, err := decodeItem(val)
				if err != nil {
					return err
				}
				items = append(items, item)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}

	return items, nil
}
