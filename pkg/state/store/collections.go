package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/veilmail/easgate/pkg/state/models"
)

// ============================================
// COLLECTION STATE OPERATIONS
// ============================================
//
// Every mutation runs load-modify-store inside one transaction. The sync
// engine additionally serializes requests per (user, device, collection),
// so a transaction never races another writer for the same row.

// LoadState returns the collection state, or a fresh zero state (SyncKey
// "0", nothing synced, no pending batch) if the row does not exist yet.
// The zero state is not persisted.
func (s *GORMStore) LoadState(ctx context.Context, user, deviceID, collectionID string) (*models.CollectionState, error) {
	var st models.CollectionState
	err := s.db.WithContext(ctx).
		Where("username = ? AND device_id = ? AND collection_id = ?", user, deviceID, collectionID).
		First(&st).Error
	if err == nil {
		return &st, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return zeroState(user, deviceID, collectionID), nil
}

// Mutate atomically applies fn to the collection state and persists the
// result. The state passed to fn is the current row or a zero state.
func (s *GORMStore) Mutate(ctx context.Context, user, deviceID, collectionID string, fn func(*models.CollectionState) error) (*models.CollectionState, error) {
	var out *models.CollectionState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var st models.CollectionState
		err := tx.Where("username = ? AND device_id = ? AND collection_id = ?", user, deviceID, collectionID).
			First(&st).Error
		if err == gorm.ErrRecordNotFound {
			st = *zeroState(user, deviceID, collectionID)
		} else if err != nil {
			return err
		}

		if err := fn(&st); err != nil {
			return err
		}

		if err := tx.Save(&st).Error; err != nil {
			return err
		}
		out = &st
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResetState returns the collection to its zero state: SyncKey "0",
// counter 0, nothing synced, no pending batch.
func (s *GORMStore) ResetState(ctx context.Context, user, deviceID, collectionID string) (*models.CollectionState, error) {
	return s.Mutate(ctx, user, deviceID, collectionID, func(st *models.CollectionState) error {
		st.SyncKey = "0"
		st.Counter = 0
		st.SetSyncedIDs(nil)
		st.ClearPending()
		return nil
	})
}

// StagePending records a sent-but-unacknowledged batch under newKey.
func (s *GORMStore) StagePending(ctx context.Context, user, deviceID, collectionID, newKey string, ids []int64) error {
	_, err := s.Mutate(ctx, user, deviceID, collectionID, func(st *models.CollectionState) error {
		st.SetPending(newKey, ids)
		return nil
	})
	return err
}

// CommitPending merges the pending batch into the acknowledged set,
// advances SyncKey to the pending key, and clears the pending columns.
// Returns models.ErrNoPendingBatch when nothing is staged.
func (s *GORMStore) CommitPending(ctx context.Context, user, deviceID, collectionID string) (*models.CollectionState, error) {
	return s.Mutate(ctx, user, deviceID, collectionID, func(st *models.CollectionState) error {
		if !st.HasPending() {
			return models.ErrNoPendingBatch
		}
		st.SyncKey = *st.PendingSyncKey
		st.SetSyncedIDs(append(st.SyncedIDList(), st.PendingIDList()...))
		st.ClearPending()
		return nil
	})
}

func zeroState(user, deviceID, collectionID string) *models.CollectionState {
	return &models.CollectionState{
		Username:     user,
		DeviceID:     deviceID,
		CollectionID: collectionID,
		SyncKey:      "0",
		SyncedIDs:    "[]",
	}
}
