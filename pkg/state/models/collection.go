package models

import (
	"encoding/json"
	"slices"
	"time"
)

// SyncedIDCap bounds the acknowledged-id list per collection. Older ids
// fall below any active pagination window, so dropping them is safe.
const SyncedIDCap = 2000

// CollectionState is the per-(user, device, collection) sync position.
//
// sync_key holds the last key the client confirmed; counter is its
// integer form and tracks the latest key issued. The pending_* columns
// describe a batch sent but not yet acknowledged: pending_sync_key is
// non-null iff such a batch exists, and pending ids never overlap
// synced_ids while pending.
//
// Id lists are stored as JSON-encoded text so the row stays portable
// across SQLite and PostgreSQL.
type CollectionState struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	Username     string `gorm:"uniqueIndex:idx_user_device_coll;not null;size:255" json:"username"`
	DeviceID     string `gorm:"uniqueIndex:idx_user_device_coll;not null;size:64" json:"device_id"`
	CollectionID string `gorm:"uniqueIndex:idx_user_device_coll;not null;size:64" json:"collection_id"`

	SyncKey string `gorm:"default:0;size:16" json:"sync_key"`
	Counter int    `gorm:"default:0" json:"counter"`

	SyncedIDs      string  `json:"-"` // JSON []int64
	PendingSyncKey *string `gorm:"size:16" json:"pending_sync_key,omitempty"`
	PendingMaxID   *int64  `json:"pending_max_id,omitempty"`
	PendingItemIDs *string `json:"-"` // JSON []int64, null iff no pending batch

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for CollectionState.
func (CollectionState) TableName() string {
	return "collection_states"
}

// HasPending reports whether a batch is awaiting acknowledgment.
func (s *CollectionState) HasPending() bool {
	return s.PendingSyncKey != nil
}

// SyncedIDList decodes the acknowledged-id column. A corrupt or empty
// column decodes as the empty list.
func (s *CollectionState) SyncedIDList() []int64 {
	return decodeIDList(s.SyncedIDs)
}

// SetSyncedIDs encodes ids into the acknowledged-id column, keeping only
// the SyncedIDCap most recent (highest) ids. The stored list is kept in
// ascending order.
func (s *CollectionState) SetSyncedIDs(ids []int64) {
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	slices.Sort(sorted)
	if len(sorted) > SyncedIDCap {
		sorted = sorted[len(sorted)-SyncedIDCap:]
	}
	s.SyncedIDs = encodeIDList(sorted)
}

// PendingIDList decodes the pending-batch id column.
func (s *CollectionState) PendingIDList() []int64 {
	if s.PendingItemIDs == nil {
		return nil
	}
	return decodeIDList(*s.PendingItemIDs)
}

// SetPending stages a batch: key, its item ids, and their maximum.
func (s *CollectionState) SetPending(key string, ids []int64) {
	s.PendingSyncKey = &key
	encoded := encodeIDList(ids)
	s.PendingItemIDs = &encoded
	var max int64
	for _, id := range ids {
		if id > max {
			max = id
		}
	}
	s.PendingMaxID = &max
}

// ClearPending resets the pending columns to null.
func (s *CollectionState) ClearPending() {
	s.PendingSyncKey = nil
	s.PendingItemIDs = nil
	s.PendingMaxID = nil
}

func encodeIDList(ids []int64) string {
	if len(ids) == 0 {
		return "[]"
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeIDList(data string) []int64 {
	if data == "" {
		return nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil
	}
	return ids
}
