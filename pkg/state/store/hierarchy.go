package store

import (
	"context"
	"strconv"

	"gorm.io/gorm"

	"github.com/veilmail/easgate/pkg/state/models"
)

// ============================================
// FOLDER HIERARCHY OPERATIONS
// ============================================

// LoadHierarchy returns the FolderSync state for (user, deviceID), or a
// zero state (SyncKey "0") if the device has never folder-synced.
func (s *GORMStore) LoadHierarchy(ctx context.Context, user, deviceID string) (*models.FolderHierarchyState, error) {
	var st models.FolderHierarchyState
	err := s.db.WithContext(ctx).
		Where("username = ? AND device_id = ?", user, deviceID).
		First(&st).Error
	if err == nil {
		return &st, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &models.FolderHierarchyState{
		Username: user,
		DeviceID: deviceID,
		SyncKey:  "0",
	}, nil
}

// ResetHierarchy rewinds the FolderSync state to key "1", the position
// after a client-initiated reset (client key "0").
func (s *GORMStore) ResetHierarchy(ctx context.Context, user, deviceID string) (*models.FolderHierarchyState, error) {
	var out *models.FolderHierarchyState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var st models.FolderHierarchyState
		err := tx.Where("username = ? AND device_id = ?", user, deviceID).
			First(&st).Error
		if err == gorm.ErrRecordNotFound {
			st = models.FolderHierarchyState{Username: user, DeviceID: deviceID}
		} else if err != nil {
			return err
		}

		st.Counter = 1
		st.SyncKey = "1"

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

// AdvanceHierarchy bumps the FolderSync key and returns the new state.
// Used on hierarchy reset (client key "0") and on future hierarchy
// changes.
func (s *GORMStore) AdvanceHierarchy(ctx context.Context, user, deviceID string) (*models.FolderHierarchyState, error) {
	var out *models.FolderHierarchyState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var st models.FolderHierarchyState
		err := tx.Where("username = ? AND device_id = ?", user, deviceID).
			First(&st).Error
		if err == gorm.ErrRecordNotFound {
			st = models.FolderHierarchyState{Username: user, DeviceID: deviceID}
		} else if err != nil {
			return err
		}

		st.Counter++
		st.SyncKey = strconv.Itoa(st.Counter)

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
