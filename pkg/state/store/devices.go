package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/veilmail/easgate/pkg/state/models"
)

// ============================================
// DEVICE OPERATIONS
// ============================================

// GetOrCreateDevice returns the partnership row for (user, deviceID),
// creating it unprovisioned on first contact. LastSeen is refreshed on
// every call.
func (s *GORMStore) GetOrCreateDevice(ctx context.Context, user, deviceID, deviceType string) (*models.Device, error) {
	device := models.Device{
		Username:   user,
		DeviceID:   deviceID,
		DeviceType: deviceType,
		PolicyKey:  models.UnprovisionedPolicyKey,
		LastSeen:   time.Now(),
	}

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "username"}, {Name: "device_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"last_seen"}),
		}).
		Create(&device).Error
	if err != nil {
		return nil, err
	}

	// Re-read: the upsert path leaves provisioning fields from the
	// conflict target unpopulated on some drivers.
	var out models.Device
	err = s.db.WithContext(ctx).
		Where("username = ? AND device_id = ?", user, deviceID).
		First(&out).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrDeviceNotFound)
	}
	return &out, nil
}

// GetDevice returns the partnership row for (user, deviceID).
func (s *GORMStore) GetDevice(ctx context.Context, user, deviceID string) (*models.Device, error) {
	var device models.Device
	err := s.db.WithContext(ctx).
		Where("username = ? AND device_id = ?", user, deviceID).
		First(&device).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrDeviceNotFound)
	}
	return &device, nil
}

// MarkProvisioned records Provision acknowledgment: the device becomes
// provisioned and carries the issued policy key.
func (s *GORMStore) MarkProvisioned(ctx context.Context, user, deviceID string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Device{}).
		Where("username = ? AND device_id = ?", user, deviceID).
		Updates(map[string]any{
			"is_provisioned": true,
			"policy_key":     models.ProvisionedPolicyKey,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrDeviceNotFound
	}
	return nil
}

// ListDevices returns all partnerships, newest first.
func (s *GORMStore) ListDevices(ctx context.Context) ([]*models.Device, error) {
	var devices []*models.Device
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&devices).Error
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// ForgetDevice removes a partnership and all its sync state, forcing the
// device through Provision and a full resync on next contact.
func (s *GORMStore) ForgetDevice(ctx context.Context, user, deviceID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("username = ? AND device_id = ?", user, deviceID).
			Delete(&models.Device{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.ErrDeviceNotFound
		}

		if err := tx.Where("username = ? AND device_id = ?", user, deviceID).
			Delete(&models.CollectionState{}).Error; err != nil {
			return err
		}
		return tx.Where("username = ? AND device_id = ?", user, deviceID).
			Delete(&models.FolderHierarchyState{}).Error
	})
}
