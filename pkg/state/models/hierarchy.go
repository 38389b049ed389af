package models

import "time"

// FolderHierarchyState is the per-(user, device) FolderSync position.
// The folder hierarchy itself is static, so only the key advances.
type FolderHierarchyState struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	Username string `gorm:"uniqueIndex:idx_user_device_hier;not null;size:255" json:"username"`
	DeviceID string `gorm:"uniqueIndex:idx_user_device_hier;not null;size:64" json:"device_id"`

	SyncKey string `gorm:"default:0;size:16" json:"sync_key"`
	Counter int    `gorm:"default:0" json:"counter"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for FolderHierarchyState.
func (FolderHierarchyState) TableName() string {
	return "folder_hierarchy_states"
}
