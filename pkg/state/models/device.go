package models

import "time"

// Policy key values exchanged during the Provision handshake.
const (
	// UnprovisionedPolicyKey is carried by devices that have not
	// completed provisioning.
	UnprovisionedPolicyKey = "0"

	// ProvisionedPolicyKey is issued on Provision acknowledgment.
	ProvisionedPolicyKey = "1234567890"
)

// Device is one ActiveSync partnership: a (user, device id) pair created
// on the first authenticated request and updated when provisioning
// completes.
type Device struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	Username      string    `gorm:"uniqueIndex:idx_user_device;not null;size:255" json:"username"`
	DeviceID      string    `gorm:"uniqueIndex:idx_user_device;not null;size:64" json:"device_id"`
	DeviceType    string    `gorm:"size:64" json:"device_type"`
	IsProvisioned bool      `gorm:"default:false" json:"is_provisioned"`
	PolicyKey     string    `gorm:"default:0;size:16" json:"policy_key"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	LastSeen      time.Time `json:"last_seen"`
}

// TableName returns the table name for Device.
func (Device) TableName() string {
	return "devices"
}
