package models

import "errors"

// Common errors for state store operations.
var (
	// User errors
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("user already exists")
	ErrUserDisabled  = errors.New("user account is disabled")

	// Device errors
	ErrDeviceNotFound = errors.New("device not found")

	// Sync state errors
	ErrNoPendingBatch = errors.New("no pending batch to commit")
)
