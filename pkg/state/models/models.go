// Package models defines the persistent entities of the sync state
// database: provisioned devices, per-collection sync state, folder
// hierarchy state, and the user accounts backing Basic authentication.
package models

// AllModels returns all GORM models for auto-migration.
func AllModels() []any {
	return []any{
		&User{},
		&Device{},
		&CollectionState{},
		&FolderHierarchyState{},
	}
}
