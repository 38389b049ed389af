package store

import (
	"context"
	"time"

	"github.com/veilmail/easgate/pkg/state/models"
)

// ============================================
// USER OPERATIONS
// ============================================

// GetUser returns the account for username.
func (s *GORMStore) GetUser(ctx context.Context, username string) (*models.User, error) {
	return getByField[models.User](s.db, ctx, "username", username, models.ErrUserNotFound)
}

// ListUsers returns all accounts.
func (s *GORMStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	return listAll[models.User](s.db, ctx)
}

// CreateUser stores a new account, generating an id when the caller
// supplied none.
func (s *GORMStore) CreateUser(ctx context.Context, user *models.User) (string, error) {
	user.CreatedAt = time.Now()
	return createWithID(s.db, ctx, user, func(u *models.User, id string) { u.ID = id }, user.ID, models.ErrDuplicateUser)
}

// SetPassword replaces the stored password hash for username.
func (s *GORMStore) SetPassword(ctx context.Context, username, passwordHash string) error {
	result := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Update("password_hash", passwordHash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

// TouchLastLogin records a successful authentication.
func (s *GORMStore) TouchLastLogin(ctx context.Context, username string) error {
	now := time.Now()
	return s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Update("last_login", &now).Error
}

// DeleteUser removes an account.
func (s *GORMStore) DeleteUser(ctx context.Context, username string) error {
	return deleteByField[models.User](s.db, ctx, "username", username, models.ErrUserNotFound)
}

// SearchUsers returns accounts whose username or display name contains
// query, for GAL lookups. Matching is case-insensitive; an empty result
// is valid.
func (s *GORMStore) SearchUsers(ctx context.Context, query string, limit int) ([]*models.User, error) {
	var users []*models.User
	q := s.db.WithContext(ctx).
		Where("username LIKE ? OR display_name LIKE ?", "%"+query+"%", "%"+query+"%").
		Order("username")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
