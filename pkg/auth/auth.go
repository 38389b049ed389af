// Package auth provides password hashing and the AuthService interface
// the HTTP layer authenticates against. The reference implementation
// verifies Basic credentials against the user table in the state store.
package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/veilmail/easgate/pkg/state/models"
)

// DefaultBcryptCost is the default cost parameter for bcrypt hashing.
// Cost 10 provides a good balance between security and performance.
const DefaultBcryptCost = 10

// ErrInvalidCredentials is returned when credentials are invalid.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrPasswordTooShort is returned when a password is too short.
var ErrPasswordTooShort = errors.New("password must be at least 8 characters")

// ErrPasswordTooLong is returned when a password is too long.
// bcrypt has a maximum input length of 72 bytes.
var ErrPasswordTooLong = errors.New("password must be at most 72 characters")

// MinPasswordLength is the minimum required password length.
const MinPasswordLength = 8

// MaxPasswordLength is the maximum allowed password length.
// bcrypt silently truncates at 72 bytes, so we enforce this limit.
const MaxPasswordLength = 72

// AuthService authenticates credentials carried on inbound requests.
type AuthService interface {
	// Authenticate verifies username/password and returns the account.
	// Failures of any kind surface as ErrInvalidCredentials so callers
	// cannot distinguish unknown users from wrong passwords.
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

// UserStore is the slice of the state store Authenticate needs.
type UserStore interface {
	GetUser(ctx context.Context, username string) (*models.User, error)
	TouchLastLogin(ctx context.Context, username string) error
}

// Service is the store-backed AuthService.
type Service struct {
	store UserStore
}

// NewService returns an AuthService over the given user store.
func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// Authenticate implements AuthService.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Enabled {
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	_ = s.store.TouchLastLogin(ctx, username)
	return user, nil
}

// ValidatePassword checks password length constraints.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	return nil
}

// HashPassword creates a bcrypt hash of the given password.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), DefaultBcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// VerifyPassword checks a plaintext password against a bcrypt hash.
func VerifyPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
