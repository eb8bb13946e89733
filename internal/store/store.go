// Package store defines the credential store contract shared by the
// PostgreSQL, MongoDB and in-memory drivers.
//
// Drivers translate their native errors into ErrNotFound and ErrDuplicate so
// the service layer never inspects driver types.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/example/farmfresh/internal/models"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")

	// ErrDuplicate is returned when the email uniqueness constraint is hit.
	ErrDuplicate = errors.New("user with this email already exists")
)

// Page limits a listing. The zero Page returns everything.
type Page struct {
	Limit  int
	Offset int
}

// UserStore persists user records.
type UserStore interface {
	// Create assigns an ID and timestamps and inserts u.
	Create(ctx context.Context, u *models.User) error

	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByResetToken returns the user holding tokenHash with an expiry after now.
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)

	// ListByRole returns users of a role, newest first.
	ListByRole(ctx context.Context, role models.Role, page Page) ([]*models.User, error)

	// Update applies changes and returns the stored result.
	Update(ctx context.Context, id string, changes models.UserChanges) (*models.User, error)

	// UpdatePassword stores a new hash and clears any pending reset token.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// ConsumeResetToken stores a new hash only while tokenHash is still the
	// user's pending token with an expiry after now, and clears it in the same
	// write. It returns ErrNotFound when the token no longer matches.
	ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error

	// SetResetToken replaces any pending reset token.
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearResetToken(ctx context.Context, id string) error

	Delete(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}
