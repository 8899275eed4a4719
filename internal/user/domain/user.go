// Package domain defines the core user entity and its errors.
package domain

import (
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/authd/internal/auth/domain"
	"github.com/allisson/authd/internal/errors"
)

// User represents a registered account. PasswordHash is the encoded Argon2id
// hash; TokenVersion starts at 1 and increments on every global logout,
// invalidating all previously issued refresh tokens.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         authDomain.Role
	TokenVersion int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Domain-specific errors for user operations.
var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrUserAlreadyExists indicates a user with the same email already exists.
	ErrUserAlreadyExists = errors.Wrap(errors.ErrConflict, "user already exists")
)
