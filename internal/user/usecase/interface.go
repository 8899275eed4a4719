// Package usecase implements the business logic for user profile
// operations.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/allisson/authd/internal/user/domain"
)

// UserUseCase defines the user profile operations.
type UserUseCase interface {
	// Get returns the user identified by id, or ErrUserNotFound.
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// UserRepository defines the persistence operations the profile flows need.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
