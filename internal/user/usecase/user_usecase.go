package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/authd/internal/user/domain"
)

// userUseCase implements UserUseCase.
type userUseCase struct {
	userRepo UserRepository
	logger   *slog.Logger
}

// NewUserUseCase creates a new user use case.
func NewUserUseCase(userRepo UserRepository, logger *slog.Logger) UserUseCase {
	return &userUseCase{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Get returns the user identified by id.
func (u *userUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := u.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user, nil
}
