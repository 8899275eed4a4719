package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"

	authDomain "github.com/allisson/authd/internal/auth/domain"
	authService "github.com/allisson/authd/internal/auth/service"
	"github.com/allisson/authd/internal/config"
	"github.com/allisson/authd/internal/database"
	userDomain "github.com/allisson/authd/internal/user/domain"
)

// sessionUseCase implements SessionUseCase.
type sessionUseCase struct {
	config          *config.Config
	txManager       database.TxManager
	userRepo        UserRepository
	throttle        LoginThrottle
	blacklist       RefreshBlacklist
	jwtService      authService.JWTService
	passwordService authService.PasswordService
}

// NewSessionUseCase creates a new SessionUseCase with the provided dependencies.
func NewSessionUseCase(
	config *config.Config,
	txManager database.TxManager,
	userRepo UserRepository,
	throttle LoginThrottle,
	blacklist RefreshBlacklist,
	jwtService authService.JWTService,
	passwordService authService.PasswordService,
) SessionUseCase {
	return &sessionUseCase{
		config:          config,
		txManager:       txManager,
		userRepo:        userRepo,
		throttle:        throttle,
		blacklist:       blacklist,
		jwtService:      jwtService,
		passwordService: passwordService,
	}
}

// Login verifies the email/password pair and issues a fresh token pair.
//
// Security Notes:
//   - An unknown email and a wrong password return the same
//     ErrInvalidCredentials, so responses never reveal whether an account
//     exists.
//   - Both outcomes charge the throttle for the (email, client IP) pair; a
//     successful login clears it.
func (s *sessionUseCase) Login(ctx context.Context, input *LoginInput) (*authDomain.TokenPair, error) {
	input.Email = normalizeEmail(input.Email)

	if err := s.throttle.Check(ctx, input.Email, input.ClientIP); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, userDomain.ErrUserNotFound) {
			return nil, s.failLogin(ctx, input)
		}
		return nil, err
	}

	if !s.passwordService.Verify(input.Password, user.PasswordHash) {
		return nil, s.failLogin(ctx, input)
	}

	if err := s.throttle.Clear(ctx, input.Email, input.ClientIP); err != nil {
		return nil, err
	}

	return s.issuePair(ctx, user)
}

// failLogin charges the throttle and returns the generic credential error.
func (s *sessionUseCase) failLogin(ctx context.Context, input *LoginInput) error {
	if err := s.throttle.RecordFailure(ctx, input.Email, input.ClientIP); err != nil {
		return err
	}
	return authDomain.ErrInvalidCredentials
}

// Refresh exchanges a refresh token for a new token pair.
//
// The token ID is claimed in the blacklist before anything else: a second
// presentation of the same token fails as reuse even if the first exchange is
// still in flight. After the claim the token version is compared against the
// live user record, so tokens issued before a global logout are rejected.
func (s *sessionUseCase) Refresh(ctx context.Context, refreshToken string) (*authDomain.TokenPair, error) {
	claims, err := s.jwtService.Verify(refreshToken, authDomain.RefreshToken)
	if err != nil {
		return nil, err
	}

	firstUse, err := s.blacklist.MarkUsed(ctx, claims.ID, claims.ExpiresAt.Time)
	if err != nil {
		return nil, err
	}
	if !firstUse {
		return nil, authDomain.ErrTokenReuse
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, authDomain.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userDomain.ErrUserNotFound) {
			return nil, authDomain.ErrInvalidToken
		}
		return nil, err
	}

	if claims.TokenVersion != user.TokenVersion {
		return nil, authDomain.ErrSessionRevoked
	}

	return s.issuePair(ctx, user)
}

// Authenticate validates an access token. Verification is fully local: no
// KMS, database, or cache store round trip.
func (s *sessionUseCase) Authenticate(accessToken string) (*authDomain.Claims, error) {
	return s.jwtService.Verify(accessToken, authDomain.AccessToken)
}

// LogoutEverywhere bumps the user's token version. Outstanding access tokens
// stay valid until they expire; every refresh token dies immediately.
//
// The bump runs in a transaction: on MySQL the new version is read back with
// a separate statement and must not interleave with a concurrent bump.
func (s *sessionUseCase) LogoutEverywhere(ctx context.Context, userID uuid.UUID) error {
	return s.txManager.WithTx(ctx, func(ctx context.Context) error {
		_, err := s.userRepo.IncrementTokenVersion(ctx, userID)
		return err
	})
}

// issuePair signs a fresh access and refresh token for the user.
func (s *sessionUseCase) issuePair(ctx context.Context, user *userDomain.User) (*authDomain.TokenPair, error) {
	accessClaims := authDomain.NewAccessClaims(user.ID, user.TokenVersion, user.Role, s.config.AccessTokenTTL)
	accessToken, err := s.jwtService.Sign(ctx, accessClaims)
	if err != nil {
		return nil, err
	}

	refreshClaims := authDomain.NewRefreshClaims(user.ID, user.TokenVersion, user.Role, s.config.RefreshTokenTTL)
	refreshToken, err := s.jwtService.Sign(ctx, refreshClaims)
	if err != nil {
		return nil, err
	}

	return &authDomain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
