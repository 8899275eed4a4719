// Package usecase implements business logic orchestration for the
// authentication flows: signup with one-time codes, login, token refresh,
// and global logout.
package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/authd/internal/auth/domain"
	userDomain "github.com/allisson/authd/internal/user/domain"
)

// normalizeEmail canonicalizes an email for lookups, inserts, and throttle
// keys. Addresses are matched case-insensitively, so "A@x.com" and "a@x.com"
// always mean the same account and charge the same attempt budget.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LoginInput contains the credentials and request origin for a login attempt.
type LoginInput struct {
	Email    string
	Password string
	ClientIP string
}

// RequestCreationCodeInput contains the parameters for starting a signup.
type RequestCreationCodeInput struct {
	Email string
}

// RequestCreationCodeOutput carries the token a client must present together
// with the one-time code. The code itself travels out of band.
type RequestCreationCodeOutput struct {
	CreationToken string
}

// CreateAccountInput contains the parameters for completing a signup.
type CreateAccountInput struct {
	CreationToken string
	Code          string
	Email         string
	Password      string
}

// SessionUseCase defines the credential and token lifecycle operations.
type SessionUseCase interface {
	// Login verifies credentials and issues a fresh token pair. Failed
	// attempts are throttled per (email, client IP) pair.
	Login(ctx context.Context, input *LoginInput) (*authDomain.TokenPair, error)

	// Refresh exchanges a refresh token for a new pair. A refresh token is
	// single-use; presenting one twice is treated as theft.
	Refresh(ctx context.Context, refreshToken string) (*authDomain.TokenPair, error)

	// Authenticate validates an access token locally and returns its claims.
	Authenticate(accessToken string) (*authDomain.Claims, error)

	// LogoutEverywhere revokes every outstanding refresh token for the user.
	LogoutEverywhere(ctx context.Context, userID uuid.UUID) error
}

// SignupUseCase defines the two-step account creation flow.
type SignupUseCase interface {
	// RequestCreationCode starts a signup: generates a one-time code,
	// delivers it to the email, and returns the token binding the attempt to
	// the pending code session.
	RequestCreationCode(ctx context.Context, input *RequestCreationCodeInput) (*RequestCreationCodeOutput, error)

	// CreateAccount completes a signup with the creation token, the received
	// code, and the chosen credentials. On success the account is created and
	// an initial token pair is issued.
	CreateAccount(ctx context.Context, input *CreateAccountInput) (*authDomain.TokenPair, error)
}

// UserRepository defines the user persistence operations the flows need.
type UserRepository interface {
	Create(ctx context.Context, user *userDomain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userDomain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	IncrementTokenVersion(ctx context.Context, id uuid.UUID) (int, error)
}

// LoginThrottle tracks failed login attempts per (email, client IP) pair.
type LoginThrottle interface {
	Check(ctx context.Context, email, clientIP string) error
	RecordFailure(ctx context.Context, email, clientIP string) error
	Clear(ctx context.Context, email, clientIP string) error
}

// CodeSessionRepository stores pending signup verifications.
type CodeSessionRepository interface {
	Create(ctx context.Context, code string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, verifyID, code string) error
}

// RefreshBlacklist records consumed refresh token IDs.
type RefreshBlacklist interface {
	MarkUsed(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error)
}

// CodeNotifier delivers one-time codes to their recipients.
type CodeNotifier interface {
	SendCode(ctx context.Context, email, code string) error
}
