package domain

import (
	"github.com/allisson/authd/internal/errors"
)

// Authentication errors. Credential failures collapse into a single generic
// error so responses never reveal whether an account exists.
var (
	// ErrInvalidCredentials indicates the email/password combination did not
	// match an active account.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")

	// ErrInvalidToken indicates a token that failed signature or claim
	// validation.
	ErrInvalidToken = errors.Wrap(errors.ErrUnauthorized, "invalid token")

	// ErrTokenExpired indicates a structurally valid token past its expiry.
	ErrTokenExpired = errors.Wrap(errors.ErrUnauthorized, "token expired")

	// ErrUnknownKeyVersion indicates a token signed with a key version that
	// has aged out of the verification window.
	ErrUnknownKeyVersion = errors.Wrap(errors.ErrUnauthorized, "unknown signing key version")

	// ErrSessionRevoked indicates a refresh token whose version predates a
	// global logout.
	ErrSessionRevoked = errors.Wrap(errors.ErrUnauthorized, "session revoked")

	// ErrTokenReuse indicates a refresh token presented more than once. This
	// is treated as evidence of theft, not as a stale client.
	ErrTokenReuse = errors.Wrap(errors.ErrForbidden, "refresh token reuse detected")

	// ErrCodeSessionGone indicates the one-time code session is absent,
	// expired, or exhausted. All three cases are indistinguishable to the
	// caller.
	ErrCodeSessionGone = errors.Wrap(errors.ErrInvalidInput, "verification code expired or too many attempts")

	// ErrIncorrectCode indicates a wrong one-time code with attempts still
	// remaining.
	ErrIncorrectCode = errors.Wrap(errors.ErrInvalidInput, "incorrect verification code")

	// ErrEmailTaken indicates an account already exists for the email.
	ErrEmailTaken = errors.Wrap(errors.ErrConflict, "email already registered")
)
