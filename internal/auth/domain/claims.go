package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the signed token payload. Access and refresh tokens carry the
// subject, token version, and role; creation-code tokens carry only the
// verification session ID. The embedded registered claims provide sub, jti,
// and exp.
type Claims struct {
	TokenType    TokenType `json:"type"`
	TokenVersion int       `json:"ver,omitempty"`
	Role         Role      `json:"role,omitempty"`
	VerifyID     string    `json:"vid,omitempty"`

	jwt.RegisteredClaims
}

// NewAccessClaims builds the claims for a short-lived API access token.
func NewAccessClaims(userID uuid.UUID, tokenVersion int, role Role, ttl time.Duration) Claims {
	return newSessionClaims(AccessToken, userID, tokenVersion, role, ttl)
}

// NewRefreshClaims builds the claims for a single-use refresh token.
func NewRefreshClaims(userID uuid.UUID, tokenVersion int, role Role, ttl time.Duration) Claims {
	return newSessionClaims(RefreshToken, userID, tokenVersion, role, ttl)
}

// NewCreationCodeClaims builds the claims binding a signup attempt to its
// one-time code session.
func NewCreationCodeClaims(verifyID string, ttl time.Duration) Claims {
	now := time.Now().UTC()
	return Claims{
		TokenType: CreationCodeToken,
		VerifyID:  verifyID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.Must(uuid.NewV7()).String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
}

func newSessionClaims(tokenType TokenType, userID uuid.UUID, tokenVersion int, role Role, ttl time.Duration) Claims {
	now := time.Now().UTC()
	return Claims{
		TokenType:    tokenType,
		TokenVersion: tokenVersion,
		Role:         role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.Must(uuid.NewV7()).String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
}

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// CodeSession is a pending signup verification: the one-time code and the
// number of failed attempts made against it.
type CodeSession struct {
	Code     string
	Attempts int
}
