// Package service provides technical services for authentication operations:
// password hashing, one-time code generation, and remotely-signed JWTs.
package service

import (
	"context"

	authDomain "github.com/allisson/authd/internal/auth/domain"
)

// PasswordService defines password hashing and verification. Implementations
// must use a memory-hard algorithm and constant-time comparison.
type PasswordService interface {
	// Hash derives a password hash and returns it in a self-describing
	// encoded form that embeds the salt and parameters.
	Hash(plainPassword string) (string, error)

	// Verify compares a plain password against an encoded hash. A malformed
	// hash verifies as false, never as an error.
	Verify(plainPassword string, encodedHash string) bool
}

// CodeService defines one-time verification code generation.
type CodeService interface {
	// Generate creates a cryptographically random numeric code, zero-padded
	// to its full width.
	Generate() (string, error)
}

// JWTService defines signing and verification of the service's tokens. The
// signing key lives in the KMS; only public key material is held locally.
type JWTService interface {
	// Sign produces a compact signed token for the given claims, stamping the
	// current signing key version into the header.
	Sign(ctx context.Context, claims authDomain.Claims) (string, error)

	// Verify checks a token's signature and standard claims and enforces the
	// expected token type. Verification is fully local.
	Verify(tokenString string, expected authDomain.TokenType) (*authDomain.Claims, error)
}
