package service

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	authDomain "github.com/allisson/authd/internal/auth/domain"
	apperrors "github.com/allisson/authd/internal/errors"
	"github.com/allisson/authd/internal/kms"
)

// verifyLeeway absorbs small clock skew between the service and the KMS when
// validating expiry.
const verifyLeeway = 5 * time.Second

// jwtService implements JWTService with EdDSA signatures produced by the
// transit engine and verified locally against the cached public keys.
type jwtService struct {
	signer *kms.Signer
	cache  *kms.KeyCache
}

// NewJWTService creates a JWTService backed by the KMS signer and key cache.
func NewJWTService(signer *kms.Signer, cache *kms.KeyCache) JWTService {
	return &jwtService{
		signer: signer,
		cache:  cache,
	}
}

// Sign serializes the claims, stamps the current key version into the kid
// header, and asks the transit engine to sign the encoded header and payload.
//
// The version is resolved once and passed explicitly to the signer, so the
// kid header always matches the key that produced the signature even if a
// rotation lands mid-request.
func (s *jwtService) Sign(ctx context.Context, claims authDomain.Claims) (string, error) {
	version := s.signer.LatestVersion()
	if version == 0 {
		return "", kms.ErrNoActiveKey
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = strconv.Itoa(version)

	signingInput, err := token.SigningString()
	if err != nil {
		return "", apperrors.Wrap(err, "failed to encode token claims")
	}

	signature, err := s.signer.Sign(ctx, []byte(signingInput), version)
	if err != nil {
		return "", err
	}

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(signature), nil
}

// Verify validates the token signature against the cached public key for its
// kid header, checks expiry, and enforces the expected token type.
func (s *jwtService) Verify(tokenString string, expected authDomain.TokenType) (*authDomain.Claims, error) {
	claims := &authDomain.Claims{}

	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithLeeway(verifyLeeway),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, authDomain.ErrUnknownKeyVersion):
			return nil, authDomain.ErrUnknownKeyVersion
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, authDomain.ErrTokenExpired
		default:
			return nil, authDomain.ErrInvalidToken
		}
	}

	if claims.TokenType != expected {
		return nil, authDomain.ErrInvalidToken
	}

	return claims, nil
}

// keyFunc resolves the verification key for a token's kid header.
func (s *jwtService) keyFunc(token *jwt.Token) (any, error) {
	kid, ok := token.Header["kid"].(string)
	if !ok {
		return nil, authDomain.ErrInvalidToken
	}

	version, err := strconv.Atoi(kid)
	if err != nil || version <= 0 {
		return nil, authDomain.ErrInvalidToken
	}

	key, ok := s.cache.PublicKey(version)
	if !ok {
		return nil, authDomain.ErrUnknownKeyVersion
	}

	return key.PublicKey, nil
}
