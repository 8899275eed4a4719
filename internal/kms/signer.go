package kms

import (
	"context"
	"encoding/base64"
	"strings"

	apperrors "github.com/allisson/authd/internal/errors"
)

// ErrNoActiveKey indicates the key cache has not completed its first refresh,
// so no signing key version is available yet.
var ErrNoActiveKey = apperrors.Wrap(apperrors.ErrInternal, "no active signing key version")

// Signer produces Ed25519 signatures with an explicit cached key version
// using the remote transit engine. The private key never leaves the KMS.
//
// Callers that embed the key version into the signed material (a JWT kid
// header) resolve the version first via LatestVersion and then sign with that
// exact version, so a concurrent rotation can never produce a signature that
// disagrees with the embedded version.
type Signer struct {
	client  Client
	cache   *KeyCache
	keyName string
}

// NewSigner creates a signer bound to the named transit key.
func NewSigner(client Client, cache *KeyCache, keyName string) *Signer {
	return &Signer{client: client, cache: cache, keyName: keyName}
}

// LatestVersion returns the most recent known key version, 0 before the first
// cache refresh.
func (s *Signer) LatestVersion() int {
	return s.cache.LatestVersion()
}

// Sign signs input with the given key version and returns the raw signature
// bytes.
func (s *Signer) Sign(ctx context.Context, input []byte, version int) ([]byte, error) {
	if version <= 0 {
		return nil, ErrNoActiveKey
	}

	encoded := base64.StdEncoding.EncodeToString(input)
	result, err := s.client.Sign(ctx, s.keyName, encoded, version)
	if err != nil {
		return nil, apperrors.Wrap(err, "transit sign failed")
	}

	return decodeSignature(result)
}

// decodeSignature extracts the raw signature bytes from the transit response
// format "vault:vN:<base64>". Everything after the last colon is the payload,
// which keeps the parse robust if the prefix format ever grows a colon.
func decodeSignature(result string) ([]byte, error) {
	idx := strings.LastIndex(result, ":")
	if idx < 0 || idx == len(result)-1 {
		return nil, apperrors.Wrap(apperrors.ErrInternal, "malformed transit signature")
	}

	signature, err := base64.StdEncoding.DecodeString(result[idx+1:])
	if err != nil {
		return nil, apperrors.Wrap(err, "malformed transit signature encoding")
	}

	return signature, nil
}
