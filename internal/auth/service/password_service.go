package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	apperrors "github.com/allisson/authd/internal/errors"
)

// Argon2id parameters. These are fixed: every stored hash embeds them, and
// verification always honors the embedded values, so the constants only
// govern newly created hashes.
const (
	argonTime    = 4
	argonMemory  = 16
	argonThreads = 2
	argonSaltLen = 16
	argonKeyLen  = 32
)

// passwordService implements PasswordService using Argon2id with hashes
// stored in the standard encoded form:
//
//	$argon2id$v=19$m=<mem>,t=<time>,p=<threads>$<salt-b64>$<hash-b64>
type passwordService struct{}

// NewPasswordService creates a new Argon2id-backed PasswordService.
func NewPasswordService() PasswordService {
	return &passwordService{}
}

// Hash derives an Argon2id hash with a fresh random salt.
func (s *passwordService) Hash(plainPassword string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", apperrors.Wrap(err, "failed to generate password salt")
	}

	key := argon2.IDKey([]byte(plainPassword), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonTime,
		argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return encoded, nil
}

// Verify re-derives the key using the parameters embedded in the encoded hash
// and compares in constant time. Any malformed hash yields false.
func (s *passwordService) Verify(plainPassword string, encodedHash string) bool {
	salt, expected, time, memory, threads, ok := decodeHash(encodedHash)
	if !ok {
		return false
	}

	key := argon2.IDKey([]byte(plainPassword), salt, time, memory, threads, uint32(len(expected)))

	return subtle.ConstantTimeCompare(key, expected) == 1
}

// decodeHash parses the encoded form produced by Hash.
func decodeHash(encodedHash string) (salt, key []byte, time, memory uint32, threads uint8, ok bool) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, 0, 0, 0, false
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return nil, nil, 0, 0, 0, false
	}
	if memory == 0 || time == 0 || threads == 0 {
		return nil, nil, 0, 0, 0, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, false
	}

	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, nil, 0, 0, 0, false
	}

	return salt, key, time, memory, threads, true
}
