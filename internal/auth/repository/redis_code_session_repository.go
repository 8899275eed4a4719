package repository

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	authDomain "github.com/allisson/authd/internal/auth/domain"
	apperrors "github.com/allisson/authd/internal/errors"
)

// maxCodeAttempts is the number of wrong codes tolerated before the session
// is destroyed.
const maxCodeAttempts = 5

// redisCodeSessionRepository stores pending signup verifications in Redis
// hashes keyed by a server-assigned verification ID. Sessions expire on their
// own; an expired session and an exhausted one are indistinguishable to the
// caller.
type redisCodeSessionRepository struct {
	client *redis.Client
}

// NewRedisCodeSessionRepository creates a Redis-backed code session store.
func NewRedisCodeSessionRepository(client *redis.Client) *redisCodeSessionRepository {
	return &redisCodeSessionRepository{client: client}
}

func codeSessionKey(verifyID string) string {
	return "verify:" + verifyID
}

// Create allocates a fresh verification ID from a Redis sequence and stores
// the session with the given lifetime.
func (r *redisCodeSessionRepository) Create(ctx context.Context, code string, ttl time.Duration) (string, error) {
	seq, err := r.client.Incr(ctx, "verify_id_seq").Result()
	if err != nil {
		return "", apperrors.Wrap(err, "failed to allocate verification id")
	}
	verifyID := strconv.FormatInt(seq, 10)

	key := codeSessionKey(verifyID)
	if err := r.client.HSet(ctx, key, "code", code, "attempts", 0).Err(); err != nil {
		return "", apperrors.Wrap(err, "failed to store code session")
	}
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return "", apperrors.Wrap(err, "failed to expire code session")
	}

	return verifyID, nil
}

// Consume validates a submitted code against the session.
//
// A correct code destroys the session and returns nil. A wrong code charges
// an attempt; on the last allowed attempt the session is destroyed, so a
// subsequent correct code no longer helps. A missing session, whether it
// expired or was exhausted earlier, reports the same error.
func (r *redisCodeSessionRepository) Consume(ctx context.Context, verifyID, code string) error {
	key := codeSessionKey(verifyID)

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return apperrors.Wrap(err, "failed to read code session")
	}
	if len(fields) == 0 {
		return authDomain.ErrCodeSessionGone
	}

	session, err := parseCodeSession(fields)
	if err != nil {
		return err
	}

	if session.Attempts >= maxCodeAttempts {
		return r.destroy(ctx, key, authDomain.ErrCodeSessionGone)
	}

	if subtle.ConstantTimeCompare([]byte(session.Code), []byte(code)) != 1 {
		attempts, err := r.client.HIncrBy(ctx, key, "attempts", 1).Result()
		if err != nil {
			return apperrors.Wrap(err, "failed to record code attempt")
		}
		if attempts >= maxCodeAttempts {
			return r.destroy(ctx, key, authDomain.ErrCodeSessionGone)
		}
		return authDomain.ErrIncorrectCode
	}

	return r.destroy(ctx, key, nil)
}

// destroy deletes the session key and returns result, preferring a delete
// failure over the intended result so infrastructure trouble is never
// mistaken for a business outcome.
func (r *redisCodeSessionRepository) destroy(ctx context.Context, key string, result error) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return apperrors.Wrap(err, "failed to delete code session")
	}
	return result
}

func parseCodeSession(fields map[string]string) (authDomain.CodeSession, error) {
	code, ok := fields["code"]
	if !ok {
		return authDomain.CodeSession{}, apperrors.Wrap(apperrors.ErrInternal, "code session missing code field")
	}

	attempts := 0
	if raw, ok := fields["attempts"]; ok {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return authDomain.CodeSession{}, apperrors.Wrap(err, fmt.Sprintf("invalid attempts value %q", raw))
		}
		attempts = parsed
	}

	return authDomain.CodeSession{Code: code, Attempts: attempts}, nil
}
