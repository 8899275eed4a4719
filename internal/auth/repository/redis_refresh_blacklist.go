package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/authd/internal/errors"
)

// blacklistGrace keeps a used-token marker alive slightly past the token's
// own expiry so clock skew cannot open a replay window at the boundary.
const blacklistGrace = 10 * time.Second

// redisRefreshBlacklist records consumed refresh token IDs. Entries live only
// as long as the token they shadow could still be presented.
type redisRefreshBlacklist struct {
	client *redis.Client
}

// NewRedisRefreshBlacklist creates a Redis-backed refresh token blacklist.
func NewRedisRefreshBlacklist(client *redis.Client) *redisRefreshBlacklist {
	return &redisRefreshBlacklist{client: client}
}

func blacklistKey(tokenID string) string {
	return "refresh_used:" + tokenID
}

// MarkUsed atomically claims a refresh token ID. It returns true when this
// call was the first use; false means the token was already consumed and the
// presenter holds a replayed token.
func (r *redisRefreshBlacklist) MarkUsed(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	ttl := time.Until(expiresAt) + blacklistGrace
	if ttl < blacklistGrace {
		ttl = blacklistGrace
	}

	firstUse, err := r.client.SetNX(ctx, blacklistKey(tokenID), 1, ttl).Result()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to mark refresh token used")
	}

	return firstUse, nil
}
