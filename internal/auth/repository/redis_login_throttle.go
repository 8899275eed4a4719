// Package repository provides Redis-backed persistence for authentication
// state: login throttling, one-time code sessions, and the used refresh
// token blacklist.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/authd/internal/errors"
)

const (
	// throttleFreeAttempts is the number of consecutive failures allowed
	// before blocking starts.
	throttleFreeAttempts = 2

	// throttlePenaltyStep is the block duration added per failure beyond the
	// free attempts.
	throttlePenaltyStep = 5 * time.Minute

	// throttleMaxPenalty caps the block duration.
	throttleMaxPenalty = time.Hour

	// throttleTTL bounds the lifetime of a throttle record so abandoned
	// attack records expire on their own.
	throttleTTL = 24 * time.Hour
)

// redisLoginThrottle tracks failed login attempts per (email, client IP)
// pair in a Redis hash with fields "attempts" and "block_until".
type redisLoginThrottle struct {
	client *redis.Client
}

// NewRedisLoginThrottle creates a Redis-backed login throttle.
func NewRedisLoginThrottle(client *redis.Client) *redisLoginThrottle {
	return &redisLoginThrottle{client: client}
}

func loginThrottleKey(email, clientIP string) string {
	return fmt.Sprintf("login_throttle:%s:%s", email, clientIP)
}

// Check returns a rate limit error when the pair is currently blocked. A
// missing record means no restriction.
func (r *redisLoginThrottle) Check(ctx context.Context, email, clientIP string) error {
	blockUntil, err := r.client.HGet(ctx, loginThrottleKey(email, clientIP), "block_until").Int64()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return apperrors.Wrap(err, "failed to read login throttle")
	}

	remaining := time.Unix(blockUntil, 0).Sub(time.Now().UTC())
	if remaining > 0 {
		return apperrors.NewRateLimitError(remaining)
	}

	return nil
}

// RecordFailure increments the failure counter and extends the block once the
// free attempts are exhausted. Each failure past the threshold adds another
// penalty step, capped at one hour.
func (r *redisLoginThrottle) RecordFailure(ctx context.Context, email, clientIP string) error {
	key := loginThrottleKey(email, clientIP)

	attempts, err := r.client.HIncrBy(ctx, key, "attempts", 1).Result()
	if err != nil {
		return apperrors.Wrap(err, "failed to record login failure")
	}

	if attempts > throttleFreeAttempts {
		penalty := time.Duration(attempts-throttleFreeAttempts) * throttlePenaltyStep
		if penalty > throttleMaxPenalty {
			penalty = throttleMaxPenalty
		}

		blockUntil := time.Now().UTC().Add(penalty).Unix()
		if err := r.client.HSet(ctx, key, "block_until", blockUntil).Err(); err != nil {
			return apperrors.Wrap(err, "failed to record login block")
		}
	}

	if err := r.client.Expire(ctx, key, throttleTTL).Err(); err != nil {
		return apperrors.Wrap(err, "failed to expire login throttle")
	}

	return nil
}

// Clear removes the throttle record after a successful login.
func (r *redisLoginThrottle) Clear(ctx context.Context, email, clientIP string) error {
	if err := r.client.Del(ctx, loginThrottleKey(email, clientIP)).Err(); err != nil {
		return apperrors.Wrap(err, "failed to clear login throttle")
	}
	return nil
}
