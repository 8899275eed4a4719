package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/allisson/authd/internal/auth/domain"
	apperrors "github.com/allisson/authd/internal/errors"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLoginThrottleFreeAttempts(t *testing.T) {
	_, client := newTestRedis(t)
	throttle := NewRedisLoginThrottle(client)
	ctx := context.Background()

	require.NoError(t, throttle.Check(ctx, "a@example.com", "10.0.0.1"))

	// Two failures stay below the blocking threshold.
	require.NoError(t, throttle.RecordFailure(ctx, "a@example.com", "10.0.0.1"))
	require.NoError(t, throttle.RecordFailure(ctx, "a@example.com", "10.0.0.1"))
	require.NoError(t, throttle.Check(ctx, "a@example.com", "10.0.0.1"))
}

func TestLoginThrottlePenaltyLadder(t *testing.T) {
	_, client := newTestRedis(t)
	throttle := NewRedisLoginThrottle(client)
	ctx := context.Background()

	expected := []time.Duration{
		5 * time.Minute,
		10 * time.Minute,
		15 * time.Minute,
		20 * time.Minute,
		25 * time.Minute,
	}

	require.NoError(t, throttle.RecordFailure(ctx, "a@example.com", "10.0.0.1"))
	require.NoError(t, throttle.RecordFailure(ctx, "a@example.com", "10.0.0.1"))

	for i, want := range expected {
		require.NoError(t, throttle.RecordFailure(ctx, "a@example.com", "10.0.0.1"))

		err := throttle.Check(ctx, "a@example.com", "10.0.0.1")
		require.Error(t, err, "failure %d", i+3)
		require.ErrorIs(t, err, apperrors.ErrRateLimited)

		var rateLimitErr *apperrors.RateLimitError
		require.ErrorAs(t, err, &rateLimitErr)
		assert.InDelta(t, want.Seconds(), rateLimitErr.RetryAfter.Seconds(), 2, "failure %d", i+3)
	}
}

func TestLoginThrottlePenaltyCap(t *testing.T) {
	_, client := newTestRedis(t)
	throttle := NewRedisLoginThrottle(client)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, throttle.RecordFailure(ctx, "a@example.com", "10.0.0.1"))
	}

	err := throttle.Check(ctx, "a@example.com", "10.0.0.1")
	require.Error(t, err)

	var rateLimitErr *apperrors.RateLimitError
	require.ErrorAs(t, err, &rateLimitErr)
	assert.LessOrEqual(t, rateLimitErr.RetryAfter, time.Hour)
	assert.Greater(t, rateLimitErr.RetryAfter, 55*time.Minute)
}

func TestLoginThrottleScopedPerEmailAndIP(t *testing.T) {
	_, client := newTestRedis(t)
	throttle := NewRedisLoginThrottle(client)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, throttle.RecordFailure(ctx, "a@example.com", "10.0.0.1"))
	}

	require.Error(t, throttle.Check(ctx, "a@example.com", "10.0.0.1"))
	require.NoError(t, throttle.Check(ctx, "a@example.com", "10.0.0.2"))
	require.NoError(t, throttle.Check(ctx, "b@example.com", "10.0.0.1"))
}

func TestLoginThrottleClear(t *testing.T) {
	_, client := newTestRedis(t)
	throttle := NewRedisLoginThrottle(client)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, throttle.RecordFailure(ctx, "a@example.com", "10.0.0.1"))
	}
	require.Error(t, throttle.Check(ctx, "a@example.com", "10.0.0.1"))

	require.NoError(t, throttle.Clear(ctx, "a@example.com", "10.0.0.1"))
	require.NoError(t, throttle.Check(ctx, "a@example.com", "10.0.0.1"))

	// Counting restarts from scratch.
	require.NoError(t, throttle.RecordFailure(ctx, "a@example.com", "10.0.0.1"))
	require.NoError(t, throttle.Check(ctx, "a@example.com", "10.0.0.1"))
}

func TestLoginThrottleRecordExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	throttle := NewRedisLoginThrottle(client)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, throttle.RecordFailure(ctx, "a@example.com", "10.0.0.1"))
	}
	require.Error(t, throttle.Check(ctx, "a@example.com", "10.0.0.1"))

	mr.FastForward(24*time.Hour + time.Second)
	require.NoError(t, throttle.Check(ctx, "a@example.com", "10.0.0.1"))
}

func TestCodeSessionCreateAndConsume(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewRedisCodeSessionRepository(client)
	ctx := context.Background()

	verifyID, err := repo.Create(ctx, "042137", 15*time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, verifyID)

	require.NoError(t, repo.Consume(ctx, verifyID, "042137"))

	// A session is single-use.
	require.ErrorIs(t, repo.Consume(ctx, verifyID, "042137"), authDomain.ErrCodeSessionGone)
}

func TestCodeSessionIDsAreUnique(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewRedisCodeSessionRepository(client)
	ctx := context.Background()

	first, err := repo.Create(ctx, "000001", time.Minute)
	require.NoError(t, err)
	second, err := repo.Create(ctx, "000002", time.Minute)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCodeSessionWrongCodeAttempts(t *testing.T) {
	_, client := newTestRedis(t)
	repo := NewRedisCodeSessionRepository(client)
	ctx := context.Background()

	verifyID, err := repo.Create(ctx, "042137", 15*time.Minute)
	require.NoError(t, err)

	// Four wrong attempts leave the session alive.
	for i := 0; i < maxCodeAttempts-1; i++ {
		require.ErrorIs(t, repo.Consume(ctx, verifyID, "999999"), authDomain.ErrIncorrectCode)
	}

	// The fifth wrong attempt destroys it; the right code no longer helps.
	require.ErrorIs(t, repo.Consume(ctx, verifyID, "999999"), authDomain.ErrCodeSessionGone)
	require.ErrorIs(t, repo.Consume(ctx, verifyID, "042137"), authDomain.ErrCodeSessionGone)
}

func TestCodeSessionExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewRedisCodeSessionRepository(client)
	ctx := context.Background()

	verifyID, err := repo.Create(ctx, "042137", 15*time.Minute)
	require.NoError(t, err)

	mr.FastForward(15*time.Minute + time.Second)
	require.ErrorIs(t, repo.Consume(ctx, verifyID, "042137"), authDomain.ErrCodeSessionGone)
}

func TestRefreshBlacklistMarkUsed(t *testing.T) {
	_, client := newTestRedis(t)
	blacklist := NewRedisRefreshBlacklist(client)
	ctx := context.Background()

	expiresAt := time.Now().Add(24 * time.Hour)

	firstUse, err := blacklist.MarkUsed(ctx, "jti-1", expiresAt)
	require.NoError(t, err)
	assert.True(t, firstUse)

	// The second presentation of the same token ID is a replay.
	firstUse, err = blacklist.MarkUsed(ctx, "jti-1", expiresAt)
	require.NoError(t, err)
	assert.False(t, firstUse)

	// Other token IDs are unaffected.
	firstUse, err = blacklist.MarkUsed(ctx, "jti-2", expiresAt)
	require.NoError(t, err)
	assert.True(t, firstUse)
}

func TestRefreshBlacklistEntryExpiresWithToken(t *testing.T) {
	mr, client := newTestRedis(t)
	blacklist := NewRedisRefreshBlacklist(client)
	ctx := context.Background()

	expiresAt := time.Now().Add(time.Minute)

	firstUse, err := blacklist.MarkUsed(ctx, "jti-1", expiresAt)
	require.NoError(t, err)
	assert.True(t, firstUse)

	// Past the token expiry plus grace the marker is gone.
	mr.FastForward(time.Minute + 11*time.Second)
	firstUse, err = blacklist.MarkUsed(ctx, "jti-1", expiresAt.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, firstUse)
}

func TestRefreshBlacklistExpiredTokenStillClaims(t *testing.T) {
	_, client := newTestRedis(t)
	blacklist := NewRedisRefreshBlacklist(client)
	ctx := context.Background()

	// A token already past expiry still gets a short-lived marker instead of
	// a zero or negative TTL.
	firstUse, err := blacklist.MarkUsed(ctx, "jti-1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, firstUse)

	firstUse, err = blacklist.MarkUsed(ctx, "jti-1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.False(t, firstUse)
}
