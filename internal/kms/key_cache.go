package kms

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/pem"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/allisson/authd/internal/errors"
)

const (
	// retainedVersions is the number of most recent key versions kept for
	// verification, before the KMS-reported decryption floor is applied.
	retainedVersions = 3

	// refreshFailureRetryInterval is the delay before retrying after a failed
	// metadata fetch. Failures never drop previously cached keys.
	refreshFailureRetryInterval = 5 * time.Second

	// noRotationConfiguredInterval is the refresh period used when the KMS has
	// no auto-rotation configured for the signing key.
	noRotationConfiguredInterval = time.Hour

	// rotationGracePeriod is added after the expected rotation instant so the
	// refresh lands after the KMS has actually rotated.
	rotationGracePeriod = 5 * time.Second

	// overdueRotationRetryInterval is the fast retry used when a rotation is
	// due but the KMS still reports the old version.
	overdueRotationRetryInterval = 2 * time.Second
)

// spkiPrefix is the fixed SubjectPublicKeyInfo header for Ed25519. The KMS
// returns raw key bytes; prepending this yields the standard DER encoding.
var spkiPrefix = []byte{0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x03, 0x21, 0x00}

// VerificationKey is an immutable verification-capable public key version.
type VerificationKey struct {
	Version      int
	PublicKey    ed25519.PublicKey
	PEM          string
	CreationTime time.Time
}

// snapshot is the whole-replaced key set. Readers never observe a partially
// populated map.
type snapshot struct {
	keys          map[int]VerificationKey
	latestVersion int
}

// KeyCache holds the current set of verification-capable public keys indexed
// by version and refreshes them from the KMS on a rotation-aware schedule.
// Many concurrent readers, one background writer.
type KeyCache struct {
	client  Client
	keyName string
	clock   Clock
	logger  *slog.Logger

	mu   sync.RWMutex
	snap snapshot
}

// NewKeyCache creates a key cache for the named transit signing key.
func NewKeyCache(client Client, keyName string, clock Clock, logger *slog.Logger) *KeyCache {
	return &KeyCache{
		client:  client,
		keyName: keyName,
		clock:   clock,
		logger:  logger,
		snap:    snapshot{keys: map[int]VerificationKey{}},
	}
}

// PublicKey returns the verification key for a version, if it is still within
// the retention window of the current snapshot.
func (c *KeyCache) PublicKey(version int) (VerificationKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.snap.keys[version]
	return key, ok
}

// LatestVersion returns the most recent known key version, 0 before the first
// successful refresh.
func (c *KeyCache) LatestVersion() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap.latestVersion
}

// Refresh fetches key metadata from the KMS and atomically installs a new
// snapshot containing only versions within the retention window:
// cutoff = max(minDecryptionVersion, latestVersion-2).
//
// Returns whether a rotation (latest version advance) was observed, together
// with the fetched metadata for scheduling. On error the previous snapshot is
// left untouched: stale-but-valid keys are preferable to no keys.
func (c *KeyCache) Refresh(ctx context.Context) (bool, KeyMetadata, error) {
	meta, err := c.client.ReadKey(ctx, c.keyName)
	if err != nil {
		return false, KeyMetadata{}, err
	}

	cutoff := meta.MinDecryptionVersion
	if floor := meta.LatestVersion - (retainedVersions - 1); floor > cutoff {
		cutoff = floor
	}

	keys := make(map[int]VerificationKey)
	for version, info := range meta.Keys {
		if version < cutoff {
			continue
		}
		key, err := buildVerificationKey(version, info)
		if err != nil {
			return false, KeyMetadata{}, err
		}
		keys[version] = key
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if meta.LatestVersion < c.snap.latestVersion {
		// Stale metadata must not regress the snapshot; latestVersion is
		// monotonically non-decreasing.
		c.logger.Warn("ignoring stale key metadata",
			slog.Int("reported_version", meta.LatestVersion),
			slog.Int("cached_version", c.snap.latestVersion),
		)
		return false, meta, nil
	}

	rotated := meta.LatestVersion > c.snap.latestVersion
	c.snap = snapshot{keys: keys, latestVersion: meta.LatestVersion}

	if rotated {
		c.logger.Info("signing key rotation observed",
			slog.Int("latest_version", meta.LatestVersion),
			slog.Int("retention_cutoff", cutoff),
		)
	}

	return rotated, meta, nil
}

// Run refreshes the cache until the context is cancelled. It waits for the
// ready signal (first KMS login) before the initial fetch, then follows the
// rotation-aware schedule derived from the fetched metadata.
func (c *KeyCache) Run(ctx context.Context, ready <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ready:
	}

	for {
		delay := c.refreshOnce(ctx)
		if delay < time.Second {
			delay = time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.clock.After(delay):
		}
	}
}

// refreshOnce performs a single refresh and returns the delay until the next.
func (c *KeyCache) refreshOnce(ctx context.Context) time.Duration {
	rotated, meta, err := c.Refresh(ctx)
	if err != nil {
		c.logger.Error("key refresh failed", slog.Any("error", err))
		return refreshFailureRetryInterval
	}

	delay := nextRefreshDelay(meta, rotated, c.clock.Now())
	c.logger.Debug("next key refresh scheduled", slog.Duration("delay", delay))
	return delay
}

// nextRefreshDelay computes the rotation-aware refresh schedule:
//   - no auto-rotation configured: poll hourly
//   - next rotation in the future: sleep until just past it
//   - rotation overdue but just observed: one full period from now
//   - rotation overdue and not observed: fast retry
func nextRefreshDelay(meta KeyMetadata, rotated bool, now time.Time) time.Duration {
	if meta.AutoRotatePeriod <= 0 {
		return noRotationConfiguredInterval
	}

	latestCreation := meta.Keys[meta.LatestVersion].CreationTime
	nextRotation := latestCreation.Add(meta.AutoRotatePeriod)

	if remaining := nextRotation.Sub(now); remaining > 0 {
		return remaining + rotationGracePeriod
	}

	if rotated {
		return meta.AutoRotatePeriod + rotationGracePeriod
	}

	return overdueRotationRetryInterval
}

// buildVerificationKey reconstructs the standard verification encoding from
// the raw Ed25519 public key bytes reported by the KMS.
func buildVerificationKey(version int, info KeyInfo) (VerificationKey, error) {
	raw, err := base64.StdEncoding.DecodeString(info.PublicKeyBase64)
	if err != nil {
		return VerificationKey{}, apperrors.Wrap(err, "invalid public key encoding in transit metadata")
	}
	if len(raw) != ed25519.PublicKeySize {
		return VerificationKey{}, apperrors.Wrap(apperrors.ErrInternal, "unexpected public key length in transit metadata")
	}

	der := make([]byte, 0, len(spkiPrefix)+len(raw))
	der = append(der, spkiPrefix...)
	der = append(der, raw...)

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: der,
	})

	return VerificationKey{
		Version:      version,
		PublicKey:    ed25519.PublicKey(raw),
		PEM:          string(pemBytes),
		CreationTime: info.CreationTime,
	}, nil
}
