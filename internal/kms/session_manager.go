package kms

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// minRenewInterval is the floor applied to the renewal schedule so a tiny
	// or missing lease can never produce a hot loop.
	minRenewInterval = 5 * time.Second

	// renewFailureRetryInterval is the delay before retrying when both renewal
	// and the full re-login fail.
	renewFailureRetryInterval = 10 * time.Second
)

// SessionManager maintains the service's own KMS session: it logs in with the
// AppRole credentials supplied at startup, renews the session at 80% of the
// lease duration, and falls back to a full login when renewal fails.
//
// Renewal and the login fallback run only on the manager's background
// goroutine. Concurrent readers always see the most recent token; in-flight
// operations never block behind a re-login.
type SessionManager struct {
	client Client
	clock  Clock
	logger *slog.Logger

	mu      sync.Mutex
	session Session

	readyOnce sync.Once
	ready     chan struct{}
}

// NewSessionManager creates a session manager for the given KMS client.
func NewSessionManager(client Client, clock Clock, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		client: client,
		clock:  clock,
		logger: logger,
		ready:  make(chan struct{}),
	}
}

// Ready returns a channel that is closed exactly once, on the first successful
// login. Dependents (the key cache) wait on it before touching the KMS; late
// subscribers still observe readiness deterministically.
func (m *SessionManager) Ready() <-chan struct{} {
	return m.ready
}

// Token returns the current session token. Empty before the first login.
func (m *SessionManager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.ClientToken
}

// Login exchanges the AppRole credentials for a fresh session.
func (m *SessionManager) Login(ctx context.Context) error {
	session, err := m.client.AppRoleLogin(ctx)
	if err != nil {
		return err
	}

	m.install(session)
	m.logger.Info("kms login successful",
		slog.Duration("lease_duration", session.LeaseDuration),
		slog.Bool("renewable", session.Renewable),
	)

	m.readyOnce.Do(func() { close(m.ready) })
	return nil
}

// Renew extends the current session lease. On failure it attempts a full
// login, so the service self-heals from a missed renewal.
func (m *SessionManager) Renew(ctx context.Context) error {
	session, err := m.client.RenewSelf(ctx)
	if err != nil {
		m.logger.Warn("kms session renewal failed, attempting full login", slog.Any("error", err))
		return m.Login(ctx)
	}

	m.install(session)
	m.logger.Info("kms session renewed", slog.Duration("lease_duration", session.LeaseDuration))
	return nil
}

// Run performs the initial login and then renews the session at 80% of the
// lease duration until the context is cancelled. The initial login failure is
// returned to the caller; later failures are retried indefinitely.
func (m *SessionManager) Run(ctx context.Context) error {
	if err := m.Login(ctx); err != nil {
		return err
	}

	for {
		delay := m.renewDelay()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.clock.After(delay):
		}

		if err := m.Renew(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.logger.Error("kms session recovery failed", slog.Any("error", err))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-m.clock.After(renewFailureRetryInterval):
			}
		}
	}
}

// renewDelay computes the next renewal delay: 80% of the lease, floored.
func (m *SessionManager) renewDelay() time.Duration {
	m.mu.Lock()
	lease := m.session.LeaseDuration
	m.mu.Unlock()

	delay := lease * 4 / 5
	if delay < minRenewInterval {
		delay = minRenewInterval
	}
	return delay
}

// install stores the session and points the client at the new token.
func (m *SessionManager) install(session Session) {
	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	m.client.SetToken(session.ClientToken)
}
