package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/authd/internal/auth/domain"
	"github.com/allisson/authd/internal/metrics"
)

// sessionUseCaseWithMetrics decorates SessionUseCase with metrics instrumentation.
type sessionUseCaseWithMetrics struct {
	next    SessionUseCase
	metrics metrics.BusinessMetrics
}

// NewSessionUseCaseWithMetrics wraps a SessionUseCase with metrics recording.
func NewSessionUseCaseWithMetrics(useCase SessionUseCase, m metrics.BusinessMetrics) SessionUseCase {
	return &sessionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Login records metrics for login operations.
func (s *sessionUseCaseWithMetrics) Login(ctx context.Context, input *LoginInput) (*authDomain.TokenPair, error) {
	start := time.Now()
	pair, err := s.next.Login(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "auth", "login", status)
	s.metrics.RecordDuration(ctx, "auth", "login", time.Since(start), status)

	return pair, err
}

// Refresh records metrics for refresh operations.
func (s *sessionUseCaseWithMetrics) Refresh(ctx context.Context, refreshToken string) (*authDomain.TokenPair, error) {
	start := time.Now()
	pair, err := s.next.Refresh(ctx, refreshToken)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "auth", "refresh", status)
	s.metrics.RecordDuration(ctx, "auth", "refresh", time.Since(start), status)

	return pair, err
}

// Authenticate passes through without metrics: it runs on every request and
// is already covered by the HTTP layer metrics.
func (s *sessionUseCaseWithMetrics) Authenticate(accessToken string) (*authDomain.Claims, error) {
	return s.next.Authenticate(accessToken)
}

// LogoutEverywhere records metrics for global logout operations.
func (s *sessionUseCaseWithMetrics) LogoutEverywhere(ctx context.Context, userID uuid.UUID) error {
	start := time.Now()
	err := s.next.LogoutEverywhere(ctx, userID)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "auth", "logout_everywhere", status)
	s.metrics.RecordDuration(ctx, "auth", "logout_everywhere", time.Since(start), status)

	return err
}

// signupUseCaseWithMetrics decorates SignupUseCase with metrics instrumentation.
type signupUseCaseWithMetrics struct {
	next    SignupUseCase
	metrics metrics.BusinessMetrics
}

// NewSignupUseCaseWithMetrics wraps a SignupUseCase with metrics recording.
func NewSignupUseCaseWithMetrics(useCase SignupUseCase, m metrics.BusinessMetrics) SignupUseCase {
	return &signupUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// RequestCreationCode records metrics for code request operations.
func (s *signupUseCaseWithMetrics) RequestCreationCode(
	ctx context.Context,
	input *RequestCreationCodeInput,
) (*RequestCreationCodeOutput, error) {
	start := time.Now()
	output, err := s.next.RequestCreationCode(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "auth", "request_creation_code", status)
	s.metrics.RecordDuration(ctx, "auth", "request_creation_code", time.Since(start), status)

	return output, err
}

// CreateAccount records metrics for account creation operations.
func (s *signupUseCaseWithMetrics) CreateAccount(
	ctx context.Context,
	input *CreateAccountInput,
) (*authDomain.TokenPair, error) {
	start := time.Now()
	pair, err := s.next.CreateAccount(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	s.metrics.RecordOperation(ctx, "auth", "create_account", status)
	s.metrics.RecordDuration(ctx, "auth", "create_account", time.Since(start), status)

	return pair, err
}
