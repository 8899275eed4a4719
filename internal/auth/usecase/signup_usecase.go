package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/allisson/authd/internal/auth/domain"
	authService "github.com/allisson/authd/internal/auth/service"
	"github.com/allisson/authd/internal/config"
	userDomain "github.com/allisson/authd/internal/user/domain"
)

// signupUseCase implements SignupUseCase.
type signupUseCase struct {
	config          *config.Config
	userRepo        UserRepository
	codeSessions    CodeSessionRepository
	notifier        CodeNotifier
	jwtService      authService.JWTService
	passwordService authService.PasswordService
	codeService     authService.CodeService
}

// NewSignupUseCase creates a new SignupUseCase with the provided dependencies.
func NewSignupUseCase(
	config *config.Config,
	userRepo UserRepository,
	codeSessions CodeSessionRepository,
	notifier CodeNotifier,
	jwtService authService.JWTService,
	passwordService authService.PasswordService,
	codeService authService.CodeService,
) SignupUseCase {
	return &signupUseCase{
		config:          config,
		userRepo:        userRepo,
		codeSessions:    codeSessions,
		notifier:        notifier,
		jwtService:      jwtService,
		passwordService: passwordService,
		codeService:     codeService,
	}
}

// RequestCreationCode starts a signup attempt.
//
// The generated code never appears in the response: it travels to the email
// address, while the response carries only the signed creation token pointing
// at the pending session. The code session and the token share one lifetime.
func (s *signupUseCase) RequestCreationCode(
	ctx context.Context,
	input *RequestCreationCodeInput,
) (*RequestCreationCodeOutput, error) {
	input.Email = normalizeEmail(input.Email)

	exists, err := s.userRepo.ExistsByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, authDomain.ErrEmailTaken
	}

	code, err := s.codeService.Generate()
	if err != nil {
		return nil, err
	}

	verifyID, err := s.codeSessions.Create(ctx, code, s.config.CreationCodeTTL)
	if err != nil {
		return nil, err
	}

	creationToken, err := s.jwtService.Sign(ctx, authDomain.NewCreationCodeClaims(verifyID, s.config.CreationCodeTTL))
	if err != nil {
		return nil, err
	}

	if err := s.notifier.SendCode(ctx, input.Email, code); err != nil {
		return nil, err
	}

	return &RequestCreationCodeOutput{CreationToken: creationToken}, nil
}

// CreateAccount completes a signup.
//
// The creation token is verified first; the code is then consumed against the
// session it points at. The session is destroyed on success, on exhausted
// attempts, and on expiry, so a creation token can never be redeemed twice.
func (s *signupUseCase) CreateAccount(ctx context.Context, input *CreateAccountInput) (*authDomain.TokenPair, error) {
	input.Email = normalizeEmail(input.Email)

	claims, err := s.jwtService.Verify(input.CreationToken, authDomain.CreationCodeToken)
	if err != nil {
		return nil, err
	}

	if err := s.codeSessions.Consume(ctx, claims.VerifyID, input.Code); err != nil {
		return nil, err
	}

	passwordHash, err := s.passwordService.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &userDomain.User{
		ID:           uuid.Must(uuid.NewV7()),
		Email:        input.Email,
		PasswordHash: passwordHash,
		Role:         authDomain.MemberRole,
		TokenVersion: 1,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issuePair(ctx, user)
}

// issuePair signs the initial access and refresh token for a new account.
func (s *signupUseCase) issuePair(ctx context.Context, user *userDomain.User) (*authDomain.TokenPair, error) {
	accessClaims := authDomain.NewAccessClaims(user.ID, user.TokenVersion, user.Role, s.config.AccessTokenTTL)
	accessToken, err := s.jwtService.Sign(ctx, accessClaims)
	if err != nil {
		return nil, err
	}

	refreshClaims := authDomain.NewRefreshClaims(user.ID, user.TokenVersion, user.Role, s.config.RefreshTokenTTL)
	refreshToken, err := s.jwtService.Sign(ctx, refreshClaims)
	if err != nil {
		return nil, err
	}

	return &authDomain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
