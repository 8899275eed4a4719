package app

import (
	"fmt"
	"sync"

	authHTTP "github.com/allisson/authd/internal/auth/http"
	authRepository "github.com/allisson/authd/internal/auth/repository"
	authService "github.com/allisson/authd/internal/auth/service"
	authUseCase "github.com/allisson/authd/internal/auth/usecase"
	"github.com/allisson/authd/internal/kms"
)

// authComponents groups the auth module wiring inside the container.
type authComponents struct {
	passwordService authService.PasswordService
	codeService     authService.CodeService
	jwtService      authService.JWTService
	notifier        authUseCase.CodeNotifier
	sessionUC       authUseCase.SessionUseCase
	signupUC        authUseCase.SignupUseCase
	sessionHandler  *authHTTP.SessionHandler
	signupHandler   *authHTTP.SignupHandler

	passwordServiceInit sync.Once
	codeServiceInit     sync.Once
	jwtServiceInit      sync.Once
	notifierInit        sync.Once
	sessionUCInit       sync.Once
	signupUCInit        sync.Once
	sessionHandlerInit  sync.Once
	signupHandlerInit   sync.Once
}

// PasswordService returns the password hashing service.
func (c *Container) PasswordService() authService.PasswordService {
	c.auth.passwordServiceInit.Do(func() {
		c.auth.passwordService = authService.NewPasswordService()
	})
	return c.auth.passwordService
}

// CodeService returns the one-time code generator.
func (c *Container) CodeService() authService.CodeService {
	c.auth.codeServiceInit.Do(func() {
		c.auth.codeService = authService.NewCodeService()
	})
	return c.auth.codeService
}

// JWTService returns the KMS-backed token service.
func (c *Container) JWTService() (authService.JWTService, error) {
	var err error
	c.auth.jwtServiceInit.Do(func() {
		var signer *kms.Signer
		signer, err = c.Signer()
		if err != nil {
			err = fmt.Errorf("failed to get signer for jwt service: %w", err)
			c.initErrors["jwtService"] = err
			return
		}
		var keyCache *kms.KeyCache
		keyCache, err = c.KeyCache()
		if err != nil {
			err = fmt.Errorf("failed to get key cache for jwt service: %w", err)
			c.initErrors["jwtService"] = err
			return
		}
		c.auth.jwtService = authService.NewJWTService(signer, keyCache)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["jwtService"]; exists {
		return nil, storedErr
	}
	return c.auth.jwtService, nil
}

// CodeNotifier returns the one-time code delivery channel.
func (c *Container) CodeNotifier() authUseCase.CodeNotifier {
	c.auth.notifierInit.Do(func() {
		c.auth.notifier = authService.NewLogCodeNotifier(c.Logger())
	})
	return c.auth.notifier
}

// SessionUseCase returns the session use case instance.
func (c *Container) SessionUseCase() (authUseCase.SessionUseCase, error) {
	var err error
	c.auth.sessionUCInit.Do(func() {
		var userRepo authUseCase.UserRepository
		userRepo, err = c.UserRepository()
		if err != nil {
			err = fmt.Errorf("failed to get user repository for session use case: %w", err)
			c.initErrors["sessionUseCase"] = err
			return
		}

		txManager, txErr := c.TxManager()
		if txErr != nil {
			err = fmt.Errorf("failed to get tx manager for session use case: %w", txErr)
			c.initErrors["sessionUseCase"] = err
			return
		}

		cacheClient, cacheErr := c.Cache()
		if cacheErr != nil {
			err = fmt.Errorf("failed to get cache for session use case: %w", cacheErr)
			c.initErrors["sessionUseCase"] = err
			return
		}

		jwtService, jwtErr := c.JWTService()
		if jwtErr != nil {
			err = jwtErr
			c.initErrors["sessionUseCase"] = err
			return
		}

		business, metricsErr := c.BusinessMetrics()
		if metricsErr != nil {
			err = metricsErr
			c.initErrors["sessionUseCase"] = err
			return
		}

		c.auth.sessionUC = authUseCase.NewSessionUseCaseWithMetrics(
			authUseCase.NewSessionUseCase(
				c.config,
				txManager,
				userRepo,
				authRepository.NewRedisLoginThrottle(cacheClient),
				authRepository.NewRedisRefreshBlacklist(cacheClient),
				jwtService,
				c.PasswordService(),
			),
			business,
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionUseCase"]; exists {
		return nil, storedErr
	}
	return c.auth.sessionUC, nil
}

// SignupUseCase returns the signup use case instance.
func (c *Container) SignupUseCase() (authUseCase.SignupUseCase, error) {
	var err error
	c.auth.signupUCInit.Do(func() {
		var userRepo authUseCase.UserRepository
		userRepo, err = c.UserRepository()
		if err != nil {
			err = fmt.Errorf("failed to get user repository for signup use case: %w", err)
			c.initErrors["signupUseCase"] = err
			return
		}

		cacheClient, cacheErr := c.Cache()
		if cacheErr != nil {
			err = fmt.Errorf("failed to get cache for signup use case: %w", cacheErr)
			c.initErrors["signupUseCase"] = err
			return
		}

		jwtService, jwtErr := c.JWTService()
		if jwtErr != nil {
			err = jwtErr
			c.initErrors["signupUseCase"] = err
			return
		}

		business, metricsErr := c.BusinessMetrics()
		if metricsErr != nil {
			err = metricsErr
			c.initErrors["signupUseCase"] = err
			return
		}

		c.auth.signupUC = authUseCase.NewSignupUseCaseWithMetrics(
			authUseCase.NewSignupUseCase(
				c.config,
				userRepo,
				authRepository.NewRedisCodeSessionRepository(cacheClient),
				c.CodeNotifier(),
				jwtService,
				c.PasswordService(),
				c.CodeService(),
			),
			business,
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["signupUseCase"]; exists {
		return nil, storedErr
	}
	return c.auth.signupUC, nil
}

// SessionHandler returns the session HTTP handler.
func (c *Container) SessionHandler() (*authHTTP.SessionHandler, error) {
	var err error
	c.auth.sessionHandlerInit.Do(func() {
		var sessionUC authUseCase.SessionUseCase
		sessionUC, err = c.SessionUseCase()
		if err != nil {
			c.initErrors["sessionHandler"] = err
			return
		}
		c.auth.sessionHandler = authHTTP.NewSessionHandler(sessionUC, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionHandler"]; exists {
		return nil, storedErr
	}
	return c.auth.sessionHandler, nil
}

// SignupHandler returns the signup HTTP handler.
func (c *Container) SignupHandler() (*authHTTP.SignupHandler, error) {
	var err error
	c.auth.signupHandlerInit.Do(func() {
		var signupUC authUseCase.SignupUseCase
		signupUC, err = c.SignupUseCase()
		if err != nil {
			c.initErrors["signupHandler"] = err
			return
		}
		c.auth.signupHandler = authHTTP.NewSignupHandler(signupUC, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["signupHandler"]; exists {
		return nil, storedErr
	}
	return c.auth.signupHandler, nil
}
