// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	authUseCase "github.com/allisson/authd/internal/auth/usecase"
	"github.com/allisson/authd/internal/cache"
	"github.com/allisson/authd/internal/config"
	"github.com/allisson/authd/internal/database"
	"github.com/allisson/authd/internal/http"
	"github.com/allisson/authd/internal/kms"
	"github.com/allisson/authd/internal/metrics"
	userHTTP "github.com/allisson/authd/internal/user/http"
	userRepository "github.com/allisson/authd/internal/user/repository"
	userUseCase "github.com/allisson/authd/internal/user/usecase"
)

// Container holds all application dependencies and provides methods to access
// them. Components are created lazily on first access.
type Container struct {
	config *config.Config

	// Infrastructure
	logger      *slog.Logger
	db          *sql.DB
	cacheClient *redis.Client
	txManager   database.TxManager

	// KMS
	kmsClient      kms.Client
	sessionManager *kms.SessionManager
	keyCache       *kms.KeyCache
	signer         *kms.Signer

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// User module
	userRepo    authUseCase.UserRepository
	userUC      userUseCase.UserUseCase
	userHandler *userHTTP.UserHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	auth authComponents

	mu                  sync.Mutex
	loggerInit          sync.Once
	dbInit              sync.Once
	cacheInit           sync.Once
	txManagerInit       sync.Once
	kmsClientInit       sync.Once
	sessionManagerInit  sync.Once
	keyCacheInit        sync.Once
	signerInit          sync.Once
	metricsProviderInit sync.Once
	businessMetricsInit sync.Once
	userRepoInit        sync.Once
	userUseCaseInit     sync.Once
	userHandlerInit     sync.Once
	httpServerInit      sync.Once
	metricsServerInit   sync.Once
	initErrors          map[string]error
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// Cache returns the shared cache store client.
func (c *Container) Cache() (*redis.Client, error) {
	var err error
	c.cacheInit.Do(func() {
		c.cacheClient, err = cache.Connect(context.Background(), c.config.RedisURL, c.config.RedisTimeout)
		if err != nil {
			c.initErrors["cache"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cache"]; exists {
		return nil, storedErr
	}
	return c.cacheClient, nil
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		var db *sql.DB
		db, err = c.DB()
		if err != nil {
			err = fmt.Errorf("failed to get database for tx manager: %w", err)
			c.initErrors["txManager"] = err
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// KMSClient returns the KMS client.
func (c *Container) KMSClient() (kms.Client, error) {
	var err error
	c.kmsClientInit.Do(func() {
		c.kmsClient, err = kms.NewClient(kms.Config{
			Address:  c.config.VaultAddress,
			RoleID:   c.config.VaultRoleID,
			SecretID: c.config.VaultSecretID,
			Timeout:  c.config.VaultTimeout,
		})
		if err != nil {
			c.initErrors["kmsClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["kmsClient"]; exists {
		return nil, storedErr
	}
	return c.kmsClient, nil
}

// SessionManager returns the KMS session manager.
func (c *Container) SessionManager() (*kms.SessionManager, error) {
	var err error
	c.sessionManagerInit.Do(func() {
		var client kms.Client
		client, err = c.KMSClient()
		if err != nil {
			err = fmt.Errorf("failed to get kms client for session manager: %w", err)
			c.initErrors["sessionManager"] = err
			return
		}
		c.sessionManager = kms.NewSessionManager(client, kms.NewClock(), c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionManager"]; exists {
		return nil, storedErr
	}
	return c.sessionManager, nil
}

// KeyCache returns the verification key cache.
func (c *Container) KeyCache() (*kms.KeyCache, error) {
	var err error
	c.keyCacheInit.Do(func() {
		var client kms.Client
		client, err = c.KMSClient()
		if err != nil {
			err = fmt.Errorf("failed to get kms client for key cache: %w", err)
			c.initErrors["keyCache"] = err
			return
		}
		c.keyCache = kms.NewKeyCache(client, c.config.VaultSigningKey, kms.NewClock(), c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyCache"]; exists {
		return nil, storedErr
	}
	return c.keyCache, nil
}

// Signer returns the KMS-backed token signer.
func (c *Container) Signer() (*kms.Signer, error) {
	var err error
	c.signerInit.Do(func() {
		var client kms.Client
		client, err = c.KMSClient()
		if err != nil {
			err = fmt.Errorf("failed to get kms client for signer: %w", err)
			c.initErrors["signer"] = err
			return
		}
		var keyCache *kms.KeyCache
		keyCache, err = c.KeyCache()
		if err != nil {
			err = fmt.Errorf("failed to get key cache for signer: %w", err)
			c.initErrors["signer"] = err
			return
		}
		c.signer = kms.NewSigner(client, keyCache, c.config.VaultSigningKey)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["signer"]; exists {
		return nil, storedErr
	}
	return c.signer, nil
}

// MetricsProvider returns the metrics provider, or nil when metrics are
// disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	var err error
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		c.metricsProvider, err = metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is
// returned when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	var err error
	c.businessMetricsInit.Do(func() {
		var provider *metrics.Provider
		provider, err = c.MetricsProvider()
		if err != nil {
			err = fmt.Errorf("failed to get metrics provider for business metrics: %w", err)
			c.initErrors["businessMetrics"] = err
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		c.businessMetrics, err = metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// UserRepository returns the user repository instance for the configured
// database driver. The returned value satisfies both the auth and user module
// repository interfaces.
func (c *Container) UserRepository() (authUseCase.UserRepository, error) {
	var err error
	c.userRepoInit.Do(func() {
		var db *sql.DB
		db, err = c.DB()
		if err != nil {
			err = fmt.Errorf("failed to get database for user repository: %w", err)
			c.initErrors["userRepo"] = err
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.userRepo = userRepository.NewMySQLUserRepository(db)
		case "postgres":
			c.userRepo = userRepository.NewPostgreSQLUserRepository(db)
		default:
			err = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
			c.initErrors["userRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userRepo"]; exists {
		return nil, storedErr
	}
	return c.userRepo, nil
}

// UserUseCase returns the user use case instance.
func (c *Container) UserUseCase() (userUseCase.UserUseCase, error) {
	var err error
	c.userUseCaseInit.Do(func() {
		var repo authUseCase.UserRepository
		repo, err = c.UserRepository()
		if err != nil {
			err = fmt.Errorf("failed to get user repository for user use case: %w", err)
			c.initErrors["userUseCase"] = err
			return
		}
		var business metrics.BusinessMetrics
		business, err = c.BusinessMetrics()
		if err != nil {
			c.initErrors["userUseCase"] = err
			return
		}
		c.userUC = userUseCase.NewUserUseCaseWithMetrics(
			userUseCase.NewUserUseCase(repo, c.Logger()),
			business,
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userUseCase"]; exists {
		return nil, storedErr
	}
	return c.userUC, nil
}

// UserHandler returns the user HTTP handler.
func (c *Container) UserHandler() (*userHTTP.UserHandler, error) {
	var err error
	c.userHandlerInit.Do(func() {
		var uc userUseCase.UserUseCase
		uc, err = c.UserUseCase()
		if err != nil {
			c.initErrors["userHandler"] = err
			return
		}
		c.userHandler = userHTTP.NewUserHandler(uc, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userHandler"]; exists {
		return nil, storedErr
	}
	return c.userHandler, nil
}

// HTTPServer returns the API HTTP server with all routes wired.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the metrics HTTP server, or nil when metrics are
// disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	var err error
	c.metricsServerInit.Do(func() {
		var provider *metrics.Provider
		provider, err = c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}

// Shutdown gracefully releases all initialized resources.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.cacheClient != nil {
		if err := c.cacheClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("cache close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates a structured logger based on the configured log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initHTTPServer creates the HTTP server with all its dependencies.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}

	cacheClient, err := c.Cache()
	if err != nil {
		return nil, fmt.Errorf("failed to get cache for http server: %w", err)
	}

	signer, err := c.Signer()
	if err != nil {
		return nil, fmt.Errorf("failed to get signer for http server: %w", err)
	}

	sessionHandler, err := c.SessionHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get session handler for http server: %w", err)
	}

	signupHandler, err := c.SignupHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get signup handler for http server: %w", err)
	}

	userHandler, err := c.UserHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get user handler for http server: %w", err)
	}

	sessionUC, err := c.SessionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get session use case for http server: %w", err)
	}

	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(c.config, http.RouterDeps{
		SessionHandler:  sessionHandler,
		SignupHandler:   signupHandler,
		UserHandler:     userHandler,
		SessionUseCase:  sessionUC,
		Cache:           cacheClient,
		Signer:          signer,
		MetricsProvider: metricsProvider,
	})

	return server, nil
}
