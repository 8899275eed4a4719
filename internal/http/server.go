// Package http provides the API HTTP server and its middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	authHTTP "github.com/allisson/authd/internal/auth/http"
	authUseCase "github.com/allisson/authd/internal/auth/usecase"
	"github.com/allisson/authd/internal/config"
	"github.com/allisson/authd/internal/kms"
	"github.com/allisson/authd/internal/metrics"
	userHTTP "github.com/allisson/authd/internal/user/http"
)

// Server represents the API HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	db     *sql.DB
	cache  *redis.Client
	signer *kms.Signer
	logger *slog.Logger
}

// NewServer creates a new HTTP server. The router starts empty; call
// SetupRouter before Start.
func NewServer(db *sql.DB, host string, port int, logger *slog.Logger) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// RouterDeps holds the handlers and shared dependencies the router needs.
type RouterDeps struct {
	SessionHandler  *authHTTP.SessionHandler
	SignupHandler   *authHTTP.SignupHandler
	UserHandler     *userHTTP.UserHandler
	SessionUseCase  authUseCase.SessionUseCase
	Cache           *redis.Client
	Signer          *kms.Signer
	MetricsProvider *metrics.Provider
}

// SetupRouter builds the Gin router with all middleware and routes.
func (s *Server) SetupRouter(cfg *config.Config, deps RouterDeps) {
	s.cache = deps.Cache
	s.signer = deps.Signer

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if deps.MetricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(deps.MetricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	authenticated := authHTTP.AuthenticationMiddleware(deps.SessionUseCase, s.logger)

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		if cfg.RateLimitTokenEnabled {
			authGroup.Use(authHTTP.IPRateLimitMiddleware(
				cfg.RateLimitTokenRequestsPerSec,
				cfg.RateLimitTokenBurst,
				s.logger,
			))
		}

		authGroup.POST("/signup/code", deps.SignupHandler.RequestCreationCodeHandler)
		authGroup.POST("/signup", deps.SignupHandler.CreateAccountHandler)
		authGroup.POST("/login", deps.SessionHandler.LoginHandler)
		authGroup.POST("/refresh", deps.SessionHandler.RefreshHandler)
		authGroup.POST("/logout_all", authenticated, deps.SessionHandler.LogoutEverywhereHandler)

		v1.GET("/me", authenticated, deps.UserHandler.MeHandler)
	}

	s.router = router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can do useful work: the
// database and cache store answer pings and at least one signing key version
// is known.
func (s *Server) readinessHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ready := true
	components := gin.H{}

	if s.db == nil {
		components["database"] = "error"
		ready = false
	} else if err := s.db.PingContext(ctx); err != nil {
		components["database"] = "error"
		ready = false
	} else {
		components["database"] = "ok"
	}

	if s.cache != nil {
		if err := s.cache.Ping(ctx).Err(); err != nil {
			components["cache"] = "error"
			ready = false
		} else {
			components["cache"] = "ok"
		}
	}

	if s.signer != nil {
		if s.signer.LatestVersion() == 0 {
			components["signing_key"] = "error"
			ready = false
		} else {
			components["signing_key"] = "ok"
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "components": components})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready", "components": components})
}

// GetHandler returns the router as an http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// Start starts the HTTP server. Blocks until the server stops.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
