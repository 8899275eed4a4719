package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/authd/internal/app"
	"github.com/allisson/authd/internal/config"
)

// RunServer starts the API and metrics HTTP servers together with the KMS
// background workers (session renewal and verification key refresh). Blocks
// until SIGINT/SIGTERM or a fatal error, then shuts everything down within
// DBConnMaxLifetime.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()

	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	defer closeContainer(container, logger)

	sessionManager, err := container.SessionManager()
	if err != nil {
		return fmt.Errorf("failed to initialize kms session manager: %w", err)
	}

	keyCache, err := container.KeyCache()
	if err != nil {
		return fmt.Errorf("failed to initialize kms key cache: %w", err)
	}

	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := sessionManager.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("kms session manager error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		if err := keyCache.Run(groupCtx, sessionManager.Ready()); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("kms key cache error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		if err := server.Start(groupCtx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})

	if metricsServer != nil {
		group.Go(func() error {
			if err := metricsServer.Start(groupCtx); err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}

	// The HTTP servers block in ListenAndServe: shut them down when the
	// group context ends, whether from a signal or a failed worker.
	group.Go(func() error {
		<-groupCtx.Done()

		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
		defer shutdownCancel()

		var shutdownErrors []error

		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
		}

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}

		return errors.Join(shutdownErrors...)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
