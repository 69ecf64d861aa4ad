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

	"github.com/allisson/conversions/internal/app"
	"github.com/allisson/conversions/internal/config"
)

// RunServer starts the HTTP server and the delivery publisher with graceful
// shutdown support. Loads configuration, initializes the DI container, and
// starts the Gin HTTP server, the optional metrics server and the outbox
// publisher loop. Blocks until receiving SIGINT/SIGTERM or encountering a
// fatal error. On shutdown signal, gracefully stops the servers within
// DBConnMaxLifetime timeout.
func RunServer(ctx context.Context, version string) error {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode based on log level
	gin.SetMode(cfg.GetGinMode())

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	// Get HTTP server from container (this initializes all dependencies)
	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	// Get Metrics server from container
	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	// Get the publisher so pending deliveries drain without a separate process
	publisher, err := container.PublisherUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize publisher: %w", err)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start servers in goroutines
	serverErr := make(chan error, 3)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErr <- fmt.Errorf("api server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				serverErr <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	go func() {
		// Start returns the context error on shutdown, which is not a failure.
		if err := publisher.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErr <- fmt.Errorf("publisher error: %w", err)
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		return shutdownServers(container, cfg, logger, nil)
	case err := <-serverErr:
		logger.Error("server error, initiating shutdown", slog.Any("error", err))
		return shutdownServers(container, cfg, logger, err)
	}
}

// shutdownServers gracefully stops the api and metrics servers, joining any
// shutdown errors with the original cause.
func shutdownServers(container *app.Container, cfg *config.Config, logger *slog.Logger, cause error) error {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
	defer shutdownCancel()

	var shutdownErrors []error
	if cause != nil {
		shutdownErrors = append(shutdownErrors, cause)
	}

	if server, err := container.HTTPServer(); err == nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
		}
	}

	if metricsServer, err := container.MetricsServer(); err == nil && metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		logger.Error("shutdown finished with errors", slog.Any("error", errors.Join(shutdownErrors...)))
		return errors.Join(shutdownErrors...)
	}
	return nil
}
