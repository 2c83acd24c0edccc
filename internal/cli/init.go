// Package cli provides common CLI initialization utilities shared by the
// haushalt subcommands: logging, .env loading, config, backend and broker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"haushalt/internal/amqp"
	"haushalt/internal/backend"
	"haushalt/internal/config"
	"haushalt/internal/log"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL.
// Unknown levels fall back to info. The logger is also set as the default.
func SetupLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentCLI,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}),
	})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Unknown log level, using info", log.FieldError, err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig(logger *log.Logger) (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.NewFields().WithOperation(log.OpValidate).WithError(err, log.ErrorTypeConfiguration).ToSlice()...)
		return nil, err
	}
	return cfg, nil
}

// InitBackend opens the store selected by DATA_BACKEND.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize backend",
			log.NewFields().WithOperation(log.OpStartup).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return nil, fmt.Errorf("init %s backend: %w", bcfg.Type, err)
	}
	return res, nil
}

// InitAMQP connects to the broker when AMQP_URL is set. It returns nil when
// the broker is disabled or unreachable; ledger changes are then simply not
// published.
func InitAMQP(logger *log.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without change events",
			log.NewFields().WithOperation(log.OpStartup).WithError(err, log.ErrorTypeNetwork).ToSlice()...)
		return nil
	}
	client.SetLogger(logger)
	logger.Debug("Initialized AMQP client",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	return client
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		finished := make(chan struct{})
		go func() {
			cancel()
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
