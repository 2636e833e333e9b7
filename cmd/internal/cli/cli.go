// Package cli holds the setup shared by the command line tools.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"messaging-service/cmd/api/infrastructure"
	"messaging-service/internal/config"
	"messaging-service/pkg/logger"
)

// Env is what every tool needs before doing its work.
type Env struct {
	Config *config.Config
	Logger *zap.Logger
}

// Load reads configuration from CONFIG_PATH (default ".") and builds a stderr logger.
// A non-empty level overrides LOG_LEVEL.
func Load(level string) (*Env, error) {
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if level == "" {
		level = cfg.Logger.Level
	}
	return &Env{Config: cfg, Logger: logger.NewCLI(level)}, nil
}

// OpenDB opens and migrates the configured database.
func (e *Env) OpenDB() (*gorm.DB, func(), error) {
	db, err := infrastructure.NewDatabase(e.Config, e.Logger)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { _ = infrastructure.CloseDatabase(db) }, nil
}

// SignalContext is canceled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Fatal logs err and exits with status 1.
func Fatal(log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err))
	_ = log.Sync()
	os.Exit(1)
}
