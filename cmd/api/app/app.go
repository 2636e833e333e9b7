package app

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	"go.uber.org/zap"

	"messaging-service/cmd/api/di"
	"messaging-service/cmd/api/server"
	"messaging-service/internal/config"
	"messaging-service/pkg/logger"
)

// App owns the process: configuration, logger, servers and the dependency container.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Server    *server.Server
	Container *di.Container
}

// New loads configuration from CONFIG_PATH, builds the logger and wires every dependency.
func New() (*App, error) {
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.NewWithConfig(logger.Config{
		Level:            cfg.Logger.Level,
		Format:           cfg.Logger.Format,
		OutputPath:       cfg.Logger.OutputPath,
		SlowQuerySeconds: cfg.Logger.SlowQuerySeconds,
		EnableSampling:   cfg.Logger.EnableSampling,
		ServiceName:      cfg.Logger.ServiceName,
		ServiceVersion:   cfg.Logger.ServiceVersion,
		Environment:      cfg.App.Environment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	container, err := di.NewContainer(cfg, l)
	if err != nil {
		_ = l.Sync()
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    l,
		Server:    server.New(cfg, l, container),
		Container: container,
	}, nil
}

// Run serves until ctx is canceled or a server fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	a.Logger.Info("starting messaging service",
		zap.String("service", a.Config.Logger.ServiceName),
		zap.String("version", a.Config.Logger.ServiceVersion),
		zap.String("environment", a.Config.App.Environment),
		zap.String("db_driver", a.Config.DB.Driver),
		zap.Bool("redis", a.Container.RedisClient != nil),
	)

	errChan := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.Logger.Error("server panic", zap.Any("panic", r), zap.Stack("stack"))
				errChan <- fmt.Errorf("server panic: %v", r)
			}
		}()
		errChan <- a.Server.Start()
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("context canceled, shutting down")
	case err := <-errChan:
		if err != nil {
			runErr = fmt.Errorf("server error: %w", err)
			a.Logger.Error("server stopped unexpectedly", zap.Error(err))
		}
	}

	return errors.Join(runErr, a.shutdown())
}

// shutdown stops accepting traffic, drains in-flight requests and releases the container.
func (a *App) shutdown() error {
	timeout := time.Duration(a.Config.App.ShutdownTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.Logger.Info("graceful shutdown", zap.Duration("timeout", timeout))

	var errs []error

	// Report NOT_SERVING first so load balancers stop routing here.
	if a.Server.Health != nil {
		a.Server.Health.Shutdown()
	}

	if a.Server.Gin != nil {
		if err := a.Server.Gin.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP shutdown failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}

	if a.Server.GRPC != nil {
		stopGRPC(ctx, a)
	}

	if err := a.Container.Close(); err != nil {
		a.Logger.Error("failed to close container", zap.Error(err))
		errs = append(errs, fmt.Errorf("container close: %w", err))
	}

	a.Logger.Info("shutdown complete")

	// Syncing a terminal or pipe fails with EINVAL; that is not an error for us.
	if err := a.Logger.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) {
		errs = append(errs, fmt.Errorf("logger sync: %w", err))
	}

	return errors.Join(errs...)
}

// stopGRPC drains gRPC calls, falling back to a hard stop when ctx expires.
func stopGRPC(ctx context.Context, a *App) {
	done := make(chan struct{})
	go func() {
		a.Server.GRPC.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.Logger.Warn("gRPC drain timed out, forcing stop")
		a.Server.GRPC.Stop()
	}
}
