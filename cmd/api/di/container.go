package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"messaging-service/cmd/api/infrastructure"
	"messaging-service/internal/adapter/cache"
	"messaging-service/internal/adapter/db/chatstore"
	"messaging-service/internal/adapter/gin/handler"
	"messaging-service/internal/adapter/gin/router"
	grpcmiddleware "messaging-service/internal/adapter/grpc/middleware"
	"messaging-service/internal/adapter/ratelimit"
	"messaging-service/internal/adapter/repository/cached"
	"messaging-service/internal/config"
	"messaging-service/internal/usecase/auth"
	"messaging-service/internal/usecase/conversation"
	"messaging-service/internal/usecase/message"
	"messaging-service/internal/usecase/permission"
	"messaging-service/internal/usecase/user"
	redisclient "messaging-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *zap.Logger
	DB              *gorm.DB
	RedisClient     *redisclient.Client
	UserUC          *user.Usecase
	ConversationUC  *conversation.Usecase
	MessageUC       *message.Usecase
	Auth            *auth.Service
	Limiter         *ratelimit.Limiter
	GRPCRateLimiter *grpcmiddleware.RateLimiter
	Router          *gin.Engine
}

// NewContainer creates and initializes all application dependencies
func NewContainer(cfg *config.Config, l *zap.Logger) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	db, err := infrastructure.NewDatabase(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rdb, err := infrastructure.NewRedisClient(cfg, l)
	if err != nil {
		_ = infrastructure.CloseDatabase(db)
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	return Build(cfg, db, rdb, l), nil
}

// Build wires repositories, use cases and HTTP handlers on top of open connections.
// rdb may be nil, which disables caching and rate limiting.
func Build(cfg *config.Config, db *gorm.DB, rdb *redisclient.Client, l *zap.Logger) *Container {
	var (
		raw       *redis.Client
		userCache cache.UserCache
	)
	if rdb != nil {
		raw = rdb.Client
		userCache = cache.NewRedisUserCache(raw, time.Duration(cfg.Redis.CacheTTL)*time.Second, l)
	}

	userRepo := cached.NewCachedUserRepository(chatstore.NewUserRepo(db, l), userCache, l)
	convRepo := chatstore.NewConversationRepo(db, l)
	msgRepo := chatstore.NewMessageRepo(db, l)

	perm := permission.NewChecker(l)
	userUC := user.New(userRepo, perm, l)
	convUC := conversation.New(convRepo, userRepo, perm, l)
	msgUC := message.New(msgRepo, convRepo, perm, l)
	authSvc := auth.New(auth.Config{
		Secret:     []byte(cfg.Auth.JWTSecret),
		Issuer:     cfg.Auth.Issuer,
		AccessTTL:  time.Duration(cfg.Auth.AccessTTLMinutes) * time.Minute,
		RefreshTTL: time.Duration(cfg.Auth.RefreshTTLMinutes) * time.Minute,
	}, userRepo, l)

	limiter := ratelimit.NewLimiter(raw, ratelimit.Config{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstCapacity:     cfg.RateLimit.BurstCapacity,
		Enabled:           cfg.RateLimit.Enabled,
	}, l)

	checks := map[string]router.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			if !rdb.Healthy(ctx) {
				return errors.New("redis ping failed")
			}
			return nil
		}
	}

	engine := router.SetupRouter(router.Deps{
		Auth:          handler.NewAuthHandler(authSvc, l),
		Users:         handler.NewUserHandler(userUC, l),
		Conversations: handler.NewConversationHandler(convUC, l),
		Messages:      handler.NewMessageHandler(msgUC, l),
		Authenticator: authSvc,
		Limiter:       limiter,
		Checks:        checks,
		ServiceName:   cfg.Logger.ServiceName,
	}, l)

	return &Container{
		Config:          cfg,
		Logger:          l,
		DB:              db,
		RedisClient:     rdb,
		UserUC:          userUC,
		ConversationUC:  convUC,
		MessageUC:       msgUC,
		Auth:            authSvc,
		Limiter:         limiter,
		GRPCRateLimiter: grpcmiddleware.NewRateLimiter(limiter, l),
		Router:          engine,
	}
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.DB != nil {
		if err := infrastructure.CloseDatabase(c.DB); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	return errors.Join(errs...)
}
