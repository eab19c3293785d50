package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/shareframe/backend/internal/access"
	"github.com/shareframe/backend/internal/accounts"
	"github.com/shareframe/backend/internal/auth"
	"github.com/shareframe/backend/internal/catalog"
	"github.com/shareframe/backend/internal/config"
	"github.com/shareframe/backend/internal/db"
	"github.com/shareframe/backend/internal/handlers"
	"github.com/shareframe/backend/internal/middleware"
	"github.com/shareframe/backend/internal/notify"
	"github.com/shareframe/backend/internal/repositories"
	"github.com/shareframe/backend/internal/storage"
	"github.com/shareframe/backend/internal/videos"
)

// memoryBaseURL roots object URLs for the memory storage driver.
const memoryBaseURL = "memory://shareframe"

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The returned cleanup drains the notification queue and closes any
// connections opened here.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, func(context.Context) error, error) {
	logger := slog.Default()

	store, err := buildObjectStore(ctx, cfg)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	var redisClient *redis.Client
	var deadLetters notify.DeadLetterSink = notify.NewLogDeadLetters(logger)
	if cfg.RedisURL != "" {
		redisClient, err = notify.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return handlers.Dependencies{}, nil, err
		}
		deadLetters = notify.NewRedisDeadLetters(redisClient)
	}

	var sender notify.Sender = notify.NewLogSender(logger)
	if cfg.Mail.Host != "" {
		sender = notify.NewSMTPSender(cfg.Mail)
	}

	dispatcher := notify.NewDispatcher(sender, deadLetters, notify.Config{
		QueueSize:   cfg.Notify.QueueSize,
		Workers:     cfg.Notify.Workers,
		SendTimeout: cfg.Notify.SendTimeout,
	}, logger)
	mailer := notify.NewMailer(dispatcher, cfg.PublicURL)

	users := repositories.NewPostgresUserRepository(pool)
	videoRepo := repositories.NewPostgresVideoRepository(pool)
	sessions := auth.NewManager([]byte(cfg.JWTSecret), cfg.SessionTTL)

	deps := handlers.Dependencies{
		Accounts:       accounts.NewService(users, auth.NewHasher(cfg.BcryptCost), sessions, mailer),
		Videos:         videos.NewService(videoRepo, users, store, cfg.ObjectStore.Folder),
		Catalog:        catalog.NewService(videoRepo),
		Authenticator:  access.Authenticator{Tokens: sessions, Users: users},
		AuthLimiter:    middleware.NewAuthRateLimiter(cfg.RateLimit),
		MaxUploadBytes: cfg.MaxUploadBytes,
		TrustProxy:     cfg.RateLimit.TrustProxy,
	}

	cleanup := func(ctx context.Context) error {
		var errs []error
		if err := dispatcher.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("drain notifications: %w", err))
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close redis: %w", err))
			}
		}
		return errors.Join(errs...)
	}

	return deps, cleanup, nil
}

// buildObjectStore selects the object storage driver named in cfg.
func buildObjectStore(ctx context.Context, cfg config.Config) (storage.ObjectStore, error) {
	switch cfg.ObjectStore.Driver {
	case config.StorageDriverS3:
		return storage.NewS3Store(ctx, cfg.ObjectStore)
	case config.StorageDriverMinio:
		return storage.NewMinioStore(cfg.ObjectStore)
	case config.StorageDriverMemory:
		baseURL := cfg.ObjectStore.PublicBaseURL
		if baseURL == "" {
			baseURL = memoryBaseURL
		}
		return storage.NewMemoryStore(baseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.ObjectStore.Driver)
	}
}
