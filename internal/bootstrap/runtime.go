// Package bootstrap connects the backends shared by the server and worker binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wanderplan/internal/cache"
	"wanderplan/internal/config"
	"wanderplan/internal/database"
	"wanderplan/internal/jobs"
	"wanderplan/internal/middleware"
	"wanderplan/internal/places"
	"wanderplan/internal/reviews"
	"wanderplan/internal/search"
	"wanderplan/internal/seed"
	"wanderplan/internal/server"
	"wanderplan/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty database with demo users and plans.
	SeedDemo bool
	// SkipQueue leaves the cascade publisher unconnected (the worker consumes
	// with its own connection).
	SkipQueue bool
}

// Runtime holds connected backends. Every field except DB and Config may
// be nil when its integration is not configured or unreachable.
type Runtime struct {
	Config  *config.Config
	DB      *gorm.DB
	Redis   *redis.Client
	Search  *search.Meili
	Avatars *storage.AvatarStore
	Jobs    *jobs.Publisher

	cancel context.CancelFunc
}

// InitRuntime connects the database and every configured integration.
// Only a database failure is fatal; other backends log and stay nil.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis may result in a nil client if unreachable
	cache.InitRedis(cfg.RedisURL)

	watchCtx, cancel := context.WithCancel(context.Background())
	rt := &Runtime{Config: cfg, DB: db, Redis: cache.GetClient(), cancel: cancel}

	if cfg.MeiliURL != "" {
		rt.Search = search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey)
		go rt.Search.Watch(watchCtx)
	}

	if cfg.MinioEndpoint != "" {
		connectCtx, stop := context.WithTimeout(ctx, 10*time.Second)
		avatars, err := storage.NewMinio(connectCtx, storage.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		stop()
		if err != nil {
			middleware.Logger.Warn("avatar storage unavailable, uploads disabled", slog.String("error", err.Error()))
		} else {
			rt.Avatars = avatars
		}
	}

	if cfg.RabbitMQURL != "" && !opts.SkipQueue {
		pub, err := jobs.NewPublisher(cfg.RabbitMQURL, cfg.CascadeQueue)
		if err != nil {
			middleware.Logger.Warn("job queue unavailable, cascades run inline", slog.String("error", err.Error()))
		} else {
			rt.Jobs = pub
		}
	}

	if opts.SeedDemo {
		if err := seedIfEmpty(ctx, db); err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return rt, nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB) error {
	var users int64
	if err := db.WithContext(ctx).Table("users").Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}
	catalog, err := seed.DefaultCatalog()
	if err != nil {
		return err
	}
	report, err := seed.NewSeeder(db, catalog).Run(ctx, seed.DefaultOptions())
	if err != nil {
		return err
	}
	middleware.Logger.Info("demo data seeded",
		slog.Int("users", report.Users),
		slog.Int("plans", report.Plans),
		slog.Int("publications", report.Publications),
	)
	return nil
}

// ServerDeps adapts the runtime to server.Deps. Integrations that are nil
// stay nil interfaces.
func (r *Runtime) ServerDeps() server.Deps {
	deps := server.Deps{DB: r.DB, Redis: r.Redis}
	if r.Search != nil {
		deps.Index = r.Search
	}
	if r.Avatars != nil {
		deps.Avatars = r.Avatars
	}
	if r.Jobs != nil {
		deps.CascadeJob = r.Jobs
	}

	cfg := r.Config
	if cfg.SerpAPIKey != "" {
		deps.Places = places.NewClient(cfg.SerpAPIURL, cfg.SerpAPIKey,
			time.Duration(cfg.SearchTimeoutSeconds)*time.Second)
	}
	// Missing keys are reported per request by the service itself.
	deps.Reviews = reviews.NewService(reviews.Config{
		GoogleAPIKey:  cfg.GoogleAPIKey,
		GoogleMapsURL: cfg.GoogleMapsURL,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		GeminiBaseURL: cfg.GeminiBaseURL,
		Timeout:       time.Duration(cfg.ReviewTimeoutSecs) * time.Second,
	})
	return deps
}

// Close releases every connection the runtime opened.
func (r *Runtime) Close() {
	if r.cancel != nil {
		r.cancel()
	}
	if r.Jobs != nil {
		r.Jobs.Close()
	}
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			middleware.Logger.Warn("redis close failed", slog.String("error", err.Error()))
		}
	}
	if sqlDB, err := r.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			middleware.Logger.Warn("database close failed", slog.String("error", err.Error()))
		}
	}
}
