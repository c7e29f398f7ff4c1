package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"wanderplan/internal/config"
	"wanderplan/internal/middleware"

	"gorm.io/gorm"
)

func isProdLikeEnv(env string) bool {
	e := strings.ToLower(strings.TrimSpace(env))
	return e == "production" || e == "prod" || e == "staging" || e == "stage"
}

// Migrate runs AutoMigrate over PersistentModels unconditionally.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// ApplySchema migrates automatically outside production. Production schemas
// are changed only through cmd/migrate.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	if isProdLikeEnv(cfg.Env) {
		middleware.Logger.Info("Skipping AutoMigrate in production-like environment", slog.String("env", cfg.Env))
		return nil
	}

	middleware.Logger.Info("Running GORM AutoMigrate", slog.String("env", cfg.Env))
	if err := Migrate(ctx, db); err != nil {
		return err
	}
	middleware.Logger.Info("Database migration completed")
	return nil
}

// TableStatus reports whether every persistent model has a table.
func TableStatus(db *gorm.DB) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, model := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model: %w", err)
		}
		out[stmt.Schema.Table] = db.Migrator().HasTable(model)
	}
	return out, nil
}
