package database

import (
	"context"
	"testing"

	"wanderplan/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestConfigurePool(t *testing.T) {
	db := openSQLite(t)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}

	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestConfigurePool_Defaults(t *testing.T) {
	db := openSQLite(t)
	require.NoError(t, configurePool(db, &config.Config{}))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 25, sqlDB.Stats().MaxOpenConnections)
}

func TestApplySchema(t *testing.T) {
	t.Run("development migrates", func(t *testing.T) {
		db := openSQLite(t)
		require.NoError(t, ApplySchema(context.Background(), db, &config.Config{Env: "development"}))

		status, err := TableStatus(db)
		require.NoError(t, err)
		for table, ok := range status {
			assert.True(t, ok, "table %s should exist", table)
		}
		assert.Contains(t, status, "follows")
		assert.Contains(t, status, "publications")
	})

	t.Run("production skips", func(t *testing.T) {
		db := openSQLite(t)
		require.NoError(t, ApplySchema(context.Background(), db, &config.Config{Env: "production"}))

		status, err := TableStatus(db)
		require.NoError(t, err)
		assert.False(t, status["plans"])
	})
}
