package database

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"identity/config"
	"identity/internal/domain/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newSQLiteConfig(t *testing.T) *config.DatabaseConfig {
	t.Helper()

	return &config.DatabaseConfig{
		Driver:      DriverSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "identity.db"),
		AutoMigrate: true,
	}
}

func newTestDB(t *testing.T) (*gorm.DB, *config.DatabaseConfig) {
	t.Helper()

	cfg := newSQLiteConfig(t)
	db, err := Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	require.NoError(t, err)
	require.NoError(t, Prepare(context.Background(), db, cfg))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return db, cfg
}

func newTestRepository(t *testing.T) (repository.AccountRepository, *gorm.DB) {
	t.Helper()

	db, _ := newTestDB(t)

	return NewAccountRepository(db), db
}
