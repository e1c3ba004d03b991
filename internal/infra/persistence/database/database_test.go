package database

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"identity/config"
	domainerrors "identity/internal/domain/errors"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: "oracle"}, slog.New(slog.NewTextHandler(io.Discard, nil)), false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestOpen_SQLiteRequiresPath(t *testing.T) {
	_, err := Open(&config.DatabaseConfig{Driver: DriverSQLite}, slog.New(slog.NewTextHandler(io.Discard, nil)), false)

	require.Error(t, err)
}

func TestOpen_SQLiteSingleConnection(t *testing.T) {
	cfg := newSQLiteConfig(t)
	cfg.MaxOpenConns = 20

	db, err := Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestMigrate_Idempotent(t *testing.T) {
	db, cfg := newTestDB(t)
	ctx := context.Background()

	sqlDB, err := db.DB()
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, sqlDB, cfg.Driver))

	version, err := MigrationVersion(ctx, sqlDB, cfg.Driver)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
}

// Emails are already normalized, so uniqueness must be byte-exact: an
// accent- or case-folding collation would merge distinct addresses.
func TestMySQLMigration_EmailIsBinaryCollated(t *testing.T) {
	script, err := migrationsFS.ReadFile("migrations/mysql/00001_create_users.sql")
	require.NoError(t, err)

	var emailColumn string
	for _, line := range strings.Split(string(script), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "email ") {
			emailColumn = line
		}
	}

	require.NotEmpty(t, emailColumn)
	assert.Contains(t, emailColumn, "COLLATE utf8mb4_bin")
	assert.NotContains(t, string(script), "_ci")
}

func TestMigrate_UnknownDialect(t *testing.T) {
	db, _ := newTestDB(t)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	err = Migrate(context.Background(), sqlDB, "oracle")
	require.Error(t, err)
}

func TestPrepare_ClosedPool(t *testing.T) {
	cfg := newSQLiteConfig(t)
	db, err := Open(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = Prepare(context.Background(), db, cfg)
	assert.ErrorIs(t, err, domainerrors.ErrStorageUnavailable)
}

func TestMySQLConfig(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Driver:   DriverMySQL,
		Host:     "db.internal",
		UserName: "root",
		Password: "secret",
		Name:     "fb_demo",
	}

	withSchema := mysqlConfig(cfg, true)
	assert.Equal(t, "db.internal:3306", withSchema.Addr)
	assert.Equal(t, "fb_demo", withSchema.DBName)
	assert.True(t, withSchema.ParseTime)
	assert.True(t, withSchema.ClientFoundRows)
	assert.Equal(t, "utf8mb4_bin", withSchema.Collation)

	bootstrap := mysqlConfig(cfg, false)
	assert.Empty(t, bootstrap.DBName)
}

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(&config.DatabaseConfig{
		Host:     "localhost",
		Port:     5433,
		UserName: "app",
		Password: "pw",
		Name:     "identity",
	})

	assert.Equal(t, "host=localhost port=5433 user=app password=pw dbname=identity sslmode=disable", dsn)
}

func TestQuoteMySQLIdentifier(t *testing.T) {
	assert.Equal(t, "`fb_demo`", quoteMySQLIdentifier("fb_demo"))
	assert.Equal(t, "`we``ird`", quoteMySQLIdentifier("we`ird"))
}

func TestIsUniqueConstraintViolation(t *testing.T) {
	assert.True(t, isUniqueConstraintViolation(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.True(t, isUniqueConstraintViolation(errors.New("UNIQUE constraint failed: users.email")))
	assert.True(t, isUniqueConstraintViolation(errors.New(`ERROR: duplicate key value violates unique constraint "uk_users_email" (SQLSTATE 23505)`)))
	assert.False(t, isUniqueConstraintViolation(&mysqldriver.MySQLError{Number: 1146, Message: "Table doesn't exist"}))
	assert.False(t, isUniqueConstraintViolation(nil))
}

func TestIsConnectionFailure(t *testing.T) {
	assert.True(t, isConnectionFailure(mysqldriver.ErrInvalidConn))
	assert.True(t, isConnectionFailure(context.DeadlineExceeded))
	assert.True(t, isConnectionFailure(errors.New("sql: database is closed")))
	assert.False(t, isConnectionFailure(errors.New("syntax error")))
	assert.False(t, isConnectionFailure(nil))
}

func TestNew_StartLogsSchemaVersion(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	lc := fxtest.NewLifecycle(t)
	db, err := New(Params{
		Lifecycle: lc,
		Config:    &config.Config{Database: newSQLiteConfig(t)},
		Logger:    logger,
	})
	require.NoError(t, err)

	lc.RequireStart()

	var count int64
	require.NoError(t, db.Table("users").Count(&count).Error)
	assert.Zero(t, count)
	assert.Contains(t, buf.String(), `"msg":"Account store ready"`)
	assert.Contains(t, buf.String(), `"schemaVersion":1`)

	lc.RequireStop()
}
