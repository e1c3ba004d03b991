package database

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"

	"identity/internal/errors"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies every pending embedded migration for the driver's dialect.
// Applying it to an up-to-date schema is a no-op.
func Migrate(ctx context.Context, sqlDB *sql.DB, driver string) error {
	provider, err := newMigrationProvider(sqlDB, driver)
	if err != nil {
		return err
	}

	if _, err := provider.Up(ctx); err != nil {
		return errors.Wrap(err, "failed to apply migrations")
	}

	return nil
}

// MigrationVersion returns the highest applied migration version.
func MigrationVersion(ctx context.Context, sqlDB *sql.DB, driver string) (int64, error) {
	provider, err := newMigrationProvider(sqlDB, driver)
	if err != nil {
		return 0, err
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read migration version")
	}

	return version, nil
}

func newMigrationProvider(sqlDB *sql.DB, driver string) (*goose.Provider, error) {
	var dialect goose.Dialect
	switch driver {
	case DriverMySQL:
		dialect = goose.DialectMySQL
	case DriverPostgres:
		dialect = goose.DialectPostgres
	case DriverSQLite:
		dialect = goose.DialectSQLite3
	default:
		return nil, errors.Errorf("unsupported migration dialect %q", driver)
	}

	dir, err := fs.Sub(migrationsFS, "migrations/"+driver)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open embedded migrations")
	}

	provider, err := goose.NewProvider(dialect, sqlDB, dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create migration provider")
	}

	return provider, nil
}
