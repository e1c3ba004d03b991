// Package database contains the concrete implementation of the persistence layer
// using GORM over MySQL, PostgreSQL or SQLite.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"identity/config"
	domainerrors "identity/internal/domain/errors"
	"identity/internal/domain/lifecycle"
	"identity/internal/errors"

	mysqldriver "github.com/go-sql-driver/mysql"
	"go.uber.org/fx"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	dbPoolMonitorInterval       = 5 * time.Second
	dbPoolWarnDurationThreshold = 50 * time.Millisecond
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens the account store pool once for the process. The pool is pinged,
// bootstrapped and migrated on start; a failure there aborts startup.
func New(params Params) (*gorm.DB, error) {
	dbCfg := params.Config.Database

	db, err := Open(dbCfg, params.Logger, params.Config.Env.Debug)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}

	monitorCtx, cancelMonitor := context.WithCancel(context.Background())

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := Prepare(ctx, db, dbCfg); err != nil {
				return err
			}

			attrs := []any{slog.String("driver", dbCfg.Driver)}
			if dbCfg.AutoMigrate {
				version, err := MigrationVersion(ctx, sqlDB, dbCfg.Driver)
				if err != nil {
					return err
				}
				attrs = append(attrs, slog.Int64("schemaVersion", version))
			}

			go monitorDBPool(monitorCtx, params.Logger, sqlDB, dbPoolMonitorInterval)
			params.Logger.Info("Account store ready", attrs...)

			return nil
		},
		OnStop: func(_ context.Context) error {
			cancelMonitor()

			return errors.WithStack(sqlDB.Close())
		},
	})

	return db, nil
}

// Open builds the GORM handle and configures the pool without touching the server.
func Open(cfg *config.DatabaseConfig, logger *slog.Logger, debug bool) (*gorm.DB, error) {
	dialector, err := newDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		// Explicit statements only; create-if-absent relies on the unique index.
		SkipDefaultTransaction: true,
		// Map driver-specific duplicate-key errors to gorm.ErrDuplicatedKey.
		TranslateError: true,
		// The schema may not exist yet; Prepare pings after bootstrapping it.
		DisableAutomaticPing: true,
		Logger:               newGormSlogLogger(logger, debug),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open account store")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}

	maxOpen, maxIdle := cfg.MaxOpenConns, cfg.MaxIdleConns
	if cfg.Driver == DriverSQLite {
		// SQLite has a single writer; one connection avoids "database is locked".
		maxOpen, maxIdle = 1, 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

// Prepare bootstraps the schema if configured, verifies connectivity and applies migrations.
func Prepare(ctx context.Context, db *gorm.DB, cfg *config.DatabaseConfig) error {
	if cfg.Driver == DriverMySQL && cfg.CreateIfMissing {
		if err := ensureMySQLDatabase(ctx, cfg); err != nil {
			return errors.Wrap(domainerrors.ErrStorageUnavailable.WithDetails(err.Error()), "database bootstrap failed")
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB")
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrap(domainerrors.ErrStorageUnavailable.WithDetails(err.Error()), "ping failed")
	}

	if cfg.AutoMigrate {
		if err := Migrate(ctx, sqlDB, cfg.Driver); err != nil {
			return err
		}
	}

	return nil
}

func newDialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverMySQL:
		return mysql.Open(mysqlConfig(cfg, true).FormatDSN()), nil
	case DriverPostgres:
		return postgres.Open(postgresDSN(cfg)), nil
	case DriverSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("sqlitePath is required for the sqlite driver")
		}

		return sqlite.Open(cfg.SQLitePath), nil
	default:
		return nil, errors.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// mysqlConfig builds the driver config. ClientFoundRows makes UPDATE report matched
// rather than changed rows, so re-recording the same action is not mistaken for a missing account.
func mysqlConfig(cfg *config.DatabaseConfig, withSchema bool) *mysqldriver.Config {
	c := mysqldriver.NewConfig()
	c.User = cfg.UserName
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(portOrDefault(cfg.Port, 3306)))
	c.ParseTime = true
	c.ClientFoundRows = true
	c.Collation = "utf8mb4_bin"
	if withSchema {
		c.DBName = cfg.Name
	}

	return c
}

func postgresDSN(cfg *config.DatabaseConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, portOrDefault(cfg.Port, 5432), cfg.UserName, cfg.Password, cfg.Name, sslMode)
}

func portOrDefault(port, fallback int) int {
	if port == 0 {
		return fallback
	}

	return port
}

// ensureMySQLDatabase creates the configured schema through a short-lived
// connection that is not bound to any database.
func ensureMySQLDatabase(ctx context.Context, cfg *config.DatabaseConfig) error {
	connector, err := mysqldriver.NewConnector(mysqlConfig(cfg, false))
	if err != nil {
		return errors.Wrap(err, "failed to build bootstrap connector")
	}

	rootDB := sql.OpenDB(connector)
	defer rootDB.Close()

	stmt := fmt.Sprintf(
		"CREATE DATABASE IF NOT EXISTS %s DEFAULT CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci",
		quoteMySQLIdentifier(cfg.Name),
	)
	if _, err := rootDB.ExecContext(ctx, stmt); err != nil {
		return errors.Wrapf(err, "failed to create database %s", cfg.Name)
	}

	return nil
}

func quoteMySQLIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func monitorDBPool(ctx context.Context, logger *slog.Logger, sqlDB *sql.DB, interval time.Duration) {
	if logger == nil || sqlDB == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := sqlDB.Stats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cur := sqlDB.Stats()
			waitDelta := cur.WaitCount - prev.WaitCount
			waitDurationDelta := cur.WaitDuration - prev.WaitDuration
			prev = cur

			if waitDelta <= 0 {
				continue
			}

			level := slog.LevelDebug
			if waitDurationDelta >= dbPoolWarnDurationThreshold {
				level = slog.LevelWarn
			}
			logger.LogAttrs(ctx, level, "Account store pool wait",
				slog.Int64("waitCountDelta", waitDelta),
				slog.Duration("avgWait", waitDurationDelta/time.Duration(waitDelta)),
				slog.Int("maxOpenConns", cur.MaxOpenConnections),
				slog.Int("inUseConns", cur.InUse),
				slog.Int("idleConns", cur.Idle),
			)
		}
	}
}
