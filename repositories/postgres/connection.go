package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/upb/wedding-platform/config"
	"github.com/upb/wedding-platform/migrations"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// DB is a PostgreSQL pool shared by every repository.
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB opens a pool sized from cfg and fails unless the server answers a ping.
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	pool, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pool.SetMaxOpenConns(cfg.MaxOpenConns)
	pool.SetMaxIdleConns(cfg.MaxIdleConns)
	pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", cfg.LogString(), err)
	}

	return WrapDB(pool, logger), nil
}

// WrapDB adapts an existing pool, e.g. one opened by sqlmock in tests.
func WrapDB(db *sql.DB, logger *zap.Logger) *DB {
	return &DB{DB: db, logger: logger}
}

func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// Stats feeds the pool gauges.
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// Migrate applies every pending migration embedded in the migrations package
func (db *DB) Migrate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, _ := m.Version()
	db.logger.Info("migrations complete",
		zap.Uint("version", version),
		zap.Bool("dirty", dirty))
	return nil
}
