package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/upb/wedding-platform/config"
	"github.com/upb/wedding-platform/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory owns the connection pools and builds repositories over
// them. Audit entries go to a dedicated pool when AuditDatabase is set.
type RepositoryFactory struct {
	db      *DB
	auditDB *DB
	logger  *zap.Logger
}

// NewRepositoryFactory opens the main pool and, if configured, the audit pool.
func NewRepositoryFactory(cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	f := NewRepositoryFactoryFromDB(db, logger)

	if cfg.AuditDatabase == nil {
		return f, nil
	}
	if f.auditDB, err = NewDB(*cfg.AuditDatabase, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit database: %w", err)
	}
	logger.Info("audit logs use a separate database",
		zap.String("connection", cfg.AuditDatabase.LogString()))
	return f, nil
}

// NewRepositoryFactoryFromDB builds a factory over an already-open pool.
func NewRepositoryFactoryFromDB(db *DB, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{db: db, logger: logger}
}

func (f *RepositoryFactory) auditStore() *DB {
	if f.auditDB != nil {
		return f.auditDB
	}
	return f.db
}

// Migrate brings every owned database up to the latest schema.
func (f *RepositoryFactory) Migrate(ctx context.Context) error {
	if err := f.db.Migrate(ctx); err != nil {
		return err
	}
	if f.auditDB == nil {
		return nil
	}
	if err := f.auditDB.Migrate(ctx); err != nil {
		return fmt.Errorf("audit database: %w", err)
	}
	return nil
}

func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Users:        NewUserRepository(f.db, f.logger),
		Groups:       NewGroupRepository(f.db, f.logger),
		GroupMembers: NewGroupMemberRepository(f.db, f.logger),
		AuditLogs:    NewAuditRepository(f.auditStore(), f.logger),
	}
}

// GetTransactionManager returns a manager for transactions on the main pool.
// Audit writes never join these transactions.
func (f *RepositoryFactory) GetTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.db, f.logger)
}

func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes every owned pool and reports all failures.
func (f *RepositoryFactory) Close() error {
	var errs []error
	if f.auditDB != nil {
		if err := f.auditDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("audit database: %w", err))
		}
	}
	if err := f.db.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
