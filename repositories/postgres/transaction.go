package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/wedding-platform/repositories"
	"go.uber.org/zap"
)

type txKey struct{}

// TransactionManager opens transactions on the main pool. Repositories
// join a transaction either through WithTx or through the context passed
// to InTransaction's callback.
type TransactionManager struct {
	db     *DB
	logger *zap.Logger
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &TransactionManager{
		db:     db,
		logger: logger,
	}
}

// Begin starts a read-committed transaction
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := tm.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{tx: sqlTx, ctx: ctx, logger: tm.logger}, nil
}

// InTransaction runs fn and commits when it returns nil. An error or a
// panic from fn rolls back; the panic is re-raised afterwards.
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) (err error) {
	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tm.rollback(tx, fmt.Errorf("panic: %v", p))
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx), tx); err != nil {
		tm.rollback(tx, err)
		return err
	}

	return tx.Commit()
}

func (tm *TransactionManager) rollback(tx repositories.Transaction, cause error) {
	if err := tx.Rollback(); err != nil {
		tm.logger.Error("failed to rollback transaction",
			zap.Error(err),
			zap.NamedError("cause", cause))
	}
}

// Transaction wraps a *sql.Tx
type Transaction struct {
	tx     *sql.Tx
	ctx    context.Context
	logger *zap.Logger
}

// Commit commits the transaction
func (t *Transaction) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls back the transaction. Rolling back a finished
// transaction is a no-op.
func (t *Transaction) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Context returns the context the transaction was opened with
func (t *Transaction) Context() context.Context {
	return t.ctx
}

// Executor is satisfied by both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// executorFor picks the transaction bound through WithTx, then one carried
// by ctx, then the pool.
func executorFor(ctx context.Context, db *DB, bound *Transaction) Executor {
	if bound != nil {
		return bound.tx
	}
	if tx, ok := ctx.Value(txKey{}).(*Transaction); ok {
		return tx.tx
	}
	return db.DB
}

// boundTx extracts the postgres transaction behind a repositories.Transaction
func boundTx(tx repositories.Transaction) *Transaction {
	if pgTx, ok := tx.(*Transaction); ok {
		return pgTx
	}
	return nil
}
