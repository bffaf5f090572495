package services

import (
	"context"

	"github.com/upb/wedding-platform/repositories"
)

// WithTransaction runs fn inside txMgr.InTransaction. Errors returned by fn
// pass through untouched so their codes survive; begin and commit failures
// become DATABASE_ERROR.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	var fnErr error
	err := txMgr.InTransaction(ctx, func(ctx context.Context, tx repositories.Transaction) error {
		fnErr = fn(ctx, tx)
		return fnErr
	})
	switch {
	case err == nil:
		return nil
	case fnErr != nil:
		return fnErr
	default:
		return WrapDatabase("Transaction failed", err)
	}
}
