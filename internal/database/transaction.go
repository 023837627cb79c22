package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

type txContextKey string

const txKey = txContextKey("tx")

// Tx is the transactional slice of the DB surface. Commit and Rollback are
// both safe to call more than once; a no-op rollback after a commit lets
// callers defer Rollback unconditionally.
type Tx interface {
	IsOpen() bool
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type transaction struct {
	*sqlx.Tx
	logger ectologger.Logger
	closed bool
	// owned marks the frame that began the transaction. Nested GetTx callers
	// share the handle but must not close it.
	owned bool
}

// GetTx reuses the open transaction carried by the context, so nested
// repository calls join the caller's transaction instead of starting their
// own. When none is open it begins one and stores it on the returned context.
func GetTx(ctx context.Context, logger ectologger.Logger, db DB, opts *sql.TxOptions) (context.Context, Tx, error) {
	if existing, ok := ctx.Value(txKey).(*transaction); ok && existing.IsOpen() {
		shared := &transaction{Tx: existing.Tx, logger: logger, owned: false}
		return ctx, shared, nil
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("Failed to begin transaction")
		return ctx, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	owner := &transaction{Tx: tx, logger: logger, owned: true}
	return context.WithValue(ctx, txKey, owner), owner, nil
}

func (t *transaction) IsOpen() bool {
	return !t.closed
}

func (t *transaction) Commit(ctx context.Context) error {
	if t.closed || !t.owned {
		return nil
	}
	if err := t.Tx.Commit(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Error("Failed to commit transaction")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.closed = true
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	if t.closed || !t.owned {
		return nil
	}
	if err := t.Tx.Rollback(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Error("Failed to roll back transaction")
		return fmt.Errorf("failed to roll back transaction: %w", err)
	}
	t.closed = true
	return nil
}
