package database

import (
	"context"
	"database/sql"
	"fmt"
)

type TxOptions struct {
	IsolationLevel sql.IsolationLevel
	ReadOnly       bool
}

// DefaultTxOptions is READ COMMITTED; stock consistency comes from the
// row locks taken by the store, not from the isolation level.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		ReadOnly:       false,
	}
}

// UnitOfWork is the single transaction shared by every step of one logical
// operation. Operations that mutate stock or orders take a *UnitOfWork
// instead of a plain Querier so they cannot run outside a transaction.
type UnitOfWork struct {
	tx *sql.Tx
}

func Begin(ctx context.Context, db *sql.DB, opts TxOptions) (*UnitOfWork, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{
		Isolation: opts.IsolationLevel,
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &UnitOfWork{tx: tx}, nil
}

func (u *UnitOfWork) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return u.tx.ExecContext(ctx, query, args...)
}

func (u *UnitOfWork) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return u.tx.QueryContext(ctx, query, args...)
}

func (u *UnitOfWork) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return u.tx.QueryRowContext(ctx, query, args...)
}

func (u *UnitOfWork) Commit() error {
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (u *UnitOfWork) Rollback() error {
	return u.tx.Rollback()
}

// WithTransaction runs fn inside one unit of work. Any error from fn rolls
// the whole unit back; there are no automatic retries.
func WithTransaction(ctx context.Context, db *sql.DB, opts TxOptions, fn func(*UnitOfWork) error) error {
	uow, err := Begin(ctx, db, opts)
	if err != nil {
		return err
	}

	if err := fn(uow); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	return uow.Commit()
}
