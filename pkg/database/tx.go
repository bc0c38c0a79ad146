package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/platinummonkey/huddle/pkg/observability"
)

// TxBeginner is implemented by *sqlx.DB
type TxBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// DB is the handle stores and services share: plain statements plus
// transactions. *sqlx.DB implements it.
type DB interface {
	sqlx.ExtContext
	TxBeginner
}

// ReadSnapshot is the isolation used for reads that must agree with each
// other, such as a page and its total count
var ReadSnapshot = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics; the
// originating error is returned unchanged so callers can match it.
func WithTx(ctx context.Context, db TxBeginner, fn func(tx *sqlx.Tx) error) error {
	return WithTxOptions(ctx, db, nil, fn)
}

// WithTxOptions is WithTx with explicit isolation and read-only settings
func WithTxOptions(ctx context.Context, db TxBeginner, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			SafeRollback(ctx, tx)
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		SafeRollback(ctx, tx)
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SafeRollback rolls tx back and logs failures other than an already
// finished transaction
func SafeRollback(ctx context.Context, tx *sqlx.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		observability.FromContext(ctx).WithError(err).Warn("rollback failed")
	}
}
