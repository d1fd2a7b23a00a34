package composables

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iota-uz/termstore/pkg/constants"
	"github.com/iota-uz/termstore/pkg/repo"
)

var (
	ErrNoTx = errors.New("no transaction found in context")
	ErrNoDB = errors.New("no database found in context")
)

func WithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, constants.TxKey, tx)
}

// UseTx returns the transaction bound to ctx, falling back to the database handle.
func UseTx(ctx context.Context) (repo.Tx, error) {
	if tx, ok := ctx.Value(constants.TxKey).(*sqlx.Tx); ok && tx != nil {
		return tx, nil
	}
	return UseDB(ctx)
}

func WithDB(ctx context.Context, db *sqlx.DB) context.Context {
	return context.WithValue(ctx, constants.DBKey, db)
}

func UseDB(ctx context.Context) (*sqlx.DB, error) {
	db, ok := ctx.Value(constants.DBKey).(*sqlx.DB)
	if !ok || db == nil {
		return nil, ErrNoDB
	}
	return db, nil
}

// InTx runs the given function in a transaction. ALWAYS creates a new transaction.
func InTx(ctx context.Context, fn func(context.Context, repo.Tx) error) error {
	return inTx(ctx, 0, fn)
}

// InTxResult runs fn in a transaction opened by t and returns its result.
func InTxResult[T any](ctx context.Context, t repo.Transactor, fn func(context.Context, repo.Tx) (T, error)) (T, error) {
	var out T
	err := t.InTx(ctx, func(txCtx context.Context, tx repo.Tx) error {
		var innerErr error
		out, innerErr = fn(txCtx, tx)
		return innerErr
	})
	return out, err
}

func inTx(ctx context.Context, statementTimeout time.Duration, fn func(context.Context, repo.Tx) error) error {
	db, err := UseDB(ctx)
	if err != nil {
		return err
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txCtx := WithTx(ctx, tx)
	if err := ApplyStatementTimeout(txCtx, tx, statementTimeout); err != nil {
		return rollback(tx, err)
	}

	if err := fn(txCtx, tx); err != nil {
		return rollback(tx, err)
	}
	if err := ctx.Err(); err != nil {
		return rollback(tx, err)
	}
	return tx.Commit()
}

func rollback(tx *sqlx.Tx, cause error) error {
	if rErr := tx.Rollback(); rErr != nil && !errors.Is(rErr, sql.ErrTxDone) {
		return errors.Join(cause, rErr)
	}
	return cause
}

// Transactor scopes work to transactions on a fixed database handle.
type Transactor struct {
	db               *sqlx.DB
	statementTimeout time.Duration
}

func NewTransactor(db *sqlx.DB, statementTimeout time.Duration) *Transactor {
	return &Transactor{db: db, statementTimeout: statementTimeout}
}

func (t *Transactor) InTx(ctx context.Context, fn func(context.Context, repo.Tx) error) error {
	return inTx(WithDB(ctx, t.db), t.statementTimeout, fn)
}
