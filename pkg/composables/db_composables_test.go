package composables_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/termstore/pkg/composables"
	"github.com/iota-uz/termstore/pkg/repo"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "pgx"), mock
}

func TestUseDB_Missing(t *testing.T) {
	_, err := composables.UseDB(context.Background())
	require.ErrorIs(t, err, composables.ErrNoDB)

	_, err = composables.UseTx(context.Background())
	require.ErrorIs(t, err, composables.ErrNoDB)
}

func TestInTx_Commits(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "codings" SET "display" = $1`).WithArgs("x").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ctx := composables.WithDB(context.Background(), db)
	err := composables.InTx(ctx, func(txCtx context.Context, tx repo.Tx) error {
		fromCtx, err := composables.UseTx(txCtx)
		require.NoError(t, err)
		assert.Same(t, tx, fromCtx)
		_, err = tx.ExecContext(txCtx, `UPDATE "codings" SET "display" = $1`, "x")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTx_RollsBackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	ctx := composables.WithDB(context.Background(), db)
	err := composables.InTx(ctx, func(context.Context, repo.Tx) error { return boom })
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxResult(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	tr := composables.NewTransactor(db, 0)
	n, err := composables.InTxResult(context.Background(), tr, func(context.Context, repo.Tx) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_AppliesStatementTimeout(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config('statement_timeout', $1, true)").WithArgs("1500ms").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tr := composables.NewTransactor(db, 1500*time.Millisecond)
	err := tr.InTx(context.Background(), func(context.Context, repo.Tx) error { return nil })
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactor_TimeoutFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectExec("SELECT set_config('statement_timeout', $1, true)").WillReturnError(errors.New("denied"))
	mock.ExpectRollback()

	called := false
	tr := composables.NewTransactor(db, time.Second)
	err := tr.InTx(context.Background(), func(context.Context, repo.Tx) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}
