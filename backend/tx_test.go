package backend_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhosocial/activerecord-go/backend"
	sqldriver "github.com/rhosocial/activerecord-go/dialect/sql"
	"github.com/rhosocial/activerecord-go/dialect/sqlite"
)

func TestTransactionOutermostCommit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE accounts SET balance = balance - 10`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := backend.New(sqldriver.OpenDB("sqlite3", db), sqlite.Dialect{})
	tx, err := b.Transaction(context.Background())
	require.NoError(t, err)
	_, err = b.Execute(tx.Context(), backend.DML, "UPDATE accounts SET balance = balance - 10", nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionNestedSavepointRollback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE accounts SET balance = balance - 10`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`SAVEPOINT sp_2`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO audit_log`).WillReturnError(assert.AnError)
	mock.ExpectExec(`ROLLBACK TO SAVEPOINT sp_2`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`RELEASE SAVEPOINT sp_2`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	b := backend.New(sqldriver.OpenDB("sqlite3", db), sqlite.Dialect{})
	outer, err := b.Transaction(context.Background())
	require.NoError(t, err)

	_, err = b.Execute(outer.Context(), backend.DML, "UPDATE accounts SET balance = balance - 10", nil)
	require.NoError(t, err)

	inner, err := b.Transaction(outer.Context())
	require.NoError(t, err)
	_, execErr := b.Execute(inner.Context(), backend.DML, "INSERT INTO audit_log(msg) VALUES ('x')", nil)
	require.Error(t, execErr)
	require.NoError(t, inner.Rollback())

	require.NoError(t, outer.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionNestedIsolationConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`SET TRANSACTION ISOLATION LEVEL SERIALIZABLE`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	b := backend.New(sqldriver.OpenDB("sqlite3", db), sqlite.Dialect{})
	outer, err := b.Transaction(context.Background(), backend.WithIsolation("SERIALIZABLE"))
	require.NoError(t, err)

	_, err = b.Transaction(outer.Context(), backend.WithIsolation("READ COMMITTED"))
	var conflict *backend.NestedIsolationConflict
	require.ErrorAs(t, err, &conflict)
	require.NoError(t, outer.Rollback())
}

func TestWithTransactionCommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE widgets`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := backend.New(sqldriver.OpenDB("sqlite3", db), sqlite.Dialect{})
	err = b.WithTransaction(context.Background(), nil, func(ctx context.Context) error {
		_, err := b.Execute(ctx, backend.DML, "UPDATE widgets SET qty = qty + 1", nil)
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	b := backend.New(sqldriver.OpenDB("sqlite3", db), sqlite.Dialect{})
	err = b.WithTransaction(context.Background(), nil, func(ctx context.Context) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
