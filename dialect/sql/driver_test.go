package sql

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverExecContext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET name = \?`).
		WithArgs("grace").
		WillReturnResult(sqlmock.NewResult(0, 1))

	drv := OpenDB("sqlite3", db)
	res, err := drv.ExecContext(context.Background(), "UPDATE users SET name = ?", "grace")
	require.NoError(t, err)
	affected, err := res.RowsAffected()
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverQueryContext(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "ada").AddRow(2, "grace")
	mock.ExpectQuery(`SELECT id, name FROM users`).WillReturnRows(rows)

	drv := OpenDB("sqlite3", db)
	result, err := drv.QueryContext(context.Background(), "SELECT id, name FROM users")
	require.NoError(t, err)
	defer result.Close()

	var names []string
	for result.Next() {
		var id int
		var name string
		require.NoError(t, result.Scan(&id, &name))
		names = append(names, name)
	}
	assert.Equal(t, []string{"ada", "grace"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverTransactionCommit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM sessions`).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	drv := OpenDB("sqlite3", db)
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	_, err = tx.ExecContext(context.Background(), "DELETE FROM sessions")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverTransactionRollback(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM sessions`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	drv := OpenDB("sqlite3", db)
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	_, err = tx.ExecContext(context.Background(), "DELETE FROM sessions")
	assert.Error(t, err)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithVarSetsSessionVariable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`SET statement_timeout = '5000'`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1`).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	drv := OpenDB("postgres", db)
	ctx := WithIntVar(context.Background(), "statement_timeout", 5000)
	rows, err := drv.QueryContext(ctx, "SELECT 1")
	require.NoError(t, err)
	defer rows.Close()
	assert.True(t, rows.Next())
}
