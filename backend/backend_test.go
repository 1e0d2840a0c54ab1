package backend_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhosocial/activerecord-go/backend"
	"github.com/rhosocial/activerecord-go/dialect"
	sqldriver "github.com/rhosocial/activerecord-go/dialect/sql"
	"github.com/rhosocial/activerecord-go/dialect/sqlite"
)

func TestBackendExecuteDML(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE users SET name = \?`).WithArgs("ada").WillReturnResult(sqlmock.NewResult(0, 1))

	b := backend.New(sqldriver.OpenDB("sqlite3", db), sqlite.Dialect{})
	res, err := b.Execute(context.Background(), backend.DML, "UPDATE users SET name = ?", []any{"ada"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackendExecuteAndFetchOneNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM users WHERE id = \?`).WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	b := backend.New(sqldriver.OpenDB("sqlite3", db), sqlite.Dialect{})
	var id int
	found, err := b.ExecuteAndFetchOne(context.Background(), "SELECT id FROM users WHERE id = ?", []any{42}, func(r dialect.Rows) error {
		return r.Scan(&id)
	})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBackendUnclassifiedErrorIsOperational(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO users`).WillReturnError(assert.AnError)
	b := backend.New(sqldriver.OpenDB("sqlite3", db), sqlite.Dialect{})
	_, err = b.Execute(context.Background(), backend.DML, "INSERT INTO users(email) VALUES (?)", []any{"dup@example.com"})
	assert.Error(t, err)
	var opErr *backend.OperationalError
	assert.ErrorAs(t, err, &opErr)
}

func TestBackendClassifiesPostgresErrorCodeOverMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// the message itself mentions neither "unique" nor "constraint", so
	// only the SQLSTATE code on *pq.Error can drive classification here.
	mock.ExpectExec(`INSERT INTO users`).WillReturnError(&pq.Error{Code: "23505", Message: "oops"})
	b := backend.New(sqldriver.OpenDB("sqlite3", db), sqlite.Dialect{})
	_, err = b.Execute(context.Background(), backend.DML, "INSERT INTO users(email) VALUES (?)", []any{"dup@example.com"})
	var intErr *backend.IntegrityError
	assert.ErrorAs(t, err, &intErr)
}

func TestBackendClassifiesMySQLDeadlockCodeOverMessage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE users`).WillReturnError(&mysql.MySQLError{Number: 1213, Message: "oops"})
	b := backend.New(sqldriver.OpenDB("sqlite3", db), sqlite.Dialect{})
	_, err = b.Execute(context.Background(), backend.DML, "UPDATE users SET name = ?", []any{"ada"})
	var deadlockErr *backend.DeadlockError
	assert.ErrorAs(t, err, &deadlockErr)
}

func TestBackendFallsBackToMessageForSQLiteConstraintError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO users`).WillReturnError(errors.New("UNIQUE constraint failed: users.email"))
	b := backend.New(sqldriver.OpenDB("sqlite3", db), sqlite.Dialect{})
	_, err = b.Execute(context.Background(), backend.DML, "INSERT INTO users(email) VALUES (?)", []any{"dup@example.com"})
	var intErr *backend.IntegrityError
	assert.ErrorAs(t, err, &intErr)
}
