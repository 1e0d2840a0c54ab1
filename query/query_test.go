package query_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhosocial/activerecord-go/backend"
	"github.com/rhosocial/activerecord-go/dialect"
	sqldriver "github.com/rhosocial/activerecord-go/dialect/sql"
	"github.com/rhosocial/activerecord-go/dialect/sqlite"
	"github.com/rhosocial/activerecord-go/query"
)

type user struct {
	ID   int64
	Name string
}

func scanUser(rows dialect.Rows) (user, error) {
	var u user
	err := rows.Scan(&u.ID, &u.Name)
	return u, err
}

func newTestQuery(t *testing.T) (*query.Query[user], sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	b := backend.New(sqldriver.OpenDB("sqlite3", db), sqlite.Dialect{})
	q := query.New[user](b, "users", scanUser)
	q.Select(sqldriver.C("id"), sqldriver.C("name"))
	return q, mock, func() { db.Close() }
}

func TestQueryWhereOrderLimit(t *testing.T) {
	q, mock, closeDB := newTestQuery(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT "id", "name" FROM "users" WHERE "active" = \? ORDER BY "id" ASC LIMIT 2`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "ada").AddRow(2, "grace"))

	rows, err := q.Where(sqldriver.EQ(sqldriver.C("active"), true)).
		OrderBy(sqldriver.Asc(sqldriver.C("id"))).
		Limit(2).
		All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []user{{1, "ada"}, {2, "grace"}}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryOrWhereAtomAdjacent(t *testing.T) {
	q, _, closeDB := newTestQuery(t)
	defer closeDB()

	q.Where(sqldriver.EQ(sqldriver.C("role"), "admin")).
		Where(sqldriver.EQ(sqldriver.C("active"), true)).
		OrWhere(sqldriver.EQ(sqldriver.C("active"), false))

	text, args, err := q.ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "name" FROM "users" WHERE ("role" = ? AND ("active" = ? OR "active" = ?))`, text)
	assert.Equal(t, []any{"admin", true, false}, args)
}

func TestQueryStartEndOrGroup(t *testing.T) {
	q, _, closeDB := newTestQuery(t)
	defer closeDB()

	q.Where(sqldriver.EQ(sqldriver.C("tenant_id"), 1)).
		StartOrGroup().
		Where(sqldriver.EQ(sqldriver.C("role"), "admin")).
		OrWhere(sqldriver.EQ(sqldriver.C("role"), "owner")).
		EndOrGroup()

	text, args, err := q.ToSQL()
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "name" FROM "users" WHERE ("tenant_id" = ? AND ("role" = ? OR "role" = ?))`, text)
	assert.Equal(t, []any{1, "admin", "owner"}, args)
}

func TestQueryLimitRejectsNegative(t *testing.T) {
	q, _, closeDB := newTestQuery(t)
	defer closeDB()

	_, err := q.Limit(-1).ToSQL()
	assert.Error(t, err)
}

func TestQueryWithCTEPanicsOnEmptyList(t *testing.T) {
	q, _, closeDB := newTestQuery(t)
	defer closeDB()

	assert.Panics(t, func() {
		q.WithCTE()
	})
}

func TestQueryCount(t *testing.T) {
	q, mock, closeDB := newTestQuery(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "users" WHERE "active" = \?`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := q.Where(sqldriver.EQ(sqldriver.C("active"), true)).Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestQueryToDict(t *testing.T) {
	q, mock, closeDB := newTestQuery(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT "id", "name" FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "ada"))

	rows, err := q.ToDict().All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"id": int64(1), "name": "ada"}}, rows)
}

func TestQueryChunk(t *testing.T) {
	q, mock, closeDB := newTestQuery(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT "id", "name" FROM "users" LIMIT 2 OFFSET 0`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "a").AddRow(2, "b"))
	mock.ExpectQuery(`SELECT "id", "name" FROM "users" LIMIT 2 OFFSET 2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(3, "c"))

	var total int
	err := q.Chunk(context.Background(), 2, func(batch []user) error {
		total += len(batch)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}
