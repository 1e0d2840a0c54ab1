package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhosocial/activerecord-go/dialect/mysql"
	"github.com/rhosocial/activerecord-go/dialect/postgres"
	"github.com/rhosocial/activerecord-go/dialect/sqlite"
)

func TestInsertValues(t *testing.T) {
	stmt := InsertInto("users", "name", "email").Values("ada", "ada@example.com")
	query, args, err := ToSQL(stmt, sqlite.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users"("name", "email") VALUES (?, ?)`, query)
	assert.Equal(t, []any{"ada", "ada@example.com"}, args)
}

func TestInsertArityMismatch(t *testing.T) {
	stmt := InsertInto("users", "name", "email").Values("ada")
	_, _, err := ToSQL(stmt, sqlite.Dialect{})
	assert.Error(t, err)
}

func TestInsertReturning(t *testing.T) {
	stmt := InsertInto("users", "name").Values("ada").Returning_(C("id"))
	query, _, err := ToSQL(stmt, postgres.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users"("name") VALUES ($1) RETURNING "id"`, query)

	_, _, err = ToSQL(stmt, mysql.New())
	assert.Error(t, err)
}

func TestInsertOnConflictDoNothing(t *testing.T) {
	stmt := InsertInto("users", "email").Values("ada@example.com").OnConflictDoNothing("email")
	query, _, err := ToSQL(stmt, postgres.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users"("email") VALUES ($1) ON CONFLICT("email") DO NOTHING`, query)
}

func TestInsertOnConflictDoUpdate(t *testing.T) {
	stmt := InsertInto("users", "email", "visits").Values("ada@example.com", 1).
		OnConflictDoUpdate([]string{"email"}, nil, Set("visits", 2))
	query, args, err := ToSQL(stmt, postgres.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users"("email", "visits") VALUES ($1, $2) ON CONFLICT("email") DO UPDATE SET "visits" = $3`, query)
	assert.Equal(t, []any{"ada@example.com", 1, 2}, args)
}

func TestInsertFromSelect(t *testing.T) {
	src := Select(C("name"), C("email")).FromTable("staging_users")
	stmt := InsertInto("users", "name", "email").FromSelect(src)
	query, _, err := ToSQL(stmt, sqlite.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "users"("name", "email") SELECT "name", "email" FROM "staging_users"`, query)
}

func TestInsertNoRowsIsError(t *testing.T) {
	stmt := InsertInto("users", "name")
	_, _, err := ToSQL(stmt, sqlite.Dialect{})
	assert.Error(t, err)
}
