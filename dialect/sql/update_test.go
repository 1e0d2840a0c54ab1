package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhosocial/activerecord-go/dialect/mysql"
	"github.com/rhosocial/activerecord-go/dialect/postgres"
)

func TestUpdateBasic(t *testing.T) {
	stmt := Update("users").SetAll(Set("name", "grace")).Where_(EQ(C("id"), 1))
	query, args, err := ToSQL(stmt, postgres.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "users" SET "name" = $1 WHERE "id" = $2`, query)
	assert.Equal(t, []any{"grace", 1}, args)
}

func TestUpdateNoAssignmentsIsError(t *testing.T) {
	stmt := Update("users").Where_(EQ(C("id"), 1))
	_, _, err := ToSQL(stmt, postgres.Dialect{})
	assert.Error(t, err)
}

func TestUpdateReturningFeatureGate(t *testing.T) {
	stmt := Update("users").SetAll(Set("name", "grace")).Returning_(C("id"))
	_, _, err := ToSQL(stmt, mysql.New())
	assert.Error(t, err)

	query, _, err := ToSQL(stmt, postgres.Dialect{})
	require.NoError(t, err)
	assert.Contains(t, query, "RETURNING")
}

func TestUpdateFrom(t *testing.T) {
	stmt := Update("accounts").SetAll(Set("balance", TC("staging", "balance"))).
		From_(Table("staging")).
		Where_(EQ(TC("accounts", "id"), TC("staging", "id")))
	query, _, err := ToSQL(stmt, postgres.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "accounts" SET "balance" = "staging"."balance" FROM "staging" WHERE "accounts"."id" = "staging"."id"`, query)
}
