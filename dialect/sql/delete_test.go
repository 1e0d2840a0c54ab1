package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhosocial/activerecord-go/dialect/mysql"
	"github.com/rhosocial/activerecord-go/dialect/postgres"
)

func TestDeleteBasic(t *testing.T) {
	stmt := DeleteFrom("sessions").Where_(LT(C("expires_at"), Raw("now()")))
	query, _, err := ToSQL(stmt, postgres.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "sessions" WHERE "expires_at" < now()`, query)
}

func TestDeleteReturningFeatureGate(t *testing.T) {
	stmt := DeleteFrom("sessions").Where_(EQ(C("id"), 1)).Returning_(C("id"))
	_, _, err := ToSQL(stmt, mysql.New())
	assert.Error(t, err)

	query, _, err := ToSQL(stmt, postgres.Dialect{})
	require.NoError(t, err)
	assert.Contains(t, query, "RETURNING")
}

func TestDeleteUsing(t *testing.T) {
	stmt := DeleteFrom("orders").Using_(Table("customers")).
		Where_(EQ(TC("orders", "customer_id"), TC("customers", "id"))).
		Where_(EQ(TC("customers", "banned"), true))
	query, args, err := ToSQL(stmt, postgres.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "orders" USING "customers" WHERE ("orders"."customer_id" = "customers"."id" AND "customers"."banned" = $1)`, query)
	assert.Equal(t, []any{true}, args)
}
