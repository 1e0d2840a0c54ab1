package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhosocial/activerecord-go/dialect/mysql"
	"github.com/rhosocial/activerecord-go/dialect/postgres"
	"github.com/rhosocial/activerecord-go/dialect/sqlite"
)

func TestSelectBasic(t *testing.T) {
	q := Select(C("id"), C("name")).FromTable("users").Where_(EQ(C("active"), true))
	query, args, err := ToSQL(q, sqlite.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id", "name" FROM "users" WHERE "active" = ?`, query)
	assert.Equal(t, []any{true}, args)
}

func TestSelectOrderByLimitOffset(t *testing.T) {
	limit, offset := int64(10), int64(5)
	q := Select(Star()).FromTable("posts").OrderBy_(Desc(C("created_at"))).LimitOffset(&limit, &offset)
	query, _, err := ToSQL(q, postgres.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "posts" ORDER BY "created_at" DESC LIMIT 10 OFFSET 5`, query)
}

func TestSelectJoin(t *testing.T) {
	q := Select(TC("u", "name"), TC("p", "title")).
		From_(Table("users").As("u")).
		Join(InnerJoin, Table("posts").As("p"), EQ(TC("p", "user_id"), TC("u", "id")))
	query, _, err := ToSQL(q, postgres.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "u"."name", "p"."title" FROM "users" AS "u" JOIN "posts" AS "p" ON "p"."user_id" = "u"."id"`, query)
}

func TestSelectGroupHaving(t *testing.T) {
	q := Select(C("dept"), Agg("COUNT", Star())).FromTable("employees").
		GroupHaving(GT(Agg("COUNT", Star()), 1), C("dept"))
	query, _, err := ToSQL(q, postgres.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "dept", COUNT(*) FROM "employees" GROUP BY "dept" HAVING COUNT(*) > $1`, query)
}

func TestSelectHavingWithoutGroupByRejected(t *testing.T) {
	q := Select(C("dept")).FromTable("employees")
	q.GroupBy = &GroupByHaving{Having: GT(C("x"), 1)}
	_, _, err := ToSQL(q, postgres.Dialect{})
	assert.Error(t, err)
}

func TestSelectForUpdateFeatureGate(t *testing.T) {
	q := Select(Star()).FromTable("users").WithForUpdate(ForUpdateClause{})
	_, _, err := ToSQL(q, sqlite.Dialect{})
	assert.Error(t, err)

	q2 := Select(Star()).FromTable("users").WithForUpdate(ForUpdateClause{})
	query, _, err := ToSQL(q2, postgres.Dialect{})
	require.NoError(t, err)
	assert.Contains(t, query, "FOR UPDATE")
}

func TestSelectWithCTE(t *testing.T) {
	inner := Select(C("id")).FromTable("users").Where_(EQ(C("active"), true))
	outer := Select(Star()).FromTable("active_users")
	outer.WithCTE(CTEExpression{Name: "active_users", Query: inner})
	query, args, err := ToSQL(outer, postgres.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `WITH "active_users" AS (SELECT "id" FROM "users" WHERE "active" = $1) SELECT * FROM "active_users"`, query)
	assert.Equal(t, []any{true}, args)
}

func TestSelectWithCTEPanicsOnEmptyList(t *testing.T) {
	outer := Select(Star()).FromTable("active_users")
	assert.Panics(t, func() {
		outer.WithCTE()
	})
}

func TestSelectRecursiveCTESupportedOnMySQL(t *testing.T) {
	base := Select(C("id")).FromTable("nodes").Where_(IsNull(C("parent_id")))
	outer := Select(Star()).FromTable("tree")
	outer.WithCTE(CTEExpression{Name: "tree", Query: base, Recursive: true})
	query, _, err := ToSQL(outer, mysql.New())
	require.NoError(t, err)
	assert.Contains(t, query, "WITH RECURSIVE")
}

func TestSelectUnionAppliesOrderByToComposite(t *testing.T) {
	left := Select(C("id")).FromTable("a")
	right := Select(C("id")).FromTable("b")
	limit := int64(5)
	composite := left.UnionWith(false, right).OrderBy_(Asc(C("id"))).LimitOffset(&limit, nil)
	query, _, err := ToSQL(composite, postgres.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `(SELECT "id" FROM "a") UNION (SELECT "id" FROM "b") ORDER BY "id" ASC LIMIT 5`, query)
}

func TestSelectDistinct(t *testing.T) {
	q := Select(C("dept")).WithDistinct().FromTable("employees")
	query, _, err := ToSQL(q, sqlite.Dialect{})
	require.NoError(t, err)
	assert.Equal(t, `SELECT DISTINCT "dept" FROM "employees"`, query)
}
