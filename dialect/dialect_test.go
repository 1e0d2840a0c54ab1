package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rhosocial/activerecord-go/dialect"
	"github.com/rhosocial/activerecord-go/dialect/mysql"
	"github.com/rhosocial/activerecord-go/dialect/postgres"
	"github.com/rhosocial/activerecord-go/dialect/sqlite"
)

func TestDialectPlaceholders(t *testing.T) {
	assert.Equal(t, "?", sqlite.Dialect{}.Placeholder(1))
	assert.Equal(t, "?", mysql.New().Placeholder(7))
	assert.Equal(t, "$1", postgres.Dialect{}.Placeholder(1))
	assert.Equal(t, "$3", postgres.Dialect{}.Placeholder(3))
}

func TestDialectQuoting(t *testing.T) {
	assert.Equal(t, `"users"`, sqlite.Dialect{}.QuoteIdentifier("users"))
	assert.Equal(t, `"users"`, postgres.Dialect{}.QuoteIdentifier("users"))
	assert.Equal(t, "`users`", mysql.New().QuoteIdentifier("users"))
	assert.Equal(t, "`a``b`", mysql.New().QuoteIdentifier("a`b"))
}

func TestDialectFeatureGates(t *testing.T) {
	assert.True(t, postgres.Dialect{}.Supports(dialect.FeatureReturning))
	assert.False(t, mysql.New().Supports(dialect.FeatureReturning))
	assert.False(t, sqlite.Dialect{}.Supports(dialect.FeatureForUpdate))
	assert.False(t, mysql.New().Supports(dialect.FeatureSkipLocked))
	assert.True(t, mysql.NewWithSkipLocked(true).Supports(dialect.FeatureSkipLocked))
}

func TestDialectLimitOffset(t *testing.T) {
	lim := int64(10)
	off := int64(5)
	assert.Equal(t, " LIMIT 10 OFFSET 5", postgres.Dialect{}.RenderLimitOffset(&lim, &off))
	assert.Equal(t, " OFFSET 5", postgres.Dialect{}.RenderLimitOffset(nil, &off))
	assert.Equal(t, " LIMIT -1 OFFSET 5", sqlite.Dialect{}.RenderLimitOffset(nil, &off))
}
