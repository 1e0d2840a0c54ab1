// Package postgres implements dialect.Dialect for PostgreSQL.
package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rhosocial/activerecord-go/dialect"
)

// Dialect is the PostgreSQL dialect.Dialect implementation.
type Dialect struct{}

var _ dialect.Dialect = Dialect{}

var supported = map[dialect.Feature]bool{
	dialect.FeatureReturning:    true,
	dialect.FeatureCTE:          true,
	dialect.FeatureRecursiveCTE: true,
	dialect.FeatureWindow:       true,
	dialect.FeatureJSON:         true,
	dialect.FeatureForUpdate:    true,
	dialect.FeatureSkipLocked:   true,
	dialect.FeatureNowait:       true,
	dialect.FeatureOnConflict:   true,
	dialect.FeatureMaterializeCTE: true,
}

func (Dialect) Name() string { return dialect.Postgres }

func (Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Dialect) PlaceholderStyle() dialect.PlaceholderStyle { return dialect.PlaceholderDollar }

func (Dialect) Placeholder(idx int) string { return "$" + strconv.Itoa(idx) }

func (Dialect) Supports(f dialect.Feature) bool { return supported[f] }

func (Dialect) RenderLimitOffset(limit, offset *int64) string {
	var b strings.Builder
	if limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *limit)
	}
	if offset != nil {
		fmt.Fprintf(&b, " OFFSET %d", *offset)
	}
	return b.String()
}

func (Dialect) RenderForUpdate(of []string, nowait, skipLocked bool) string {
	var b strings.Builder
	b.WriteString(" FOR UPDATE")
	if len(of) > 0 {
		quoted := make([]string, len(of))
		for i, c := range of {
			quoted[i] = Dialect{}.QuoteIdentifier(c)
		}
		b.WriteString(" OF " + strings.Join(quoted, ", "))
	}
	switch {
	case nowait:
		b.WriteString(" NOWAIT")
	case skipLocked:
		b.WriteString(" SKIP LOCKED")
	}
	return b.String()
}

func (Dialect) RenderConflictTarget(cols []string) string {
	if len(cols) == 0 {
		return ""
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = Dialect{}.QuoteIdentifier(c)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

func (Dialect) RenderReturning(projections []string) string {
	if len(projections) == 0 {
		return ""
	}
	return " RETURNING " + strings.Join(projections, ", ")
}
