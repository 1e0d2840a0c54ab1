// Package sqlite implements dialect.Dialect for SQLite.
package sqlite

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rhosocial/activerecord-go/dialect"
)

// Dialect is the SQLite dialect.Dialect implementation.
type Dialect struct{}

var _ dialect.Dialect = Dialect{}

var supported = map[dialect.Feature]bool{
	dialect.FeatureReturning:    true,
	dialect.FeatureCTE:          true,
	dialect.FeatureRecursiveCTE: true,
	dialect.FeatureWindow:       true,
	dialect.FeatureJSON:         true,
	dialect.FeatureForUpdate:    false, // SQLite has no row-level locking.
	dialect.FeatureOnConflict:   true,
}

func (Dialect) Name() string { return dialect.SQLite }

func (Dialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Dialect) PlaceholderStyle() dialect.PlaceholderStyle { return dialect.PlaceholderQuestion }

func (Dialect) Placeholder(int) string { return "?" }

func (Dialect) Supports(f dialect.Feature) bool { return supported[f] }

func (Dialect) RenderLimitOffset(limit, offset *int64) string {
	var b strings.Builder
	if limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *limit)
		if offset != nil {
			fmt.Fprintf(&b, " OFFSET %d", *offset)
		}
	} else if offset != nil {
		// SQLite requires a LIMIT to use OFFSET; -1 means "no limit".
		fmt.Fprintf(&b, " LIMIT -1 OFFSET %d", *offset)
	}
	return b.String()
}

func (Dialect) RenderForUpdate([]string, bool, bool) string {
	return ""
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

// IntLiteral renders an int64 as SQL text; exposed for tests/debugging.
func IntLiteral(n int64) string { return strconv.FormatInt(n, 10) }
