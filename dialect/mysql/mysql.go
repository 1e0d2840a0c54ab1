// Package mysql implements dialect.Dialect for MySQL/MariaDB.
package mysql

import (
	"fmt"
	"strings"

	"github.com/rhosocial/activerecord-go/dialect"
)

// Dialect is the MySQL dialect.Dialect implementation.
//
// MySQL has no RETURNING clause; callers fall back to last-insert-id for
// generated primary keys (see Base.insert in package ar). SKIP LOCKED
// requires MySQL 8.0+; this dialect defaults it to unsupported so
// compilation fails loudly (FeatureNotSupportedError) rather than
// emitting syntax an older server rejects. Construct with
// NewWithSkipLocked(true) to opt in.
type Dialect struct {
	skipLocked bool
}

// New returns the default MySQL dialect (SKIP LOCKED unsupported).
func New() Dialect { return Dialect{} }

// NewWithSkipLocked returns a MySQL dialect with SKIP LOCKED support
// toggled explicitly, for callers who know their server version supports it.
func NewWithSkipLocked(supported bool) Dialect { return Dialect{skipLocked: supported} }

var _ dialect.Dialect = Dialect{}

func (d Dialect) Name() string { return dialect.MySQL }

func (Dialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (Dialect) PlaceholderStyle() dialect.PlaceholderStyle { return dialect.PlaceholderQuestion }

func (Dialect) Placeholder(int) string { return "?" }

func (d Dialect) Supports(f dialect.Feature) bool {
	switch f {
	case dialect.FeatureReturning:
		return false
	case dialect.FeatureMaterializeCTE:
		return false
	case dialect.FeatureSkipLocked:
		return d.skipLocked
	case dialect.FeatureCTE, dialect.FeatureRecursiveCTE, dialect.FeatureWindow,
		dialect.FeatureJSON, dialect.FeatureForUpdate, dialect.FeatureNowait,
		dialect.FeatureOnConflict:
		return true
	default:
		return false
	}
}

func (Dialect) RenderLimitOffset(limit, offset *int64) string {
	var b strings.Builder
	if limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *limit)
		if offset != nil {
			fmt.Fprintf(&b, " OFFSET %d", *offset)
		}
	} else if offset != nil {
		fmt.Fprintf(&b, " LIMIT 18446744073709551615 OFFSET %d", *offset)
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
	// MySQL's "ON DUPLICATE KEY UPDATE" has no explicit conflict target;
	// the engine infers it from the violated unique/primary key.
	return ""
}

func (Dialect) RenderReturning([]string) string {
	return ""
}
