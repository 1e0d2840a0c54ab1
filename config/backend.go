package config

import (
	"fmt"

	"github.com/rhosocial/activerecord-go/backend"
	"github.com/rhosocial/activerecord-go/dialect"
	sqldriver "github.com/rhosocial/activerecord-go/dialect/sql"
	"github.com/rhosocial/activerecord-go/dialect/mysql"
	"github.com/rhosocial/activerecord-go/dialect/postgres"
	"github.com/rhosocial/activerecord-go/dialect/sqlite"
)

// Open opens a *sql.DB for c.DSN via c.Driver, applies the pool tuning
// parameters, and wraps it in a Backend bound to the matching
// dialect.Dialect. Driver must be one of dialect.Postgres/MySQL/SQLite
// (or the database/sql driver name registered for one of them).
func (c *ConnectionConfig) Open() (*backend.Backend, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	d, err := dialectFor(c.Driver)
	if err != nil {
		return nil, err
	}

	drv, err := sqldriver.Open(c.Driver, c.DSN)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", c.Driver, err)
	}

	db := drv.DB()
	if c.MaxOpenConns > 0 {
		db.SetMaxOpenConns(c.MaxOpenConns)
	}
	if c.MaxIdleConns > 0 {
		db.SetMaxIdleConns(c.MaxIdleConns)
	}
	if c.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.ConnMaxLifetime.Std())
	}
	if c.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(c.ConnMaxIdleTime.Std())
	}

	return backend.New(drv, d), nil
}

func dialectFor(name string) (dialect.Dialect, error) {
	switch name {
	case dialect.Postgres, "pq":
		return postgres.Dialect{}, nil
	case dialect.MySQL:
		return mysql.New(), nil
	case dialect.SQLite, "sqlite3":
		return sqlite.Dialect{}, nil
	default:
		return nil, fmt.Errorf("config: unknown driver %q", name)
	}
}
