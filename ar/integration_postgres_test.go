package ar_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/rhosocial/activerecord-go/ar"
	"github.com/rhosocial/activerecord-go/backend"
	sqldriver "github.com/rhosocial/activerecord-go/dialect/sql"
	"github.com/rhosocial/activerecord-go/dialect/postgres"
)

// Invoice exercises the RETURNING-capturing insert path against a real
// PostgreSQL server, the one RETURNING-capable dialect in the stack that
// isn't SQLite.
type Invoice struct {
	ar.Base[Invoice]
	ID     int64  `db:"id" ar:"pk"`
	Number string `db:"number"`
}

func TestInvoiceReturningIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "ar",
			"POSTGRES_PASSWORD": "ar",
			"POSTGRES_DB":       "ar_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://ar:ar@%s:%s/ar_test?sslmode=disable", host, port.Port())
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.PingContext(ctx))

	_, err = db.ExecContext(ctx, `CREATE TABLE invoices (id SERIAL PRIMARY KEY, number TEXT NOT NULL)`)
	require.NoError(t, err)

	bk := backend.New(sqldriver.OpenDB("postgres", db), postgres.Dialect{})
	ar.Configure[Invoice](bk)

	inv := ar.New[Invoice]()
	inv.Number = "INV-0001"
	affected, err := inv.Save(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)
	require.NotZero(t, inv.ID)

	found, err := ar.FindOrFail[Invoice](ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, "INV-0001", found.Number)
}
