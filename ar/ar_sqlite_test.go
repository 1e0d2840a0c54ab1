package ar_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhosocial/activerecord-go/ar"
	"github.com/rhosocial/activerecord-go/backend"
	sqldriver "github.com/rhosocial/activerecord-go/dialect/sql"
	"github.com/rhosocial/activerecord-go/dialect/sqlite"
	"github.com/rhosocial/activerecord-go/mixin"
)

// Account exercises the plain CRUD + lifecycle + optimistic locking path
// against a real (in-process) SQLite database, the one driver in the
// go.mod stack that needs no external server to run.
type Account struct {
	ar.Base[Account]
	ID      int64  `db:"id" ar:"pk"`
	Name    string `db:"name"`
	Balance int64  `db:"balance"`
	mixin.OptimisticLock
}

func openSQLite(t *testing.T) *backend.Backend {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		balance INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 0
	)`)
	require.NoError(t, err)
	return backend.New(sqldriver.OpenDB("sqlite", db), sqlite.Dialect{})
}

func TestAccountCreateFindUpdate(t *testing.T) {
	ar.Configure[Account](openSQLite(t))
	ctx := context.Background()

	a := ar.New[Account]()
	a.Name = "checking"
	a.Balance = 100
	affected, err := a.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NotZero(t, a.ID)
	assert.False(t, a.IsNewRecord())
	assert.False(t, a.IsDirty())

	found, err := ar.Find[Account](ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "checking", found.Name)
	assert.Equal(t, int64(100), found.Balance)
	assert.Equal(t, int64(0), found.Version)

	found.Balance = 150
	affected, err = found.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.Equal(t, int64(1), found.Version)

	reloaded, err := ar.FindOrFail[Account](ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150), reloaded.Balance)
	assert.Equal(t, int64(1), reloaded.Version)
}

func TestAccountStaleVersionConflict(t *testing.T) {
	ar.Configure[Account](openSQLite(t))
	ctx := context.Background()

	a := ar.New[Account]()
	a.Name = "savings"
	_, err := a.Save(ctx)
	require.NoError(t, err)

	other, err := ar.FindOrFail[Account](ctx, a.ID)
	require.NoError(t, err)

	a.Balance = 10
	_, err = a.Save(ctx)
	require.NoError(t, err)

	other.Balance = 20
	_, err = other.Save(ctx)
	var stale *ar.StaleObjectError
	require.ErrorAs(t, err, &stale)
}

func TestAccountNotFound(t *testing.T) {
	ar.Configure[Account](openSQLite(t))
	ctx := context.Background()

	got, err := ar.Find[Account](ctx, int64(999))
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = ar.FindOrFail[Account](ctx, int64(999))
	assert.ErrorIs(t, err, ar.ErrNotFound)
}

// Ledger exercises the soft-delete and lifecycle-hook contract.
type Ledger struct {
	ar.Base[Ledger]
	ID   int64  `db:"id" ar:"pk"`
	Memo string `db:"memo"`
	mixin.SoftDelete
}

func openSQLiteLedger(t *testing.T) *backend.Backend {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`CREATE TABLE ledgers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		memo TEXT NOT NULL,
		deleted_at DATETIME
	)`)
	require.NoError(t, err)
	return backend.New(sqldriver.OpenDB("sqlite", db), sqlite.Dialect{})
}

func TestLedgerSoftDeleteAndHooks(t *testing.T) {
	ar.Configure[Ledger](openSQLiteLedger(t))

	var events []string
	ar.On[Ledger](ar.BeforeCreate, func(ctx context.Context, v any) error {
		events = append(events, "before_create")
		return nil
	})
	ar.On[Ledger](ar.AfterCreate, func(ctx context.Context, v any) error {
		events = append(events, "after_create")
		return nil
	})
	ar.On[Ledger](ar.BeforeDelete, func(ctx context.Context, v any) error {
		events = append(events, "before_delete")
		return nil
	})
	ar.On[Ledger](ar.AfterDelete, func(ctx context.Context, v any) error {
		events = append(events, "after_delete")
		return nil
	})

	ctx := context.Background()
	l := ar.New[Ledger]()
	l.Memo = "opening balance"
	_, err := l.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"before_create", "after_create"}, events)

	_, err = l.Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"before_create", "after_create", "before_delete", "after_delete"}, events)
	assert.True(t, l.IsDeleted())

	// soft-deleted row still exists physically
	still, err := ar.Find[Ledger](ctx, l.ID)
	require.NoError(t, err)
	require.NotNil(t, still)
	assert.True(t, still.IsDeleted())
}

// Author/Book exercise HasMany preloading, the N+1-avoidance contract:
// loading N authors' books costs exactly one query regardless of N.
type Author struct {
	ar.Base[Author]
	ID    int64   `db:"id" ar:"pk"`
	Name  string  `db:"name"`
	Books []*Book `rel:"books"`
}

type Book struct {
	ar.Base[Book]
	ID       int64  `db:"id" ar:"pk"`
	Title    string `db:"title"`
	AuthorID int64  `db:"author_id"`
}

func openSQLiteLibrary(t *testing.T) *backend.Backend {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Exec(`
		CREATE TABLE authors (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL);
		CREATE TABLE books (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT NOT NULL, author_id INTEGER NOT NULL);
	`)
	require.NoError(t, err)
	return backend.New(sqldriver.OpenDB("sqlite", db), sqlite.Dialect{})
}

func TestAuthorHasManyPreload(t *testing.T) {
	bk := openSQLiteLibrary(t)
	ar.Configure[Author](bk)
	ar.Configure[Book](bk)
	ar.HasMany[Author, Book]("books", "author_id")

	ctx := context.Background()
	a1 := ar.New[Author]()
	a1.Name = "Ada Lovelace"
	_, err := a1.Save(ctx)
	require.NoError(t, err)

	a2 := ar.New[Author]()
	a2.Name = "Grace Hopper"
	_, err = a2.Save(ctx)
	require.NoError(t, err)

	for _, title := range []string{"Notes on the Analytical Engine", "Sketch of the Analytical Engine"} {
		b := ar.New[Book]()
		b.Title = title
		b.AuthorID = a1.ID
		_, err = b.Save(ctx)
		require.NoError(t, err)
	}
	b := ar.New[Book]()
	b.Title = "The First Compiler"
	b.AuthorID = a2.ID
	_, err = b.Save(ctx)
	require.NoError(t, err)

	authors, err := ar.FindAll[Author](ctx, nil)
	require.NoError(t, err)
	require.Len(t, authors, 2)

	require.NoError(t, ar.Preload(ctx, authors, "books"))
	byName := map[string]*Author{}
	for _, a := range authors {
		byName[a.Name] = a
	}
	assert.Len(t, byName["Ada Lovelace"].Books, 2)
	assert.Len(t, byName["Grace Hopper"].Books, 1)
}

func TestAuthorLazyRelatedIsCached(t *testing.T) {
	bk := openSQLiteLibrary(t)
	ar.Configure[Author](bk)
	ar.Configure[Book](bk)
	ar.HasMany[Author, Book]("books", "author_id")

	ctx := context.Background()
	a := ar.New[Author]()
	a.Name = "Katherine Johnson"
	_, err := a.Save(ctx)
	require.NoError(t, err)

	b := ar.New[Book]()
	b.Title = "Orbital Mechanics"
	b.AuthorID = a.ID
	_, err = b.Save(ctx)
	require.NoError(t, err)

	books, err := ar.Related[Author, []*Book](ctx, a, "books")
	require.NoError(t, err)
	assert.Len(t, books, 1)
	assert.Equal(t, "Orbital Mechanics", books[0].Title)

	// a second book is saved after the first lookup, so a cache hit
	// must NOT see it until ClearRelationCache invalidates the entry.
	extra := ar.New[Book]()
	extra.Title = "Stellar Navigation"
	extra.AuthorID = a.ID
	_, err = extra.Save(ctx)
	require.NoError(t, err)

	cached, err := ar.Related[Author, []*Book](ctx, a, "books")
	require.NoError(t, err)
	assert.Len(t, cached, 1, "second call should be served from cache")

	a.ClearRelationCache("books")
	refreshed, err := ar.Related[Author, []*Book](ctx, a, "books")
	require.NoError(t, err)
	assert.Len(t, refreshed, 2, "clearing the cache forces a fresh query")
}
