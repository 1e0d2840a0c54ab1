package backend

import (
	"context"
	"fmt"

	"github.com/rhosocial/activerecord-go/dialect"
)

// txStateKey is the context key a Backend attaches its transaction
// bookkeeping under.
type txStateKey struct{}

// txState is the depth counter and savepoint name stack for one logical
// transaction tree. One *txState is shared by every Tx of the tree and is
// changed in place, without locking, by nested Transaction calls and by
// Commit/Rollback, so one tree must not be used from concurrent
// goroutines.
type txState struct {
	driver     dialect.Tx
	depth      int
	savepoints []string
	isolation  string
}

func txStateFrom(ctx context.Context) *txState {
	st, _ := ctx.Value(txStateKey{}).(*txState)
	return st
}

// Tx is a transaction scope returned by Backend.Transaction. Exactly one
// of Commit or Rollback must be called to close it; the scope's Context
// must be threaded through to every Backend call meant to run inside it.
type Tx struct {
	backend *Backend
	ctx     context.Context
	state   *txState
	nested  bool
	name    string // savepoint name, set only when nested
	done    bool
}

// Context returns the context nested calls must use so Execute routes
// statements through this transaction (or its enclosing savepoint).
func (tx *Tx) Context() context.Context { return tx.ctx }

// Commit releases this transaction scope: COMMIT at depth 1→0, or
// RELEASE SAVEPOINT at depth N→N-1 for nested scopes.
func (tx *Tx) Commit() error {
	if tx.done {
		return &TransactionError{Msg: "commit called twice on the same transaction scope"}
	}
	tx.done = true
	tx.state.depth--
	if tx.nested {
		_, err := tx.state.driver.ExecContext(tx.ctx, "RELEASE SAVEPOINT "+tx.name)
		if err != nil {
			return classify(err)
		}
		tx.state.savepoints = tx.state.savepoints[:len(tx.state.savepoints)-1]
		return nil
	}
	if tx.state.depth != 0 {
		return &TransactionError{Msg: fmt.Sprintf("commit at non-zero depth %d after outermost transaction closed", tx.state.depth)}
	}
	return tx.state.driver.Commit()
}

// Rollback aborts this transaction scope: ROLLBACK at depth 1→0, or
// ROLLBACK TO SAVEPOINT then RELEASE at depth N→N-1 for nested scopes.
func (tx *Tx) Rollback() error {
	if tx.done {
		return &TransactionError{Msg: "rollback called twice on the same transaction scope"}
	}
	tx.done = true
	tx.state.depth--
	if tx.nested {
		_, err := tx.state.driver.ExecContext(tx.ctx, "ROLLBACK TO SAVEPOINT "+tx.name)
		if err == nil {
			_, err = tx.state.driver.ExecContext(tx.ctx, "RELEASE SAVEPOINT "+tx.name)
		}
		tx.state.savepoints = tx.state.savepoints[:len(tx.state.savepoints)-1]
		if err != nil {
			return classify(err)
		}
		return nil
	}
	return tx.state.driver.Rollback()
}

// TxOption configures a Backend.Transaction call.
type TxOption func(*txOptions)

type txOptions struct {
	isolation string
}

// WithIsolation requests an isolation level for the outermost transaction
// in this tree. A nested Transaction call requesting a different,
// non-empty isolation level than the outermost transaction's fails with
// NestedIsolationConflict, per the spec's isolation-consistency
// invariant.
func WithIsolation(level string) TxOption {
	return func(o *txOptions) { o.isolation = level }
}

// Transaction begins or nests a transaction scope on ctx. The first call
// in a context chain (no *txState present) issues BEGIN [ISOLATION LEVEL
// ...] and returns a Tx at depth 1; every subsequent call on a
// context descending from that Tx's Context() issues SAVEPOINT sp_N and
// returns a Tx nested one level deeper.
func (b *Backend) Transaction(ctx context.Context, opts ...TxOption) (*Tx, error) {
	var o txOptions
	for _, opt := range opts {
		opt(&o)
	}

	if st := txStateFrom(ctx); st != nil {
		if o.isolation != "" && o.isolation != st.isolation {
			return nil, &NestedIsolationConflict{Outer: st.isolation, Inner: o.isolation}
		}
		st.depth++
		name := fmt.Sprintf("sp_%d", st.depth)
		if _, err := st.driver.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
			st.depth--
			return nil, classify(err)
		}
		st.savepoints = append(st.savepoints, name)
		return &Tx{backend: b, ctx: ctx, state: st, nested: true, name: name}, nil
	}

	tx, err := b.driver.Tx(ctx)
	if err != nil {
		return nil, classify(err)
	}
	if o.isolation != "" {
		if _, err := tx.ExecContext(ctx, "SET TRANSACTION ISOLATION LEVEL "+o.isolation); err != nil {
			_ = tx.Rollback()
			return nil, classify(err)
		}
	}
	st := &txState{driver: tx, depth: 1, isolation: o.isolation}
	return &Tx{backend: b, ctx: context.WithValue(ctx, txStateKey{}, st), state: st}, nil
}

// WithTransaction runs fn inside a transaction scope, committing on a nil
// return and rolling back otherwise. It nests correctly when called with
// a ctx that already carries an open transaction (emits a savepoint
// rather than a new BEGIN), making it safe to compose across service
// boundaries that each wrap their own unit of work in WithTransaction.
func (b *Backend) WithTransaction(ctx context.Context, opts []TxOption, fn func(ctx context.Context) error) (rerr error) {
	tx, err := b.Transaction(ctx, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx.Context()); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}
