// Package txtest provides in-memory transactions for service tests that
// run against fake repositories.
package txtest

import (
	"context"
	"database/sql"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/shopverse/checkout-api/internal/pkg/database"
)

// Tx is an in-memory database.Tx. SQL methods come from a nil embedded
// ExtContext and panic if called; fakes only use the hooks.
type Tx struct {
	sqlx.ExtContext

	mu         sync.Mutex
	done       bool
	committed  bool
	onCommit   []func()
	onRollback []func()
	release    func()
}

// OnCommit registers fn to run after a successful commit.
func (t *Tx) OnCommit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCommit = append(t.onCommit, fn)
}

// OnRollback registers fn to run on rollback, newest first.
func (t *Tx) OnRollback(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRollback = append(t.onRollback, fn)
}

func (t *Tx) Commit() error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return sql.ErrTxDone
	}
	t.done = true
	t.committed = true
	hooks := t.onCommit
	t.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
	t.finish()
	return nil
}

func (t *Tx) Rollback() error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return sql.ErrTxDone
	}
	t.done = true
	hooks := t.onRollback
	t.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	t.finish()
	return nil
}

// Committed reports whether Commit succeeded.
func (t *Tx) Committed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed
}

func (t *Tx) finish() {
	if t.release != nil {
		t.release()
	}
}

// Locker begins transactions that hold one shared lock until they end,
// standing in for the row locks a real database takes.
type Locker struct {
	mu sync.Mutex

	statsMu  sync.Mutex
	begun    int
	lastTx   *Tx
	beginErr error
}

var _ database.Beginner = (*Locker)(nil)

func (l *Locker) BeginTx(ctx context.Context) (database.Tx, error) {
	l.statsMu.Lock()
	err := l.beginErr
	l.statsMu.Unlock()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	tx := &Tx{release: l.mu.Unlock}

	l.statsMu.Lock()
	l.begun++
	l.lastTx = tx
	l.statsMu.Unlock()
	return tx, nil
}

// FailBegin makes subsequent BeginTx calls return err.
func (l *Locker) FailBegin(err error) {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	l.beginErr = err
}

// Begun returns how many transactions were started.
func (l *Locker) Begun() int {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.begun
}

// LastTx returns the most recently started transaction.
func (l *Locker) LastTx() *Tx {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.lastTx
}

// Hooks returns the *Tx behind a database.Tx handed out by a Locker,
// or nil for any other implementation.
func Hooks(tx database.Tx) *Tx {
	t, _ := tx.(*Tx)
	return t
}
