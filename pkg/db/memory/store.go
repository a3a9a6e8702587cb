// Package memory is an in-process storage backend. A Store admits one
// writing unit of work at a time; writes are staged in a per-transaction
// overlay and become visible to readers only when the transaction commits.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slotswap/pkg/db"
	"sync"
	"time"
)

const DefaultLockWait = 2 * time.Second

var (
	ErrNoTransaction = errors.New("write outside of a transaction")
	ErrTxDone        = errors.New("transaction already finished")
)

type txKey struct{}

type entry struct {
	value   any
	deleted bool
}

type Store struct {
	sem      chan struct{}
	lockWait time.Duration

	mu     sync.RWMutex
	tables map[string]map[string]any
}

func NewStore(lockWait time.Duration) *Store {
	if lockWait <= 0 {
		lockWait = DefaultLockWait
	}
	return &Store{
		sem:      make(chan struct{}, 1),
		lockWait: lockWait,
		tables:   make(map[string]map[string]any),
	}
}

type tx struct {
	store  *Store
	ctx    context.Context
	writes map[string]map[string]entry

	mu   sync.Mutex
	done bool
}

// Begin waits up to the configured lock wait for the writer slot. A caller
// that cannot get it in time receives db.ErrConflict.
func (s *Store) Begin(ctx context.Context) (db.Tx, error) {
	if _, ok := txFromContext(ctx); ok {
		return nil, errors.New("nested transactions are not supported")
	}

	timer := time.NewTimer(s.lockWait)
	defer timer.Stop()

	select {
	case s.sem <- struct{}{}:
	case <-timer.C:
		return nil, fmt.Errorf("%w: writer lock wait exceeded %s", db.ErrConflict, s.lockWait)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	t := &tx{
		store:  s,
		writes: make(map[string]map[string]entry),
	}
	t.ctx = context.WithValue(ctx, txKey{}, t)
	return t, nil
}

func (t *tx) Context() context.Context {
	return t.ctx
}

func (t *tx) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTxDone
	}

	t.store.mu.Lock()
	for table, rows := range t.writes {
		committed := t.store.tables[table]
		if committed == nil {
			committed = make(map[string]any)
			t.store.tables[table] = committed
		}
		for id, e := range rows {
			if e.deleted {
				delete(committed, id)
				continue
			}
			committed[id] = e.value
		}
	}
	t.store.mu.Unlock()

	t.finish()
	return nil
}

func (t *tx) Abort(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.finish()
	return nil
}

func (t *tx) finish() {
	t.done = true
	t.writes = nil
	<-t.store.sem
}

func (t *tx) stage(table, id string, e entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTxDone
	}
	rows := t.writes[table]
	if rows == nil {
		rows = make(map[string]entry)
		t.writes[table] = rows
	}
	rows[id] = e
	return nil
}

func (t *tx) staged(table, id string) (entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.writes[table][id]
	return e, ok
}

func (t *tx) stagedRows(table string) map[string]entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	rows := make(map[string]entry, len(t.writes[table]))
	for id, e := range t.writes[table] {
		rows[id] = e
	}
	return rows
}

func txFromContext(ctx context.Context) (*tx, bool) {
	t, ok := ctx.Value(txKey{}).(*tx)
	if !ok || t == nil {
		return nil, false
	}
	return t, true
}

// InTransaction reports whether ctx carries an open unit of work of this backend.
func InTransaction(ctx context.Context) bool {
	t, ok := txFromContext(ctx)
	if !ok {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.done
}

// Within runs fn in the transaction carried by ctx, or in a fresh one that
// is committed when fn succeeds.
func (s *Store) Within(ctx context.Context, fn db.TransactionFunc) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}
	return db.NewTransactionManager(s).ExecuteTransaction(ctx, fn)
}

func (s *Store) committed(table, id string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.tables[table][id]
	return v, ok
}

func (s *Store) committedRows(table string) map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make(map[string]any, len(s.tables[table]))
	for id, v := range s.tables[table] {
		rows[id] = v
	}
	return rows
}
