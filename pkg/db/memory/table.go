package memory

import "context"

// Table is a typed view over one collection of a Store. Values are held by
// value, so callers always receive copies.
type Table[T any] struct {
	store *Store
	name  string
}

func NewTable[T any](store *Store, name string) *Table[T] {
	return &Table[T]{store: store, name: name}
}

func (t *Table[T]) Get(ctx context.Context, id string) (T, bool) {
	var zero T
	if tx, ok := txFromContext(ctx); ok {
		if e, staged := tx.staged(t.name, id); staged {
			if e.deleted {
				return zero, false
			}
			return e.value.(T), true
		}
	}

	v, ok := t.store.committed(t.name, id)
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// List returns every row matching keep, in no particular order.
func (t *Table[T]) List(ctx context.Context, keep func(T) bool) []T {
	rows := t.store.committedRows(t.name)
	if tx, ok := txFromContext(ctx); ok {
		for id, e := range tx.stagedRows(t.name) {
			if e.deleted {
				delete(rows, id)
				continue
			}
			rows[id] = e.value
		}
	}

	out := make([]T, 0, len(rows))
	for _, v := range rows {
		item := v.(T)
		if keep == nil || keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func (t *Table[T]) Put(ctx context.Context, id string, value T) error {
	tx, ok := txFromContext(ctx)
	if !ok {
		return ErrNoTransaction
	}
	return tx.stage(t.name, id, entry{value: value})
}

func (t *Table[T]) Delete(ctx context.Context, id string) error {
	tx, ok := txFromContext(ctx)
	if !ok {
		return ErrNoTransaction
	}
	return tx.stage(t.name, id, entry{deleted: true})
}
