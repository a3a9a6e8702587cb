package db

import (
	"context"
	"errors"
	"fmt"
)

// ErrConflict is returned by storage backends when a concurrent writer holds
// or has changed a record the current unit of work depends on.
var ErrConflict = errors.New("concurrent modification")

type TransactionFunc func(ctx context.Context) error

// Tx is one unit of work. Repositories called with Context() participate in it.
type Tx interface {
	Context() context.Context
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

type UnitOfWork interface {
	Begin(ctx context.Context) (Tx, error)
}

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type transactionManager struct {
	uow UnitOfWork
}

func NewTransactionManager(uow UnitOfWork) TransactionManager {
	return &transactionManager{uow: uow}
}

// ExecuteTransaction runs fn inside a single unit of work. The work is
// committed only when fn returns nil; any error or panic aborts it.
func (m *transactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) (err error) {
	tx, err := m.uow.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if abortErr := tx.Abort(context.WithoutCancel(ctx)); abortErr != nil && err == nil {
			err = fmt.Errorf("failed to abort transaction: %w", abortErr)
		}
	}()

	if err = fn(tx.Context()); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true
	return nil
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}
