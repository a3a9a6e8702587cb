package mongo

import (
	"context"
	"errors"
	"fmt"
	"slotswap/pkg/db"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const writeConflictCode = 112

type unitOfWork struct {
	client *mongo.Client
}

func NewUnitOfWork(client *mongo.Client) db.UnitOfWork {
	return &unitOfWork{client: client}
}

type sessionTx struct {
	session mongo.Session
	ctx     mongo.SessionContext
}

// Begin starts a snapshot transaction. The driver's automatic retry loop
// (session.WithTransaction) is not used: write conflicts surface to the
// caller as db.ErrConflict instead of being retried here.
func (u *unitOfWork) Begin(ctx context.Context) (db.Tx, error) {
	session, err := u.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(opts); err != nil {
		session.EndSession(ctx)
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	return &sessionTx{
		session: session,
		ctx:     mongo.NewSessionContext(ctx, session),
	}, nil
}

func (t *sessionTx) Context() context.Context {
	return t.ctx
}

func (t *sessionTx) Commit(ctx context.Context) error {
	defer t.session.EndSession(ctx)
	if err := t.session.CommitTransaction(ctx); err != nil {
		return TranslateError(err)
	}
	return nil
}

func (t *sessionTx) Abort(ctx context.Context) error {
	defer t.session.EndSession(ctx)
	return t.session.AbortTransaction(ctx)
}

// TranslateError maps write conflicts and transient transaction failures to
// db.ErrConflict so services can report them as retryable.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		if cmdErr.Code == writeConflictCode || cmdErr.HasErrorLabel("TransientTransactionError") {
			return fmt.Errorf("%w: %v", db.ErrConflict, err)
		}
	}

	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if we.Code == writeConflictCode {
				return fmt.Errorf("%w: %v", db.ErrConflict, err)
			}
		}
		if writeErr.HasErrorLabel("TransientTransactionError") {
			return fmt.Errorf("%w: %v", db.ErrConflict, err)
		}
	}

	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && labeled.HasErrorLabel("TransientTransactionError") {
		return fmt.Errorf("%w: %v", db.ErrConflict, err)
	}

	return err
}
