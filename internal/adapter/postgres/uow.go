package postgres

import (
	"context"
	"fmt"

	"github.com/bistroroyale/backend/internal/interfaces"
)

type txKey struct{}

// unitOfWork implements interfaces.UnitOfWork over pgx transactions. The
// open transaction travels in the context; nested Do calls join it instead
// of opening their own.
type unitOfWork struct {
	db DB
}

func NewUnitOfWork(db DB) interfaces.UnitOfWork {
	return &unitOfWork{db: db}
}

func (u *unitOfWork) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(Tx); ok {
		return fn(ctx)
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// querier returns the transaction bound to ctx, or the pool itself.
func querier(ctx context.Context, db DB) Querier {
	if tx, ok := ctx.Value(txKey{}).(Tx); ok {
		return tx
	}
	return db
}
