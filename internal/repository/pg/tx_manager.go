package pg

//go:generate mockgen -source=tx_manager.go -destination=mocks/db_mock.go -package=mocks

import (
	"context"
	"shipwise-backend/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TransactionManager implements domain.TransactionManager using pgx
type TransactionManager struct {
	db DB
}

func NewTransactionManager(db DB) domain.TransactionManager {
	return &TransactionManager{db: db}
}

// Do runs fn in a transaction. When ctx already carries one, fn runs in a
// savepoint of it so an inner failure does not poison the outer unit.
func (tm *TransactionManager) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	var tx pgx.Tx
	if outer, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		tx, err = outer.Begin(ctx)
	} else {
		tx, err = tm.db.Begin(ctx)
	}
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	// Create a new context with the transaction
	txCtx := context.WithValue(ctx, txKey{}, tx)

	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type txKey struct{}

// DB is the subset of pgx shared by *pgxpool.Pool and pgx.Tx that the
// repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// conn returns the transaction carried by ctx, or the pool.
func conn(ctx context.Context, db DB) DB {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db
}
