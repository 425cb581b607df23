package driver

import (
	"context"
	"fmt"

	"github.com/pot-code/learning-service/internal/domain"
)

type contextTx string

const contextTxKey contextTx = "tx"

// Transactor runs fn inside a transaction
type Transactor func(ctx context.Context, fn func(ctx context.Context) error) error

// NewTransactor create a Transactor that begins transactions on conn with opts.
//
// The transaction is carried by the context passed to fn, repositories pick it up
// through Executor. It is committed when fn returns nil and rolled back otherwise,
// a nested call joins the outer transaction. Begin and commit failures wrap
// domain.ErrStorage.
func NewTransactor(conn ITransactionalDB, opts *TxOptions) Transactor {
	return func(ctx context.Context, fn func(ctx context.Context) error) (err error) {
		if _, ok := ctx.Value(contextTxKey).(ITransactionalDB); ok {
			return fn(ctx)
		}

		tx, err := conn.BeginTx(ctx, opts)
		if err != nil {
			return fmt.Errorf("begin transaction: %w: %w", domain.ErrStorage, err)
		}
		defer func() {
			if p := recover(); p != nil {
				tx.Rollback(ctx)
				panic(p)
			}
		}()

		if err = fn(context.WithValue(ctx, contextTxKey, tx)); err != nil {
			tx.Rollback(ctx)
			return err
		}
		if err = tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction: %w: %w", domain.ErrStorage, err)
		}
		return nil
	}
}

// Executor returns the transaction bound to ctx, or conn if there is none
func Executor(ctx context.Context, conn ITransactionalDB) ITransactionalDB {
	if tx, ok := ctx.Value(contextTxKey).(ITransactionalDB); ok {
		return tx
	}
	return conn
}
