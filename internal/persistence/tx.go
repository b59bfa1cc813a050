package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxRunner runs a function inside one database transaction. The whole
// unit commits or rolls back; no intermediate state is observable.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// InTx begins a transaction on the pool, runs fn, and commits on success.
func (p *Postgres) InTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	if p == nil || p.Pool == nil {
		return fmt.Errorf("postgres pool not configured")
	}
	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
