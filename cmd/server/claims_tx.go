package main

import (
	"context"
	"database/sql"
	"time"

	"kvartal/internal/claims/store"
	dErrors "kvartal/pkg/domain-errors"
)

const defaultClaimsTxTimeout = 5 * time.Second

// claimsPostgresTx runs claim mutations inside one database transaction.
// Services receive a store bound to the transaction, so every read and
// write between begin and commit sees one consistent snapshot.
type claimsPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newClaimsPostgresTx(db *sql.DB) *claimsPostgresTx {
	return &claimsPostgresTx{db: db}
}

func (t *claimsPostgresTx) RunInTx(ctx context.Context, fn func(s store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultClaimsTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(store.NewPostgresTx(tx)); err != nil {
		return err
	}

	return tx.Commit()
}
