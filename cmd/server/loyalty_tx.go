package main

import (
	"context"
	"database/sql"
	"time"

	loyaltyservice "dinein/internal/loyalty/service"
	dErrors "dinein/pkg/domain-errors"
	"dinein/pkg/platform/tx"
)

const defaultLoyaltyTxTimeout = 5 * time.Second

// loyaltyPostgresTx runs each accrual in a database transaction. The store
// picks the transaction up from the context.
type loyaltyPostgresTx struct {
	db      *sql.DB
	store   loyaltyservice.Store
	timeout time.Duration
}

func newLoyaltyPostgresTx(db *sql.DB, store loyaltyservice.Store) *loyaltyPostgresTx {
	return &loyaltyPostgresTx{db: db, store: store}
}

func (t *loyaltyPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store loyaltyservice.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultLoyaltyTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return tx.Run(ctx, t.db, func(ctx context.Context, _ tx.Executor) error {
		return fn(ctx, t.store)
	})
}
