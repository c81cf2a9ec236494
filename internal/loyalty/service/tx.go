package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	id "dinein/pkg/domain"
	dErrors "dinein/pkg/domain-errors"
)

// StoreTx provides a transactional boundary for loyalty mutations.
// Implementations may wrap a database transaction or, in memory, a lock.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// numAccountShards spreads in-memory accruals over independent locks keyed by
// customer.
const numAccountShards = 64

const defaultTxTimeout = 5 * time.Second

type shardedTx struct {
	shards  [numAccountShards]sync.Mutex
	store   Store
	timeout time.Duration
}

// NewShardedTx serializes accruals per customer for stores without native
// transactions.
func NewShardedTx(store Store) StoreTx {
	return &shardedTx{store: store, timeout: defaultTxTimeout}
}

func (t *shardedTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := t.selectShard(ctx)
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx, t.store)
}

func (t *shardedTx) selectShard(ctx context.Context) int {
	customerID, ok := ctx.Value(txCustomerKeyCtx).(id.CustomerID)
	if !ok {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(customerID.String()))
	return int(h.Sum32() % numAccountShards)
}

type txCustomerKey struct{}

var txCustomerKeyCtx = txCustomerKey{}

func withTxCustomer(ctx context.Context, customerID id.CustomerID) context.Context {
	return context.WithValue(ctx, txCustomerKeyCtx, customerID)
}
