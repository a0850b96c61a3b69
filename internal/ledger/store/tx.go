package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "dealdesk/pkg/domain-errors"
	txcontext "dealdesk/pkg/platform/tx"
)

// defaultTxTimeout bounds a single read-validate-append unit.
const defaultTxTimeout = 5 * time.Second

// numShards spreads stream locks so unrelated subjects rarely contend.
const numShards = 128

// ShardedTx serializes work per stream with sharded mutexes. It is the
// in-memory counterpart of PostgresTx.
type ShardedTx struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

func NewShardedTx() *ShardedTx {
	return &ShardedTx{timeout: defaultTxTimeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, key uuid.UUID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	ctx, cancel := withDefaultTimeout(ctx, t.timeout)
	defer cancel()

	shard := &t.shards[shardFor(key)]
	shard.Lock()
	defer shard.Unlock()

	// Check again after acquiring lock
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}

// shardFor hashes the key with FNV-1a.
func shardFor(key uuid.UUID) int {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for _, b := range key {
		h ^= uint32(b)
		h *= fnvPrime
	}
	return int(h % numShards)
}

// PostgresTx opens a database transaction and carries it on the context.
// Concurrent writers to one stream are resolved by the ledger's unique
// (subject_id, sequence) constraint: the loser's append fails with a conflict.
type PostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB) *PostgresTx {
	return &PostgresTx{db: db, timeout: defaultTxTimeout}
}

func (t *PostgresTx) RunInTx(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	ctx, cancel := withDefaultTimeout(ctx, t.timeout)
	defer cancel()

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction")
	}
	return nil
}

func withDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
