package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchQuery represents a query in a batch.
type BatchQuery struct {
	SQL  string
	Args []any
}

// BatchExecutor sends several statements to the server in one round trip.
type BatchExecutor struct {
	txManager *TxManager
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(txManager *TxManager) *BatchExecutor {
	return &BatchExecutor{txManager: txManager}
}

// QueryBatch executes queries in a single round-trip inside the transaction of ctx
// and hands each single-row result to scan in order. The first failure stops the
// batch; the caller's transaction then rolls everything back.
func (e *BatchExecutor) QueryBatch(ctx context.Context, queries []BatchQuery, scan func(i int, row pgx.Row) error) error {
	tx := e.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("QueryBatch requires transaction context")
	}

	batch := &pgx.Batch{}
	for _, q := range queries {
		batch.Queue(q.SQL, q.Args...)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range queries {
		if err := scan(i, results.QueryRow()); err != nil {
			_ = results.Close()
			return fmt.Errorf("batch query %d failed: %w", i, err)
		}
	}
	return results.Close()
}
