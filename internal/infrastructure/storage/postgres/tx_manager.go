package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docnum/internal/core/tx"
	"docnum/pkg/logger"
)

var tracer = otel.Tracer("docnum/tx")

// Compile-time check that TxManager implements tx.Manager interface.
var _ tx.Manager = (*TxManager)(nil)

// TxOptions configures transaction behavior.
type TxOptions struct {
	// IsolationLevel: pgx.Serializable, pgx.RepeatableRead, pgx.ReadCommitted
	IsolationLevel pgx.TxIsoLevel

	// StatementTimeout protects against long-running queries.
	StatementTimeout time.Duration

	// LockTimeout bounds the wait for a sequence row held by another writer.
	// Allocations run at interactive latency, so an admin save gives up instead
	// of queueing behind them.
	LockTimeout time.Duration
}

// DefaultTxOptions returns the options used for configuration saves.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		StatementTimeout: 10 * time.Second,
		LockTimeout:      2 * time.Second,
	}
}

// TxManager runs multi-row writes of the sequence table in one transaction.
// Nested calls join the outer transaction.
//
// Sequence allocation does not run inside a TxManager transaction: a counter must
// be consumed even when the caller's document transaction rolls back.
type TxManager struct {
	pool *pgxpool.Pool
	opts TxOptions
}

// NewTxManager creates a transaction manager with DefaultTxOptions.
func NewTxManager(pool *Pool) *TxManager {
	return NewTxManagerWithOptions(pool, DefaultTxOptions())
}

// NewTxManagerWithOptions creates a transaction manager with custom options.
func NewTxManagerWithOptions(pool *Pool, opts TxOptions) *TxManager {
	return &TxManager{pool: pool.Pool, opts: opts}
}

type txKey struct{}

// RunInTransaction executes fn within a transaction, committing when fn returns
// nil and rolling back otherwise. A transaction already in ctx is reused.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.GetTx(ctx) != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "sequence.transaction",
		trace.WithAttributes(
			attribute.String("tx.isolation", string(m.opts.IsolationLevel)),
			attribute.Int64("tx.lock_timeout_ms", m.opts.LockTimeout.Milliseconds()),
		))
	defer span.End()

	if err := m.run(ctx, fn); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (m *TxManager) run(ctx context.Context, fn func(ctx context.Context) error) error {
	t, err := m.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   m.opts.IsolationLevel,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := m.applyTimeouts(ctx, t); err != nil {
		_ = t.Rollback(context.Background())
		return err
	}

	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		// Background context: the rollback must run even if ctx was cancelled.
		if rbErr := t.Rollback(context.Background()); rbErr != nil {
			logger.Error(ctx, "rollback failed", "error", rbErr, "cause", err)
		}
		return err
	}

	if err := t.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (m *TxManager) applyTimeouts(ctx context.Context, t pgx.Tx) error {
	settings := []struct {
		name  string
		value time.Duration
	}{
		{"statement_timeout", m.opts.StatementTimeout},
		{"lock_timeout", m.opts.LockTimeout},
	}
	for _, s := range settings {
		if s.value <= 0 {
			continue
		}
		if _, err := t.Exec(ctx, fmt.Sprintf("SET LOCAL %s = '%dms'", s.name, s.value.Milliseconds())); err != nil {
			return fmt.Errorf("set %s: %w", s.name, err)
		}
	}
	return nil
}

// GetTx returns the current transaction from context, or nil if none.
func (m *TxManager) GetTx(ctx context.Context) pgx.Tx {
	if t, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return t
	}
	return nil
}

// Querier is satisfied by both a pool and a transaction, so the store works
// inside and outside transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// GetQuerier returns appropriate querier for context.
func (m *TxManager) GetQuerier(ctx context.Context) Querier {
	if t := m.GetTx(ctx); t != nil {
		return t
	}
	return m.pool
}
