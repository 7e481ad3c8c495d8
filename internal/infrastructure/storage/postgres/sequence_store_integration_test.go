//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"docnum/internal/core/id"
	"docnum/internal/core/numerator"
	"docnum/internal/domain/numbering"
	"docnum/internal/infrastructure/storage/storetest"
)

// startDatabase runs a PostgreSQL container with the schema applied.
func startDatabase(t *testing.T) *Pool {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("docnum_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := NewMigrator(dsn)
	require.NoError(t, err)
	require.NoError(t, m.Up(ctx))
	require.NoError(t, m.Close())

	pool, err := NewPool(ctx, DefaultPoolConfig(dsn))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestSequenceStoreIntegration(t *testing.T) {
	pool := startDatabase(t)
	txm := NewTxManager(pool)

	storetest.Run(t, func(t *testing.T) numerator.Store {
		_, err := pool.Exec(context.Background(), "TRUNCATE doc_sequences")
		require.NoError(t, err)
		return NewSequenceStore(txm)
	})
}

func TestBulkUpsertRollsBackIntegration(t *testing.T) {
	pool := startDatabase(t)
	store := NewSequenceStore(NewTxManager(pool))
	ctx := context.Background()
	company, branch := id.New(), id.New()

	// padding 9 violates the table check constraint on the second row
	_, err := store.BulkUpsert(ctx, company, branch, []numerator.ConfigEdit{
		{DocumentType: numerator.DocInvoice, Prefix: "INV-", PaddingZeros: 4},
		{DocumentType: numerator.DocQuotation, Prefix: "QUO-", PaddingZeros: 9},
	})
	require.Error(t, err)

	_, err = store.Get(ctx, numerator.Key{CompanyID: company, BranchID: branch, DocumentType: numerator.DocInvoice})
	assert.Error(t, err, "first row must be rolled back")
}

func TestConcurrentAllocationIntegration(t *testing.T) {
	pool := startDatabase(t)
	store := NewSequenceStore(NewTxManager(pool))
	key := numerator.Key{CompanyID: id.New(), BranchID: id.New(), DocumentType: numerator.DocInvoice}

	for _, prefer := range []bool{false, true} {
		cfg := numbering.AllocatorConfig{
			Retry: numbering.RetryConfig{
				MaxAttempts:    200,
				InitialBackoff: time.Millisecond,
				MaxBackoff:     20 * time.Millisecond,
			},
			PreferIncrement: prefer,
		}
		alloc := numbering.NewAllocator(store, numerator.StaticBranches{key.BranchID: "HQ"}, numerator.StandardDefaults(), cfg)

		const callers = 40
		counters := make([]int64, callers)
		g, ctx := errgroup.WithContext(context.Background())
		for i := 0; i < callers; i++ {
			i := i
			g.Go(func() error {
				a, err := alloc.Allocate(ctx, key, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC))
				if err != nil {
					return err
				}
				counters[i] = a.Counter
				return nil
			})
		}
		require.NoError(t, g.Wait())

		seen := make(map[int64]bool)
		for _, c := range counters {
			assert.False(t, seen[c], "duplicate counter %d", c)
			seen[c] = true
		}
		assert.Len(t, seen, callers)
	}
}
