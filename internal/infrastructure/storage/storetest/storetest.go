// Package storetest holds behaviour tests every numerator.Store driver must pass.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnum/internal/core/apperror"
	"docnum/internal/core/id"
	"docnum/internal/core/numerator"
)

// Factory returns a fresh, empty store.
type Factory func(t *testing.T) numerator.Store

func newKey(dt numerator.DocumentType) numerator.Key {
	return numerator.Key{CompanyID: id.New(), BranchID: id.New(), DocumentType: dt}
}

// Run executes the contract suite against stores built by factory.
func Run(t *testing.T, factory Factory) {
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, factory(t)) })
	t.Run("CreateDefault", func(t *testing.T) { testCreateDefault(t, factory(t)) })
	t.Run("CreateDefaultRace", func(t *testing.T) { testCreateDefaultRace(t, factory(t)) })
	t.Run("CompareAndSwap", func(t *testing.T) { testCompareAndSwap(t, factory(t)) })
	t.Run("BulkUpsert", func(t *testing.T) { testBulkUpsert(t, factory(t)) })
	t.Run("Increment", func(t *testing.T) { testIncrement(t, factory(t)) })
}

func testGetMissing(t *testing.T, store numerator.Store) {
	_, err := store.Get(context.Background(), newKey(numerator.DocInvoice))
	assert.True(t, apperror.IsNotFound(err), "got %v", err)
}

func testCreateDefault(t *testing.T, store numerator.Store) {
	ctx := context.Background()
	key := newKey(numerator.DocQuotation)

	seq, err := store.CreateDefault(ctx, key, numerator.TypeDefaults{Prefix: "QUO-", PaddingZeros: 3})
	require.NoError(t, err)
	assert.Equal(t, key, seq.Key)
	assert.Equal(t, "QUO-", seq.Prefix)
	assert.Equal(t, 3, seq.PaddingZeros)
	assert.Equal(t, int64(1), seq.CurrentNumber)
	assert.True(t, seq.ResetYearly)

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, seq.Config, got.Config)
	assert.Equal(t, seq.Version, got.Version)
}

func testCreateDefaultRace(t *testing.T, store numerator.Store) {
	ctx := context.Background()
	key := newKey(numerator.DocInvoice)

	const workers = 8
	versions := make([]int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seq, err := store.CreateDefault(ctx, key, numerator.TypeDefaults{Prefix: "INV-", PaddingZeros: 4})
			if assert.NoError(t, err) {
				versions[i] = seq.Version
			}
		}(i)
	}
	wg.Wait()

	for _, v := range versions {
		assert.Equal(t, versions[0], v)
	}
}

func testCompareAndSwap(t *testing.T, store numerator.Store) {
	ctx := context.Background()
	key := newKey(numerator.DocInvoice)

	seq, err := store.CreateDefault(ctx, key, numerator.TypeDefaults{Prefix: "INV-", PaddingZeros: 4})
	require.NoError(t, err)

	next := seq.Config
	next.CurrentNumber = 2
	next.LastFiscalYearLabel = "25-26"
	require.NoError(t, store.CompareAndSwap(ctx, key, seq.Version, next))

	// the same expected version is now stale
	err = store.CompareAndSwap(ctx, key, seq.Version, next)
	assert.True(t, errors.Is(err, numerator.ErrVersionConflict), "got %v", err)

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.CurrentNumber)
	assert.Equal(t, "25-26", got.LastFiscalYearLabel)
	assert.Equal(t, seq.Version+1, got.Version)
}

func testBulkUpsert(t *testing.T, store numerator.Store) {
	ctx := context.Background()
	key := newKey(numerator.DocInvoice)

	seq, err := store.CreateDefault(ctx, key, numerator.TypeDefaults{Prefix: "INV-", PaddingZeros: 4})
	require.NoError(t, err)
	next := seq.Config
	next.CurrentNumber = 9
	next.LastFiscalYearLabel = "25-26"
	require.NoError(t, store.CompareAndSwap(ctx, key, seq.Version, next))

	start := int64(50)
	results, err := store.BulkUpsert(ctx, key.CompanyID, key.BranchID, []numerator.ConfigEdit{
		{DocumentType: numerator.DocInvoice, Prefix: "BILL-", PaddingZeros: 5, ResetYearly: true},
		{DocumentType: numerator.DocQuotation, Prefix: "Q-", PaddingZeros: 2, CurrentNumber: &start},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.False(t, results[0].Created)
	assert.True(t, results[1].Created)

	inv, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "BILL-", inv.Prefix)
	assert.Equal(t, 5, inv.PaddingZeros)
	assert.Equal(t, int64(9), inv.CurrentNumber, "counter kept when edit leaves it unset")
	assert.Equal(t, "25-26", inv.LastFiscalYearLabel)
	assert.Equal(t, results[0].Version, inv.Version)

	quoKey := key
	quoKey.DocumentType = numerator.DocQuotation
	quo, err := store.Get(ctx, quoKey)
	require.NoError(t, err)
	assert.Equal(t, int64(50), quo.CurrentNumber)
	assert.False(t, quo.ResetYearly)
	assert.Empty(t, quo.LastFiscalYearLabel)
}

func testIncrement(t *testing.T, store numerator.Store) {
	inc, ok := store.(numerator.Incrementer)
	if !ok {
		t.Skip("store has no increment fast path")
	}
	ctx := context.Background()
	key := newKey(numerator.DocReceipt)

	_, _, err := inc.IncrementAndFetch(ctx, key, "25-26")
	assert.ErrorIs(t, err, numerator.ErrSlowPath, "missing row")

	seq, err := store.CreateDefault(ctx, key, numerator.TypeDefaults{Prefix: "REC-", PaddingZeros: 4})
	require.NoError(t, err)
	_, _, err = inc.IncrementAndFetch(ctx, key, "25-26")
	assert.ErrorIs(t, err, numerator.ErrSlowPath, "never allocated")

	next := seq.Config
	next.CurrentNumber = 4
	next.LastFiscalYearLabel = "25-26"
	require.NoError(t, store.CompareAndSwap(ctx, key, seq.Version, next))

	issued, got, err := inc.IncrementAndFetch(ctx, key, "25-26")
	require.NoError(t, err)
	assert.Equal(t, int64(4), issued)
	assert.Equal(t, int64(5), got.CurrentNumber)
	assert.Equal(t, seq.Version+2, got.Version)

	_, _, err = inc.IncrementAndFetch(ctx, key, "26-27")
	assert.ErrorIs(t, err, numerator.ErrSlowPath, "fiscal year changed")

	over := got.Config
	over.CurrentNumber = numerator.MaxCounter + 1
	require.NoError(t, store.CompareAndSwap(ctx, key, got.Version, over))
	_, _, err = inc.IncrementAndFetch(ctx, key, "25-26")
	assert.ErrorIs(t, err, numerator.ErrSlowPath, "counter out of range")

	after, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, numerator.MaxCounter+1, after.CurrentNumber, "nothing written")
}
