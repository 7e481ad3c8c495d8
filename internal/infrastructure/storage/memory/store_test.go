package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnum/internal/core/id"
	"docnum/internal/core/numerator"
	"docnum/internal/infrastructure/storage/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) numerator.Store { return New() })
}

func TestInjectConflicts(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := numerator.Key{CompanyID: id.New(), BranchID: id.New(), DocumentType: numerator.DocInvoice}

	seq, err := s.CreateDefault(ctx, key, numerator.TypeDefaults{Prefix: "INV-"})
	require.NoError(t, err)

	s.InjectConflicts(2)
	for i := 0; i < 2; i++ {
		err := s.CompareAndSwap(ctx, key, seq.Version, seq.Config)
		assert.True(t, errors.Is(err, numerator.ErrVersionConflict))
	}
	assert.NoError(t, s.CompareAndSwap(ctx, key, seq.Version, seq.Config))
	assert.Equal(t, int64(3), s.CompareAndSwapCalls())
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Get(ctx, numerator.Key{})
	assert.ErrorIs(t, err, context.Canceled)
}
