package numerator

import (
	"context"

	"docnum/internal/core/id"
)

// MockStore is a test implementation of Store.
// Unset funcs return zero values.
type MockStore struct {
	GetFunc            func(ctx context.Context, key Key) (*Sequence, error)
	CreateDefaultFunc  func(ctx context.Context, key Key, defaults TypeDefaults) (*Sequence, error)
	CompareAndSwapFunc func(ctx context.Context, key Key, expectedVersion int64, next Config) error
	BulkUpsertFunc     func(ctx context.Context, companyID, branchID id.ID, edits []ConfigEdit) ([]UpsertResult, error)
}

// Get implements Store.
func (m *MockStore) Get(ctx context.Context, key Key) (*Sequence, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return nil, nil
}

// CreateDefault implements Store.
func (m *MockStore) CreateDefault(ctx context.Context, key Key, defaults TypeDefaults) (*Sequence, error) {
	if m.CreateDefaultFunc != nil {
		return m.CreateDefaultFunc(ctx, key, defaults)
	}
	return nil, nil
}

// CompareAndSwap implements Store.
func (m *MockStore) CompareAndSwap(ctx context.Context, key Key, expectedVersion int64, next Config) error {
	if m.CompareAndSwapFunc != nil {
		return m.CompareAndSwapFunc(ctx, key, expectedVersion, next)
	}
	return nil
}

// BulkUpsert implements Store.
func (m *MockStore) BulkUpsert(ctx context.Context, companyID, branchID id.ID, edits []ConfigEdit) ([]UpsertResult, error) {
	if m.BulkUpsertFunc != nil {
		return m.BulkUpsertFunc(ctx, companyID, branchID, edits)
	}
	return nil, nil
}

// Ensure compile-time interface compliance.
var _ Store = (*MockStore)(nil)
