// Package numerator provides the data model and storage contracts of document
// numbering: sequence keys and configuration, the number formatter, the default
// table per document type and the branch prefix lookup.
// Implementations of Store live in the infrastructure layer.
package numerator

import (
	"context"
	"errors"

	"docnum/internal/core/id"
)

var (
	// ErrVersionConflict is returned by CompareAndSwap when the stored version
	// no longer matches the expected one.
	ErrVersionConflict = errors.New("numerator: version conflict")

	// ErrSlowPath is returned by IncrementAndFetch when the sequence is missing
	// or the allocation needs a rollover decision; the caller falls back to
	// compare-and-swap.
	ErrSlowPath = errors.New("numerator: increment needs compare-and-swap")
)

// Store is durable keyed storage of sequence configuration.
// It owns no business logic beyond get/set.
type Store interface {
	// Get returns the sequence for key or an apperror NotFound.
	Get(ctx context.Context, key Key) (*Sequence, error)

	// CreateDefault inserts a first-use sequence seeded from defaults.
	// If another caller created it first, the existing sequence is returned.
	CreateDefault(ctx context.Context, key Key, defaults TypeDefaults) (*Sequence, error)

	// CompareAndSwap replaces the configuration when the stored version equals
	// expectedVersion and bumps the version. Otherwise ErrVersionConflict.
	CompareAndSwap(ctx context.Context, key Key, expectedVersion int64, next Config) error

	// BulkUpsert applies all edits for a branch atomically: either every edit is
	// written or none is.
	BulkUpsert(ctx context.Context, companyID, branchID id.ID, edits []ConfigEdit) ([]UpsertResult, error)
}

// Incrementer is an optional Store capability: a single round-trip increment for
// the common case where the sequence already exists and was last used in the
// same fiscal year.
type Incrementer interface {
	// IncrementAndFetch issues the stored current number and advances it by one,
	// only if the stored fiscal-year label equals fiscalLabel. It returns the issued
	// counter and the sequence as written, or ErrSlowPath.
	IncrementAndFetch(ctx context.Context, key Key, fiscalLabel string) (int64, *Sequence, error)
}
