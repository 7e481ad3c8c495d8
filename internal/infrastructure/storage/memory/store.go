// Package memory provides an in-process sequence store.
// It is safe for concurrent use within one process and is the reference driver
// for allocator tests, where conflicts can be injected on demand.
package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"docnum/internal/core/apperror"
	"docnum/internal/core/id"
	"docnum/internal/core/numerator"
)

// Store keeps sequences in a map guarded by a mutex. Each method holds the lock
// for its own duration only, so callers interleave between Get and
// CompareAndSwap exactly like separate database round trips.
type Store struct {
	mu   sync.Mutex
	rows map[numerator.Key]*numerator.Sequence
	now  func() time.Time

	// injected counts pending forced conflicts for CompareAndSwap
	injected atomic.Int64
	// casCalls counts CompareAndSwap invocations, for tests
	casCalls atomic.Int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		rows: make(map[numerator.Key]*numerator.Sequence),
		now:  time.Now,
	}
}

// Ensure compile-time interface compliance.
var (
	_ numerator.Store       = (*Store)(nil)
	_ numerator.Incrementer = (*Store)(nil)
)

// InjectConflicts makes the next n CompareAndSwap calls fail with
// ErrVersionConflict regardless of the stored version.
func (s *Store) InjectConflicts(n int) {
	s.injected.Add(int64(n))
}

// CompareAndSwapCalls returns how many CompareAndSwap calls were made.
func (s *Store) CompareAndSwapCalls() int64 {
	return s.casCalls.Load()
}

// Get implements numerator.Store.
func (s *Store) Get(ctx context.Context, key numerator.Key) (*numerator.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.rows[key]
	if !ok {
		return nil, apperror.NewNotFound("sequence", key.String())
	}
	return seq.Clone(), nil
}

// CreateDefault implements numerator.Store.
func (s *Store) CreateDefault(ctx context.Context, key numerator.Key, defaults numerator.TypeDefaults) (*numerator.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq, ok := s.rows[key]; ok {
		return seq.Clone(), nil
	}
	seq := numerator.NewSequence(key, defaults, s.now())
	s.rows[key] = seq
	return seq.Clone(), nil
}

// CompareAndSwap implements numerator.Store.
func (s *Store) CompareAndSwap(ctx context.Context, key numerator.Key, expectedVersion int64, next numerator.Config) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.casCalls.Add(1)
	if s.takeInjected() {
		return numerator.ErrVersionConflict
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.rows[key]
	if !ok {
		return apperror.NewNotFound("sequence", key.String())
	}
	if seq.Version != expectedVersion {
		return numerator.ErrVersionConflict
	}
	seq.Config = next
	seq.Version++
	seq.UpdatedAt = s.now()
	return nil
}

func (s *Store) takeInjected() bool {
	for {
		n := s.injected.Load()
		if n <= 0 {
			return false
		}
		if s.injected.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// IncrementAndFetch implements numerator.Incrementer.
func (s *Store) IncrementAndFetch(ctx context.Context, key numerator.Key, fiscalLabel string) (int64, *numerator.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.rows[key]
	if !ok || seq.LastFiscalYearLabel == "" || seq.LastFiscalYearLabel != fiscalLabel {
		return 0, nil, numerator.ErrSlowPath
	}
	// out-of-range counters are reported by the compare-and-swap path
	if seq.CurrentNumber < 1 || seq.CurrentNumber > numerator.MaxCounter {
		return 0, nil, numerator.ErrSlowPath
	}
	issued := seq.CurrentNumber
	seq.CurrentNumber++
	seq.Version++
	seq.UpdatedAt = s.now()
	return issued, seq.Clone(), nil
}

// BulkUpsert implements numerator.Store. All edits are applied under one lock.
func (s *Store) BulkUpsert(ctx context.Context, companyID, branchID id.ID, edits []numerator.ConfigEdit) ([]numerator.UpsertResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	results := make([]numerator.UpsertResult, 0, len(edits))
	for _, edit := range edits {
		key := numerator.Key{CompanyID: companyID, BranchID: branchID, DocumentType: edit.DocumentType}

		seq, exists := s.rows[key]
		if !exists {
			seq = numerator.NewSequence(key, numerator.TypeDefaults{}, now)
			seq.Version = 0
			s.rows[key] = seq
		}
		seq.Config = edit.Apply(seq.Config)
		seq.Version++
		seq.UpdatedAt = now

		results = append(results, numerator.UpsertResult{
			DocumentType: edit.DocumentType,
			Created:      !exists,
			Version:      seq.Version,
		})
	}
	return results, nil
}
