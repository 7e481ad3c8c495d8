// Package numbering issues document numbers and administers sequence configuration.
//
// The Allocator is the only writer of counters during normal operation. It relies on
// the store's versioned compare-and-swap and never holds a lock across round trips,
// so any number of processes may allocate from the same store.
package numbering

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docnum/internal/core/apperror"
	"docnum/internal/core/fiscal"
	"docnum/internal/core/numerator"
	"docnum/pkg/logger"
)

var tracer = otel.Tracer("docnum/numbering")

// AllocatorConfig configures an Allocator.
type AllocatorConfig struct {
	Retry RetryConfig

	// PreferIncrement enables the single round-trip increment when the store
	// supports it.
	PreferIncrement bool
}

// DefaultAllocatorConfig returns production defaults.
func DefaultAllocatorConfig() AllocatorConfig {
	return AllocatorConfig{
		Retry:           DefaultRetryConfig(),
		PreferIncrement: true,
	}
}

// Allocation is one issued document number.
type Allocation struct {
	Key        numerator.Key `json:"key"`
	Number     string        `json:"number"`
	Counter    int64         `json:"counter"`
	FiscalYear fiscal.Year   `json:"fiscal_year"`
	// Attempts is the number of compare-and-swap tries; zero for the increment path.
	Attempts int `json:"attempts"`
}

// Allocator issues unique, monotonically increasing document numbers.
type Allocator struct {
	store    numerator.Store
	inc      numerator.Incrementer
	branches numerator.BranchDirectory
	defaults numerator.DefaultTable
	cfg      AllocatorConfig
}

// NewAllocator creates an allocator. The increment path is used only when store
// also implements numerator.Incrementer.
func NewAllocator(store numerator.Store, branches numerator.BranchDirectory, defaults numerator.DefaultTable, cfg AllocatorConfig) *Allocator {
	a := &Allocator{
		store:    store,
		branches: branches,
		defaults: defaults,
		cfg:      cfg,
	}
	if inc, ok := store.(numerator.Incrementer); ok && cfg.PreferIncrement {
		a.inc = inc
	}
	return a
}

// Allocate issues the next number of key for a document dated asOf.
//
// The counter is consumed as soon as Allocate returns. If the caller's own
// document transaction later aborts, the number is not reused: gaps are allowed,
// duplicates are not. Call Allocate outside the document transaction.
func (a *Allocator) Allocate(ctx context.Context, key numerator.Key, asOf time.Time) (*Allocation, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	defaults, ok := a.defaults.For(key.DocumentType)
	if !ok {
		return nil, unknownDocumentType(key.DocumentType)
	}
	fy, err := fiscal.Of(asOf)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "numbering.allocate",
		trace.WithAttributes(
			attribute.String("sequence.company_id", key.CompanyID.String()),
			attribute.String("sequence.branch_id", key.BranchID.String()),
			attribute.String("sequence.document_type", string(key.DocumentType)),
			attribute.String("sequence.fiscal_year", fy.Label),
		))
	defer span.End()

	alloc, err := a.allocate(ctx, key, defaults, fy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int64("sequence.counter", alloc.Counter),
		attribute.Int("sequence.attempts", alloc.Attempts),
	)

	logger.Debug(ctx, "document number allocated",
		"sequence", key.String(),
		"number", alloc.Number,
		"attempts", alloc.Attempts,
	)
	return alloc, nil
}

func (a *Allocator) allocate(ctx context.Context, key numerator.Key, defaults numerator.TypeDefaults, fy fiscal.Year) (*Allocation, error) {
	// Resolve the branch first so a missing branch never consumes a number.
	branchPrefix, err := a.branches.BranchPrefix(ctx, key.CompanyID, key.BranchID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	if a.inc != nil {
		issued, seq, err := a.inc.IncrementAndFetch(ctx, key, fy.Label)
		switch {
		case err == nil:
			return a.render(key, branchPrefix, seq.Config, issued, fy, 0)
		case !errors.Is(err, numerator.ErrSlowPath):
			return nil, apperror.Wrap(err)
		}
	}

	var (
		issued  int64
		written numerator.Config
	)
	attempts, err := retryOnConflict(ctx, a.cfg.Retry, key,
		func(attempts int) *apperror.AppError {
			return apperror.NewAllocationContention(key.String(), attempts)
		},
		func(ctx context.Context) error {
			seq, err := loadOrCreate(ctx, a.store, key, defaults)
			if err != nil {
				return err
			}
			next, counter, err := advance(seq.Config, fy)
			if err != nil {
				return err
			}
			if err := a.store.CompareAndSwap(ctx, key, seq.Version, next); err != nil {
				return err
			}
			issued, written = counter, next
			return nil
		})
	if err != nil {
		return nil, err
	}
	return a.render(key, branchPrefix, written, issued, fy, attempts)
}

func (a *Allocator) render(key numerator.Key, branchPrefix string, cfg numerator.Config, counter int64, fy fiscal.Year, attempts int) (*Allocation, error) {
	number, err := cfg.Render(branchPrefix, counter, fy)
	if err != nil {
		return nil, err
	}
	return &Allocation{
		Key:        key,
		Number:     number,
		Counter:    counter,
		FiscalYear: fy,
		Attempts:   attempts,
	}, nil
}

// loadOrCreate reads the sequence, creating it from defaults on first use.
func loadOrCreate(ctx context.Context, store numerator.Store, key numerator.Key, defaults numerator.TypeDefaults) (*numerator.Sequence, error) {
	seq, err := store.Get(ctx, key)
	if err == nil {
		return seq, nil
	}
	if !apperror.IsNotFound(err) {
		return nil, err
	}
	return store.CreateDefault(ctx, key, defaults)
}

// advance computes the configuration after issuing one number in fy and returns
// it with the issued counter.
//
// A counter outside [1, MaxCounter] is reported, never repaired: clamping it would
// reissue numbers already printed on documents.
//
// An empty last label means nothing was issued yet: the stored counter is kept, so a
// seeded starting number survives the first allocation. A fiscal year earlier than
// the last label is backdating; it is refused for yearly sequences and leaves the
// label alone otherwise.
func advance(cfg numerator.Config, fy fiscal.Year) (numerator.Config, int64, error) {
	next := cfg

	switch last := cfg.LastFiscalYearLabel; {
	case last == "":
		next.LastFiscalYearLabel = fy.Label
	case last != fy.Label:
		backdated := false
		if lastYear, err := fiscal.ParseLabel(last, fy.Start); err == nil {
			backdated = fy.Before(lastYear)
		}
		if cfg.ResetYearly {
			if backdated {
				return cfg, 0, apperror.NewPeriodClosed(fy.Label).WithDetail("last_period", last)
			}
			next.CurrentNumber = 1
		}
		if !backdated {
			next.LastFiscalYearLabel = fy.Label
		}
	}

	issued := next.CurrentNumber
	if issued < 1 || issued > numerator.MaxCounter {
		return cfg, 0, apperror.NewInvalidCounter(issued)
	}
	next.CurrentNumber = issued + 1
	return next, issued, nil
}

func unknownDocumentType(dt numerator.DocumentType) error {
	return apperror.NewValidationErrors(map[string]string{
		"document_type": "Unknown document type",
	}).WithDetail("document_type", string(dt))
}
