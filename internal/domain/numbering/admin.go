package numbering

import (
	"context"
	"strings"
	"time"

	"docnum/internal/core/apperror"
	"docnum/internal/core/fiscal"
	"docnum/internal/core/id"
	"docnum/internal/core/numerator"
	"docnum/pkg/logger"
)

// AdminService edits sequence configuration on behalf of an administrator.
type AdminService struct {
	store    numerator.Store
	branches numerator.BranchDirectory
	defaults numerator.DefaultTable
	retry    RetryConfig
	validate *editValidator
	now      func() time.Time
}

// NewAdminService creates an admin service over store.
func NewAdminService(store numerator.Store, branches numerator.BranchDirectory, defaults numerator.DefaultTable, retry RetryConfig) *AdminService {
	return &AdminService{
		store:    store,
		branches: branches,
		defaults: defaults,
		retry:    retry,
		validate: newEditValidator(defaults),
		now:      time.Now,
	}
}

// PreviewFormat renders the number the next allocation on asOf would receive
// under cfg. Nothing is read or written.
func (s *AdminService) PreviewFormat(_ context.Context, branchPrefix string, cfg numerator.Config, asOf time.Time) (string, error) {
	fy, err := fiscal.Of(asOf)
	if err != nil {
		return "", err
	}
	next, counter, err := advance(cfg, fy)
	if err != nil {
		return "", err
	}
	return next.Render(branchPrefix, counter, fy)
}

// ResetCounter restarts the sequence at 1. The fiscal-year label is kept, so the
// next allocation in the same fiscal year issues 1 again.
func (s *AdminService) ResetCounter(ctx context.Context, key numerator.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}

	_, err := retryOnConflict(ctx, s.retry, key, s.conflict(key), func(ctx context.Context) error {
		seq, err := s.store.Get(ctx, key)
		if err != nil {
			return err
		}
		next := seq.Config
		next.CurrentNumber = 1
		return s.store.CompareAndSwap(ctx, key, seq.Version, next)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "sequence counter reset", "sequence", key.String())
	return nil
}

// SaveBranchConfiguration validates every edit and then writes them all in one
// atomic operation. Any invalid edit fails the whole save with field errors.
func (s *AdminService) SaveBranchConfiguration(ctx context.Context, companyID, branchID id.ID, edits []numerator.ConfigEdit) ([]numerator.UpsertResult, error) {
	fields := make(map[string]string)
	if id.IsNil(companyID) {
		fields["company_id"] = "This field is required"
	}
	if id.IsNil(branchID) {
		fields["branch_id"] = "This field is required"
	}
	if len(fields) > 0 {
		return nil, apperror.NewValidationErrors(fields)
	}
	if err := s.validate.Validate(edits); err != nil {
		return nil, err
	}

	results, err := s.store.BulkUpsert(ctx, companyID, branchID, edits)
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	logger.Info(ctx, "branch numbering configuration saved",
		"company_id", companyID.String(),
		"branch_id", branchID.String(),
		"entries", len(results),
	)
	return results, nil
}

// Description is the stored configuration of a sequence together with the number
// the next allocation would receive.
type Description struct {
	Sequence   *numerator.Sequence `json:"sequence"`
	NextNumber string              `json:"next_number"`
	FiscalYear fiscal.Year         `json:"fiscal_year"`
}

// Describe returns the stored sequence and a preview of its next number on asOf.
func (s *AdminService) Describe(ctx context.Context, key numerator.Key, asOf time.Time) (*Description, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	seq, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, apperror.Wrap(err)
	}
	branchPrefix, err := s.branches.BranchPrefix(ctx, key.CompanyID, key.BranchID)
	if err != nil {
		return nil, apperror.Wrap(err)
	}

	fy, err := fiscal.Of(asOf)
	if err != nil {
		return nil, err
	}
	next, err := s.PreviewFormat(ctx, branchPrefix, seq.Config, asOf)
	if err != nil {
		return nil, err
	}
	return &Description{Sequence: seq, NextNumber: next, FiscalYear: fy}, nil
}

// SeedFromLastIssued continues a sequence after a number issued by another system,
// e.g. when a branch migrates from manual numbering. lastNumber must be rendered
// with the sequence's prefixes. A trailing "/YY-YY" fiscal label on a yearly
// sequence is recorded so the next fiscal year still rolls over.
// It returns the next counter to be issued.
func (s *AdminService) SeedFromLastIssued(ctx context.Context, key numerator.Key, lastNumber string) (int64, error) {
	if err := key.Validate(); err != nil {
		return 0, err
	}
	defaults, ok := s.defaults.For(key.DocumentType)
	if !ok {
		return 0, unknownDocumentType(key.DocumentType)
	}
	branchPrefix, err := s.branches.BranchPrefix(ctx, key.CompanyID, key.BranchID)
	if err != nil {
		return 0, apperror.Wrap(err)
	}

	var nextCounter int64
	_, err = retryOnConflict(ctx, s.retry, key, s.conflict(key), func(ctx context.Context) error {
		seq, err := loadOrCreate(ctx, s.store, key, defaults)
		if err != nil {
			return err
		}
		last, err := seq.ParseCounter(branchPrefix, lastNumber)
		if err != nil {
			return err
		}
		if last >= numerator.MaxCounter {
			return apperror.NewInvalidCounter(last)
		}

		next := seq.Config
		next.CurrentNumber = last + 1
		if label, ok := s.labelOf(seq.Config, lastNumber); ok {
			next.LastFiscalYearLabel = label
		}
		if err := s.store.CompareAndSwap(ctx, key, seq.Version, next); err != nil {
			return err
		}
		nextCounter = next.CurrentNumber
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx, "sequence seeded from last issued number",
		"sequence", key.String(),
		"last_number", lastNumber,
		"next_counter", nextCounter,
	)
	return nextCounter, nil
}

// labelOf extracts the fiscal label of a number rendered by a yearly sequence.
func (s *AdminService) labelOf(cfg numerator.Config, number string) (string, bool) {
	if !cfg.ResetYearly || cfg.HasExplicitSuffix() {
		return "", false
	}
	i := strings.LastIndexByte(number, '/')
	if i < 0 {
		return "", false
	}
	fy, err := fiscal.ParseLabel(number[i+1:], s.now().Year())
	if err != nil {
		return "", false
	}
	return fy.Label, true
}

func (s *AdminService) conflict(key numerator.Key) func(int) *apperror.AppError {
	return func(attempts int) *apperror.AppError {
		return apperror.NewConcurrentModification("sequence", key.String()).WithDetail("attempts", attempts)
	}
}
