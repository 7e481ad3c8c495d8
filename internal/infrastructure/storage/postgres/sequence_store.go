package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"docnum/internal/core/apperror"
	"docnum/internal/core/id"
	"docnum/internal/core/numerator"
)

const sequenceTable = "doc_sequences"

var sequenceColumns = []string{
	"company_id",
	"branch_id",
	"document_type",
	"prefix",
	"suffix",
	"current_number",
	"padding_zeros",
	"reset_yearly",
	"last_fiscal_year_label",
	"version",
	"created_at",
	"updated_at",
}

const conflictTarget = "(company_id, branch_id, document_type)"

// SequenceStore is the PostgreSQL numerator.Store. One row per sequence key;
// the version column implements compare-and-swap.
type SequenceStore struct {
	txManager *TxManager
	batch     *BatchExecutor
}

// NewSequenceStore creates a store over txManager's pool.
func NewSequenceStore(txManager *TxManager) *SequenceStore {
	return &SequenceStore{
		txManager: txManager,
		batch:     NewBatchExecutor(txManager),
	}
}

// Ensure compile-time interface compliance.
var (
	_ numerator.Store       = (*SequenceStore)(nil)
	_ numerator.Incrementer = (*SequenceStore)(nil)
)

// builder returns a new squirrel builder with PostgreSQL placeholder format.
func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// keyEq matches one sequence row. UUIDs are passed as strings: squirrel would
// expand a [16]byte into an IN list.
func keyEq(key numerator.Key) squirrel.Eq {
	return squirrel.Eq{
		"company_id":    key.CompanyID.String(),
		"branch_id":     key.BranchID.String(),
		"document_type": string(key.DocumentType),
	}
}

// Get implements numerator.Store.
func (s *SequenceStore) Get(ctx context.Context, key numerator.Key) (*numerator.Sequence, error) {
	sql, args, err := selectQuery(key)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var seq numerator.Sequence
	if err := pgxscan.Get(ctx, s.txManager.GetQuerier(ctx), &seq, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sequence", key.String())
		}
		return nil, fmt.Errorf("get sequence: %w", err)
	}
	return &seq, nil
}

// CreateDefault implements numerator.Store. A concurrent creator wins silently and
// its row is returned.
func (s *SequenceStore) CreateDefault(ctx context.Context, key numerator.Key, defaults numerator.TypeDefaults) (*numerator.Sequence, error) {
	seq := numerator.NewSequence(key, defaults, time.Now().UTC())

	sql, args, err := insertDefaultQuery(seq)
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return nil, fmt.Errorf("create sequence: %w", err)
	}
	return s.Get(ctx, key)
}

// CompareAndSwap implements numerator.Store. A row that no longer exists is
// reported as a version conflict.
func (s *SequenceStore) CompareAndSwap(ctx context.Context, key numerator.Key, expectedVersion int64, next numerator.Config) error {
	sql, args, err := compareAndSwapQuery(key, expectedVersion, next)
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	result, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update sequence: %w", err)
	}
	if result.RowsAffected() == 0 {
		return numerator.ErrVersionConflict
	}
	return nil
}

// IncrementAndFetch implements numerator.Incrementer with a single conditional
// UPDATE ... RETURNING.
func (s *SequenceStore) IncrementAndFetch(ctx context.Context, key numerator.Key, fiscalLabel string) (int64, *numerator.Sequence, error) {
	if fiscalLabel == "" {
		return 0, nil, numerator.ErrSlowPath
	}
	sql, args, err := incrementQuery(key, fiscalLabel)
	if err != nil {
		return 0, nil, fmt.Errorf("build query: %w", err)
	}

	var seq numerator.Sequence
	if err := pgxscan.Get(ctx, s.txManager.GetQuerier(ctx), &seq, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return 0, nil, numerator.ErrSlowPath
		}
		return 0, nil, fmt.Errorf("increment sequence: %w", err)
	}
	return seq.CurrentNumber - 1, &seq, nil
}

// BulkUpsert implements numerator.Store. All edits go out as one batch inside one
// transaction; any failure rolls back every edit.
func (s *SequenceStore) BulkUpsert(ctx context.Context, companyID, branchID id.ID, edits []numerator.ConfigEdit) ([]numerator.UpsertResult, error) {
	queries := make([]BatchQuery, 0, len(edits))
	for _, edit := range edits {
		sql, args, err := upsertQuery(companyID, branchID, edit)
		if err != nil {
			return nil, fmt.Errorf("build query: %w", err)
		}
		queries = append(queries, BatchQuery{SQL: sql, Args: args})
	}

	results := make([]numerator.UpsertResult, len(edits))
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.batch.QueryBatch(ctx, queries, func(i int, row pgx.Row) error {
			results[i].DocumentType = edits[i].DocumentType
			return row.Scan(&results[i].Version, &results[i].Created)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("bulk upsert sequences: %w", err)
	}
	return results, nil
}

func selectQuery(key numerator.Key) (string, []any, error) {
	return builder().
		Select(sequenceColumns...).
		From(sequenceTable).
		Where(keyEq(key)).
		ToSql()
}

func insertDefaultQuery(seq *numerator.Sequence) (string, []any, error) {
	return builder().
		Insert(sequenceTable).
		Columns(sequenceColumns...).
		Values(
			seq.CompanyID.String(),
			seq.BranchID.String(),
			string(seq.DocumentType),
			seq.Prefix,
			seq.Suffix,
			seq.CurrentNumber,
			seq.PaddingZeros,
			seq.ResetYearly,
			seq.LastFiscalYearLabel,
			seq.Version,
			seq.CreatedAt,
			seq.UpdatedAt,
		).
		Suffix("ON CONFLICT " + conflictTarget + " DO NOTHING").
		ToSql()
}

func compareAndSwapQuery(key numerator.Key, expectedVersion int64, next numerator.Config) (string, []any, error) {
	return builder().
		Update(sequenceTable).
		SetMap(map[string]any{
			"prefix":                 next.Prefix,
			"suffix":                 next.Suffix,
			"current_number":         next.CurrentNumber,
			"padding_zeros":          next.PaddingZeros,
			"reset_yearly":           next.ResetYearly,
			"last_fiscal_year_label": next.LastFiscalYearLabel,
			"version":                squirrel.Expr("version + 1"),
			"updated_at":             squirrel.Expr("now()"),
		}).
		Where(keyEq(key)).
		Where(squirrel.Eq{"version": expectedVersion}).
		ToSql()
}

func incrementQuery(key numerator.Key, fiscalLabel string) (string, []any, error) {
	return builder().
		Update(sequenceTable).
		Set("current_number", squirrel.Expr("current_number + 1")).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("now()")).
		Where(keyEq(key)).
		Where(squirrel.Eq{"last_fiscal_year_label": fiscalLabel}).
		Where(squirrel.LtOrEq{"current_number": numerator.MaxCounter}).
		Suffix("RETURNING " + strings.Join(sequenceColumns, ", ")).
		ToSql()
}

// upsertQuery writes one admin edit. The counter is only overwritten when the
// edit carries one; the fiscal-year label is never touched.
func upsertQuery(companyID, branchID id.ID, edit numerator.ConfigEdit) (string, []any, error) {
	counter := int64(1)
	explicit := edit.CurrentNumber != nil
	if explicit {
		counter = *edit.CurrentNumber
	}

	return builder().
		Insert(sequenceTable).
		Columns(
			"company_id", "branch_id", "document_type",
			"prefix", "suffix", "current_number", "padding_zeros", "reset_yearly",
			"last_fiscal_year_label", "version", "created_at", "updated_at",
		).
		Values(
			companyID.String(), branchID.String(), string(edit.DocumentType),
			edit.Prefix, edit.Suffix, counter, edit.PaddingZeros, edit.ResetYearly,
			"", 1, squirrel.Expr("now()"), squirrel.Expr("now()"),
		).
		Suffix(`ON CONFLICT `+conflictTarget+` DO UPDATE SET
			prefix = EXCLUDED.prefix,
			suffix = EXCLUDED.suffix,
			padding_zeros = EXCLUDED.padding_zeros,
			reset_yearly = EXCLUDED.reset_yearly,
			current_number = CASE WHEN ?::boolean THEN EXCLUDED.current_number ELSE `+sequenceTable+`.current_number END,
			version = `+sequenceTable+`.version + 1,
			updated_at = now()
		RETURNING version, (xmax = 0) AS inserted`, explicit).
		ToSql()
}
