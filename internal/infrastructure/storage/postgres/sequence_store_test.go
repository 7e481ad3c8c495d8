package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnum/internal/core/id"
	"docnum/internal/core/numerator"
)

func testKey() numerator.Key {
	return numerator.Key{
		CompanyID:    id.MustParse("0190a4c2-0000-7000-8000-000000000001"),
		BranchID:     id.MustParse("0190a4c2-0000-7000-8000-000000000002"),
		DocumentType: numerator.DocInvoice,
	}
}

func TestSelectQuery(t *testing.T) {
	sql, args, err := selectQuery(testKey())
	require.NoError(t, err)

	assert.Contains(t, sql, "SELECT company_id, branch_id, document_type, prefix")
	assert.Contains(t, sql, "FROM doc_sequences")
	assert.Contains(t, sql, "branch_id = $1 AND company_id = $2 AND document_type = $3")
	assert.Equal(t, []any{
		"0190a4c2-0000-7000-8000-000000000002",
		"0190a4c2-0000-7000-8000-000000000001",
		"invoice",
	}, args)
}

func TestCompareAndSwapQuery(t *testing.T) {
	next := numerator.Config{Prefix: "INV-", CurrentNumber: 8, PaddingZeros: 4, ResetYearly: true, LastFiscalYearLabel: "25-26"}

	sql, args, err := compareAndSwapQuery(testKey(), 7, next)
	require.NoError(t, err)

	assert.Contains(t, sql, "UPDATE doc_sequences SET")
	assert.Contains(t, sql, "version = version + 1")
	assert.Contains(t, sql, "updated_at = now()")
	assert.Contains(t, sql, "AND version = $")
	assert.Contains(t, args, int64(8))
	assert.Contains(t, args, "25-26")
	assert.Equal(t, int64(7), args[len(args)-1])
}

func TestIncrementQuery(t *testing.T) {
	sql, args, err := incrementQuery(testKey(), "25-26")
	require.NoError(t, err)

	assert.Contains(t, sql, "current_number = current_number + 1")
	assert.Contains(t, sql, "last_fiscal_year_label = $4")
	assert.Contains(t, sql, "current_number <= $5")
	assert.Contains(t, sql, "RETURNING company_id, branch_id, document_type")
	assert.Len(t, args, 5)
	assert.Equal(t, "25-26", args[3])
	assert.Equal(t, numerator.MaxCounter, args[4])
}

func TestInsertDefaultQuery(t *testing.T) {
	seq := numerator.NewSequence(testKey(), numerator.TypeDefaults{Prefix: "INV-"}, time.Now())

	sql, args, err := insertDefaultQuery(seq)
	require.NoError(t, err)

	assert.Contains(t, sql, "INSERT INTO doc_sequences")
	assert.Contains(t, sql, "ON CONFLICT (company_id, branch_id, document_type) DO NOTHING")
	assert.Len(t, args, len(sequenceColumns))
}

func TestUpsertQuery(t *testing.T) {
	key := testKey()
	start := int64(100)

	tests := []struct {
		name         string
		edit         numerator.ConfigEdit
		wantExplicit bool
		wantCounter  int64
	}{
		{
			name:         "explicit counter",
			edit:         numerator.ConfigEdit{DocumentType: numerator.DocInvoice, Prefix: "TI-", PaddingZeros: 5, CurrentNumber: &start},
			wantExplicit: true,
			wantCounter:  100,
		},
		{
			name:         "keep counter",
			edit:         numerator.ConfigEdit{DocumentType: numerator.DocInvoice, Prefix: "TI-", PaddingZeros: 5},
			wantExplicit: false,
			wantCounter:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := upsertQuery(key.CompanyID, key.BranchID, tt.edit)
			require.NoError(t, err)

			assert.Contains(t, sql, "ON CONFLICT (company_id, branch_id, document_type) DO UPDATE SET")
			assert.Contains(t, sql, "CASE WHEN $11::boolean THEN EXCLUDED.current_number ELSE doc_sequences.current_number END")
			assert.Contains(t, sql, "RETURNING version, (xmax = 0) AS inserted")
			assert.NotContains(t, sql, "last_fiscal_year_label = EXCLUDED")
			require.Len(t, args, 11)
			assert.Equal(t, tt.wantCounter, args[5])
			assert.Equal(t, tt.wantExplicit, args[10])
		})
	}
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/docnum?sslmode=disable", migrateURL("postgres://u:p@db:5432/docnum?sslmode=disable"))
	assert.Equal(t, "pgx5://db/docnum", migrateURL("postgresql://db/docnum"))
	assert.Equal(t, "pgx5://db/docnum", migrateURL("pgx5://db/docnum"))
}
