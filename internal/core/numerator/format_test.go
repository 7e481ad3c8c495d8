package numerator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnum/internal/core/apperror"
	"docnum/internal/core/fiscal"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		parts Parts
		want  string
	}{
		{
			name:  "branch prefix, padding and fiscal label",
			parts: Parts{BranchPrefix: "MUM", DocPrefix: "INV-", Counter: 1, Padding: 4, FiscalLabel: "25-26"},
			want:  "MUM-INV-0001/25-26",
		},
		{
			name:  "counter wider than padding is not truncated",
			parts: Parts{BranchPrefix: "MUM", DocPrefix: "INV-", Counter: 12345, Padding: 4},
			want:  "MUM-INV-12345",
		},
		{
			name: "explicit suffix wins over fiscal label",
			parts: Parts{
				BranchPrefix: "MUM", DocPrefix: "INV-", Counter: 7, Padding: 3,
				Suffix: "/CUSTOM", FiscalLabel: "25-26", HasExplicitSuffix: true,
			},
			want: "MUM-INV-007/CUSTOM",
		},
		{
			name:  "empty document prefix",
			parts: Parts{BranchPrefix: "DEL", Counter: 42, Padding: 5},
			want:  "DEL-00042",
		},
		{
			name:  "empty branch prefix drops separator",
			parts: Parts{DocPrefix: "PO-", Counter: 3, Padding: 2, FiscalLabel: "24-25"},
			want:  "PO-03/24-25",
		},
		{
			name:  "padding below one renders bare counter",
			parts: Parts{BranchPrefix: "B", DocPrefix: "X", Counter: 0, Padding: 0},
			want:  "B-X0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Format(tt.parts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormat_NegativeCounter(t *testing.T) {
	_, err := Format(Parts{Counter: -1, Padding: 4})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidCounter))
}

func TestFormat_Deterministic(t *testing.T) {
	p := Parts{BranchPrefix: "MUM", DocPrefix: "INV-", Counter: 1, Padding: 4, FiscalLabel: "25-26"}
	first, _ := Format(p)
	for i := 0; i < 10; i++ {
		again, _ := Format(p)
		assert.Equal(t, first, again)
	}
}

func TestConfig_Render(t *testing.T) {
	fy := fiscal.MustOf(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))

	cfg := Config{Prefix: "INV-", PaddingZeros: 4, ResetYearly: true}
	got, err := cfg.Render("MUM", 1, fy)
	require.NoError(t, err)
	assert.Equal(t, "MUM-INV-0001/25-26", got)

	cfg.ResetYearly = false
	got, err = cfg.Render("MUM", 1, fy)
	require.NoError(t, err)
	assert.Equal(t, "MUM-INV-0001", got)

	cfg.ResetYearly = true
	cfg.Suffix = "/CUSTOM"
	got, err = cfg.Render("MUM", 1, fy)
	require.NoError(t, err)
	assert.Equal(t, "MUM-INV-0001/CUSTOM", got)
}

func TestParseCounter(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		number string
		want   int64
	}{
		{name: "fiscal label", cfg: Config{Prefix: "INV-", ResetYearly: true}, number: "MUM-INV-0042/25-26", want: 42},
		{name: "explicit suffix", cfg: Config{Prefix: "INV-", Suffix: "/CUSTOM"}, number: "MUM-INV-0007/CUSTOM", want: 7},
		{name: "numeric suffix", cfg: Config{Prefix: "INV-", Suffix: "2025"}, number: "MUM-INV-00072025", want: 7},
		{name: "overflowed padding", cfg: Config{Prefix: "INV-"}, number: "MUM-INV-12345", want: 12345},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cfg.ParseCounter("MUM", tt.number)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCounter_Invalid(t *testing.T) {
	cfg := Config{Prefix: "INV-"}

	_, err := cfg.ParseCounter("MUM", "DEL-INV-0001")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = cfg.ParseCounter("MUM", "MUM-INV-/25-26")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
