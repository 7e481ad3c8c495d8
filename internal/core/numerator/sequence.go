package numerator

import (
	"time"

	"docnum/internal/core/fiscal"
)

// MaxCounter is the largest counter a sequence may issue. Keep it in sync with the
// max rule on ConfigEdit.CurrentNumber.
const MaxCounter int64 = 999_999_999_999

// Config holds the numbering configuration of one sequence.
type Config struct {
	// Prefix is printed before the counter, e.g. "INV-". May be empty.
	Prefix string `db:"prefix" json:"prefix"`

	// Suffix replaces the automatic fiscal-year label when set.
	Suffix string `db:"suffix" json:"suffix"`

	// CurrentNumber is the next value to issue, in [1, MaxCounter].
	CurrentNumber int64 `db:"current_number" json:"current_number"`

	// PaddingZeros is the minimum counter width, in [1,5].
	PaddingZeros int `db:"padding_zeros" json:"padding_zeros"`

	// ResetYearly restarts the counter at 1 when a new fiscal year begins
	// and appends the fiscal-year label when no explicit suffix is set.
	ResetYearly bool `db:"reset_yearly" json:"reset_yearly"`

	// LastFiscalYearLabel is the fiscal year of the last allocation; empty until
	// the first number is issued.
	LastFiscalYearLabel string `db:"last_fiscal_year_label" json:"last_fiscal_year_label"`
}

// HasExplicitSuffix reports whether Suffix overrides the fiscal-year label.
func (c Config) HasExplicitSuffix() bool {
	return c.Suffix != ""
}

// Render formats counter using this configuration.
func (c Config) Render(branchPrefix string, counter int64, fy fiscal.Year) (string, error) {
	label := ""
	if c.ResetYearly {
		label = fy.Label
	}
	return Format(Parts{
		BranchPrefix:      branchPrefix,
		DocPrefix:         c.Prefix,
		Counter:           counter,
		Padding:           c.PaddingZeros,
		Suffix:            c.Suffix,
		FiscalLabel:       label,
		HasExplicitSuffix: c.HasExplicitSuffix(),
	})
}

// ParseCounter extracts the counter from a number rendered with this configuration.
func (c Config) ParseCounter(branchPrefix, number string) (int64, error) {
	return ParseCounter(number, Parts{
		BranchPrefix:      branchPrefix,
		DocPrefix:         c.Prefix,
		Suffix:            c.Suffix,
		HasExplicitSuffix: c.HasExplicitSuffix(),
	})
}

// Sequence is the stored record of one counter stream.
type Sequence struct {
	Key
	Config

	// Version is bumped by every write; compare-and-swap checks it.
	Version int64 `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// NewSequence builds the first-use record for key from defaults.
func NewSequence(key Key, defaults TypeDefaults, now time.Time) *Sequence {
	padding := defaults.PaddingZeros
	if padding == 0 {
		padding = DefaultPadding
	}
	return &Sequence{
		Key: key,
		Config: Config{
			Prefix:        defaults.Prefix,
			CurrentNumber: 1,
			PaddingZeros:  padding,
			ResetYearly:   true,
		},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a copy safe to hand out of a store.
func (s *Sequence) Clone() *Sequence {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// ConfigEdit is one administrative change to a branch's configuration.
type ConfigEdit struct {
	DocumentType DocumentType `json:"document_type" validate:"required,doctype"`
	Prefix       string       `json:"prefix" validate:"max=20"`
	Suffix       string       `json:"suffix" validate:"max=20"`
	// CurrentNumber, when set, overwrites the next number to issue. Nil keeps the
	// stored counter, or 1 for a sequence created by this edit.
	CurrentNumber *int64 `json:"current_number,omitempty" validate:"omitempty,min=1,max=999999999999"`
	PaddingZeros  int    `json:"padding_zeros" validate:"min=1,max=5"`
	ResetYearly   bool   `json:"reset_yearly"`
}

// Apply merges the edit into cfg. The fiscal-year label is never touched.
func (e ConfigEdit) Apply(cfg Config) Config {
	cfg.Prefix = e.Prefix
	cfg.Suffix = e.Suffix
	cfg.PaddingZeros = e.PaddingZeros
	cfg.ResetYearly = e.ResetYearly
	if e.CurrentNumber != nil {
		cfg.CurrentNumber = *e.CurrentNumber
	}
	if cfg.CurrentNumber < 1 {
		cfg.CurrentNumber = 1
	}
	return cfg
}

// UpsertResult reports what a bulk save did with one edit.
type UpsertResult struct {
	DocumentType DocumentType `json:"document_type"`
	Created      bool         `json:"created"`
	Version      int64        `json:"version"`
}
