package numerator

import (
	"fmt"
	"strconv"
	"strings"

	"docnum/internal/core/apperror"
)

// Parts are the inputs of a rendered document number.
type Parts struct {
	BranchPrefix string
	DocPrefix    string
	Counter      int64
	Padding      int
	Suffix       string
	// FiscalLabel is appended as "/label" unless an explicit suffix is present.
	// Callers leave it empty for sequences that do not reset yearly.
	FiscalLabel       string
	HasExplicitSuffix bool
}

// Format renders a document number: BRANCH-PREFIX0001/25-26.
// The counter is zero-padded to at least Padding digits and never truncated.
func Format(p Parts) (string, error) {
	if p.Counter < 0 {
		return "", apperror.NewInvalidCounter(p.Counter)
	}

	padding := p.Padding
	if padding < 1 {
		padding = 1
	}

	var b strings.Builder
	if p.BranchPrefix != "" {
		b.WriteString(p.BranchPrefix)
		b.WriteByte('-')
	}
	b.WriteString(p.DocPrefix)
	fmt.Fprintf(&b, "%0*d", padding, p.Counter)

	switch {
	case p.HasExplicitSuffix:
		b.WriteString(p.Suffix)
	case p.FiscalLabel != "":
		b.WriteByte('/')
		b.WriteString(p.FiscalLabel)
	}
	return b.String(), nil
}

// ParseCounter recovers the counter of a number rendered with p's prefixes and suffix.
// Counter, Padding and FiscalLabel of p are ignored.
func ParseCounter(number string, p Parts) (int64, error) {
	head := p.DocPrefix
	if p.BranchPrefix != "" {
		head = p.BranchPrefix + "-" + p.DocPrefix
	}
	rest, ok := strings.CutPrefix(number, head)
	if !ok {
		return 0, apperror.NewValidation("number does not match sequence prefix").
			WithDetail("number", number).
			WithDetail("prefix", head)
	}
	if p.HasExplicitSuffix {
		rest = strings.TrimSuffix(rest, p.Suffix)
	}

	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, apperror.NewValidation("number has no counter").WithDetail("number", number)
	}

	v, err := strconv.ParseInt(rest[:end], 10, 64)
	if err != nil {
		return 0, apperror.NewValidation("counter out of range").WithDetail("number", number)
	}
	return v, nil
}
