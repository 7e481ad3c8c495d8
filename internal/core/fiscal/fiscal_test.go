package fiscal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docnum/internal/core/apperror"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestOf(t *testing.T) {
	tests := []struct {
		name      string
		date      time.Time
		wantStart int
		wantEnd   int
		wantLabel string
	}{
		{name: "last day of fiscal year", date: date(2025, time.March, 31), wantStart: 2024, wantEnd: 2025, wantLabel: "24-25"},
		{name: "first day of fiscal year", date: date(2025, time.April, 1), wantStart: 2025, wantEnd: 2026, wantLabel: "25-26"},
		{name: "january belongs to previous start", date: date(2026, time.January, 15), wantStart: 2025, wantEnd: 2026, wantLabel: "25-26"},
		{name: "december", date: date(2025, time.December, 31), wantStart: 2025, wantEnd: 2026, wantLabel: "25-26"},
		{name: "century boundary", date: date(2099, time.May, 1), wantStart: 2099, wantEnd: 2100, wantLabel: "99-00"},
		{name: "early years keep two digits", date: date(2005, time.June, 1), wantStart: 2005, wantEnd: 2006, wantLabel: "05-06"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, err := Of(tt.date)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, y.Start)
			assert.Equal(t, tt.wantEnd, y.End)
			assert.Equal(t, tt.wantLabel, y.Label)
			assert.False(t, tt.date.Before(y.Begins(time.UTC)))
			assert.False(t, tt.date.After(y.Ends(time.UTC)))
		})
	}
}

func TestOf_ZeroDate(t *testing.T) {
	_, err := Of(time.Time{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidDate))
}

func TestYear_Boundaries(t *testing.T) {
	y := MustOf(date(2025, time.July, 1))

	assert.Equal(t, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), y.Begins(time.UTC))
	assert.Equal(t, time.Date(2026, time.March, 31, 23, 59, 59, 999999999, time.UTC), y.Ends(time.UTC))

	next := MustOf(date(2026, time.April, 1))
	assert.Equal(t, "26-27", next.Label)
	assert.True(t, y.Before(next))
	assert.False(t, next.Before(y))
}

func TestParseLabel(t *testing.T) {
	y, err := ParseLabel("24-25", 2025)
	require.NoError(t, err)
	assert.Equal(t, 2024, y.Start)

	y, err = ParseLabel("99-00", 2100)
	require.NoError(t, err)
	assert.Equal(t, 2099, y.Start)

	y, err = ParseLabel("00-01", 2099)
	require.NoError(t, err)
	assert.Equal(t, 2100, y.Start)

	for _, bad := range []string{"", "2425", "24-26", "a4-25", "124-25"} {
		_, err := ParseLabel(bad, 2025)
		assert.Error(t, err, bad)
	}
}
