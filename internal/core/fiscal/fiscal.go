// Package fiscal computes the April–March fiscal year used for document numbering.
package fiscal

import (
	"fmt"
	"time"

	"docnum/internal/core/apperror"
)

// StartMonth is the first month of a fiscal year.
const StartMonth = time.April

// Year is one fiscal year window, April 1 of Start through March 31 of End.
type Year struct {
	Start int
	End   int
	// Label is the short form printed on documents, e.g. "25-26".
	Label string
}

// Of returns the fiscal year containing date. The zero time is rejected.
func Of(date time.Time) (Year, error) {
	if date.IsZero() {
		return Year{}, apperror.NewInvalidDate("date is not set")
	}

	start := date.Year()
	if date.Month() < StartMonth {
		start--
	}
	return newYear(start), nil
}

// MustOf is Of for dates known to be valid. Use only in tests and constants.
func MustOf(date time.Time) Year {
	y, err := Of(date)
	if err != nil {
		panic(err)
	}
	return y
}

func newYear(start int) Year {
	return Year{
		Start: start,
		End:   start + 1,
		Label: fmt.Sprintf("%02d-%02d", lastTwo(start), lastTwo(start+1)),
	}
}

func lastTwo(year int) int {
	v := year % 100
	if v < 0 {
		v += 100
	}
	return v
}

// Begins returns April 1 of the start year in loc.
func (y Year) Begins(loc *time.Location) time.Time {
	return time.Date(y.Start, StartMonth, 1, 0, 0, 0, 0, loc)
}

// Ends returns the last instant of March 31 of the end year in loc.
func (y Year) Ends(loc *time.Location) time.Time {
	return time.Date(y.End, StartMonth, 1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
}

// Before reports whether y starts earlier than other.
func (y Year) Before(other Year) bool {
	return y.Start < other.Start
}

// String implements fmt.Stringer.
func (y Year) String() string {
	return y.Label
}

// ParseLabel resolves a short label such as "24-25" to a Year. Labels only carry two
// digits, so the century is chosen to put the start year closest to near.
func ParseLabel(label string, near int) (Year, error) {
	var s, e int
	if n, err := fmt.Sscanf(label, "%2d-%2d", &s, &e); err != nil || n != 2 || len(label) != 5 {
		return Year{}, fmt.Errorf("fiscal: malformed label %q", label)
	}
	if (s+1)%100 != e {
		return Year{}, fmt.Errorf("fiscal: label %q does not span consecutive years", label)
	}

	start := near - lastTwo(near) + s
	switch {
	case start-near > 50:
		start -= 100
	case near-start > 50:
		start += 100
	}
	return newYear(start), nil
}
