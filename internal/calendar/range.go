package calendar

import (
	"fmt"
	"time"
)

// Range is an inclusive span of calendar days.
type Range struct {
	Start Date `json:"startDate"`
	End   Date `json:"endDate"`
}

// NewRange builds a range and validates it.
func NewRange(start, end Date) (Range, error) {
	r := Range{Start: start, End: end}
	return r, r.Validate()
}

// Validate fails when either bound is missing or End is before Start.
func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: both bounds required", ErrInvalidDate)
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("%w: %s..%s", ErrInvalidDateRange, r.Start, r.End)
	}
	return nil
}

// Contains reports whether d lies in the range, bounds included.
func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days counts the days in the range; an inverted range has none.
func (r Range) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return r.Start.DaysUntil(r.End) + 1
}

// Empty reports whether the range holds no day.
func (r Range) Empty() bool { return r.Days() == 0 }

// ClampEnd returns the range with its end moved back to limit when later.
// The result may be empty.
func (r Range) ClampEnd(limit Date) Range {
	return Range{Start: r.Start, End: Min(r.End, limit)}
}

// Each calls fn for every day of the range in order.
func (r Range) Each(fn func(Date)) {
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		fn(d)
	}
}

func (r Range) String() string { return r.Start.String() + ".." + r.End.String() }

// ParseMonth reads YYYY-MM and returns that month as a range.
func ParseMonth(s string) (Range, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Range{}, fmt.Errorf("%w: month %q", ErrInvalidDate, s)
	}
	start := New(t.Year(), t.Month(), 1)
	return Range{Start: start, End: New(t.Year(), t.Month()+1, 0)}, nil
}

// MonthOf renders d's month as YYYY-MM.
func MonthOf(d Date) string { return d.t.Format(monthLayout) }
