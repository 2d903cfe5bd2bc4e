package mess

import (
	"fmt"

	"hostelmess/internal/calendar"
)

// MealsPerDay is the number of meal slots allotted per eligible day.
const MealsPerDay = 2

// Ledger is the allotted/consumed/remaining summary for one student, counted
// in meal slots. EligibleDays is the day count behind TotalAllotted.
type Ledger struct {
	EligibleDays    int `json:"eligibleDays"`
	TotalAllotted   int `json:"totalAllotted"`
	TotalConsumed   int `json:"totalConsumed"`
	ConsumedMorning int `json:"consumedMorning"`
	ConsumedEvening int `json:"consumedEvening"`
	Remaining       int `json:"remaining"`
}

// ComputeLedger derives a student's ledger as of asOf.
//
// Days count from MessStartDate to the earlier of MessEndDate and asOf,
// minus days inside the current leave window and any past leave periods.
// Only records dated on an eligible day are counted as consumed. Remaining
// is not clamped and goes negative on over-consumption. Terminated students
// get an empty ledger.
func ComputeLedger(s Student, records []AttendanceRecord, asOf calendar.Date, pastLeaves ...LeavePeriod) (Ledger, error) {
	window, err := s.Subscription()
	if err != nil {
		return Ledger{}, err
	}
	if s.Status == StatusTerminated {
		return Ledger{}, nil
	}

	leaves := make([]LeavePeriod, 0, len(pastLeaves)+1)
	for _, p := range pastLeaves {
		if err := p.Validate(); err != nil {
			return Ledger{}, fmt.Errorf("student %s: %w", s.ID, err)
		}
		leaves = append(leaves, p)
	}
	if cur, ok := s.CurrentLeave(); ok {
		if err := cur.Validate(); err != nil {
			return Ledger{}, fmt.Errorf("student %s: %w", s.ID, err)
		}
		leaves = append(leaves, cur)
	}

	span := window.ClampEnd(asOf)
	eligible := func(d calendar.Date) bool {
		if !span.Contains(d) {
			return false
		}
		for _, p := range leaves {
			if p.Contains(d) {
				return false
			}
		}
		return true
	}

	var l Ledger
	span.Each(func(d calendar.Date) {
		if eligible(d) {
			l.EligibleDays++
		}
	})
	l.TotalAllotted = MealsPerDay * l.EligibleDays

	for _, r := range records {
		if s.ID != "" && r.StudentID != "" && r.StudentID != s.ID {
			continue
		}
		if !eligible(r.Date) {
			continue
		}
		if r.Morning {
			l.ConsumedMorning++
		}
		if r.Evening {
			l.ConsumedEvening++
		}
	}
	l.TotalConsumed = l.ConsumedMorning + l.ConsumedEvening
	l.Remaining = l.TotalAllotted - l.TotalConsumed
	return l, nil
}
