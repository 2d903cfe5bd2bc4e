package mess

import (
	"fmt"
	"strings"

	"hostelmess/internal/calendar"
)

// Status is a student's lifecycle status, set by admin action.
type Status string

const (
	StatusActive     Status = "Active"
	StatusOnLeave    Status = "OnLeave"
	StatusTerminated Status = "Terminated"
)

// ParseStatus accepts the wire spelling of a status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusOnLeave, StatusTerminated:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Student is a mess subscriber. LeaveStartDate/LeaveEndDate are only
// meaningful while Status is OnLeave.
type Student struct {
	ID             string        `json:"_id"`
	Name           string        `json:"name"`
	RollNumber     string        `json:"rollNumber"`
	Email          string        `json:"email,omitempty"`
	MessStartDate  calendar.Date `json:"messStartDate"`
	MessEndDate    calendar.Date `json:"messEndDate"`
	Status         Status        `json:"status"`
	LeaveStartDate calendar.Date `json:"leaveStartDate"`
	LeaveEndDate   calendar.Date `json:"leaveEndDate"`
}

// Subscription returns the mess window. It fails when a bound is missing
// or the window is inverted.
func (s Student) Subscription() (calendar.Range, error) {
	if s.MessStartDate.IsZero() || s.MessEndDate.IsZero() {
		return calendar.Range{}, fmt.Errorf("student %s: %w", s.ID, ErrMissingSubscriptionWindow)
	}
	r := calendar.Range{Start: s.MessStartDate, End: s.MessEndDate}
	if r.End.Before(r.Start) {
		return calendar.Range{}, fmt.Errorf("student %s subscription %s: %w", s.ID, r, ErrInvalidDateRange)
	}
	return r, nil
}

// CurrentLeave returns the leave window when the student is on leave.
func (s Student) CurrentLeave() (LeavePeriod, bool) {
	if s.Status != StatusOnLeave || s.LeaveStartDate.IsZero() || s.LeaveEndDate.IsZero() {
		return LeavePeriod{}, false
	}
	return LeavePeriod{Start: s.LeaveStartDate, End: s.LeaveEndDate}, true
}

// Validate checks the data-model invariants of a student record.
func (s Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" || strings.TrimSpace(s.RollNumber) == "" {
		return ErrNameRequired
	}
	if _, err := ParseStatus(string(s.Status)); err != nil {
		return err
	}
	if _, err := s.Subscription(); err != nil {
		return err
	}
	if s.Status == StatusOnLeave {
		if err := (LeavePeriod{Start: s.LeaveStartDate, End: s.LeaveEndDate}).Validate(); err != nil {
			return fmt.Errorf("student %s: %w", s.ID, err)
		}
	}
	return nil
}

// LeavePeriod is a span of days during which no meals are allotted.
type LeavePeriod struct {
	Start calendar.Date `json:"leaveStartDate"`
	End   calendar.Date `json:"leaveEndDate"`
}

// Validate fails with ErrInvalidDateRange when the period is inverted and
// ErrMissingLeaveDates when a bound is absent.
func (p LeavePeriod) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return ErrMissingLeaveDates
	}
	if p.End.Before(p.Start) {
		return fmt.Errorf("leave %s..%s: %w", p.Start, p.End, ErrInvalidDateRange)
	}
	return nil
}

// Contains reports whether d is a leave day.
func (p LeavePeriod) Contains(d calendar.Date) bool {
	return calendar.Range{Start: p.Start, End: p.End}.Contains(d)
}

// Meal names one of the two daily meal slots.
type Meal string

const (
	MealMorning Meal = "morning"
	MealEvening Meal = "evening"
)

// ParseMeal accepts "morning" or "evening".
func ParseMeal(s string) (Meal, error) {
	switch Meal(s) {
	case MealMorning, MealEvening:
		return Meal(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMeal, s)
}

// AttendanceRecord holds one student's meal flags for one day.
type AttendanceRecord struct {
	StudentID string        `json:"student"`
	Date      calendar.Date `json:"date"`
	Morning   bool          `json:"morning"`
	Evening   bool          `json:"evening"`
}

// Took reports whether the record marks meal as taken.
func (r AttendanceRecord) Took(m Meal) bool {
	if m == MealMorning {
		return r.Morning
	}
	return r.Evening
}

// With returns the record with meal set to taken.
func (r AttendanceRecord) With(m Meal, taken bool) AttendanceRecord {
	if m == MealMorning {
		r.Morning = taken
	} else {
		r.Evening = taken
	}
	return r
}
