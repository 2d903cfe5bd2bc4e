package mess

import (
	"errors"

	"hostelmess/internal/calendar"
)

var (
	// ErrMissingSubscriptionWindow means a student has no usable mess start
	// or end date, so no ledger can be derived.
	ErrMissingSubscriptionWindow = errors.New("missing subscription window")
	// ErrInvalidDateRange means a window ends before it starts.
	ErrInvalidDateRange = calendar.ErrInvalidDateRange
	// ErrDuplicateAttendanceRecord means two records share a student and date.
	ErrDuplicateAttendanceRecord = errors.New("duplicate attendance record")

	ErrMissingLeaveDates = errors.New("both leave start and end dates are required")
	ErrUnknownStatus     = errors.New("unknown student status")
	ErrUnknownMeal       = errors.New("unknown meal")
	ErrUnknownFilter     = errors.New("unknown filter")
	ErrNameRequired      = errors.New("name and roll number are required")
)
