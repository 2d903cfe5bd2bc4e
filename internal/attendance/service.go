// Package attendance records meal attendance.
package attendance

import (
	"context"
	"errors"
	"log"

	"hostelmess/internal/calendar"
	"hostelmess/internal/guard"
	"hostelmess/internal/mess"
	"hostelmess/internal/metrics"
	"hostelmess/internal/queue"
)

var (
	ErrMarkInFlight = errors.New("attendance update already in progress")
	ErrNotActive    = errors.New("attendance can only be marked for active students")
	ErrStale        = errors.New("attendance update superseded by a newer one")
)

// Store is implemented by *Repository.
type Store interface {
	ByDate(ctx context.Context, day calendar.Date) ([]mess.AttendanceRecord, error)
	ForStudent(ctx context.Context, studentID string, span calendar.Range) ([]mess.AttendanceRecord, error)
	SetMeal(ctx context.Context, studentID string, day calendar.Date, meal mess.Meal, taken bool) (mess.AttendanceRecord, error)
}

// Students looks up the student being marked.
type Students interface {
	Get(ctx context.Context, id string) (mess.Student, error)
}

// Mark is the payload of one meal update.
type Mark struct {
	StudentID string        `json:"studentId" binding:"required"`
	Date      calendar.Date `json:"date"`
	Meal      mess.Meal     `json:"meal" binding:"required"`
	Status    bool          `json:"status"`
}

// Service coordinates attendance writes. Writes for the same student and
// meal never overlap: a second one arriving while the first is in flight is
// rejected with ErrMarkInFlight.
type Service struct {
	store    Store
	students Students
	guard    guard.Guard
	events   queue.Queue
}

// NewService creates a service. events may be nil.
func NewService(store Store, students Students, g guard.Guard, events queue.Queue) *Service {
	return &Service{store: store, students: students, guard: g, events: events}
}

// ByDate returns the records of one day.
func (s *Service) ByDate(ctx context.Context, day calendar.Date) ([]mess.AttendanceRecord, error) {
	return s.store.ByDate(ctx, day)
}

// ForStudent returns the student's records within span.
func (s *Service) ForStudent(ctx context.Context, studentID string, span calendar.Range) ([]mess.AttendanceRecord, error) {
	if err := span.Validate(); err != nil {
		return nil, err
	}
	return s.store.ForStudent(ctx, studentID, span)
}

// Mark sets one meal flag for an active student.
func (s *Service) Mark(ctx context.Context, m Mark) (mess.AttendanceRecord, error) {
	if _, err := mess.ParseMeal(string(m.Meal)); err != nil {
		return mess.AttendanceRecord{}, err
	}
	if m.Date.IsZero() {
		return mess.AttendanceRecord{}, calendar.ErrInvalidDate
	}

	var rec mess.AttendanceRecord
	err := guard.Do(ctx, s.guard, guard.MealKey(m.StudentID, m.Meal), func(ctx context.Context, t guard.Ticket) error {
		st, err := s.students.Get(ctx, m.StudentID)
		if err != nil {
			return err
		}
		if st.Status != mess.StatusActive {
			return ErrNotActive
		}
		if rec, err = s.store.SetMeal(ctx, m.StudentID, m.Date, m.Meal, m.Status); err != nil {
			return err
		}
		if latest, err := s.guard.Latest(ctx, t); err == nil && !latest {
			return ErrStale
		}
		return nil
	})
	switch {
	case errors.Is(err, guard.ErrBusy):
		metrics.GuardRejections.Inc()
		return mess.AttendanceRecord{}, ErrMarkInFlight
	case err != nil:
		return mess.AttendanceRecord{}, err
	}

	metrics.MarkAttendance(string(m.Meal), m.Status)
	s.publish(ctx, m)
	return rec, nil
}

func (s *Service) publish(ctx context.Context, m Mark) {
	if s.events == nil {
		return
	}
	msg, err := queue.Encode(queue.TypeAttendanceMarked, queue.AttendanceMarked{
		StudentID: m.StudentID,
		Date:      m.Date,
		Meal:      m.Meal,
		Taken:     m.Status,
	})
	if err == nil {
		err = s.events.Publish(ctx, msg)
	}
	if err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}
