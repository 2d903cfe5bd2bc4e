package student

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hostelmess/internal/auth"
	"hostelmess/internal/calendar"
	"hostelmess/internal/mess"
)

var (
	ErrNotFound   = errors.New("student not found")
	ErrDuplicate  = errors.New("a student with this roll number or email already exists")
	ErrTerminated = errors.New("student is terminated; reactivate with a new subscription window")
	ErrNoChange   = errors.New("student already has this status")

	ErrEmailRequired = errors.New("email is required when setting a password")
)

const (
	DefaultLimit = 20
	MaxLimit     = 1000
)

// Store is the persistence the service needs; *Repository implements it.
type Store interface {
	Create(ctx context.Context, s mess.Student, passwordHash string) (mess.Student, error)
	Get(ctx context.Context, id string) (mess.Student, error)
	List(ctx context.Context, q Query) ([]mess.Student, int, error)
	All(ctx context.Context) ([]mess.Student, error)
	ByStatus(ctx context.Context, status mess.Status) ([]mess.Student, error)
	LeaveEndedBefore(ctx context.Context, day calendar.Date) ([]mess.Student, error)
	Update(ctx context.Context, s mess.Student) error
	AddLeave(ctx context.Context, studentID string, p mess.LeavePeriod) error
	CloseLeave(ctx context.Context, studentID string, leaveStart, lastDay calendar.Date) error
	Leaves(ctx context.Context, studentID string) ([]mess.LeavePeriod, error)
}

// Query selects one page of the roster.
type Query struct {
	Page   int
	Limit  int
	Search string
}

func (q Query) normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Page is one page of a roster listing.
type Page struct {
	Students    []mess.Student `json:"students"`
	CurrentPage int            `json:"currentPage"`
	TotalPages  int            `json:"totalPages"`
	Total       int            `json:"total"`
}

// NewStudent is the registration payload.
type NewStudent struct {
	Name          string        `json:"name" binding:"required"`
	RollNumber    string        `json:"rollNumber" binding:"required"`
	MessStartDate calendar.Date `json:"messStartDate"`
	MessEndDate   calendar.Date `json:"messEndDate"`
	Email         string        `json:"email"`
	Password      string        `json:"password"`
}

// StatusChange is the payload of a status update.
type StatusChange struct {
	Status         mess.Status   `json:"status" binding:"required"`
	LeaveStartDate calendar.Date `json:"leaveStartDate"`
	LeaveEndDate   calendar.Date `json:"leaveEndDate"`
}

// Service applies roster mutations and their lifecycle rules.
type Service struct {
	store Store
	now   func() time.Time
	loc   *time.Location
}

// NewService creates a service. loc is the zone in which "today" is taken.
func NewService(store Store, now func() time.Time, loc *time.Location) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now, loc: loc}
}

// Today returns the current mess day.
func (s *Service) Today() calendar.Date {
	return calendar.Today(s.now, s.loc)
}

// Register validates and stores a new Active student.
func (s *Service) Register(ctx context.Context, ns NewStudent) (mess.Student, error) {
	st := mess.Student{
		Name:          strings.TrimSpace(ns.Name),
		RollNumber:    strings.TrimSpace(ns.RollNumber),
		Email:         strings.ToLower(strings.TrimSpace(ns.Email)),
		MessStartDate: ns.MessStartDate,
		MessEndDate:   ns.MessEndDate,
		Status:        mess.StatusActive,
	}
	if err := st.Validate(); err != nil {
		return mess.Student{}, err
	}
	var hash string
	if ns.Password != "" {
		if st.Email == "" {
			return mess.Student{}, ErrEmailRequired
		}
		var err error
		if hash, err = auth.HashPassword(ns.Password); err != nil {
			return mess.Student{}, err
		}
	}
	return s.store.Create(ctx, st, hash)
}

// Get returns one student.
func (s *Service) Get(ctx context.Context, id string) (mess.Student, error) {
	return s.store.Get(ctx, id)
}

// List returns one page of the roster.
func (s *Service) List(ctx context.Context, q Query) (Page, error) {
	q = q.normalize()
	students, total, err := s.store.List(ctx, q)
	if err != nil {
		return Page{}, err
	}
	pages := (total + q.Limit - 1) / q.Limit
	if pages < 1 {
		pages = 1
	}
	if students == nil {
		students = []mess.Student{}
	}
	return Page{Students: students, CurrentPage: q.Page, TotalPages: pages, Total: total}, nil
}

// Filtered applies a roster view over every student.
func (s *Service) Filtered(ctx context.Context, tag mess.FilterTag, search string) ([]mess.Student, map[mess.FilterTag]int, error) {
	all, err := s.store.All(ctx)
	if err != nil {
		return nil, nil, err
	}
	today := s.Today()
	return mess.Filter(all, tag, search, today), mess.Tally(mess.Search(all, search), today), nil
}

// Leaves returns the student's leave history.
func (s *Service) Leaves(ctx context.Context, id string) ([]mess.LeavePeriod, error) {
	return s.store.Leaves(ctx, id)
}

// ByStatus returns all students with status.
func (s *Service) ByStatus(ctx context.Context, status mess.Status) ([]mess.Student, error) {
	return s.store.ByStatus(ctx, status)
}

// SetStatus moves a student between Active, OnLeave and Terminated.
// Terminated students can only come back through Reactivate.
func (s *Service) SetStatus(ctx context.Context, id string, ch StatusChange) (mess.Student, error) {
	if _, err := mess.ParseStatus(string(ch.Status)); err != nil {
		return mess.Student{}, err
	}
	st, err := s.store.Get(ctx, id)
	if err != nil {
		return mess.Student{}, err
	}
	if st.Status == mess.StatusTerminated {
		return mess.Student{}, ErrTerminated
	}

	switch ch.Status {
	case mess.StatusOnLeave:
		leave := mess.LeavePeriod{Start: ch.LeaveStartDate, End: ch.LeaveEndDate}
		if err := leave.Validate(); err != nil {
			return mess.Student{}, err
		}
		if st.Status == mess.StatusOnLeave {
			if err := s.store.CloseLeave(ctx, st.ID, st.LeaveStartDate, leave.Start.AddDays(-1)); err != nil {
				return mess.Student{}, err
			}
		}
		st.Status = mess.StatusOnLeave
		st.LeaveStartDate, st.LeaveEndDate = leave.Start, leave.End
		if err := s.store.Update(ctx, st); err != nil {
			return mess.Student{}, err
		}
		if err := s.store.AddLeave(ctx, st.ID, leave); err != nil {
			return mess.Student{}, err
		}
		return st, nil

	case mess.StatusActive:
		if st.Status == mess.StatusActive {
			return mess.Student{}, ErrNoChange
		}
		return st, s.endLeave(ctx, &st, s.Today())

	default: // Terminated
		if st.Status == mess.StatusOnLeave {
			if err := s.store.CloseLeave(ctx, st.ID, st.LeaveStartDate, s.Today().AddDays(-1)); err != nil {
				return mess.Student{}, err
			}
		}
		st.Status = mess.StatusTerminated
		st.LeaveStartDate, st.LeaveEndDate = calendar.Date{}, calendar.Date{}
		return st, s.store.Update(ctx, st)
	}
}

// endLeave returns an OnLeave student to Active as of back. The current leave
// period is shortened so that days from back onwards are allotted again.
func (s *Service) endLeave(ctx context.Context, st *mess.Student, back calendar.Date) error {
	if err := s.store.CloseLeave(ctx, st.ID, st.LeaveStartDate, back.AddDays(-1)); err != nil {
		return err
	}
	st.Status = mess.StatusActive
	st.LeaveStartDate, st.LeaveEndDate = calendar.Date{}, calendar.Date{}
	return s.store.Update(ctx, *st)
}

// Renew moves the subscription end date.
func (s *Service) Renew(ctx context.Context, id string, newEnd calendar.Date) (mess.Student, error) {
	st, err := s.store.Get(ctx, id)
	if err != nil {
		return mess.Student{}, err
	}
	if st.Status == mess.StatusTerminated {
		return mess.Student{}, ErrTerminated
	}
	if newEnd.IsZero() {
		return mess.Student{}, fmt.Errorf("new end date: %w", mess.ErrMissingSubscriptionWindow)
	}
	if newEnd.Before(st.MessStartDate) {
		return mess.Student{}, fmt.Errorf("renew to %s: %w", newEnd, mess.ErrInvalidDateRange)
	}
	st.MessEndDate = newEnd
	return st, s.store.Update(ctx, st)
}

// Reactivate sets a student Active with a fresh subscription window.
func (s *Service) Reactivate(ctx context.Context, id string, window calendar.Range) (mess.Student, error) {
	if window.Start.IsZero() || window.End.IsZero() {
		return mess.Student{}, mess.ErrMissingSubscriptionWindow
	}
	if err := window.Validate(); err != nil {
		return mess.Student{}, err
	}
	st, err := s.store.Get(ctx, id)
	if err != nil {
		return mess.Student{}, err
	}
	if st.Status == mess.StatusOnLeave {
		if err := s.store.CloseLeave(ctx, st.ID, st.LeaveStartDate, window.Start.AddDays(-1)); err != nil {
			return mess.Student{}, err
		}
	}
	st.Status = mess.StatusActive
	st.MessStartDate, st.MessEndDate = window.Start, window.End
	st.LeaveStartDate, st.LeaveEndDate = calendar.Date{}, calendar.Date{}
	return st, s.store.Update(ctx, st)
}

// ReturnFromLeave moves every student whose leave ended before today back
// to Active and returns how many were moved.
func (s *Service) ReturnFromLeave(ctx context.Context) (int, error) {
	today := s.Today()
	due, err := s.store.LeaveEndedBefore(ctx, today)
	if err != nil {
		return 0, err
	}
	moved := 0
	for i := range due {
		st := due[i]
		if err := s.endLeave(ctx, &st, st.LeaveEndDate.AddDays(1)); err != nil {
			return moved, fmt.Errorf("returning %s from leave: %w", st.ID, err)
		}
		moved++
	}
	return moved, nil
}
