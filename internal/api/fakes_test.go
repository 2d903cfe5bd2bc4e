package api

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hostelmess/internal/account"
	"hostelmess/internal/calendar"
	"hostelmess/internal/issue"
	"hostelmess/internal/mess"
	"hostelmess/internal/student"
)

// world is an in-memory backing for every store the services need.
type world struct {
	mu       sync.Mutex
	students map[string]mess.Student
	hashes   map[string]string
	leaves   map[string][]mess.LeavePeriod
	admins   map[string]account.Admin
	adminPw  map[string]string
	records  map[mess.IndexKey]mess.AttendanceRecord
	issues   []issue.Issue
}

func newWorld() *world {
	return &world{
		students: map[string]mess.Student{},
		hashes:   map[string]string{},
		leaves:   map[string][]mess.LeavePeriod{},
		admins:   map[string]account.Admin{},
		adminPw:  map[string]string{},
		records:  map[mess.IndexKey]mess.AttendanceRecord{},
	}
}

type studentStore struct{ *world }

func (w studentStore) sorted() []mess.Student {
	out := make([]mess.Student, 0, len(w.students))
	for _, s := range w.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name) })
	return out
}

func (w studentStore) Create(_ context.Context, s mess.Student, hash string) (mess.Student, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, o := range w.students {
		if o.RollNumber == s.RollNumber || (s.Email != "" && o.Email == s.Email) {
			return mess.Student{}, student.ErrDuplicate
		}
	}
	s.ID = uuid.NewString()
	w.students[s.ID] = s
	w.hashes[s.ID] = hash
	return s, nil
}

func (w studentStore) Get(_ context.Context, id string) (mess.Student, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.students[id]
	if !ok {
		return mess.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (w studentStore) Credentials(_ context.Context, email string) (mess.Student, string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, s := range w.students {
		if s.Email == email {
			return s, w.hashes[id], nil
		}
	}
	return mess.Student{}, "", student.ErrNotFound
}

func (w studentStore) List(_ context.Context, q student.Query) ([]mess.Student, int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	all := mess.Search(w.sorted(), q.Search)
	from := min((q.Page-1)*q.Limit, len(all))
	to := min(from+q.Limit, len(all))
	return all[from:to], len(all), nil
}

func (w studentStore) All(_ context.Context) ([]mess.Student, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sorted(), nil
}

func (w studentStore) ByStatus(_ context.Context, status mess.Status) ([]mess.Student, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []mess.Student
	for _, s := range w.sorted() {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func (w studentStore) LeaveEndedBefore(_ context.Context, day calendar.Date) ([]mess.Student, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []mess.Student
	for _, s := range w.sorted() {
		if s.Status == mess.StatusOnLeave && s.LeaveEndDate.Before(day) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (w studentStore) Update(_ context.Context, s mess.Student) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.students[s.ID]; !ok {
		return student.ErrNotFound
	}
	w.students[s.ID] = s
	return nil
}

func (w studentStore) AddLeave(_ context.Context, id string, p mess.LeavePeriod) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.leaves[id] = append(w.leaves[id], p)
	return nil
}

func (w studentStore) CloseLeave(_ context.Context, id string, leaveStart, lastDay calendar.Date) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var kept []mess.LeavePeriod
	for _, p := range w.leaves[id] {
		if p.Start.Equal(leaveStart) {
			if p.Start.After(lastDay) {
				continue
			}
			if p.End.After(lastDay) {
				p.End = lastDay
			}
		}
		kept = append(kept, p)
	}
	w.leaves[id] = kept
	return nil
}

func (w studentStore) Leaves(_ context.Context, id string) ([]mess.LeavePeriod, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.leaves[id], nil
}

type adminStore struct{ *world }

func (w adminStore) CreateIfAbsent(_ context.Context, username, hash string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, a := range w.admins {
		if a.Username == username {
			return false, nil
		}
	}
	a := account.Admin{ID: uuid.NewString(), Username: username}
	w.admins[a.ID] = a
	w.adminPw[a.ID] = hash
	return true, nil
}

func (w adminStore) ByUsername(_ context.Context, username string) (account.Admin, string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, a := range w.admins {
		if a.Username == username {
			return a, w.adminPw[id], nil
		}
	}
	return account.Admin{}, "", account.ErrNotFound
}

func (w adminStore) ByID(_ context.Context, id string) (account.Admin, string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	a, ok := w.admins[id]
	if !ok {
		return account.Admin{}, "", account.ErrNotFound
	}
	return a, w.adminPw[id], nil
}

func (w adminStore) SetPassword(_ context.Context, id, hash string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.adminPw[id] = hash
	return nil
}

type attendanceStore struct{ *world }

func (w attendanceStore) ByDate(_ context.Context, day calendar.Date) ([]mess.AttendanceRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []mess.AttendanceRecord
	for k, r := range w.records {
		if k.Date.Equal(day) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (w attendanceStore) ForStudent(_ context.Context, id string, span calendar.Range) ([]mess.AttendanceRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []mess.AttendanceRecord
	for k, r := range w.records {
		if k.StudentID == id && span.Contains(k.Date) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (w attendanceStore) SetMeal(_ context.Context, id string, day calendar.Date, meal mess.Meal, taken bool) (mess.AttendanceRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	k := mess.IndexKey{StudentID: id, Date: day}
	rec, ok := w.records[k]
	if !ok {
		rec = mess.AttendanceRecord{StudentID: id, Date: day}
	}
	rec = rec.With(meal, taken)
	w.records[k] = rec
	return rec, nil
}

type issueStore struct{ *world }

func (w issueStore) Create(_ context.Context, title, description string) (issue.Issue, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	is := issue.Issue{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Status:      issue.StatusOpen,
		CreatedAt:   time.Date(2024, time.January, 1, 0, len(w.issues), 0, 0, time.UTC),
	}
	w.issues = append([]issue.Issue{is}, w.issues...)
	return is, nil
}

func (w issueStore) List(_ context.Context) ([]issue.Issue, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]issue.Issue{}, w.issues...), nil
}

func (w issueStore) Resolve(_ context.Context, id string, at time.Time) (issue.Issue, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, is := range w.issues {
		if is.ID != id {
			continue
		}
		if is.Status == issue.StatusResolved {
			return issue.Issue{}, issue.ErrAlreadyResolved
		}
		is.Status = issue.StatusResolved
		is.ResolvedAt = &at
		w.issues[i] = is
		return is, nil
	}
	return issue.Issue{}, issue.ErrNotFound
}
