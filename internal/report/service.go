// Package report derives meal summaries and ledgers from attendance.
package report

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"hostelmess/internal/calendar"
	"hostelmess/internal/mess"
	"hostelmess/internal/metrics"
)

const dailyKeyPrefix = "mess:report:daily:"

// DailySummary counts the meals taken on one day.
type DailySummary struct {
	Date                calendar.Date `json:"date"`
	MorningMeals        int           `json:"morningMeals"`
	EveningMeals        int           `json:"eveningMeals"`
	TotalMeals          int           `json:"totalMeals"`
	TotalActiveStudents int           `json:"totalActiveStudents"`
}

// MonthlySummary counts one student's meals in a month.
type MonthlySummary struct {
	StudentID    string `json:"studentId"`
	Month        string `json:"month"`
	MorningMeals int    `json:"morningMeals"`
	EveningMeals int    `json:"eveningMeals"`
	TotalMeals   int    `json:"totalMeals"`
}

// StudentLedger is a student with their subscription state and ledger.
type StudentLedger struct {
	Student      mess.Student          `json:"student"`
	Subscription mess.SubscriptionInfo `json:"subscription"`
	Ledger       mess.Ledger           `json:"ledger"`
}

// Attendance reads attendance records.
type Attendance interface {
	ByDate(ctx context.Context, day calendar.Date) ([]mess.AttendanceRecord, error)
	ForStudent(ctx context.Context, studentID string, span calendar.Range) ([]mess.AttendanceRecord, error)
}

// Students reads the roster.
type Students interface {
	Get(ctx context.Context, id string) (mess.Student, error)
	ByStatus(ctx context.Context, status mess.Status) ([]mess.Student, error)
	Leaves(ctx context.Context, studentID string) ([]mess.LeavePeriod, error)
}

// Service builds reports.
type Service struct {
	attendance Attendance
	students   Students
	cache      Cache
	cacheTTL   time.Duration
	now        func() time.Time
	loc        *time.Location
}

// NewService creates a service. cache may be nil.
func NewService(att Attendance, students Students, cache Cache, cacheTTL time.Duration, now func() time.Time, loc *time.Location) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{attendance: att, students: students, cache: cache, cacheTTL: cacheTTL, now: now, loc: loc}
}

// Today returns the current mess day.
func (s *Service) Today() calendar.Date {
	return calendar.Today(s.now, s.loc)
}

// DailyKey is the cache key of day's summary.
func DailyKey(day calendar.Date) string {
	return dailyKeyPrefix + day.String()
}

// Daily returns the summary for day, today when day is zero.
func (s *Service) Daily(ctx context.Context, day calendar.Date) (DailySummary, error) {
	if day.IsZero() {
		day = s.Today()
	}
	if sum, ok := s.cached(ctx, day); ok {
		return sum, nil
	}

	records, err := s.attendance.ByDate(ctx, day)
	if err != nil {
		return DailySummary{}, err
	}
	active, err := s.students.ByStatus(ctx, mess.StatusActive)
	if err != nil {
		return DailySummary{}, err
	}
	sum := DailySummary{Date: day, TotalActiveStudents: len(active)}
	for _, r := range records {
		if r.Morning {
			sum.MorningMeals++
		}
		if r.Evening {
			sum.EveningMeals++
		}
	}
	sum.TotalMeals = sum.MorningMeals + sum.EveningMeals
	s.store(ctx, sum)
	return sum, nil
}

func (s *Service) cached(ctx context.Context, day calendar.Date) (DailySummary, bool) {
	if s.cache == nil {
		return DailySummary{}, false
	}
	b, ok, err := s.cache.Get(ctx, DailyKey(day))
	if err != nil {
		log.Printf("report cache get failed: %v", err)
	}
	var sum DailySummary
	if !ok || json.Unmarshal(b, &sum) != nil {
		metrics.ReportCache.WithLabelValues("miss").Inc()
		return DailySummary{}, false
	}
	metrics.ReportCache.WithLabelValues("hit").Inc()
	return sum, true
}

func (s *Service) store(ctx context.Context, sum DailySummary) {
	if s.cache == nil {
		return
	}
	b, err := json.Marshal(sum)
	if err == nil {
		err = s.cache.Set(ctx, DailyKey(sum.Date), b, s.cacheTTL)
	}
	if err != nil {
		log.Printf("report cache set failed: %v", err)
	}
}

// Invalidate drops the cached summary for day.
func (s *Service) Invalidate(ctx context.Context, day calendar.Date) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, DailyKey(day))
}

// Monthly counts the student's meals in month ("YYYY-MM").
func (s *Service) Monthly(ctx context.Context, studentID, month string) (MonthlySummary, error) {
	records, err := s.MonthAttendance(ctx, studentID, month)
	if err != nil {
		return MonthlySummary{}, err
	}
	sum := MonthlySummary{StudentID: studentID, Month: month}
	for _, r := range records {
		if r.Morning {
			sum.MorningMeals++
		}
		if r.Evening {
			sum.EveningMeals++
		}
	}
	sum.TotalMeals = sum.MorningMeals + sum.EveningMeals
	return sum, nil
}

// MonthAttendance returns the student's records in month ("YYYY-MM"),
// the current month when empty.
func (s *Service) MonthAttendance(ctx context.Context, studentID, month string) ([]mess.AttendanceRecord, error) {
	if month == "" {
		month = calendar.MonthOf(s.Today())
	}
	span, err := calendar.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	if _, err := s.students.Get(ctx, studentID); err != nil {
		return nil, err
	}
	return s.attendance.ForStudent(ctx, studentID, span)
}

// Ledger computes a student's ledger as of today, honouring leave history.
func (s *Service) Ledger(ctx context.Context, studentID string) (StudentLedger, error) {
	st, err := s.students.Get(ctx, studentID)
	if err != nil {
		return StudentLedger{}, err
	}
	today := s.Today()
	window, err := st.Subscription()
	if err != nil {
		return StudentLedger{}, err
	}
	records, err := s.attendance.ForStudent(ctx, st.ID, window)
	if err != nil {
		return StudentLedger{}, err
	}
	leaves, err := s.students.Leaves(ctx, st.ID)
	if err != nil {
		return StudentLedger{}, err
	}
	l, err := mess.ComputeLedger(st, records, today, leaves...)
	if err != nil {
		return StudentLedger{}, err
	}
	return StudentLedger{Student: st, Subscription: mess.Evaluate(today, st.MessEndDate), Ledger: l}, nil
}
