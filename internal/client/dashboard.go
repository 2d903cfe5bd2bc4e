package client

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"

	"hostelmess/internal/auth"
	"hostelmess/internal/calendar"
	"hostelmess/internal/guard"
	"hostelmess/internal/mess"
)

// ErrSuperseded means a newer toggle of the same meal started after this
// one; its result was dropped.
var ErrSuperseded = errors.New("attendance toggle superseded")

// ToggleMeal flips one meal flag from current and returns the saved record.
// While a toggle for the same student and meal is in flight, another one
// fails with guard.ErrBusy without being sent.
func (c *Client) ToggleMeal(ctx context.Context, sess auth.Session, studentID string, day calendar.Date, meal mess.Meal, current bool) (mess.AttendanceRecord, error) {
	var rec mess.AttendanceRecord
	err := guard.Do(ctx, c.guard, guard.MealKey(studentID, meal), func(ctx context.Context, t guard.Ticket) error {
		var res mess.AttendanceRecord
		err := c.do(ctx, &sess, http.MethodPost, "/api/attendance", nil, map[string]any{
			"studentId": studentID,
			"date":      day,
			"meal":      meal,
			"status":    !current,
		}, &res)
		if err != nil {
			return err
		}
		if latest, _ := c.guard.Latest(ctx, t); !latest {
			return ErrSuperseded
		}
		rec = res
		return nil
	})
	return rec, err
}

// InFlight reports whether a toggle for the student's meal is outstanding.
func (c *Client) InFlight(studentID string, meal mess.Meal) bool {
	return c.guard.Busy(guard.MealKey(studentID, meal))
}

// Dashboard is a student's ledger next to their month of attendance.
type Dashboard struct {
	Ledger     mess.Ledger
	Month      string
	Attendance map[string]mess.MealMarks
}

// Dashboard fetches the ledger and the month's attendance concurrently.
func (c *Client) Dashboard(ctx context.Context, sess auth.Session, month string) (Dashboard, error) {
	d := Dashboard{Month: month}
	var records []mess.AttendanceRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Ledger, err = c.MyLedger(gctx, sess)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = c.MyAttendance(gctx, sess, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	d.Attendance = mess.BuildIndex(records).ForStudent(sess.Subject)
	return d, nil
}
