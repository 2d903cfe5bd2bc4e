package attendance

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"hostelmess/internal/calendar"
	"hostelmess/internal/mess"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ByDate returns every record for one day.
func (r *Repository) ByDate(ctx context.Context, day calendar.Date) ([]mess.AttendanceRecord, error) {
	return r.query(ctx, `
		SELECT student_id, day, morning, evening FROM attendance
		WHERE day = $1 ORDER BY student_id
	`, day)
}

// ForStudent returns the student's records within span, oldest first.
func (r *Repository) ForStudent(ctx context.Context, studentID string, span calendar.Range) ([]mess.AttendanceRecord, error) {
	return r.query(ctx, `
		SELECT student_id, day, morning, evening FROM attendance
		WHERE student_id = $1 AND day BETWEEN $2 AND $3
		ORDER BY day
	`, studentID, span.Start, span.End)
}

// SetMeal upserts one meal flag and returns the resulting record.
func (r *Repository) SetMeal(ctx context.Context, studentID string, day calendar.Date, meal mess.Meal, taken bool) (mess.AttendanceRecord, error) {
	col := "morning"
	if meal == mess.MealEvening {
		col = "evening"
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (student_id, day, `+col+`)
		VALUES ($1, $2, $3)
		ON CONFLICT (student_id, day) DO UPDATE SET `+col+` = EXCLUDED.`+col+`, updated_at = NOW()
		RETURNING student_id, day, morning, evening
	`, studentID, day, taken)
	var rec mess.AttendanceRecord
	if err := row.Scan(&rec.StudentID, &rec.Date, &rec.Morning, &rec.Evening); err != nil {
		return mess.AttendanceRecord{}, errors.Wrapf(err, "upserting %s attendance", meal)
	}
	return rec, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]mess.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	defer rows.Close()
	res := []mess.AttendanceRecord{}
	for rows.Next() {
		var rec mess.AttendanceRecord
		if err := rows.Scan(&rec.StudentID, &rec.Date, &rec.Morning, &rec.Evening); err != nil {
			return nil, errors.Wrap(err, "scanning attendance")
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
