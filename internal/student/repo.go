package student

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"

	"hostelmess/internal/calendar"
	"hostelmess/internal/mess"
)

const studentColumns = `id, name, roll_number, COALESCE(email, ''), mess_start_date, mess_end_date, status, leave_start_date, leave_end_date`

// Repository persists students and their leave history in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (mess.Student, error) {
	var s mess.Student
	var status string
	err := row.Scan(&s.ID, &s.Name, &s.RollNumber, &s.Email, &s.MessStartDate, &s.MessEndDate, &status, &s.LeaveStartDate, &s.LeaveEndDate)
	s.Status = mess.Status(status)
	return s, err
}

// Create inserts a student. passwordHash may be empty.
func (r *Repository) Create(ctx context.Context, s mess.Student, passwordHash string) (mess.Student, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, name, roll_number, email, password_hash, mess_start_date, mess_end_date, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
	`, s.ID, s.Name, s.RollNumber, s.Email, passwordHash, s.MessStartDate, s.MessEndDate, string(s.Status))
	if err != nil {
		if isUniqueViolation(err) {
			return mess.Student{}, ErrDuplicate
		}
		return mess.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

// Get returns a student by id.
func (r *Repository) Get(ctx context.Context, id string) (mess.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return mess.Student{}, ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	s, err := scanStudent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return mess.Student{}, ErrNotFound
	}
	return s, errors.Wrap(err, "selecting student")
}

// Credentials returns the student and password hash registered for email.
func (r *Repository) Credentials(ctx context.Context, email string) (mess.Student, string, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+studentColumns+`, COALESCE(password_hash, '')
		FROM students WHERE lower(email) = lower($1)
	`, email)
	var s mess.Student
	var status, hash string
	err := row.Scan(&s.ID, &s.Name, &s.RollNumber, &s.Email, &s.MessStartDate, &s.MessEndDate, &status, &s.LeaveStartDate, &s.LeaveEndDate, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return mess.Student{}, "", ErrNotFound
	}
	if err != nil {
		return mess.Student{}, "", errors.Wrap(err, "selecting student credentials")
	}
	s.Status = mess.Status(status)
	return s, hash, nil
}

// List returns one page of students ordered by name plus the total count.
func (r *Repository) List(ctx context.Context, q Query) ([]mess.Student, int, error) {
	where := ""
	args := []any{}
	if term := strings.TrimSpace(q.Search); term != "" {
		args = append(args, likePattern(term))
		where = ` WHERE name ILIKE $1 ESCAPE '\' OR roll_number ILIKE $1 ESCAPE '\'`
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "counting students")
	}

	query := `SELECT ` + studentColumns + ` FROM students` + where +
		` ORDER BY lower(name), roll_number LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, q.Limit, (q.Page-1)*q.Limit)

	students, err := r.query(ctx, query, args...)
	return students, total, err
}

// All returns every student ordered by name.
func (r *Repository) All(ctx context.Context) ([]mess.Student, error) {
	return r.query(ctx, `SELECT `+studentColumns+` FROM students ORDER BY lower(name), roll_number`)
}

// ByStatus returns the students with the given lifecycle status.
func (r *Repository) ByStatus(ctx context.Context, status mess.Status) ([]mess.Student, error) {
	return r.query(ctx, `SELECT `+studentColumns+` FROM students WHERE status = $1 ORDER BY lower(name)`, string(status))
}

// LeaveEndedBefore returns students still on leave whose leave ended before day.
func (r *Repository) LeaveEndedBefore(ctx context.Context, day calendar.Date) ([]mess.Student, error) {
	return r.query(ctx, `
		SELECT `+studentColumns+` FROM students
		WHERE status = 'OnLeave' AND leave_end_date < $1
		ORDER BY leave_end_date
	`, day)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]mess.Student, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	defer rows.Close()
	var res []mess.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning student")
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// Update writes the subscription window, status and current leave window.
func (r *Repository) Update(ctx context.Context, s mess.Student) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE students
		SET mess_start_date = $2, mess_end_date = $3, status = $4,
		    leave_start_date = $5, leave_end_date = $6, updated_at = NOW()
		WHERE id = $1
	`, s.ID, s.MessStartDate, s.MessEndDate, string(s.Status), s.LeaveStartDate, s.LeaveEndDate)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddLeave records a leave period in the student's history.
func (r *Repository) AddLeave(ctx context.Context, studentID string, p mess.LeavePeriod) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO leave_periods (id, student_id, start_date, end_date)
		VALUES ($1, $2, $3, $4)
	`, uuid.NewString(), studentID, p.Start, p.End)
	return errors.Wrap(err, "inserting leave period")
}

// CloseLeave ends the leave period starting on leaveStart at lastDay, or
// drops it when it would not have started yet. Other periods are untouched.
func (r *Repository) CloseLeave(ctx context.Context, studentID string, leaveStart, lastDay calendar.Date) error {
	if leaveStart.IsZero() {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning leave close")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM leave_periods
		WHERE student_id = $1 AND start_date = $2 AND start_date > $3
	`, studentID, leaveStart, lastDay); err != nil {
		return errors.Wrap(err, "dropping unstarted leave")
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE leave_periods SET end_date = $3
		WHERE student_id = $1 AND start_date = $2 AND end_date > $3
	`, studentID, leaveStart, lastDay); err != nil {
		return errors.Wrap(err, "shortening leave")
	}
	return errors.Wrap(tx.Commit(), "committing leave close")
}

// Leaves returns the student's leave history, oldest first.
func (r *Repository) Leaves(ctx context.Context, studentID string) ([]mess.LeavePeriod, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT start_date, end_date FROM leave_periods
		WHERE student_id = $1 ORDER BY start_date
	`, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying leave periods")
	}
	defer rows.Close()
	var res []mess.LeavePeriod
	for rows.Next() {
		var p mess.LeavePeriod
		if err := rows.Scan(&p.Start, &p.End); err != nil {
			return nil, errors.Wrap(err, "scanning leave period")
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// likePattern escapes LIKE wildcards in term and wraps it for a substring match.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
