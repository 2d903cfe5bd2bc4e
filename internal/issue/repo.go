package issue

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Repository persists issues in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts an Open issue.
func (r *Repository) Create(ctx context.Context, title, description string) (Issue, error) {
	is := Issue{ID: uuid.NewString(), Title: title, Description: description, Status: StatusOpen}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO issues (id, title, description, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, is.ID, is.Title, is.Description, string(is.Status)).Scan(&is.CreatedAt)
	if err != nil {
		return Issue{}, errors.Wrap(err, "inserting issue")
	}
	return is, nil
}

// List returns every issue, newest first.
func (r *Repository) List(ctx context.Context) ([]Issue, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, status, created_at, resolved_at
		FROM issues ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "querying issues")
	}
	defer rows.Close()
	res := []Issue{}
	for rows.Next() {
		var is Issue
		var status string
		if err := rows.Scan(&is.ID, &is.Title, &is.Description, &status, &is.CreatedAt, &is.ResolvedAt); err != nil {
			return nil, errors.Wrap(err, "scanning issue")
		}
		is.Status = Status(status)
		res = append(res, is)
	}
	return res, rows.Err()
}

// Resolve marks an Open issue Resolved at the given time.
func (r *Repository) Resolve(ctx context.Context, id string, at time.Time) (Issue, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Issue{}, ErrNotFound
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Issue{}, errors.Wrap(err, "beginning resolve")
	}
	defer func() { _ = tx.Rollback() }()

	var is Issue
	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT id, title, description, status, created_at, resolved_at
		FROM issues WHERE id = $1 FOR UPDATE
	`, id).Scan(&is.ID, &is.Title, &is.Description, &status, &is.CreatedAt, &is.ResolvedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Issue{}, ErrNotFound
	}
	if err != nil {
		return Issue{}, errors.Wrap(err, "selecting issue")
	}
	if Status(status) == StatusResolved {
		return Issue{}, ErrAlreadyResolved
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE issues SET status = $2, resolved_at = $3 WHERE id = $1
	`, id, string(StatusResolved), at); err != nil {
		return Issue{}, errors.Wrap(err, "resolving issue")
	}
	if err := tx.Commit(); err != nil {
		return Issue{}, errors.Wrap(err, "committing resolve")
	}
	is.Status = StatusResolved
	is.ResolvedAt = &at
	return is, nil
}
