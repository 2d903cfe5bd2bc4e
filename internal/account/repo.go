package account

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// AdminRepository persists admin accounts in Postgres.
type AdminRepository struct {
	db *sql.DB
}

// NewAdminRepository creates a repo.
func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// CreateIfAbsent inserts the admin unless the username is taken. It reports
// whether a row was written.
func (r *AdminRepository) CreateIfAbsent(ctx context.Context, username, passwordHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO admins (id, username, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (username) DO NOTHING
	`, uuid.NewString(), username, passwordHash)
	if err != nil {
		return false, errors.Wrap(err, "inserting admin")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ByUsername returns the admin and its password hash.
func (r *AdminRepository) ByUsername(ctx context.Context, username string) (Admin, string, error) {
	return r.one(ctx, `SELECT id, username, password_hash FROM admins WHERE username = $1`, username)
}

// ByID returns the admin and its password hash.
func (r *AdminRepository) ByID(ctx context.Context, id string) (Admin, string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Admin{}, "", ErrNotFound
	}
	return r.one(ctx, `SELECT id, username, password_hash FROM admins WHERE id = $1`, id)
}

func (r *AdminRepository) one(ctx context.Context, query string, arg string) (Admin, string, error) {
	var a Admin
	var hash string
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&a.ID, &a.Username, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Admin{}, "", ErrNotFound
	}
	if err != nil {
		return Admin{}, "", errors.Wrap(err, "selecting admin")
	}
	return a, hash, nil
}

// SetPassword replaces the admin's password hash.
func (r *AdminRepository) SetPassword(ctx context.Context, id, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE admins SET password_hash = $2, updated_at = NOW() WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return errors.Wrap(err, "updating admin password")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
