// Package account handles admin and student sign-in.
package account

import (
	"context"
	"errors"
	"strings"

	"hostelmess/internal/auth"
	"hostelmess/internal/mess"
	"hostelmess/internal/student"
)

var ErrNotFound = errors.New("account not found")

// Admin is a mess administrator.
type Admin struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

// AdminStore is implemented by *AdminRepository.
type AdminStore interface {
	CreateIfAbsent(ctx context.Context, username, passwordHash string) (bool, error)
	ByUsername(ctx context.Context, username string) (Admin, string, error)
	ByID(ctx context.Context, id string) (Admin, string, error)
	SetPassword(ctx context.Context, id, passwordHash string) error
}

// CredentialStore looks up student logins; *student.Repository implements it.
type CredentialStore interface {
	Credentials(ctx context.Context, email string) (mess.Student, string, error)
}

// AdminLogin is returned on a successful admin sign-in.
type AdminLogin struct {
	ID       string       `json:"_id"`
	Username string       `json:"username"`
	Token    string       `json:"token"`
	Session  auth.Session `json:"-"`
}

// StudentLogin is returned on a successful student sign-in.
type StudentLogin struct {
	ID         string       `json:"_id"`
	Name       string       `json:"name"`
	RollNumber string       `json:"rollNumber"`
	Token      string       `json:"token"`
	Session    auth.Session `json:"-"`
}

// Service signs admins and students in.
type Service struct {
	admins   AdminStore
	students CredentialStore
	issuer   *auth.Issuer
}

// NewService creates a service.
func NewService(admins AdminStore, students CredentialStore, issuer *auth.Issuer) *Service {
	return &Service{admins: admins, students: students, issuer: issuer}
}

// Bootstrap creates the configured admin when no admin with that username
// exists. It reports whether one was created.
func (s *Service) Bootstrap(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	return s.admins.CreateIfAbsent(ctx, username, hash)
}

// LoginAdmin checks the credentials and issues an admin token.
func (s *Service) LoginAdmin(ctx context.Context, username, password string) (AdminLogin, error) {
	a, hash, err := s.admins.ByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return AdminLogin{}, auth.ErrBadCredentials
	}
	if err != nil {
		return AdminLogin{}, err
	}
	if err := auth.CheckPassword(hash, password); err != nil {
		return AdminLogin{}, err
	}
	sess, err := s.issuer.Issue(a.ID, auth.RoleAdmin, a.Username)
	if err != nil {
		return AdminLogin{}, err
	}
	return AdminLogin{ID: a.ID, Username: a.Username, Token: sess.Token, Session: sess}, nil
}

// LoginStudent checks the credentials and issues a student token.
// Terminated students cannot sign in.
func (s *Service) LoginStudent(ctx context.Context, email, password string) (StudentLogin, error) {
	st, hash, err := s.students.Credentials(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, student.ErrNotFound) {
		return StudentLogin{}, auth.ErrBadCredentials
	}
	if err != nil {
		return StudentLogin{}, err
	}
	if err := auth.CheckPassword(hash, password); err != nil {
		return StudentLogin{}, err
	}
	if st.Status == mess.StatusTerminated {
		return StudentLogin{}, student.ErrTerminated
	}
	sess, err := s.issuer.Issue(st.ID, auth.RoleStudent, st.Name)
	if err != nil {
		return StudentLogin{}, err
	}
	return StudentLogin{ID: st.ID, Name: st.Name, RollNumber: st.RollNumber, Token: sess.Token, Session: sess}, nil
}

// ChangeAdminPassword replaces the password after checking the current one.
func (s *Service) ChangeAdminPassword(ctx context.Context, adminID, current, next string) error {
	_, hash, err := s.admins.ByID(ctx, adminID)
	if err != nil {
		return err
	}
	if err := auth.CheckPassword(hash, current); err != nil {
		return err
	}
	newHash, err := auth.HashPassword(next)
	if err != nil {
		return err
	}
	return s.admins.SetPassword(ctx, adminID, newHash)
}
