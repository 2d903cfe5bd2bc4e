package account

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelmess/internal/auth"
	"hostelmess/internal/mess"
	"hostelmess/internal/student"
)

type memAdmins struct {
	byName map[string]Admin
	hashes map[string]string
}

func newMemAdmins() *memAdmins {
	return &memAdmins{byName: map[string]Admin{}, hashes: map[string]string{}}
}

func (m *memAdmins) CreateIfAbsent(_ context.Context, username, hash string) (bool, error) {
	if _, ok := m.byName[username]; ok {
		return false, nil
	}
	a := Admin{ID: uuid.NewString(), Username: username}
	m.byName[username] = a
	m.hashes[a.ID] = hash
	return true, nil
}

func (m *memAdmins) ByUsername(_ context.Context, username string) (Admin, string, error) {
	a, ok := m.byName[username]
	if !ok {
		return Admin{}, "", ErrNotFound
	}
	return a, m.hashes[a.ID], nil
}

func (m *memAdmins) ByID(_ context.Context, id string) (Admin, string, error) {
	for _, a := range m.byName {
		if a.ID == id {
			return a, m.hashes[id], nil
		}
	}
	return Admin{}, "", ErrNotFound
}

func (m *memAdmins) SetPassword(_ context.Context, id, hash string) error {
	if _, ok := m.hashes[id]; !ok {
		return ErrNotFound
	}
	m.hashes[id] = hash
	return nil
}

type memCreds map[string]struct {
	s    mess.Student
	hash string
}

func (m memCreds) Credentials(_ context.Context, email string) (mess.Student, string, error) {
	c, ok := m[email]
	if !ok {
		return mess.Student{}, "", student.ErrNotFound
	}
	return c.s, c.hash, nil
}

func newAccounts(t *testing.T) (*Service, *memAdmins, memCreds) {
	t.Helper()
	admins := newMemAdmins()
	creds := memCreds{}
	iss := auth.NewIssuer("hostel-mess", "k", time.Hour)
	return NewService(admins, creds, iss), admins, creds
}

func TestBootstrapAndAdminLogin(t *testing.T) {
	svc, _, _ := newAccounts(t)
	ctx := context.Background()

	created, err := svc.Bootstrap(ctx, "warden", "secret123")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = svc.Bootstrap(ctx, "warden", "different")
	require.NoError(t, err)
	assert.False(t, created)
	created, err = svc.Bootstrap(ctx, "", "")
	require.NoError(t, err)
	assert.False(t, created)

	login, err := svc.LoginAdmin(ctx, "warden", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "warden", login.Username)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, auth.RoleAdmin, login.Session.Role)

	_, err = svc.LoginAdmin(ctx, "warden", "different")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)
	_, err = svc.LoginAdmin(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)
}

func TestChangeAdminPassword(t *testing.T) {
	svc, _, _ := newAccounts(t)
	ctx := context.Background()
	_, err := svc.Bootstrap(ctx, "warden", "secret123")
	require.NoError(t, err)
	login, err := svc.LoginAdmin(ctx, "warden", "secret123")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.ChangeAdminPassword(ctx, login.ID, "wrong", "newsecret"), auth.ErrBadCredentials)
	assert.ErrorIs(t, svc.ChangeAdminPassword(ctx, login.ID, "secret123", "abc"), auth.ErrPasswordTooShort)
	require.NoError(t, svc.ChangeAdminPassword(ctx, login.ID, "secret123", "newsecret"))

	_, err = svc.LoginAdmin(ctx, "warden", "newsecret")
	assert.NoError(t, err)
	_, err = svc.LoginAdmin(ctx, "warden", "secret123")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)
}

func TestLoginStudent(t *testing.T) {
	svc, _, creds := newAccounts(t)
	hash, err := auth.HashPassword("secret123")
	require.NoError(t, err)
	creds["asha@example.com"] = struct {
		s    mess.Student
		hash string
	}{mess.Student{ID: "s1", Name: "Asha", RollNumber: "R1", Status: mess.StatusActive}, hash}
	creds["gone@example.com"] = struct {
		s    mess.Student
		hash string
	}{mess.Student{ID: "s2", Name: "Gone", RollNumber: "R2", Status: mess.StatusTerminated}, hash}
	ctx := context.Background()

	login, err := svc.LoginStudent(ctx, " Asha@Example.com ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "s1", login.ID)
	assert.Equal(t, "R1", login.RollNumber)
	assert.Equal(t, auth.RoleStudent, login.Session.Role)

	_, err = svc.LoginStudent(ctx, "asha@example.com", "nope")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)
	_, err = svc.LoginStudent(ctx, "who@example.com", "secret123")
	assert.ErrorIs(t, err, auth.ErrBadCredentials)
	_, err = svc.LoginStudent(ctx, "gone@example.com", "secret123")
	assert.ErrorIs(t, err, student.ErrTerminated)
}
