package auth

import (
	"context"
	"time"
)

// Session is the authenticated caller. It is passed explicitly into every
// request-making operation instead of being read from ambient storage.
type Session struct {
	Subject   string    `json:"subject"`
	Role      string    `json:"role"`
	Name      string    `json:"name,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the session carries a token that has not expired
// at now.
func (s Session) Valid(now time.Time) bool {
	if s.Token == "" || s.Subject == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// Is reports whether the session has role.
func (s Session) Is(role string) bool { return s.Role == role }

type sessionKey struct{}

// WithSession stores s on ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the session stored by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
