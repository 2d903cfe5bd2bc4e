package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried by tokens.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrIssuerMismatch = errors.New("issuer mismatch")
)

// Claims represents JWT payload.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 access tokens.
type Issuer struct {
	Name string
	Key  []byte
	TTL  time.Duration
	Now  func() time.Time
}

// NewIssuer creates an issuer; ttl defaults to one day.
func NewIssuer(name, key string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{Name: name, Key: []byte(key), TTL: ttl, Now: time.Now}
}

// Issue returns a signed token for subject with role and its session.
func (i *Issuer) Issue(subject, role, name string) (Session, error) {
	now := i.Now()
	exp := now.Add(i.TTL)
	claims := Claims{
		Role: role,
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.Name,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.Key)
	if err != nil {
		return Session{}, err
	}
	return Session{Subject: subject, Role: role, Name: name, Token: token, ExpiresAt: exp}, nil
}

// Parse validates a token and returns its session.
func (i *Issuer) Parse(tokenStr string) (Session, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.Key, nil
	}, jwt.WithTimeFunc(i.Now))
	if err != nil {
		return Session{}, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return Session{}, ErrInvalidToken
	}
	if i.Name != "" && claims.Issuer != i.Name {
		return Session{}, ErrIssuerMismatch
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return Session{Subject: claims.Subject, Role: claims.Role, Name: claims.Name, Token: tokenStr, ExpiresAt: exp}, nil
}
