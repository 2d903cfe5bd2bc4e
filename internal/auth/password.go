package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is enforced when passwords are set or changed.
const MinPasswordLength = 6

var (
	ErrPasswordTooShort = errors.New("password must be at least 6 characters long")
	ErrBadCredentials   = errors.New("invalid credentials")
)

// HashPassword bcrypt-hashes pw after checking its length.
func HashPassword(pw string) (string, error) {
	if len(pw) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword returns ErrBadCredentials when pw does not match hash.
func CheckPassword(hash, pw string) error {
	if hash == "" {
		return ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)); err != nil {
		return ErrBadCredentials
	}
	return nil
}
