package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"hostelmess/internal/auth"
)

// defaultSessionPath is where the signed-in session is kept between runs.
func defaultSessionPath() string {
	if p := os.Getenv("MESSCTL_SESSION"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "messctl", "session.json")
}

func saveSession(path string, s auth.Session) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

// loadSession returns the saved session, or an empty one when none is saved.
func loadSession(path string) (auth.Session, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return auth.Session{}, nil
	}
	if err != nil {
		return auth.Session{}, err
	}
	var s auth.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return auth.Session{}, err
	}
	return s, nil
}

func clearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
