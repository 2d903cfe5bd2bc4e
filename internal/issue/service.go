// Package issue stores complaints raised about the mess.
package issue

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("issue not found")
	ErrAlreadyResolved = errors.New("issue is already resolved")
	ErrBadStatus       = errors.New(`issues can only be moved to "Resolved"`)
	ErrFieldsRequired  = errors.New("both title and description are required")
)

// Status of an issue.
type Status string

const (
	StatusOpen     Status = "Open"
	StatusResolved Status = "Resolved"
)

// Issue is one complaint.
type Issue struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

// Store is implemented by *Repository.
type Store interface {
	Create(ctx context.Context, title, description string) (Issue, error)
	List(ctx context.Context) ([]Issue, error)
	Resolve(ctx context.Context, id string, at time.Time) (Issue, error)
}

// Service validates issue changes.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a service.
func NewService(store Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// Raise records a new Open issue.
func (s *Service) Raise(ctx context.Context, title, description string) (Issue, error) {
	title, description = strings.TrimSpace(title), strings.TrimSpace(description)
	if title == "" || description == "" {
		return Issue{}, ErrFieldsRequired
	}
	return s.store.Create(ctx, title, description)
}

// List returns all issues newest first.
func (s *Service) List(ctx context.Context) ([]Issue, error) {
	return s.store.List(ctx)
}

// SetStatus applies a status change. Only Open to Resolved is allowed.
func (s *Service) SetStatus(ctx context.Context, id string, status Status) (Issue, error) {
	if status != StatusResolved {
		return Issue{}, ErrBadStatus
	}
	return s.store.Resolve(ctx, id, s.now().UTC())
}
