// Package guard serialises mutations per key: while a ticket for a key is
// outstanding, further acquisitions of that key are rejected.
package guard

import (
	"context"
	"errors"
	"sync"

	"hostelmess/internal/mess"
)

// ErrBusy is returned when the key already has an in-flight mutation.
var ErrBusy = errors.New("mutation already in flight")

// Ticket is the proof of an acquisition. Seq increases per key.
type Ticket struct {
	Key   string
	Seq   uint64
	Token string
}

// Guard is implemented by Memory and Redis.
type Guard interface {
	Acquire(ctx context.Context, key string) (Ticket, error)
	Release(ctx context.Context, t Ticket) error
	// Latest reports whether t is the most recent acquisition of its key.
	Latest(ctx context.Context, t Ticket) (bool, error)
}

// MealKey names the guard key for one student's meal.
func MealKey(studentID string, meal mess.Meal) string {
	return studentID + ":" + string(meal)
}

// Do runs fn holding the key. It returns ErrBusy without calling fn when
// the key is already held.
func Do(ctx context.Context, g Guard, key string, fn func(ctx context.Context, t Ticket) error) error {
	t, err := g.Acquire(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = g.Release(context.WithoutCancel(ctx), t) }()
	return fn(ctx, t)
}

// Memory is an in-process guard.
type Memory struct {
	mu    sync.Mutex
	state map[string]*slot
}

type slot struct {
	seq  uint64
	busy bool
}

// NewMemory creates an empty in-process guard.
func NewMemory() *Memory {
	return &Memory{state: make(map[string]*slot)}
}

func (m *Memory) Acquire(_ context.Context, key string) (Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.state[key]
	if !ok {
		s = &slot{}
		m.state[key] = s
	}
	if s.busy {
		return Ticket{}, ErrBusy
	}
	s.busy = true
	s.seq++
	return Ticket{Key: key, Seq: s.seq}, nil
}

func (m *Memory) Release(_ context.Context, t Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.state[t.Key]; ok && s.seq == t.Seq {
		s.busy = false
	}
	return nil
}

func (m *Memory) Latest(_ context.Context, t Ticket) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.state[t.Key]
	return ok && s.seq == t.Seq, nil
}

// Busy reports whether key is currently held.
func (m *Memory) Busy(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.state[key]
	return ok && s.busy
}
