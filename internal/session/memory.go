package session

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore is an in-process session store for tests and single-instance
// deployments.
type MemoryStore struct {
	mu         sync.Mutex
	bookings   map[string]LastBooking
	violations map[string]int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings:   make(map[string]LastBooking),
		violations: make(map[string]int),
	}
}

// SetLastBooking records the session's booking projection.
func (s *MemoryStore) SetLastBooking(_ context.Context, sessionID string, lb *LastBooking) error {
	if lb == nil {
		return errors.New("session: last booking required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[sessionID] = *lb
	return nil
}

// GetLastBooking returns the projection or ErrNoLastBooking.
func (s *MemoryStore) GetLastBooking(_ context.Context, sessionID string) (*LastBooking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lb, ok := s.bookings[sessionID]
	if !ok {
		return nil, ErrNoLastBooking
	}
	return &lb, nil
}

// IncrViolations bumps the moderation counter and returns the new value.
func (s *MemoryStore) IncrViolations(_ context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations[sessionID]++
	return s.violations[sessionID], nil
}

// Violations returns the current counter without changing it.
func (s *MemoryStore) Violations(_ context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.violations[sessionID], nil
}

// Reset clears all state for the session.
func (s *MemoryStore) Reset(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bookings, sessionID)
	delete(s.violations, sessionID)
	return nil
}
