package stubapp

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// StatusCheck is the connectivity canary record served by the backend.
type StatusCheck struct {
	ID         string    `json:"id"`
	ClientName string    `json:"client_name"`
	Timestamp  time.Time `json:"timestamp"`
}

// StatusStore keeps status checks in memory.
type StatusStore struct {
	mu     sync.RWMutex
	checks []StatusCheck
	now    func() time.Time
}

// NewStatusStore returns an empty store.
func NewStatusStore() *StatusStore {
	return &StatusStore{now: time.Now}
}

// Create stores a new status check for clientName.
func (s *StatusStore) Create(clientName string) StatusCheck {
	check := StatusCheck{
		ID:         uuid.NewString(),
		ClientName: clientName,
		Timestamp:  s.now().UTC().Truncate(time.Second),
	}

	s.mu.Lock()
	s.checks = append(s.checks, check)
	s.mu.Unlock()

	return check
}

// List returns all status checks in creation order.
func (s *StatusStore) List() []StatusCheck {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]StatusCheck, len(s.checks))
	copy(out, s.checks)
	return out
}

// Len returns the number of stored checks.
func (s *StatusStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checks)
}
