// Package memory implements an in-memory DeviceKV for tests and ephemeral use.
package memory

import (
	"sync"

	"fieldreport/pkg/domain"
)

var _ domain.DeviceKV = (*Store)(nil)

// Store keeps values in process memory.
type Store struct {
	mu     sync.RWMutex
	values map[string]string
}

// New returns an empty in-memory store.
func New() *Store { return &Store{values: make(map[string]string)} }

// GetString returns the stored value and whether the key exists.
func (s *Store) GetString(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// SetString stores the value under key.
func (s *Store) SetString(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}
