// Package memory provides in-memory adapter implementations for tests and
// ephemeral runs.
package memory

import (
	"context"
	"sync"

	"github.com/quotawatch/quotawatch/domain/threshold"
	"github.com/quotawatch/quotawatch/domain/usage"
	"github.com/quotawatch/quotawatch/ports"
)

// StateStore implements ports.StateStore in memory.
type StateStore struct {
	mu         sync.RWMutex
	thresholds map[string]threshold.State
	view       *usage.ViewState
}

// NewStateStore creates an empty in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{thresholds: make(map[string]threshold.State)}
}

// LoadThreshold returns the stored state for a key, or nil when absent.
func (s *StateStore) LoadThreshold(_ context.Context, key string) (*threshold.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.thresholds[key]
	if !ok {
		return nil, nil
	}
	cp := st
	return &cp, nil
}

// SaveThreshold replaces the stored state for a key.
func (s *StateStore) SaveThreshold(_ context.Context, key string, st threshold.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.thresholds[key] = st
	return nil
}

// LoadViewState returns the last saved view state, or nil when absent.
func (s *StateStore) LoadViewState(_ context.Context) (*usage.ViewState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.view == nil {
		return nil, nil
	}
	cp := *s.view
	return &cp, nil
}

// SaveViewState replaces the saved view state.
func (s *StateStore) SaveViewState(_ context.Context, vs usage.ViewState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = &vs
	return nil
}

// Ensure interface compliance.
var _ ports.StateStore = (*StateStore)(nil)
