package usecase

import (
	"sync"

	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/admin/domain/model"
)

// Store holds the state of one console and applies actions to it
type Store struct {
	mu      sync.RWMutex
	state   model.State
	reducer Reducer
}

// NewStore creates a store starting from initial
func NewStore(initial model.State, reducer Reducer) *Store {
	if reducer == nil {
		reducer = Reduce
	}
	return &Store{state: initial, reducer: reducer}
}

// Apply reduces a into the state and returns the new state
func (s *Store) Apply(a action.Action) model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.reducer(s.state, a)
	return s.state
}

// State returns the current state. Reducers never mutate slices in place,
// so the returned value is safe to read while actions are applied.
func (s *Store) State() model.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}
