// Package storefakes provides an in-memory expiry store for tests.
package storefakes

import "sync"

// FakeStore is an in-memory implementation of expiry.Store. Safe for
// concurrent use so tests can share one store between "tabs".
type FakeStore struct {
	mu       sync.Mutex
	value    int64
	present  bool
	loadErr  error
	saveErr  error
	clearErr error
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (s *FakeStore) Load() (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return 0, false, s.loadErr
	}
	return s.value, s.present, nil
}

func (s *FakeStore) Save(expiresAtMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.value = expiresAtMs
	s.present = true
	return nil
}

func (s *FakeStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clearErr != nil {
		return s.clearErr
	}
	s.value = 0
	s.present = false
	return nil
}

// FailLoads makes subsequent Load calls return err.
func (s *FakeStore) FailLoads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadErr = err
}

// FailSaves makes subsequent Save calls return err.
func (s *FakeStore) FailSaves(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}
