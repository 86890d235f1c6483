package testfixtures

import (
	"context"
	"encoding/json"
	"sync"
)

// CollectionStore is an in-memory persistence.CollectionStore with error
// injection, for exercising persistence-failure paths without a backend.
type CollectionStore struct {
	mu          sync.Mutex
	collections map[string][]json.RawMessage

	// LoadErr and SaveErr, when set, fail the corresponding operation.
	LoadErr error
	SaveErr error

	// SaveCalls counts SaveCollection invocations, failed ones included.
	SaveCalls int
}

// NewCollectionStore returns an empty store.
func NewCollectionStore() *CollectionStore {
	return &CollectionStore{collections: make(map[string][]json.RawMessage)}
}

// Seed replaces a collection's content without counting as a save.
func (s *CollectionStore) Seed(name string, records []json.RawMessage) {
	s.mu.Lock()
	s.collections[name] = append([]json.RawMessage(nil), records...)
	s.mu.Unlock()
}

// LoadCollection returns the stored records for name.
func (s *CollectionStore) LoadCollection(ctx context.Context, name string) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return append([]json.RawMessage(nil), s.collections[name]...), nil
}

// SaveCollection replaces the stored records for name.
func (s *CollectionStore) SaveCollection(ctx context.Context, name string, records []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.SaveCalls++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.collections[name] = append([]json.RawMessage(nil), records...)
	return nil
}

// FailSaves makes every subsequent save fail with err.
func (s *CollectionStore) FailSaves(err error) {
	s.mu.Lock()
	s.SaveErr = err
	s.mu.Unlock()
}

// HealSaves clears a previously injected save failure.
func (s *CollectionStore) HealSaves() {
	s.mu.Lock()
	s.SaveErr = nil
	s.mu.Unlock()
}
