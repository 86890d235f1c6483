package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/example/roombook/internal/persistence"
)

// Store is an in-memory collection store. It doubles as the local-cache
// collaborator in tests and as a change-feed capable backend: every
// SaveCollection notifies subscribers registered through OnCollectionChanged.
type Store struct {
	mu          sync.RWMutex
	collections map[string][]json.RawMessage
	subscribers map[string]map[string]func(string)
}

// Open returns an empty store.
func Open() *Store {
	return &Store{
		collections: make(map[string][]json.RawMessage),
		subscribers: make(map[string]map[string]func(string)),
	}
}

// LoadCollection returns the records saved under name, in saved order.
// Loading a collection that was never saved yields an empty sequence.
func (s *Store) LoadCollection(ctx context.Context, name string) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneRecords(s.collections[name]), nil
}

// SaveCollection replaces the records stored under name and notifies
// subscribers. Callbacks run synchronously after the content is visible.
func (s *Store) SaveCollection(ctx context.Context, name string, records []json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.collections[name] = cloneRecords(records)
	callbacks := make([]func(string), 0, len(s.subscribers[name]))
	for _, fn := range s.subscribers[name] {
		callbacks = append(callbacks, fn)
	}
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(name)
	}
	return nil
}

// OnCollectionChanged registers a callback for saves against name. The
// returned cancel func removes the registration and is safe to call twice.
func (s *Store) OnCollectionChanged(name string, fn func(name string)) (cancel func()) {
	if fn == nil {
		return func() {}
	}

	token := uuid.NewString()

	s.mu.Lock()
	if s.subscribers[name] == nil {
		s.subscribers[name] = make(map[string]func(string))
	}
	s.subscribers[name][token] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers[name], token)
		s.mu.Unlock()
	}
}

func cloneRecords(records []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(records))
	for i, record := range records {
		dup := make(json.RawMessage, len(record))
		copy(dup, record)
		out[i] = dup
	}
	return out
}

var _ persistence.CollectionStore = (*Store)(nil)
var _ persistence.ChangeNotifier = (*Store)(nil)
