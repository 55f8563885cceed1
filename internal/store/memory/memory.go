package memory

import (
	"context"
	"sync"

	"relief/internal/store"
)

// Store keeps values in process memory. State is lost on exit, which is the
// degraded ephemeral mode the engine falls back to without a real backend.
type Store struct {
	deviceID string
	data     *data
}

type data struct {
	mu    sync.Mutex
	items map[string]map[string]string
}

var _ store.Store = (*Store)(nil)

func New(deviceID string) *Store {
	return &Store{deviceID: deviceID, data: &data{items: map[string]map[string]string{}}}
}

// NewSeeded returns a store preloaded with shared values, e.g. fixtures.
func NewSeeded(deviceID string, shared map[string]string) *Store {
	s := New(deviceID)
	for k, v := range shared {
		s.data.put(store.Scope(true, deviceID), k, v)
	}
	return s
}

func (s *Store) Get(_ context.Context, key string, shared bool) (string, bool, error) {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	v, ok := s.data.items[store.Scope(shared, s.deviceID)][key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string, shared bool) error {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()
	s.data.put(store.Scope(shared, s.deviceID), key, value)
	return nil
}

// ForDevice returns a view of the same backing data scoped to another device,
// so shared values are visible and per-device values are not.
func (s *Store) ForDevice(deviceID string) *Store {
	return &Store{deviceID: deviceID, data: s.data}
}

func (d *data) put(scope, key, value string) {
	if d.items[scope] == nil {
		d.items[scope] = map[string]string{}
	}
	d.items[scope][key] = value
}
