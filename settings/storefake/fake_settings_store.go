package storefake

import (
	"sort"
	"sync"

	"github.com/needle-digital/dh-importer/settings"
)

var _ settings.Store = (*FakeSettingsStore)(nil)

// FakeSettingsStore is an in-memory settings.Store for tests.
type FakeSettingsStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewFakeSettingsStore() *FakeSettingsStore {
	return &FakeSettingsStore{values: make(map[string]string)}
}

func (s *FakeSettingsStore) Get(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[key]
	if !ok {
		return "", settings.ErrNotFound
	}
	return value, nil
}

func (s *FakeSettingsStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
	return nil
}

func (s *FakeSettingsStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Keys returns the stored keys in sorted order, for assertions.
func (s *FakeSettingsStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
