package cache

import "sync"

// MapStore is an unbounded Store guarded by a RWMutex.
type MapStore[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
}

var _ Store[int] = (*MapStore[int])(nil)

// NewMapStore returns an empty MapStore.
func NewMapStore[V any]() *MapStore[V] {
	return &MapStore[V]{entries: make(map[string]V)}
}

func (s *MapStore[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

func (s *MapStore[V]) Set(key string, value V) {
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
}

func (s *MapStore[V]) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *MapStore[V]) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]V)
	s.mu.Unlock()
}

func (s *MapStore[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
