package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// LRUStore is a bounded Store evicting the least recently used key.
type LRUStore[V any] struct {
	cache *lru.Cache
}

var _ Store[int] = (*LRUStore[int])(nil)

// NewLRUStore returns a store holding at most size entries.
func NewLRUStore[V any](size int) (*LRUStore[V], error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("cache: new lru of size %d: %w", size, err)
	}
	return &LRUStore[V]{cache: c}, nil
}

func (s *LRUStore[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := s.cache.Get(key)
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

func (s *LRUStore[V]) Set(key string, value V) {
	s.cache.Add(key, value)
}

func (s *LRUStore[V]) Delete(key string) {
	s.cache.Remove(key)
}

func (s *LRUStore[V]) Clear() {
	s.cache.Purge()
}

func (s *LRUStore[V]) Len() int {
	return s.cache.Len()
}
