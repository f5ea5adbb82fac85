package loader

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Factory builds a loader instance for a registered identifier.
type Factory func() (Loader, error)

// Registry maps loader identifiers used in configuration to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// Register adds a factory under id. Duplicate ids return an error.
func (r *Registry) Register(id string, factory Factory) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("loader: identifier is required")
	}
	if factory == nil {
		return fmt.Errorf("loader: factory for %q is required", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[id]; exists {
		return fmt.Errorf("loader: %q already registered", id)
	}
	r.factories[id] = factory
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(id string, factory Factory) {
	if err := r.Register(id, factory); err != nil {
		panic(err)
	}
}

// Resolve builds the loader registered under id. Unknown identifiers and
// factories that fail or return nil resolve to (nil, false).
func (r *Registry) Resolve(id string) (Loader, bool) {
	r.mu.RLock()
	factory, ok := r.factories[strings.TrimSpace(id)]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	l, err := factory()
	if err != nil || l == nil {
		return nil, false
	}
	return l, true
}

// List returns a sorted list of registered identifiers.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.factories[strings.TrimSpace(id)]
	return ok
}
