package trigger

import (
	"log/slog"
	"sync"

	"github.com/rendis/opkit/pkg/ops"
)

// Factory creates a fresh Trigger instance. Registries store factories
// rather than instances so every tick works with new trigger state.
type Factory func() Trigger

// Registry maps trigger names to factories. Safe for concurrent use;
// registration typically happens at startup but spawning runs on every
// tick.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	order     []string
	logger    *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// WithLogger sets the logger used for registration reporting.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

func (r *Registry) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}

// Set registers a factory under the name reported by a probe instance.
// Registering a name twice is a Trigger error.
func (r *Registry) Set(factory Factory) error {
	name := factory().Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		return ops.TriggerErrf("Trigger type %s is already registered", name)
	}
	r.factories[name] = factory
	r.order = append(r.order, name)
	r.log().Info("registered trigger", "trigger", name)
	return nil
}

// Spawn creates a fresh instance of the named trigger.
func (r *Registry) Spawn(name string) (Trigger, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, ops.TriggerErrf(
			"No trigger registered for trigger name: %s, Registered triggers: %v",
			name, r.Names())
	}
	return factory(), nil
}

// SpawnAll creates one fresh instance of every registered trigger, in
// registration order.
func (r *Registry) SpawnAll() []Trigger {
	r.mu.RLock()
	defer r.mu.RUnlock()
	triggers := make([]Trigger, 0, len(r.order))
	for _, name := range r.order {
		triggers = append(triggers, r.factories[name]())
	}
	return triggers
}

// Names returns the registered trigger names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// IsRegistered reports whether a trigger with the given name exists.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Unregister removes the named trigger and reports whether it existed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; !ok {
		return false
	}
	delete(r.factories, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of registered triggers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}
