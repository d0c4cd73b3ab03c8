package registry

import (
	"fmt"
	"log/slog"
	"sync"
)

// Registry holds the set of functions exposed by a serving instance.
// All methods are safe for concurrent use.
type Registry struct {
	logger *slog.Logger
	funcs  map[string]Function
	mu     sync.RWMutex
}

// NewRegistry creates an empty registry. A nil logger falls back to
// slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger,
		funcs:  make(map[string]Function),
	}
}

// Register captures fns into the registry.
//
// When replace is true the exposed set becomes exactly fns: entries from any
// previous registration are dropped, and registering the same set twice is a
// no-op. When replace is false registration is additive; a function with a
// name already present overwrites the previous entry.
func (r *Registry) Register(fns []Function, replace bool) error {
	for _, f := range fns {
		if f == nil {
			return fmt.Errorf("registry: cannot register nil function")
		}
		if f.Name() == "" {
			return fmt.Errorf("registry: cannot register function with empty name")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if replace {
		r.funcs = make(map[string]Function, len(fns))
	}
	for _, f := range fns {
		r.funcs[f.Name()] = f
	}

	r.logger.Info("functions registered",
		slog.Int("count", len(fns)),
		slog.Bool("replace", replace),
		slog.Int("total", len(r.funcs)),
	)
	return nil
}

// Get returns the registered function with the given name.
func (r *Registry) Get(name string) (Function, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("function not found: %s", name)
	}
	return f, nil
}

// Snapshot returns the current name-to-descriptor mapping. The returned map
// is a copy; registry state is not affected by reads or later registrations.
func (r *Registry) Snapshot() map[string]Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make(map[string]Descriptor, len(r.funcs))
	for name, f := range r.funcs {
		snapshot[name] = ToDescriptor(f)
	}
	return snapshot
}

// Functions returns the currently registered functions.
func (r *Registry) Functions() []Function {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fns := make([]Function, 0, len(r.funcs))
	for _, f := range r.funcs {
		fns = append(fns, f)
	}
	return fns
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.funcs)
}
