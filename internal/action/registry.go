package action

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Handler executes one action. Handlers are pure functions of params with no
// knowledge of tasks or plans; they may do asynchronous I/O and may fail.
type Handler func(ctx context.Context, params map[string]any) (map[string]any, error)

// Registry maps action names to handlers. It is constructed once at startup,
// passed by reference into the executor, and read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

func (r *Registry) Register(name string, h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("action %q already registered", name)
	}
	r.handlers[name] = h
	return nil
}

// Lookup returns the handler for name. A missing handler is an error
// condition the executor records on the task, not a panic.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
