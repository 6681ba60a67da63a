// Package task holds the worker's task functions and the explicit
// registry mapping task names to them. Workers populate the registry at
// startup and look tasks up by name when a job is delivered.
package task

import (
	"context"
	"fmt"
	"sync"

	"github.com/tallyq/tally/internal/domain"
)

// Func computes the statistics for decoded file contents. A returned
// error settles the job as a business FAILURE, not an infrastructure
// fault.
type Func func(ctx context.Context, contents []byte) (domain.Stats, error)

// Registry maps task names to task functions. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Func
}

// NewRegistry creates an empty task registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Func)}
}

// Register binds a task function to a name. Registering the same name
// twice panics: duplicate registration is a programming error.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[name]; exists {
		panic(fmt.Sprintf("task: duplicate registration for %q", name))
	}
	r.tasks[name] = fn
}

// Lookup returns the task function registered under name.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tasks[name]
	return fn, ok
}

// Names returns the registered task names (for logging and diagnostics).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	return names
}

// Default returns a registry with all built-in tasks registered.
func Default() *Registry {
	r := NewRegistry()
	r.Register(FileStatsName, FileStats)
	return r
}
