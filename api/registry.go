// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// BackendOptions is passed to a backend factory.
type BackendOptions struct {
	// ApplicationName is forwarded to diagnostics by backends that log.
	ApplicationName string

	// Params carries backend-specific settings.
	Params map[string]string
}

// BackendFactory opens a runtime.
type BackendFactory func(opts BackendOptions) (Runtime, error)

// BackendEntry is a registered runtime backend.
type BackendEntry struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines selection order (higher = preferred).
	// Native runtime bindings use 100, the simulated runtime 10.
	Priority int

	// Factory opens the runtime.
	Factory BackendFactory

	// Available reports if the backend can be opened on this system.
	Available func() bool
}

var defaultRegistry = NewRegistry()

// Registry manages registered runtime backends.
//
// Backends register themselves from init:
//
//	func init() {
//	    api.RegisterBackend("simulated", 10, open, nil)
//	}
//
// and callers pick one by name or by priority:
//
//	rt, err := api.OpenBackend("simulated", api.BackendOptions{})
//	rt, err := api.OpenBest(api.BackendOptions{})
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*BackendEntry
}

// NewRegistry creates an empty registry.
// Most code should use the package-level functions.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*BackendEntry)}
}

// RegisterBackend adds a backend to the default registry.
// If available is nil, the backend is assumed always available.
// Registering an existing name replaces the previous entry.
func RegisterBackend(name string, priority int, factory BackendFactory, available func() bool) {
	defaultRegistry.Register(name, priority, factory, available)
}

// UnregisterBackend removes a backend from the default registry.
func UnregisterBackend(name string) {
	defaultRegistry.Unregister(name)
}

// Backends returns registered backend names, highest priority first.
func Backends() []string {
	return defaultRegistry.List()
}

// AvailableBackends returns available backend names, highest priority first.
func AvailableBackends() []string {
	return defaultRegistry.Available()
}

// OpenBackend opens the named backend from the default registry.
func OpenBackend(name string, opts BackendOptions) (Runtime, error) {
	return defaultRegistry.Open(name, opts)
}

// OpenBest opens the highest-priority backend that succeeds.
func OpenBest(opts BackendOptions) (Runtime, error) {
	return defaultRegistry.OpenBest(opts)
}

// Register adds a backend to this registry.
func (r *Registry) Register(name string, priority int, factory BackendFactory, available func() bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if available == nil {
		available = func() bool { return true }
	}
	r.entries[name] = &BackendEntry{
		Name:      name,
		Priority:  priority,
		Factory:   factory,
		Available: available,
	}
}

// Unregister removes a backend.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, name)
}

// List returns all backend names sorted by priority.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(false)
}

// Available returns available backend names sorted by priority.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.sortedNames(true)
}

// Get returns a copy of a backend entry.
func (r *Registry) Get(name string) (*BackendEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	entryCopy := *entry
	return &entryCopy, true
}

// Open opens the named backend.
func (r *Registry) Open(name string, opts BackendOptions) (Runtime, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &BackendNotFoundError{Name: name}
	}
	if !entry.Available() {
		return nil, &BackendUnavailableError{Name: name}
	}
	rt, err := entry.Factory(opts)
	if err != nil {
		return nil, fmt.Errorf("api: open backend %q: %w", name, err)
	}
	return rt, nil
}

// OpenBest tries available backends in priority order.
func (r *Registry) OpenBest(opts BackendOptions) (Runtime, error) {
	r.mu.RLock()
	available := r.sortedNames(true)
	r.mu.RUnlock()

	if len(available) == 0 {
		return nil, ErrNoBackendAvailable
	}

	var errs []error
	for _, name := range available {
		rt, err := r.Open(name, opts)
		if err == nil {
			return rt, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// sortedNames returns names sorted by priority, highest first, ties by name.
// Must be called with lock held.
func (r *Registry) sortedNames(onlyAvailable bool) []string {
	entries := make([]*BackendEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if onlyAvailable && !e.Available() {
			continue
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].Name < entries[j].Name
	})

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

// ErrNoBackendAvailable is returned when no backend is registered or
// available.
var ErrNoBackendAvailable = errors.New("api: no runtime backend available")

// BackendNotFoundError is returned for an unknown backend name.
type BackendNotFoundError struct {
	Name string
}

func (e *BackendNotFoundError) Error() string {
	return "api: backend not found: " + e.Name
}

// BackendUnavailableError is returned when a backend reports it cannot run.
type BackendUnavailableError struct {
	Name string
}

func (e *BackendUnavailableError) Error() string {
	return "api: backend not available: " + e.Name
}
