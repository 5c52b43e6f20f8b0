package evaluator

import (
	"sort"
	"sync"
)

// Environment holds the bindings of one run. It starts empty and is
// discarded when the run ends.
type Environment struct {
	mu    sync.RWMutex
	store map[string]float64
}

func NewEnvironment() *Environment {
	return &Environment{store: make(map[string]float64)}
}

func (e *Environment) Get(name string) (float64, bool) {
	e.mu.RLock()
	v, ok := e.store[name]
	e.mu.RUnlock()
	return v, ok
}

func (e *Environment) Set(name string, val float64) float64 {
	e.mu.Lock()
	e.store[name] = val
	e.mu.Unlock()
	return val
}

func (e *Environment) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.store)
}

// Names returns the bound identifiers in sorted order.
func (e *Environment) Names() []string {
	e.mu.RLock()
	names := make([]string, 0, len(e.store))
	for k := range e.store {
		names = append(names, k)
	}
	e.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Snapshot returns a copy of the bindings.
func (e *Environment) Snapshot() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	copy := make(map[string]float64, len(e.store))
	for k, v := range e.store {
		copy[k] = v
	}
	return copy
}
