// Package syncx provides small synchronization helpers
package syncx

import "sync"

// Guard is an RWMutex-protected single value slot. Writers replace the
// value wholesale; readers get the current value. T should be a value
// type or treated as immutable once stored.
type Guard[T any] struct {
	mu    sync.RWMutex
	value T
}

// NewGuard creates a guard holding initial.
func NewGuard[T any](initial T) *Guard[T] {
	return &Guard[T]{value: initial}
}

// Get returns the current value.
func (g *Guard[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Set replaces the value.
func (g *Guard[T]) Set(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}

// Swap replaces the value and returns the previous one.
func (g *Guard[T]) Swap(v T) T {
	g.mu.Lock()
	defer g.mu.Unlock()
	old := g.value
	g.value = v
	return old
}
