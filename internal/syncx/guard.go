// Package syncx provides extended synchronization primitives
package syncx

import "sync"

// RWGuard holds a value behind an RWMutex. Writers may validate the new value
// and watchers are told about every accepted change.
type RWGuard[T any] struct {
	mu       sync.RWMutex
	value    T
	watchers []func(old, new T)
}

// NewGuard creates a guarded value.
func NewGuard[T any](initial T) *RWGuard[T] {
	return &RWGuard[T]{value: initial}
}

// Get returns a copy of the value (T should be value type or immutable).
func (g *RWGuard[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Set replaces the value unconditionally.
func (g *RWGuard[T]) Set(v T) {
	g.Swap(v)
}

// Swap replaces and returns the old value.
func (g *RWGuard[T]) Swap(v T) T {
	g.mu.Lock()
	old := g.value
	g.value = v
	watchers := g.watchers
	g.mu.Unlock()

	notify(watchers, old, v)
	return old
}

// SetValid replaces the value only if check accepts it.
func (g *RWGuard[T]) SetValid(v T, check func(T) error) error {
	if err := check(v); err != nil {
		return err
	}
	g.Swap(v)
	return nil
}

// Update derives the next value from the current one under the write lock.
// An error from fn leaves the value untouched.
func (g *RWGuard[T]) Update(fn func(T) (T, error)) (T, error) {
	g.mu.Lock()
	old := g.value
	next, err := fn(old)
	if err != nil {
		g.mu.Unlock()
		return old, err
	}
	g.value = next
	watchers := g.watchers
	g.mu.Unlock()

	notify(watchers, old, next)
	return next, nil
}

// Watch registers fn to run after each change, outside the lock.
func (g *RWGuard[T]) Watch(fn func(old, new T)) {
	g.mu.Lock()
	g.watchers = append(g.watchers, fn)
	g.mu.Unlock()
}

func notify[T any](watchers []func(old, new T), old, next T) {
	for _, fn := range watchers {
		fn(old, next)
	}
}
