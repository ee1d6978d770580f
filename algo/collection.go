// SPDX-License-Identifier: MIT

package algo

import "sync"

// Collection is an append-only, reference-counted list shared between the
// producers of distributed partial results and the master that consumes them.
// Items only ever grow through Add; Clear empties the list once the master
// has reduced it.
type Collection[T any] struct {
	mu    sync.Mutex
	items []T
	refs  AtomicInt
}

// NewCollection returns an empty collection holding one reference.
func NewCollection[T any]() *Collection[T] {
	c := &Collection[T]{}
	c.refs.Set(1)

	return c
}

// Add appends v.
func (c *Collection[T]) Add(v T) {
	c.mu.Lock()
	c.items = append(c.items, v)
	c.mu.Unlock()
}

// Len returns the number of items.
func (c *Collection[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// At returns item i.
func (c *Collection[T]) At(i int) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if i < 0 || i >= len(c.items) {
		return zero, false
	}

	return c.items[i], true
}

// Items returns a snapshot of the items.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)

	return out
}

// Clear drops every item.
func (c *Collection[T]) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Retain adds a reference and returns c.
func (c *Collection[T]) Retain() *Collection[T] {
	c.refs.Inc()

	return c
}

// Release drops a reference; the last one clears the items.
// It returns the remaining reference count.
func (c *Collection[T]) Release() int64 {
	n := c.refs.Dec()
	if n == 0 {
		c.Clear()
	}

	return n
}

// Refs returns the current reference count.
func (c *Collection[T]) Refs() int64 { return c.refs.Get() }
