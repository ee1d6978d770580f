// SPDX-License-Identifier: MIT

package algo

import "sync/atomic"

// AtomicInt is an integer safe for concurrent Inc/Dec/Get/Set. It backs the
// reference counts of shared collections and the allocator statistics.
type AtomicInt struct {
	v atomic.Int64
}

// Inc adds one and returns the new value.
func (a *AtomicInt) Inc() int64 { return a.v.Add(1) }

// Dec subtracts one and returns the new value.
func (a *AtomicInt) Dec() int64 { return a.v.Add(-1) }

// Add adds d and returns the new value.
func (a *AtomicInt) Add(d int64) int64 { return a.v.Add(d) }

// Get returns the current value.
func (a *AtomicInt) Get() int64 { return a.v.Load() }

// Set stores v.
func (a *AtomicInt) Set(v int64) { a.v.Store(v) }
