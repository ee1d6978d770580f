// SPDX-License-Identifier: MIT

// Package matrix defines the numeric container used by every algorithm in algokit.
//
// What & Why:
//
//	Matrix is a uniform abstraction over two-dimensional mutable arrays of float64
//	values. Kernels never touch storage directly through this interface: they acquire
//	row or column blocks (see block.go), work on flat slices and release them. Dense
//	exposes its row-major buffer without copying; any other implementation goes through
//	the At/Set fallback.
//
// Complexity:
//
//	Rows() and Cols() run in O(1) time.
//	At() and Set() perform bounds checking in O(1) time, returning an error on invalid indices.
//	Clone() performs a deep copy in O(rows*cols) time, allocating new storage.
package matrix

// Matrix represents a two-dimensional mutable array of float64 values.
// Each method enforces bounds checking and returns clear errors on misuse.
// Users can implement this interface to provide custom storage layouts.
type Matrix interface {
	// Rows returns the number of rows in the matrix.
	Rows() int

	// Cols returns the number of columns in the matrix.
	Cols() int

	// At retrieves the element at position (i, j).
	// Returns ErrOutOfRange if i<0, i>=Rows(), j<0 or j>=Cols().
	At(i, j int) (float64, error)

	// Set assigns the value v at position (i, j).
	// Returns ErrOutOfRange if indices are invalid.
	Set(i, j int, v float64) error

	// Clone returns a deep copy of the matrix.
	Clone() Matrix
}

// Allocator is implemented by containers whose storage may be absent
// (declared shape without a buffer).
type Allocator interface {
	Allocated() bool
}

// IsAllocated reports whether m refers to usable storage.
// A nil interface, a typed nil *Dense, and an implementation reporting
// Allocated()==false are all unallocated.
func IsAllocated(m Matrix) bool {
	if m == nil {
		return false
	}
	if d, ok := m.(*Dense); ok {
		return d != nil && d.data != nil
	}
	if a, ok := m.(Allocator); ok {
		return a.Allocated()
	}

	return true
}
