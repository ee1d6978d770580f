// SPDX-License-Identifier: MIT

package algo

import (
	"errors"
	"fmt"

	"github.com/katalvlaran/algokit/matrix"
)

// ErrAllocationLimit is returned when a request exceeds the allocator cap.
var ErrAllocationLimit = errors.New("algo: allocation exceeds memory limit")

const bytesPerValue = 8

// Allocator hands out result and partial-result storage. A non-zero limit caps
// every single request; callers that hit it may retry with smaller blocks.
// Counters are atomic because one Environment is shared by the goroutines of
// a partitioned computation.
type Allocator struct {
	limit     int64
	requests  AtomicInt
	allocated AtomicInt
}

// NewAllocator returns an allocator with the given per-request cap (0: none).
func NewAllocator(limit int64) *Allocator { return &Allocator{limit: limit} }

// Dense allocates a zeroed rows×cols matrix.
func (a *Allocator) Dense(rows, cols int) (*matrix.Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("algo: allocate %dx%d: %w", rows, cols, matrix.ErrInvalidDimensions)
	}
	size := int64(rows) * int64(cols) * bytesPerValue
	if a.limit > 0 && size > a.limit {
		return nil, fmt.Errorf("algo: allocate %dx%d (%d bytes, limit %d): %w", rows, cols, size, a.limit, ErrAllocationLimit)
	}
	m, err := matrix.NewDense(rows, cols)
	if err != nil {
		return nil, fmt.Errorf("algo: allocate %dx%d: %w", rows, cols, err)
	}
	a.requests.Inc()
	a.allocated.Add(size)

	return m, nil
}

// Limit returns the per-request cap.
func (a *Allocator) Limit() int64 { return a.limit }

// Requests returns the number of successful allocations.
func (a *Allocator) Requests() int64 { return a.requests.Get() }

// AllocatedBytes returns the total number of bytes handed out.
func (a *Allocator) AllocatedBytes() int64 { return a.allocated.Get() }
