// SPDX-License-Identifier: MIT

package algo

import "github.com/katalvlaran/algokit/matrix"

// DefaultBlockRows is the number of rows kernels acquire per block when
// streaming over a large input table.
const DefaultBlockRows = 512

// AcquireAll acquires every row of m. Failures append ErrorBlockAccess.
func AcquireAll(m matrix.Matrix, mode matrix.AccessMode, name string, errs *ErrorCollection) (*matrix.Block, bool) {
	if !matrix.IsAllocated(m) {
		errs.AddArgument(ErrorNullOutputNumericTable, name)
		return nil, false
	}
	b, err := matrix.AcquireRows(m, 0, m.Rows(), mode)
	if err != nil {
		errs.AddCause(ErrorBlockAccess, name, err)
		return nil, false
	}

	return b, true
}

// Release hands b back, appending ErrorBlockAccess on failure.
func Release(b *matrix.Block, name string, errs *ErrorCollection) {
	if b == nil {
		return
	}
	if err := b.Release(); err != nil {
		errs.AddCause(ErrorBlockAccess, name, err)
	}
}

// ForEachBlock walks m in row blocks of at most rows rows, read-only, and
// calls fn with the flat data of each block. It stops at the first failure.
func ForEachBlock(m matrix.Matrix, rows int, name string, errs *ErrorCollection, fn func(row0, n int, data []float64)) bool {
	if rows <= 0 {
		rows = DefaultBlockRows
	}
	total := m.Rows()
	for row0 := 0; row0 < total; row0 += rows {
		n := rows
		if row0+n > total {
			n = total - row0
		}
		b, err := matrix.AcquireRows(m, row0, n, matrix.ReadOnly)
		if err != nil {
			errs.AddCause(ErrorBlockAccess, name, err)
			return false
		}
		fn(row0, n, b.Data)
		Release(b, name, errs)
	}

	return errs.IsEmpty()
}
