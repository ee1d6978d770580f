// SPDX-License-Identifier: MIT

// Package matrix - block access.
//
// Purpose:
//   - Give kernels a flat []float64 view over a run of rows or over one column,
//     independent of the concrete Matrix implementation.
//   - *Dense row blocks alias the underlying buffer (no copy); every other case
//     copies in on acquire and writes back on Release when the mode allows it.
//
// Contract:
//   - Acquire → work on Block.Data → Release, strictly in that order.
//   - ReadOnly blocks must not be written; WriteOnly blocks start zeroed when copied.
//
// Complexity:
//   - Dense row block: O(1). Fallback row block: O(n*cols). Column block: O(n).
package matrix

const (
	ctxAcquireRows   = "AcquireRows"
	ctxAcquireColumn = "AcquireColumn"
	ctxRelease       = "Block.Release"
)

// AccessMode declares how a block will be used.
type AccessMode int

const (
	// ReadOnly blocks are never written back.
	ReadOnly AccessMode = iota
	// WriteOnly blocks are not filled from the source but are written back.
	WriteOnly
	// ReadWrite blocks are filled and written back.
	ReadWrite
)

// String implements fmt.Stringer.
func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "readOnly"
	case WriteOnly:
		return "writeOnly"
	case ReadWrite:
		return "readWrite"
	default:
		return "unknown"
	}
}

// Block is a flat window into a Matrix.
type Block struct {
	// Data holds Rows*Cols values in row-major order.
	Data []float64
	// Row0 is the first source row covered by the block.
	Row0 int
	// Rows and Cols give the block shape. Column blocks have Cols == 1.
	Rows, Cols int

	src      Matrix
	mode     AccessMode
	column   int // source column for column blocks, -1 for row blocks
	direct   bool
	released bool
}

// Mode returns the access mode the block was acquired with.
func (b *Block) Mode() AccessMode { return b.mode }

// Row returns row i of the block as a sub-slice of Data.
func (b *Block) Row(i int) []float64 { return b.Data[i*b.Cols : (i+1)*b.Cols] }

// AcquireRows returns rows [row0, row0+n) of m.
//
// Errors:
//   - ErrNilMatrix / ErrNotAllocated for missing storage.
//   - ErrOutOfRange when the window exceeds m.
func AcquireRows(m Matrix, row0, n int, mode AccessMode) (*Block, error) {
	if err := ValidateAllocated(m); err != nil {
		return nil, matrixErrorf(ctxAcquireRows, err)
	}
	if row0 < 0 || n < 0 || row0+n > m.Rows() {
		return nil, matrixErrorf(ctxAcquireRows, ErrOutOfRange)
	}
	c := m.Cols()
	b := &Block{Row0: row0, Rows: n, Cols: c, src: m, mode: mode, column: -1}

	// Fast path: alias the contiguous row-major range.
	if d, ok := m.(*Dense); ok {
		b.Data = d.data[row0*c : (row0+n)*c]
		b.direct = true
		return b, nil
	}

	b.Data = make([]float64, n*c)
	if mode == WriteOnly {
		return b, nil
	}
	for i := 0; i < n; i++ {
		for j := 0; j < c; j++ {
			v, err := m.At(row0+i, j)
			if err != nil {
				return nil, matrixErrorf(ctxAcquireRows, err)
			}
			b.Data[i*c+j] = v
		}
	}

	return b, nil
}

// AcquireColumn returns rows [row0, row0+n) of column col as an n×1 block.
func AcquireColumn(m Matrix, col, row0, n int, mode AccessMode) (*Block, error) {
	if err := ValidateAllocated(m); err != nil {
		return nil, matrixErrorf(ctxAcquireColumn, err)
	}
	if col < 0 || col >= m.Cols() || row0 < 0 || n < 0 || row0+n > m.Rows() {
		return nil, matrixErrorf(ctxAcquireColumn, ErrOutOfRange)
	}
	b := &Block{Data: make([]float64, n), Row0: row0, Rows: n, Cols: 1, src: m, mode: mode, column: col}
	if mode == WriteOnly {
		return b, nil
	}
	if d, ok := m.(*Dense); ok {
		for i := 0; i < n; i++ {
			b.Data[i] = d.data[(row0+i)*d.c+col]
		}
		return b, nil
	}
	for i := 0; i < n; i++ {
		v, err := m.At(row0+i, col)
		if err != nil {
			return nil, matrixErrorf(ctxAcquireColumn, err)
		}
		b.Data[i] = v
	}

	return b, nil
}

// Release hands the block back. Writable copied blocks are stored into the
// source matrix. Releasing twice is an error.
func (b *Block) Release() error {
	if b == nil || b.released {
		return matrixErrorf(ctxRelease, ErrAccessMode)
	}
	b.released = true
	if b.direct || b.mode == ReadOnly {
		return nil
	}
	if b.column >= 0 {
		if d, ok := b.src.(*Dense); ok {
			for i := 0; i < b.Rows; i++ {
				d.data[(b.Row0+i)*d.c+b.column] = b.Data[i]
			}
			return nil
		}
		for i := 0; i < b.Rows; i++ {
			if err := b.src.Set(b.Row0+i, b.column, b.Data[i]); err != nil {
				return matrixErrorf(ctxRelease, err)
			}
		}
		return nil
	}
	for i := 0; i < b.Rows; i++ {
		for j := 0; j < b.Cols; j++ {
			if err := b.src.Set(b.Row0+i, j, b.Data[i*b.Cols+j]); err != nil {
				return matrixErrorf(ctxRelease, err)
			}
		}
	}

	return nil
}
