// SPDX-License-Identifier: MIT

// Package matrix - column statistics.
//
// Purpose:
//   - ColumnMeans, CenterColumns, Covariance and Correlation over observations in rows.
//   - Used by tests as straightforward references and by callers that want a
//     one-shot statistic without building an algorithm.
//
// Conventions:
//   - Sample covariance (divisor n-1). Correlation rejects zero-variance columns.
package matrix

import "math"

const (
	ctxMeans       = "ColumnMeans"
	ctxCenter      = "CenterColumns"
	ctxCovariance  = "Covariance"
	ctxCorrelation = "Correlation"
)

// ColumnMeans returns the 1×c vector of column means.
func ColumnMeans(m Matrix) (*Dense, error) {
	if err := ValidateAllocated(m); err != nil {
		return nil, matrixErrorf(ctxMeans, err)
	}
	r, c := m.Rows(), m.Cols()
	b, err := AcquireRows(m, 0, r, ReadOnly)
	if err != nil {
		return nil, matrixErrorf(ctxMeans, err)
	}
	defer func() { _ = b.Release() }()
	out, _ := NewDense(1, c)
	for i := 0; i < r; i++ {
		row := b.Row(i)
		for j, v := range row {
			out.data[j] += v
		}
	}
	for j := range out.data {
		out.data[j] /= float64(r)
	}

	return out, nil
}

// CenterColumns returns a copy of m with each column's mean subtracted,
// together with the means.
func CenterColumns(m Matrix) (*Dense, *Dense, error) {
	means, err := ColumnMeans(m)
	if err != nil {
		return nil, nil, matrixErrorf(ctxCenter, err)
	}
	r, c := m.Rows(), m.Cols()
	out, _ := NewDense(r, c)
	if err = out.CopyFrom(m); err != nil {
		return nil, nil, matrixErrorf(ctxCenter, err)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.data[i*c+j] -= means.data[j]
		}
	}

	return out, means, nil
}

// Covariance returns the c×c sample covariance of the columns of m.
//
// Errors:
//   - ErrTooFewObservations when m has fewer than two rows.
func Covariance(m Matrix) (*Dense, error) {
	if err := ValidateAllocated(m); err != nil {
		return nil, matrixErrorf(ctxCovariance, err)
	}
	if m.Rows() < 2 {
		return nil, matrixErrorf(ctxCovariance, ErrTooFewObservations)
	}
	centered, _, err := CenterColumns(m)
	if err != nil {
		return nil, matrixErrorf(ctxCovariance, err)
	}
	r, c := centered.r, centered.c
	out, _ := NewDense(c, c)
	for i := 0; i < r; i++ {
		row := centered.data[i*c : (i+1)*c]
		for j := 0; j < c; j++ {
			for k := j; k < c; k++ {
				out.data[j*c+k] += row[j] * row[k]
			}
		}
	}
	den := float64(r - 1)
	for j := 0; j < c; j++ {
		for k := j; k < c; k++ {
			v := out.data[j*c+k] / den
			out.data[j*c+k] = v
			out.data[k*c+j] = v
		}
	}

	return out, nil
}

// Correlation returns the c×c Pearson correlation of the columns of m.
//
// Errors:
//   - ErrTooFewObservations, ErrZeroVariance.
func Correlation(m Matrix) (*Dense, error) {
	cov, err := Covariance(m)
	if err != nil {
		return nil, matrixErrorf(ctxCorrelation, err)
	}
	c := cov.c
	sd := make([]float64, c)
	for j := 0; j < c; j++ {
		v := cov.data[j*c+j]
		if v <= 0 {
			return nil, matrixErrorf(ctxCorrelation, ErrZeroVariance)
		}
		sd[j] = math.Sqrt(v)
	}
	for j := 0; j < c; j++ {
		for k := 0; k < c; k++ {
			cov.data[j*c+k] /= sd[j] * sd[k]
		}
	}

	return cov, nil
}

// AllClose reports whether a and b have the same shape and every pair of
// elements differs by at most atol + rtol*|b|.
func AllClose(a, b Matrix, rtol, atol float64) bool {
	if ValidateAllocated(a) != nil || ValidateAllocated(b) != nil {
		return false
	}
	if ValidateSameShape(a, b) != nil {
		return false
	}
	for i := 0; i < a.Rows(); i++ {
		for j := 0; j < a.Cols(); j++ {
			x, _ := a.At(i, j)
			y, _ := b.At(i, j)
			if math.Abs(x-y) > atol+rtol*math.Abs(y) {
				return false
			}
		}
	}

	return true
}
