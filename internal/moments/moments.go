// SPDX-License-Identifier: MIT

// Package moments accumulates first and second raw moments of row-major
// observation blocks and turns them into covariance or correlation matrices.
// Covariance and PCA kernels share it so that their partial results
// (nObservations, sum, crossProduct) are interchangeable.
package moments

import (
	"math"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/internal/vec"
	"github.com/katalvlaran/algokit/matrix"
)

// Update folds n rows of p features (row-major data) into sum (p) and the
// full symmetric cross product (p×p). Arithmetic runs in T.
//
// Complexity: O(n*p²).
func Update[T vec.Float](data []float64, n, p, lanes int, sum, cross []float64) {
	row := make([]T, p)
	accS := make([]T, p)
	accC := make([]T, p*p)
	for i := 0; i < n; i++ {
		vec.Load(row, data[i*p:(i+1)*p])
		vec.Add(accS, row, lanes)
		for j := 0; j < p; j++ {
			if xj := row[j]; xj != 0 {
				vec.Axpy(accC[j*p+j:(j+1)*p], row[j:], xj, lanes)
			}
		}
	}
	for j := range sum {
		sum[j] += float64(accS[j])
	}
	for j := 0; j < p; j++ {
		for k := j; k < p; k++ {
			v := cross[j*p+k] + float64(accC[j*p+k])
			cross[j*p+k] = v
			cross[k*p+j] = v
		}
	}
}

// UpdateSquares folds n rows into sum (p) and per-feature sums of squares (p).
func UpdateSquares[T vec.Float](data []float64, n, p, lanes int, sum, squares []float64) {
	row := make([]T, p)
	accS := make([]T, p)
	accQ := make([]T, p)
	for i := 0; i < n; i++ {
		vec.Load(row, data[i*p:(i+1)*p])
		vec.Add(accS, row, lanes)
		for j, v := range row {
			accQ[j] += v * v
		}
	}
	for j := range sum {
		sum[j] += float64(accS[j])
		squares[j] += float64(accQ[j])
	}
}

// Merge adds the moments of another partition into the destination.
func Merge(dstSum, dstCross, sum, cross []float64) {
	for j := range dstSum {
		dstSum[j] += sum[j]
	}
	for j := range dstCross {
		dstCross[j] += cross[j]
	}
}

// Covariance writes the sample covariance (p×p) and the mean (p) for n
// observations. It returns false when n < 2.
func Covariance(n float64, sum, cross []float64, p int, cov, mean []float64) bool {
	if n < 1 {
		return false
	}
	for j := 0; j < p; j++ {
		mean[j] = sum[j] / n
	}
	if n < 2 {
		return false
	}
	den := n - 1
	for j := 0; j < p; j++ {
		for k := j; k < p; k++ {
			v := (cross[j*p+k] - sum[j]*sum[k]/n) / den
			cov[j*p+k] = v
			cov[k*p+j] = v
		}
	}

	return true
}

// Correlation writes the Pearson correlation (p×p) and the mean (p).
// It returns false when n < 2 or a feature has zero variance.
func Correlation(n float64, sum, cross []float64, p int, corr, mean []float64) bool {
	if !Covariance(n, sum, cross, p, corr, mean) {
		return false
	}
	sd := make([]float64, p)
	for j := 0; j < p; j++ {
		v := corr[j*p+j]
		if v <= 0 {
			return false
		}
		sd[j] = math.Sqrt(v)
	}
	for j := 0; j < p; j++ {
		for k := 0; k < p; k++ {
			corr[j*p+k] /= sd[j] * sd[k]
		}
		corr[j*p+j] = 1
	}

	return true
}

// Accumulate folds every row of data into the moment tables
// nObs (1×1), cross (p×p) and sum (1×p), walking data in row blocks.
func Accumulate[T vec.Float](data matrix.Matrix, lanes int, nObs, cross, sum matrix.Matrix, errs *algo.ErrorCollection) {
	nb, ok := algo.AcquireAll(nObs, matrix.ReadWrite, "nObservations", errs)
	if !ok {
		return
	}
	defer algo.Release(nb, "nObservations", errs)
	cb, ok := algo.AcquireAll(cross, matrix.ReadWrite, "crossProduct", errs)
	if !ok {
		return
	}
	defer algo.Release(cb, "crossProduct", errs)
	sb, ok := algo.AcquireAll(sum, matrix.ReadWrite, "sum", errs)
	if !ok {
		return
	}
	defer algo.Release(sb, "sum", errs)

	p := data.Cols()
	algo.ForEachBlock(data, algo.DefaultBlockRows, "data", errs, func(_, n int, rows []float64) {
		Update[T](rows, n, p, lanes, sb.Data, cb.Data)
		nb.Data[0] += float64(n)
	})
}

// MergeTables adds every (nObs, cross, sum) triple of in into out.
// in is the flat concatenation of the contributions.
func MergeTables(in, out []matrix.Matrix, errs *algo.ErrorCollection) {
	names := [3]string{"nObservations", "crossProduct", "sum"}
	dst := make([]*matrix.Block, 3)
	for i := range dst {
		b, ok := algo.AcquireAll(out[i], matrix.ReadWrite, names[i], errs)
		if !ok {
			return
		}
		defer algo.Release(b, names[i], errs)
		dst[i] = b
	}
	for i := 0; i+2 < len(in); i += 3 {
		for j := 0; j < 3; j++ {
			src, ok := algo.AcquireAll(in[i+j], matrix.ReadOnly, names[j], errs)
			if !ok {
				return
			}
			for k, v := range src.Data {
				dst[j].Data[k] += v
			}
			algo.Release(src, names[j], errs)
		}
	}
}

// Kind selects the matrix Finalize produces.
type Kind int

const (
	KindCovariance Kind = iota
	KindCorrelation
)

// Finalize writes the covariance or correlation matrix (p×p) and the mean
// (1×p) from moment tables. Degenerate moments append a numeric error.
func Finalize(kind Kind, nObs, cross, sum, outMatrix, outMean matrix.Matrix, errs *algo.ErrorCollection) {
	nb, ok := algo.AcquireAll(nObs, matrix.ReadOnly, "nObservations", errs)
	if !ok {
		return
	}
	defer algo.Release(nb, "nObservations", errs)
	cb, ok := algo.AcquireAll(cross, matrix.ReadOnly, "crossProduct", errs)
	if !ok {
		return
	}
	defer algo.Release(cb, "crossProduct", errs)
	sb, ok := algo.AcquireAll(sum, matrix.ReadOnly, "sum", errs)
	if !ok {
		return
	}
	defer algo.Release(sb, "sum", errs)
	mb, ok := algo.AcquireAll(outMatrix, matrix.WriteOnly, "matrix", errs)
	if !ok {
		return
	}
	defer algo.Release(mb, "matrix", errs)
	eb, ok := algo.AcquireAll(outMean, matrix.WriteOnly, "mean", errs)
	if !ok {
		return
	}
	defer algo.Release(eb, "mean", errs)

	n := nb.Data[0]
	p := sum.Cols()
	if n < 2 {
		errs.AddArgument(algo.ErrorInsufficientObservations, "nObservations")
		return
	}
	if kind == KindCorrelation {
		if !Correlation(n, sb.Data, cb.Data, p, mb.Data, eb.Data) {
			errs.AddArgument(algo.ErrorZeroVariance, "data")
		}
		return
	}
	Covariance(n, sb.Data, cb.Data, p, mb.Data, eb.Data)
}
