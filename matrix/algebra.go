// SPDX-License-Identifier: MIT

// Package matrix - dense linear algebra used by the algorithm kernels.
//
// Purpose:
//   - Mul / Transpose with a *Dense fast path and an At/Set fallback.
//   - Jacobi eigen-decomposition for symmetric matrices (Eigen, EigenSym).
//   - Householder triangularisation (HouseholderR) returning only the R factor,
//     which is all a distributed Gram-matrix reduction needs.
//
// Determinism:
//   - Fixed loop orders and pivot rules; results depend only on inputs and options.
package matrix

import (
	"math"
	"sort"
)

const (
	ctxMul         = "Mul"
	ctxTranspose   = "Transpose"
	ctxEigen       = "Eigen"
	ctxHouseholder = "HouseholderR"
)

// Mul returns a×b.
//
// Implementation:
//   - Stage 1 (Validate): non-nil, a.Cols()==b.Rows().
//   - Stage 2 (Fast path): i-k-j loop over flat buffers, skipping zero a[i,k].
//   - Stage 3 (Fallback): At-based triple loop.
//
// Complexity: O(r*n*c).
func Mul(a, b Matrix) (*Dense, error) {
	if err := ValidateNotNil(a); err != nil {
		return nil, matrixErrorf(ctxMul, err)
	}
	if err := ValidateNotNil(b); err != nil {
		return nil, matrixErrorf(ctxMul, err)
	}
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(ctxMul, err)
	}
	r, n, c := a.Rows(), a.Cols(), b.Cols()
	out, err := NewDense(r, c)
	if err != nil {
		return nil, matrixErrorf(ctxMul, err)
	}

	ad, aok := a.(*Dense)
	bd, bok := b.(*Dense)
	if aok && bok {
		for i := 0; i < r; i++ {
			dst := out.data[i*c : (i+1)*c]
			for k := 0; k < n; k++ {
				av := ad.data[i*n+k]
				if av == 0 {
					continue
				}
				src := bd.data[k*c : (k+1)*c]
				for j := range dst {
					dst[j] += av * src[j]
				}
			}
		}
		return out, nil
	}

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			var sum float64
			for k := 0; k < n; k++ {
				av, err := a.At(i, k)
				if err != nil {
					return nil, matrixErrorf(ctxMul, err)
				}
				bv, err := b.At(k, j)
				if err != nil {
					return nil, matrixErrorf(ctxMul, err)
				}
				sum += av * bv
			}
			out.data[i*c+j] = sum
		}
	}

	return out, nil
}

// Transpose returns mᵀ.
func Transpose(m Matrix) (*Dense, error) {
	if err := ValidateAllocated(m); err != nil {
		return nil, matrixErrorf(ctxTranspose, err)
	}
	r, c := m.Rows(), m.Cols()
	out, err := NewDense(c, r)
	if err != nil {
		return nil, matrixErrorf(ctxTranspose, err)
	}
	src, err := AcquireRows(m, 0, r, ReadOnly)
	if err != nil {
		return nil, matrixErrorf(ctxTranspose, err)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.data[j*r+i] = src.Data[i*c+j]
		}
	}

	return out, src.Release()
}

// Eigen decomposes a symmetric matrix with cyclic-pivot Jacobi rotations.
//
// Implementation:
//   - Stage 1 (Validate): symmetry within eps.
//   - Stage 2 (Rotate): repeatedly annihilate the largest off-diagonal entry,
//     accumulating rotations into Q.
//   - Stage 3 (Check): fail with ErrMatrixEigenFailed if the off-diagonal mass
//     did not fall below eps within MaxSweeps*n*n rotations.
//
// Returns:
//   - eigenvalues (diagonal order, unsorted) and Q with eigenvectors in columns.
//
// Complexity: O(n³) per sweep.
func Eigen(m Matrix, opts ...Option) ([]float64, *Dense, error) {
	o := gatherOptions(opts...)
	if err := ValidateSymmetric(m, o.eps); err != nil {
		return nil, nil, matrixErrorf(ctxEigen, err)
	}
	n := m.Rows()
	a, err := NewDense(n, n, WithNoValidateNaNInf())
	if err != nil {
		return nil, nil, matrixErrorf(ctxEigen, err)
	}
	if err = a.CopyFrom(m); err != nil {
		return nil, nil, matrixErrorf(ctxEigen, err)
	}
	q, _ := NewDense(n, n, WithNoValidateNaNInf())
	for i := 0; i < n; i++ {
		q.data[i*n+i] = 1
	}

	A, Q := a.data, q.data
	limit := o.maxSweeps * n * n
	converged := n == 1
	for iter := 0; iter < limit && !converged; iter++ {
		p, r, off := maxOffDiagonal(A, n)
		if off < o.eps {
			converged = true
			break
		}
		apq := A[p*n+r]
		theta := (A[r*n+r] - A[p*n+p]) / (2 * apq)
		t := math.Copysign(1, theta) / (math.Abs(theta) + math.Hypot(theta, 1))
		c := 1 / math.Sqrt(t*t+1)
		s := t * c

		for k := 0; k < n; k++ {
			if k == p || k == r {
				continue
			}
			akp, akr := A[k*n+p], A[k*n+r]
			A[k*n+p] = c*akp - s*akr
			A[p*n+k] = A[k*n+p]
			A[k*n+r] = s*akp + c*akr
			A[r*n+k] = A[k*n+r]
		}
		A[p*n+p] -= t * apq
		A[r*n+r] += t * apq
		A[p*n+r], A[r*n+p] = 0, 0

		for k := 0; k < n; k++ {
			vkp, vkr := Q[k*n+p], Q[k*n+r]
			Q[k*n+p] = c*vkp - s*vkr
			Q[k*n+r] = s*vkp + c*vkr
		}
	}
	if !converged {
		if _, _, off := maxOffDiagonal(A, n); off >= o.eps {
			return nil, nil, matrixErrorf(ctxEigen, ErrMatrixEigenFailed)
		}
	}

	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		vals[i] = A[i*n+i]
	}

	return vals, q, nil
}

// maxOffDiagonal returns the pivot (p<r) with the largest |A[p,r]|.
func maxOffDiagonal(A []float64, n int) (int, int, float64) {
	p, r, best := 0, 1, 0.0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if v := math.Abs(A[i*n+j]); v > best {
				p, r, best = i, j, v
			}
		}
	}

	return p, r, best
}

// EigenSym is Eigen with a canonical output layout:
// eigenvalues sorted in descending order (1×n) and the matching eigenvectors
// stored as rows (n×n), each signed so that its largest-magnitude component
// is positive.
func EigenSym(m Matrix, opts ...Option) (*Dense, *Dense, error) {
	vals, q, err := Eigen(m, opts...)
	if err != nil {
		return nil, nil, err
	}
	n := len(vals)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return vals[order[i]] > vals[order[j]] })

	values, _ := NewDense(1, n)
	vectors, _ := NewDense(n, n)
	for row, col := range order {
		values.data[row] = vals[col]
		lead := 0.0
		for k := 0; k < n; k++ {
			if v := q.data[k*n+col]; math.Abs(v) > math.Abs(lead) {
				lead = v
			}
		}
		sign := 1.0
		if lead < 0 {
			sign = -1
		}
		for k := 0; k < n; k++ {
			vectors.data[row*n+k] = sign * q.data[k*n+col]
		}
	}

	return values, vectors, nil
}

// HouseholderR triangularises an m×n matrix with Householder reflections and
// returns the n×n factor R (rows beyond min(m,n) are zero) such that RᵀR = AᵀA.
//
// Complexity: O(m*n²).
func HouseholderR(a Matrix) (*Dense, error) {
	if err := ValidateAllocated(a); err != nil {
		return nil, matrixErrorf(ctxHouseholder, err)
	}
	m, n := a.Rows(), a.Cols()
	w, err := NewDense(m, n, WithNoValidateNaNInf())
	if err != nil {
		return nil, matrixErrorf(ctxHouseholder, err)
	}
	if err = w.CopyFrom(a); err != nil {
		return nil, matrixErrorf(ctxHouseholder, err)
	}
	W := w.data
	steps := n
	if m < n {
		steps = m
	}
	v := make([]float64, m)
	for k := 0; k < steps; k++ {
		var norm float64
		for i := k; i < m; i++ {
			norm += W[i*n+k] * W[i*n+k]
		}
		norm = math.Sqrt(norm)
		if norm == 0 {
			continue
		}
		alpha := -math.Copysign(norm, W[k*n+k])
		var vv float64
		for i := k; i < m; i++ {
			v[i] = W[i*n+k]
		}
		v[k] -= alpha
		for i := k; i < m; i++ {
			vv += v[i] * v[i]
		}
		if vv == 0 {
			continue
		}
		for j := k; j < n; j++ {
			var dot float64
			for i := k; i < m; i++ {
				dot += v[i] * W[i*n+j]
			}
			f := 2 * dot / vv
			for i := k; i < m; i++ {
				W[i*n+j] -= f * v[i]
			}
		}
	}

	r, _ := NewDense(n, n, WithNoValidateNaNInf())
	for i := 0; i < steps; i++ {
		for j := i; j < n; j++ {
			r.data[i*n+j] = W[i*n+j]
		}
	}

	return r, nil
}
