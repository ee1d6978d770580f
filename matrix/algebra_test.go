// SPDX-License-Identifier: MIT

package matrix_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/algokit/matrix"
)

func TestMul_FastPathMatchesFallback(t *testing.T) {
	t.Parallel()
	a := NewFilledDense(t, 3, 4, func(i, j int) float64 { return float64(i - j) })
	b := NewFilledDense(t, 4, 2, func(i, j int) float64 { return float64(i*j + 1) })

	fast, err := matrix.Mul(a, b)
	require.NoError(t, err)
	slow, err := matrix.Mul(hide{a}, b)
	require.NoError(t, err)
	assert.True(t, matrix.AllClose(fast, slow, 0, 0))
	assert.Equal(t, -6.0, MustAt(t, fast, 0, 0)) // 0 - 1 - 2 - 3
}

func TestMul_DimensionMismatch(t *testing.T) {
	t.Parallel()
	_, err := matrix.Mul(MustDense(t, 2, 3), MustDense(t, 2, 3))
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestTranspose(t *testing.T) {
	t.Parallel()
	m := MustRows(t, [][]float64{{1, 2, 3}, {4, 5, 6}})
	tr, err := matrix.Transpose(m)
	require.NoError(t, err)
	assert.Equal(t, 3, tr.Rows())
	assert.Equal(t, []float64{1, 4, 2, 5, 3, 6}, tr.Values())
}

func TestEigen_ReconstructsMatrix(t *testing.T) {
	t.Parallel()
	a := MustRows(t, [][]float64{
		{4, 1, 0.5},
		{1, 3, 0.2},
		{0.5, 0.2, 2},
	})
	vals, q, err := matrix.Eigen(a)
	require.NoError(t, err)

	// A·q_k = λ_k·q_k for every column k.
	aq, err := matrix.Mul(a, q)
	require.NoError(t, err)
	for k, lambda := range vals {
		for i := 0; i < 3; i++ {
			assert.InDelta(t, lambda*MustAt(t, q, i, k), MustAt(t, aq, i, k), 1e-9)
		}
	}
}

func TestEigen_RejectsAsymmetric(t *testing.T) {
	t.Parallel()
	_, _, err := matrix.Eigen(MustRows(t, [][]float64{{1, 2}, {0, 1}}))
	require.ErrorIs(t, err, matrix.ErrAsymmetry)
}

func TestEigenSym_SortedAndSigned(t *testing.T) {
	t.Parallel()
	a := MustRows(t, [][]float64{{2, 1}, {1, 2}})
	vals, vecs, err := matrix.EigenSym(a)
	require.NoError(t, err)
	assert.InDelta(t, 3, MustAt(t, vals, 0, 0), 1e-12)
	assert.InDelta(t, 1, MustAt(t, vals, 0, 1), 1e-12)

	s := 1 / math.Sqrt2
	assert.InDelta(t, s, MustAt(t, vecs, 0, 0), 1e-12)
	assert.InDelta(t, s, MustAt(t, vecs, 0, 1), 1e-12)
	// Largest-magnitude component of every row is positive.
	for i := 0; i < 2; i++ {
		a, b := MustAt(t, vecs, i, 0), MustAt(t, vecs, i, 1)
		lead := a
		if math.Abs(b) > math.Abs(a) {
			lead = b
		}
		assert.GreaterOrEqual(t, lead, 0.0)
	}
}

func TestHouseholderR_GramInvariant(t *testing.T) {
	t.Parallel()
	for _, shape := range []struct{ r, c int }{{7, 3}, {3, 3}, {2, 4}} {
		a := sample(t, shape.r, shape.c)
		r, err := matrix.HouseholderR(a)
		require.NoError(t, err)
		require.Equal(t, shape.c, r.Rows())

		at, _ := matrix.Transpose(a)
		ata, _ := matrix.Mul(at, a)
		rt, _ := matrix.Transpose(r)
		rtr, _ := matrix.Mul(rt, r)
		assert.True(t, matrix.AllClose(rtr, ata, 1e-10, 1e-10), "shape %dx%d", shape.r, shape.c)

		for i := 0; i < r.Rows(); i++ {
			for j := 0; j < i; j++ {
				assert.Equal(t, 0.0, MustAt(t, r, i, j))
			}
		}
	}
}
