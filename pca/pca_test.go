// SPDX-License-Identifier: MIT

package pca_test

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
	"github.com/katalvlaran/algokit/pca"
)

const tol = 1e-9

func testEnv(t *testing.T, opts ...algo.EnvOption) *algo.Environment {
	t.Helper()
	env, err := algo.NewEnvironment(append([]algo.EnvOption{algo.WithoutEnvVars()}, opts...)...)
	require.NoError(t, err)

	return env
}

// sample draws n rows of five correlated features from two latent factors,
// so the correlation spectrum is well separated.
func sample(seed int64, n int) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float64, n)
	for i := range out {
		z1, z2 := rng.NormFloat64(), rng.NormFloat64()
		e := func(s float64) float64 { return s * rng.NormFloat64() }
		out[i] = []float64{
			z1 + e(0.1),
			2*z1 + e(0.6),
			z2 + e(0.3),
			z1 - z2 + e(1),
			e(1),
		}
	}

	return out
}

func dense(t *testing.T, rows [][]float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseRows(rows)
	require.NoError(t, err)

	return m
}

// assertSameComponents compares two results up to the sign of each eigenvector.
func assertSameComponents(t *testing.T, want, got *pca.Result) {
	t.Helper()
	require.NotNil(t, got)
	p := want.Eigenvalues.Cols()
	for i := 0; i < p; i++ {
		w, _ := want.Eigenvalues.At(0, i)
		g, _ := got.Eigenvalues.At(0, i)
		assert.InDelta(t, w, g, tol, "eigenvalue %d", i)
		wr, _ := want.Eigenvectors.Row(i)
		gr, _ := got.Eigenvectors.Row(i)
		dot := 0.0
		for k := range wr {
			dot += wr[k] * gr[k]
		}
		assert.InDelta(t, 1, math.Abs(dot), 1e-7, "eigenvector %d", i)
	}
}

func batchResult(t *testing.T, env *algo.Environment, rows [][]float64, opts ...algo.Option) *pca.Result {
	t.Helper()
	b, err := pca.NewBatch(env, opts...)
	require.NoError(t, err)
	b.Input().Data = dense(t, rows)
	require.NoError(t, b.Compute())

	return b.Result()
}

func TestBatch_Correlation(t *testing.T) {
	t.Parallel()
	rows := sample(1, 100)
	res := batchResult(t, testEnv(t), rows)
	require.Equal(t, 1, res.Eigenvalues.Rows())
	require.Equal(t, 5, res.Eigenvalues.Cols())
	require.Equal(t, 5, res.Eigenvectors.Rows())
	require.Equal(t, 5, res.Eigenvectors.Cols())

	vals := res.Eigenvalues.Values()
	trace := 0.0
	for i, v := range vals {
		trace += v
		if i > 0 {
			assert.GreaterOrEqual(t, vals[i-1], v, "eigenvalues descend")
		}
	}
	// The trace of a correlation matrix is the number of features.
	assert.InDelta(t, 5, trace, tol)

	corr, err := matrix.Correlation(dense(t, rows))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		v, _ := res.Eigenvectors.Row(i)
		for r := 0; r < 5; r++ {
			cr, _ := corr.Row(r)
			cv := 0.0
			for k := range cr {
				cv += cr[k] * v[k]
			}
			assert.InDelta(t, vals[i]*v[r], cv, 1e-8, "C·v = λ·v, component %d row %d", i, r)
		}
		for j := 0; j < 5; j++ {
			u, _ := res.Eigenvectors.Row(j)
			dot := 0.0
			for k := range u {
				dot += u[k] * v[k]
			}
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, dot, 1e-8, "orthonormal rows %d,%d", i, j)
		}
	}
}

func TestBatch_PrecomputedCorrelation(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	rows := sample(2, 60)
	want := batchResult(t, env, rows)

	corr, err := matrix.Correlation(dense(t, rows))
	require.NoError(t, err)
	b, err := pca.NewBatch(env)
	require.NoError(t, err)
	b.Input().Correlation = corr
	require.NoError(t, b.Compute())
	assertSameComponents(t, want, b.Result())
}

func TestBatch_SVDMatchesCorrelation(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	rows := sample(3, 100)
	assertSameComponents(t, batchResult(t, env, rows), batchResult(t, env, rows, algo.WithMethod(pca.SVDDense)))
}

func TestBatch_Float32(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	rows := sample(4, 100)
	want := batchResult(t, env, rows)
	got := batchResult(t, env, rows, algo.WithFloat32())
	for i, v := range want.Eigenvalues.Values() {
		assert.InDelta(t, v, got.Eigenvalues.Values()[i], 1e-3)
	}
}

func TestBatch_Errors(t *testing.T) {
	t.Parallel()
	constant := sample(5, 10)
	for _, r := range constant {
		r[4] = 7
	}
	cases := []struct {
		name   string
		method algo.Method
		setup  func(in *pca.Input, par *pca.Parameter)
		want   algo.ErrorID
	}{
		{"no input", pca.CorrelationDense, func(*pca.Input, *pca.Parameter) {}, algo.ErrorNullInputNumericTable},
		{"zero tolerance", pca.CorrelationDense, func(in *pca.Input, par *pca.Parameter) {
			in.Data = dense(t, sample(5, 10))
			par.Tolerance = 0
		}, algo.ErrorIncorrectParameter},
		{"no sweeps", pca.SVDDense, func(in *pca.Input, par *pca.Parameter) {
			in.Data = dense(t, sample(5, 10))
			par.MaxSweeps = 0
		}, algo.ErrorIncorrectParameter},
		{"correlation input with svd", pca.SVDDense, func(in *pca.Input, _ *pca.Parameter) {
			in.Correlation, _ = matrix.NewDense(5, 5)
		}, algo.ErrorUnsupportedMethod},
		{"non-square correlation", pca.CorrelationDense, func(in *pca.Input, _ *pca.Parameter) {
			in.Correlation, _ = matrix.NewDense(5, 4)
		}, algo.ErrorIncorrectNumberOfColumns},
		{"unknown method", 7, func(in *pca.Input, _ *pca.Parameter) {
			in.Data = dense(t, sample(5, 10))
		}, algo.ErrorKernelNotRegistered},
		{"constant feature", pca.CorrelationDense, func(in *pca.Input, _ *pca.Parameter) {
			in.Data = dense(t, constant)
		}, algo.ErrorZeroVariance},
		{"constant feature svd", pca.SVDDense, func(in *pca.Input, _ *pca.Parameter) {
			in.Data = dense(t, constant)
		}, algo.ErrorZeroVariance},
		{"single row", pca.CorrelationDense, func(in *pca.Input, _ *pca.Parameter) {
			in.Data = dense(t, sample(5, 1))
		}, algo.ErrorInsufficientObservations},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b, err := pca.NewBatch(testEnv(t), algo.WithMethod(tc.method))
			if tc.want == algo.ErrorKernelNotRegistered {
				require.ErrorIs(t, err, tc.want)
				return
			}
			require.NoError(t, err)
			tc.setup(b.Input(), b.Parameter())
			require.ErrorIs(t, b.Compute(), tc.want)
			assert.Equal(t, algo.StateFaulted, b.State())
			assert.False(t, b.Succeeded())
			assert.Nil(t, b.Result(), "a faulted algorithm exposes no result")
		})
	}
}

func TestBatch_Clone(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	rows := sample(6, 40)
	b, err := pca.NewBatch(env, algo.WithMethod(pca.SVDDense))
	require.NoError(t, err)
	b.Input().Data = dense(t, rows)
	c, err := b.Clone()
	require.NoError(t, err)
	assert.Equal(t, pca.SVDDense, c.Settings().Method)
	require.NoError(t, c.Compute())
	assert.Nil(t, b.Result())
	assertSameComponents(t, batchResult(t, env, rows), c.Result())
}

func TestOnline_MatchesBatch(t *testing.T) {
	t.Parallel()
	rows := sample(7, 30)
	for _, method := range []algo.Method{pca.CorrelationDense, pca.SVDDense} {
		method := method
		t.Run(map[algo.Method]string{pca.CorrelationDense: "correlation", pca.SVDDense: "svd"}[method], func(t *testing.T) {
			t.Parallel()
			env := testEnv(t)
			o, err := pca.NewOnline(env, algo.WithMethod(method))
			require.NoError(t, err)
			defer o.Close()
			for blk := 0; blk < 3; blk++ {
				o.Input().Data = dense(t, rows[blk*10:(blk+1)*10])
				require.NoError(t, o.Compute())
			}
			assert.Equal(t, 30, o.PartialResult().Observations())
			if method == pca.SVDDense {
				assert.Len(t, o.PartialResult().Auxiliary, 3)
			}
			require.NoError(t, o.FinalizeCompute())
			assertSameComponents(t, batchResult(t, env, rows), o.Result())
		})
	}
}

func TestOnline_RequiresData(t *testing.T) {
	t.Parallel()
	o, err := pca.NewOnline(testEnv(t))
	require.NoError(t, err)
	o.Input().Correlation, _ = matrix.NewDense(5, 5)
	require.ErrorIs(t, o.Compute(), algo.ErrorNullInputNumericTable)
}

func TestOnline_FinalizeBeforeCompute(t *testing.T) {
	t.Parallel()
	o, err := pca.NewOnline(testEnv(t))
	require.NoError(t, err)
	require.ErrorIs(t, o.FinalizeCompute(), algo.ErrorNullPartialResult)
}

func TestDistributed_Manual(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	rows := sample(8, 30)
	master, err := pca.NewMaster(env, algo.WithMethod(pca.SVDDense))
	require.NoError(t, err)
	defer master.Close()
	for blk := 0; blk < 3; blk++ {
		local, err := pca.NewLocal(env, algo.WithMethod(pca.SVDDense))
		require.NoError(t, err)
		local.Input().Data = dense(t, rows[blk*10:(blk+1)*10])
		require.NoError(t, local.Compute())
		payload, err := algo.Marshal(local.PartialResult())
		require.NoError(t, err)
		local.Close()

		pr := &pca.PartialResult{}
		require.NoError(t, algo.UnmarshalInto(payload, pr))
		assert.Equal(t, pca.SVDDense, pr.Method)
		assert.Len(t, pr.Auxiliary, 1)
		master.Input().Add(pr)
	}
	require.NoError(t, master.Compute())
	assert.Zero(t, master.Input().PartialResults.Len())
	assert.Len(t, master.PartialResult().Auxiliary, 3)
	require.NoError(t, master.FinalizeCompute())
	assertSameComponents(t, batchResult(t, env, rows), master.Result())
}

func TestMaster_NoPartials(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	master, err := pca.NewMaster(env)
	require.NoError(t, err)
	before := env.Allocator().Requests()
	require.ErrorIs(t, master.Compute(), algo.ErrorIncorrectNumberOfInputNumericTables)
	assert.Nil(t, master.PartialResult())
	assert.Equal(t, before, env.Allocator().Requests())
	assert.Equal(t, algo.StateFaulted, master.State())
}

func TestMaster_MethodMismatch(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	pr, err := pca.NewPartialResult(env, pca.SVDDense, 5)
	require.NoError(t, err)
	master, err := pca.NewMaster(env)
	require.NoError(t, err)
	master.Input().Add(pr)
	require.ErrorIs(t, master.Compute(), algo.ErrorUnsupportedMethod)
}

func TestComputeDistributed(t *testing.T) {
	t.Parallel()
	rows := sample(9, 30)
	blocks := func(t *testing.T) []matrix.Matrix {
		return []matrix.Matrix{dense(t, rows[:10]), dense(t, rows[10:20]), dense(t, rows[20:])}
	}
	cases := []struct {
		name    string
		method  algo.Method
		threads int
	}{
		{"correlation serial", pca.CorrelationDense, 1},
		{"correlation parallel", pca.CorrelationDense, 3},
		{"svd parallel", pca.SVDDense, 2},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := testEnv(t, algo.WithThreads(tc.threads))
			res, err := pca.ComputeDistributed(context.Background(), env, blocks(t), pca.DefaultParameter(), algo.WithMethod(tc.method))
			require.NoError(t, err)
			assertSameComponents(t, batchResult(t, env, rows), res)
		})
	}
}

func TestComputeDistributed_Errors(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	rows := sample(10, 20)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pca.ComputeDistributed(ctx, env, []matrix.Matrix{dense(t, rows)}, pca.DefaultParameter())
	require.ErrorIs(t, err, context.Canceled)

	_, err = pca.ComputeDistributed(context.Background(), env, nil, pca.DefaultParameter())
	require.ErrorIs(t, err, algo.ErrorIncorrectNumberOfInputNumericTables)

	bad := pca.DefaultParameter()
	bad.Tolerance = -1
	_, err = pca.ComputeDistributed(context.Background(), env, []matrix.Matrix{dense(t, rows)}, bad)
	require.ErrorIs(t, err, algo.ErrorIncorrectParameter)
}

func TestResult_RoundTrip(t *testing.T) {
	t.Parallel()
	res := batchResult(t, testEnv(t), sample(11, 50))
	payload, err := algo.Marshal(res)
	require.NoError(t, err)
	obj, err := algo.Unmarshal(payload)
	require.NoError(t, err)
	got, ok := obj.(*pca.Result)
	require.True(t, ok)
	assert.Equal(t, res.Eigenvalues.Values(), got.Eigenvalues.Values())
	assert.Equal(t, res.Eigenvectors.Values(), got.Eigenvectors.Values())
}

func TestMaster_UnallocatedFactor(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	pr, err := pca.NewPartialResult(env, pca.SVDDense, 5)
	require.NoError(t, err)
	_ = pr.NObservations.Set(0, 0, 10)
	pr.Auxiliary = append(pr.Auxiliary, &matrix.Dense{})
	master, err := pca.NewMaster(env, algo.WithMethod(pca.SVDDense))
	require.NoError(t, err)
	master.Input().Add(pr)
	require.ErrorIs(t, master.Compute(), algo.ErrorNullOutputNumericTable)
	assert.Equal(t, algo.StateFaulted, master.State())
}
