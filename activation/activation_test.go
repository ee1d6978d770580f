// SPDX-License-Identifier: MIT

package activation_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/algokit/activation"
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

func testEnv(t *testing.T) *algo.Environment {
	t.Helper()
	env, err := algo.NewEnvironment(algo.WithoutEnvVars())
	require.NoError(t, err)

	return env
}

func TestReLUForward(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		opts []algo.Option
	}{
		{"float64", nil},
		{"float32", []algo.Option{algo.WithFloat32()}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			data, err := matrix.NewDenseRows([][]float64{{-2, 0, 1.5}, {3, -0.5, 0.25}})
			require.NoError(t, err)
			l, err := activation.NewReLUForward(testEnv(t), tc.opts...)
			require.NoError(t, err)
			defer l.Close()
			l.Input().Data = data
			require.NoError(t, l.Compute())
			assert.Equal(t, []float64{0, 0, 1.5, 3, 0, 0.25}, l.Result().Value.Values())
		})
	}
}

func TestReLUForward_SpansBlocks(t *testing.T) {
	t.Parallel()
	n := algo.DefaultBlockRows + 3
	data, err := matrix.NewDense(n, 2)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		_ = data.Set(i, 0, float64(i))
		_ = data.Set(i, 1, -float64(i))
	}
	l, err := activation.NewReLUForward(testEnv(t))
	require.NoError(t, err)
	l.Input().Data = data
	require.NoError(t, l.Compute())

	last, _ := l.Result().Value.At(n-1, 0)
	assert.Equal(t, float64(n-1), last)
	neg, _ := l.Result().Value.At(n-1, 1)
	assert.Zero(t, neg)
}

func TestReLUBackward(t *testing.T) {
	t.Parallel()
	data, _ := matrix.NewDenseRows([][]float64{{-1, 2}, {0, 4}})
	grad, _ := matrix.NewDenseRows([][]float64{{10, 20}, {30, 40}})
	l, err := activation.NewReLUBackward(testEnv(t))
	require.NoError(t, err)
	defer l.Close()
	l.Input().Data = data
	l.Input().InputGradient = grad
	require.NoError(t, l.Compute())
	assert.Equal(t, []float64{0, 20, 0, 40}, l.Result().Gradient.Values())
}

func TestReLUBackward_ShapeMismatch(t *testing.T) {
	t.Parallel()
	data, _ := matrix.NewDense(2, 2)
	grad, _ := matrix.NewDense(3, 2)
	l, err := activation.NewReLUBackward(testEnv(t))
	require.NoError(t, err)
	l.Input().Data = data
	l.Input().InputGradient = grad
	require.ErrorIs(t, l.Compute(), algo.ErrorIncorrectNumberOfRows)
	assert.Nil(t, l.Result())
}

func TestSoftmax(t *testing.T) {
	t.Parallel()
	data, _ := matrix.NewDenseRows([][]float64{{1, 2, 3}, {1000, 1000, 1000}})
	l, err := activation.NewSoftmax(testEnv(t))
	require.NoError(t, err)
	defer l.Close()
	l.Input().Data = data
	require.NoError(t, l.Compute())

	z := math.Exp(-2) + math.Exp(-1) + 1
	want := []float64{math.Exp(-2) / z, math.Exp(-1) / z, 1 / z, 1.0 / 3, 1.0 / 3, 1.0 / 3}
	got := l.Result().Value.Values()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-12, "element %d", i)
	}
}

func TestSoftmax_NonFinite(t *testing.T) {
	t.Parallel()
	data, err := matrix.NewDenseRows([][]float64{{1, math.Inf(1)}, {math.NaN(), 0}}, matrix.WithNoValidateNaNInf())
	require.NoError(t, err)
	l, err := activation.NewSoftmax(testEnv(t))
	require.NoError(t, err)
	l.Input().Data = data
	require.ErrorIs(t, l.Compute(), algo.ErrorNonFiniteValue)
	assert.Equal(t, algo.StateFaulted, l.State())
}

func TestForward_NilData(t *testing.T) {
	t.Parallel()
	l, err := activation.NewReLUForward(testEnv(t))
	require.NoError(t, err)
	require.ErrorIs(t, l.Compute(), algo.ErrorNullInputNumericTable)
	assert.Equal(t, algo.StateFaulted, l.State())
}

func TestNew_UnknownMethod(t *testing.T) {
	t.Parallel()
	_, err := activation.NewSoftmax(testEnv(t), algo.WithMethod(algo.DefaultDense+7))
	require.ErrorIs(t, err, algo.ErrorKernelNotRegistered)
}

func TestClone(t *testing.T) {
	t.Parallel()
	data, _ := matrix.NewDenseRows([][]float64{{-1, 1}})
	l, err := activation.NewReLUForward(testEnv(t))
	require.NoError(t, err)
	l.Input().Data = data
	c, err := l.Clone()
	require.NoError(t, err)
	l.Close()

	require.NoError(t, c.Compute())
	assert.Equal(t, []float64{0, 1}, c.Result().Value.Values())
}

func TestForwardResult_RoundTrip(t *testing.T) {
	t.Parallel()
	data, _ := matrix.NewDenseRows([][]float64{{-1, 1}, {2, -2}})
	l, err := activation.NewReLUForward(testEnv(t))
	require.NoError(t, err)
	l.Input().Data = data
	require.NoError(t, l.Compute())

	payload, err := algo.Marshal(l.Result())
	require.NoError(t, err)
	back, err := algo.Unmarshal(payload)
	require.NoError(t, err)
	got, ok := back.(*activation.ForwardResult)
	require.True(t, ok)
	assert.Equal(t, l.Result().Value.Values(), got.Value.Values())
}
