// SPDX-License-Identifier: MIT

package adaboost_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/algokit/adaboost"
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
	"github.com/katalvlaran/algokit/stump"
)

func testEnv(t *testing.T) *algo.Environment {
	t.Helper()
	env, err := algo.NewEnvironment(algo.WithoutEnvVars())
	require.NoError(t, err)

	return env
}

// interval is positive outside [3, 5]: no single stump separates it.
func interval(t *testing.T) (*matrix.Dense, *matrix.Dense) {
	t.Helper()
	data, err := matrix.NewDenseFrom(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	require.NoError(t, err)
	labels, err := matrix.NewDenseFrom(8, 1, []float64{1, 1, -1, -1, -1, 1, 1, 1})
	require.NoError(t, err)

	return data, labels
}

func train(t *testing.T, env *algo.Environment, data, labels *matrix.Dense, maxIter int) *adaboost.Model {
	t.Helper()
	b, err := adaboost.NewTrainingBatch(env)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	b.Parameter().MaxIterations = maxIter
	b.Input().Data = data
	b.Input().Labels = labels
	require.NoError(t, b.Compute())

	return b.Model()
}

func predict(t *testing.T, env *algo.Environment, data *matrix.Dense, m *adaboost.Model) []float64 {
	t.Helper()
	p, err := adaboost.NewPredictionBatch(env)
	require.NoError(t, err)
	defer p.Close()
	p.Input().Data = data
	p.Input().Model = m
	require.NoError(t, p.Compute())

	return p.Result().PredictedLabels.Values()
}

func TestTraining_Interval(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	data, labels := interval(t)
	m := train(t, env, data, labels, 10)

	assert.Equal(t, 10, m.Len())
	assert.Equal(t, 1, m.Features)
	a0, err := m.Alpha.At(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.5*math.Log(3), a0, 1e-12)
	assert.Equal(t, labels.Values(), predict(t, env, data, m))

	unseen, _ := matrix.NewDenseFrom(3, 1, []float64{0, 3.2, 9})
	assert.Equal(t, []float64{1, -1, 1}, predict(t, env, unseen, m))
}

func TestTraining_StopsOnPerfectLearner(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	data, _ := matrix.NewDenseRows([][]float64{{1, 5}, {2, 4}, {3, 3}, {4, 2}})
	labels, _ := matrix.NewDenseFrom(4, 1, []float64{1, 1, -1, -1})
	m := train(t, env, data, labels, adaboost.DefaultMaxIterations)

	require.Equal(t, 1, m.Len())
	a0, _ := m.Alpha.At(0, 0)
	assert.InDelta(t, 0.5*math.Log((1-1e-10)/1e-10), a0, 1e-6)
	assert.Equal(t, labels.Values(), predict(t, env, data, m))
}

func TestTraining_NoLearnerBeatsChance(t *testing.T) {
	t.Parallel()
	// Identical observations with opposite labels: every stump errs half
	// the time.
	data, _ := matrix.NewDenseFrom(2, 1, []float64{1, 1})
	labels, _ := matrix.NewDenseFrom(2, 1, []float64{1, -1})
	b, err := adaboost.NewTrainingBatch(testEnv(t))
	require.NoError(t, err)
	defer b.Close()
	b.Input().Data = data
	b.Input().Labels = labels
	require.ErrorIs(t, b.Compute(), algo.ErrorInsufficientObservations)
	assert.Equal(t, algo.StateFaulted, b.State())
}

func TestParameter_Validation(t *testing.T) {
	t.Parallel()
	data, labels := interval(t)
	cases := []struct {
		name   string
		mutate func(p *adaboost.Parameter)
		want   algo.ErrorID
	}{
		{"nil training", func(p *adaboost.Parameter) { p.WeakLearnerTraining = nil }, algo.ErrorNullParameter},
		{"nil prediction", func(p *adaboost.Parameter) { p.WeakLearnerPrediction = nil }, algo.ErrorNullParameter},
		{"zero iterations", func(p *adaboost.Parameter) { p.MaxIterations = 0 }, algo.ErrorIncorrectParameter},
		{"threshold too high", func(p *adaboost.Parameter) { p.AccuracyThreshold = 0.5 }, algo.ErrorIncorrectParameter},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			b, err := adaboost.NewTrainingBatch(testEnv(t))
			require.NoError(t, err)
			tc.mutate(b.Parameter())
			b.Input().Data = data
			b.Input().Labels = labels
			require.ErrorIs(t, b.Compute(), tc.want)
			assert.Nil(t, b.Model())
		})
	}
}

func TestParameter_CloneOwnsLearners(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	par, err := adaboost.NewParameter(env)
	require.NoError(t, err)
	c, err := par.Clone()
	require.NoError(t, err)
	assert.NotSame(t, par.WeakLearnerTraining, c.WeakLearnerTraining)
	assert.NotSame(t, par.WeakLearnerPrediction, c.WeakLearnerPrediction)

	// Closing the original leaves the clone usable.
	par.Close()
	data, labels := interval(t)
	_, err = c.WeakLearnerTraining.Train(data, labels, nil)
	require.NoError(t, err)
	c.Close()
}

func TestTrainingBatch_Clone(t *testing.T) {
	t.Parallel()
	data, labels := interval(t)
	b, err := adaboost.NewTrainingBatch(testEnv(t))
	require.NoError(t, err)
	b.Parameter().MaxIterations = 3
	b.Input().Data = data
	b.Input().Labels = labels

	c, err := b.Clone()
	require.NoError(t, err)
	defer c.Close()
	b.Close()
	require.NoError(t, c.Compute())
	assert.Equal(t, 3, c.Model().Len())
}

func TestModel_RoundTrip(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	data, labels := interval(t)
	m := train(t, env, data, labels, 5)

	payload, err := algo.Marshal(m)
	require.NoError(t, err)
	back, err := algo.Unmarshal(payload)
	require.NoError(t, err)
	got, ok := back.(*adaboost.Model)
	require.True(t, ok)

	require.Equal(t, m.Len(), got.Len())
	assert.Equal(t, m.Alpha.Values(), got.Alpha.Values())
	for i := range m.WeakModels {
		assert.Equal(t, m.WeakModels[i].(*stump.Model).Split.Values(), got.WeakModels[i].(*stump.Model).Split.Values())
	}
	assert.Equal(t, predict(t, env, data, m), predict(t, env, data, got))
}

func TestPrediction_Validation(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	data, labels := interval(t)
	wide, _ := matrix.NewDense(2, 3)
	cases := []struct {
		name  string
		data  matrix.Matrix
		model *adaboost.Model
		want  algo.ErrorID
	}{
		{"nil model", data, nil, algo.ErrorNullInputNumericTable},
		{"untrained model", data, &adaboost.Model{Features: 1}, algo.ErrorNullInputNumericTable},
		{"feature mismatch", wide, train(t, env, data, labels, 2), algo.ErrorIncorrectNumberOfFeatures},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			p, err := adaboost.NewPredictionBatch(env)
			require.NoError(t, err)
			defer p.Close()
			p.Input().Data = tc.data
			p.Input().Model = tc.model
			require.ErrorIs(t, p.Compute(), tc.want)
		})
	}
}
