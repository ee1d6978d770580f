// SPDX-License-Identifier: MIT

package kmeans_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/kmeans"
	"github.com/katalvlaran/algokit/matrix"
)

func testEnv(t *testing.T) *algo.Environment {
	t.Helper()
	env, err := algo.NewEnvironment(algo.WithoutEnvVars())
	require.NoError(t, err)

	return env
}

// twoBlobs interleaves 10 points around (0.45, 0.18) with 10 points around
// (10.45, 10.18): even rows belong to the first blob, odd rows to the second.
func twoBlobs(t *testing.T) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDense(20, 2)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		j := i / 2
		base := 0.0
		if i%2 == 1 {
			base = 10
		}
		require.NoError(t, m.Set(i, 0, base+0.1*float64(j)))
		require.NoError(t, m.Set(i, 1, base+0.2*float64(j%3)))
	}

	return m
}

func rowsOf(t *testing.T, m *matrix.Dense, from, to int) *matrix.Dense {
	t.Helper()
	out, err := matrix.NewDense(to-from, m.Cols())
	require.NoError(t, err)
	for i := from; i < to; i++ {
		for j := 0; j < m.Cols(); j++ {
			v, _ := m.At(i, j)
			require.NoError(t, out.Set(i-from, j, v))
		}
	}

	return out
}

func initCentroids(t *testing.T, env *algo.Environment, data matrix.Matrix, k int) *matrix.Dense {
	t.Helper()
	ib, err := kmeans.NewInitBatch(env, k)
	require.NoError(t, err)
	defer ib.Close()
	ib.Input().Data = data
	require.NoError(t, ib.Compute())

	return ib.Result().Centroids
}

func TestBatch_TwoBlobs(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	data := twoBlobs(t)

	b, err := kmeans.NewBatch(env, 2)
	require.NoError(t, err)
	defer b.Close()
	b.Input().Data = data
	b.Input().InputCentroids = initCentroids(t, env, data, 2)
	require.NoError(t, b.Compute())
	require.True(t, b.Errors().IsEmpty())
	assert.Equal(t, algo.StateResultAvailable, b.State())

	res := b.Result()
	want, _ := matrix.NewDenseRows([][]float64{{0.45, 0.18}, {10.45, 10.18}})
	assert.True(t, matrix.AllClose(res.Centroids, want, 1e-12, 1e-12), "centroids:\n%v", res.Centroids)
	for i := 0; i < 20; i++ {
		label, _ := res.Assignments.At(i, 0)
		assert.Equal(t, float64(i%2), label, "row %d", i)
	}
	iters, _ := res.NIterations.At(0, 0)
	assert.GreaterOrEqual(t, iters, 1.0)
	assert.LessOrEqual(t, iters, float64(kmeans.DefaultMaxIterations))
	goal, _ := res.GoalFunction.At(0, 0)
	assert.Greater(t, goal, 0.0)
}

func TestBatch_ValidateBeforeAllocate(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	data := rowsOf(t, twoBlobs(t), 0, 2)
	cent, _ := matrix.NewDense(3, 2)

	b, err := kmeans.NewBatch(env, 3)
	require.NoError(t, err)
	b.Input().Data = data
	b.Input().InputCentroids = cent
	before := env.Allocator().Requests()

	err = b.Compute()
	require.ErrorIs(t, err, algo.ErrorIncorrectNumberOfObservations)
	assert.Nil(t, b.Result())
	assert.Equal(t, before, env.Allocator().Requests())
	assert.Equal(t, algo.StateFaulted, b.State())
}

func TestBatch_CentroidShapeMismatch(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	cent, _ := matrix.NewDense(2, 3)

	b, err := kmeans.NewBatch(env, 2)
	require.NoError(t, err)
	b.Input().Data = twoBlobs(t)
	b.Input().InputCentroids = cent
	require.ErrorIs(t, b.Compute(), algo.ErrorIncorrectNumberOfColumns)
}

func TestBatch_EmptyClusterReseeded(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	cent, _ := matrix.NewDenseRows([][]float64{{0, 0}, {10, 10}, {100, 100}})

	b, err := kmeans.NewBatch(env, 3)
	require.NoError(t, err)
	b.Input().Data = twoBlobs(t)
	b.Input().InputCentroids = cent
	require.NoError(t, b.Compute())

	x, _ := b.Result().Centroids.At(2, 0)
	assert.Less(t, x, 20.0, "third centroid should move onto the data")
}

func TestBatch_Float32MatchesFloat64(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	data := twoBlobs(t)
	start := initCentroids(t, env, data, 2)

	run := func(opts ...algo.Option) *kmeans.Result {
		b, err := kmeans.NewBatch(env, 2, opts...)
		require.NoError(t, err)
		defer b.Close()
		b.Input().Data = data
		b.Input().InputCentroids = start
		require.NoError(t, b.Compute())
		return b.Result()
	}
	r64 := run()
	r32 := run(algo.WithFloat32())
	assert.True(t, matrix.AllClose(r32.Centroids, r64.Centroids, 1e-5, 1e-5))
	assert.Equal(t, r64.Assignments.Values(), r32.Assignments.Values())
}

func TestInitBatch_RandomIsSeeded(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	data := twoBlobs(t)

	pick := func(seed int64) *matrix.Dense {
		ib, err := kmeans.NewInitBatch(env, 4, algo.WithMethod(kmeans.RandomDense))
		require.NoError(t, err)
		defer ib.Close()
		ib.Input().Data = data
		ib.Parameter().Seed = seed
		require.NoError(t, ib.Compute())
		return ib.Result().Centroids
	}
	a, b := pick(7), pick(7)
	assert.Equal(t, a.Values(), b.Values())

	// Every picked row is a distinct observation.
	seen := map[[2]float64]bool{}
	for i := 0; i < 4; i++ {
		x, _ := a.At(i, 0)
		y, _ := a.At(i, 1)
		key := [2]float64{x, y}
		assert.False(t, seen[key], "row %d picked twice", i)
		seen[key] = true
		found := false
		for r := 0; r < data.Rows(); r++ {
			dx, _ := data.At(r, 0)
			dy, _ := data.At(r, 1)
			found = found || (dx == x && dy == y)
		}
		assert.True(t, found)
	}
}

func TestInitBatch_UnsupportedMethod(t *testing.T) {
	t.Parallel()
	_, err := kmeans.NewInitBatch(testEnv(t), 2, algo.WithMethod(7))
	require.ErrorIs(t, err, algo.ErrorKernelNotRegistered)
}

func TestMaster_ConsumesOnce(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	data := twoBlobs(t)
	cent := initCentroids(t, env, data, 2)

	master, err := kmeans.NewMaster(env, 2)
	require.NoError(t, err)
	defer master.Close()
	for _, blk := range []*matrix.Dense{rowsOf(t, data, 0, 10), rowsOf(t, data, 10, 20)} {
		local, err := kmeans.NewLocal(env, 2)
		require.NoError(t, err)
		local.Input().Data = blk
		local.Input().InputCentroids = cent
		require.NoError(t, local.Compute())
		master.Input().Add(local.PartialResult())
		local.Close()
	}

	require.NoError(t, master.Compute())
	assert.Equal(t, 0, master.Input().PartialResults.Len())
	n0, _ := master.PartialResult().NObservations.At(0, 0)
	n1, _ := master.PartialResult().NObservations.At(1, 0)
	assert.Equal(t, 20.0, n0+n1)

	require.NoError(t, master.FinalizeCompute())
	want, _ := matrix.NewDenseRows([][]float64{{0.45, 0.18}, {10.45, 10.18}})
	assert.True(t, matrix.AllClose(master.Result().Centroids, want, 1e-12, 1e-12))

	err = master.Compute()
	require.ErrorIs(t, err, algo.ErrorIncorrectNumberOfInputNumericTables)
}

func TestMaster_RejectsWideCounts(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	pr, err := kmeans.NewPartialResult(env, 2, 2, 0)
	require.NoError(t, err)
	pr.NObservations, err = matrix.NewDense(2, 2)
	require.NoError(t, err)

	master, err := kmeans.NewMaster(env, 2)
	require.NoError(t, err)
	defer master.Close()
	master.Input().Add(pr)
	require.ErrorIs(t, master.Compute(), algo.ErrorIncorrectSizeOfOutputNumericTable)
	assert.Equal(t, algo.StateFaulted, master.State())
}

func TestLocal_FinalizeEmitsAssignments(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	data := twoBlobs(t)

	local, err := kmeans.NewLocal(env, 2)
	require.NoError(t, err)
	defer local.Close()
	local.Input().Data = data
	local.Input().InputCentroids = rowsOf(t, data, 0, 2)
	require.NoError(t, local.Compute())
	require.NoError(t, local.FinalizeCompute())
	assert.Equal(t, local.PartialResult().PartialAssignments.Values(), local.Result().Assignments.Values())
}

func TestDistributedIteration_MatchesBatch(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	data := twoBlobs(t)
	start := initCentroids(t, env, data, 2)
	par := kmeans.NewParameter(2)

	b, err := kmeans.NewBatch(env, 2)
	require.NoError(t, err)
	defer b.Close()
	b.Input().Data = data
	b.Input().InputCentroids = start
	require.NoError(t, b.Compute())

	blocks := []matrix.Matrix{rowsOf(t, data, 0, 7), rowsOf(t, data, 7, 14), rowsOf(t, data, 14, 20)}
	got, err := kmeans.DistributedIteration(context.Background(), env, blocks, start, par)
	require.NoError(t, err)

	assert.True(t, matrix.AllClose(got.Centroids, b.Result().Centroids, 1e-12, 1e-12))
	assert.Equal(t, b.Result().Assignments.Values(), got.Assignments.Values())
	gb, _ := b.Result().GoalFunction.At(0, 0)
	gd, _ := got.GoalFunction.At(0, 0)
	assert.InDelta(t, gb, gd, 1e-9)
}

func TestDistributedIteration_Cancelled(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	data := twoBlobs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := kmeans.DistributedIteration(ctx, env, []matrix.Matrix{data}, rowsOf(t, data, 0, 2), kmeans.NewParameter(2))
	require.ErrorIs(t, err, context.Canceled)
}

func TestPartialResult_RoundTrip(t *testing.T) {
	t.Parallel()
	env := testEnv(t)
	data := twoBlobs(t)

	local, err := kmeans.NewLocal(env, 2)
	require.NoError(t, err)
	defer local.Close()
	local.Input().Data = data
	local.Input().InputCentroids = rowsOf(t, data, 0, 2)
	require.NoError(t, local.Compute())

	payload, err := algo.Marshal(local.PartialResult())
	require.NoError(t, err)
	decoded, err := algo.Unmarshal(payload)
	require.NoError(t, err)
	pr, ok := decoded.(*kmeans.PartialResult)
	require.True(t, ok)
	assert.Equal(t, local.PartialResult().PartialSums.Values(), pr.PartialSums.Values())
	assert.Equal(t, local.PartialResult().CandidateDistances.Values(), pr.CandidateDistances.Values())
}
