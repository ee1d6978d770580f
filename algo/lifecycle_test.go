// SPDX-License-Identifier: MIT

package algo_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// LifecycleSuite drives the batch and streaming orchestrators through the
// scale and column-sum algorithms.
type LifecycleSuite struct {
	suite.Suite
	env   *algo.Environment
	stats *kernelStats
	scale *algo.Registry
	sum   *algo.Registry
}

func (s *LifecycleSuite) SetupTest() {
	s.env = algo.MustEnvironment(algo.WithoutEnvVars())
	s.stats = &kernelStats{}
	s.scale = newScaleRegistry(s.stats)
	s.sum = newSumRegistry(s.stats)
}

func (s *LifecycleSuite) data(rows ...[]float64) *matrix.Dense {
	m, err := matrix.NewDenseRows(rows)
	require.NoError(s.T(), err)

	return m
}

// TestDispatchIsDeterministic: the same key and tier always select the same
// kernel tier, and the tier never exceeds the environment.
func (s *LifecycleSuite) TestDispatchIsDeterministic() {
	low := algo.MustEnvironment(algo.WithoutEnvVars(), algo.WithTier(algo.TierBaseline))
	for i := 0; i < 3; i++ {
		a, err := newScaleAlg(low, s.scale)
		require.NoError(s.T(), err)
		require.Equal(s.T(), algo.TierBaseline, a.Tier())
	}

	high := algo.MustEnvironment(algo.WithoutEnvVars(), algo.WithTier(algo.TierAVX512))
	want := algo.TierBaseline
	if high.Tier() >= algo.TierAVX2 {
		want = algo.TierAVX2
	}
	a, err := newScaleAlg(high, s.scale)
	require.NoError(s.T(), err)
	require.Equal(s.T(), want, a.Tier())
	require.LessOrEqual(s.T(), a.Tier(), high.Tier())
}

func (s *LifecycleSuite) TestMissingKernelFailsConstruction() {
	_, err := newScaleAlg(s.env, s.scale, algo.WithFloat32())
	require.ErrorIs(s.T(), err, algo.ErrorKernelNotRegistered)
	require.Zero(s.T(), s.stats.created.Get())
}

func (s *LifecycleSuite) TestBatchHappyPath() {
	a, err := newScaleAlg(s.env, s.scale)
	require.NoError(s.T(), err)
	a.par.Factor = 2
	a.input.Data = s.data([]float64{1, 2}, []float64{3, 4}, []float64{5, 6})

	require.Equal(s.T(), algo.StateCreated, a.State())
	require.NoError(s.T(), a.Compute())
	require.Equal(s.T(), algo.StateResultAvailable, a.State())
	require.True(s.T(), a.Succeeded())
	require.Equal(s.T(), []float64{2, 4, 6, 8, 10, 12}, a.result.Value.Values())
	require.True(s.T(), a.Errors().IsEmpty())
}

// TestSingleOwnership: one kernel per container, one result allocation per
// Compute, one release per Close.
func (s *LifecycleSuite) TestSingleOwnership() {
	a, err := newScaleAlg(s.env, s.scale)
	require.NoError(s.T(), err)
	require.EqualValues(s.T(), 1, s.stats.created.Get())
	a.input.Data = s.data([]float64{1})

	before := s.env.Allocator().Requests()
	require.NoError(s.T(), a.Compute())
	first := a.result
	require.EqualValues(s.T(), before+1, s.env.Allocator().Requests())
	require.NoError(s.T(), a.Compute())
	require.EqualValues(s.T(), before+2, s.env.Allocator().Requests())
	require.NotSame(s.T(), first, a.result)
	require.EqualValues(s.T(), 1, s.stats.created.Get())
	require.EqualValues(s.T(), 2, s.stats.computed.Get())

	a.Close()
	a.Close()
	require.EqualValues(s.T(), 1, s.stats.released.Get())
}

// TestValidateBeforeAllocate: a bad parameter or input never reaches the
// allocator or the kernel.
func (s *LifecycleSuite) TestValidateBeforeAllocate() {
	cases := []struct {
		name   string
		factor float64
		data   matrix.Matrix
		want   algo.ErrorID
	}{
		{"zero factor", 0, s.data([]float64{1}), algo.ErrorIncorrectParameter},
		{"nil data", 1, nil, algo.ErrorNullInputNumericTable},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			a, err := newScaleAlg(s.env, s.scale)
			require.NoError(s.T(), err)
			a.par.Factor = tc.factor
			a.input.Data = tc.data
			before := s.env.Allocator().Requests()
			computed := s.stats.computed.Get()

			require.ErrorIs(s.T(), a.Compute(), tc.want)
			require.Equal(s.T(), before, s.env.Allocator().Requests())
			require.Equal(s.T(), computed, s.stats.computed.Get())
			require.Nil(s.T(), a.result)
			require.Equal(s.T(), algo.StateFaulted, a.State())
		})
	}
}

func (s *LifecycleSuite) TestAllocationFailureIsResourceError() {
	a, err := newScaleAlg(s.env, s.scale)
	require.NoError(s.T(), err)
	a.input.Data = s.data([]float64{1})
	a.failNext = true

	err = a.Compute()
	require.ErrorIs(s.T(), err, algo.ErrorMemoryAllocationFailed)
	require.ErrorIs(s.T(), err, errInjected)
	rec, ok := a.Errors().At(0)
	require.True(s.T(), ok)
	require.Equal(s.T(), algo.KindResource, rec.Kind())
	require.Zero(s.T(), s.stats.computed.Get())
}

func (s *LifecycleSuite) TestMemoryLimit() {
	env := algo.MustEnvironment(algo.WithoutEnvVars(), algo.WithMemoryLimit(16))
	a, err := newScaleAlg(env, s.scale)
	require.NoError(s.T(), err)
	a.input.Data = s.data([]float64{1, 2, 3})

	err = a.Compute()
	require.ErrorIs(s.T(), err, algo.ErrorMemoryAllocationFailed)
	require.ErrorIs(s.T(), err, algo.ErrAllocationLimit)
}

// TestFaultedIsTerminal: once faulted, fixing the input does not revive the
// algorithm.
func (s *LifecycleSuite) TestFaultedIsTerminal() {
	a, err := newScaleAlg(s.env, s.scale)
	require.NoError(s.T(), err)
	require.Error(s.T(), a.Compute())

	a.input.Data = s.data([]float64{1})
	err = a.Compute()
	require.ErrorIs(s.T(), err, algo.ErrorNullInputNumericTable)
	require.Equal(s.T(), algo.StateFaulted, a.State())
	require.False(s.T(), a.Succeeded())
	require.Zero(s.T(), s.stats.computed.Get())
}

func (s *LifecycleSuite) TestComputeAfterClose() {
	a, err := newScaleAlg(s.env, s.scale)
	require.NoError(s.T(), err)
	a.input.Data = s.data([]float64{1})
	a.Close()
	require.ErrorIs(s.T(), a.Compute(), algo.ErrorAlgorithmFaulted)
}

// TestOnlineAccumulates: the partial result is allocated and initialised
// once and reused by every block.
func (s *LifecycleSuite) TestOnlineAccumulates() {
	a, err := newSumOnline(s.env, s.sum)
	require.NoError(s.T(), err)
	before := s.env.Allocator().Requests()

	for _, block := range []*matrix.Dense{
		s.data([]float64{1, 10}, []float64{2, 20}),
		s.data([]float64{3, 30}),
		s.data([]float64{6, 60}),
	} {
		a.input.Data = block
		require.NoError(s.T(), a.Compute())
		require.Equal(s.T(), algo.StateComputed, a.State())
	}
	require.Equal(s.T(), 1, a.inits)
	require.EqualValues(s.T(), before+2, s.env.Allocator().Requests())
	require.Equal(s.T(), []float64{12, 120}, a.partial.Sum.Values())

	require.NoError(s.T(), a.FinalizeCompute())
	require.Equal(s.T(), []float64{3, 30}, a.result.Mean.Values())
}

func (s *LifecycleSuite) TestOnlineRejectsFeatureChange() {
	a, err := newSumOnline(s.env, s.sum)
	require.NoError(s.T(), err)
	a.input.Data = s.data([]float64{1, 2})
	require.NoError(s.T(), a.Compute())

	a.input.Data = s.data([]float64{1, 2, 3})
	require.ErrorIs(s.T(), a.Compute(), algo.ErrorIncorrectNumberOfColumns)
}

// TestFinalizeIsIdempotent: repeated finalization leaves the partial result
// untouched and allocates the result once.
func (s *LifecycleSuite) TestFinalizeIsIdempotent() {
	a, err := newSumOnline(s.env, s.sum)
	require.NoError(s.T(), err)
	a.input.Data = s.data([]float64{2, 4}, []float64{4, 8})
	require.NoError(s.T(), a.Compute())

	require.NoError(s.T(), a.FinalizeCompute())
	partial := a.partial.Sum.Values()
	first := a.result.Mean.Values()
	requests := s.env.Allocator().Requests()

	require.NoError(s.T(), a.FinalizeCompute())
	require.Equal(s.T(), partial, a.partial.Sum.Values())
	require.Equal(s.T(), first, a.result.Mean.Values())
	require.Equal(s.T(), requests, s.env.Allocator().Requests())
	require.Equal(s.T(), algo.StateResultAvailable, a.State())
}

func (s *LifecycleSuite) TestFinalizeBeforeCompute() {
	a, err := newSumOnline(s.env, s.sum)
	require.NoError(s.T(), err)
	require.ErrorIs(s.T(), a.FinalizeCompute(), algo.ErrorNullPartialResult)
}

func (s *LifecycleSuite) TestSetInitializerReplacesProcedure() {
	a, err := newSumOnline(s.env, s.sum)
	require.NoError(s.T(), err)
	seeded := 0
	a.SetInitializer(algo.InitializerFunc(func(_ algo.Input, pres algo.PartialResult, _ algo.Parameter, _ *algo.ErrorCollection) {
		seeded++
		_ = pres.(*sumPartial).Sum.Fill(100)
	}))
	a.input.Data = s.data([]float64{1})
	require.NoError(s.T(), a.Compute())
	require.NoError(s.T(), a.Compute())

	require.Equal(s.T(), 1, seeded)
	require.Zero(s.T(), a.inits)
	require.Equal(s.T(), []float64{102}, a.partial.Sum.Values())
}

func (s *LifecycleSuite) TestInitializerFailureFaults() {
	a, err := newSumOnline(s.env, s.sum)
	require.NoError(s.T(), err)
	a.SetInitializer(algo.InitializerFunc(func(_ algo.Input, _ algo.PartialResult, _ algo.Parameter, errs *algo.ErrorCollection) {
		errs.AddArgument(algo.ErrorIncorrectParameter, "seed")
	}))
	a.input.Data = s.data([]float64{1})
	require.ErrorIs(s.T(), a.Compute(), algo.ErrorIncorrectParameter)
	require.Zero(s.T(), s.stats.computed.Get())
}

// TestMasterConsumesOnce: every contribution goes into one kernel call, and
// the collection is cleared afterwards.
func (s *LifecycleSuite) TestMasterConsumesOnce() {
	m, err := newSumMaster(s.env, s.sum)
	require.NoError(s.T(), err)
	for _, block := range [][]float64{{1, 2}, {3, 4}, {5, 6}} {
		local, err := newSumOnline(s.env, s.sum)
		require.NoError(s.T(), err)
		local.input.Data = s.data(block)
		require.NoError(s.T(), local.Compute())
		m.master.Partials.Add(local.partial)
	}
	computed := s.stats.computed.Get()

	require.NoError(s.T(), m.Compute())
	require.Equal(s.T(), computed+1, s.stats.computed.Get())
	require.Zero(s.T(), m.master.Partials.Len())
	require.Equal(s.T(), []float64{9, 12}, m.partial.Sum.Values())

	require.NoError(s.T(), m.FinalizeCompute())
	require.Equal(s.T(), []float64{3, 4}, m.result.Mean.Values())

	// Nothing left to reduce.
	err = m.Compute()
	require.ErrorIs(s.T(), err, algo.ErrorIncorrectNumberOfInputNumericTables)
	require.Equal(s.T(), computed+1, s.stats.computed.Get())
}

// TestMasterWithoutPartials: the empty collection is rejected before the
// kernel runs.
func (s *LifecycleSuite) TestMasterWithoutPartials() {
	m, err := newSumMaster(s.env, s.sum)
	require.NoError(s.T(), err)
	err = m.Compute()
	require.ErrorIs(s.T(), err, algo.ErrorIncorrectNumberOfInputNumericTables)
	require.Contains(s.T(), err.Error(), "incorrect number of input numeric tables")
	require.Zero(s.T(), s.stats.computed.Get())
}

func (s *LifecycleSuite) TestAdoptPartialResult() {
	a, err := newSumOnline(s.env, s.sum)
	require.NoError(s.T(), err)
	restored := &sumPartial{N: s.data([]float64{2}), Sum: s.data([]float64{8})}
	payload, err := algo.Marshal(restored)
	require.NoError(s.T(), err)

	a.partial = &sumPartial{}
	require.NoError(s.T(), algo.UnmarshalInto(payload, a.partial))
	a.AdoptPartialResult(true)
	a.input.Data = s.data([]float64{2})
	require.NoError(s.T(), a.Compute())
	require.Zero(s.T(), a.inits)
	require.NoError(s.T(), a.FinalizeCompute())
	require.Equal(s.T(), []float64{10.0 / 3}, a.result.Mean.Values())
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}
