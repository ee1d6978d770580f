// SPDX-License-Identifier: MIT

package kmeans

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// resetInit zeroes the reduction tables and empties the candidate slots.
var resetInit = algo.InitializerFunc(func(_ algo.Input, pres algo.PartialResult, _ algo.Parameter, errs *algo.ErrorCollection) {
	pr, ok := algo.Narrow[*PartialResult](pres, "partialResult", errs)
	if !ok {
		return
	}
	pr.NObservations.Zero()
	pr.PartialSums.Zero()
	pr.PartialGoalFunction.Zero()
	pr.CandidateCentroids.Zero()
	if err := pr.CandidateDistances.Fill(-1); err != nil {
		errs.AddCause(algo.ErrorBlockAccess, "candidateDistances", err)
	}
})

// Local is the step1Local algorithm: one Lloyd sweep over the node's block
// against the current centroids. Each Compute overwrites the partial result;
// FinalizeCompute emits the node's assignments.
type Local struct {
	*algo.Streaming
	input  Input
	par    Parameter
	pres   *PartialResult
	result *LocalResult
}

// NewLocal builds a step1Local K-Means algorithm for k clusters.
func NewLocal(env *algo.Environment, k int, opts ...algo.Option) (*Local, error) {
	l := &Local{par: NewParameter(k)}
	core, err := algo.NewStreaming(env, registry, algo.ModeStep1Local, algo.NewSettings(opts...), localHooks{l}, resetInit,
		func(base *algo.ContainerBase) algo.StreamingContainer { return &localContainer{base} })
	if err != nil {
		return nil, err
	}
	l.Streaming = core

	return l, nil
}

// Input returns the input the next Compute reads.
func (l *Local) Input() *Input { return &l.input }

// Parameter returns the algorithm parameter.
func (l *Local) Parameter() *Parameter { return &l.par }

// PartialResult returns the node's statistics (nil before the first Compute).
func (l *Local) PartialResult() *PartialResult { return l.pres }

// Result returns the node's assignments (nil before FinalizeCompute).
func (l *Local) Result() *LocalResult { return l.result }

type localHooks struct{ l *Local }

func (h localHooks) Input() algo.Input         { return &h.l.input }
func (h localHooks) Parameter() algo.Parameter { return &h.l.par }

func (h localHooks) AllocatePartialResult(env *algo.Environment) error {
	n := 0
	if h.l.par.AssignFlag {
		n = h.l.input.Data.Rows()
	}
	pr, err := NewPartialResult(env, h.l.par.NClusters, h.l.input.Data.Cols(), n)
	if err != nil {
		return err
	}
	h.l.pres = pr

	return nil
}

func (h localHooks) PartialResult() algo.PartialResult {
	if h.l.pres == nil {
		return nil
	}

	return h.l.pres
}

func (h localHooks) AllocateResult(env *algo.Environment) error {
	if h.l.pres.PartialAssignments == nil {
		return nil
	}
	a, err := env.Allocator().Dense(h.l.pres.PartialAssignments.Rows(), 1)
	if err != nil {
		return err
	}
	h.l.result = &LocalResult{Assignments: a}

	return nil
}

func (h localHooks) Result() algo.FinalResult {
	if h.l.result == nil {
		return nil
	}

	return h.l.result
}

type localContainer struct{ *algo.ContainerBase }

func (c *localContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*Input](c.Input(), "input", errs)
	if !ok {
		return
	}
	pres, ok := algo.Narrow[*PartialResult](c.PartialResult(), "partialResult", errs)
	if !ok {
		return
	}
	var assignments matrix.Matrix
	if pres.PartialAssignments != nil {
		assignments = pres.PartialAssignments
	}
	c.Run([]matrix.Matrix{in.Data, in.InputCentroids}, append(pres.reduction(), assignments))
}

func (c *localContainer) FinalizeCompute() {
	errs := c.Errors()
	pres, ok := algo.Narrow[*PartialResult](c.PartialResult(), "partialResult", errs)
	if !ok {
		return
	}
	res, ok := algo.Narrow[*LocalResult](c.Result(), "result", errs)
	if !ok {
		return
	}
	c.RunFinalize([]matrix.Matrix{pres.PartialAssignments}, []matrix.Matrix{res.Assignments})
}

// Master is the step2Master algorithm: it merges the statistics of every
// node and derives the next centroids.
type Master struct {
	*algo.Streaming
	input  *DistributedInput
	par    Parameter
	pres   *PartialResult
	result *MasterResult
}

// NewMaster builds a step2Master K-Means algorithm for k clusters.
func NewMaster(env *algo.Environment, k int, opts ...algo.Option) (*Master, error) {
	m := &Master{input: NewDistributedInput(), par: NewParameter(k)}
	core, err := algo.NewStreaming(env, registry, algo.ModeStep2Master, algo.NewSettings(opts...), masterHooks{m}, resetInit,
		func(base *algo.ContainerBase) algo.StreamingContainer { return &masterContainer{base} })
	if err != nil {
		return nil, err
	}
	m.Streaming = core

	return m, nil
}

// Input returns the collection of contributed partial results.
func (m *Master) Input() *DistributedInput { return m.input }

// Parameter returns the algorithm parameter.
func (m *Master) Parameter() *Parameter { return &m.par }

// PartialResult returns the merged statistics.
func (m *Master) PartialResult() *PartialResult { return m.pres }

// Result returns the next centroids (nil before FinalizeCompute).
func (m *Master) Result() *MasterResult { return m.result }

type masterHooks struct{ m *Master }

func (h masterHooks) Input() algo.Input         { return h.m.input }
func (h masterHooks) Parameter() algo.Parameter { return &h.m.par }

func (h masterHooks) AllocatePartialResult(env *algo.Environment) error {
	pr, err := NewPartialResult(env, h.m.par.NClusters, h.m.input.features(), 0)
	if err != nil {
		return err
	}
	h.m.pres = pr

	return nil
}

func (h masterHooks) PartialResult() algo.PartialResult {
	if h.m.pres == nil {
		return nil
	}

	return h.m.pres
}

func (h masterHooks) AllocateResult(env *algo.Environment) error {
	a := env.Allocator()
	c, err := a.Dense(h.m.pres.Clusters(), h.m.pres.Features())
	if err != nil {
		return err
	}
	g, err := a.Dense(1, 1)
	if err != nil {
		return err
	}
	h.m.result = &MasterResult{Centroids: c, GoalFunction: g}

	return nil
}

func (h masterHooks) Result() algo.FinalResult {
	if h.m.result == nil {
		return nil
	}

	return h.m.result
}

type masterContainer struct{ *algo.ContainerBase }

func (c *masterContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*DistributedInput](c.Input(), "input", errs)
	if !ok {
		return
	}
	pres, ok := algo.Narrow[*PartialResult](c.PartialResult(), "partialResult", errs)
	if !ok {
		return
	}
	algo.ReduceOnce(c.ContainerBase, in.PartialResults, (*PartialResult).reduction, pres.reduction())
}

func (c *masterContainer) FinalizeCompute() {
	errs := c.Errors()
	pres, ok := algo.Narrow[*PartialResult](c.PartialResult(), "partialResult", errs)
	if !ok {
		return
	}
	res, ok := algo.Narrow[*MasterResult](c.Result(), "result", errs)
	if !ok {
		return
	}
	c.RunFinalize(pres.reduction(), []matrix.Matrix{res.Centroids, res.GoalFunction})
}
