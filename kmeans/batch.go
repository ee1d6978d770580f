// SPDX-License-Identifier: MIT

package kmeans

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// Batch runs the Lloyd iteration to completion over one data table.
type Batch struct {
	*algo.Batch
	input      Input
	par        Parameter
	result     *Result
	userResult bool
}

// NewBatch builds a batch K-Means algorithm for k clusters.
func NewBatch(env *algo.Environment, k int, opts ...algo.Option) (*Batch, error) {
	b := &Batch{input: Input{batch: true}, par: NewParameter(k)}
	core, err := algo.NewBatch(env, registry, algo.NewSettings(opts...), batchHooks{b},
		func(base *algo.ContainerBase) algo.BatchContainer { return &batchContainer{base} })
	if err != nil {
		return nil, err
	}
	b.Batch = core

	return b, nil
}

// Input returns the algorithm input.
func (b *Batch) Input() *Input { return &b.input }

// Parameter returns the algorithm parameter.
func (b *Batch) Parameter() *Parameter { return &b.par }

// Result returns the result of the last successful Compute, or nil.
func (b *Batch) Result() *Result {
	if !b.Succeeded() {
		return nil
	}

	return b.result
}

// SetResult supplies caller-owned result storage.
func (b *Batch) SetResult(r *Result) {
	b.result = r
	b.userResult = r != nil
}

// Clone returns an algorithm with its own container, a copy of the
// parameter and the same bound input tables.
func (b *Batch) Clone() (*Batch, error) {
	s := b.Settings()
	c, err := NewBatch(b.Environment(), b.par.NClusters, algo.WithMethod(s.Method), algo.WithFPType(s.FPType))
	if err != nil {
		return nil, err
	}
	c.input = b.input
	c.par = b.par

	return c, nil
}

type batchHooks struct{ b *Batch }

func (h batchHooks) Input() algo.Input         { return &h.b.input }
func (h batchHooks) Parameter() algo.Parameter { return &h.b.par }

func (h batchHooks) AllocateResult(env *algo.Environment) error {
	if h.b.userResult {
		return nil
	}
	d := h.b.input.Data
	r, err := newResult(env, d.Rows(), d.Cols(), h.b.par.NClusters, h.b.par.AssignFlag)
	if err != nil {
		return err
	}
	h.b.result = r

	return nil
}

func (h batchHooks) Result() algo.Result {
	if h.b.result == nil {
		return nil
	}

	return h.b.result
}

type batchContainer struct{ *algo.ContainerBase }

func (c *batchContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*Input](c.Input(), "input", errs)
	if !ok {
		return
	}
	res, ok := algo.Narrow[*Result](c.Result(), "result", errs)
	if !ok {
		return
	}
	prm, ok := algo.Narrow[*Parameter](c.Parameter(), "parameter", errs)
	if !ok {
		return
	}
	var assignments matrix.Matrix
	if prm.AssignFlag {
		assignments = res.Assignments
	}
	c.Run([]matrix.Matrix{in.Data, in.InputCentroids},
		[]matrix.Matrix{res.Centroids, assignments, res.GoalFunction, res.NIterations})
}
