// SPDX-License-Identifier: MIT

package covariance

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// Batch computes the covariance (or correlation) matrix of one data table.
type Batch struct {
	*algo.Batch
	input      Input
	par        Parameter
	result     *Result
	userResult bool
}

// NewBatch builds a batch covariance algorithm.
func NewBatch(env *algo.Environment, opts ...algo.Option) (*Batch, error) {
	b := &Batch{}
	core, err := algo.NewBatch(env, registry, algo.NewSettings(opts...), batchHooks{b},
		func(base *algo.ContainerBase) algo.BatchContainer { return &batchContainer{base} })
	if err != nil {
		return nil, err
	}
	b.Batch = core

	return b, nil
}

// Input returns the algorithm input for binding data.
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

// SetResult supplies caller-owned result storage; Compute writes into it.
func (b *Batch) SetResult(r *Result) {
	b.result = r
	b.userResult = r != nil
}

// Clone returns a new algorithm with its own container, the same settings,
// a copy of the parameter and the same bound input tables.
func (b *Batch) Clone() (*Batch, error) {
	c, err := NewBatch(b.Environment(), algo.WithMethod(b.Settings().Method), algo.WithFPType(b.Settings().FPType))
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
	r, err := newResult(env, h.b.input.Data.Cols())
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
	c.Run([]matrix.Matrix{in.Data}, []matrix.Matrix{res.Matrix, res.Mean})
}
