// SPDX-License-Identifier: MIT

package pca

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// DefaultInitializer zero-fills the accumulators and drops any R factors.
var DefaultInitializer algo.Initializer = algo.InitializerFunc(
	func(_ algo.Input, pres algo.PartialResult, _ algo.Parameter, errs *algo.ErrorCollection) {
		pr, ok := algo.Narrow[*PartialResult](pres, "partialResult", errs)
		if !ok {
			return
		}
		for _, m := range []*matrix.Dense{pr.NObservations, pr.Sum, pr.CrossProduct, pr.SumSquares} {
			if m.Allocated() {
				m.Zero()
			}
		}
		pr.Auxiliary = nil
	})

// Online folds data blocks into a PartialResult. The same type is the
// step1Local algorithm of distributed PCA (see NewLocal).
type Online struct {
	*algo.Streaming
	input  Input
	par    Parameter
	pres   *PartialResult
	result *Result
}

// NewOnline builds an online PCA algorithm.
func NewOnline(env *algo.Environment, opts ...algo.Option) (*Online, error) {
	return newOnline(env, algo.ModeOnline, opts...)
}

// NewLocal builds the step1Local algorithm of distributed PCA.
func NewLocal(env *algo.Environment, opts ...algo.Option) (*Online, error) {
	return newOnline(env, algo.ModeStep1Local, opts...)
}

func newOnline(env *algo.Environment, mode algo.Mode, opts ...algo.Option) (*Online, error) {
	o := &Online{input: Input{requireData: true}, par: DefaultParameter()}
	core, err := algo.NewStreaming(env, registry, mode, algo.NewSettings(opts...), onlineHooks{o}, DefaultInitializer,
		func(base *algo.ContainerBase) algo.StreamingContainer { return &onlineContainer{base} })
	if err != nil {
		return nil, err
	}
	o.Streaming = core

	return o, nil
}

// Input returns the input the next Compute reads.
func (o *Online) Input() *Input { return &o.input }

// Parameter returns the algorithm parameter.
func (o *Online) Parameter() *Parameter { return &o.par }

// PartialResult returns the accumulator (nil before the first Compute).
func (o *Online) PartialResult() *PartialResult { return o.pres }

// SetPartialResult resumes from a previously saved accumulator.
func (o *Online) SetPartialResult(pres *PartialResult) {
	o.pres = pres
	o.AdoptPartialResult(true)
}

// Result returns the final result (nil before FinalizeCompute).
func (o *Online) Result() *Result { return o.result }

type onlineHooks struct{ o *Online }

func (h onlineHooks) Input() algo.Input         { return &h.o.input }
func (h onlineHooks) Parameter() algo.Parameter { return &h.o.par }

func (h onlineHooks) AllocatePartialResult(env *algo.Environment) error {
	pr, err := NewPartialResult(env, h.o.Settings().Method, h.o.input.features())
	if err != nil {
		return err
	}
	h.o.pres = pr

	return nil
}

func (h onlineHooks) PartialResult() algo.PartialResult {
	if h.o.pres == nil {
		return nil
	}

	return h.o.pres
}

func (h onlineHooks) AllocateResult(env *algo.Environment) error {
	r, err := newResult(env, h.o.pres.Features())
	if err != nil {
		return err
	}
	h.o.result = r

	return nil
}

func (h onlineHooks) Result() algo.FinalResult {
	if h.o.result == nil {
		return nil
	}

	return h.o.result
}

type onlineContainer struct{ *algo.ContainerBase }

func (c *onlineContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*Input](c.Input(), "input", errs)
	if !ok {
		return
	}
	pres, ok := algo.Narrow[*PartialResult](c.PartialResult(), "partialResult", errs)
	if !ok {
		return
	}
	if pres.Method != SVDDense {
		c.Run([]matrix.Matrix{in.Data}, pres.moments())
		return
	}
	p := pres.Features()
	r, err := c.Environment().Allocator().Dense(p, p)
	if err != nil {
		errs.AddCause(algo.ErrorMemoryAllocationFailed, "auxiliaryData", err)
		return
	}
	c.Run([]matrix.Matrix{in.Data}, append(pres.moments(), r))
	if errs.IsEmpty() {
		pres.Auxiliary = append(pres.Auxiliary, r)
	}
}

func (c *onlineContainer) FinalizeCompute() {
	errs := c.Errors()
	pres, ok := algo.Narrow[*PartialResult](c.PartialResult(), "partialResult", errs)
	if !ok {
		return
	}
	res, ok := algo.Narrow[*Result](c.Result(), "result", errs)
	if !ok {
		return
	}
	c.RunFinalize(pres.tables(), []matrix.Matrix{res.Eigenvalues, res.Eigenvectors})
}

// Master is the step2Master algorithm of distributed PCA.
type Master struct {
	*algo.Streaming
	input  *DistributedInput
	par    Parameter
	pres   *PartialResult
	result *Result
}

// NewMaster builds a step2Master PCA algorithm.
func NewMaster(env *algo.Environment, opts ...algo.Option) (*Master, error) {
	m := &Master{input: NewDistributedInput(), par: DefaultParameter()}
	core, err := algo.NewStreaming(env, registry, algo.ModeStep2Master, algo.NewSettings(opts...), masterHooks{m}, DefaultInitializer,
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

// PartialResult returns the merged accumulator.
func (m *Master) PartialResult() *PartialResult { return m.pres }

// Result returns the final result (nil before FinalizeCompute).
func (m *Master) Result() *Result { return m.result }

type masterHooks struct{ m *Master }

func (h masterHooks) Input() algo.Input         { return h.m.input }
func (h masterHooks) Parameter() algo.Parameter { return &h.m.par }

func (h masterHooks) AllocatePartialResult(env *algo.Environment) error {
	pr, err := NewPartialResult(env, h.m.Settings().Method, h.m.input.features())
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
	r, err := newResult(env, h.m.pres.Features())
	if err != nil {
		return err
	}
	h.m.result = r

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
	if pres.Method == SVDDense {
		// R factors are concatenated, not summed: copy them into the master's
		// own collection before the contributions are dropped.
		alloc := c.Environment().Allocator()
		for _, pr := range in.PartialResults.Items() {
			for _, r := range pr.Auxiliary {
				cp, err := alloc.Dense(r.Rows(), r.Cols())
				if err != nil {
					errs.AddCause(algo.ErrorMemoryAllocationFailed, "auxiliaryData", err)
					return
				}
				if err = cp.CopyFrom(r); err != nil {
					errs.AddCause(algo.ErrorBlockAccess, "auxiliaryData", err)
					return
				}
				pres.Auxiliary = append(pres.Auxiliary, cp)
			}
		}
	}
	algo.ReduceOnce(c.ContainerBase, in.PartialResults, (*PartialResult).moments, pres.moments())
}

func (c *masterContainer) FinalizeCompute() {
	errs := c.Errors()
	pres, ok := algo.Narrow[*PartialResult](c.PartialResult(), "partialResult", errs)
	if !ok {
		return
	}
	res, ok := algo.Narrow[*Result](c.Result(), "result", errs)
	if !ok {
		return
	}
	c.RunFinalize(pres.tables(), []matrix.Matrix{res.Eigenvalues, res.Eigenvectors})
}
