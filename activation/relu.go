// SPDX-License-Identifier: MIT

package activation

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// ReLUForward computes max(0, x) element-wise.
type ReLUForward struct {
	*algo.Batch
	input  ForwardInput
	par    Parameter
	result *ForwardResult
}

// NewReLUForward builds the forward ReLU layer.
func NewReLUForward(env *algo.Environment, opts ...algo.Option) (*ReLUForward, error) {
	b := &ReLUForward{}
	core, err := algo.NewBatch(env, reluForwardRegistry, algo.NewSettings(opts...), forwardHooks{&b.input, &b.par, &b.result},
		func(base *algo.ContainerBase) algo.BatchContainer { return &forwardContainer{base} })
	if err != nil {
		return nil, err
	}
	b.Batch = core

	return b, nil
}

// Input returns the layer input.
func (b *ReLUForward) Input() *ForwardInput { return &b.input }

// Result returns the output of the last successful Compute, or nil.
func (b *ReLUForward) Result() *ForwardResult {
	if !b.Succeeded() {
		return nil
	}

	return b.result
}

// Clone returns a layer with its own container, the same settings and the
// same bound input.
func (b *ReLUForward) Clone() (*ReLUForward, error) {
	c, err := NewReLUForward(b.Environment(), algo.WithMethod(b.Settings().Method), algo.WithFPType(b.Settings().FPType))
	if err != nil {
		return nil, err
	}
	c.input = b.input

	return c, nil
}

// ReLUBackward propagates a gradient through ReLU.
type ReLUBackward struct {
	*algo.Batch
	input  BackwardInput
	par    Parameter
	result *BackwardResult
}

// NewReLUBackward builds the backward ReLU layer.
func NewReLUBackward(env *algo.Environment, opts ...algo.Option) (*ReLUBackward, error) {
	b := &ReLUBackward{}
	core, err := algo.NewBatch(env, reluBackwardRegistry, algo.NewSettings(opts...), backwardHooks{b},
		func(base *algo.ContainerBase) algo.BatchContainer { return &backwardContainer{base} })
	if err != nil {
		return nil, err
	}
	b.Batch = core

	return b, nil
}

// Input returns the layer input.
func (b *ReLUBackward) Input() *BackwardInput { return &b.input }

// Result returns the gradient of the last successful Compute, or nil.
func (b *ReLUBackward) Result() *BackwardResult {
	if !b.Succeeded() {
		return nil
	}

	return b.result
}

// forwardHooks serve every element-wise forward layer.
type forwardHooks struct {
	in  *ForwardInput
	par *Parameter
	res **ForwardResult
}

func (h forwardHooks) Input() algo.Input         { return h.in }
func (h forwardHooks) Parameter() algo.Parameter { return h.par }

func (h forwardHooks) AllocateResult(env *algo.Environment) error {
	v, err := env.Allocator().Dense(h.in.Data.Rows(), h.in.Data.Cols())
	if err != nil {
		return err
	}
	*h.res = &ForwardResult{Value: v}

	return nil
}

func (h forwardHooks) Result() algo.Result {
	if *h.res == nil {
		return nil
	}

	return *h.res
}

type forwardContainer struct{ *algo.ContainerBase }

func (c *forwardContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*ForwardInput](c.Input(), "input", errs)
	if !ok {
		return
	}
	res, ok := algo.Narrow[*ForwardResult](c.Result(), "result", errs)
	if !ok {
		return
	}
	c.Run([]matrix.Matrix{in.Data}, []matrix.Matrix{res.Value})
}

type backwardHooks struct{ b *ReLUBackward }

func (h backwardHooks) Input() algo.Input         { return &h.b.input }
func (h backwardHooks) Parameter() algo.Parameter { return &h.b.par }

func (h backwardHooks) AllocateResult(env *algo.Environment) error {
	g, err := env.Allocator().Dense(h.b.input.Data.Rows(), h.b.input.Data.Cols())
	if err != nil {
		return err
	}
	h.b.result = &BackwardResult{Gradient: g}

	return nil
}

func (h backwardHooks) Result() algo.Result {
	if h.b.result == nil {
		return nil
	}

	return h.b.result
}

type backwardContainer struct{ *algo.ContainerBase }

func (c *backwardContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*BackwardInput](c.Input(), "input", errs)
	if !ok {
		return
	}
	res, ok := algo.Narrow[*BackwardResult](c.Result(), "result", errs)
	if !ok {
		return
	}
	c.Run([]matrix.Matrix{in.InputGradient, in.Data}, []matrix.Matrix{res.Gradient})
}
