// SPDX-License-Identifier: MIT

package activation

import "github.com/katalvlaran/algokit/algo"

// Softmax maps every row to a probability distribution:
//
//	value[i][j] = exp(x[i][j]) / Σ_k exp(x[i][k])
type Softmax struct {
	*algo.Batch
	input  ForwardInput
	par    Parameter
	result *ForwardResult
}

// NewSoftmax builds the forward softmax layer.
func NewSoftmax(env *algo.Environment, opts ...algo.Option) (*Softmax, error) {
	b := &Softmax{}
	core, err := algo.NewBatch(env, softmaxRegistry, algo.NewSettings(opts...), forwardHooks{&b.input, &b.par, &b.result},
		func(base *algo.ContainerBase) algo.BatchContainer { return &forwardContainer{base} })
	if err != nil {
		return nil, err
	}
	b.Batch = core

	return b, nil
}

// Input returns the layer input.
func (b *Softmax) Input() *ForwardInput { return &b.input }

// Result returns the output of the last successful Compute, or nil.
func (b *Softmax) Result() *ForwardResult {
	if !b.Succeeded() {
		return nil
	}

	return b.result
}
