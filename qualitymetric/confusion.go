// SPDX-License-Identifier: MIT

package qualitymetric

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// MultiClass computes the confusion matrix of a C-class classifier.
type MultiClass struct {
	*algo.Batch
	input  Input
	par    MultiClassParameter
	result *MultiClassResult
}

// NewMultiClass builds a multi-class confusion matrix for nClasses classes.
func NewMultiClass(env *algo.Environment, nClasses int, opts ...algo.Option) (*MultiClass, error) {
	m := &MultiClass{par: NewMultiClassParameter(nClasses)}
	core, err := algo.NewBatch(env, multiClassRegistry, algo.NewSettings(opts...), multiClassHooks{m},
		func(base *algo.ContainerBase) algo.BatchContainer { return &multiClassContainer{base} })
	if err != nil {
		return nil, err
	}
	m.Batch = core

	return m, nil
}

// Input returns the algorithm input.
func (m *MultiClass) Input() *Input { return &m.input }

// Parameter returns the algorithm parameter.
func (m *MultiClass) Parameter() *MultiClassParameter { return &m.par }

// Result returns the result of the last successful Compute, or nil.
func (m *MultiClass) Result() *MultiClassResult {
	if !m.Succeeded() {
		return nil
	}

	return m.result
}

// Bind implements Metric.
func (m *MultiClass) Bind(in algo.Input) bool {
	v, ok := in.(*Input)
	if ok {
		m.input = *v
	}

	return ok
}

// Output implements Metric.
func (m *MultiClass) Output() algo.Result {
	if !m.Succeeded() {
		return nil
	}

	return m.result
}

type multiClassHooks struct{ m *MultiClass }

func (h multiClassHooks) Input() algo.Input         { return &h.m.input }
func (h multiClassHooks) Parameter() algo.Parameter { return &h.m.par }

func (h multiClassHooks) AllocateResult(env *algo.Environment) error {
	c := h.m.par.NClasses
	cm, err := env.Allocator().Dense(c, c)
	if err != nil {
		return err
	}
	metrics, err := env.Allocator().Dense(1, multiClassMetrics)
	if err != nil {
		return err
	}
	h.m.result = &MultiClassResult{ConfusionMatrix: cm, Metrics: metrics}

	return nil
}

func (h multiClassHooks) Result() algo.Result {
	if h.m.result == nil {
		return nil
	}

	return h.m.result
}

type multiClassContainer struct{ *algo.ContainerBase }

func (c *multiClassContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*Input](c.Input(), "input", errs)
	if !ok {
		return
	}
	res, ok := algo.Narrow[*MultiClassResult](c.Result(), "result", errs)
	if !ok {
		return
	}
	c.Run([]matrix.Matrix{in.PredictedLabels, in.GroundTruthLabels}, []matrix.Matrix{res.ConfusionMatrix, res.Metrics})
}

// Binary computes the confusion matrix of a two-class classifier with labels
// PositiveLabel and NegativeLabel.
type Binary struct {
	*algo.Batch
	input  Input
	par    BinaryParameter
	result *BinaryResult
}

// NewBinary builds a binary confusion matrix.
func NewBinary(env *algo.Environment, opts ...algo.Option) (*Binary, error) {
	b := &Binary{par: NewBinaryParameter()}
	core, err := algo.NewBatch(env, binaryRegistry, algo.NewSettings(opts...), binaryHooks{b},
		func(base *algo.ContainerBase) algo.BatchContainer { return &binaryContainer{base} })
	if err != nil {
		return nil, err
	}
	b.Batch = core

	return b, nil
}

// Input returns the algorithm input.
func (b *Binary) Input() *Input { return &b.input }

// Parameter returns the algorithm parameter.
func (b *Binary) Parameter() *BinaryParameter { return &b.par }

// Result returns the result of the last successful Compute, or nil.
func (b *Binary) Result() *BinaryResult {
	if !b.Succeeded() {
		return nil
	}

	return b.result
}

// Bind implements Metric.
func (b *Binary) Bind(in algo.Input) bool {
	v, ok := in.(*Input)
	if ok {
		b.input = *v
	}

	return ok
}

// Output implements Metric.
func (b *Binary) Output() algo.Result {
	if !b.Succeeded() {
		return nil
	}

	return b.result
}

type binaryHooks struct{ b *Binary }

func (h binaryHooks) Input() algo.Input         { return &h.b.input }
func (h binaryHooks) Parameter() algo.Parameter { return &h.b.par }

func (h binaryHooks) AllocateResult(env *algo.Environment) error {
	cm, err := env.Allocator().Dense(2, 2)
	if err != nil {
		return err
	}
	metrics, err := env.Allocator().Dense(1, binaryMetrics)
	if err != nil {
		return err
	}
	h.b.result = &BinaryResult{ConfusionMatrix: cm, Metrics: metrics}

	return nil
}

func (h binaryHooks) Result() algo.Result {
	if h.b.result == nil {
		return nil
	}

	return h.b.result
}

type binaryContainer struct{ *algo.ContainerBase }

func (c *binaryContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*Input](c.Input(), "input", errs)
	if !ok {
		return
	}
	res, ok := algo.Narrow[*BinaryResult](c.Result(), "result", errs)
	if !ok {
		return
	}
	c.Run([]matrix.Matrix{in.PredictedLabels, in.GroundTruthLabels}, []matrix.Matrix{res.ConfusionMatrix, res.Metrics})
}
