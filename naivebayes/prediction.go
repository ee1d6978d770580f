// SPDX-License-Identifier: MIT

package naivebayes

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

var predictionRegistry = algo.NewRegistry("naivebayes.prediction")

// PredictionRegistry exposes the prediction dispatch table for inspection.
func PredictionRegistry() *algo.Registry { return predictionRegistry }

func registerPrediction[T algo.Float](t algo.CPUTier, fp algo.FPType) {
	lanes := algo.Lanes[T](t)
	predictionRegistry.Register(algo.KernelKey{Mode: algo.ModeBatch, FPType: fp, Method: DefaultDense}, t,
		func() algo.Kernel { return &predictKernel[T]{lanes: lanes} })
}

// PredictionInput holds the observations to classify and the trained model.
type PredictionInput struct {
	Data  matrix.Matrix // n×p
	Model *Model
}

// Check implements algo.Input.
func (in *PredictionInput) Check(par algo.Parameter, method algo.Method, errs *algo.ErrorCollection) {
	if method != DefaultDense {
		errs.AddArgument(algo.ErrorUnsupportedMethod, "method")
		return
	}
	if in.Model.Classes() == 0 || in.Model.Features() == 0 {
		errs.AddArgument(algo.ErrorNullInputNumericTable, "model")
		return
	}
	if prm, ok := par.(*Parameter); ok && in.Model.Classes() != prm.NClasses {
		errs.AddArgument(algo.ErrorIncorrectNumberOfRows, "model")
		return
	}
	algo.CheckData(in.Data, "data", in.Model.Features(), errs)
}

// PredictionResult holds one class label per observation.
type PredictionResult struct {
	PredictedLabels *matrix.Dense // n×1
}

// Check implements algo.Result.
func (r *PredictionResult) Check(in algo.Input, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	data, ok := algo.Narrow[*PredictionInput](in, "input", errs)
	if !ok {
		return
	}
	algo.CheckOutputTable(r.PredictedLabels, "predictedLabels", data.Data.Rows(), 1, errs)
}

// SerializationTag implements algo.Serializable.
func (r *PredictionResult) SerializationTag() algo.Tag { return TagPredictionResult }

// Serialize implements algo.Serializable.
func (r *PredictionResult) Serialize(a algo.Archive) error {
	return a.Dense("predictedLabels", &r.PredictedLabels)
}

// PredictionBatch labels observations with the most probable class.
type PredictionBatch struct {
	*algo.Batch
	input  PredictionInput
	par    Parameter
	result *PredictionResult
}

// NewPredictionBatch builds a predictor for nClasses classes.
func NewPredictionBatch(env *algo.Environment, nClasses int, opts ...algo.Option) (*PredictionBatch, error) {
	b := &PredictionBatch{par: NewParameter(nClasses)}
	core, err := algo.NewBatch(env, predictionRegistry, algo.NewSettings(opts...), predictionHooks{b},
		func(base *algo.ContainerBase) algo.BatchContainer { return &predictionContainer{base} })
	if err != nil {
		return nil, err
	}
	b.Batch = core

	return b, nil
}

// Input returns the prediction input.
func (b *PredictionBatch) Input() *PredictionInput { return &b.input }

// Parameter returns the algorithm parameter.
func (b *PredictionBatch) Parameter() *Parameter { return &b.par }

// Result returns the labels of the last successful Compute, or nil.
func (b *PredictionBatch) Result() *PredictionResult {
	if !b.Succeeded() {
		return nil
	}

	return b.result
}

type predictionHooks struct{ b *PredictionBatch }

func (h predictionHooks) Input() algo.Input         { return &h.b.input }
func (h predictionHooks) Parameter() algo.Parameter { return &h.b.par }

func (h predictionHooks) AllocateResult(env *algo.Environment) error {
	labels, err := env.Allocator().Dense(h.b.input.Data.Rows(), 1)
	if err != nil {
		return err
	}
	h.b.result = &PredictionResult{PredictedLabels: labels}

	return nil
}

func (h predictionHooks) Result() algo.Result {
	if h.b.result == nil {
		return nil
	}

	return h.b.result
}

type predictionContainer struct{ *algo.ContainerBase }

func (c *predictionContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*PredictionInput](c.Input(), "input", errs)
	if !ok {
		return
	}
	res, ok := algo.Narrow[*PredictionResult](c.Result(), "result", errs)
	if !ok {
		return
	}
	c.Run([]matrix.Matrix{in.Data, in.Model.LogPrior, in.Model.LogTheta}, []matrix.Matrix{res.PredictedLabels})
}
