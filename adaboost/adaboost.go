// SPDX-License-Identifier: MIT

package adaboost

import (
	"github.com/sirupsen/logrus"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
	"github.com/katalvlaran/algokit/stump"
)

// NewParameter returns the default parameter: decision stumps built with
// opts as weak learners.
func NewParameter(env *algo.Environment, opts ...algo.Option) (Parameter, error) {
	tr, err := stump.NewTrainingBatch(env, opts...)
	if err != nil {
		return Parameter{}, err
	}
	pr, err := stump.NewPredictionBatch(env, opts...)
	if err != nil {
		tr.Close()
		return Parameter{}, err
	}

	return Parameter{
		WeakLearnerTraining:   tr,
		WeakLearnerPrediction: pr,
		AccuracyThreshold:     DefaultAccuracyThreshold,
		MaxIterations:         DefaultMaxIterations,
	}, nil
}

// TrainingBatch boosts weak learners on one table of observations.
type TrainingBatch struct {
	*algo.Batch
	input TrainingInput
	par   Parameter
	model *Model
}

// NewTrainingBatch builds a boosting trainer with decision stumps.
func NewTrainingBatch(env *algo.Environment, opts ...algo.Option) (*TrainingBatch, error) {
	par, err := NewParameter(env, opts...)
	if err != nil {
		return nil, err
	}
	b := &TrainingBatch{par: par}
	core, err := algo.NewBatch(env, trainingRegistry, algo.NewSettings(opts...), trainingHooks{b},
		func(base *algo.ContainerBase) algo.BatchContainer { return &trainingContainer{base} })
	if err != nil {
		par.Close()
		return nil, err
	}
	b.Batch = core

	return b, nil
}

// Input returns the training input.
func (b *TrainingBatch) Input() *TrainingInput { return &b.input }

// Parameter returns the algorithm parameter.
func (b *TrainingBatch) Parameter() *Parameter { return &b.par }

// Model returns the model of the last successful Compute, or nil.
func (b *TrainingBatch) Model() *Model {
	if !b.Succeeded() {
		return nil
	}

	return b.model
}

// Clone returns a trainer with its own container, the same settings and
// bound input, and a parameter whose weak learners are cloned.
func (b *TrainingBatch) Clone() (*TrainingBatch, error) {
	c, err := NewTrainingBatch(b.Environment(), algo.WithMethod(b.Settings().Method), algo.WithFPType(b.Settings().FPType))
	if err != nil {
		return nil, err
	}
	par, err := b.par.Clone()
	if err != nil {
		c.Close()
		return nil, err
	}
	c.par.Close()
	c.par = par
	c.input = b.input

	return c, nil
}

// Close releases the container and the weak learners of the parameter.
func (b *TrainingBatch) Close() {
	b.Batch.Close()
	b.par.Close()
}

type trainingHooks struct{ b *TrainingBatch }

func (h trainingHooks) Input() algo.Input         { return &h.b.input }
func (h trainingHooks) Parameter() algo.Parameter { return &h.b.par }

func (h trainingHooks) AllocateResult(_ *algo.Environment) error {
	// Alpha is sized once the number of learners is known.
	h.b.model = &Model{Features: h.b.input.Data.Cols()}

	return nil
}

func (h trainingHooks) Result() algo.Result {
	if h.b.model == nil {
		return nil
	}

	return h.b.model
}

type trainingContainer struct{ *algo.ContainerBase }

// Compute runs the boosting rounds. Each round trains and applies the weak
// learner, then the kernel scores it and reweights the observations.
func (c *trainingContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*TrainingInput](c.Input(), "input", errs)
	if !ok {
		return
	}
	prm, ok := algo.Narrow[*Parameter](c.Parameter(), "parameter", errs)
	if !ok {
		return
	}
	m, ok := algo.Narrow[*Model](c.Result(), "model", errs)
	if !ok {
		return
	}
	alloc := c.Environment().Allocator()
	n := in.Data.Rows()
	weights, err := alloc.Dense(n, 1)
	if err != nil {
		errs.AddCause(algo.ErrorMemoryAllocationFailed, "weights", err)
		return
	}
	_ = weights.Fill(1 / float64(n))
	stats, err := alloc.Dense(1, 2)
	if err != nil {
		errs.AddCause(algo.ErrorMemoryAllocationFailed, "stats", err)
		return
	}

	var alphas []float64
	for t := 0; t < prm.MaxIterations; t++ {
		wm, err := prm.WeakLearnerTraining.Train(in.Data, in.Labels, weights)
		if err != nil {
			errs.AddCause(algo.ErrorAlgorithmFaulted, "weakLearnerTraining", err)
			return
		}
		h, err := prm.WeakLearnerPrediction.Predict(in.Data, wm)
		if err != nil {
			errs.AddCause(algo.ErrorAlgorithmFaulted, "weakLearnerPrediction", err)
			return
		}
		c.Run([]matrix.Matrix{h, in.Labels}, []matrix.Matrix{weights, stats})
		if !errs.IsEmpty() {
			return
		}
		e, _ := stats.At(0, 0)
		alpha, _ := stats.At(0, 1)
		if e >= 0.5 {
			break
		}
		alphas = append(alphas, alpha)
		m.WeakModels = append(m.WeakModels, wm)
		c.Logger().WithFields(logrus.Fields{"iteration": t, "error": e, "alpha": alpha}).Debug("adaboost: learner added")
		if e <= prm.AccuracyThreshold {
			break
		}
	}
	if len(alphas) == 0 {
		errs.AddArgument(algo.ErrorInsufficientObservations, "weakLearner")
		return
	}
	if m.Alpha, err = alloc.Dense(1, len(alphas)); err != nil {
		errs.AddCause(algo.ErrorMemoryAllocationFailed, "alpha", err)
		return
	}
	for t, a := range alphas {
		_ = m.Alpha.Set(0, t, a)
	}
}

// PredictionBatch labels observations with a boosted model.
type PredictionBatch struct {
	*algo.Batch
	input  PredictionInput
	par    Parameter
	result *PredictionResult
}

// NewPredictionBatch builds a boosted predictor with decision stumps.
func NewPredictionBatch(env *algo.Environment, opts ...algo.Option) (*PredictionBatch, error) {
	par, err := NewParameter(env, opts...)
	if err != nil {
		return nil, err
	}
	b := &PredictionBatch{par: par}
	core, err := algo.NewBatch(env, predictionRegistry, algo.NewSettings(opts...), predictionHooks{b},
		func(base *algo.ContainerBase) algo.BatchContainer { return &predictionContainer{base} })
	if err != nil {
		par.Close()
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

// Close releases the container and the weak learners of the parameter.
func (b *PredictionBatch) Close() {
	b.Batch.Close()
	b.par.Close()
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
	prm, ok := algo.Narrow[*Parameter](c.Parameter(), "parameter", errs)
	if !ok {
		return
	}
	res, ok := algo.Narrow[*PredictionResult](c.Result(), "result", errs)
	if !ok {
		return
	}
	votes := make([]matrix.Matrix, 0, in.Model.Len()+1)
	for _, wm := range in.Model.WeakModels {
		h, err := prm.WeakLearnerPrediction.Predict(in.Data, wm)
		if err != nil {
			errs.AddCause(algo.ErrorAlgorithmFaulted, "weakLearnerPrediction", err)
			return
		}
		votes = append(votes, h)
	}
	c.Run(append(votes, in.Model.Alpha), []matrix.Matrix{res.PredictedLabels})
}
