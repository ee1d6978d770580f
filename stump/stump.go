// SPDX-License-Identifier: MIT

package stump

import (
	"fmt"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
	"github.com/katalvlaran/algokit/weaklearner"
)

// TrainingBatch fits a stump to weighted observations.
type TrainingBatch struct {
	*algo.Batch
	input TrainingInput
	par   Parameter
	model *Model
}

// NewTrainingBatch builds a stump trainer.
func NewTrainingBatch(env *algo.Environment, opts ...algo.Option) (*TrainingBatch, error) {
	b := &TrainingBatch{}
	core, err := algo.NewBatch(env, trainingRegistry, algo.NewSettings(opts...), trainingHooks{b},
		func(base *algo.ContainerBase) algo.BatchContainer { return &trainingContainer{base} })
	if err != nil {
		return nil, err
	}
	b.Batch = core

	return b, nil
}

// Input returns the training input.
func (b *TrainingBatch) Input() *TrainingInput { return &b.input }

// Model returns the stump of the last successful Compute, or nil.
func (b *TrainingBatch) Model() *Model {
	if !b.Succeeded() {
		return nil
	}

	return b.model
}

// Clone returns a trainer with its own container and the same settings.
func (b *TrainingBatch) Clone() (*TrainingBatch, error) {
	return NewTrainingBatch(b.Environment(), algo.WithMethod(b.Settings().Method), algo.WithFPType(b.Settings().FPType))
}

// Train implements weaklearner.Training.
func (b *TrainingBatch) Train(data, labels, weights matrix.Matrix) (weaklearner.Model, error) {
	b.input = TrainingInput{Data: data, Labels: labels, Weights: weights}
	if err := b.Compute(); err != nil {
		return nil, fmt.Errorf("stump: train: %w", err)
	}

	return b.model, nil
}

// CloneTraining implements weaklearner.Training.
func (b *TrainingBatch) CloneTraining() (weaklearner.Training, error) { return b.Clone() }

type trainingHooks struct{ b *TrainingBatch }

func (h trainingHooks) Input() algo.Input         { return &h.b.input }
func (h trainingHooks) Parameter() algo.Parameter { return &h.b.par }

func (h trainingHooks) AllocateResult(env *algo.Environment) error {
	split, err := env.Allocator().Dense(1, splitCols)
	if err != nil {
		return err
	}
	h.b.model = &Model{Split: split, Features: h.b.input.Data.Cols()}

	return nil
}

func (h trainingHooks) Result() algo.Result {
	if h.b.model == nil {
		return nil
	}

	return h.b.model
}

type trainingContainer struct{ *algo.ContainerBase }

func (c *trainingContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*TrainingInput](c.Input(), "input", errs)
	if !ok {
		return
	}
	m, ok := algo.Narrow[*Model](c.Result(), "model", errs)
	if !ok {
		return
	}
	c.Run([]matrix.Matrix{in.Data, in.Labels, in.Weights}, []matrix.Matrix{m.Split})
}

// PredictionBatch labels observations with a stump.
type PredictionBatch struct {
	*algo.Batch
	input  PredictionInput
	par    Parameter
	result *PredictionResult
}

// NewPredictionBatch builds a stump predictor.
func NewPredictionBatch(env *algo.Environment, opts ...algo.Option) (*PredictionBatch, error) {
	b := &PredictionBatch{}
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

// Result returns the labels of the last successful Compute, or nil.
func (b *PredictionBatch) Result() *PredictionResult {
	if !b.Succeeded() {
		return nil
	}

	return b.result
}

// Clone returns a predictor with its own container and the same settings.
func (b *PredictionBatch) Clone() (*PredictionBatch, error) {
	return NewPredictionBatch(b.Environment(), algo.WithMethod(b.Settings().Method), algo.WithFPType(b.Settings().FPType))
}

// Predict implements weaklearner.Prediction.
func (b *PredictionBatch) Predict(data matrix.Matrix, m weaklearner.Model) (*matrix.Dense, error) {
	sm, ok := m.(*Model)
	if !ok {
		return nil, fmt.Errorf("stump: predict: %T: %w", m, algo.ErrorIncorrectTypeOfArgument)
	}
	b.input = PredictionInput{Data: data, Model: sm}
	if err := b.Compute(); err != nil {
		return nil, fmt.Errorf("stump: predict: %w", err)
	}

	return b.result.PredictedLabels, nil
}

// ClonePrediction implements weaklearner.Prediction.
func (b *PredictionBatch) ClonePrediction() (weaklearner.Prediction, error) { return b.Clone() }

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
	c.Run([]matrix.Matrix{in.Data, in.Model.Split}, []matrix.Matrix{res.PredictedLabels})
}

var (
	_ weaklearner.Training   = (*TrainingBatch)(nil)
	_ weaklearner.Prediction = (*PredictionBatch)(nil)
)
