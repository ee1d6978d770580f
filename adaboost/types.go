// SPDX-License-Identifier: MIT

package adaboost

import (
	"fmt"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
	"github.com/katalvlaran/algokit/weaklearner"
)

// DefaultDense is discrete AdaBoost.
const DefaultDense = algo.DefaultDense

// Serialization tags.
const (
	TagModel            algo.Tag = 0x0701
	TagPredictionResult algo.Tag = 0x0702
)

func init() {
	algo.RegisterType(TagModel, func() algo.Serializable { return &Model{} })
	algo.RegisterType(TagPredictionResult, func() algo.Serializable { return &PredictionResult{} })
}

// Defaults.
const (
	DefaultMaxIterations     = 100
	DefaultAccuracyThreshold = 0.0
)

// minError keeps the learner weight finite when a learner is perfect.
const minError = 1e-10

// Parameter configures boosting. It owns the weak-learner algorithms: Clone
// copies them so two parameters never share sub-algorithm state.
type Parameter struct {
	WeakLearnerTraining   weaklearner.Training
	WeakLearnerPrediction weaklearner.Prediction
	// AccuracyThreshold stops training once a learner's weighted error is
	// at or below it.
	AccuracyThreshold float64
	MaxIterations     int
}

// Check implements algo.Parameter.
func (p *Parameter) Check(errs *algo.ErrorCollection) {
	if p.WeakLearnerTraining == nil {
		errs.AddArgument(algo.ErrorNullParameter, "weakLearnerTraining")
	}
	if p.WeakLearnerPrediction == nil {
		errs.AddArgument(algo.ErrorNullParameter, "weakLearnerPrediction")
	}
	if p.MaxIterations <= 0 {
		errs.AddArgument(algo.ErrorIncorrectParameter, "maxIterations")
	}
	if p.AccuracyThreshold < 0 || p.AccuracyThreshold >= 0.5 {
		errs.AddArgument(algo.ErrorIncorrectParameter, "accuracyThreshold")
	}
}

// Clone returns a copy of p with cloned weak-learner algorithms.
func (p *Parameter) Clone() (Parameter, error) {
	c := *p
	var err error
	if p.WeakLearnerTraining != nil {
		if c.WeakLearnerTraining, err = p.WeakLearnerTraining.CloneTraining(); err != nil {
			return Parameter{}, fmt.Errorf("adaboost: clone weak learner training: %w", err)
		}
	}
	if p.WeakLearnerPrediction != nil {
		if c.WeakLearnerPrediction, err = p.WeakLearnerPrediction.ClonePrediction(); err != nil {
			return Parameter{}, fmt.Errorf("adaboost: clone weak learner prediction: %w", err)
		}
	}

	return c, nil
}

// Close releases the weak-learner algorithms.
func (p *Parameter) Close() {
	if p.WeakLearnerTraining != nil {
		p.WeakLearnerTraining.Close()
	}
	if p.WeakLearnerPrediction != nil {
		p.WeakLearnerPrediction.Close()
	}
}

// TrainingInput holds observations and ±1 labels.
type TrainingInput struct {
	Data   matrix.Matrix // n×p
	Labels matrix.Matrix // n×1
}

// Check implements algo.Input.
func (in *TrainingInput) Check(_ algo.Parameter, method algo.Method, errs *algo.ErrorCollection) {
	if method != DefaultDense {
		errs.AddArgument(algo.ErrorUnsupportedMethod, "method")
		return
	}
	if !algo.CheckData(in.Data, "data", 0, errs) {
		return
	}
	algo.CheckInputTable(in.Labels, "labels", in.Data.Rows(), 1, errs)
}

// Model is a weighted vote of weak learners.
type Model struct {
	// Alpha is 1×M, the vote of every learner.
	Alpha      *matrix.Dense
	WeakModels []weaklearner.Model
	Features   int
}

// Len returns the number of weak learners.
func (m *Model) Len() int { return len(m.WeakModels) }

// Check implements algo.Result.
func (m *Model) Check(_ algo.Input, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	if m.Features <= 0 {
		errs.AddArgument(algo.ErrorIncorrectNumberOfFeatures, "model")
	}
}

func (m *Model) checkTrained(errs *algo.ErrorCollection) bool {
	if len(m.WeakModels) == 0 {
		errs.AddArgument(algo.ErrorNullInputNumericTable, "model")
		return false
	}

	return algo.CheckInputTable(m.Alpha, "alpha", 1, len(m.WeakModels), errs)
}

// SerializationTag implements algo.Serializable.
func (m *Model) SerializationTag() algo.Tag { return TagModel }

// Serialize implements algo.Serializable. Weak models travel under their own
// tags, so every learner type must be registered with algo.RegisterType.
func (m *Model) Serialize(a algo.Archive) error {
	if err := a.Dense("alpha", &m.Alpha); err != nil {
		return err
	}
	if err := a.Int("features", &m.Features); err != nil {
		return err
	}
	objs := make([]algo.Serializable, len(m.WeakModels))
	for i, wm := range m.WeakModels {
		objs[i] = wm
	}
	if err := a.Objects("weakModels", &objs); err != nil {
		return err
	}
	if !a.Decoding() {
		return nil
	}
	m.WeakModels = make([]weaklearner.Model, len(objs))
	for i, o := range objs {
		wm, ok := o.(weaklearner.Model)
		if !ok {
			return fmt.Errorf("adaboost: weak model %d: %T: %w", i, o, algo.ErrorIncorrectTypeOfArgument)
		}
		m.WeakModels[i] = wm
	}

	return nil
}

// PredictionInput holds the observations to label and the boosted model.
type PredictionInput struct {
	Data  matrix.Matrix
	Model *Model
}

// Check implements algo.Input.
func (in *PredictionInput) Check(_ algo.Parameter, method algo.Method, errs *algo.ErrorCollection) {
	if method != DefaultDense {
		errs.AddArgument(algo.ErrorUnsupportedMethod, "method")
		return
	}
	if in.Model == nil {
		errs.AddArgument(algo.ErrorNullInputNumericTable, "model")
		return
	}
	if !in.Model.checkTrained(errs) {
		return
	}
	algo.CheckData(in.Data, "data", in.Model.Features, errs)
}

// PredictionResult holds one ±1 label per observation.
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
