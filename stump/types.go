// SPDX-License-Identifier: MIT

package stump

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
	"github.com/katalvlaran/algokit/weaklearner"
)

// DefaultDense is the exhaustive split search.
const DefaultDense = algo.DefaultDense

// Serialization tags.
const (
	TagModel            algo.Tag = 0x0601
	TagPredictionResult algo.Tag = 0x0602
)

func init() {
	algo.RegisterType(TagModel, func() algo.Serializable { return &Model{} })
	algo.RegisterType(TagPredictionResult, func() algo.Serializable { return &PredictionResult{} })
}

// Columns of Model.Split.
const (
	colFeature = iota
	colThreshold
	colLeft
	colRight
	splitCols
)

// Parameter is empty: a stump has no tuning knobs.
type Parameter struct{}

// Check implements algo.Parameter.
func (*Parameter) Check(*algo.ErrorCollection) {}

// TrainingInput holds observations, ±1 labels and optional weights.
type TrainingInput struct {
	Data    matrix.Matrix // n×p
	Labels  matrix.Matrix // n×1, +1 or -1
	Weights matrix.Matrix // n×1 or nil for equal weights
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
	n := in.Data.Rows()
	algo.CheckInputTable(in.Labels, "labels", n, 1, errs)
	if in.Weights != nil {
		algo.CheckInputTable(in.Weights, "weights", n, 1, errs)
	}
}

// Model splits on one feature: observations with a value below Threshold
// get Left, the others Right.
type Model struct {
	// Split is 1×4: feature index, threshold, left label, right label.
	Split    *matrix.Dense
	Features int
}

// Feature returns the index of the split feature.
func (m *Model) Feature() int { return int(m.at(colFeature)) }

// Threshold returns the split value.
func (m *Model) Threshold() float64 { return m.at(colThreshold) }

// Left returns the label of observations below the threshold.
func (m *Model) Left() float64 { return m.at(colLeft) }

// Right returns the label of the remaining observations.
func (m *Model) Right() float64 { return m.at(colRight) }

// NFeatures implements weaklearner.Model.
func (m *Model) NFeatures() int { return m.Features }

func (m *Model) at(col int) float64 {
	v, _ := m.Split.At(0, col)

	return v
}

// Check implements algo.Result.
func (m *Model) Check(_ algo.Input, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	algo.CheckOutputTable(m.Split, "split", 1, splitCols, errs)
}

// SerializationTag implements algo.Serializable.
func (m *Model) SerializationTag() algo.Tag { return TagModel }

// Serialize implements algo.Serializable.
func (m *Model) Serialize(a algo.Archive) error {
	if err := a.Dense("split", &m.Split); err != nil {
		return err
	}

	return a.Int("features", &m.Features)
}

var _ weaklearner.Model = (*Model)(nil)

// PredictionInput holds the observations to label and the stump.
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
	if in.Model == nil || !in.Model.Split.Allocated() {
		errs.AddArgument(algo.ErrorNullInputNumericTable, "model")
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
