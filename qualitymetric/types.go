// SPDX-License-Identifier: MIT

package qualitymetric

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// DefaultDense is the only confusion-matrix method.
const DefaultDense = algo.DefaultDense

// Serialization tags.
const (
	TagMultiClassResult algo.Tag = 0x0501
	TagBinaryResult     algo.Tag = 0x0502
)

func init() {
	algo.RegisterType(TagMultiClassResult, func() algo.Serializable { return &MultiClassResult{} })
	algo.RegisterType(TagBinaryResult, func() algo.Serializable { return &BinaryResult{} })
}

// Columns of MultiClassResult.Metrics.
const (
	AverageAccuracy = iota
	ErrorRate
	MicroPrecision
	MicroRecall
	MicroFscore
	MacroPrecision
	MacroRecall
	MacroFscore
	multiClassMetrics
)

// Columns of BinaryResult.Metrics.
const (
	Accuracy = iota
	Precision
	Recall
	Fscore
	Specificity
	AUC
	binaryMetrics
)

// Binary class labels.
const (
	PositiveLabel = 1.0
	NegativeLabel = -1.0
)

// MultiClassParameter configures the multi-class confusion matrix.
type MultiClassParameter struct {
	NClasses int
	// Beta weighs recall against precision in the F-score.
	Beta float64
}

// NewMultiClassParameter returns the parameter for nClasses with Beta 1.
func NewMultiClassParameter(nClasses int) MultiClassParameter {
	return MultiClassParameter{NClasses: nClasses, Beta: 1}
}

// Check implements algo.Parameter.
func (p *MultiClassParameter) Check(errs *algo.ErrorCollection) {
	if p.NClasses < 2 {
		errs.AddArgument(algo.ErrorIncorrectParameter, "nClasses")
	}
	if p.Beta <= 0 {
		errs.AddArgument(algo.ErrorIncorrectParameter, "beta")
	}
}

// BinaryParameter configures the binary confusion matrix.
type BinaryParameter struct {
	Beta float64
}

// NewBinaryParameter returns the parameter with Beta 1.
func NewBinaryParameter() BinaryParameter { return BinaryParameter{Beta: 1} }

// Check implements algo.Parameter.
func (p *BinaryParameter) Check(errs *algo.ErrorCollection) {
	if p.Beta <= 0 {
		errs.AddArgument(algo.ErrorIncorrectParameter, "beta")
	}
}

// Input pairs predicted labels with the ground truth. Both are n×1.
type Input struct {
	PredictedLabels   matrix.Matrix
	GroundTruthLabels matrix.Matrix
}

// Check implements algo.Input.
func (in *Input) Check(_ algo.Parameter, method algo.Method, errs *algo.ErrorCollection) {
	if method != DefaultDense {
		errs.AddArgument(algo.ErrorUnsupportedMethod, "method")
		return
	}
	ok := algo.CheckData(in.PredictedLabels, "predictedLabels", 1, errs)
	ok = algo.CheckData(in.GroundTruthLabels, "groundTruthLabels", 1, errs) && ok
	if ok && in.PredictedLabels.Rows() != in.GroundTruthLabels.Rows() {
		errs.AddArgument(algo.ErrorIncorrectNumberOfRows, "groundTruthLabels")
	}
}

// MultiClassResult holds the confusion matrix (rows: ground truth, columns:
// prediction) and the summary metrics.
type MultiClassResult struct {
	ConfusionMatrix *matrix.Dense // C×C
	Metrics         *matrix.Dense // 1×8, indexed by AverageAccuracy..MacroFscore
}

// Metric returns column i of Metrics.
func (r *MultiClassResult) Metric(i int) float64 {
	v, _ := r.Metrics.At(0, i)

	return v
}

// Check implements algo.Result.
func (r *MultiClassResult) Check(_ algo.Input, par algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	prm, ok := algo.Narrow[*MultiClassParameter](par, "parameter", errs)
	if !ok {
		return
	}
	algo.CheckOutputTable(r.ConfusionMatrix, "confusionMatrix", prm.NClasses, prm.NClasses, errs)
	algo.CheckOutputTable(r.Metrics, "metrics", 1, multiClassMetrics, errs)
}

// SerializationTag implements algo.Serializable.
func (r *MultiClassResult) SerializationTag() algo.Tag { return TagMultiClassResult }

// Serialize implements algo.Serializable.
func (r *MultiClassResult) Serialize(a algo.Archive) error {
	if err := a.Dense("confusionMatrix", &r.ConfusionMatrix); err != nil {
		return err
	}

	return a.Dense("metrics", &r.Metrics)
}

// BinaryResult holds the 2×2 confusion matrix [[TP, FN], [FP, TN]] and the
// summary metrics.
type BinaryResult struct {
	ConfusionMatrix *matrix.Dense // 2×2
	Metrics         *matrix.Dense // 1×6, indexed by Accuracy..AUC
}

// Metric returns column i of Metrics.
func (r *BinaryResult) Metric(i int) float64 {
	v, _ := r.Metrics.At(0, i)

	return v
}

// Check implements algo.Result.
func (r *BinaryResult) Check(_ algo.Input, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	algo.CheckOutputTable(r.ConfusionMatrix, "confusionMatrix", 2, 2, errs)
	algo.CheckOutputTable(r.Metrics, "metrics", 1, binaryMetrics, errs)
}

// SerializationTag implements algo.Serializable.
func (r *BinaryResult) SerializationTag() algo.Tag { return TagBinaryResult }

// Serialize implements algo.Serializable.
func (r *BinaryResult) Serialize(a algo.Archive) error {
	if err := a.Dense("confusionMatrix", &r.ConfusionMatrix); err != nil {
		return err
	}

	return a.Dense("metrics", &r.Metrics)
}
