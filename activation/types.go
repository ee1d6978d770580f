// SPDX-License-Identifier: MIT

package activation

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// DefaultDense is the element-wise dense method.
const DefaultDense = algo.DefaultDense

// Serialization tags.
const (
	TagForwardResult  algo.Tag = 0x0801
	TagBackwardResult algo.Tag = 0x0802
)

func init() {
	algo.RegisterType(TagForwardResult, func() algo.Serializable { return &ForwardResult{} })
	algo.RegisterType(TagBackwardResult, func() algo.Serializable { return &BackwardResult{} })
}

// Parameter is empty: the layers have no tunables.
type Parameter struct{}

// Check implements algo.Parameter.
func (*Parameter) Check(*algo.ErrorCollection) {}

// ForwardInput holds the layer input, one sample per row.
type ForwardInput struct {
	Data matrix.Matrix
}

// Check implements algo.Input.
func (in *ForwardInput) Check(_ algo.Parameter, method algo.Method, errs *algo.ErrorCollection) {
	if method != DefaultDense {
		errs.AddArgument(algo.ErrorUnsupportedMethod, "method")
		return
	}
	algo.CheckData(in.Data, "data", 0, errs)
}

// ForwardResult holds the layer output, shaped like the input.
type ForwardResult struct {
	Value *matrix.Dense
}

// Check implements algo.Result.
func (r *ForwardResult) Check(in algo.Input, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	fin, ok := algo.Narrow[*ForwardInput](in, "input", errs)
	if !ok {
		return
	}
	algo.CheckOutputTable(r.Value, "value", fin.Data.Rows(), fin.Data.Cols(), errs)
}

// SerializationTag implements algo.Serializable.
func (r *ForwardResult) SerializationTag() algo.Tag { return TagForwardResult }

// Serialize implements algo.Serializable.
func (r *ForwardResult) Serialize(a algo.Archive) error { return a.Dense("value", &r.Value) }

// BackwardInput holds the gradient flowing in from the next layer and the
// input the forward pass saw.
type BackwardInput struct {
	InputGradient matrix.Matrix
	Data          matrix.Matrix
}

// Check implements algo.Input.
func (in *BackwardInput) Check(_ algo.Parameter, method algo.Method, errs *algo.ErrorCollection) {
	if method != DefaultDense {
		errs.AddArgument(algo.ErrorUnsupportedMethod, "method")
		return
	}
	if !algo.CheckData(in.Data, "data", 0, errs) {
		return
	}
	algo.CheckInputTable(in.InputGradient, "inputGradient", in.Data.Rows(), in.Data.Cols(), errs)
}

// BackwardResult holds the gradient with respect to the layer input.
type BackwardResult struct {
	Gradient *matrix.Dense
}

// Check implements algo.Result.
func (r *BackwardResult) Check(in algo.Input, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	bin, ok := algo.Narrow[*BackwardInput](in, "input", errs)
	if !ok {
		return
	}
	algo.CheckOutputTable(r.Gradient, "gradient", bin.Data.Rows(), bin.Data.Cols(), errs)
}

// SerializationTag implements algo.Serializable.
func (r *BackwardResult) SerializationTag() algo.Tag { return TagBackwardResult }

// Serialize implements algo.Serializable.
func (r *BackwardResult) Serialize(a algo.Archive) error { return a.Dense("gradient", &r.Gradient) }
