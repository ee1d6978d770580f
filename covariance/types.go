// SPDX-License-Identifier: MIT

package covariance

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// DefaultDense is the single-pass raw-moment method.
const DefaultDense = algo.DefaultDense

// Serialization tags.
const (
	TagPartialResult algo.Tag = 0x0101
	TagResult        algo.Tag = 0x0102
)

func init() {
	algo.RegisterType(TagPartialResult, func() algo.Serializable { return &PartialResult{} })
	algo.RegisterType(TagResult, func() algo.Serializable { return &Result{} })
}

// OutputMatrixType selects what FinalizeCompute writes into Result.Matrix.
type OutputMatrixType int

const (
	CovarianceMatrix OutputMatrixType = iota
	CorrelationMatrix
)

// Parameter configures the covariance algorithm.
type Parameter struct {
	OutputMatrixType OutputMatrixType
}

// Check implements algo.Parameter.
func (p *Parameter) Check(errs *algo.ErrorCollection) {
	if p.OutputMatrixType != CovarianceMatrix && p.OutputMatrixType != CorrelationMatrix {
		errs.AddArgument(algo.ErrorIncorrectParameter, "outputMatrixType")
	}
}

// Input holds one block of observations (rows) by features (columns).
type Input struct {
	Data matrix.Matrix
}

// Check implements algo.Input.
func (in *Input) Check(_ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	algo.CheckData(in.Data, "data", 0, errs)
}

// PartialResult holds the raw moments of every block seen so far.
type PartialResult struct {
	NObservations *matrix.Dense // 1×1
	CrossProduct  *matrix.Dense // p×p, Σ xᵀx
	Sum           *matrix.Dense // 1×p, Σ x
}

// NewPartialResult allocates zeroed moments for p features.
func NewPartialResult(env *algo.Environment, p int) (*PartialResult, error) {
	a := env.Allocator()
	n, err := a.Dense(1, 1)
	if err != nil {
		return nil, err
	}
	cp, err := a.Dense(p, p)
	if err != nil {
		return nil, err
	}
	sum, err := a.Dense(1, p)
	if err != nil {
		return nil, err
	}

	return &PartialResult{NObservations: n, CrossProduct: cp, Sum: sum}, nil
}

// Features returns p, or 0 while unallocated.
func (r *PartialResult) Features() int {
	if !r.Sum.Allocated() {
		return 0
	}

	return r.Sum.Cols()
}

// Observations returns the number of rows folded in so far.
func (r *PartialResult) Observations() int {
	if !r.NObservations.Allocated() {
		return 0
	}
	v, _ := r.NObservations.At(0, 0)

	return int(v)
}

func (r *PartialResult) tables() []matrix.Matrix {
	return []matrix.Matrix{r.NObservations, r.CrossProduct, r.Sum}
}

func (r *PartialResult) checkShape(errs *algo.ErrorCollection) bool {
	if !r.NObservations.Allocated() || !r.CrossProduct.Allocated() || !r.Sum.Allocated() {
		errs.AddArgument(algo.ErrorNullPartialResult, "partialResult")
		return false
	}
	p := r.Sum.Cols()
	ok := algo.CheckOutputTable(r.NObservations, "nObservations", 1, 1, errs)
	ok = algo.CheckOutputTable(r.CrossProduct, "crossProduct", p, p, errs) && ok
	ok = algo.CheckOutputTable(r.Sum, "sum", 1, p, errs) && ok

	return ok
}

// Check implements algo.PartialResult.
func (r *PartialResult) Check(in algo.Input, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	if !r.checkShape(errs) {
		return
	}
	if data, ok := in.(*Input); ok && data.Data.Cols() != r.Features() {
		errs.AddArgument(algo.ErrorIncorrectNumberOfFeatures, "data")
	}
}

// CheckFinal implements algo.PartialResult.
func (r *PartialResult) CheckFinal(_ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	r.checkShape(errs)
}

// SerializationTag implements algo.Serializable.
func (r *PartialResult) SerializationTag() algo.Tag { return TagPartialResult }

// Serialize implements algo.Serializable.
func (r *PartialResult) Serialize(a algo.Archive) error {
	if err := a.Dense("nObservations", &r.NObservations); err != nil {
		return err
	}
	if err := a.Dense("crossProduct", &r.CrossProduct); err != nil {
		return err
	}

	return a.Dense("sum", &r.Sum)
}

// Result holds the covariance (or correlation) matrix and the mean vector.
type Result struct {
	Matrix *matrix.Dense // p×p
	Mean   *matrix.Dense // 1×p
}

func newResult(env *algo.Environment, p int) (*Result, error) {
	m, err := env.Allocator().Dense(p, p)
	if err != nil {
		return nil, err
	}
	mean, err := env.Allocator().Dense(1, p)
	if err != nil {
		return nil, err
	}

	return &Result{Matrix: m, Mean: mean}, nil
}

func (r *Result) checkShape(p int, errs *algo.ErrorCollection) {
	algo.CheckOutputTable(r.Matrix, "matrix", p, p, errs)
	algo.CheckOutputTable(r.Mean, "mean", 1, p, errs)
}

// Check implements algo.Result.
func (r *Result) Check(in algo.Input, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	data, ok := algo.Narrow[*Input](in, "input", errs)
	if !ok {
		return
	}
	r.checkShape(data.Data.Cols(), errs)
}

// CheckFinal implements algo.FinalResult.
func (r *Result) CheckFinal(pres algo.PartialResult, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	pr, ok := algo.Narrow[*PartialResult](pres, "partialResult", errs)
	if !ok {
		return
	}
	r.checkShape(pr.Features(), errs)
}

// SerializationTag implements algo.Serializable.
func (r *Result) SerializationTag() algo.Tag { return TagResult }

// Serialize implements algo.Serializable.
func (r *Result) Serialize(a algo.Archive) error {
	if err := a.Dense("matrix", &r.Matrix); err != nil {
		return err
	}

	return a.Dense("mean", &r.Mean)
}

// DistributedInput is the step2Master input: the partial results of every
// step1Local node.
type DistributedInput struct {
	PartialResults *algo.Collection[*PartialResult]
}

// NewDistributedInput returns an input with an empty collection.
func NewDistributedInput() *DistributedInput {
	return &DistributedInput{PartialResults: algo.NewCollection[*PartialResult]()}
}

// Add appends one node's partial result.
func (in *DistributedInput) Add(pres *PartialResult) { in.PartialResults.Add(pres) }

// Check implements algo.Input.
func (in *DistributedInput) Check(_ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	if in.PartialResults == nil || in.PartialResults.Len() == 0 {
		errs.AddArgument(algo.ErrorIncorrectNumberOfInputNumericTables, "partialResults")
		return
	}
	p := -1
	for _, pr := range in.PartialResults.Items() {
		if pr == nil {
			errs.AddArgument(algo.ErrorNullPartialResult, "partialResults")
			return
		}
		if !pr.checkShape(errs) {
			return
		}
		if p >= 0 && pr.Features() != p {
			errs.AddArgument(algo.ErrorIncorrectNumberOfFeatures, "partialResults")
			return
		}
		p = pr.Features()
	}
}

// features returns the feature count of the first contribution.
func (in *DistributedInput) features() int {
	first, ok := in.PartialResults.At(0)
	if !ok || first == nil {
		return 0
	}

	return first.Features()
}
