// SPDX-License-Identifier: MIT

package pca

import (
	"math"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// Computation methods.
const (
	// CorrelationDense eigen-decomposes the correlation matrix built from raw moments.
	CorrelationDense = algo.DefaultDense
	// SVDDense builds the Gram matrix from per-block Householder R factors.
	SVDDense algo.Method = 1
)

// Serialization tags.
const (
	TagPartialResult algo.Tag = 0x0201
	TagResult        algo.Tag = 0x0202
)

func init() {
	algo.RegisterType(TagPartialResult, func() algo.Serializable { return &PartialResult{} })
	algo.RegisterType(TagResult, func() algo.Serializable { return &Result{} })
}

// Defaults for Parameter.
const (
	DefaultTolerance = 1e-12
	DefaultMaxSweeps = matrix.DefaultMaxSweeps
)

// Parameter configures the eigen solver.
type Parameter struct {
	// Tolerance is the off-diagonal threshold of the Jacobi solver.
	Tolerance float64
	// MaxSweeps bounds the solver at MaxSweeps*p*p rotations.
	MaxSweeps int
}

// DefaultParameter returns the parameter every constructor starts from.
func DefaultParameter() Parameter {
	return Parameter{Tolerance: DefaultTolerance, MaxSweeps: DefaultMaxSweeps}
}

// Check implements algo.Parameter.
func (p *Parameter) Check(errs *algo.ErrorCollection) {
	if !(p.Tolerance > 0) || math.IsInf(p.Tolerance, 0) {
		errs.AddArgument(algo.ErrorIncorrectParameter, "tolerance")
	}
	if p.MaxSweeps <= 0 {
		errs.AddArgument(algo.ErrorIncorrectParameter, "maxSweeps")
	}
}

func (p *Parameter) eigenOptions() []matrix.Option {
	return []matrix.Option{matrix.WithEpsilon(p.Tolerance), matrix.WithMaxSweeps(p.MaxSweeps)}
}

// Input is either a data table (observations × features) or, for the batch
// correlation method only, a precomputed p×p correlation matrix.
type Input struct {
	Data        matrix.Matrix
	Correlation matrix.Matrix

	requireData bool
}

// Check implements algo.Input.
func (in *Input) Check(_ algo.Parameter, method algo.Method, errs *algo.ErrorCollection) {
	if method != CorrelationDense && method != SVDDense {
		errs.AddArgument(algo.ErrorUnsupportedMethod, "method")
		return
	}
	if matrix.IsAllocated(in.Data) || in.requireData {
		algo.CheckData(in.Data, "data", 0, errs)
		return
	}
	if !matrix.IsAllocated(in.Correlation) {
		errs.AddArgument(algo.ErrorNullInputNumericTable, "data")
		return
	}
	if method != CorrelationDense {
		errs.AddArgument(algo.ErrorUnsupportedMethod, "correlation")
		return
	}
	if in.Correlation.Rows() != in.Correlation.Cols() {
		errs.AddArgument(algo.ErrorIncorrectNumberOfColumns, "correlation")
	}
}

func (in *Input) features() int {
	if matrix.IsAllocated(in.Data) {
		return in.Data.Cols()
	}
	if matrix.IsAllocated(in.Correlation) {
		return in.Correlation.Cols()
	}

	return 0
}

// PartialResult is the accumulator of online and distributed PCA. Which
// tables are present depends on the method:
//   - CorrelationDense: NObservations, Sum, CrossProduct.
//   - SVDDense: NObservations, Sum, SumSquares and one R factor per block in Auxiliary.
type PartialResult struct {
	Method        algo.Method
	NObservations *matrix.Dense   // 1×1
	Sum           *matrix.Dense   // 1×p
	CrossProduct  *matrix.Dense   // p×p
	SumSquares    *matrix.Dense   // 1×p
	Auxiliary     []*matrix.Dense // p×p each, grows by append
}

// NewPartialResult allocates zeroed tables for method and p features.
func NewPartialResult(env *algo.Environment, method algo.Method, p int) (*PartialResult, error) {
	a := env.Allocator()
	r := &PartialResult{Method: method}
	var err error
	if r.NObservations, err = a.Dense(1, 1); err != nil {
		return nil, err
	}
	if r.Sum, err = a.Dense(1, p); err != nil {
		return nil, err
	}
	if method == SVDDense {
		if r.SumSquares, err = a.Dense(1, p); err != nil {
			return nil, err
		}
		return r, nil
	}
	if r.CrossProduct, err = a.Dense(p, p); err != nil {
		return nil, err
	}

	return r, nil
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

// moments returns the fixed-stride tables of the partial result.
func (r *PartialResult) moments() []matrix.Matrix {
	if r.Method == SVDDense {
		return []matrix.Matrix{r.NObservations, r.Sum, r.SumSquares}
	}

	return []matrix.Matrix{r.NObservations, r.CrossProduct, r.Sum}
}

// tables returns the moments followed by the auxiliary R factors.
func (r *PartialResult) tables() []matrix.Matrix {
	out := r.moments()
	for _, a := range r.Auxiliary {
		out = append(out, a)
	}

	return out
}

func (r *PartialResult) checkShape(method algo.Method, errs *algo.ErrorCollection) bool {
	if r.Method != method {
		errs.AddArgument(algo.ErrorUnsupportedMethod, "partialResult")
		return false
	}
	if !r.NObservations.Allocated() || !r.Sum.Allocated() {
		errs.AddArgument(algo.ErrorNullPartialResult, "partialResult")
		return false
	}
	p := r.Sum.Cols()
	ok := algo.CheckOutputTable(r.NObservations, "nObservations", 1, 1, errs)
	if method == SVDDense {
		ok = algo.CheckOutputTable(r.SumSquares, "sumSquares", 1, p, errs) && ok
		for _, a := range r.Auxiliary {
			ok = algo.CheckOutputTable(a, "auxiliaryData", p, p, errs) && ok
		}
		return ok
	}

	return algo.CheckOutputTable(r.CrossProduct, "crossProduct", p, p, errs) && ok
}

// Check implements algo.PartialResult.
func (r *PartialResult) Check(in algo.Input, _ algo.Parameter, method algo.Method, errs *algo.ErrorCollection) {
	if !r.checkShape(method, errs) {
		return
	}
	if data, ok := in.(*Input); ok && data.features() != r.Features() {
		errs.AddArgument(algo.ErrorIncorrectNumberOfFeatures, "data")
	}
}

// CheckFinal implements algo.PartialResult.
func (r *PartialResult) CheckFinal(_ algo.Parameter, method algo.Method, errs *algo.ErrorCollection) {
	r.checkShape(method, errs)
}

// SerializationTag implements algo.Serializable.
func (r *PartialResult) SerializationTag() algo.Tag { return TagPartialResult }

// Serialize implements algo.Serializable.
func (r *PartialResult) Serialize(a algo.Archive) error {
	m := int(r.Method)
	if err := a.Int("method", &m); err != nil {
		return err
	}
	r.Method = algo.Method(m)
	if err := a.Dense("nObservations", &r.NObservations); err != nil {
		return err
	}
	if err := a.Dense("sum", &r.Sum); err != nil {
		return err
	}
	if err := a.Dense("crossProduct", &r.CrossProduct); err != nil {
		return err
	}
	if err := a.Dense("sumSquares", &r.SumSquares); err != nil {
		return err
	}

	return a.Denses("auxiliaryData", &r.Auxiliary)
}

// Result holds the principal components.
type Result struct {
	Eigenvalues  *matrix.Dense // 1×p, descending
	Eigenvectors *matrix.Dense // p×p, one component per row
}

func newResult(env *algo.Environment, p int) (*Result, error) {
	vals, err := env.Allocator().Dense(1, p)
	if err != nil {
		return nil, err
	}
	vecs, err := env.Allocator().Dense(p, p)
	if err != nil {
		return nil, err
	}

	return &Result{Eigenvalues: vals, Eigenvectors: vecs}, nil
}

func (r *Result) checkShape(p int, errs *algo.ErrorCollection) {
	algo.CheckOutputTable(r.Eigenvalues, "eigenvalues", 1, p, errs)
	algo.CheckOutputTable(r.Eigenvectors, "eigenvectors", p, p, errs)
}

// Check implements algo.Result.
func (r *Result) Check(in algo.Input, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	data, ok := algo.Narrow[*Input](in, "input", errs)
	if !ok {
		return
	}
	r.checkShape(data.features(), errs)
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
	if err := a.Dense("eigenvalues", &r.Eigenvalues); err != nil {
		return err
	}

	return a.Dense("eigenvectors", &r.Eigenvectors)
}

// DistributedInput is the step2Master input.
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
func (in *DistributedInput) Check(_ algo.Parameter, method algo.Method, errs *algo.ErrorCollection) {
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
		if !pr.checkShape(method, errs) {
			return
		}
		if p >= 0 && pr.Features() != p {
			errs.AddArgument(algo.ErrorIncorrectNumberOfFeatures, "partialResults")
			return
		}
		p = pr.Features()
	}
}

func (in *DistributedInput) features() int {
	first, ok := in.PartialResults.At(0)
	if !ok || first == nil {
		return 0
	}

	return first.Features()
}
