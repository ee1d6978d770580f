// SPDX-License-Identifier: MIT

package naivebayes

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// DefaultDense is the counting method for dense count data.
const DefaultDense = algo.DefaultDense

// Serialization tags.
const (
	TagPartialResult    algo.Tag = 0x0401
	TagModel            algo.Tag = 0x0402
	TagPredictionResult algo.Tag = 0x0403
)

func init() {
	algo.RegisterType(TagPartialResult, func() algo.Serializable { return &PartialResult{} })
	algo.RegisterType(TagModel, func() algo.Serializable { return &Model{} })
	algo.RegisterType(TagPredictionResult, func() algo.Serializable { return &PredictionResult{} })
}

// DefaultAlpha is the Laplace smoothing term.
const DefaultAlpha = 1.0

// Parameter configures training and prediction.
type Parameter struct {
	NClasses int
	// Alpha is added to every feature count of every class.
	Alpha float64
	// PriorClassEstimates is an optional 1×NClasses table of class priors.
	// Nil means equal priors.
	PriorClassEstimates *matrix.Dense
}

// NewParameter returns the parameter for nClasses classes with Laplace smoothing.
func NewParameter(nClasses int) Parameter {
	return Parameter{NClasses: nClasses, Alpha: DefaultAlpha}
}

// Check implements algo.Parameter.
func (p *Parameter) Check(errs *algo.ErrorCollection) {
	if p.NClasses < 2 {
		errs.AddArgument(algo.ErrorIncorrectParameter, "nClasses")
	}
	if p.Alpha <= 0 {
		errs.AddArgument(algo.ErrorIncorrectParameter, "alpha")
	}
	if p.PriorClassEstimates == nil {
		return
	}
	if !algo.CheckInputTable(p.PriorClassEstimates, "priorClassEstimates", 1, p.NClasses, errs) {
		return
	}
	for _, v := range p.PriorClassEstimates.Values() {
		if v <= 0 {
			errs.AddArgument(algo.ErrorIncorrectParameter, "priorClassEstimates")
			return
		}
	}
}

// TrainingInput holds non-negative feature counts and class labels in
// [0, NClasses).
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
	ok := algo.CheckData(in.Data, "data", 0, errs)
	ok = algo.CheckData(in.Labels, "labels", 1, errs) && ok
	if ok && in.Labels.Rows() != in.Data.Rows() {
		errs.AddArgument(algo.ErrorIncorrectNumberOfRows, "labels")
	}
}

// PartialResult holds per-class counts of every block seen so far.
type PartialResult struct {
	ClassSize     *matrix.Dense // C×1, observations per class
	ClassGroupSum *matrix.Dense // C×p, feature totals per class
}

// NewPartialResult allocates zeroed counts for c classes and p features.
func NewPartialResult(env *algo.Environment, c, p int) (*PartialResult, error) {
	size, err := env.Allocator().Dense(c, 1)
	if err != nil {
		return nil, err
	}
	sum, err := env.Allocator().Dense(c, p)
	if err != nil {
		return nil, err
	}

	return &PartialResult{ClassSize: size, ClassGroupSum: sum}, nil
}

// Classes returns C, or 0 while unallocated.
func (r *PartialResult) Classes() int {
	if !r.ClassSize.Allocated() {
		return 0
	}

	return r.ClassSize.Rows()
}

// Features returns p, or 0 while unallocated.
func (r *PartialResult) Features() int {
	if !r.ClassGroupSum.Allocated() {
		return 0
	}

	return r.ClassGroupSum.Cols()
}

func (r *PartialResult) tables() []matrix.Matrix {
	return []matrix.Matrix{r.ClassSize, r.ClassGroupSum}
}

func (r *PartialResult) checkShape(par algo.Parameter, errs *algo.ErrorCollection) bool {
	if !r.ClassSize.Allocated() || !r.ClassGroupSum.Allocated() {
		errs.AddArgument(algo.ErrorNullPartialResult, "partialResult")
		return false
	}
	c := r.Classes()
	if prm, ok := par.(*Parameter); ok {
		c = prm.NClasses
	}
	ok := algo.CheckOutputTable(r.ClassSize, "classSize", c, 1, errs)

	return algo.CheckOutputTable(r.ClassGroupSum, "classGroupSum", c, r.Features(), errs) && ok
}

// Check implements algo.PartialResult.
func (r *PartialResult) Check(in algo.Input, par algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	if !r.checkShape(par, errs) {
		return
	}
	if data, ok := in.(*TrainingInput); ok && data.Data.Cols() != r.Features() {
		errs.AddArgument(algo.ErrorIncorrectNumberOfFeatures, "data")
	}
}

// CheckFinal implements algo.PartialResult.
func (r *PartialResult) CheckFinal(par algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	r.checkShape(par, errs)
}

// SerializationTag implements algo.Serializable.
func (r *PartialResult) SerializationTag() algo.Tag { return TagPartialResult }

// Serialize implements algo.Serializable.
func (r *PartialResult) Serialize(a algo.Archive) error {
	if err := a.Dense("classSize", &r.ClassSize); err != nil {
		return err
	}

	return a.Dense("classGroupSum", &r.ClassGroupSum)
}

// Model is the trained classifier: log class priors and log feature
// probabilities per class.
type Model struct {
	LogPrior *matrix.Dense // C×1
	LogTheta *matrix.Dense // C×p
}

func newModel(env *algo.Environment, c, p int) (*Model, error) {
	prior, err := env.Allocator().Dense(c, 1)
	if err != nil {
		return nil, err
	}
	theta, err := env.Allocator().Dense(c, p)
	if err != nil {
		return nil, err
	}

	return &Model{LogPrior: prior, LogTheta: theta}, nil
}

// Classes returns C, or 0 while unallocated.
func (m *Model) Classes() int {
	if m == nil || !m.LogPrior.Allocated() {
		return 0
	}

	return m.LogPrior.Rows()
}

// Features returns p, or 0 while unallocated.
func (m *Model) Features() int {
	if m == nil || !m.LogTheta.Allocated() {
		return 0
	}

	return m.LogTheta.Cols()
}

func (m *Model) checkShape(c, p int, errs *algo.ErrorCollection) {
	algo.CheckOutputTable(m.LogPrior, "logPrior", c, 1, errs)
	algo.CheckOutputTable(m.LogTheta, "logTheta", c, p, errs)
}

// Check implements algo.Result.
func (m *Model) Check(in algo.Input, par algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	data, ok := algo.Narrow[*TrainingInput](in, "input", errs)
	if !ok {
		return
	}
	prm, ok := algo.Narrow[*Parameter](par, "parameter", errs)
	if !ok {
		return
	}
	m.checkShape(prm.NClasses, data.Data.Cols(), errs)
}

// CheckFinal implements algo.FinalResult.
func (m *Model) CheckFinal(pres algo.PartialResult, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	pr, ok := algo.Narrow[*PartialResult](pres, "partialResult", errs)
	if !ok {
		return
	}
	m.checkShape(pr.Classes(), pr.Features(), errs)
}

// SerializationTag implements algo.Serializable.
func (m *Model) SerializationTag() algo.Tag { return TagModel }

// Serialize implements algo.Serializable.
func (m *Model) Serialize(a algo.Archive) error {
	if err := a.Dense("logPrior", &m.LogPrior); err != nil {
		return err
	}

	return a.Dense("logTheta", &m.LogTheta)
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
func (in *DistributedInput) Check(par algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
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
		if !pr.checkShape(par, errs) {
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
