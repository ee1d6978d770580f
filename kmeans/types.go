// SPDX-License-Identifier: MIT

package kmeans

import (
	"math"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// LloydDense is the Lloyd iteration over dense data.
const LloydDense = algo.DefaultDense

// Serialization tags.
const (
	TagPartialResult algo.Tag = 0x0301
	TagResult        algo.Tag = 0x0302
	TagLocalResult   algo.Tag = 0x0303
	TagMasterResult  algo.Tag = 0x0304
	TagInitResult    algo.Tag = 0x0305
)

func init() {
	algo.RegisterType(TagPartialResult, func() algo.Serializable { return &PartialResult{} })
	algo.RegisterType(TagResult, func() algo.Serializable { return &Result{} })
	algo.RegisterType(TagLocalResult, func() algo.Serializable { return &LocalResult{} })
	algo.RegisterType(TagMasterResult, func() algo.Serializable { return &MasterResult{} })
	algo.RegisterType(TagInitResult, func() algo.Serializable { return &InitResult{} })
}

// Defaults for Parameter.
const (
	DefaultMaxIterations     = 100
	DefaultAccuracyThreshold = 0.0
)

// Parameter configures the Lloyd iteration.
type Parameter struct {
	// NClusters is k.
	NClusters int
	// MaxIterations bounds the batch iteration. The distributed driver uses
	// it as the number of step1Local/step2Master rounds.
	MaxIterations int
	// AccuracyThreshold stops the iteration once the goal function changes
	// by less than this between two iterations.
	AccuracyThreshold float64
	// AssignFlag requests per-observation cluster labels.
	AssignFlag bool
}

// NewParameter returns the defaults for k clusters.
func NewParameter(k int) Parameter {
	return Parameter{
		NClusters:         k,
		MaxIterations:     DefaultMaxIterations,
		AccuracyThreshold: DefaultAccuracyThreshold,
		AssignFlag:        true,
	}
}

// Check implements algo.Parameter.
func (p *Parameter) Check(errs *algo.ErrorCollection) {
	if p.NClusters <= 0 {
		errs.AddArgument(algo.ErrorIncorrectParameter, "nClusters")
	}
	if p.MaxIterations < 0 {
		errs.AddArgument(algo.ErrorIncorrectParameter, "maxIterations")
	}
	if p.AccuracyThreshold < 0 || math.IsNaN(p.AccuracyThreshold) || math.IsInf(p.AccuracyThreshold, 0) {
		errs.AddArgument(algo.ErrorIncorrectParameter, "accuracyThreshold")
	}
}

func nClusters(par algo.Parameter) int {
	if p, ok := par.(*Parameter); ok {
		return p.NClusters
	}

	return 0
}

// Input holds the observations and the centroids the iteration starts from.
type Input struct {
	Data           matrix.Matrix // n×p
	InputCentroids matrix.Matrix // k×p

	// batch inputs need at least k observations; node blocks may be smaller.
	batch bool
}

// Check implements algo.Input.
func (in *Input) Check(par algo.Parameter, method algo.Method, errs *algo.ErrorCollection) {
	if method != LloydDense {
		errs.AddArgument(algo.ErrorUnsupportedMethod, "method")
		return
	}
	if !algo.CheckData(in.Data, "data", 0, errs) {
		return
	}
	k := nClusters(par)
	if in.batch && in.Data.Rows() < k {
		errs.AddArgument(algo.ErrorIncorrectNumberOfObservations, "data")
	}
	algo.CheckInputTable(in.InputCentroids, "inputCentroids", k, in.Data.Cols(), errs)
}

// Result of the batch algorithm.
type Result struct {
	Centroids    *matrix.Dense // k×p
	Assignments  *matrix.Dense // n×1, nil without AssignFlag
	GoalFunction *matrix.Dense // 1×1, Σ min-distance²
	NIterations  *matrix.Dense // 1×1
}

func newResult(env *algo.Environment, n, p, k int, assign bool) (*Result, error) {
	a := env.Allocator()
	r := &Result{}
	var err error
	if r.Centroids, err = a.Dense(k, p); err != nil {
		return nil, err
	}
	if assign {
		if r.Assignments, err = a.Dense(n, 1); err != nil {
			return nil, err
		}
	}
	if r.GoalFunction, err = a.Dense(1, 1); err != nil {
		return nil, err
	}
	if r.NIterations, err = a.Dense(1, 1); err != nil {
		return nil, err
	}

	return r, nil
}

// Check implements algo.Result.
func (r *Result) Check(in algo.Input, par algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	data, ok := algo.Narrow[*Input](in, "input", errs)
	if !ok {
		return
	}
	prm, ok := algo.Narrow[*Parameter](par, "parameter", errs)
	if !ok {
		return
	}
	n, p := data.Data.Rows(), data.Data.Cols()
	algo.CheckOutputTable(r.Centroids, "centroids", prm.NClusters, p, errs)
	if prm.AssignFlag {
		algo.CheckOutputTable(r.Assignments, "assignments", n, 1, errs)
	}
	algo.CheckOutputTable(r.GoalFunction, "goalFunction", 1, 1, errs)
	algo.CheckOutputTable(r.NIterations, "nIterations", 1, 1, errs)
}

// SerializationTag implements algo.Serializable.
func (r *Result) SerializationTag() algo.Tag { return TagResult }

// Serialize implements algo.Serializable.
func (r *Result) Serialize(a algo.Archive) error {
	for _, f := range []struct {
		name string
		m    **matrix.Dense
	}{
		{"centroids", &r.Centroids},
		{"assignments", &r.Assignments},
		{"goalFunction", &r.GoalFunction},
		{"nIterations", &r.NIterations},
	} {
		if err := a.Dense(f.name, f.m); err != nil {
			return err
		}
	}

	return nil
}

// PartialResult is what one step1Local node reports for one iteration, and
// what the master merges them into.
//
// Candidates are the observations farthest from their centroid, sorted by
// decreasing distance; the master reseeds empty clusters from them. Unused
// candidate slots carry distance -1.
type PartialResult struct {
	NObservations       *matrix.Dense // k×1
	PartialSums         *matrix.Dense // k×p
	PartialGoalFunction *matrix.Dense // 1×1
	CandidateDistances  *matrix.Dense // k×1
	CandidateCentroids  *matrix.Dense // k×p
	// PartialAssignments is n×1 on step1Local nodes with AssignFlag; nil otherwise.
	PartialAssignments *matrix.Dense
}

// NewPartialResult allocates the reduction tables for k clusters over p
// features; n > 0 also allocates per-observation assignments.
func NewPartialResult(env *algo.Environment, k, p, n int) (*PartialResult, error) {
	a := env.Allocator()
	r := &PartialResult{}
	var err error
	if r.NObservations, err = a.Dense(k, 1); err != nil {
		return nil, err
	}
	if r.PartialSums, err = a.Dense(k, p); err != nil {
		return nil, err
	}
	if r.PartialGoalFunction, err = a.Dense(1, 1); err != nil {
		return nil, err
	}
	if r.CandidateDistances, err = a.Dense(k, 1); err != nil {
		return nil, err
	}
	if r.CandidateCentroids, err = a.Dense(k, p); err != nil {
		return nil, err
	}
	if n > 0 {
		if r.PartialAssignments, err = a.Dense(n, 1); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Clusters returns k, or 0 while unallocated.
func (r *PartialResult) Clusters() int {
	if !r.NObservations.Allocated() {
		return 0
	}

	return r.NObservations.Rows()
}

// Features returns p, or 0 while unallocated.
func (r *PartialResult) Features() int {
	if !r.PartialSums.Allocated() {
		return 0
	}

	return r.PartialSums.Cols()
}

// reduction lists the tables the master merges, in kernel order.
func (r *PartialResult) reduction() []matrix.Matrix {
	return []matrix.Matrix{r.NObservations, r.PartialSums, r.PartialGoalFunction, r.CandidateDistances, r.CandidateCentroids}
}

const reductionStride = 5

func (r *PartialResult) checkShape(errs *algo.ErrorCollection) bool {
	for _, m := range r.reduction() {
		if !matrix.IsAllocated(m) {
			errs.AddArgument(algo.ErrorNullPartialResult, "partialResult")
			return false
		}
	}
	k, p := r.Clusters(), r.Features()
	ok := algo.CheckOutputTable(r.NObservations, "nObservations", k, 1, errs)
	ok = algo.CheckOutputTable(r.PartialSums, "partialSums", k, p, errs) && ok
	ok = algo.CheckOutputTable(r.PartialGoalFunction, "partialGoalFunction", 1, 1, errs) && ok
	ok = algo.CheckOutputTable(r.CandidateDistances, "candidateDistances", k, 1, errs) && ok
	ok = algo.CheckOutputTable(r.CandidateCentroids, "candidateCentroids", k, p, errs) && ok

	return ok
}

// Check implements algo.PartialResult.
func (r *PartialResult) Check(in algo.Input, par algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	if !r.checkShape(errs) {
		return
	}
	if k := nClusters(par); k > 0 && r.Clusters() != k {
		errs.AddArgument(algo.ErrorIncorrectNumberOfRows, "nObservations")
	}
	data, ok := in.(*Input)
	if !ok {
		return
	}
	if data.Data.Cols() != r.Features() {
		errs.AddArgument(algo.ErrorIncorrectNumberOfFeatures, "data")
	}
	if r.PartialAssignments != nil {
		algo.CheckOutputTable(r.PartialAssignments, "partialAssignments", data.Data.Rows(), 1, errs)
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
	for _, f := range []struct {
		name string
		m    **matrix.Dense
	}{
		{"nObservations", &r.NObservations},
		{"partialSums", &r.PartialSums},
		{"partialGoalFunction", &r.PartialGoalFunction},
		{"candidateDistances", &r.CandidateDistances},
		{"candidateCentroids", &r.CandidateCentroids},
		{"partialAssignments", &r.PartialAssignments},
	} {
		if err := a.Dense(f.name, f.m); err != nil {
			return err
		}
	}

	return nil
}

// LocalResult is what step1Local FinalizeCompute emits: the node's labels.
type LocalResult struct {
	Assignments *matrix.Dense // n×1
}

// CheckFinal implements algo.FinalResult.
func (r *LocalResult) CheckFinal(pres algo.PartialResult, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	pr, ok := algo.Narrow[*PartialResult](pres, "partialResult", errs)
	if !ok {
		return
	}
	if pr.PartialAssignments == nil {
		errs.AddArgument(algo.ErrorNullPartialResult, "partialAssignments")
		return
	}
	algo.CheckOutputTable(r.Assignments, "assignments", pr.PartialAssignments.Rows(), 1, errs)
}

// SerializationTag implements algo.Serializable.
func (r *LocalResult) SerializationTag() algo.Tag { return TagLocalResult }

// Serialize implements algo.Serializable.
func (r *LocalResult) Serialize(a algo.Archive) error {
	return a.Dense("assignments", &r.Assignments)
}

// MasterResult is what step2Master FinalizeCompute emits.
type MasterResult struct {
	Centroids    *matrix.Dense // k×p
	GoalFunction *matrix.Dense // 1×1
}

// CheckFinal implements algo.FinalResult.
func (r *MasterResult) CheckFinal(pres algo.PartialResult, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	pr, ok := algo.Narrow[*PartialResult](pres, "partialResult", errs)
	if !ok {
		return
	}
	algo.CheckOutputTable(r.Centroids, "centroids", pr.Clusters(), pr.Features(), errs)
	algo.CheckOutputTable(r.GoalFunction, "goalFunction", 1, 1, errs)
}

// SerializationTag implements algo.Serializable.
func (r *MasterResult) SerializationTag() algo.Tag { return TagMasterResult }

// Serialize implements algo.Serializable.
func (r *MasterResult) Serialize(a algo.Archive) error {
	if err := a.Dense("centroids", &r.Centroids); err != nil {
		return err
	}

	return a.Dense("goalFunction", &r.GoalFunction)
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
func (in *DistributedInput) Check(par algo.Parameter, method algo.Method, errs *algo.ErrorCollection) {
	if method != LloydDense {
		errs.AddArgument(algo.ErrorUnsupportedMethod, "method")
		return
	}
	if in.PartialResults == nil || in.PartialResults.Len() == 0 {
		errs.AddArgument(algo.ErrorIncorrectNumberOfInputNumericTables, "partialResults")
		return
	}
	k := nClusters(par)
	p := -1
	for _, pr := range in.PartialResults.Items() {
		if pr == nil {
			errs.AddArgument(algo.ErrorNullPartialResult, "partialResults")
			return
		}
		if !pr.checkShape(errs) {
			return
		}
		if pr.Clusters() != k || (p >= 0 && pr.Features() != p) {
			errs.AddArgument(algo.ErrorIncorrectSizeOfInputNumericTable, "partialResults")
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
