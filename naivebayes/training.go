// SPDX-License-Identifier: MIT

package naivebayes

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// zeroInit resets the class counts before the first block.
var zeroInit = algo.InitializerFunc(func(_ algo.Input, pres algo.PartialResult, _ algo.Parameter, errs *algo.ErrorCollection) {
	pr, ok := algo.Narrow[*PartialResult](pres, "partialResult", errs)
	if !ok {
		return
	}
	pr.ClassSize.Zero()
	pr.ClassGroupSum.Zero()
})

// TrainingBatch trains a model from one table of counts.
type TrainingBatch struct {
	*algo.Batch
	input TrainingInput
	par   Parameter
	model *Model
}

// NewTrainingBatch builds a batch trainer for nClasses classes.
func NewTrainingBatch(env *algo.Environment, nClasses int, opts ...algo.Option) (*TrainingBatch, error) {
	b := &TrainingBatch{par: NewParameter(nClasses)}
	core, err := algo.NewBatch(env, trainingRegistry, algo.NewSettings(opts...), batchHooks{b},
		func(base *algo.ContainerBase) algo.BatchContainer { return &batchContainer{base} })
	if err != nil {
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

// Clone returns a trainer with its own container, the same settings, a copy
// of the parameter and the same bound input tables.
func (b *TrainingBatch) Clone() (*TrainingBatch, error) {
	c, err := NewTrainingBatch(b.Environment(), b.par.NClasses,
		algo.WithMethod(b.Settings().Method), algo.WithFPType(b.Settings().FPType))
	if err != nil {
		return nil, err
	}
	c.input = b.input
	c.par = b.par
	if b.par.PriorClassEstimates != nil {
		c.par.PriorClassEstimates = b.par.PriorClassEstimates.CloneDense()
	}

	return c, nil
}

type batchHooks struct{ b *TrainingBatch }

func (h batchHooks) Input() algo.Input         { return &h.b.input }
func (h batchHooks) Parameter() algo.Parameter { return &h.b.par }

func (h batchHooks) AllocateResult(env *algo.Environment) error {
	m, err := newModel(env, h.b.par.NClasses, h.b.input.Data.Cols())
	if err != nil {
		return err
	}
	h.b.model = m

	return nil
}

func (h batchHooks) Result() algo.Result {
	if h.b.model == nil {
		return nil
	}

	return h.b.model
}

type batchContainer struct{ *algo.ContainerBase }

func (c *batchContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*TrainingInput](c.Input(), "input", errs)
	if !ok {
		return
	}
	m, ok := algo.Narrow[*Model](c.Result(), "model", errs)
	if !ok {
		return
	}
	c.Run([]matrix.Matrix{in.Data, in.Labels}, []matrix.Matrix{m.LogPrior, m.LogTheta})
}

// TrainingOnline accumulates class counts block by block. The same type
// serves the step1Local role of distributed training (see NewTrainingLocal).
type TrainingOnline struct {
	*algo.Streaming
	input TrainingInput
	par   Parameter
	pres  *PartialResult
	model *Model
}

// NewTrainingOnline builds an online trainer for nClasses classes.
func NewTrainingOnline(env *algo.Environment, nClasses int, opts ...algo.Option) (*TrainingOnline, error) {
	return newOnline(env, algo.ModeOnline, nClasses, opts...)
}

// NewTrainingLocal builds the step1Local trainer of a distributed run.
func NewTrainingLocal(env *algo.Environment, nClasses int, opts ...algo.Option) (*TrainingOnline, error) {
	return newOnline(env, algo.ModeStep1Local, nClasses, opts...)
}

func newOnline(env *algo.Environment, mode algo.Mode, nClasses int, opts ...algo.Option) (*TrainingOnline, error) {
	o := &TrainingOnline{par: NewParameter(nClasses)}
	core, err := algo.NewStreaming(env, trainingRegistry, mode, algo.NewSettings(opts...), onlineHooks{o}, zeroInit,
		func(base *algo.ContainerBase) algo.StreamingContainer { return &onlineContainer{base} })
	if err != nil {
		return nil, err
	}
	o.Streaming = core

	return o, nil
}

// Input returns the input the next Compute reads.
func (o *TrainingOnline) Input() *TrainingInput { return &o.input }

// Parameter returns the algorithm parameter.
func (o *TrainingOnline) Parameter() *Parameter { return &o.par }

// PartialResult returns the class counts (nil before the first Compute).
func (o *TrainingOnline) PartialResult() *PartialResult { return o.pres }

// SetPartialResult resumes from previously saved counts.
func (o *TrainingOnline) SetPartialResult(pres *PartialResult) {
	o.pres = pres
	o.AdoptPartialResult(true)
}

// Model returns the trained model (nil before FinalizeCompute).
func (o *TrainingOnline) Model() *Model { return o.model }

type onlineHooks struct{ o *TrainingOnline }

func (h onlineHooks) Input() algo.Input         { return &h.o.input }
func (h onlineHooks) Parameter() algo.Parameter { return &h.o.par }

func (h onlineHooks) AllocatePartialResult(env *algo.Environment) error {
	pr, err := NewPartialResult(env, h.o.par.NClasses, h.o.input.Data.Cols())
	if err != nil {
		return err
	}
	h.o.pres = pr

	return nil
}

func (h onlineHooks) PartialResult() algo.PartialResult {
	if h.o.pres == nil {
		return nil
	}

	return h.o.pres
}

func (h onlineHooks) AllocateResult(env *algo.Environment) error {
	m, err := newModel(env, h.o.pres.Classes(), h.o.pres.Features())
	if err != nil {
		return err
	}
	h.o.model = m

	return nil
}

func (h onlineHooks) Result() algo.FinalResult {
	if h.o.model == nil {
		return nil
	}

	return h.o.model
}

type onlineContainer struct{ *algo.ContainerBase }

func (c *onlineContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*TrainingInput](c.Input(), "input", errs)
	if !ok {
		return
	}
	pres, ok := algo.Narrow[*PartialResult](c.PartialResult(), "partialResult", errs)
	if !ok {
		return
	}
	c.Run([]matrix.Matrix{in.Data, in.Labels}, pres.tables())
}

func (c *onlineContainer) FinalizeCompute() {
	errs := c.Errors()
	pres, ok := algo.Narrow[*PartialResult](c.PartialResult(), "partialResult", errs)
	if !ok {
		return
	}
	m, ok := algo.Narrow[*Model](c.Result(), "model", errs)
	if !ok {
		return
	}
	c.RunFinalize(pres.tables(), []matrix.Matrix{m.LogPrior, m.LogTheta})
}

// TrainingMaster is the step2Master trainer: it adds the class counts of
// every node and estimates the model.
type TrainingMaster struct {
	*algo.Streaming
	input *DistributedInput
	par   Parameter
	pres  *PartialResult
	model *Model
}

// NewTrainingMaster builds a step2Master trainer for nClasses classes.
func NewTrainingMaster(env *algo.Environment, nClasses int, opts ...algo.Option) (*TrainingMaster, error) {
	m := &TrainingMaster{input: NewDistributedInput(), par: NewParameter(nClasses)}
	core, err := algo.NewStreaming(env, trainingRegistry, algo.ModeStep2Master, algo.NewSettings(opts...), masterHooks{m}, zeroInit,
		func(base *algo.ContainerBase) algo.StreamingContainer { return &masterContainer{base} })
	if err != nil {
		return nil, err
	}
	m.Streaming = core

	return m, nil
}

// Input returns the collection of contributed partial results.
func (m *TrainingMaster) Input() *DistributedInput { return m.input }

// Parameter returns the algorithm parameter.
func (m *TrainingMaster) Parameter() *Parameter { return &m.par }

// PartialResult returns the merged counts.
func (m *TrainingMaster) PartialResult() *PartialResult { return m.pres }

// Model returns the trained model (nil before FinalizeCompute).
func (m *TrainingMaster) Model() *Model { return m.model }

type masterHooks struct{ m *TrainingMaster }

func (h masterHooks) Input() algo.Input         { return h.m.input }
func (h masterHooks) Parameter() algo.Parameter { return &h.m.par }

func (h masterHooks) AllocatePartialResult(env *algo.Environment) error {
	pr, err := NewPartialResult(env, h.m.par.NClasses, h.m.input.features())
	if err != nil {
		return err
	}
	h.m.pres = pr

	return nil
}

func (h masterHooks) PartialResult() algo.PartialResult {
	if h.m.pres == nil {
		return nil
	}

	return h.m.pres
}

func (h masterHooks) AllocateResult(env *algo.Environment) error {
	m, err := newModel(env, h.m.pres.Classes(), h.m.pres.Features())
	if err != nil {
		return err
	}
	h.m.model = m

	return nil
}

func (h masterHooks) Result() algo.FinalResult {
	if h.m.model == nil {
		return nil
	}

	return h.m.model
}

type masterContainer struct{ *algo.ContainerBase }

func (c *masterContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*DistributedInput](c.Input(), "input", errs)
	if !ok {
		return
	}
	pres, ok := algo.Narrow[*PartialResult](c.PartialResult(), "partialResult", errs)
	if !ok {
		return
	}
	algo.ReduceOnce(c.ContainerBase, in.PartialResults, (*PartialResult).tables, pres.tables())
}

func (c *masterContainer) FinalizeCompute() {
	errs := c.Errors()
	pres, ok := algo.Narrow[*PartialResult](c.PartialResult(), "partialResult", errs)
	if !ok {
		return
	}
	m, ok := algo.Narrow[*Model](c.Result(), "model", errs)
	if !ok {
		return
	}
	c.RunFinalize(pres.tables(), []matrix.Matrix{m.LogPrior, m.LogTheta})
}
