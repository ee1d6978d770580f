// SPDX-License-Identifier: MIT

package algo

import (
	"github.com/sirupsen/logrus"
)

// StreamingHooks is implemented by online, step1Local and step2Master
// algorithms to expose their arguments to the orchestrator.
type StreamingHooks interface {
	Input() Input
	Parameter() Parameter
	// AllocatePartialResult sizes the accumulator from the bound input.
	// The orchestrator calls it once per algorithm lifetime.
	AllocatePartialResult(env *Environment) error
	PartialResult() PartialResult
	// AllocateResult sizes the final result from the partial result.
	// The orchestrator calls it once per algorithm lifetime.
	AllocateResult(env *Environment) error
	Result() FinalResult
}

// Initializer prepares a freshly allocated partial result from the first
// input block (zero-fill, seeding).
type Initializer interface {
	Initialize(in Input, pres PartialResult, par Parameter, errs *ErrorCollection)
}

// InitializerFunc adapts a function to Initializer.
type InitializerFunc func(in Input, pres PartialResult, par Parameter, errs *ErrorCollection)

// Initialize calls f.
func (f InitializerFunc) Initialize(in Input, pres PartialResult, par Parameter, errs *ErrorCollection) {
	f(in, pres, par, errs)
}

// Streaming orchestrates accumulating computations. Each Compute folds one
// input into the partial result; FinalizeCompute projects the partial result
// into the final result without modifying it, so it may run repeatedly.
type Streaming struct {
	env      *Environment
	mode     Mode
	settings Settings
	hooks    StreamingHooks
	init     Initializer
	cntr     StreamingContainer
	errs     *ErrorCollection
	state    State
	log      *logrus.Entry

	presAllocated bool
	initialized   bool
	resAllocated  bool
}

// NewStreaming builds the container for the (mode, s) kernel and wires it to hooks.
// init may be nil when the partial result needs no preparation.
func NewStreaming(env *Environment, reg *Registry, mode Mode, s Settings, hooks StreamingHooks, init Initializer, wrap func(*ContainerBase) StreamingContainer) (*Streaming, error) {
	key := KernelKey{Mode: mode, FPType: s.FPType, Method: s.Method}
	base, err := NewContainerBase(env, reg, key)
	if err != nil {
		return nil, err
	}

	return &Streaming{
		env:      env,
		mode:     mode,
		settings: s,
		hooks:    hooks,
		init:     init,
		cntr:     wrap(base),
		errs:     NewErrorCollection(),
		state:    StateCreated,
		log:      base.Logger(),
	}, nil
}

// SetInitializer replaces the partial-result initialisation procedure. It
// only has an effect before the first Compute.
func (s *Streaming) SetInitializer(init Initializer) { s.init = init }

// AdoptPartialResult records that the hooks already hold an allocated partial
// result (restored from a checkpoint, or supplied by the caller). With
// initialized set the initialisation procedure is skipped as well.
func (s *Streaming) AdoptPartialResult(initialized bool) {
	s.presAllocated = true
	s.initialized = initialized
}

// AdoptResult records that the hooks already hold an allocated result.
func (s *Streaming) AdoptResult() { s.resAllocated = true }

// Compute folds the bound input into the partial result.
func (s *Streaming) Compute() error {
	if s.state == StateFaulted {
		return s.errs.Err()
	}
	method := s.settings.Method

	// Stage 1 (Bind)
	par := s.hooks.Parameter()
	in := s.hooks.Input()
	s.enter(StateParametersBound)

	// Stage 2 (Validate)
	if par != nil {
		par.Check(s.errs)
	}
	if in == nil {
		s.errs.AddArgument(ErrorNullInputNumericTable, "input")
	} else {
		in.Check(par, method, s.errs)
	}
	if !s.errs.IsEmpty() {
		return s.fault()
	}
	s.enter(StateValidated)

	// Stage 3 (Allocate once)
	if !s.presAllocated {
		if err := s.hooks.AllocatePartialResult(s.env); err != nil {
			s.errs.AddCause(ErrorMemoryAllocationFailed, "partialResult", err)
			return s.fault()
		}
		s.presAllocated = true
		s.enter(StateMemoryAllocated)
	}
	pres := s.hooks.PartialResult()
	if pres == nil {
		s.errs.AddArgument(ErrorNullPartialResult, "partialResult")
		return s.fault()
	}

	// Stage 4 (Initialise once)
	if !s.initialized {
		if s.init != nil {
			s.init.Initialize(in, pres, par, s.errs)
		}
		s.initialized = true
		if !s.errs.IsEmpty() {
			return s.fault()
		}
	}

	// Stage 5 (Check, compute)
	pres.Check(in, par, method, s.errs)
	if !s.errs.IsEmpty() {
		return s.fault()
	}
	s.cntr.Bind(in, pres, nil, par, s.errs)
	s.cntr.Compute()
	if !s.errs.IsEmpty() {
		return s.fault()
	}
	s.enter(StateComputed)

	return nil
}

// FinalizeCompute produces the final result from the partial result.
func (s *Streaming) FinalizeCompute() error {
	if s.state == StateFaulted {
		return s.errs.Err()
	}
	method := s.settings.Method
	par := s.hooks.Parameter()

	// Stage 1 (Check partial)
	pres := s.hooks.PartialResult()
	if pres == nil || !s.initialized {
		s.errs.AddArgument(ErrorNullPartialResult, "partialResult")
		return s.fault()
	}
	pres.CheckFinal(par, method, s.errs)
	if !s.errs.IsEmpty() {
		return s.fault()
	}

	// Stage 2 (Allocate once)
	if !s.resAllocated {
		if err := s.hooks.AllocateResult(s.env); err != nil {
			s.errs.AddCause(ErrorMemoryAllocationFailed, "result", err)
			return s.fault()
		}
		s.resAllocated = true
	}
	res := s.hooks.Result()
	if res == nil {
		s.errs.AddArgument(ErrorNullResult, "result")
		return s.fault()
	}

	// Stage 3 (Finalize, check)
	s.cntr.Bind(s.hooks.Input(), pres, res, par, s.errs)
	s.cntr.FinalizeCompute()
	if !s.errs.IsEmpty() {
		return s.fault()
	}
	res.CheckFinal(pres, par, method, s.errs)
	if !s.errs.IsEmpty() {
		return s.fault()
	}
	s.enter(StateResultAvailable)

	return nil
}

func (s *Streaming) enter(st State) {
	s.state = st
	s.log.WithField("stage", st).Debug("algo: stage")
}

func (s *Streaming) fault() error {
	s.state = StateFaulted
	err := s.errs.Err()
	s.log.WithField("stage", StateFaulted).WithError(err).Debug("algo: computation faulted")

	return err
}

// Errors returns the algorithm's error collection.
func (s *Streaming) Errors() *ErrorCollection { return s.errs }

// State returns the lifecycle position.
func (s *Streaming) State() State { return s.state }

// Mode returns the computation mode.
func (s *Streaming) Mode() Mode { return s.mode }

// Settings returns the construction settings.
func (s *Streaming) Settings() Settings { return s.settings }

// Environment returns the environment the algorithm was built against.
func (s *Streaming) Environment() *Environment { return s.env }

// Tier returns the tier of the selected kernel.
func (s *Streaming) Tier() CPUTier { return s.cntr.Tier() }

// Close releases the container and its kernel.
func (s *Streaming) Close() { s.cntr.Close() }
