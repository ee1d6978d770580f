// SPDX-License-Identifier: MIT

package algo

import (
	"github.com/sirupsen/logrus"
)

// BatchHooks is implemented by each batch algorithm to expose its arguments
// to the orchestrator.
type BatchHooks interface {
	Input() Input
	Parameter() Parameter
	// AllocateResult prepares the result for the bound input. It is called
	// once per Compute, after validation succeeded.
	AllocateResult(env *Environment) error
	Result() Result
}

// InputAllocator is implemented by hooks that need to materialise input
// storage (derived tables) before the result is allocated.
type InputAllocator interface {
	AllocateInput(env *Environment) error
}

// Batch orchestrates a single-shot computation:
//
//	check → allocate input → allocate result → bind → check result → compute
//
// Any non-empty error collection aborts the sequence and moves the algorithm
// to StateFaulted, which is terminal.
type Batch struct {
	env      *Environment
	settings Settings
	hooks    BatchHooks
	cntr     BatchContainer
	errs     *ErrorCollection
	state    State
	log      *logrus.Entry
}

// NewBatch builds the container for the batch kernel of s and wires it to hooks.
func NewBatch(env *Environment, reg *Registry, s Settings, hooks BatchHooks, wrap func(*ContainerBase) BatchContainer) (*Batch, error) {
	key := KernelKey{Mode: ModeBatch, FPType: s.FPType, Method: s.Method}
	base, err := NewContainerBase(env, reg, key)
	if err != nil {
		return nil, err
	}

	return &Batch{
		env:      env,
		settings: s,
		hooks:    hooks,
		cntr:     wrap(base),
		errs:     NewErrorCollection(),
		state:    StateCreated,
		log:      base.Logger(),
	}, nil
}

// Compute runs the batch sequence. It returns nil or the joined error of the
// algorithm's error collection.
func (b *Batch) Compute() error {
	if b.state == StateFaulted {
		return b.errs.Err()
	}
	method := b.settings.Method

	// Stage 1 (Bind)
	par := b.hooks.Parameter()
	in := b.hooks.Input()
	b.enter(StateParametersBound)

	// Stage 2 (Validate)
	if par != nil {
		par.Check(b.errs)
	}
	if in == nil {
		b.errs.AddArgument(ErrorNullInputNumericTable, "input")
	} else {
		in.Check(par, method, b.errs)
	}
	if !b.errs.IsEmpty() {
		return b.fault()
	}
	b.enter(StateValidated)

	// Stage 3 (Allocate)
	if ia, ok := b.hooks.(InputAllocator); ok {
		if err := ia.AllocateInput(b.env); err != nil {
			b.errs.AddCause(ErrorMemoryAllocationFailed, "input", err)
			return b.fault()
		}
	}
	if err := b.hooks.AllocateResult(b.env); err != nil {
		b.errs.AddCause(ErrorMemoryAllocationFailed, "result", err)
		return b.fault()
	}
	b.enter(StateMemoryAllocated)

	// Stage 4 (Bind container, check result)
	res := b.hooks.Result()
	if res == nil {
		b.errs.AddArgument(ErrorNullResult, "result")
		return b.fault()
	}
	b.cntr.Bind(in, nil, res, par, b.errs)
	res.Check(in, par, method, b.errs)
	if !b.errs.IsEmpty() {
		return b.fault()
	}

	// Stage 5 (Compute)
	b.cntr.Compute()
	if !b.errs.IsEmpty() {
		return b.fault()
	}
	b.enter(StateComputed)
	b.enter(StateResultAvailable)

	return nil
}

func (b *Batch) enter(s State) {
	b.state = s
	b.log.WithField("stage", s).Debug("algo: stage")
}

func (b *Batch) fault() error {
	b.state = StateFaulted
	err := b.errs.Err()
	b.log.WithField("stage", StateFaulted).WithError(err).Debug("algo: computation faulted")

	return err
}

// Errors returns the algorithm's error collection.
func (b *Batch) Errors() *ErrorCollection { return b.errs }

// State returns the lifecycle position.
func (b *Batch) State() State { return b.state }

// Succeeded reports whether the last Compute produced a result.
func (b *Batch) Succeeded() bool { return b.state == StateResultAvailable }

// Settings returns the construction settings.
func (b *Batch) Settings() Settings { return b.settings }

// Environment returns the environment the algorithm was built against.
func (b *Batch) Environment() *Environment { return b.env }

// Tier returns the tier of the selected kernel.
func (b *Batch) Tier() CPUTier { return b.cntr.Tier() }

// Close releases the container and its kernel.
func (b *Batch) Close() { b.cntr.Close() }
