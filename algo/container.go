// SPDX-License-Identifier: MIT

package algo

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/katalvlaran/algokit/matrix"
)

// BatchContainer runs the kernel of a batch algorithm.
type BatchContainer interface {
	Bind(in Input, pres PartialResult, res any, par Parameter, errs *ErrorCollection)
	Compute()
	Tier() CPUTier
	Close()
}

// StreamingContainer runs the kernel of an online or distributed algorithm.
type StreamingContainer interface {
	BatchContainer
	FinalizeCompute()
}

// ContainerBase holds what every algorithm container shares: the kernel
// chosen once at construction and the bound arguments. Algorithm containers
// embed it and implement Compute (and FinalizeCompute) by narrowing the
// bound arguments and marshalling them into the kernel's flat arrays.
type ContainerBase struct {
	env      *Environment
	key      KernelKey
	tier     CPUTier
	kernel   Kernel
	released bool
	log      *logrus.Entry

	in   Input
	pres PartialResult
	res  any
	par  Parameter
	errs *ErrorCollection
}

// NewContainerBase resolves key against reg for env's tier and instantiates
// the kernel. This is the only place a kernel is created.
func NewContainerBase(env *Environment, reg *Registry, key KernelKey) (*ContainerBase, error) {
	f, tier, ok := reg.Resolve(key, env.Tier())
	if !ok {
		return nil, fmt.Errorf("algo: %s %s: %w", reg.Name(), key, ErrorKernelNotRegistered)
	}
	k := f()
	if k == nil {
		return nil, fmt.Errorf("algo: %s %s: factory returned nil: %w", reg.Name(), key, ErrorKernelNotRegistered)
	}
	log := env.Logger().WithFields(logrus.Fields{
		"algorithm": reg.Name(),
		"mode":      key.Mode,
		"fptype":    key.FPType,
		"method":    int(key.Method),
		"tier":      tier,
	})
	log.Debug("algo: kernel selected")

	return &ContainerBase{env: env, key: key, tier: tier, kernel: k, log: log}, nil
}

// Bind records the arguments of the next Compute / FinalizeCompute call.
func (c *ContainerBase) Bind(in Input, pres PartialResult, res any, par Parameter, errs *ErrorCollection) {
	c.in, c.pres, c.res, c.par, c.errs = in, pres, res, par, errs
}

// Environment returns the environment the container was built against.
func (c *ContainerBase) Environment() *Environment { return c.env }

// Key returns the kernel family.
func (c *ContainerBase) Key() KernelKey { return c.key }

// Tier returns the tier of the selected kernel.
func (c *ContainerBase) Tier() CPUTier { return c.tier }

// Kernel returns the owned kernel.
func (c *ContainerBase) Kernel() Kernel { return c.kernel }

// Finalizer returns the owned kernel as a FinalizeKernel.
func (c *ContainerBase) Finalizer() (FinalizeKernel, bool) {
	if c.released {
		c.errs.AddArgument(ErrorAlgorithmFaulted, "kernel released")
		return nil, false
	}
	f, ok := c.kernel.(FinalizeKernel)
	if !ok {
		c.errs.AddArgument(ErrorUnsupportedMethod, "finalizeCompute")
	}

	return f, ok
}

// Input returns the bound input.
func (c *ContainerBase) Input() Input { return c.in }

// PartialResult returns the bound partial result.
func (c *ContainerBase) PartialResult() PartialResult { return c.pres }

// Result returns the bound result.
func (c *ContainerBase) Result() any { return c.res }

// Parameter returns the bound parameter.
func (c *ContainerBase) Parameter() Parameter { return c.par }

// Errors returns the bound error collection.
func (c *ContainerBase) Errors() *ErrorCollection { return c.errs }

// Logger returns the container's log entry.
func (c *ContainerBase) Logger() *logrus.Entry { return c.log }

// Run invokes the kernel's Compute.
func (c *ContainerBase) Run(in, out []matrix.Matrix) {
	if c.released {
		c.errs.AddArgument(ErrorAlgorithmFaulted, "kernel released")
		return
	}
	c.kernel.Compute(in, out, c.par, c.errs)
}

// RunFinalize invokes the kernel's FinalizeCompute.
func (c *ContainerBase) RunFinalize(in, out []matrix.Matrix) {
	if f, ok := c.Finalizer(); ok {
		f.FinalizeCompute(in, out, c.par, c.errs)
	}
}

// Close releases the kernel. It runs at most once.
func (c *ContainerBase) Close() {
	if c.released {
		return
	}
	c.released = true
	if r, ok := c.kernel.(Releaser); ok {
		r.Release()
	}
	c.kernel = nil
	c.log.Debug("algo: kernel released")
}

// Released reports whether Close has run.
func (c *ContainerBase) Released() bool { return c.released }

// ReduceOnce flattens every contribution of coll with flatten, runs the
// kernel exactly once over the concatenation and clears the collection.
// An empty collection appends ErrorIncorrectNumberOfInputNumericTables and
// leaves the kernel untouched.
func ReduceOnce[T any](c *ContainerBase, coll *Collection[T], flatten func(T) []matrix.Matrix, out []matrix.Matrix) {
	if coll == nil || coll.Len() == 0 {
		c.errs.AddArgument(ErrorIncorrectNumberOfInputNumericTables, "partialResults")
		return
	}
	items := coll.Items()
	in := make([]matrix.Matrix, 0, len(items)*3)
	for _, it := range items {
		in = append(in, flatten(it)...)
	}
	c.Run(in, out)
	coll.Clear()
}
