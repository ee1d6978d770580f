// SPDX-License-Identifier: MIT

package algo

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/katalvlaran/algokit/matrix"
)

// Kernel is the numeric routine behind a container. Inputs and outputs are
// flat arrays in an order fixed by the algorithm; outputs are preallocated.
// A kernel never keeps references to its arguments across calls and reports
// degenerate data by appending to errs.
type Kernel interface {
	Compute(in, out []matrix.Matrix, par Parameter, errs *ErrorCollection)
}

// FinalizeKernel is a kernel of an online or distributed algorithm that can
// turn a partial result into a final result.
type FinalizeKernel interface {
	Kernel
	FinalizeCompute(in, out []matrix.Matrix, par Parameter, errs *ErrorCollection)
}

// Releaser is implemented by kernels that hold resources. The owning
// container calls Release exactly once.
type Releaser interface {
	Release()
}

// KernelFactory builds a fresh kernel instance.
type KernelFactory func() Kernel

// KernelKey identifies a kernel family within an algorithm package.
type KernelKey struct {
	Mode   Mode
	FPType FPType
	Method Method
}

// String implements fmt.Stringer.
func (k KernelKey) String() string {
	return fmt.Sprintf("%s/%s/method=%d", k.Mode, k.FPType, int(k.Method))
}

type registryEntry struct {
	key  KernelKey
	tier CPUTier
}

// Registry is the dispatch table of one algorithm: every (mode, fptype,
// method) × tier combination the package instantiates is registered during
// package initialisation. After init the table is only read.
type Registry struct {
	name    string
	mu      sync.RWMutex
	entries map[registryEntry]KernelFactory
}

// NewRegistry returns an empty registry for the named algorithm.
func NewRegistry(name string) *Registry {
	return &Registry{name: name, entries: make(map[registryEntry]KernelFactory)}
}

// Name returns the algorithm name.
func (r *Registry) Name() string { return r.name }

// Register adds a factory for key at tier. Registering the same slot twice is
// a programmer error and panics.
func (r *Registry) Register(key KernelKey, tier CPUTier, f KernelFactory) {
	if f == nil {
		panic(fmt.Sprintf("algo: %s: nil kernel factory for %s", r.name, key))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e := registryEntry{key: key, tier: tier}
	if _, dup := r.entries[e]; dup {
		panic(fmt.Sprintf("algo: %s: kernel %s already registered at %s", r.name, key, tier))
	}
	r.entries[e] = f
}

// RegisterTiers registers build(tier) for every tier in tiers.
func (r *Registry) RegisterTiers(key KernelKey, tiers []CPUTier, build func(CPUTier) KernelFactory) {
	for _, t := range tiers {
		r.Register(key, t, build(t))
	}
}

// Resolve returns the factory registered for key at the highest tier not
// above tier.
func (r *Registry) Resolve(key KernelKey, tier CPUTier) (KernelFactory, CPUTier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for t := tier; t >= TierBaseline; t-- {
		if f, ok := r.entries[registryEntry{key: key, tier: t}]; ok {
			return f, t, true
		}
	}

	return nil, TierBaseline, false
}

// Keys lists the registered kernel families in a stable order.
func (r *Registry) Keys() []KernelKey {
	r.mu.RLock()
	keys := lo.Uniq(lo.Map(lo.Keys(r.entries), func(e registryEntry, _ int) KernelKey { return e.key }))
	r.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Mode != b.Mode {
			return a.Mode < b.Mode
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.FPType < b.FPType
	})

	return keys
}

// Tiers lists the tiers registered for key in ascending order.
func (r *Registry) Tiers(key KernelKey) []CPUTier {
	r.mu.RLock()
	tiers := lo.FilterMap(lo.Keys(r.entries), func(e registryEntry, _ int) (CPUTier, bool) {
		return e.tier, e.key == key
	})
	r.mu.RUnlock()
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })

	return tiers
}
