// SPDX-License-Identifier: MIT

// Package matrix: functional configuration for numeric policy.
// This file defines:
//   - Option / Options (functional options with internal state),
//   - documented defaults (constants),
//   - WithX constructors with strong validation (panic on nonsensical values),
//   - gatherOptions helper (internal) that enforces invariants.
//
// Design goals:
//   - Deterministic behavior: no global state, no implicit randomness.
//   - Safe by construction: panic only on invalid parameters (programmer error).
package matrix

import (
	"fmt"
	"math"
)

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultEpsilon defines the non-negative tolerance used by structural checks
	// (symmetry) and as the Jacobi convergence threshold.
	DefaultEpsilon = 1e-10

	// DefaultValidateNaNInf toggles strict finite-value validation on Set.
	DefaultValidateNaNInf = true

	// DefaultMaxSweeps bounds the number of Jacobi rotations per dimension.
	DefaultMaxSweeps = 100
)

const panicEpsilonInvalid = "matrix: WithEpsilon requires a finite eps >= 0"
const panicSweepsInvalid = "matrix: WithMaxSweeps requires n > 0"

// Options holds the numeric policy resolved from a list of Option.
type Options struct {
	eps            float64
	validateNaNInf bool
	maxSweeps      int
}

// Option mutates Options.
type Option func(*Options)

// WithEpsilon sets the tolerance used by structural checks and iterative methods.
// Panics on negative, NaN or Inf eps.
func WithEpsilon(eps float64) Option {
	if eps < 0 || math.IsNaN(eps) || math.IsInf(eps, 0) {
		panic(fmt.Sprintf("%s (got %v)", panicEpsilonInvalid, eps))
	}

	return func(o *Options) { o.eps = eps }
}

// WithValidateNaNInf turns on finite-value validation in Set.
func WithValidateNaNInf() Option { return func(o *Options) { o.validateNaNInf = true } }

// WithNoValidateNaNInf turns off finite-value validation in Set.
func WithNoValidateNaNInf() Option { return func(o *Options) { o.validateNaNInf = false } }

// WithMaxSweeps bounds iterative methods at n*dim*dim rotations.
func WithMaxSweeps(n int) Option {
	if n <= 0 {
		panic(fmt.Sprintf("%s (got %d)", panicSweepsInvalid, n))
	}

	return func(o *Options) { o.maxSweeps = n }
}

// NewOptions resolves opts over the defaults. Exposed for callers that keep a
// policy around (algorithm parameters) instead of an option list.
func NewOptions(opts ...Option) Options { return gatherOptions(opts...) }

// Epsilon returns the resolved tolerance.
func (o Options) Epsilon() float64 { return o.eps }

// MaxSweeps returns the resolved sweep bound.
func (o Options) MaxSweeps() int { return o.maxSweeps }

// ValidateNaNInf reports whether finite-value validation is on.
func (o Options) ValidateNaNInf() bool { return o.validateNaNInf }

// gatherOptions applies opts in order over the defaults; last writer wins.
func gatherOptions(opts ...Option) Options {
	o := Options{
		eps:            DefaultEpsilon,
		validateNaNInf: DefaultValidateNaNInf,
		maxSweeps:      DefaultMaxSweeps,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}
