// SPDX-License-Identifier: MIT

package algo

import "fmt"

// Float is the set of floating-point types kernels are instantiated for.
type Float interface {
	~float32 | ~float64
}

// FPType selects the floating-point type a kernel computes in.
type FPType int

const (
	Float64 FPType = iota
	Float32
)

// String implements fmt.Stringer.
func (t FPType) String() string {
	switch t {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("fptype(%d)", int(t))
	}
}

// Method selects an algorithm-specific computation method. Every algorithm
// package names its methods; DefaultDense is the method used when none is given.
type Method int

// DefaultDense is method 0 in every algorithm package.
const DefaultDense Method = 0

// Mode is the computation mode of an algorithm.
type Mode int

const (
	ModeBatch Mode = iota
	ModeOnline
	ModeStep1Local
	ModeStep2Master
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeBatch:
		return "batch"
	case ModeOnline:
		return "online"
	case ModeStep1Local:
		return "step1Local"
	case ModeStep2Master:
		return "step2Master"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Parameter is an algorithm's configuration. Check appends every violation.
type Parameter interface {
	Check(errs *ErrorCollection)
}

// Input is an algorithm's input. Check validates arguments before anything is
// allocated.
type Input interface {
	Check(par Parameter, method Method, errs *ErrorCollection)
}

// PartialResult is the accumulator of online and distributed modes.
type PartialResult interface {
	Serializable
	// Check validates the accumulator against the next input block.
	Check(in Input, par Parameter, method Method, errs *ErrorCollection)
	// CheckFinal validates the accumulator before finalizeCompute.
	CheckFinal(par Parameter, method Method, errs *ErrorCollection)
}

// Result is a batch result, checked against its input before compute.
type Result interface {
	Serializable
	Check(in Input, par Parameter, method Method, errs *ErrorCollection)
}

// FinalResult is a result produced by finalizeCompute from a partial result.
type FinalResult interface {
	Serializable
	CheckFinal(pres PartialResult, par Parameter, method Method, errs *ErrorCollection)
}

// Settings are the construction-time choices of an algorithm.
type Settings struct {
	FPType FPType
	Method Method
}

// Option mutates Settings.
type Option func(*Settings)

// WithMethod selects the computation method.
func WithMethod(m Method) Option { return func(s *Settings) { s.Method = m } }

// WithFPType selects the kernel floating-point type.
func WithFPType(t FPType) Option { return func(s *Settings) { s.FPType = t } }

// WithFloat32 is WithFPType(Float32).
func WithFloat32() Option { return WithFPType(Float32) }

// NewSettings resolves opts over Float64 / DefaultDense.
func NewSettings(opts ...Option) Settings {
	s := Settings{FPType: Float64, Method: DefaultDense}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	return s
}
