// SPDX-License-Identifier: MIT

package covariance

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/internal/moments"
	"github.com/katalvlaran/algokit/matrix"
)

var registry = algo.NewRegistry("covariance")

// Registry exposes the dispatch table for inspection.
func Registry() *algo.Registry { return registry }

func init() {
	for _, t := range algo.Tiers() {
		registerTier[float64](t, algo.Float64)
		registerTier[float32](t, algo.Float32)
	}
}

func registerTier[T algo.Float](t algo.CPUTier, fp algo.FPType) {
	lanes := algo.Lanes[T](t)
	registry.Register(algo.KernelKey{Mode: algo.ModeBatch, FPType: fp, Method: DefaultDense}, t,
		func() algo.Kernel { return &batchKernel[T]{lanes: lanes} })
	registry.Register(algo.KernelKey{Mode: algo.ModeOnline, FPType: fp, Method: DefaultDense}, t,
		func() algo.Kernel { return &onlineKernel[T]{lanes: lanes} })
	registry.Register(algo.KernelKey{Mode: algo.ModeStep1Local, FPType: fp, Method: DefaultDense}, t,
		func() algo.Kernel { return &onlineKernel[T]{lanes: lanes} })
	registry.Register(algo.KernelKey{Mode: algo.ModeStep2Master, FPType: fp, Method: DefaultDense}, t,
		func() algo.Kernel { return &masterKernel{} })
}

func finalize(par algo.Parameter, in, out []matrix.Matrix, errs *algo.ErrorCollection) {
	prm, ok := algo.Narrow[*Parameter](par, "parameter", errs)
	if !ok {
		return
	}
	kind := moments.KindCovariance
	if prm.OutputMatrixType == CorrelationMatrix {
		kind = moments.KindCorrelation
	}
	moments.Finalize(kind, in[0], in[1], in[2], out[0], out[1], errs)
}

// batchKernel: in [data], out [matrix, mean].
type batchKernel[T algo.Float] struct{ lanes int }

func (k *batchKernel[T]) Compute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	p := in[0].Cols()
	nObs, _ := matrix.NewDense(1, 1)
	cross, _ := matrix.NewDense(p, p)
	sum, _ := matrix.NewDense(1, p)
	moments.Accumulate[T](in[0], k.lanes, nObs, cross, sum, errs)
	if !errs.IsEmpty() {
		return
	}
	finalize(par, []matrix.Matrix{nObs, cross, sum}, out, errs)
}

// onlineKernel: Compute in [data], out [nObservations, crossProduct, sum];
// FinalizeCompute in [nObservations, crossProduct, sum], out [matrix, mean].
type onlineKernel[T algo.Float] struct{ lanes int }

func (k *onlineKernel[T]) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	moments.Accumulate[T](in[0], k.lanes, out[0], out[1], out[2], errs)
}

func (k *onlineKernel[T]) FinalizeCompute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	finalize(par, in, out, errs)
}

// masterKernel: Compute in [nObservations_i, crossProduct_i, sum_i]×k,
// out [nObservations, crossProduct, sum]; FinalizeCompute as onlineKernel.
// Merging is exact addition, so one kernel serves both floating-point types.
type masterKernel struct{}

func (masterKernel) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	moments.MergeTables(in, out, errs)
}

func (masterKernel) FinalizeCompute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	finalize(par, in, out, errs)
}
