// SPDX-License-Identifier: MIT

package pca

import (
	"math"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/internal/moments"
	"github.com/katalvlaran/algokit/matrix"
)

var registry = algo.NewRegistry("pca")

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
	key := func(m algo.Mode, method algo.Method) algo.KernelKey {
		return algo.KernelKey{Mode: m, FPType: fp, Method: method}
	}
	registry.Register(key(algo.ModeBatch, CorrelationDense), t, func() algo.Kernel { return &correlationBatchKernel[T]{lanes: lanes} })
	registry.Register(key(algo.ModeOnline, CorrelationDense), t, func() algo.Kernel { return &correlationOnlineKernel[T]{lanes: lanes} })
	registry.Register(key(algo.ModeStep1Local, CorrelationDense), t, func() algo.Kernel { return &correlationOnlineKernel[T]{lanes: lanes} })
	registry.Register(key(algo.ModeStep2Master, CorrelationDense), t, func() algo.Kernel { return &correlationMasterKernel{} })

	registry.Register(key(algo.ModeBatch, SVDDense), t, func() algo.Kernel { return &svdBatchKernel[T]{lanes: lanes} })
	registry.Register(key(algo.ModeOnline, SVDDense), t, func() algo.Kernel { return &svdOnlineKernel[T]{lanes: lanes} })
	registry.Register(key(algo.ModeStep1Local, SVDDense), t, func() algo.Kernel { return &svdOnlineKernel[T]{lanes: lanes} })
	registry.Register(key(algo.ModeStep2Master, SVDDense), t, func() algo.Kernel { return &svdMasterKernel{} })
}

// decompose writes the eigenpairs of the symmetric matrix corr into
// out [eigenvalues, eigenvectors].
func decompose(corr matrix.Matrix, par algo.Parameter, out []matrix.Matrix, errs *algo.ErrorCollection) {
	prm, ok := algo.Narrow[*Parameter](par, "parameter", errs)
	if !ok {
		return
	}
	vals, vecs, err := matrix.EigenSym(corr, prm.eigenOptions()...)
	if err != nil {
		errs.AddCause(algo.ErrorEigenDecompositionFailed, "correlation", err)
		return
	}
	copyInto(out[0], vals, "eigenvalues", errs)
	copyInto(out[1], vecs, "eigenvectors", errs)
}

func copyInto(dst matrix.Matrix, src *matrix.Dense, name string, errs *algo.ErrorCollection) {
	b, ok := algo.AcquireAll(dst, matrix.WriteOnly, name, errs)
	if !ok {
		return
	}
	copy(b.Data, src.Values())
	algo.Release(b, name, errs)
}

// scratch allocates a kernel-local table, recording the failure under name.
func scratch(rows, cols int, name string, errs *algo.ErrorCollection) *matrix.Dense {
	m, err := matrix.NewDense(rows, cols, matrix.WithNoValidateNaNInf())
	if err != nil {
		errs.AddCause(algo.ErrorMemoryAllocationFailed, name, err)
		return nil
	}

	return m
}

// correlationFromMoments builds the p×p correlation matrix from [nObs, cross, sum].
func correlationFromMoments(in []matrix.Matrix, errs *algo.ErrorCollection) *matrix.Dense {
	p := in[2].Cols()
	corr := scratch(p, p, "correlation", errs)
	mean := scratch(1, p, "mean", errs)
	if !errs.IsEmpty() {
		return nil
	}
	moments.Finalize(moments.KindCorrelation, in[0], in[1], in[2], corr, mean, errs)
	if !errs.IsEmpty() {
		return nil
	}

	return corr
}

// correlationBatchKernel: in [data, correlation] (one of them unallocated),
// out [eigenvalues, eigenvectors].
type correlationBatchKernel[T algo.Float] struct{ lanes int }

func (k *correlationBatchKernel[T]) Compute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	if !matrix.IsAllocated(in[0]) {
		decompose(in[1], par, out, errs)
		return
	}
	p := in[0].Cols()
	nObs := scratch(1, 1, "nObservations", errs)
	cross := scratch(p, p, "crossProduct", errs)
	sum := scratch(1, p, "sum", errs)
	if !errs.IsEmpty() {
		return
	}
	moments.Accumulate[T](in[0], k.lanes, nObs, cross, sum, errs)
	if !errs.IsEmpty() {
		return
	}
	if corr := correlationFromMoments([]matrix.Matrix{nObs, cross, sum}, errs); corr != nil {
		decompose(corr, par, out, errs)
	}
}

// correlationOnlineKernel: Compute in [data], out [nObservations, crossProduct, sum];
// FinalizeCompute in [nObservations, crossProduct, sum], out [eigenvalues, eigenvectors].
type correlationOnlineKernel[T algo.Float] struct{ lanes int }

func (k *correlationOnlineKernel[T]) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	moments.Accumulate[T](in[0], k.lanes, out[0], out[1], out[2], errs)
}

func (k *correlationOnlineKernel[T]) FinalizeCompute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	if corr := correlationFromMoments(in, errs); corr != nil {
		decompose(corr, par, out, errs)
	}
}

// correlationMasterKernel: Compute in [nObservations_i, crossProduct_i, sum_i]×k,
// out [nObservations, crossProduct, sum].
type correlationMasterKernel struct{}

func (correlationMasterKernel) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	moments.MergeTables(in, out, errs)
}

func (correlationMasterKernel) FinalizeCompute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	if corr := correlationFromMoments(in, errs); corr != nil {
		decompose(corr, par, out, errs)
	}
}

// svdAccumulate folds data into [nObservations, sum, sumSquares] and writes
// the block's R factor into r.
func svdAccumulate[T algo.Float](data matrix.Matrix, lanes int, out []matrix.Matrix, r matrix.Matrix, errs *algo.ErrorCollection) {
	nb, ok := algo.AcquireAll(out[0], matrix.ReadWrite, "nObservations", errs)
	if !ok {
		return
	}
	defer algo.Release(nb, "nObservations", errs)
	sb, ok := algo.AcquireAll(out[1], matrix.ReadWrite, "sum", errs)
	if !ok {
		return
	}
	defer algo.Release(sb, "sum", errs)
	qb, ok := algo.AcquireAll(out[2], matrix.ReadWrite, "sumSquares", errs)
	if !ok {
		return
	}
	defer algo.Release(qb, "sumSquares", errs)

	p := data.Cols()
	if !algo.ForEachBlock(data, algo.DefaultBlockRows, "data", errs, func(_, n int, rows []float64) {
		moments.UpdateSquares[T](rows, n, p, lanes, sb.Data, qb.Data)
		nb.Data[0] += float64(n)
	}) {
		return
	}
	factor, err := matrix.HouseholderR(data)
	if err != nil {
		errs.AddCause(algo.ErrorBlockAccess, "data", err)
		return
	}
	copyInto(r, factor, "auxiliaryData", errs)
}

// svdFinalize turns [nObservations, sum, sumSquares, R_1..R_m] into eigenpairs.
func svdFinalize(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	nb, ok := algo.AcquireAll(in[0], matrix.ReadOnly, "nObservations", errs)
	if !ok {
		return
	}
	defer algo.Release(nb, "nObservations", errs)
	sb, ok := algo.AcquireAll(in[1], matrix.ReadOnly, "sum", errs)
	if !ok {
		return
	}
	defer algo.Release(sb, "sum", errs)
	qb, ok := algo.AcquireAll(in[2], matrix.ReadOnly, "sumSquares", errs)
	if !ok {
		return
	}
	defer algo.Release(qb, "sumSquares", errs)

	n := nb.Data[0]
	p := in[1].Cols()
	if n < 2 {
		errs.AddArgument(algo.ErrorInsufficientObservations, "nObservations")
		return
	}
	for j := 0; j < p; j++ {
		if v := qb.Data[j] - sb.Data[j]*sb.Data[j]/n; !(v > 0) || math.IsInf(v, 0) {
			errs.AddArgument(algo.ErrorZeroVariance, "data")
			return
		}
	}

	// Gram = Σ RᵢᵀRᵢ over every block factor.
	gram := scratch(p, p, "gram", errs)
	if gram == nil {
		return
	}
	gb, ok := algo.AcquireAll(gram, matrix.ReadWrite, "gram", errs)
	if !ok {
		return
	}
	for _, rm := range in[3:] {
		rb, ok := algo.AcquireAll(rm, matrix.ReadOnly, "auxiliaryData", errs)
		if !ok {
			algo.Release(gb, "gram", errs)
			return
		}
		for k := 0; k < p; k++ {
			row := rb.Data[k*p : (k+1)*p]
			for j := 0; j < p; j++ {
				if row[j] == 0 {
					continue
				}
				for l := j; l < p; l++ {
					gb.Data[j*p+l] += row[j] * row[l]
				}
			}
		}
		algo.Release(rb, "auxiliaryData", errs)
	}
	for j := 0; j < p; j++ {
		for l := j + 1; l < p; l++ {
			gb.Data[l*p+j] = gb.Data[j*p+l]
		}
	}
	algo.Release(gb, "gram", errs)
	if !errs.IsEmpty() {
		return
	}

	corr := scratch(p, p, "correlation", errs)
	mean := scratch(1, p, "mean", errs)
	if !errs.IsEmpty() {
		return
	}
	cb, ok := algo.AcquireAll(corr, matrix.WriteOnly, "correlation", errs)
	if !ok {
		return
	}
	mb, ok := algo.AcquireAll(mean, matrix.WriteOnly, "mean", errs)
	if !ok {
		algo.Release(cb, "correlation", errs)
		return
	}
	degenerate := !moments.Correlation(n, sb.Data, gram.Values(), p, cb.Data, mb.Data)
	algo.Release(cb, "correlation", errs)
	algo.Release(mb, "mean", errs)
	if degenerate {
		errs.AddArgument(algo.ErrorZeroVariance, "data")
		return
	}
	if !errs.IsEmpty() {
		return
	}
	decompose(corr, par, out, errs)
}

// svdBatchKernel: in [data], out [eigenvalues, eigenvectors].
type svdBatchKernel[T algo.Float] struct{ lanes int }

func (k *svdBatchKernel[T]) Compute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	p := in[0].Cols()
	nObs := scratch(1, 1, "nObservations", errs)
	sum := scratch(1, p, "sum", errs)
	squares := scratch(1, p, "sumSquares", errs)
	r := scratch(p, p, "auxiliaryData", errs)
	if !errs.IsEmpty() {
		return
	}
	stats := []matrix.Matrix{nObs, sum, squares}
	svdAccumulate[T](in[0], k.lanes, stats, r, errs)
	if !errs.IsEmpty() {
		return
	}
	svdFinalize(append(stats, r), out, par, errs)
}

// svdOnlineKernel: Compute in [data], out [nObservations, sum, sumSquares, R_new];
// FinalizeCompute in [nObservations, sum, sumSquares, R_1..R_m], out [eigenvalues, eigenvectors].
type svdOnlineKernel[T algo.Float] struct{ lanes int }

func (k *svdOnlineKernel[T]) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	svdAccumulate[T](in[0], k.lanes, out[:3], out[3], errs)
}

func (k *svdOnlineKernel[T]) FinalizeCompute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	svdFinalize(in, out, par, errs)
}

// svdMasterKernel: Compute in [nObservations_i, sum_i, sumSquares_i]×k,
// out [nObservations, sum, sumSquares]. R factors are carried over by the
// container; FinalizeCompute as svdOnlineKernel.
type svdMasterKernel struct{}

func (svdMasterKernel) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	names := [3]string{"nObservations", "sum", "sumSquares"}
	for j := 0; j < 3; j++ {
		dst, ok := algo.AcquireAll(out[j], matrix.ReadWrite, names[j], errs)
		if !ok {
			return
		}
		for i := j; i < len(in); i += 3 {
			src, ok := algo.AcquireAll(in[i], matrix.ReadOnly, names[j], errs)
			if !ok {
				algo.Release(dst, names[j], errs)
				return
			}
			for k, v := range src.Data {
				dst.Data[k] += v
			}
			algo.Release(src, names[j], errs)
		}
		algo.Release(dst, names[j], errs)
	}
}

func (svdMasterKernel) FinalizeCompute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	svdFinalize(in, out, par, errs)
}
