// SPDX-License-Identifier: MIT

package adaboost

import (
	"math"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/internal/vec"
	"github.com/katalvlaran/algokit/matrix"
)

var (
	trainingRegistry   = algo.NewRegistry("adaboost.training")
	predictionRegistry = algo.NewRegistry("adaboost.prediction")
)

// TrainingRegistry exposes the training dispatch table for inspection.
func TrainingRegistry() *algo.Registry { return trainingRegistry }

// PredictionRegistry exposes the prediction dispatch table for inspection.
func PredictionRegistry() *algo.Registry { return predictionRegistry }

func init() {
	for _, t := range algo.Tiers() {
		register[float64](t, algo.Float64)
		register[float32](t, algo.Float32)
	}
}

func register[T algo.Float](t algo.CPUTier, fp algo.FPType) {
	lanes := algo.Lanes[T](t)
	key := algo.KernelKey{Mode: algo.ModeBatch, FPType: fp, Method: DefaultDense}
	trainingRegistry.Register(key, t, func() algo.Kernel { return &reweightKernel[T]{lanes: lanes} })
	predictionRegistry.Register(key, t, func() algo.Kernel { return &voteKernel[T]{lanes: lanes} })
}

// reweightKernel scores one weak learner and reweights the observations.
// in [predicted, labels], out [weights (read-write), stats 1×2: error, alpha].
// Weights change only when the weighted error is below one half.
type reweightKernel[T algo.Float] struct{ lanes int }

func (k *reweightKernel[T]) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	hb, ok := algo.AcquireAll(in[0], matrix.ReadOnly, "predicted", errs)
	if !ok {
		return
	}
	defer algo.Release(hb, "predicted", errs)
	yb, ok := algo.AcquireAll(in[1], matrix.ReadOnly, "labels", errs)
	if !ok {
		return
	}
	defer algo.Release(yb, "labels", errs)
	wb, ok := algo.AcquireAll(out[0], matrix.ReadWrite, "weights", errs)
	if !ok {
		return
	}
	defer algo.Release(wb, "weights", errs)

	n := len(wb.Data)
	w := make([]T, n)
	vec.Load(w, wb.Data)
	var e T
	for i := range w {
		if y := yb.Data[i]; y != 1 && y != -1 {
			errs.AddArgument(algo.ErrorIncorrectClassLabels, "labels")
			return
		}
		if hb.Data[i] != yb.Data[i] {
			e += w[i]
		}
	}
	errRate := float64(e)
	alpha := 0.0
	if errRate < 0.5 {
		clamped := math.Max(errRate, minError)
		alpha = 0.5 * math.Log((1-clamped)/clamped)
		for i := range w {
			w[i] *= T(math.Exp(-alpha * yb.Data[i] * hb.Data[i]))
		}
		if total := vec.Sum(w, k.lanes); total > 0 {
			vec.Scale(w, 1/total, k.lanes)
		}
		vec.Store(wb.Data, w)
	}

	sb, ok := algo.AcquireAll(out[1], matrix.WriteOnly, "stats", errs)
	if !ok {
		return
	}
	sb.Data[0], sb.Data[1] = errRate, alpha
	algo.Release(sb, "stats", errs)
}

// voteKernel: in [predicted_1..predicted_M, alpha (1×M)], out [labels].
// Label is the sign of Σ alpha_t·h_t; a zero score votes +1.
type voteKernel[T algo.Float] struct{ lanes int }

func (k *voteKernel[T]) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	m := len(in) - 1
	ab, ok := algo.AcquireAll(in[m], matrix.ReadOnly, "alpha", errs)
	if !ok {
		return
	}
	alpha := append([]float64(nil), ab.Data...)
	algo.Release(ab, "alpha", errs)
	lb, ok := algo.AcquireAll(out[0], matrix.WriteOnly, "predictedLabels", errs)
	if !ok {
		return
	}
	defer algo.Release(lb, "predictedLabels", errs)

	score := make([]T, len(lb.Data))
	h := make([]T, len(lb.Data))
	for t := 0; t < m; t++ {
		hb, ok := algo.AcquireAll(in[t], matrix.ReadOnly, "predicted", errs)
		if !ok {
			return
		}
		vec.Load(h, hb.Data)
		algo.Release(hb, "predicted", errs)
		vec.Axpy(score, h, T(alpha[t]), k.lanes)
	}
	for i, s := range score {
		if s >= 0 {
			lb.Data[i] = 1
		} else {
			lb.Data[i] = -1
		}
	}
}
