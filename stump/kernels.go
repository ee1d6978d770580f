// SPDX-License-Identifier: MIT

package stump

import (
	"cmp"
	"slices"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

var (
	trainingRegistry   = algo.NewRegistry("stump.training")
	predictionRegistry = algo.NewRegistry("stump.prediction")
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
	key := algo.KernelKey{Mode: algo.ModeBatch, FPType: fp, Method: DefaultDense}
	trainingRegistry.Register(key, t, func() algo.Kernel { return trainKernel[T]{} })
	predictionRegistry.Register(key, t, func() algo.Kernel { return predictKernel[T]{} })
}

func sideLabel[T algo.Float](pos, neg T) float64 {
	if pos >= neg {
		return 1
	}

	return -1
}

// trainKernel: in [data, labels, weights|nil], out [split].
//
// For every feature the observations are sorted by value and every boundary
// between distinct values is tried; each side predicts its weighted majority
// label. The split with the smallest weighted error wins, earlier features
// and lower thresholds first on ties.
//
// Complexity: O(p*n*log n).
type trainKernel[T algo.Float] struct{}

func (trainKernel[T]) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	db, ok := algo.AcquireAll(in[0], matrix.ReadOnly, "data", errs)
	if !ok {
		return
	}
	defer algo.Release(db, "data", errs)
	lb, ok := algo.AcquireAll(in[1], matrix.ReadOnly, "labels", errs)
	if !ok {
		return
	}
	defer algo.Release(lb, "labels", errs)

	n, p := in[0].Rows(), in[0].Cols()
	w := make([]T, n)
	if len(in) > 2 && in[2] != nil {
		wb, ok := algo.AcquireAll(in[2], matrix.ReadOnly, "weights", errs)
		if !ok {
			return
		}
		for i, v := range wb.Data {
			if v < 0 {
				errs.AddArgument(algo.ErrorIncorrectParameter, "weights")
			}
			w[i] = T(v)
		}
		algo.Release(wb, "weights", errs)
	} else {
		for i := range w {
			w[i] = 1 / T(n)
		}
	}
	var pos, neg T
	for i, y := range lb.Data {
		switch y {
		case 1:
			pos += w[i]
		case -1:
			neg += w[i]
		default:
			errs.AddArgument(algo.ErrorIncorrectClassLabels, "labels")
			return
		}
	}
	if !errs.IsEmpty() {
		return
	}

	best := [splitCols]float64{}
	bestErr := T(-1)
	idx := make([]int, n)
	xs := make([]T, n)
	for j := 0; j < p; j++ {
		for i := range idx {
			idx[i] = i
		}
		slices.SortStableFunc(idx, func(a, b int) int {
			return cmp.Compare(T(db.Data[a*p+j]), T(db.Data[b*p+j]))
		})
		for k, i := range idx {
			xs[k] = T(db.Data[i*p+j])
		}
		var posL, negL T
		for k := 0; k < n; k++ {
			if k > 0 {
				if i := idx[k-1]; lb.Data[i] > 0 {
					posL += w[i]
				} else {
					negL += w[i]
				}
				if !(xs[k-1] < xs[k]) {
					continue
				}
			}
			posR, negR := pos-posL, neg-negL
			e := min(posL, negL) + min(posR, negR)
			if bestErr >= 0 && !(e < bestErr) {
				continue
			}
			thr := float64(xs[0])
			if k > 0 {
				thr = float64(xs[k-1]+xs[k]) / 2
			}
			bestErr = e
			best = [splitCols]float64{float64(j), thr, sideLabel(posL, negL), sideLabel(posR, negR)}
		}
	}

	sb, ok := algo.AcquireAll(out[0], matrix.WriteOnly, "split", errs)
	if !ok {
		return
	}
	copy(sb.Data, best[:])
	algo.Release(sb, "split", errs)
}

// predictKernel: in [data, split], out [labels].
type predictKernel[T algo.Float] struct{}

func (predictKernel[T]) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	sb, ok := algo.AcquireAll(in[1], matrix.ReadOnly, "split", errs)
	if !ok {
		return
	}
	split := append([]float64(nil), sb.Data...)
	algo.Release(sb, "split", errs)
	lb, ok := algo.AcquireAll(out[0], matrix.WriteOnly, "predictedLabels", errs)
	if !ok {
		return
	}
	defer algo.Release(lb, "predictedLabels", errs)

	j, thr := int(split[colFeature]), T(split[colThreshold])
	p := in[0].Cols()
	algo.ForEachBlock(in[0], algo.DefaultBlockRows, "data", errs, func(row0, n int, rows []float64) {
		for i := 0; i < n; i++ {
			if T(rows[i*p+j]) < thr {
				lb.Data[row0+i] = split[colLeft]
			} else {
				lb.Data[row0+i] = split[colRight]
			}
		}
	})
}
