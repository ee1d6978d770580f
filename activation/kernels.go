// SPDX-License-Identifier: MIT

package activation

import (
	"math"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/internal/vec"
	"github.com/katalvlaran/algokit/matrix"
)

var (
	reluForwardRegistry  = algo.NewRegistry("activation.relu.forward")
	reluBackwardRegistry = algo.NewRegistry("activation.relu.backward")
	softmaxRegistry      = algo.NewRegistry("activation.softmax")
)

func init() {
	for _, t := range algo.Tiers() {
		register[float64](t, algo.Float64)
		register[float32](t, algo.Float32)
	}
}

func register[T algo.Float](t algo.CPUTier, fp algo.FPType) {
	lanes := algo.Lanes[T](t)
	key := algo.KernelKey{Mode: algo.ModeBatch, FPType: fp, Method: DefaultDense}
	reluForwardRegistry.Register(key, t, func() algo.Kernel { return reluKernel[T]{} })
	reluBackwardRegistry.Register(key, t, func() algo.Kernel { return reluBackwardKernel[T]{} })
	softmaxRegistry.Register(key, t, func() algo.Kernel { return &softmaxKernel[T]{lanes: lanes} })
}

// reluKernel: in [data], out [value]. value = max(0, x).
type reluKernel[T algo.Float] struct{}

func (reluKernel[T]) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	vb, ok := algo.AcquireAll(out[0], matrix.WriteOnly, "value", errs)
	if !ok {
		return
	}
	defer algo.Release(vb, "value", errs)

	p := in[0].Cols()
	algo.ForEachBlock(in[0], algo.DefaultBlockRows, "data", errs, func(row0 int, _ int, data []float64) {
		dst := vb.Data[row0*p : row0*p+len(data)]
		for i, x := range data {
			if v := T(x); v > 0 {
				dst[i] = float64(v)
			} else {
				dst[i] = 0
			}
		}
	})
}

// reluBackwardKernel: in [inputGradient, data], out [gradient].
// gradient = inputGradient where x > 0, zero elsewhere.
type reluBackwardKernel[T algo.Float] struct{}

func (reluBackwardKernel[T]) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	gb, ok := algo.AcquireAll(in[0], matrix.ReadOnly, "inputGradient", errs)
	if !ok {
		return
	}
	defer algo.Release(gb, "inputGradient", errs)
	ob, ok := algo.AcquireAll(out[0], matrix.WriteOnly, "gradient", errs)
	if !ok {
		return
	}
	defer algo.Release(ob, "gradient", errs)

	p := in[1].Cols()
	algo.ForEachBlock(in[1], algo.DefaultBlockRows, "data", errs, func(row0 int, _ int, data []float64) {
		off := row0 * p
		for i, x := range data {
			if T(x) > 0 {
				ob.Data[off+i] = float64(T(gb.Data[off+i]))
			} else {
				ob.Data[off+i] = 0
			}
		}
	})
}

// softmaxKernel: in [data], out [value]. Each row is shifted by its maximum
// before exponentiation so large inputs do not overflow.
type softmaxKernel[T algo.Float] struct{ lanes int }

func (k *softmaxKernel[T]) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	vb, ok := algo.AcquireAll(out[0], matrix.WriteOnly, "value", errs)
	if !ok {
		return
	}
	defer algo.Release(vb, "value", errs)

	p := in[0].Cols()
	row := make([]T, p)
	algo.ForEachBlock(in[0], algo.DefaultBlockRows, "data", errs, func(row0, n int, data []float64) {
		for i := 0; i < n && errs.IsEmpty(); i++ {
			vec.Load(row, data[i*p:(i+1)*p])
			hi := row[0]
			for _, v := range row[1:] {
				hi = max(hi, v)
			}
			if math.IsInf(float64(hi), 0) || math.IsNaN(float64(hi)) {
				errs.AddArgument(algo.ErrorNonFiniteValue, "data")
				continue
			}
			for j, v := range row {
				row[j] = T(math.Exp(float64(v - hi)))
			}
			vec.Scale(row, 1/vec.Sum(row, k.lanes), k.lanes)
			vec.Store(vb.Data[(row0+i)*p:(row0+i+1)*p], row)
		}
	})
}
