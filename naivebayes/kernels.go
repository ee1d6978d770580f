// SPDX-License-Identifier: MIT

package naivebayes

import (
	"math"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/internal/vec"
	"github.com/katalvlaran/algokit/matrix"
)

var trainingRegistry = algo.NewRegistry("naivebayes.training")

// TrainingRegistry exposes the training dispatch table for inspection.
func TrainingRegistry() *algo.Registry { return trainingRegistry }

func init() {
	for _, t := range algo.Tiers() {
		registerTraining[float64](t, algo.Float64)
		registerTraining[float32](t, algo.Float32)
		registerPrediction[float64](t, algo.Float64)
		registerPrediction[float32](t, algo.Float32)
	}
}

func registerTraining[T algo.Float](t algo.CPUTier, fp algo.FPType) {
	lanes := algo.Lanes[T](t)
	trainingRegistry.Register(algo.KernelKey{Mode: algo.ModeBatch, FPType: fp, Method: DefaultDense}, t,
		func() algo.Kernel { return &batchKernel[T]{lanes: lanes} })
	trainingRegistry.Register(algo.KernelKey{Mode: algo.ModeOnline, FPType: fp, Method: DefaultDense}, t,
		func() algo.Kernel { return &onlineKernel[T]{lanes: lanes} })
	trainingRegistry.Register(algo.KernelKey{Mode: algo.ModeStep1Local, FPType: fp, Method: DefaultDense}, t,
		func() algo.Kernel { return &onlineKernel[T]{lanes: lanes} })
	trainingRegistry.Register(algo.KernelKey{Mode: algo.ModeStep2Master, FPType: fp, Method: DefaultDense}, t,
		func() algo.Kernel { return masterKernel{} })
}

// count folds data (n×p) and labels (n×1) into classSize (C×1) and
// classGroupSum (C×p). Labels outside [0, C) append ErrorIncorrectClassLabels.
func count[T algo.Float](data, labels matrix.Matrix, lanes int, classSize, groupSum matrix.Matrix, errs *algo.ErrorCollection) {
	lb, ok := algo.AcquireAll(labels, matrix.ReadOnly, "labels", errs)
	if !ok {
		return
	}
	defer algo.Release(lb, "labels", errs)
	sb, ok := algo.AcquireAll(classSize, matrix.ReadWrite, "classSize", errs)
	if !ok {
		return
	}
	defer algo.Release(sb, "classSize", errs)
	gb, ok := algo.AcquireAll(groupSum, matrix.ReadWrite, "classGroupSum", errs)
	if !ok {
		return
	}
	defer algo.Release(gb, "classGroupSum", errs)

	c, p := classSize.Rows(), data.Cols()
	acc := make([]T, c*p)
	row := make([]T, p)
	bad := false
	algo.ForEachBlock(data, algo.DefaultBlockRows, "data", errs, func(row0, n int, rows []float64) {
		for i := 0; i < n && !bad; i++ {
			label := lb.Data[row0+i]
			cls := int(label)
			if label != math.Trunc(label) || cls < 0 || cls >= c {
				bad = true
				return
			}
			vec.Load(row, rows[i*p:(i+1)*p])
			vec.Add(acc[cls*p:(cls+1)*p], row, lanes)
			sb.Data[cls]++
		}
	})
	if bad {
		errs.AddArgument(algo.ErrorIncorrectClassLabels, "labels")
		return
	}
	for j, v := range acc {
		gb.Data[j] += float64(v)
	}
}

// estimate writes log priors (C×1) and smoothed log feature probabilities
// (C×p) from the class counts.
func estimate(par algo.Parameter, classSize, groupSum, logPrior, logTheta matrix.Matrix, errs *algo.ErrorCollection) {
	prm, ok := algo.Narrow[*Parameter](par, "parameter", errs)
	if !ok {
		return
	}
	gb, ok := algo.AcquireAll(groupSum, matrix.ReadOnly, "classGroupSum", errs)
	if !ok {
		return
	}
	defer algo.Release(gb, "classGroupSum", errs)
	pb, ok := algo.AcquireAll(logPrior, matrix.WriteOnly, "logPrior", errs)
	if !ok {
		return
	}
	defer algo.Release(pb, "logPrior", errs)
	tb, ok := algo.AcquireAll(logTheta, matrix.WriteOnly, "logTheta", errs)
	if !ok {
		return
	}
	defer algo.Release(tb, "logTheta", errs)

	c, p := groupSum.Rows(), groupSum.Cols()
	for k := 0; k < c; k++ {
		if prm.PriorClassEstimates != nil {
			v, _ := prm.PriorClassEstimates.At(0, k)
			pb.Data[k] = math.Log(v)
		} else {
			pb.Data[k] = -math.Log(float64(c))
		}
		sums := gb.Data[k*p : (k+1)*p]
		total := prm.Alpha * float64(p)
		for _, v := range sums {
			total += v
		}
		logTotal := math.Log(total)
		for j, v := range sums {
			tb.Data[k*p+j] = math.Log(v+prm.Alpha) - logTotal
		}
	}
}

// batchKernel: in [data, labels], out [logPrior, logTheta].
type batchKernel[T algo.Float] struct{ lanes int }

func (k *batchKernel[T]) Compute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	c := out[0].Rows()
	size, _ := matrix.NewDense(c, 1)
	sum, _ := matrix.NewDense(c, in[0].Cols())
	count[T](in[0], in[1], k.lanes, size, sum, errs)
	if !errs.IsEmpty() {
		return
	}
	estimate(par, size, sum, out[0], out[1], errs)
}

// onlineKernel: Compute in [data, labels], out [classSize, classGroupSum];
// FinalizeCompute in [classSize, classGroupSum], out [logPrior, logTheta].
type onlineKernel[T algo.Float] struct{ lanes int }

func (k *onlineKernel[T]) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	count[T](in[0], in[1], k.lanes, out[0], out[1], errs)
}

func (k *onlineKernel[T]) FinalizeCompute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	estimate(par, in[0], in[1], out[0], out[1], errs)
}

// masterKernel: Compute in [classSize_i, classGroupSum_i]×k, out
// [classSize, classGroupSum]; FinalizeCompute as onlineKernel. Counts add
// exactly, so one kernel serves both floating-point types.
type masterKernel struct{}

func (masterKernel) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	names := [2]string{"classSize", "classGroupSum"}
	for j := range out {
		dst, ok := algo.AcquireAll(out[j], matrix.ReadWrite, names[j], errs)
		if !ok {
			return
		}
		for i := j; i < len(in); i += len(out) {
			src, ok := algo.AcquireAll(in[i], matrix.ReadOnly, names[j], errs)
			if !ok {
				break
			}
			for k, v := range src.Data {
				dst.Data[k] += v
			}
			algo.Release(src, names[j], errs)
		}
		algo.Release(dst, names[j], errs)
	}
}

func (masterKernel) FinalizeCompute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	estimate(par, in[0], in[1], out[0], out[1], errs)
}

// predictKernel: in [data, logPrior, logTheta], out [labels]. Ties go to
// the lowest class.
type predictKernel[T algo.Float] struct{ lanes int }

func (k *predictKernel[T]) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	pb, ok := algo.AcquireAll(in[1], matrix.ReadOnly, "logPrior", errs)
	if !ok {
		return
	}
	defer algo.Release(pb, "logPrior", errs)
	tb, ok := algo.AcquireAll(in[2], matrix.ReadOnly, "logTheta", errs)
	if !ok {
		return
	}
	defer algo.Release(tb, "logTheta", errs)
	lb, ok := algo.AcquireAll(out[0], matrix.WriteOnly, "predictedLabels", errs)
	if !ok {
		return
	}
	defer algo.Release(lb, "predictedLabels", errs)

	c, p := in[2].Rows(), in[2].Cols()
	theta := make([]T, c*p)
	vec.Load(theta, tb.Data)
	row := make([]T, p)
	algo.ForEachBlock(in[0], algo.DefaultBlockRows, "data", errs, func(row0, n int, rows []float64) {
		for i := 0; i < n; i++ {
			vec.Load(row, rows[i*p:(i+1)*p])
			best, bestScore := 0, math.Inf(-1)
			for cls := 0; cls < c; cls++ {
				score := pb.Data[cls] + float64(vec.Dot(row, theta[cls*p:(cls+1)*p], k.lanes))
				if score > bestScore {
					best, bestScore = cls, score
				}
			}
			lb.Data[row0+i] = float64(best)
		}
	})
}
