// SPDX-License-Identifier: MIT

package qualitymetric

import (
	"math"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

var (
	multiClassRegistry = algo.NewRegistry("qualitymetric.multiclass")
	binaryRegistry     = algo.NewRegistry("qualitymetric.binary")
)

// MultiClassRegistry exposes the multi-class dispatch table for inspection.
func MultiClassRegistry() *algo.Registry { return multiClassRegistry }

// BinaryRegistry exposes the binary dispatch table for inspection.
func BinaryRegistry() *algo.Registry { return binaryRegistry }

func init() {
	// Counting labels is exact in either type, so one kernel serves both.
	for _, t := range algo.Tiers() {
		for _, fp := range []algo.FPType{algo.Float64, algo.Float32} {
			key := algo.KernelKey{Mode: algo.ModeBatch, FPType: fp, Method: DefaultDense}
			multiClassRegistry.Register(key, t, func() algo.Kernel { return multiClassKernel{} })
			binaryRegistry.Register(key, t, func() algo.Kernel { return binaryKernel{} })
		}
	}
}

// readLabels copies an n×1 label table.
func readLabels(m matrix.Matrix, name string, errs *algo.ErrorCollection) ([]float64, bool) {
	b, ok := algo.AcquireAll(m, matrix.ReadOnly, name, errs)
	if !ok {
		return nil, false
	}
	out := append([]float64(nil), b.Data...)
	algo.Release(b, name, errs)

	return out, errs.IsEmpty()
}

// classIndex maps a label to its class, or -1 when it is not an integer in [0, c).
func classIndex(v float64, c int) int {
	if v != math.Trunc(v) || v < 0 || v >= float64(c) {
		return -1
	}

	return int(v)
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}

	return num / den
}

func fscore(beta, precision, recall float64) float64 {
	b2 := beta * beta

	return ratio((b2+1)*precision*recall, b2*precision+recall)
}

func writeRow(m matrix.Matrix, name string, vals []float64, errs *algo.ErrorCollection) {
	b, ok := algo.AcquireAll(m, matrix.WriteOnly, name, errs)
	if !ok {
		return
	}
	copy(b.Data, vals)
	algo.Release(b, name, errs)
}

// multiClassKernel: in [predicted, groundTruth], out [confusionMatrix, metrics].
type multiClassKernel struct{}

func (multiClassKernel) Compute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	prm, ok := algo.Narrow[*MultiClassParameter](par, "parameter", errs)
	if !ok {
		return
	}
	pred, ok := readLabels(in[0], "predictedLabels", errs)
	if !ok {
		return
	}
	truth, ok := readLabels(in[1], "groundTruthLabels", errs)
	if !ok {
		return
	}
	c := prm.NClasses
	cm := make([]float64, c*c)
	for i := range pred {
		p, t := classIndex(pred[i], c), classIndex(truth[i], c)
		if p < 0 || t < 0 {
			errs.AddArgument(algo.ErrorIncorrectClassLabels, "labels")
			return
		}
		cm[t*c+p]++
	}

	n := float64(len(pred))
	var accuracy, errRate, sumTP, sumTPFP, sumTPFN, macroP, macroR float64
	for i := 0; i < c; i++ {
		tp := cm[i*c+i]
		var predicted, actual float64
		for k := 0; k < c; k++ {
			predicted += cm[k*c+i]
			actual += cm[i*c+k]
		}
		fp, fn := predicted-tp, actual-tp
		tn := n - tp - fp - fn
		accuracy += (tp + tn) / n
		errRate += (fp + fn) / n
		sumTP += tp
		sumTPFP += predicted
		sumTPFN += actual
		macroP += ratio(tp, predicted)
		macroR += ratio(tp, actual)
	}
	cf := float64(c)
	metrics := make([]float64, multiClassMetrics)
	metrics[AverageAccuracy] = accuracy / cf
	metrics[ErrorRate] = errRate / cf
	metrics[MicroPrecision] = ratio(sumTP, sumTPFP)
	metrics[MicroRecall] = ratio(sumTP, sumTPFN)
	metrics[MicroFscore] = fscore(prm.Beta, metrics[MicroPrecision], metrics[MicroRecall])
	metrics[MacroPrecision] = macroP / cf
	metrics[MacroRecall] = macroR / cf
	metrics[MacroFscore] = fscore(prm.Beta, metrics[MacroPrecision], metrics[MacroRecall])

	writeRow(out[0], "confusionMatrix", cm, errs)
	writeRow(out[1], "metrics", metrics, errs)
}

// binaryKernel: in [predicted, groundTruth], out [confusionMatrix, metrics].
type binaryKernel struct{}

func (binaryKernel) Compute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	prm, ok := algo.Narrow[*BinaryParameter](par, "parameter", errs)
	if !ok {
		return
	}
	pred, ok := readLabels(in[0], "predictedLabels", errs)
	if !ok {
		return
	}
	truth, ok := readLabels(in[1], "groundTruthLabels", errs)
	if !ok {
		return
	}
	var tp, fn, fp, tn float64
	for i := range pred {
		p, t := pred[i], truth[i]
		if (p != PositiveLabel && p != NegativeLabel) || (t != PositiveLabel && t != NegativeLabel) {
			errs.AddArgument(algo.ErrorIncorrectClassLabels, "labels")
			return
		}
		switch {
		case t == PositiveLabel && p == PositiveLabel:
			tp++
		case t == PositiveLabel:
			fn++
		case p == PositiveLabel:
			fp++
		default:
			tn++
		}
	}

	metrics := make([]float64, binaryMetrics)
	metrics[Accuracy] = ratio(tp+tn, tp+fn+fp+tn)
	metrics[Precision] = ratio(tp, tp+fp)
	metrics[Recall] = ratio(tp, tp+fn)
	metrics[Fscore] = fscore(prm.Beta, metrics[Precision], metrics[Recall])
	metrics[Specificity] = ratio(tn, fp+tn)
	metrics[AUC] = (metrics[Recall] + metrics[Specificity]) / 2

	writeRow(out[0], "confusionMatrix", []float64{tp, fn, fp, tn}, errs)
	writeRow(out[1], "metrics", metrics, errs)
}
