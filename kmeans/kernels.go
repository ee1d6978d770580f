// SPDX-License-Identifier: MIT

package kmeans

import (
	"math"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/internal/vec"
	"github.com/katalvlaran/algokit/matrix"
)

var registry = algo.NewRegistry("kmeans")

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
	registry.Register(algo.KernelKey{Mode: algo.ModeBatch, FPType: fp, Method: LloydDense}, t,
		func() algo.Kernel { return &batchKernel[T]{lanes: lanes} })
	registry.Register(algo.KernelKey{Mode: algo.ModeStep1Local, FPType: fp, Method: LloydDense}, t,
		func() algo.Kernel { return &localKernel[T]{lanes: lanes} })
	registry.Register(algo.KernelKey{Mode: algo.ModeStep2Master, FPType: fp, Method: LloydDense}, t,
		func() algo.Kernel { return &masterKernel{} })
}

// candidates keeps the k observations farthest from their centroid, sorted
// by decreasing distance. Empty slots hold distance -1.
type candidates struct {
	k, p int
	dist []float64
	rows []float64
}

func newCandidates(k, p int) *candidates {
	c := &candidates{k: k, p: p, dist: make([]float64, k), rows: make([]float64, k*p)}
	for i := range c.dist {
		c.dist[i] = -1
	}

	return c
}

// offer inserts row if it is farther than the current last candidate.
// Equal distances keep the earlier offer first.
func (c *candidates) offer(d float64, row []float64) {
	if c.k == 0 || d <= c.dist[c.k-1] {
		return
	}
	i := c.k - 1
	for i > 0 && c.dist[i-1] < d {
		c.dist[i] = c.dist[i-1]
		copy(c.rows[i*c.p:(i+1)*c.p], c.rows[(i-1)*c.p:i*c.p])
		i--
	}
	c.dist[i] = d
	copy(c.rows[i*c.p:(i+1)*c.p], row)
}

// pass is one assignment sweep over the data.
type pass struct {
	counts []float64 // k
	sums   []float64 // k*p
	goal   float64
	cand   *candidates
}

// lloydPass assigns every observation to its nearest centroid (lowest index
// on ties) and accumulates cluster counts, coordinate sums, the goal
// function and the farthest-point candidates. labels, when non-nil, receives
// the assignment of every row.
func lloydPass[T algo.Float](data matrix.Matrix, cent []float64, k, lanes int, labels []float64, errs *algo.ErrorCollection) (*pass, bool) {
	p := data.Cols()
	ct := make([]T, k*p)
	vec.Load(ct, cent)
	row := make([]T, p)
	ps := &pass{counts: make([]float64, k), sums: make([]float64, k*p), cand: newCandidates(k, p)}

	ok := algo.ForEachBlock(data, algo.DefaultBlockRows, "data", errs, func(row0, n int, blk []float64) {
		for i := 0; i < n; i++ {
			src := blk[i*p : (i+1)*p]
			vec.Load(row, src)
			var best int
			var bestD T
			for j := 0; j < k; j++ {
				if d := vec.DistSq(row, ct[j*p:(j+1)*p], lanes); j == 0 || d < bestD {
					best, bestD = j, d
				}
			}
			ps.counts[best]++
			dst := ps.sums[best*p : (best+1)*p]
			for c, v := range src {
				dst[c] += v
			}
			ps.goal += float64(bestD)
			ps.cand.offer(float64(bestD), src)
			if labels != nil {
				labels[row0+i] = float64(best)
			}
		}
	})

	return ps, ok
}

// centroids turns cluster sums into means. Empty clusters are reseeded from
// cand in order; with no candidate left they keep prev (nil: zero) and
// false is returned.
func centroids(counts, sums []float64, cand *candidates, prev []float64, k, p int) ([]float64, bool) {
	out := make([]float64, k*p)
	next, complete := 0, true
	for j := 0; j < k; j++ {
		dst := out[j*p : (j+1)*p]
		if counts[j] > 0 {
			inv := 1 / counts[j]
			for c := 0; c < p; c++ {
				dst[c] = sums[j*p+c] * inv
			}
			continue
		}
		if next < cand.k && cand.dist[next] >= 0 {
			copy(dst, cand.rows[next*p:(next+1)*p])
			next++
			continue
		}
		complete = false
		if prev != nil {
			copy(dst, prev[j*p:(j+1)*p])
		}
	}

	return out, complete
}

func writeAll(m matrix.Matrix, values []float64, name string, errs *algo.ErrorCollection) {
	b, ok := algo.AcquireAll(m, matrix.WriteOnly, name, errs)
	if !ok {
		return
	}
	copy(b.Data, values)
	algo.Release(b, name, errs)
}

func readAll(m matrix.Matrix, name string, errs *algo.ErrorCollection) ([]float64, bool) {
	b, ok := algo.AcquireAll(m, matrix.ReadOnly, name, errs)
	if !ok {
		return nil, false
	}
	out := make([]float64, len(b.Data))
	copy(out, b.Data)
	algo.Release(b, name, errs)

	return out, errs.IsEmpty()
}

// batchKernel: in [data, inputCentroids],
// out [centroids, assignments (may be nil), goalFunction, nIterations].
type batchKernel[T algo.Float] struct{ lanes int }

func (kr *batchKernel[T]) Compute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	prm, ok := algo.Narrow[*Parameter](par, "parameter", errs)
	if !ok {
		return
	}
	data := in[0]
	k, p := prm.NClusters, data.Cols()
	cent, ok := readAll(in[1], "inputCentroids", errs)
	if !ok {
		return
	}

	// Stage 1 (Iterate): assign, update, stop on a fixed point or when the
	// goal function settles.
	iters := 0
	prevGoal := math.Inf(1)
	for iters < prm.MaxIterations {
		ps, ok := lloydPass[T](data, cent, k, kr.lanes, nil, errs)
		if !ok {
			return
		}
		next, _ := centroids(ps.counts, ps.sums, ps.cand, cent, k, p)
		iters++
		moved := false
		for i := range next {
			if next[i] != cent[i] {
				moved = true
				break
			}
		}
		cent = next
		if !moved || math.Abs(prevGoal-ps.goal) < prm.AccuracyThreshold {
			break
		}
		prevGoal = ps.goal
	}

	// Stage 2 (Final assignment) against the converged centroids.
	var labels []float64
	if prm.AssignFlag && out[1] != nil {
		labels = make([]float64, data.Rows())
	}
	final, ok := lloydPass[T](data, cent, k, kr.lanes, labels, errs)
	if !ok {
		return
	}

	// Stage 3 (Write)
	writeAll(out[0], cent, "centroids", errs)
	if labels != nil {
		writeAll(out[1], labels, "assignments", errs)
	}
	writeAll(out[2], []float64{final.goal}, "goalFunction", errs)
	writeAll(out[3], []float64{float64(iters)}, "nIterations", errs)
}

// localKernel is one step1Local pass. It overwrites the partial result with
// the statistics of the current block.
//
// Compute: in [data, inputCentroids],
// out [nObservations, partialSums, partialGoalFunction, candidateDistances,
// candidateCentroids, partialAssignments (may be nil)].
// FinalizeCompute: in [partialAssignments], out [assignments].
type localKernel[T algo.Float] struct{ lanes int }

func (kr *localKernel[T]) Compute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	prm, ok := algo.Narrow[*Parameter](par, "parameter", errs)
	if !ok {
		return
	}
	cent, ok := readAll(in[1], "inputCentroids", errs)
	if !ok {
		return
	}
	var labels []float64
	if out[5] != nil {
		labels = make([]float64, in[0].Rows())
	}
	ps, ok := lloydPass[T](in[0], cent, prm.NClusters, kr.lanes, labels, errs)
	if !ok {
		return
	}
	writeAll(out[0], ps.counts, "nObservations", errs)
	writeAll(out[1], ps.sums, "partialSums", errs)
	writeAll(out[2], []float64{ps.goal}, "partialGoalFunction", errs)
	writeAll(out[3], ps.cand.dist, "candidateDistances", errs)
	writeAll(out[4], ps.cand.rows, "candidateCentroids", errs)
	if labels != nil {
		writeAll(out[5], labels, "partialAssignments", errs)
	}
}

func (kr *localKernel[T]) FinalizeCompute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	labels, ok := readAll(in[0], "partialAssignments", errs)
	if !ok {
		return
	}
	writeAll(out[0], labels, "assignments", errs)
}

// masterKernel merges step1Local partial results.
//
// Compute: in [nObservations_i, partialSums_i, partialGoalFunction_i,
// candidateDistances_i, candidateCentroids_i]×m, out the same five tables,
// merged into what the master already holds.
// FinalizeCompute: in the five tables, out [centroids, goalFunction].
// Merging is exact addition, so one kernel serves both floating-point types.
type masterKernel struct{}

func (masterKernel) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	if len(in)%reductionStride != 0 {
		errs.AddArgument(algo.ErrorIncorrectNumberOfInputNumericTables, "partialResults")
		return
	}
	k, p := out[1].Rows(), out[1].Cols()
	counts, ok := readAll(out[0], "nObservations", errs)
	if !ok {
		return
	}
	sums, _ := readAll(out[1], "partialSums", errs)
	goal, _ := readAll(out[2], "partialGoalFunction", errs)
	dist, _ := readAll(out[3], "candidateDistances", errs)
	rows, ok := readAll(out[4], "candidateCentroids", errs)
	if !ok {
		return
	}
	cand := newCandidates(k, p)
	offerAll := func(d, r []float64) {
		for i, v := range d {
			if v >= 0 {
				cand.offer(v, r[i*p:(i+1)*p])
			}
		}
	}
	offerAll(dist, rows)

	for base := 0; base < len(in); base += reductionStride {
		c, ok := readAll(in[base], "nObservations", errs)
		if !ok {
			return
		}
		s, _ := readAll(in[base+1], "partialSums", errs)
		g, _ := readAll(in[base+2], "partialGoalFunction", errs)
		d, _ := readAll(in[base+3], "candidateDistances", errs)
		r, ok := readAll(in[base+4], "candidateCentroids", errs)
		if !ok {
			return
		}
		for i := range counts {
			counts[i] += c[i]
		}
		for i := range sums {
			sums[i] += s[i]
		}
		goal[0] += g[0]
		offerAll(d, r)
	}

	writeAll(out[0], counts, "nObservations", errs)
	writeAll(out[1], sums, "partialSums", errs)
	writeAll(out[2], goal, "partialGoalFunction", errs)
	writeAll(out[3], cand.dist, "candidateDistances", errs)
	writeAll(out[4], cand.rows, "candidateCentroids", errs)
}

func (masterKernel) FinalizeCompute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	k, p := in[1].Rows(), in[1].Cols()
	counts, ok := readAll(in[0], "nObservations", errs)
	if !ok {
		return
	}
	sums, _ := readAll(in[1], "partialSums", errs)
	goal, _ := readAll(in[2], "partialGoalFunction", errs)
	dist, _ := readAll(in[3], "candidateDistances", errs)
	rows, ok := readAll(in[4], "candidateCentroids", errs)
	if !ok {
		return
	}
	cand := &candidates{k: k, p: p, dist: dist, rows: rows}
	cent, complete := centroids(counts, sums, cand, nil, k, p)
	if !complete {
		errs.AddArgument(algo.ErrorInsufficientObservations, "centroids")
		return
	}
	writeAll(out[0], cent, "centroids", errs)
	writeAll(out[1], goal, "goalFunction", errs)
}
