// SPDX-License-Identifier: MIT

package kmeans

import (
	"math/rand"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// Initialisation methods.
const (
	// DeterministicDense takes the first k observations.
	DeterministicDense = algo.DefaultDense
	// RandomDense takes k distinct observations chosen with a seeded generator.
	RandomDense algo.Method = 1
)

var initRegistry = algo.NewRegistry("kmeans.init")

// InitRegistry exposes the initialisation dispatch table for inspection.
func InitRegistry() *algo.Registry { return initRegistry }

func init() {
	for _, t := range algo.Tiers() {
		for _, fp := range []algo.FPType{algo.Float64, algo.Float32} {
			initRegistry.Register(algo.KernelKey{Mode: algo.ModeBatch, FPType: fp, Method: DeterministicDense}, t,
				func() algo.Kernel { return initKernel{random: false} })
			initRegistry.Register(algo.KernelKey{Mode: algo.ModeBatch, FPType: fp, Method: RandomDense}, t,
				func() algo.Kernel { return initKernel{random: true} })
		}
	}
}

// InitParameter configures centroid initialisation.
type InitParameter struct {
	NClusters int
	// Seed drives RandomDense; equal seeds pick equal rows.
	Seed int64
}

// Check implements algo.Parameter.
func (p *InitParameter) Check(errs *algo.ErrorCollection) {
	if p.NClusters <= 0 {
		errs.AddArgument(algo.ErrorIncorrectParameter, "nClusters")
	}
}

// InitInput holds the observations to pick centroids from.
type InitInput struct {
	Data matrix.Matrix
}

// Check implements algo.Input.
func (in *InitInput) Check(par algo.Parameter, method algo.Method, errs *algo.ErrorCollection) {
	if method != DeterministicDense && method != RandomDense {
		errs.AddArgument(algo.ErrorUnsupportedMethod, "method")
		return
	}
	if !algo.CheckData(in.Data, "data", 0, errs) {
		return
	}
	if p, ok := par.(*InitParameter); ok && in.Data.Rows() < p.NClusters {
		errs.AddArgument(algo.ErrorIncorrectNumberOfObservations, "data")
	}
}

// InitResult holds the starting centroids.
type InitResult struct {
	Centroids *matrix.Dense // k×p
}

// Check implements algo.Result.
func (r *InitResult) Check(in algo.Input, par algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	data, ok := algo.Narrow[*InitInput](in, "input", errs)
	if !ok {
		return
	}
	prm, ok := algo.Narrow[*InitParameter](par, "parameter", errs)
	if !ok {
		return
	}
	algo.CheckOutputTable(r.Centroids, "centroids", prm.NClusters, data.Data.Cols(), errs)
}

// SerializationTag implements algo.Serializable.
func (r *InitResult) SerializationTag() algo.Tag { return TagInitResult }

// Serialize implements algo.Serializable.
func (r *InitResult) Serialize(a algo.Archive) error {
	return a.Dense("centroids", &r.Centroids)
}

// InitBatch computes starting centroids for the Lloyd iteration.
type InitBatch struct {
	*algo.Batch
	input  InitInput
	par    InitParameter
	result *InitResult
}

// NewInitBatch builds a centroid initialisation algorithm for k clusters.
// Select the method with algo.WithMethod(RandomDense).
func NewInitBatch(env *algo.Environment, k int, opts ...algo.Option) (*InitBatch, error) {
	b := &InitBatch{par: InitParameter{NClusters: k}}
	core, err := algo.NewBatch(env, initRegistry, algo.NewSettings(opts...), initHooks{b},
		func(base *algo.ContainerBase) algo.BatchContainer { return &initContainer{base} })
	if err != nil {
		return nil, err
	}
	b.Batch = core

	return b, nil
}

// Input returns the algorithm input.
func (b *InitBatch) Input() *InitInput { return &b.input }

// Parameter returns the algorithm parameter.
func (b *InitBatch) Parameter() *InitParameter { return &b.par }

// Result returns the centroids of the last successful Compute, or nil.
func (b *InitBatch) Result() *InitResult {
	if !b.Succeeded() {
		return nil
	}

	return b.result
}

type initHooks struct{ b *InitBatch }

func (h initHooks) Input() algo.Input         { return &h.b.input }
func (h initHooks) Parameter() algo.Parameter { return &h.b.par }

func (h initHooks) AllocateResult(env *algo.Environment) error {
	c, err := env.Allocator().Dense(h.b.par.NClusters, h.b.input.Data.Cols())
	if err != nil {
		return err
	}
	h.b.result = &InitResult{Centroids: c}

	return nil
}

func (h initHooks) Result() algo.Result {
	if h.b.result == nil {
		return nil
	}

	return h.b.result
}

type initContainer struct{ *algo.ContainerBase }

func (c *initContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*InitInput](c.Input(), "input", errs)
	if !ok {
		return
	}
	res, ok := algo.Narrow[*InitResult](c.Result(), "result", errs)
	if !ok {
		return
	}
	c.Run([]matrix.Matrix{in.Data}, []matrix.Matrix{res.Centroids})
}

// initKernel copies k observations into the centroid table.
// in [data], out [centroids]. Picking rows is type-independent.
type initKernel struct{ random bool }

func (k initKernel) Compute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	prm, ok := algo.Narrow[*InitParameter](par, "parameter", errs)
	if !ok {
		return
	}
	data := in[0]
	n, p := data.Rows(), data.Cols()
	rows := make([]int, prm.NClusters)
	if k.random {
		// Partial Fisher-Yates over the row indices.
		rng := rand.New(rand.NewSource(prm.Seed))
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		for i := range rows {
			j := i + rng.Intn(n-i)
			idx[i], idx[j] = idx[j], idx[i]
			rows[i] = idx[i]
		}
	} else {
		for i := range rows {
			rows[i] = i
		}
	}

	dst, ok := algo.AcquireAll(out[0], matrix.WriteOnly, "centroids", errs)
	if !ok {
		return
	}
	for i, r := range rows {
		b, err := matrix.AcquireRows(data, r, 1, matrix.ReadOnly)
		if err != nil {
			errs.AddCause(algo.ErrorBlockAccess, "data", err)
			break
		}
		copy(dst.Data[i*p:(i+1)*p], b.Data)
		algo.Release(b, "data", errs)
	}
	algo.Release(dst, "centroids", errs)
}
