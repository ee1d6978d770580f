// SPDX-License-Identifier: MIT

package algo_test

import (
	"errors"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// Two small algorithms drive the orchestrator tests: a batch "scale"
// (value = factor*x) and a streaming "column sum" with a master reduction.

const (
	tagScaleResult algo.Tag = 0xFF01
	tagSumPartial  algo.Tag = 0xFF02
	tagSumResult   algo.Tag = 0xFF03
)

func init() {
	algo.RegisterType(tagScaleResult, func() algo.Serializable { return &scaleResult{} })
	algo.RegisterType(tagSumPartial, func() algo.Serializable { return &sumPartial{} })
	algo.RegisterType(tagSumResult, func() algo.Serializable { return &sumResult{} })
}

// kernelStats counts what a test registry hands out.
type kernelStats struct {
	created  algo.AtomicInt
	released algo.AtomicInt
	computed algo.AtomicInt
}

// ---- scale (batch) ----

type scaleParam struct{ Factor float64 }

func (p *scaleParam) Check(errs *algo.ErrorCollection) {
	if p.Factor == 0 {
		errs.AddArgument(algo.ErrorIncorrectParameter, "factor")
	}
}

type scaleInput struct{ Data matrix.Matrix }

func (in *scaleInput) Check(_ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	algo.CheckData(in.Data, "data", 0, errs)
}

type scaleResult struct{ Value *matrix.Dense }

func (r *scaleResult) Check(in algo.Input, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	sin, ok := algo.Narrow[*scaleInput](in, "input", errs)
	if !ok {
		return
	}
	algo.CheckOutputTable(r.Value, "value", sin.Data.Rows(), sin.Data.Cols(), errs)
}

func (r *scaleResult) SerializationTag() algo.Tag { return tagScaleResult }

func (r *scaleResult) Serialize(a algo.Archive) error { return a.Dense("value", &r.Value) }

type scaleKernel struct {
	stats *kernelStats
}

func (k *scaleKernel) Compute(in, out []matrix.Matrix, par algo.Parameter, errs *algo.ErrorCollection) {
	k.stats.computed.Inc()
	f := par.(*scaleParam).Factor
	vb, ok := algo.AcquireAll(out[0], matrix.WriteOnly, "value", errs)
	if !ok {
		return
	}
	defer algo.Release(vb, "value", errs)
	algo.ForEachBlock(in[0], 2, "data", errs, func(row0, _ int, data []float64) {
		off := row0 * in[0].Cols()
		for i, x := range data {
			vb.Data[off+i] = f * x
		}
	})
}

func (k *scaleKernel) Release() { k.stats.released.Inc() }

// newScaleRegistry registers the scale kernel at baseline and avx2.
func newScaleRegistry(stats *kernelStats) *algo.Registry {
	reg := algo.NewRegistry("test.scale")
	key := algo.KernelKey{Mode: algo.ModeBatch, FPType: algo.Float64, Method: algo.DefaultDense}
	reg.RegisterTiers(key, []algo.CPUTier{algo.TierBaseline, algo.TierAVX2}, func(algo.CPUTier) algo.KernelFactory {
		return func() algo.Kernel {
			stats.created.Inc()
			return &scaleKernel{stats: stats}
		}
	})

	return reg
}

type scaleAlg struct {
	*algo.Batch
	input    scaleInput
	par      scaleParam
	result   *scaleResult
	failNext bool
}

func newScaleAlg(env *algo.Environment, reg *algo.Registry, opts ...algo.Option) (*scaleAlg, error) {
	a := &scaleAlg{par: scaleParam{Factor: 1}}
	core, err := algo.NewBatch(env, reg, algo.NewSettings(opts...), scaleHooks{a},
		func(base *algo.ContainerBase) algo.BatchContainer { return &scaleContainer{base} })
	if err != nil {
		return nil, err
	}
	a.Batch = core

	return a, nil
}

var errInjected = errors.New("injected allocation failure")

type scaleHooks struct{ a *scaleAlg }

func (h scaleHooks) Input() algo.Input         { return &h.a.input }
func (h scaleHooks) Parameter() algo.Parameter { return &h.a.par }

func (h scaleHooks) AllocateResult(env *algo.Environment) error {
	if h.a.failNext {
		return errInjected
	}
	v, err := env.Allocator().Dense(h.a.input.Data.Rows(), h.a.input.Data.Cols())
	if err != nil {
		return err
	}
	h.a.result = &scaleResult{Value: v}

	return nil
}

func (h scaleHooks) Result() algo.Result {
	if h.a.result == nil {
		return nil
	}

	return h.a.result
}

type scaleContainer struct{ *algo.ContainerBase }

func (c *scaleContainer) Compute() {
	errs := c.Errors()
	in, ok := algo.Narrow[*scaleInput](c.Input(), "input", errs)
	if !ok {
		return
	}
	res, ok := algo.Narrow[*scaleResult](c.Result(), "result", errs)
	if !ok {
		return
	}
	c.Run([]matrix.Matrix{in.Data}, []matrix.Matrix{res.Value})
}

// ---- column sum (online, step2Master) ----

type sumParam struct{}

func (*sumParam) Check(*algo.ErrorCollection) {}

type sumPartial struct {
	N   *matrix.Dense // 1×1
	Sum *matrix.Dense // 1×p
}

func (p *sumPartial) Check(in algo.Input, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	if si, ok := in.(*scaleInput); ok {
		algo.CheckInputTable(p.Sum, "sum", 1, si.Data.Cols(), errs)
	}
}

func (p *sumPartial) CheckFinal(_ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	algo.CheckInputTable(p.N, "n", 1, 1, errs)
}

func (p *sumPartial) SerializationTag() algo.Tag { return tagSumPartial }

func (p *sumPartial) Serialize(a algo.Archive) error {
	if err := a.Dense("n", &p.N); err != nil {
		return err
	}

	return a.Dense("sum", &p.Sum)
}

type sumResult struct{ Mean *matrix.Dense }

func (r *sumResult) CheckFinal(pres algo.PartialResult, _ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	p := pres.(*sumPartial)
	algo.CheckOutputTable(r.Mean, "mean", 1, p.Sum.Cols(), errs)
}

func (r *sumResult) SerializationTag() algo.Tag { return tagSumResult }

func (r *sumResult) Serialize(a algo.Archive) error { return a.Dense("mean", &r.Mean) }

type masterInput struct {
	Partials *algo.Collection[*sumPartial]
}

func (in *masterInput) Check(_ algo.Parameter, _ algo.Method, errs *algo.ErrorCollection) {
	if in.Partials == nil || in.Partials.Len() == 0 {
		errs.AddArgument(algo.ErrorIncorrectNumberOfInputNumericTables, "partialResults")
	}
}

// sumKernel: online in [data], out [n, sum]; master in [n_1, sum_1, ...],
// out [n, sum]; finalize in [n, sum], out [mean].
type sumKernel struct {
	master bool
	stats  *kernelStats
}

func (k *sumKernel) Compute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	k.stats.computed.Inc()
	nb, ok := algo.AcquireAll(out[0], matrix.ReadWrite, "n", errs)
	if !ok {
		return
	}
	defer algo.Release(nb, "n", errs)
	sb, ok := algo.AcquireAll(out[1], matrix.ReadWrite, "sum", errs)
	if !ok {
		return
	}
	defer algo.Release(sb, "sum", errs)

	if k.master {
		for i := 0; i+1 < len(in); i += 2 {
			n, _ := in[i].At(0, 0)
			nb.Data[0] += n
			for j := range sb.Data {
				v, _ := in[i+1].At(0, j)
				sb.Data[j] += v
			}
		}
		return
	}
	p := in[0].Cols()
	algo.ForEachBlock(in[0], algo.DefaultBlockRows, "data", errs, func(_ int, n int, data []float64) {
		nb.Data[0] += float64(n)
		for i, x := range data {
			sb.Data[i%p] += x
		}
	})
}

func (k *sumKernel) FinalizeCompute(in, out []matrix.Matrix, _ algo.Parameter, errs *algo.ErrorCollection) {
	n, _ := in[0].At(0, 0)
	mb, ok := algo.AcquireAll(out[0], matrix.WriteOnly, "mean", errs)
	if !ok {
		return
	}
	defer algo.Release(mb, "mean", errs)
	if n == 0 {
		errs.AddArgument(algo.ErrorInsufficientObservations, "n")
		return
	}
	for j := range mb.Data {
		s, _ := in[1].At(0, j)
		mb.Data[j] = s / n
	}
}

func newSumRegistry(stats *kernelStats) *algo.Registry {
	reg := algo.NewRegistry("test.sum")
	for _, mode := range []algo.Mode{algo.ModeOnline, algo.ModeStep2Master} {
		master := mode == algo.ModeStep2Master
		reg.Register(algo.KernelKey{Mode: mode, FPType: algo.Float64, Method: algo.DefaultDense}, algo.TierBaseline,
			func() algo.Kernel {
				stats.created.Inc()
				return &sumKernel{master: master, stats: stats}
			})
	}

	return reg
}

type sumAlg struct {
	*algo.Streaming
	input   scaleInput
	master  masterInput
	par     sumParam
	partial *sumPartial
	result  *sumResult
	inits   int
}

func newSumOnline(env *algo.Environment, reg *algo.Registry) (*sumAlg, error) {
	return newSumAlg(env, reg, algo.ModeOnline)
}

func newSumMaster(env *algo.Environment, reg *algo.Registry) (*sumAlg, error) {
	a, err := newSumAlg(env, reg, algo.ModeStep2Master)
	if err != nil {
		return nil, err
	}
	a.master.Partials = algo.NewCollection[*sumPartial]()

	return a, nil
}

func newSumAlg(env *algo.Environment, reg *algo.Registry, mode algo.Mode) (*sumAlg, error) {
	a := &sumAlg{}
	init := algo.InitializerFunc(func(algo.Input, algo.PartialResult, algo.Parameter, *algo.ErrorCollection) {
		a.inits++
	})
	core, err := algo.NewStreaming(env, reg, mode, algo.NewSettings(), sumHooks{a}, init,
		func(base *algo.ContainerBase) algo.StreamingContainer { return &sumContainer{base} })
	if err != nil {
		return nil, err
	}
	a.Streaming = core

	return a, nil
}

type sumHooks struct{ a *sumAlg }

func (h sumHooks) Input() algo.Input {
	if h.a.Mode() == algo.ModeStep2Master {
		return &h.a.master
	}

	return &h.a.input
}

func (h sumHooks) Parameter() algo.Parameter { return &h.a.par }

func (h sumHooks) AllocatePartialResult(env *algo.Environment) error {
	p := 0
	if h.a.Mode() == algo.ModeStep2Master {
		first, _ := h.a.master.Partials.At(0)
		p = first.Sum.Cols()
	} else {
		p = h.a.input.Data.Cols()
	}
	n, err := env.Allocator().Dense(1, 1)
	if err != nil {
		return err
	}
	sum, err := env.Allocator().Dense(1, p)
	if err != nil {
		return err
	}
	h.a.partial = &sumPartial{N: n, Sum: sum}

	return nil
}

func (h sumHooks) PartialResult() algo.PartialResult {
	if h.a.partial == nil {
		return nil
	}

	return h.a.partial
}

func (h sumHooks) AllocateResult(env *algo.Environment) error {
	m, err := env.Allocator().Dense(1, h.a.partial.Sum.Cols())
	if err != nil {
		return err
	}
	h.a.result = &sumResult{Mean: m}

	return nil
}

func (h sumHooks) Result() algo.FinalResult {
	if h.a.result == nil {
		return nil
	}

	return h.a.result
}

type sumContainer struct{ *algo.ContainerBase }

func (c *sumContainer) Compute() {
	errs := c.Errors()
	pres, ok := algo.Narrow[*sumPartial](c.PartialResult(), "partialResult", errs)
	if !ok {
		return
	}
	out := []matrix.Matrix{pres.N, pres.Sum}
	switch in := c.Input().(type) {
	case *masterInput:
		algo.ReduceOnce(c.ContainerBase, in.Partials, func(p *sumPartial) []matrix.Matrix {
			return []matrix.Matrix{p.N, p.Sum}
		}, out)
	case *scaleInput:
		c.Run([]matrix.Matrix{in.Data}, out)
	default:
		errs.AddArgument(algo.ErrorIncorrectTypeOfArgument, "input")
	}
}

func (c *sumContainer) FinalizeCompute() {
	errs := c.Errors()
	pres, ok := algo.Narrow[*sumPartial](c.PartialResult(), "partialResult", errs)
	if !ok {
		return
	}
	res, ok := algo.Narrow[*sumResult](c.Result(), "result", errs)
	if !ok {
		return
	}
	c.RunFinalize([]matrix.Matrix{pres.N, pres.Sum}, []matrix.Matrix{res.Mean})
}
