// SPDX-License-Identifier: MIT

package qualitymetric

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/katalvlaran/algokit/algo"
)

// Metric is one quality-metric algorithm driven by a Set.
type Metric interface {
	// Bind replaces the metric's input. It reports false when in is not the
	// input type the metric computes on.
	Bind(in algo.Input) bool
	Compute() error
	Errors() *algo.ErrorCollection
	// Output returns the result of the last successful Compute, or nil.
	Output() algo.Result
}

// InputAlgorithms maps metric keys to metrics and remembers the order in
// which keys were first added.
type InputAlgorithms struct {
	mu      sync.RWMutex
	keys    []string
	metrics map[string]Metric
}

// NewInputAlgorithms returns an empty map.
func NewInputAlgorithms() *InputAlgorithms {
	return &InputAlgorithms{metrics: make(map[string]Metric)}
}

// Add binds m to key. Replacing an existing key keeps its position.
func (a *InputAlgorithms) Add(key string, m Metric) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !lo.Contains(a.keys, key) {
		a.keys = append(a.keys, key)
	}
	a.metrics[key] = m
}

// Get returns the metric bound to key.
func (a *InputAlgorithms) Get(key string) (Metric, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	m, ok := a.metrics[key]

	return m, ok
}

// Remove unbinds key.
func (a *InputAlgorithms) Remove(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = lo.Without(a.keys, key)
	delete(a.metrics, key)
}

// Keys returns the keys in insertion order.
func (a *InputAlgorithms) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return slices.Clone(a.keys)
}

// Len returns the number of bound metrics.
func (a *InputAlgorithms) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return len(a.keys)
}

// InputDataCollection holds the input each metric key computes on.
type InputDataCollection struct {
	mu     sync.RWMutex
	inputs map[string]algo.Input
}

// NewInputDataCollection returns an empty collection.
func NewInputDataCollection() *InputDataCollection {
	return &InputDataCollection{inputs: make(map[string]algo.Input)}
}

// Add stores in under key, replacing any previous input.
func (c *InputDataCollection) Add(key string, in algo.Input) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputs[key] = in
}

// Get returns the input stored under key.
func (c *InputDataCollection) Get(key string) (algo.Input, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	in, ok := c.inputs[key]

	return in, ok
}

// ResultCollection holds the result of every metric that computed successfully.
type ResultCollection struct {
	mu      sync.RWMutex
	results map[string]algo.Result
}

func newResultCollection() *ResultCollection {
	return &ResultCollection{results: make(map[string]algo.Result)}
}

// Get returns the result stored under key.
func (c *ResultCollection) Get(key string) (algo.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.results[key]

	return r, ok
}

// Keys returns the keys with a result, sorted.
func (c *ResultCollection) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := lo.Keys(c.results)
	slices.Sort(keys)

	return keys
}

// Len returns the number of stored results.
func (c *ResultCollection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.results)
}

func (c *ResultCollection) add(key string, r algo.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[key] = r
}

// Set computes a group of quality metrics in one call.
type Set struct {
	InputAlgorithms *InputAlgorithms
	InputData       *InputDataCollection

	results *ResultCollection
	errs    *algo.ErrorCollection
	log     *logrus.Entry
}

// NewSet returns an empty set logging to env's logger.
func NewSet(env *algo.Environment) *Set {
	return &Set{
		InputAlgorithms: NewInputAlgorithms(),
		InputData:       NewInputDataCollection(),
		results:         newResultCollection(),
		errs:            algo.NewErrorCollection(),
		log:             env.Logger().WithField("algorithm", "qualitymetric.set"),
	}
}

// Compute runs every metric in key insertion order. The first metric whose
// error collection is non-empty stops the set: its records are appended to
// the set's collection and the remaining metrics are not computed. A set
// that failed once keeps returning the same error.
func (s *Set) Compute() error {
	if !s.errs.IsEmpty() {
		return s.errs.Err()
	}
	for _, key := range s.InputAlgorithms.Keys() {
		m, ok := s.InputAlgorithms.Get(key)
		if !ok || m == nil {
			s.errs.AddArgument(algo.ErrorMissingKey, key)
			return s.abort(key)
		}
		in, ok := s.InputData.Get(key)
		if !ok {
			s.errs.AddArgument(algo.ErrorMissingKey, key)
			return s.abort(key)
		}
		if !m.Bind(in) {
			s.errs.AddArgument(algo.ErrorIncorrectTypeOfArgument, key)
			return s.abort(key)
		}
		err := m.Compute()
		if merrs := m.Errors(); merrs != nil && !merrs.IsEmpty() {
			s.errs.Append(merrs)
		} else if err != nil {
			s.errs.AddCause(algo.ErrorAlgorithmFaulted, key, err)
		}
		if !s.errs.IsEmpty() {
			return s.abort(key)
		}
		res := m.Output()
		if res == nil {
			s.errs.AddArgument(algo.ErrorNullResult, key)
			return s.abort(key)
		}
		s.results.add(key, res)
		s.log.WithField("metric", key).Debug("qualitymetric: metric computed")
	}

	return nil
}

func (s *Set) abort(key string) error {
	err := s.errs.Err()
	s.log.WithField("metric", key).WithError(err).Debug("qualitymetric: set aborted")

	return fmt.Errorf("qualitymetric: metric %q: %w", key, err)
}

// ResultCollection returns the results computed so far.
func (s *Set) ResultCollection() *ResultCollection { return s.results }

// Errors returns the set's error collection.
func (s *Set) Errors() *algo.ErrorCollection { return s.errs }
