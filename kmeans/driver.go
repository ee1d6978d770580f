// SPDX-License-Identifier: MIT

package kmeans

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// DistributedIteration runs the Lloyd iteration over data split into
// blocks. Every round runs one step1Local algorithm per block on the
// environment's partition runner, ships the partial results through the
// serialization archive and reduces them on a fresh master. The stopping
// rule matches Batch: a fixed point, a settled goal function or
// par.MaxIterations rounds.
//
// The returned Result has the batch layout; Assignments stacks the labels
// of every block in block order when par.AssignFlag is set.
func DistributedIteration(ctx context.Context, env *algo.Environment, blocks []matrix.Matrix, initial matrix.Matrix, par Parameter, opts ...algo.Option) (*Result, error) {
	if len(blocks) == 0 {
		return nil, fmt.Errorf("kmeans: %w", algo.ErrorIncorrectNumberOfInputNumericTables)
	}
	cent, err := matrix.NewDense(initial.Rows(), initial.Cols())
	if err != nil {
		return nil, fmt.Errorf("kmeans: initial centroids: %w", err)
	}
	if err = cent.CopyFrom(initial); err != nil {
		return nil, fmt.Errorf("kmeans: initial centroids: %w", err)
	}

	// Stage 1 (Build): one step1Local algorithm per block for the whole run.
	locals := make([]*Local, len(blocks))
	for i := range blocks {
		l, err := NewLocal(env, par.NClusters, opts...)
		if err != nil {
			return nil, err
		}
		defer l.Close()
		*l.Parameter() = par
		l.Input().Data = blocks[i]
		locals[i] = l
	}

	// Stage 2 (Iterate)
	iters := 0
	prevGoal := math.Inf(1)
	for iters < par.MaxIterations {
		payloads, err := localRound(ctx, env, locals, cent)
		if err != nil {
			return nil, err
		}
		next, goal, err := masterRound(env, payloads, par, opts...)
		if err != nil {
			return nil, err
		}
		iters++
		moved := !matrix.AllClose(next, cent, 0, 0)
		cent = next
		env.Logger().WithFields(logrus.Fields{"algorithm": "kmeans", "iteration": iters, "goal": goal}).
			Debug("kmeans: distributed round")
		if !moved || math.Abs(prevGoal-goal) < par.AccuracyThreshold {
			break
		}
		prevGoal = goal
	}

	// Stage 3 (Final assignment) against the converged centroids.
	if _, err = localRound(ctx, env, locals, cent); err != nil {
		return nil, err
	}
	res := &Result{Centroids: cent}
	var goal float64
	var labels []float64
	for i, l := range locals {
		g, _ := l.PartialResult().PartialGoalFunction.At(0, 0)
		goal += g
		if !par.AssignFlag {
			continue
		}
		if err = l.FinalizeCompute(); err != nil {
			return nil, fmt.Errorf("kmeans: block %d assignments: %w", i, err)
		}
		labels = append(labels, l.Result().Assignments.Values()...)
	}
	if par.AssignFlag {
		if res.Assignments, err = matrix.NewDenseFrom(len(labels), 1, labels); err != nil {
			return nil, err
		}
	}
	res.GoalFunction, _ = matrix.NewDenseFrom(1, 1, []float64{goal})
	res.NIterations, _ = matrix.NewDenseFrom(1, 1, []float64{float64(iters)})

	return res, nil
}

// localRound runs every step1Local algorithm against cent and returns the
// serialized partial results in block order.
func localRound(ctx context.Context, env *algo.Environment, locals []*Local, cent *matrix.Dense) ([][]byte, error) {
	payloads := make([][]byte, len(locals))
	err := algo.RunPartitions(ctx, env, len(locals), func(_ context.Context, i int) error {
		l := locals[i]
		l.Input().InputCentroids = cent
		if err := l.Compute(); err != nil {
			return err
		}
		var err error
		payloads[i], err = algo.Marshal(l.PartialResult())

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("kmeans: step1Local: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	return payloads, nil
}

// masterRound reduces one generation of partial results.
func masterRound(env *algo.Environment, payloads [][]byte, par Parameter, opts ...algo.Option) (*matrix.Dense, float64, error) {
	master, err := NewMaster(env, par.NClusters, opts...)
	if err != nil {
		return nil, 0, err
	}
	defer master.Close()
	*master.Parameter() = par
	for i, data := range payloads {
		pr := &PartialResult{}
		if err = algo.UnmarshalInto(data, pr); err != nil {
			return nil, 0, fmt.Errorf("kmeans: partial result %d: %w", i, err)
		}
		master.Input().Add(pr)
	}
	if err = master.Compute(); err != nil {
		return nil, 0, fmt.Errorf("kmeans: step2Master: %w", err)
	}
	if err = master.FinalizeCompute(); err != nil {
		return nil, 0, fmt.Errorf("kmeans: finalize: %w", err)
	}
	goal, _ := master.Result().GoalFunction.At(0, 0)

	return master.Result().Centroids, goal, nil
}
