// SPDX-License-Identifier: MIT

package pca

import (
	"context"
	"fmt"

	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// ComputeDistributed runs one step1Local algorithm per block on the
// environment's partition runner, ships every partial result through the
// serialization archive and reduces them on a single master.
//
// Cancellation is checked between stages; a cancelled context aborts with
// ctx.Err() and no result.
func ComputeDistributed(ctx context.Context, env *algo.Environment, blocks []matrix.Matrix, par Parameter, opts ...algo.Option) (*Result, error) {
	payloads := make([][]byte, len(blocks))
	err := algo.RunPartitions(ctx, env, len(blocks), func(_ context.Context, i int) error {
		local, err := NewLocal(env, opts...)
		if err != nil {
			return err
		}
		defer local.Close()
		local.Input().Data = blocks[i]
		*local.Parameter() = par
		if err = local.Compute(); err != nil {
			return err
		}
		payloads[i], err = algo.Marshal(local.PartialResult())

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("pca: step1Local: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}

	master, err := NewMaster(env, opts...)
	if err != nil {
		return nil, err
	}
	defer master.Close()
	*master.Parameter() = par
	for i, data := range payloads {
		pr := &PartialResult{}
		if err = algo.UnmarshalInto(data, pr); err != nil {
			return nil, fmt.Errorf("pca: partial result %d: %w", i, err)
		}
		master.Input().Add(pr)
	}
	if err = master.Compute(); err != nil {
		return nil, fmt.Errorf("pca: step2Master: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	if err = master.FinalizeCompute(); err != nil {
		return nil, fmt.Errorf("pca: finalize: %w", err)
	}

	return master.Result(), nil
}
