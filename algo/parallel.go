// SPDX-License-Identifier: MIT

package algo

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// RunPartitions calls fn for every partition index in [0, n) on at most
// env.Threads() goroutines. Each call must build its own algorithm (and so its
// own container and kernel); nothing in the chain is shared between calls.
// The first error cancels ctx for the remaining partitions and is returned.
func RunPartitions(ctx context.Context, env *Environment, n int, fn func(ctx context.Context, part int) error) error {
	if n <= 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(env.Threads())
	for i := 0; i < n; i++ {
		part := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := fn(gctx, part); err != nil {
				return fmt.Errorf("partition %d: %w", part, err)
			}
			return nil
		})
	}

	return g.Wait()
}
