// SPDX-License-Identifier: MIT

// Package kmeans clusters observations with the Lloyd iteration.
//
// Algorithms:
//   - InitBatch: starting centroids, DeterministicDense (first k rows) or
//     RandomDense (k distinct rows from a seeded generator).
//   - Batch: iterate to a fixed point, a settled goal function or
//     MaxIterations; Result holds centroids, assignments, goal function and
//     the iteration count.
//   - Local (step1Local): one sweep over a node's block; FinalizeCompute
//     emits the node's assignments.
//   - Master (step2Master): merges node statistics with one kernel call and
//     derives the next centroids.
//   - DistributedIteration: drives Local and Master rounds over blocks.
//
// Empty clusters are reseeded from the observations farthest from their
// centroid.
//
// Complexity: O(n*k*p) per iteration.
package kmeans
