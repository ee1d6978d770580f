// SPDX-License-Identifier: MIT

// Package covariance computes the sample covariance or the Pearson
// correlation matrix of a data table, together with the column means.
//
// Modes:
//   - Batch: one table in, Result out.
//   - Online / NewLocal: blocks folded into raw moments (nObservations,
//     crossProduct, sum); FinalizeCompute derives the matrix.
//   - Master: merges the partial results of every node with one kernel call.
//
// Complexity: O(n*p²) accumulation, O(p²) finalization.
package covariance
