// SPDX-License-Identifier: MIT

// Package matrix is the numeric container layer of algokit.
//
// It provides:
//   - Matrix: a minimal interface (Rows/Cols/At/Set/Clone) any storage can implement.
//   - Dense: a row-major float64 buffer with a configurable NaN/Inf policy.
//   - Block access (AcquireRows / AcquireColumn + Release) with ReadOnly,
//     WriteOnly and ReadWrite modes; *Dense row blocks alias storage.
//   - Validators and sentinel errors (errors.Is contract, "matrix: ..." prefix).
//   - Linear algebra used by kernels: Mul, Transpose, Jacobi Eigen / EigenSym,
//     HouseholderR.
//   - Column statistics: ColumnMeans, CenterColumns, Covariance, Correlation.
//
// Allocation status is explicit: IsAllocated reports false for nil interfaces,
// typed nil *Dense values and implementations of Allocator that report no storage.
// Algorithms rely on it to prove that nothing was allocated after a failed check.
package matrix
