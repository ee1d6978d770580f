// SPDX-License-Identifier: MIT

// Package pca computes principal components: the eigenvalues (descending,
// 1×p) and eigenvectors (one per row, p×p) of the correlation matrix of the
// input features.
//
// Methods:
//   - CorrelationDense (default): raw moments → correlation → Jacobi.
//     The batch algorithm also accepts a precomputed correlation matrix.
//   - SVDDense: per-block Householder R factors are kept in the partial
//     result's Auxiliary collection and combined into the Gram matrix at
//     finalization.
//
// Modes: Batch, Online, NewLocal (step1Local) and Master (step2Master), plus
// ComputeDistributed which drives step1Local on a worker group and reduces
// on a master.
//
// Eigenvectors are sign-normalised (largest-magnitude component positive) so
// that batch, online and distributed runs over the same data agree.
package pca
