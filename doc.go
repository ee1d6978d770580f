// SPDX-License-Identifier: MIT

// Package algokit is an in-memory toolkit of numerical algorithms that share
// one lifecycle: bind arguments, validate them, allocate results, dispatch
// to the best kernel for the running CPU, compute.
//
// 🚀 What is algokit?
//
//	A small framework plus the algorithms built on it:
//		• Framework (algo/): batch and streaming lifecycles, kernel registry,
//		  CPU tier detection, environment, error collections, serialization
//		• Containers (matrix/): row-major Dense tables with block access
//		• Statistics: covariance and correlation, PCA (correlation and SVD)
//		• Clustering: K-means (Lloyd) with first-k or seeded random initialisation
//		• Classification: multinomial naive Bayes, decision stumps, AdaBoost
//		• Quality metrics: confusion-matrix metrics grouped in metric sets
//		• Activations: ReLU forward and backward, row-wise softmax
//
// ✨ Processing modes
//
//   - Batch: one table in, one result out.
//   - Online: feed blocks one at a time, then FinalizeCompute.
//   - Distributed: step1Local on every node, ship the serialized partial
//     results, reduce them once on a step2Master.
//
// Layout:
//
//	algo/              lifecycle, registry, environment, errors, archive
//	matrix/            Dense, Block, validators, statistics, eigen solver
//	internal/vec/      lane-chunked float kernels shared by the algorithms
//	internal/moments/  raw-moment accumulation and finalization
//	covariance/ pca/ kmeans/ naivebayes/
//	weaklearner/ stump/ adaboost/ qualitymetric/ activation/
//
// Quick example:
//
//	env := algo.MustEnvironment()
//	b, _ := covariance.NewBatch(env)
//	defer b.Close()
//	b.Input().Data = data
//	if err := b.Compute(); err != nil {
//		return err
//	}
//	fmt.Println(b.Result().Matrix)
//
// Kernel selection can be pinned with ALGOKIT_CPU=baseline|ssse3|sse42|avx|
// avx2|avx512 or disabled with ALGOKIT_NO_SIMD=1.
//
//	go get github.com/katalvlaran/algokit
package algokit
