// SPDX-License-Identifier: MIT

// Package qualitymetric evaluates classifiers.
//
// A Set groups metric algorithms under string keys. Set.Compute runs them in
// the order the keys were added, reading each metric's input from
// InputData, and stops at the first metric that fails.
//
// Metrics:
//   - MultiClass: C×C confusion matrix plus average accuracy, error rate,
//     micro and macro precision, recall and F-score.
//   - Binary: [[TP, FN], [FP, TN]] for labels +1/-1 plus accuracy,
//     precision, recall, F-score, specificity and AUC.
package qualitymetric
