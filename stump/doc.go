// SPDX-License-Identifier: MIT

// Package stump implements the decision stump: a one-level decision tree
// over a single feature. It is the default weak learner of package adaboost
// and satisfies the weaklearner contracts.
//
// Labels are +1 and -1. Training minimises the weighted misclassification
// error over every feature and every boundary between distinct values.
package stump
