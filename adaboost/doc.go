// SPDX-License-Identifier: MIT

// Package adaboost implements discrete AdaBoost for two-class problems with
// labels +1 and -1.
//
// Each boosting round trains a weak learner on the current observation
// weights, applies it, and scores it by its weighted error e:
//
//	alpha = 0.5 * log((1-e)/e)
//	w[i] *= exp(-alpha * y[i] * h[i]), then normalised
//
// Training stops after Parameter.MaxIterations rounds, when a learner's
// error is at or below Parameter.AccuracyThreshold, or when no learner beats
// chance (e >= 0.5). Prediction returns the sign of the alpha-weighted vote.
//
// The weak learners are pluggable through package weaklearner; decision
// stumps are the default.
package adaboost
