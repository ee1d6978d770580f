// SPDX-License-Identifier: MIT

// Package weaklearner defines the contracts boosting algorithms use to train
// and apply their weak learners. Labels are +1 and -1; observation weights
// are non-negative and sum to one.
package weaklearner

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// Model is a trained weak learner. It serializes under its own tag so a
// boosted model can carry learners of any registered type.
type Model interface {
	algo.Serializable
	// NFeatures returns the number of features the model was trained on.
	NFeatures() int
}

// Training fits a weak learner to weighted observations.
type Training interface {
	// Train fits a model to data (n×p), labels (n×1) and weights (n×1).
	// weights may be nil for equal weights.
	Train(data, labels, weights matrix.Matrix) (Model, error)
	// CloneTraining returns an independent copy with the same settings.
	CloneTraining() (Training, error)
	Close()
}

// Prediction applies a weak learner.
type Prediction interface {
	// Predict labels every row of data (n×p) with m.
	Predict(data matrix.Matrix, m Model) (*matrix.Dense, error)
	// ClonePrediction returns an independent copy with the same settings.
	ClonePrediction() (Prediction, error)
	Close()
}
