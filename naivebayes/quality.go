// SPDX-License-Identifier: MIT

package naivebayes

import (
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/qualitymetric"
)

// ConfusionMatrix is the key of the multi-class confusion matrix in the
// quality-metric set.
const ConfusionMatrix = "confusionMatrix"

// NewQualityMetricSet returns a set holding the multi-class confusion matrix
// for nClasses classes. Fill the returned input with predicted and ground
// truth labels before calling Compute.
func NewQualityMetricSet(env *algo.Environment, nClasses int) (*qualitymetric.Set, *qualitymetric.Input, error) {
	cm, err := qualitymetric.NewMultiClass(env, nClasses)
	if err != nil {
		return nil, nil, err
	}
	in := &qualitymetric.Input{}
	set := qualitymetric.NewSet(env)
	set.InputAlgorithms.Add(ConfusionMatrix, cm)
	set.InputData.Add(ConfusionMatrix, in)

	return set, in, nil
}
