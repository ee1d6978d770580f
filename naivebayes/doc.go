// SPDX-License-Identifier: MIT

// Package naivebayes implements the multinomial Naive Bayes classifier for
// count data (word counts, event frequencies).
//
// Training computes, per class c and feature j,
//
//	logTheta[c][j] = log((N[c][j] + alpha) / (N[c] + p*alpha))
//
// where N[c][j] is the total of feature j over class c and N[c] its row sum.
// Class priors are equal unless Parameter.PriorClassEstimates is set.
//
// Training runs in every mode: TrainingBatch, TrainingOnline, step1Local
// (NewTrainingLocal) and step2Master (TrainingMaster). The partial result is
// a pair of count tables, so contributions merge by addition.
// PredictionBatch picks the class with the largest log posterior; ties go
// to the lowest class. NewQualityMetricSet evaluates predictions with a
// multi-class confusion matrix.
package naivebayes
