// SPDX-License-Identifier: MIT

// Package activation implements neural-network activation layers as batch
// algorithms: ReLU forward and backward, and row-wise softmax.
//
// Every layer keeps the shape of its input. Softmax treats each row as one
// sample and normalises it independently.
package activation
