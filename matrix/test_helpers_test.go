// SPDX-License-Identifier: MIT
// Package matrix_test contains test helpers
//
// Purpose:
//   • Provide small, deterministic fixtures and utilities for kernels.
//   • Keep all data finite and well-formed to avoid numeric-policy interference.

package matrix_test

import (
	"math"
	"testing"

	"github.com/katalvlaran/algokit/matrix"
)

// hide wraps any Matrix to hide its concrete type from type assertions, which
// forces the At/Set fallback paths in code under test.
type hide struct{ matrix.Matrix }

// MustDense allocates an r×c *Dense or fails the test.
func MustDense(t *testing.T, r, c int) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDense(r, c)
	if err != nil {
		t.Fatalf("NewDense(%d,%d): %v", r, c, err)
	}

	return m
}

// MustRows builds a *Dense from a row literal or fails the test.
func MustRows(t *testing.T, rows [][]float64) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseRows(rows)
	if err != nil {
		t.Fatalf("NewDenseRows: %v", err)
	}

	return m
}

// MustAt reads (i,j) or fails the test.
func MustAt(t *testing.T, m matrix.Matrix, i, j int) float64 {
	t.Helper()
	v, err := m.At(i, j)
	if err != nil {
		t.Fatalf("At(%d,%d): %v", i, j, err)
	}

	return v
}

// NewFilledDense returns an r×c matrix with m[i,j] = f(i,j).
func NewFilledDense(t *testing.T, r, c int, f func(i, j int) float64) *matrix.Dense {
	t.Helper()
	m := MustDense(t, r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if err := m.Set(i, j, f(i, j)); err != nil {
				t.Fatalf("Set(%d,%d): %v", i, j, err)
			}
		}
	}

	return m
}

// sample returns deterministic, well-conditioned observations.
func sample(t *testing.T, n, p int) *matrix.Dense {
	t.Helper()

	return NewFilledDense(t, n, p, func(i, j int) float64 {
		return math.Sin(float64(i*(j+1))+0.3*float64(j)) + 0.1*float64(j*j) + 0.01*float64(i)
	})
}
