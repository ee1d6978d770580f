// SPDX-License-Identifier: MIT

// Package vec holds lane-blocked vector primitives the algorithm kernels are
// written against. Every loop walks `lanes` elements at a time followed by a
// scalar tail, where lanes is the register width of the dispatch tier divided
// by the element size. The blocking changes only summation order.
package vec

// Float mirrors algo.Float without importing the framework.
type Float interface {
	~float32 | ~float64
}

// maxLanes is the widest register (64 bytes) over the narrowest element (4 bytes).
const maxLanes = 16

func clampLanes(lanes int) int {
	if lanes < 1 {
		return 1
	}
	if lanes > maxLanes {
		return maxLanes
	}

	return lanes
}

// Load converts float64 storage into dst.
func Load[T Float](dst []T, src []float64) {
	for i, v := range src {
		dst[i] = T(v)
	}
}

// Store converts dst back into float64 storage.
func Store[T Float](dst []float64, src []T) {
	for i, v := range src {
		dst[i] = float64(v)
	}
}

// Axpy computes dst += a*x.
func Axpy[T Float](dst, x []T, a T, lanes int) {
	lanes = clampLanes(lanes)
	n := len(dst)
	j := 0
	for ; j+lanes <= n; j += lanes {
		d := dst[j : j+lanes]
		s := x[j : j+lanes]
		for l := range d {
			d[l] += a * s[l]
		}
	}
	for ; j < n; j++ {
		dst[j] += a * x[j]
	}
}

// Add computes dst += x.
func Add[T Float](dst, x []T, lanes int) { Axpy(dst, x, 1, lanes) }

// Dot returns Σ a[i]*b[i] with one partial sum per lane.
func Dot[T Float](a, b []T, lanes int) T {
	lanes = clampLanes(lanes)
	var acc [maxLanes]T
	n := len(a)
	j := 0
	for ; j+lanes <= n; j += lanes {
		x := a[j : j+lanes]
		y := b[j : j+lanes]
		for l := range x {
			acc[l] += x[l] * y[l]
		}
	}
	var s T
	for l := 0; l < lanes; l++ {
		s += acc[l]
	}
	for ; j < n; j++ {
		s += a[j] * b[j]
	}

	return s
}

// DistSq returns Σ (a[i]-b[i])².
func DistSq[T Float](a, b []T, lanes int) T {
	lanes = clampLanes(lanes)
	var acc [maxLanes]T
	n := len(a)
	j := 0
	for ; j+lanes <= n; j += lanes {
		x := a[j : j+lanes]
		y := b[j : j+lanes]
		for l := range x {
			d := x[l] - y[l]
			acc[l] += d * d
		}
	}
	var s T
	for l := 0; l < lanes; l++ {
		s += acc[l]
	}
	for ; j < n; j++ {
		d := a[j] - b[j]
		s += d * d
	}

	return s
}

// Sum returns Σ a[i].
func Sum[T Float](a []T, lanes int) T {
	lanes = clampLanes(lanes)
	var acc [maxLanes]T
	n := len(a)
	j := 0
	for ; j+lanes <= n; j += lanes {
		x := a[j : j+lanes]
		for l := range x {
			acc[l] += x[l]
		}
	}
	var s T
	for l := 0; l < lanes; l++ {
		s += acc[l]
	}
	for ; j < n; j++ {
		s += a[j]
	}

	return s
}

// Scale computes dst *= a.
func Scale[T Float](dst []T, a T, lanes int) {
	lanes = clampLanes(lanes)
	n := len(dst)
	j := 0
	for ; j+lanes <= n; j += lanes {
		d := dst[j : j+lanes]
		for l := range d {
			d[l] *= a
		}
	}
	for ; j < n; j++ {
		dst[j] *= a
	}
}
