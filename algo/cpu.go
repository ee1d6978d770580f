// SPDX-License-Identifier: MIT

package algo

import (
	"fmt"
	"strings"

	"golang.org/x/sys/cpu"
)

// CPUTier is an ordered instruction-set capability level. Kernels are registered
// per tier; dispatch picks the highest registered tier not above the
// environment's tier.
type CPUTier int

const (
	// TierBaseline is the generic path (SSE2 on amd64, any other architecture).
	TierBaseline CPUTier = iota
	TierSSSE3
	TierSSE42
	TierAVX
	TierAVX2
	TierAVX512
)

var tierNames = [...]string{"baseline", "ssse3", "sse42", "avx", "avx2", "avx512"}

// Tiers lists every tier in ascending order.
func Tiers() []CPUTier {
	return []CPUTier{TierBaseline, TierSSSE3, TierSSE42, TierAVX, TierAVX2, TierAVX512}
}

// String returns a human-readable tier name.
func (t CPUTier) String() string {
	if t < TierBaseline || t > TierAVX512 {
		return fmt.Sprintf("tier(%d)", int(t))
	}

	return tierNames[t]
}

// ParseTier maps a tier name (case-insensitive, "sse2" accepted for baseline)
// back to a CPUTier.
func ParseTier(s string) (CPUTier, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "sse2" || name == "generic" || name == "scalar" {
		return TierBaseline, nil
	}
	for i, n := range tierNames {
		if n == name {
			return CPUTier(i), nil
		}
	}

	return TierBaseline, fmt.Errorf("algo: unknown cpu tier %q", s)
}

// VectorBytes returns the register width of the tier in bytes.
func (t CPUTier) VectorBytes() int {
	switch {
	case t >= TierAVX512:
		return 64
	case t >= TierAVX:
		return 32
	default:
		return 16
	}
}

// Lanes returns how many T values fit into one register of tier t.
// Kernels block their inner loops by this width.
func Lanes[T Float](t CPUTier) int {
	var zero T
	switch any(zero).(type) {
	case float32:
		return t.VectorBytes() / 4
	default:
		return t.VectorBytes() / 8
	}
}

// DetectTier probes the running CPU. Non-x86 platforms report TierBaseline.
func DetectTier() CPUTier {
	x := cpu.X86
	switch {
	case x.HasAVX512F && x.HasAVX512BW && x.HasAVX512VL:
		return TierAVX512
	case x.HasAVX2 && x.HasFMA:
		return TierAVX2
	case x.HasAVX:
		return TierAVX
	case x.HasSSE42:
		return TierSSE42
	case x.HasSSSE3:
		return TierSSSE3
	default:
		return TierBaseline
	}
}
