package mem

import (
	"fmt"
	"math/bits"
)

// Size is a memory block size in bytes.
type Size uint64

// Common memory block sizes.
const (
	Byte Size = 1
	Kb        = 1024 * Byte
	Mb        = 1024 * Kb
	Gb        = 1024 * Mb
)

// String formats the size using the largest whole binary unit.
func (s Size) String() string {
	switch {
	case s >= Gb && s%Gb == 0:
		return fmt.Sprintf("%dG", s/Gb)
	case s >= Mb && s%Mb == 0:
		return fmt.Sprintf("%dM", s/Mb)
	case s >= Kb && s%Kb == 0:
		return fmt.Sprintf("%dK", s/Kb)
	default:
		return fmt.Sprintf("%dB", uint64(s))
	}
}

// RoundUpPow2 returns the smallest power of two that is >= n.
// RoundUpPow2(0) is 1.
func RoundUpPow2(n uint32) uint32 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len32(n-1)
}

// Log2Ceil returns ceil(log2(n)) for n >= 1, and 0 for n == 0.
func Log2Ceil(n uint32) uint32 {
	if n <= 1 {
		return 0
	}
	return uint32(bits.Len32(n - 1))
}
