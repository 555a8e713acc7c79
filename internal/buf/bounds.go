package buf

import "math"

// Slice returns the sub-slice [off:off+n] if it fits within len(b).
func Slice(b []byte, off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(b) {
		return nil, false
	}
	if n > math.MaxInt-off || off+n > len(b) {
		return nil, false
	}
	return b[off : off+n], true
}

// AddU32 adds two 32-bit addresses, returning ok = false on wraparound.
func AddU32(a, b uint32) (uint32, bool) {
	sum := a + b
	return sum, sum >= a
}

// RangeFits reports whether [off, off+n) lies inside a region of size limit.
func RangeFits(off, n, limit uint64) bool {
	return off <= limit && n <= limit-off
}
