// Package buf contains bounds-checked little-endian helpers for the raw
// structures that cross the boot loader boundary.
package buf

import "encoding/binary"

// U32At reads a little-endian uint32 at off. ok is false when b is too short.
func U32At(b []byte, off int) (uint32, bool) {
	s, ok := Slice(b, off, 4)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint32(s), true
}

// U64At reads a little-endian uint64 at off. ok is false when b is too short.
func U64At(b []byte, off int) (uint64, bool) {
	s, ok := Slice(b, off, 8)
	if !ok {
		return 0, false
	}
	return binary.LittleEndian.Uint64(s), true
}

// PutU32At writes v little-endian at off and reports whether it fit.
func PutU32At(b []byte, off int, v uint32) bool {
	s, ok := Slice(b, off, 4)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint32(s, v)
	return true
}

// PutU64At writes v little-endian at off and reports whether it fit.
func PutU64At(b []byte, off int, v uint64) bool {
	s, ok := Slice(b, off, 8)
	if !ok {
		return false
	}
	binary.LittleEndian.PutUint64(s, v)
	return true
}

// CString returns the bytes of b up to, not including, the first NUL.
func CString(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}
