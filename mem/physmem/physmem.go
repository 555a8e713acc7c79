// Package physmem simulates the machine's physical RAM.
//
// The kernel page allocator zeroes pages through this device and the boot
// information block is written into it before boot. Addresses are physical
// byte offsets from 0.
package physmem

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/exokit/internal/buf"
	"github.com/joshuapare/exokit/mem"
)

// ErrOutOfRange indicates an access outside the installed memory.
var ErrOutOfRange = errors.New("physmem: access out of range")

// Memory is the view of RAM used by the kernel.
type Memory interface {
	io.ReaderAt
	io.WriterAt

	// Zero clears n bytes starting at physical address addr.
	Zero(addr uint32, n int) error

	// Size returns the installed memory size in bytes.
	Size() int
}

// RAM is a contiguous block of simulated physical memory.
type RAM struct {
	data    []byte
	release func() error
}

var _ Memory = (*RAM)(nil)

// New installs size bytes of RAM, rounded up to whole pages. On Linux, macOS
// and FreeBSD the block is an anonymous private mapping; elsewhere it is a
// heap slice.
func New(size int) (*RAM, error) {
	if size <= 0 {
		return nil, fmt.Errorf("physmem: invalid size %d", size)
	}
	size = int(mem.AlignUp(uint64(size)))

	data, release, err := mapAnon(size)
	if err != nil {
		return nil, fmt.Errorf("physmem: map %d bytes: %w", size, err)
	}
	return &RAM{data: data, release: release}, nil
}

// Size returns the installed memory size in bytes.
func (r *RAM) Size() int { return len(r.data) }

// Bytes returns the live slice backing [addr, addr+n).
func (r *RAM) Bytes(addr uint32, n int) ([]byte, error) {
	if n < 0 || !buf.RangeFits(uint64(addr), uint64(n), uint64(len(r.data))) {
		return nil, fmt.Errorf("%w: [%#x, +%d) beyond %d bytes", ErrOutOfRange, addr, n, len(r.data))
	}
	return r.data[addr : int(addr)+n], nil
}

// ReadAt implements io.ReaderAt over physical addresses.
func (r *RAM) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off > int64(len(r.data)) {
		return 0, ErrOutOfRange
	}
	n := copy(p, r.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriteAt implements io.WriterAt over physical addresses. Writes never
// extend the installed memory.
func (r *RAM) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(r.data)) {
		return 0, ErrOutOfRange
	}
	return copy(r.data[off:], p), nil
}

// Zero clears n bytes starting at addr.
func (r *RAM) Zero(addr uint32, n int) error {
	b, err := r.Bytes(addr, n)
	if err != nil {
		return err
	}
	clear(b)
	return nil
}

// Close releases the backing memory. Further use of r is invalid.
func (r *RAM) Close() error {
	if r.release == nil {
		return nil
	}
	err := r.release()
	r.release = nil
	r.data = nil
	return err
}
