package mem

const (
	// PageShift converts between byte addresses and page frame numbers.
	PageShift = 12

	// PageSize is the size of one physical page in bytes.
	PageSize = 1 << PageShift

	// PageLimit is the exclusive upper bound on pages moved by a single
	// allocate or free request.
	PageLimit = 128

	// MaxFrames is the number of frames addressable with 32-bit physical addresses.
	MaxFrames = 1 << (32 - PageShift)
)

// Frame is a physical page frame number.
type Frame uint32

// Address returns the physical address of the first byte of the frame.
func (f Frame) Address() uint32 {
	return uint32(f) << PageShift
}

// FrameFromAddress returns the frame containing addr.
func FrameFromAddress(addr uint32) Frame {
	return Frame(addr >> PageShift)
}

// PageAligned reports whether addr sits on a page boundary.
func PageAligned(addr uint32) bool {
	return addr&(PageSize-1) == 0
}

// PagesFor returns the number of pages needed to hold size bytes.
func PagesFor(size uint64) uint64 {
	return (size + PageSize - 1) >> PageShift
}

// AlignDown rounds addr down to a page boundary.
func AlignDown(addr uint64) uint64 {
	return addr &^ (PageSize - 1)
}

// AlignUp rounds addr up to a page boundary.
func AlignUp(addr uint64) uint64 {
	return (addr + PageSize - 1) &^ (PageSize - 1)
}
