package pmm

import "errors"

var (
	// ErrNoMemoryMap indicates the boot information carries no memory map.
	// The kernel cannot continue without one.
	ErrNoMemoryMap = errors.New("pmm: boot information has no memory map")

	// ErrNotInitialized indicates an operation on an allocator that was never initialized.
	ErrNotInitialized = errors.New("pmm: allocator not initialized")

	// ErrZeroCount indicates a request for zero pages.
	ErrZeroCount = errors.New("pmm: page count is zero")

	// ErrTooManyPages indicates a count at or above PageLimit or MaxPages.
	ErrTooManyPages = errors.New("pmm: page count too large")

	// ErrNotEnoughFree indicates a count larger than the number of free pages.
	ErrNotEnoughFree = errors.New("pmm: not enough free pages")

	// ErrNoContiguous indicates no run of free pages long enough exists.
	ErrNoContiguous = errors.New("pmm: no contiguous run of free pages")

	// ErrBadAddress indicates an unaligned address or a run past the end of memory.
	ErrBadAddress = errors.New("pmm: bad page address")

	// ErrReserved indicates a free request touching a permanently reserved page.
	ErrReserved = errors.New("pmm: page is permanently reserved")

	// ErrDoubleFree indicates a free request covering a page that is already free.
	ErrDoubleFree = errors.New("pmm: page already free")

	// ErrTooManyFreed indicates a free request larger than the number of used pages.
	ErrTooManyFreed = errors.New("pmm: page count exceeds used pages")
)

// ErrInconsistent indicates the bitmap and the used-page counter disagree.
var ErrInconsistent = errors.New("pmm: bookkeeping inconsistent")
