package pmm

import (
	"fmt"

	"github.com/joshuapare/exokit/internal/logger"
	"github.com/joshuapare/exokit/mem"
)

// Alloc reserves count contiguous zeroed pages and returns the physical
// address of the first one.
//
// It rejects count == 0, count >= MaxPages, count >= PageLimit and counts
// larger than the number of free pages before searching.
func (a *Allocator) Alloc(count uint32) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bitmap == nil {
		return 0, ErrNotInitialized
	}

	n := int(count)
	switch {
	case n == 0:
		return 0, ErrZeroCount
	case n >= a.maxPages || n >= mem.PageLimit:
		return 0, fmt.Errorf("%w: %d (limit %d, max %d)", ErrTooManyPages, count, mem.PageLimit, a.maxPages)
	case n > a.maxPages-a.usedPages:
		return 0, fmt.Errorf("%w: want %d, have %d", ErrNotEnoughFree, count, a.maxPages-a.usedPages)
	}

	start, ok := a.bitmap.FindFreeRun(n, a.maxPages)
	if !ok {
		return 0, fmt.Errorf("%w: %d pages", ErrNoContiguous, count)
	}

	addr := mem.Frame(start).Address()
	if a.ram != nil {
		if err := a.ram.Zero(addr, n<<mem.PageShift); err != nil {
			return 0, fmt.Errorf("pmm: zero %d pages at 0x%08x: %w", n, addr, err)
		}
	}

	a.usedPages += a.bitmap.SetRange(start, n)

	logger.L.Debug("allocated pages", "count", n, "addr", fmt.Sprintf("0x%08x", addr))
	return addr, nil
}

// Free releases count pages starting at addr.
//
// It rejects count == 0, count >= PageLimit, counts larger than the number
// of used pages, unaligned addresses, runs past MaxPages, runs touching a
// reserved frame, and runs containing any page that is already free. A
// rejected call changes nothing.
func (a *Allocator) Free(addr, count uint32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bitmap == nil {
		return ErrNotInitialized
	}

	n := int(count)
	switch {
	case n == 0:
		return ErrZeroCount
	case n >= mem.PageLimit:
		return fmt.Errorf("%w: %d (limit %d)", ErrTooManyPages, count, mem.PageLimit)
	case n > a.usedPages:
		return fmt.Errorf("%w: %d > %d", ErrTooManyFreed, count, a.usedPages)
	case !mem.PageAligned(addr):
		return fmt.Errorf("%w: 0x%08x is not page aligned", ErrBadAddress, addr)
	}

	begin := int(mem.FrameFromAddress(addr))
	if begin+n > a.maxPages {
		return fmt.Errorf("%w: pages [%d, %d) past max %d", ErrBadAddress, begin, begin+n, a.maxPages)
	}

	for _, f := range reservedFrames {
		if int(f) >= begin && int(f) < begin+n {
			return fmt.Errorf("%w: frame %d", ErrReserved, f)
		}
	}

	if a.bitmap.AnyClear(begin, n) {
		return fmt.Errorf("%w: pages [%d, %d)", ErrDoubleFree, begin, begin+n)
	}

	a.usedPages -= a.bitmap.ClearRange(begin, n)

	logger.L.Debug("freed pages", "count", n, "addr", fmt.Sprintf("0x%08x", addr))
	return nil
}
