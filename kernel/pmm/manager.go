package pmm

import (
	"sync"

	"github.com/joshuapare/exokit/internal/bitmap"
	"github.com/joshuapare/exokit/kernel/multiboot"
	"github.com/joshuapare/exokit/mem"
	"github.com/joshuapare/exokit/mem/physmem"
)

const (
	// GDTFrame holds the global descriptor table.
	GDTFrame mem.Frame = 0

	// BootInfoFrame holds the boot information block.
	BootInfoFrame mem.Frame = 16
)

// reservedFrames can never be freed, whatever their bitmap state.
var reservedFrames = [...]mem.Frame{GDTFrame, BootInfoFrame}

// addressSpaceEnd is the first address past 32-bit physical memory.
const addressSpaceEnd = uint64(1) << 32

// Allocator is the physical page allocator.
type Allocator struct {
	mu sync.Mutex

	memAvailable uint64 // bytes reported available by the memory map
	memTotal     uint64 // bytes reported by the memory map
	maxPages     int
	usedPages    int

	bitmap *bitmap.Bitmap // bit i = frame i in use
	ram    physmem.Memory // zeroing target; nil skips zeroing

	bitmapAddr uint32 // physical placement of the bitmap storage
	bitmapSize int    // bytes
}

// New returns an allocator with no memory detected yet. Most callers want Init.
func New(ram physmem.Memory) *Allocator {
	return &Allocator{ram: ram}
}

// DetectMemory walks the memory map and accumulates the total and available
// byte counts, deriving MaxPages. The bitmap is not touched.
func (a *Allocator) DetectMemory(info *multiboot.Info) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detectMemory(info)
}

// MarkAsUsed sets the bits for ceil(size/PageSize) pages starting at the page
// containing addr. Pages past MaxPages are ignored and pages already used are
// not counted twice.
func (a *Allocator) MarkAsUsed(addr uint32, size uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.markAsUsed(addr, size)
}

// MarkAsFree clears the bits for ceil(size/PageSize) pages starting at the
// page containing addr. It performs no reserved-page or double-free checks.
func (a *Allocator) MarkAsFree(addr uint32, size uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.markAsFree(addr, size)
}

// ReservePage marks a single frame used.
func (a *Allocator) ReservePage(f mem.Frame) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reservePage(f)
}

// FreeAvailableMemory clears every page fully covered by an available region.
func (a *Allocator) FreeAvailableMemory(info *multiboot.Info) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.freeAvailableMemory(info)
}

func (a *Allocator) detectMemory(info *multiboot.Info) {
	a.memTotal, a.memAvailable = 0, 0

	info.VisitMemRegions(func(e *multiboot.MemoryMapEntry) bool {
		if e.Type == multiboot.MemAvailable {
			a.memAvailable += e.Len
		}
		a.memTotal += e.Len
		return true
	})

	pages := a.memTotal >> mem.PageShift
	if pages > mem.MaxFrames {
		pages = mem.MaxFrames
	}
	a.maxPages = int(pages)
}

// resetBitmap sizes the bitmap to MaxPages and marks every page used.
func (a *Allocator) resetBitmap() {
	a.bitmap = bitmap.New(a.maxPages)
	a.bitmap.Fill()
	a.usedPages = a.maxPages
}

func (a *Allocator) markAsUsed(addr uint32, size uint64) {
	if a.bitmap == nil {
		return
	}
	start := int(mem.FrameFromAddress(addr))
	a.usedPages += a.bitmap.SetRange(start, pageCount(start, size, a.maxPages))
}

func (a *Allocator) markAsFree(addr uint32, size uint64) {
	if a.bitmap == nil {
		return
	}
	start := int(mem.FrameFromAddress(addr))
	a.usedPages -= a.bitmap.ClearRange(start, pageCount(start, size, a.maxPages))
}

func (a *Allocator) reservePage(f mem.Frame) {
	if a.bitmap != nil && a.bitmap.Set(int(f)) {
		a.usedPages++
	}
}

func (a *Allocator) freeAvailableMemory(info *multiboot.Info) {
	info.VisitMemRegions(func(e *multiboot.MemoryMapEntry) bool {
		if e.Type != multiboot.MemAvailable {
			return true
		}
		start := mem.AlignUp(e.Addr)
		end := min(mem.AlignDown(e.End()), addressSpaceEnd)
		if start < end {
			a.markAsFree(uint32(start), end-start)
		}
		return true
	})
}

// pageCount clips ceil(size/PageSize) so the run stays below limit.
func pageCount(start int, size uint64, limit int) int {
	n := mem.PagesFor(size)
	if start >= limit {
		return 0
	}
	if room := uint64(limit - start); n > room {
		n = room
	}
	return int(n)
}
