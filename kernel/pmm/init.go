package pmm

import (
	"fmt"

	"github.com/joshuapare/exokit/internal/logger"
	"github.com/joshuapare/exokit/kernel/multiboot"
	"github.com/joshuapare/exokit/mem"
	"github.com/joshuapare/exokit/mem/physmem"
)

// DefaultStackSize is the size of the boot kernel stack.
const DefaultStackSize = 64 * 1024

// Layout describes where the kernel image sits in physical memory. The kernel
// stack follows the image and the page bitmap follows the stack.
type Layout struct {
	KernelStart uint32 `json:"kernel_start"`
	KernelEnd   uint32 `json:"kernel_end"`
	StackSize   uint32 `json:"stack_size"`
}

// KernelSize returns the size of the kernel image in bytes.
func (l Layout) KernelSize() uint32 { return l.KernelEnd - l.KernelStart }

// StackAddr returns the physical address of the kernel stack.
func (l Layout) StackAddr() uint32 { return l.KernelEnd }

// BitmapAddr returns the physical address of the page bitmap storage.
func (l Layout) BitmapAddr() uint32 { return l.KernelEnd + l.StackSize }

// Validate checks that the image bounds are ordered.
func (l Layout) Validate() error {
	if l.KernelEnd < l.KernelStart {
		return fmt.Errorf("pmm: kernel end %#x before start %#x", l.KernelEnd, l.KernelStart)
	}
	if uint64(l.KernelEnd)+uint64(l.StackSize) >= addressSpaceEnd {
		return fmt.Errorf("pmm: kernel stack ends past 4 GiB")
	}
	return nil
}

// Init builds the allocator from the boot information. It fails with
// ErrNoMemoryMap when the boot loader did not supply a memory map.
func Init(info *multiboot.Info, layout Layout, ram physmem.Memory) (*Allocator, error) {
	if !info.HasMemoryMap() {
		return nil, ErrNoMemoryMap
	}
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	a := New(ram)
	a.mu.Lock()
	defer a.mu.Unlock()

	a.detectMemory(info)
	a.resetBitmap()
	a.freeAvailableMemory(info)

	// Kernel image plus one page for the tail the linker rounds off.
	a.markAsUsed(layout.KernelStart, uint64(layout.KernelSize())+mem.PageSize)
	a.markAsUsed(layout.StackAddr(), uint64(layout.StackSize))

	a.bitmapAddr = layout.BitmapAddr()
	a.bitmapSize = a.bitmap.SizeBytes()
	a.markAsUsed(a.bitmapAddr, uint64(a.bitmapSize))

	for _, f := range reservedFrames {
		a.reservePage(f)
	}

	a.logMemoryInfo(info, layout)
	return a, nil
}

func (a *Allocator) logMemoryInfo(info *multiboot.Info, layout Layout) {
	l := logger.L
	l.Debug("BIOS-provided physical RAM map")
	info.VisitMemRegions(func(e *multiboot.MemoryMapEntry) bool {
		l.Debug(e.String())
		return true
	})
	l.Debug("kernel layout",
		"begin", fmt.Sprintf("0x%08x", layout.KernelStart),
		"end", fmt.Sprintf("0x%08x", layout.KernelEnd),
		"size", layout.KernelSize(),
		"stack", layout.StackSize)
	l.Debug("physical memory",
		"total_kb", a.memTotal>>10,
		"max_pages", a.maxPages,
		"used_pages", a.usedPages,
		"bitmap_addr", fmt.Sprintf("0x%08x", a.bitmapAddr),
		"bitmap_size", a.bitmapSize)
}
