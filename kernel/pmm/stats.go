package pmm

import (
	"fmt"

	"github.com/joshuapare/exokit/mem"
)

// Stats is a point-in-time snapshot of the allocator's bookkeeping.
type Stats struct {
	MemTotal     uint64 `json:"mem_total"`
	MemAvailable uint64 `json:"mem_available"`
	MaxPages     int    `json:"max_pages"`
	UsedPages    int    `json:"used_pages"`
	FreePages    int    `json:"free_pages"`
	BitmapAddr   uint32 `json:"bitmap_addr"`
	BitmapSize   int    `json:"bitmap_size"`
}

// Stats returns the current counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Stats{
		MemTotal:     a.memTotal,
		MemAvailable: a.memAvailable,
		MaxPages:     a.maxPages,
		UsedPages:    a.usedPages,
		FreePages:    a.maxPages - a.usedPages,
		BitmapAddr:   a.bitmapAddr,
		BitmapSize:   a.bitmapSize,
	}
}

// IsUsed reports whether frame f is marked used. Frames past MaxPages read as used.
func (a *Allocator) IsUsed(f mem.Frame) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bitmap == nil {
		return true
	}
	return a.bitmap.Get(int(f))
}

// VisitFrames calls fn for every tracked frame in ascending order until fn
// returns false. The allocator is locked for the whole walk.
func (a *Allocator) VisitFrames(fn func(f mem.Frame, used bool) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bitmap == nil {
		return
	}
	for i := range a.maxPages {
		if !fn(mem.Frame(i), a.bitmap.Get(i)) {
			return
		}
	}
}

// CheckInvariants verifies that UsedPages equals the number of set bits and
// does not exceed MaxPages.
func (a *Allocator) CheckInvariants() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.bitmap == nil {
		return ErrNotInitialized
	}
	if set := a.bitmap.Count(); set != a.usedPages {
		return fmt.Errorf("%w: used_pages=%d, bitmap popcount=%d", ErrInconsistent, a.usedPages, set)
	}
	if a.usedPages > a.maxPages {
		return fmt.Errorf("%w: used_pages=%d > max_pages=%d", ErrInconsistent, a.usedPages, a.maxPages)
	}
	return nil
}
