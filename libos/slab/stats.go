package slab

import (
	"fmt"

	"github.com/joshuapare/exokit/libos/exo"
)

// CacheStats describes one cache.
type CacheStats struct {
	Name        string `json:"name"`
	ObjSize     uint32 `json:"objsize"`
	ObjNum      uint32 `json:"objnum"`
	PageObjects uint32 `json:"page_objects"`
	GFPOrder    uint32 `json:"gfporder"`
	Slabs       []int  `json:"slabs"`
	InUse       uint32 `json:"inuse"`
	Capacity    uint32 `json:"capacity"`
}

// Stats is a snapshot of the allocator.
type Stats struct {
	Initialized   bool          `json:"initialized"`
	SlabsTotal    int           `json:"slabs_total"`
	SlabsAssigned int           `json:"slabs_assigned"`
	Records       exo.AllocUnit `json:"records"`
	Contents      exo.AllocUnit `json:"contents"`
	Caches        []CacheStats  `json:"caches"`
}

// Stats returns a snapshot of the allocator.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.slabs == nil {
		return Stats{}
	}

	st := Stats{
		Initialized:   true,
		SlabsTotal:    len(a.slabs),
		SlabsAssigned: a.arena.Count(),
		Records:       a.records,
		Contents:      a.contents,
		Caches:        make([]CacheStats, 0, len(a.caches)),
	}
	for _, c := range a.caches {
		st.Caches = append(st.Caches, CacheStats{
			Name:        c.name,
			ObjSize:     c.objsize,
			ObjNum:      c.objnum,
			PageObjects: c.PageObjects(),
			GFPOrder:    c.gfporder,
			Slabs:       c.Slabs(),
			InUse:       c.inUse(),
			Capacity:    uint32(len(c.indexes)) * c.objnum,
		})
	}
	return st
}

// VisitSlabs calls fn for each arena slab in address order until fn returns
// false. fn must not call back into the allocator.
func (a *Allocator) VisitSlabs(fn func(pos int, s *Slab) bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.slabs {
		if !fn(i, &a.slabs[i]) {
			return
		}
	}
}

// CheckInvariants verifies that the arena bitmap matches the slabs owned by
// caches and that every slab's in-use count matches its object bitmap.
func (a *Allocator) CheckInvariants() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.slabs == nil {
		return nil
	}

	owned := 0
	for _, c := range a.caches {
		owned += len(c.indexes)
		if len(c.indexes) > SlabsPerCache {
			return fmt.Errorf("%w: %s owns %d slabs", ErrInconsistent, c.name, len(c.indexes))
		}
		for _, pos := range c.indexes {
			if !a.arena.Get(pos) {
				return fmt.Errorf("%w: slab %d owned by %s but free in arena", ErrInconsistent, pos, c.name)
			}
		}
		if c.nextFree != none && a.slabs[c.nextFree].IsFull() {
			return fmt.Errorf("%w: %s fills full slab %d", ErrInconsistent, c.name, c.nextFree)
		}
	}
	if n := a.arena.Count(); n != owned {
		return fmt.Errorf("%w: arena has %d slabs assigned, caches own %d", ErrInconsistent, n, owned)
	}

	for i := range a.slabs {
		s := &a.slabs[i]
		if !a.arena.Get(i) && s.objects.AnySet(0, MaxObjects) {
			return fmt.Errorf("%w: unassigned slab %d holds objects", ErrInconsistent, i)
		}
		if n := s.objects.Count(); n != int(s.inuse) {
			return fmt.Errorf("%w: slab %d inuse %d, bitmap %d", ErrInconsistent, i, s.inuse, n)
		}
		if s.inuse > s.objnum {
			return fmt.Errorf("%w: slab %d inuse %d > objnum %d", ErrInconsistent, i, s.inuse, s.objnum)
		}
	}
	return nil
}
