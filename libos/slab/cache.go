package slab

import (
	"fmt"
	"slices"

	"github.com/joshuapare/exokit/mem"
)

// SlabsPerCache bounds the number of slabs one cache may own.
const SlabsPerCache = 10

// none marks an absent slab index.
const none = -1

// Cache serves objects of one power-of-two size class.
type Cache struct {
	name     string
	objsize  uint32
	gfporder uint32
	objnum   uint32

	slabs    []Slab // the allocator's slab table, shared by all caches
	indexes  []int  // owned slabs in assignment order
	head     int
	nextFree int
}

func newCache(name string, size uint32, slabs []Slab) *Cache {
	objsize := mem.RoundUpPow2(size)
	gfporder := mem.Log2Ceil(objsize)
	return &Cache{
		name:     name,
		objsize:  objsize,
		gfporder: gfporder,
		objnum:   min(uint32(mem.PageSize)>>gfporder, MaxObjects),
		slabs:    slabs,
		indexes:  make([]int, 0, SlabsPerCache),
		head:     none,
		nextFree: none,
	}
}

// Name returns the cache name, e.g. "kmalloc-64".
func (c *Cache) Name() string { return c.name }

// ObjSize returns the object size served by the cache.
func (c *Cache) ObjSize() uint32 { return c.objsize }

// ObjNum returns the number of objects per slab.
func (c *Cache) ObjNum() uint32 { return c.objnum }

// GFPOrder returns log2 of the object size.
func (c *Cache) GFPOrder() uint32 { return c.gfporder }

// PageObjects returns PageSize >> GFPOrder, the object count before ObjNum
// is bounded by the slab's object bitmap.
func (c *Cache) PageObjects() uint32 { return uint32(mem.PageSize) >> c.gfporder }

// Slabs returns the arena indexes of the slabs the cache owns.
func (c *Cache) Slabs() []int { return slices.Clone(c.indexes) }

// IsEmpty reports whether the cache owns no slab.
func (c *Cache) IsEmpty() bool { return c.head == none }

// IsFull reports whether the cache owns slabs and all of them are full.
func (c *Cache) IsFull() bool { return !c.IsEmpty() && c.nextFree == none }

func (c *Cache) slab(pos int) *Slab { return &c.slabs[pos] }

// push assigns the slab at arena index pos to the cache and makes it the
// slab being filled.
func (c *Cache) push(pos int) error {
	if len(c.indexes) == SlabsPerCache {
		return fmt.Errorf("%w: %s owns %d slabs", ErrCacheFull, c.name, SlabsPerCache)
	}

	c.slab(pos).set(c.objnum, c.objsize)
	c.indexes = append(c.indexes, pos)
	c.nextFree = pos
	if c.head == none {
		c.head = pos
	}
	return nil
}

func (c *Cache) alloc() (uint32, error) {
	if c.nextFree == none {
		return 0, fmt.Errorf("%w: %s has no partial slab", ErrSlabFull, c.name)
	}

	s := c.slab(c.nextFree)
	addr, err := s.allocObject()
	if err != nil {
		return 0, err
	}
	if s.IsFull() {
		c.nextFree = c.findPartial()
	}
	return addr, nil
}

// free releases addr from the slab at arena index pos. It reports whether
// that slab emptied, in which case the slab has left the cache.
func (c *Cache) free(addr uint32, pos int) (bool, error) {
	at := slices.Index(c.indexes, pos)
	if at < 0 {
		return false, fmt.Errorf("%w: slab %d, cache %s", ErrNotOwner, pos, c.name)
	}

	empty, err := c.slab(pos).freeObject(addr)
	if err != nil {
		return false, err
	}

	if empty {
		c.indexes = slices.Delete(c.indexes, at, at+1)
		c.head = none
		if len(c.indexes) > 0 {
			c.head = c.indexes[0]
		}
		c.nextFree = c.findPartial()
		return true, nil
	}

	if c.nextFree == none {
		c.nextFree = pos
	}
	return false, nil
}

// findPartial returns the first owned slab with a free object.
func (c *Cache) findPartial() int {
	for _, pos := range c.indexes {
		if !c.slab(pos).IsFull() {
			return pos
		}
	}
	return none
}

// inUse returns the number of objects allocated from the cache.
func (c *Cache) inUse() uint32 {
	var n uint32
	for _, pos := range c.indexes {
		n += c.slab(pos).InUse()
	}
	return n
}
