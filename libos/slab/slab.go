package slab

import (
	"fmt"

	"github.com/joshuapare/exokit/internal/bitmap"
	"github.com/joshuapare/exokit/mem"
)

// MaxObjects is the capacity of a slab's object bitmap.
const MaxObjects = 256

// Slab is one arena page holding objects of a single size.
type Slab struct {
	mem     uint32
	objsize uint32
	objnum  uint32
	inuse   uint32
	objects *bitmap.Bitmap
}

func newSlab(addr uint32) Slab {
	return Slab{mem: addr, objects: bitmap.New(MaxObjects)}
}

// set sizes the slab for a cache. The object bitmap is left untouched: a slab
// is only reassigned once every object in it has been freed.
func (s *Slab) set(objnum, objsize uint32) {
	s.objnum = min(objnum, MaxObjects)
	s.objsize = objsize
}

// Addr returns the address of the slab's first object.
func (s *Slab) Addr() uint32 { return s.mem }

// ObjSize returns the object size, or 0 for an unassigned slab.
func (s *Slab) ObjSize() uint32 { return s.objsize }

// ObjNum returns the object capacity.
func (s *Slab) ObjNum() uint32 { return s.objnum }

// InUse returns the number of allocated objects.
func (s *Slab) InUse() uint32 { return s.inuse }

// IsFull reports whether every object is allocated.
func (s *Slab) IsFull() bool { return s.inuse == s.objnum }

// IsEmpty reports whether no object is allocated.
func (s *Slab) IsEmpty() bool { return s.inuse == 0 }

func (s *Slab) findFreeObject() (int, bool) {
	return s.objects.FindFree(int(s.objnum))
}

func (s *Slab) allocObject() (uint32, error) {
	idx, ok := s.findFreeObject()
	if !ok || s.IsFull() {
		return 0, fmt.Errorf("%w: %d/%d objects at 0x%08x", ErrSlabFull, s.inuse, s.objnum, s.mem)
	}

	s.objects.Set(idx)
	s.inuse++
	return s.mem + uint32(idx)*s.objsize, nil
}

// freeObject releases the object at addr and reports whether the slab is
// now empty.
func (s *Slab) freeObject(addr uint32) (bool, error) {
	if s.objsize == 0 || addr < s.mem || addr-s.mem >= mem.PageSize {
		return false, fmt.Errorf("%w: 0x%08x outside slab at 0x%08x", ErrBadAddress, addr, s.mem)
	}
	off := addr - s.mem
	if off%s.objsize != 0 {
		return false, fmt.Errorf("%w: 0x%08x not on a %d-byte boundary", ErrBadAddress, addr, s.objsize)
	}
	idx := int(off / s.objsize)
	if idx >= int(s.objnum) {
		return false, fmt.Errorf("%w: object %d past capacity %d", ErrBadAddress, idx, s.objnum)
	}
	if !s.objects.Clear(idx) {
		return false, fmt.Errorf("%w: 0x%08x", ErrDoubleFree, addr)
	}

	s.inuse--
	return s.inuse == 0, nil
}
