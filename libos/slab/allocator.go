package slab

import (
	"fmt"
	"sync"

	"github.com/joshuapare/exokit/internal/bitmap"
	"github.com/joshuapare/exokit/internal/logger"
	"github.com/joshuapare/exokit/libos/exo"
	"github.com/joshuapare/exokit/mem"
)

const (
	// CacheCount is the number of size classes.
	CacheCount = 9

	// MinObjectSize and MaxObjectSize bound the size classes.
	MinObjectSize = 8
	MaxObjectSize = 2048

	// SlabsPages is the number of pages backing the slab table.
	SlabsPages = 1

	// SlabRecordSize is the size of one slab record in the slab table.
	SlabRecordSize = 64

	// SlabsCount is the number of slabs in the arena.
	SlabsCount = SlabsPages * mem.PageSize / SlabRecordSize
)

var cacheNames = [CacheCount]string{
	"kmalloc-8", "kmalloc-16", "kmalloc-32", "kmalloc-64", "kmalloc-128",
	"kmalloc-256", "kmalloc-512", "kmalloc-1k", "kmalloc-2k",
}

// PageSource hands out and takes back runs of physical pages.
// *exo.Client implements it over the syscall interface.
type PageSource interface {
	AllocPg(count uint32) (exo.AllocUnit, error)
	FreePg(unit exo.AllocUnit) error
}

// Allocator is the SLAB allocator subsystem.
type Allocator struct {
	mu  sync.Mutex
	src PageSource

	slabs    []Slab // nil until Init
	caches   [CacheCount]*Cache
	arena    *bitmap.Bitmap
	records  exo.AllocUnit // pages backing the slab table
	contents exo.AllocUnit // pages backing every slab
}

// New returns an allocator drawing pages from src. Call Init before use.
func New(src PageSource) *Allocator {
	return &Allocator{src: src}
}

// Name implements subsystem.Subsystem.
func (a *Allocator) Name() string { return "SLAB allocator" }

// Init obtains the slab table page and the arena pages from the kernel and
// builds the cache table. On failure nothing is left allocated.
func (a *Allocator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.slabs != nil {
		return ErrAlreadyInitialized
	}

	records, err := a.src.AllocPg(SlabsPages)
	if err != nil {
		return fmt.Errorf("%w: %d pages for slab table: %w", ErrPageRequest, SlabsPages, err)
	}

	contents, err := a.src.AllocPg(SlabsCount)
	if err != nil {
		if ferr := a.src.FreePg(records); ferr != nil {
			logger.L.Error("cannot release slab table pages", "unit", records.String(), "err", ferr)
		}
		return fmt.Errorf("%w: %d pages for slabs: %w", ErrPageRequest, SlabsCount, err)
	}

	slabs := make([]Slab, SlabsCount)
	addr := contents.Addr
	for i := range slabs {
		slabs[i] = newSlab(addr)
		addr += mem.PageSize
	}

	size := uint32(MinObjectSize)
	for i := range a.caches {
		a.caches[i] = newCache(cacheNames[i], size, slabs)
		size <<= 1
	}

	a.slabs = slabs
	a.arena = bitmap.New(SlabsCount)
	a.records = records
	a.contents = contents
	return nil
}

// Run logs the slab and cache layout.
func (a *Allocator) Run() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.slabs == nil {
		return ErrNotInitialized
	}

	l := logger.L
	l.Debug("slab table", "record_size", SlabRecordSize, "slabs", len(a.slabs), "caches", len(a.caches))
	for _, c := range a.caches {
		l.Debug("created cache", "name", c.name, "objsize", c.objsize, "objnum", c.objnum)
	}
	return nil
}

// Exit returns the slab table and arena pages to the kernel. Objects still
// allocated are lost.
func (a *Allocator) Exit() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.slabs == nil {
		return ErrNotInitialized
	}

	if err := a.src.FreePg(a.records); err != nil {
		return fmt.Errorf("slab: free slab table pages %s: %w", a.records, err)
	}
	if err := a.src.FreePg(a.contents); err != nil {
		return fmt.Errorf("slab: free slab pages %s: %w", a.contents, err)
	}

	a.slabs = nil
	a.caches = [CacheCount]*Cache{}
	a.arena = nil
	a.records = exo.AllocUnit{}
	a.contents = exo.AllocUnit{}
	return nil
}

// CacheIndex returns the size class serving size bytes: the number of times
// the size, rounded up to a power of two, halves before reaching
// MinObjectSize.
func CacheIndex(size uint32) int {
	rounded := mem.RoundUpPow2(size)
	idx := 0
	for rounded > MinObjectSize {
		rounded >>= 1
		idx++
	}
	return idx
}

// ObjectsPerPage returns how many objects of size bytes, rounded up to a
// power of two, fit in one page by division. Caches size their slabs with a
// shift by the size class order instead; for power-of-two sizes the two
// agree.
func ObjectsPerPage(size uint32) uint32 {
	if size == 0 {
		return 0
	}
	return mem.PageSize / mem.RoundUpPow2(size)
}

func checkSize(size uint32) error {
	if size == 0 || size > MaxObjectSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrBadSize, size, uint32(MaxObjectSize))
	}
	return nil
}

// Alloc returns the address of a new object of at least size bytes.
func (a *Allocator) Alloc(size uint32) (uint32, error) {
	if err := checkSize(size); err != nil {
		return 0, err
	}
	return a.AllocObject(CacheIndex(size))
}

// Free releases an object obtained from Alloc with the same size.
func (a *Allocator) Free(addr, size uint32) error {
	if err := checkSize(size); err != nil {
		return err
	}
	return a.FreeObject(addr, CacheIndex(size))
}

// AllocObject allocates one object from cache idx. A new arena slab is
// assigned to the cache when it owns none or all of its slabs are full.
func (a *Allocator) AllocObject(idx int) (uint32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.slabs == nil {
		return 0, ErrNotInitialized
	}
	if idx < 0 || idx >= CacheCount {
		return 0, fmt.Errorf("%w: %d", ErrBadCache, idx)
	}

	c := a.caches[idx]
	if c.IsEmpty() || c.IsFull() {
		pos, err := a.findFreeSlab()
		if err != nil {
			return 0, err
		}
		if err := c.push(pos); err != nil {
			return 0, err
		}
		a.arena.Set(pos)
		logger.L.Debug("assigned slab", "cache", c.name, "slab", pos, "addr", fmt.Sprintf("0x%08x", a.slabs[pos].mem))
	}

	return c.alloc()
}

// FreeObject releases the object at addr back to cache idx. When its slab
// empties, the arena slot becomes free for any cache.
func (a *Allocator) FreeObject(addr uint32, idx int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.slabs == nil {
		return ErrNotInitialized
	}
	if idx < 0 || idx >= CacheCount {
		return fmt.Errorf("%w: %d", ErrBadCache, idx)
	}
	if !a.contents.Contains(addr) {
		return fmt.Errorf("%w: 0x%08x outside arena %s", ErrBadAddress, addr, a.contents)
	}

	c := a.caches[idx]
	if c.IsEmpty() {
		return fmt.Errorf("%w: %s", ErrCacheEmpty, c.name)
	}

	pos := int((addr - a.contents.Addr) / mem.PageSize)
	empty, err := c.free(addr, pos)
	if err != nil {
		return err
	}
	if empty {
		a.arena.Clear(pos)
		logger.L.Debug("released slab", "cache", c.name, "slab", pos)
	}
	return nil
}

func (a *Allocator) findFreeSlab() (int, error) {
	pos, ok := a.arena.FindFree(len(a.slabs))
	if !ok {
		return 0, fmt.Errorf("%w: %d slabs assigned", ErrOutOfSlabs, a.arena.Count())
	}
	return pos, nil
}
