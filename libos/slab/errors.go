package slab

import "errors"

var (
	// ErrNotInitialized indicates use of an allocator before Init or after Exit.
	ErrNotInitialized = errors.New("slab: allocator not initialized")

	// ErrAlreadyInitialized indicates a second Init without Exit.
	ErrAlreadyInitialized = errors.New("slab: allocator already initialized")

	// ErrPageRequest indicates the kernel refused the arena pages.
	ErrPageRequest = errors.New("slab: cannot obtain pages from kernel")

	// ErrBadSize indicates a request of zero bytes or above the largest size class.
	ErrBadSize = errors.New("slab: unsupported object size")

	// ErrBadCache indicates a cache index outside the cache table.
	ErrBadCache = errors.New("slab: no such cache")

	// ErrOutOfSlabs indicates every arena slot is assigned.
	ErrOutOfSlabs = errors.New("slab: out of slabs")

	// ErrCacheFull indicates a cache already owns SlabsPerCache slabs.
	ErrCacheFull = errors.New("slab: cache slab list is full")

	// ErrCacheEmpty indicates a free on a cache that owns no slabs.
	ErrCacheEmpty = errors.New("slab: cache is empty")

	// ErrSlabFull indicates an allocation from a slab with no free object.
	ErrSlabFull = errors.New("slab: slab is full")

	// ErrBadAddress indicates an address outside the arena, outside the
	// slab, or not on an object boundary.
	ErrBadAddress = errors.New("slab: bad object address")

	// ErrNotOwner indicates a free through a cache that does not own the slab.
	ErrNotOwner = errors.New("slab: slab not owned by cache")

	// ErrDoubleFree indicates a free of an object that is not allocated.
	ErrDoubleFree = errors.New("slab: object already free")
)

// ErrInconsistent indicates the bookkeeping of the allocator disagrees with
// its bitmaps.
var ErrInconsistent = errors.New("slab: bookkeeping inconsistent")
