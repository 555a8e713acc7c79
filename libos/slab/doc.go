// Package slab implements the library OS object allocator.
//
// At Init the allocator asks the kernel for one page to back the slab table
// and SlabsCount pages of slab contents (the arena). Each arena page becomes
// a Slab: one page split into equal objects of a single size class and
// tracked by an object bitmap. Nine Caches, kmalloc-8 through kmalloc-2k,
// take slabs from the arena on demand and hand out objects from them.
//
// Slab lifecycle:
//
//	Unassigned -> Partial -> Full -> Partial -> ... -> Empty -> Unassigned
//
// An emptied slab goes back to the arena, not to the kernel. Arena pages are
// only returned to the kernel by Exit.
//
// All exported Allocator methods are safe for concurrent use.
package slab
