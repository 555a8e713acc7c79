// Package mem defines the physical memory units shared by the kernel page
// allocator and the library OS.
//
// # Pages
//
// Physical memory is managed in 4 KiB pages. A page is identified by its page
// frame number (PFN), the page index counted from physical address 0:
//
//	addr  = pfn << PageShift
//	pfn   = addr >> PageShift
//
// A Frame carries no state beyond that mapping; it is a position, not an
// object.
//
// # Addresses
//
// Physical addresses are 32-bit, matching the i686 register file that the
// syscall boundary marshals through. The largest trackable frame is therefore
// MaxFrames-1.
package mem
