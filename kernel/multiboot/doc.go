// Package multiboot decodes the boot information block that the boot loader
// leaves in physical memory.
//
// Only the parts the memory core consumes are modelled: the flags word, the
// BIOS memory map, the kernel command line and the boot loader name. The
// block is read through an io.ReaderAt over physical memory so the same code
// serves the simulated machine and raw dumps.
//
// # Layout
//
// The fixed header is InfoSize bytes of little-endian uint32 fields. The
// memory map is a packed sequence of entries, each prefixed by its own size
// (which does not count the size field itself):
//
//	+0  size  uint32   (20)
//	+4  addr  uint64
//	+12 len   uint64
//	+20 type  uint32
//
// Strings are NUL-terminated and decoded as ISO 8859-1.
package multiboot
