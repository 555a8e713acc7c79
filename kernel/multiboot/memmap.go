package multiboot

// StandardMemoryMap returns the BIOS map a PC-compatible firmware reports for
// total bytes of RAM: conventional memory below the EBDA, the BIOS ROM hole,
// extended memory from 1 MiB up to a reserved tail, and the flash window
// below 4 GiB. total must be at least 2 MiB.
func StandardMemoryMap(total uint64) []MemoryMapEntry {
	const (
		ebda      = 0x9FC00
		extended  = 0x100000
		tailSize  = 0x20000
		flashBase = 0xFFFC0000
	)
	return []MemoryMapEntry{
		{Addr: 0, Len: ebda, Type: MemAvailable},
		{Addr: ebda, Len: 0xA0000 - ebda, Type: MemReserved},
		{Addr: 0xF0000, Len: 0x10000, Type: MemReserved},
		{Addr: extended, Len: total - extended - tailSize, Type: MemAvailable},
		{Addr: total - tailSize, Len: tailSize, Type: MemReserved},
		{Addr: flashBase, Len: 0x40000, Type: MemReserved},
	}
}
