package multiboot

import "fmt"

// Info flag bits.
const (
	FlagMemory         uint32 = 1 << 0
	FlagBootDevice     uint32 = 1 << 1
	FlagCmdline        uint32 = 1 << 2
	FlagModules        uint32 = 1 << 3
	FlagMemMap         uint32 = 1 << 6
	FlagBootLoaderName uint32 = 1 << 9
)

const (
	// InfoSize is the size of the fixed info header read by Load.
	InfoSize = 88

	// EntrySize is the encoded size of one memory map entry, size field included.
	EntrySize = 24

	// entryPayload is the value stored in an entry's size field.
	entryPayload = EntrySize - 4

	// maxStringLen bounds NUL-terminated string reads.
	maxStringLen = 4096
)

// Offsets into the fixed info header.
const (
	offFlags          = 0
	offMemLower       = 4
	offMemUpper       = 8
	offCmdline        = 16
	offMmapLength     = 44
	offMmapAddr       = 48
	offBootLoaderName = 64
)

// MemoryType classifies a memory map region.
type MemoryType uint32

const (
	MemAvailable       MemoryType = 1
	MemReserved        MemoryType = 2
	MemACPIReclaimable MemoryType = 3
	MemNVS             MemoryType = 4
	MemBadRAM          MemoryType = 5
)

func (t MemoryType) String() string {
	switch t {
	case MemAvailable:
		return "available"
	case MemReserved:
		return "reserved"
	case MemACPIReclaimable:
		return "ACPI data"
	case MemNVS:
		return "ACPI NVS"
	case MemBadRAM:
		return "bad RAM"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// MemoryMapEntry is one region reported by the boot loader.
type MemoryMapEntry struct {
	Addr uint64     `json:"addr"`
	Len  uint64     `json:"len"`
	Type MemoryType `json:"type"`
}

// End returns the exclusive end address of the region.
func (e MemoryMapEntry) End() uint64 { return e.Addr + e.Len }

func (e MemoryMapEntry) String() string {
	if e.Len == 0 {
		return fmt.Sprintf("[mem 0x%08x-0x%08x] %s", e.Addr, e.Addr, e.Type)
	}
	return fmt.Sprintf("[mem 0x%08x-0x%08x] %s", e.Addr, e.End()-1, e.Type)
}

// Info is the decoded boot information block.
type Info struct {
	Flags    uint32
	MemLower uint32 // KiB below 1 MiB
	MemUpper uint32 // KiB above 1 MiB

	MmapAddr   uint32
	MmapLength uint32
	Regions    []MemoryMapEntry

	Cmdline        string
	BootLoaderName string
}

// HasMemoryMap reports whether the boot loader supplied a memory map.
func (i *Info) HasMemoryMap() bool {
	return i != nil && i.Flags&FlagMemMap != 0
}

// VisitMemRegions calls fn for each memory map region until fn returns false.
func (i *Info) VisitMemRegions(fn func(e *MemoryMapEntry) bool) {
	if i == nil {
		return
	}
	for idx := range i.Regions {
		if !fn(&i.Regions[idx]) {
			return
		}
	}
}
