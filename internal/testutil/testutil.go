// Package testutil holds fixtures shared by the kernel and library OS tests.
package testutil

import (
	"github.com/joshuapare/exokit/kernel/multiboot"
	"github.com/joshuapare/exokit/mem"
)

// FlatMemoryMap reports pages frames of RAM starting at 0 as one available region.
func FlatMemoryMap(pages int) []multiboot.MemoryMapEntry {
	return []multiboot.MemoryMapEntry{
		{Addr: 0, Len: uint64(pages) * mem.PageSize, Type: multiboot.MemAvailable},
	}
}

// BootInfo wraps regions in an info block that carries a memory map.
func BootInfo(regions []multiboot.MemoryMapEntry) *multiboot.Info {
	return &multiboot.Info{
		Flags:          multiboot.FlagMemMap,
		Regions:        regions,
		BootLoaderName: "testutil",
	}
}

// RegionTotals sums the lengths of all regions and of the available ones.
func RegionTotals(regions []multiboot.MemoryMapEntry) (total, available uint64) {
	for _, r := range regions {
		total += r.Len
		if r.Type == multiboot.MemAvailable {
			available += r.Len
		}
	}
	return total, available
}
