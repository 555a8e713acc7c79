package pmm

import (
	"testing"

	"github.com/joshuapare/exokit/internal/testutil"
	"github.com/joshuapare/exokit/kernel/multiboot"
	"github.com/joshuapare/exokit/mem"
	"github.com/joshuapare/exokit/mem/physmem"
	"github.com/stretchr/testify/require"
)

const smallPages = 64

// smallLayout puts a one-page kernel at frame 20 with a one-page stack. On a
// flat 64-page machine the used frames after Init are 0 and 16 (reserved),
// 20 and 21 (image + tail page, stack) and 22 (bitmap), leaving the free runs
// [1,16), [17,20) and [23,64).
var smallLayout = Layout{
	KernelStart: 20 * mem.PageSize,
	KernelEnd:   21 * mem.PageSize,
	StackSize:   mem.PageSize,
}

// newSmallAllocator boots a 64-page allocator without RAM attached.
func newSmallAllocator(t *testing.T) *Allocator {
	t.Helper()
	a, err := Init(testutil.BootInfo(testutil.FlatMemoryMap(smallPages)), smallLayout, nil)
	require.NoError(t, err)
	requireConsistent(t, a)
	return a
}

// newStandardAllocator boots a PC-style 32 MiB machine with RAM attached.
func newStandardAllocator(t *testing.T) (*Allocator, *physmem.RAM) {
	t.Helper()
	ram, err := physmem.New(32 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ram.Close() })

	info := testutil.BootInfo(multiboot.StandardMemoryMap(32 << 20))
	a, err := Init(info, standardLayout, ram)
	require.NoError(t, err)
	requireConsistent(t, a)
	return a, ram
}

var standardLayout = Layout{
	KernelStart: 0x100000,
	KernelEnd:   0x140000,
	StackSize:   DefaultStackSize,
}

func requireConsistent(t *testing.T, a *Allocator) {
	t.Helper()
	require.NoError(t, a.CheckInvariants())
}
