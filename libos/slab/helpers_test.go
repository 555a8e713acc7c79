package slab

import (
	"errors"
	"testing"

	"github.com/joshuapare/exokit/libos/exo"
	"github.com/joshuapare/exokit/mem"
	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("fake kernel: refused")

// fakeSource is a bump allocator standing in for the kernel.
type fakeSource struct {
	next    uint32
	calls   int
	failAt  int // 1-based AllocPg call that fails; 0 never
	freeErr error
	allocs  []exo.AllocUnit
	freed   []exo.AllocUnit
}

func newFakeSource() *fakeSource {
	return &fakeSource{next: 0x200000}
}

func (f *fakeSource) AllocPg(count uint32) (exo.AllocUnit, error) {
	f.calls++
	if f.calls == f.failAt {
		return exo.AllocUnit{}, errRefused
	}
	u := exo.AllocUnit{Addr: f.next, Count: count}
	f.next += count * mem.PageSize
	f.allocs = append(f.allocs, u)
	return u, nil
}

func (f *fakeSource) FreePg(unit exo.AllocUnit) error {
	if f.freeErr != nil {
		return f.freeErr
	}
	f.freed = append(f.freed, unit)
	return nil
}

func newTestAllocator(t *testing.T) (*Allocator, *fakeSource) {
	t.Helper()
	src := newFakeSource()
	a := New(src)
	require.NoError(t, a.Init())
	require.NoError(t, a.Run())
	return a, src
}

// fillCache allocates enough objects from cache idx to fill n slabs.
func fillCache(t *testing.T, a *Allocator, idx, n int) []uint32 {
	t.Helper()
	objnum := int(a.caches[idx].ObjNum())
	addrs := make([]uint32, 0, objnum*n)
	for range objnum * n {
		addr, err := a.AllocObject(idx)
		require.NoError(t, err)
		addrs = append(addrs, addr)
	}
	return addrs
}

func requireConsistent(t *testing.T, a *Allocator) {
	t.Helper()
	require.NoError(t, a.CheckInvariants())
}
