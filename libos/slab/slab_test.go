package slab

import (
	"testing"

	"github.com/joshuapare/exokit/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlab_AllocFree(t *testing.T) {
	s := newSlab(0x5000)
	s.set(4, 1024)

	var addrs []uint32
	for range 4 {
		addr, err := s.allocObject()
		require.NoError(t, err)
		addrs = append(addrs, addr)
	}
	assert.Equal(t, []uint32{0x5000, 0x5400, 0x5800, 0x5C00}, addrs)
	assert.True(t, s.IsFull())

	_, err := s.allocObject()
	require.ErrorIs(t, err, ErrSlabFull)

	empty, err := s.freeObject(0x5800)
	require.NoError(t, err)
	assert.False(t, empty)

	addr, err := s.allocObject()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x5800), addr, "lowest free object is reused")

	for _, a := range addrs {
		empty, err = s.freeObject(a)
		require.NoError(t, err)
	}
	assert.True(t, empty)
	assert.True(t, s.IsEmpty())
}

func TestSlab_ObjnumNotWordMultiple(t *testing.T) {
	s := newSlab(0)
	s.set(100, 32)

	for i := range 100 {
		addr, err := s.allocObject()
		require.NoError(t, err)
		assert.Equal(t, uint32(i*32), addr)
	}
	_, err := s.allocObject()
	require.ErrorIs(t, err, ErrSlabFull, "search is bounded by objnum, not bitmap capacity")
}

func TestSlab_ClampsToBitmapCapacity(t *testing.T) {
	s := newSlab(0)
	s.set(mem.PageSize/8, 8)
	assert.Equal(t, uint32(MaxObjects), s.ObjNum())
}

func TestSlab_FreeRejects(t *testing.T) {
	s := newSlab(0x8000)
	s.set(16, 256)
	addr, err := s.allocObject()
	require.NoError(t, err)

	tests := []struct {
		name string
		addr uint32
		want error
	}{
		{"below slab", 0x7FF0, ErrBadAddress},
		{"past slab", 0x9000, ErrBadAddress},
		{"misaligned", addr + 8, ErrBadAddress},
		{"never allocated", addr + 256, ErrDoubleFree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.freeObject(tt.addr)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, uint32(1), s.InUse())
		})
	}

	_, err = s.freeObject(addr)
	require.NoError(t, err)
	_, err = s.freeObject(addr)
	require.ErrorIs(t, err, ErrDoubleFree)
	assert.Zero(t, s.InUse())
}

func TestSlab_PastObjnum(t *testing.T) {
	s := newSlab(0)
	s.set(3, 1024)
	_, err := s.freeObject(3 * 1024)
	require.ErrorIs(t, err, ErrBadAddress)
}

func TestSlab_UnassignedRejectsFree(t *testing.T) {
	s := newSlab(0x1000)
	_, err := s.freeObject(0x1000)
	require.ErrorIs(t, err, ErrBadAddress)
}
