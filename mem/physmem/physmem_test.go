package physmem

import (
	"io"
	"testing"

	"github.com/joshuapare/exokit/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRAM(t *testing.T, size int) *RAM {
	t.Helper()
	r, err := New(size)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestNew_RoundsToPages(t *testing.T) {
	r := newTestRAM(t, mem.PageSize+1)
	assert.Equal(t, 2*mem.PageSize, r.Size())

	_, err := New(0)
	require.Error(t, err)
}

func TestReadWriteAt(t *testing.T) {
	r := newTestRAM(t, 2*mem.PageSize)

	n, err := r.WriteAt([]byte("exokit"), 0x1000)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	got := make([]byte, 6)
	_, err = r.ReadAt(got, 0x1000)
	require.NoError(t, err)
	assert.Equal(t, "exokit", string(got))

	_, err = r.WriteAt([]byte{1, 2}, int64(r.Size()-1))
	require.ErrorIs(t, err, ErrOutOfRange)

	tail := make([]byte, 4)
	n, err = r.ReadAt(tail, int64(r.Size()-2))
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestZero(t *testing.T) {
	r := newTestRAM(t, 2*mem.PageSize)

	page, err := r.Bytes(mem.PageSize, mem.PageSize)
	require.NoError(t, err)
	for i := range page {
		page[i] = 0xAA
	}

	require.NoError(t, r.Zero(mem.PageSize, mem.PageSize))
	for i, b := range page {
		require.Zero(t, b, "byte %d not cleared", i)
	}

	require.ErrorIs(t, r.Zero(mem.PageSize, mem.PageSize+1), ErrOutOfRange)
}

func TestBytes_Range(t *testing.T) {
	r := newTestRAM(t, mem.PageSize)

	b, err := r.Bytes(0, mem.PageSize)
	require.NoError(t, err)
	assert.Len(t, b, mem.PageSize)

	b, err = r.Bytes(mem.PageSize, 0)
	require.NoError(t, err)
	assert.Empty(t, b)

	_, err = r.Bytes(mem.PageSize-1, 2)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = r.Bytes(0xFFFFFFFF, 1)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = r.Bytes(0, -1)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestClose_Idempotent(t *testing.T) {
	r, err := New(mem.PageSize)
	require.NoError(t, err)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}
