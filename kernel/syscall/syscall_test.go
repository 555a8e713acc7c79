package syscall

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFake = errors.New("fake: refused")

// fakePages records calls and fails when told to.
type fakePages struct {
	next     uint32
	fail     bool
	allocs   []uint32
	freed    [][2]uint32
	freeFail bool
}

func (f *fakePages) Alloc(count uint32) (uint32, error) {
	f.allocs = append(f.allocs, count)
	if f.fail {
		return 0, errFake
	}
	addr := f.next
	f.next += count << 12
	return addr, nil
}

func (f *fakePages) Free(addr, count uint32) error {
	f.freed = append(f.freed, [2]uint32{addr, count})
	if f.freeFail {
		return errFake
	}
	return nil
}

func TestTrap_Null(t *testing.T) {
	d := NewDispatcher(&fakePages{})

	regs := Regs{EAX: uint32(Null), EBX: 7}
	d.Trap(&regs)
	assert.Equal(t, Success, regs.Result())
	assert.Equal(t, uint32(7), regs.EBX, "null leaves arguments untouched")
}

func TestTrap_AllocPg(t *testing.T) {
	pages := &fakePages{next: 0x5000}
	d := NewDispatcher(pages)

	regs := Regs{EAX: uint32(AllocPg), EBX: 3}
	d.Trap(&regs)
	require.Equal(t, Success, regs.Result())
	assert.Equal(t, uint32(0x5000), regs.EBX)
	assert.Equal(t, []uint32{3}, pages.allocs)

	regs = Regs{EAX: uint32(AllocPg), EBX: 1}
	d.Trap(&regs)
	require.Equal(t, Success, regs.Result())
	assert.Equal(t, uint32(0x8000), regs.EBX)
}

func TestTrap_AllocPgFailure(t *testing.T) {
	d := NewDispatcher(&fakePages{fail: true})

	regs := Regs{EAX: uint32(AllocPg), EBX: 1000}
	d.Trap(&regs)
	assert.Equal(t, Error, regs.Result())
	assert.Equal(t, uint32(0xFFFFFFFF), regs.EAX)
	assert.Equal(t, uint32(1000), regs.EBX, "address register is not written on failure")
}

func TestTrap_FreePg(t *testing.T) {
	pages := &fakePages{}
	d := NewDispatcher(pages)

	regs := Regs{EAX: uint32(FreePg), EBX: 0x3000, ECX: 2}
	d.Trap(&regs)
	assert.Equal(t, Success, regs.Result())
	assert.Equal(t, [][2]uint32{{0x3000, 2}}, pages.freed)

	pages.freeFail = true
	regs = Regs{EAX: uint32(FreePg), EBX: 0x3000, ECX: 2}
	d.Trap(&regs)
	assert.Equal(t, Error, regs.Result())
}

func TestTrap_FreePgRejectsZeroArguments(t *testing.T) {
	pages := &fakePages{}
	d := NewDispatcher(pages)

	for _, regs := range []Regs{
		{EAX: uint32(FreePg), EBX: 0, ECX: 1},
		{EAX: uint32(FreePg), EBX: 0x1000, ECX: 0},
	} {
		d.Trap(&regs)
		assert.Equal(t, Error, regs.Result())
	}
	assert.Empty(t, pages.freed, "zero arguments never reach the allocator")
}

func TestTrap_UnknownNumbers(t *testing.T) {
	d := NewDispatcher(&fakePages{})

	for _, n := range []uint32{uint32(Getfb), 4, 0x66, 0xFFFFFFFF} {
		regs := Regs{EAX: n}
		d.Trap(&regs)
		assert.Equal(t, Error, regs.Result(), "syscall %d", n)
	}
	assert.Equal(t, uint64(4), d.Stats().Unknown)
}

func TestStats(t *testing.T) {
	d := NewDispatcher(&fakePages{next: 0x1000})

	d.Trap(&Regs{EAX: uint32(Null)})
	d.Trap(&Regs{EAX: uint32(AllocPg), EBX: 1})
	d.Trap(&Regs{EAX: uint32(FreePg), EBX: 0, ECX: 1})
	d.Trap(&Regs{EAX: uint32(FreePg), EBX: 0x1000, ECX: 1})

	st := d.Stats()
	assert.Equal(t, map[string]uint64{"null": 1, "allocpg": 1, "freepg": 2}, st.Calls)
	assert.Equal(t, map[string]uint64{"null": 0, "allocpg": 0, "freepg": 1}, st.Failures)
	assert.NotContains(t, st.Calls, "getfb")
}

func TestNumberString(t *testing.T) {
	assert.Equal(t, "allocpg", AllocPg.String())
	assert.Equal(t, "getfb", Getfb.String())
	assert.Equal(t, "syscall(9)", Number(9).String())
}
