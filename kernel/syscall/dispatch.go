package syscall

import (
	"fmt"
	"sync"

	"github.com/joshuapare/exokit/internal/logger"
)

// PageAllocator is the subset of the physical page allocator the handlers use.
type PageAllocator interface {
	Alloc(count uint32) (uint32, error)
	Free(addr, count uint32) error
}

// Handler services one system call in place on the register file.
type Handler func(regs *Regs)

// Stats counts dispatched calls.
type Stats struct {
	Calls    map[string]uint64 `json:"calls"`
	Failures map[string]uint64 `json:"failures"`
	Unknown  uint64            `json:"unknown"`
}

// Dispatcher routes traps on Vector to the syscall table.
//
// Dispatch runs with interrupts masked: the dispatcher's mutex is held for the
// whole call, so a handler can never be re-entered by another trap.
type Dispatcher struct {
	intr  sync.Mutex // held while "interrupts are disabled"
	table [tableSize]Handler
	pages PageAllocator

	calls    [tableSize]uint64
	failures [tableSize]uint64
	unknown  uint64
}

// NewDispatcher builds the syscall table over the given page allocator.
func NewDispatcher(pages PageAllocator) *Dispatcher {
	d := &Dispatcher{pages: pages}
	d.table = [tableSize]Handler{
		Null:    d.null,
		AllocPg: d.allocpg,
		FreePg:  d.freepg,
	}
	return d
}

// Trap handles interrupt Vector with the caller's registers.
func (d *Dispatcher) Trap(regs *Regs) {
	d.intr.Lock()
	defer d.intr.Unlock()

	n := Number(regs.EAX)
	if int(n) >= len(d.table) || d.table[n] == nil {
		d.unknown++
		logger.L.Error("incorrect syscall number", "number", uint32(n))
		regs.setResult(Error)
		return
	}

	logger.L.Debug("syscall begin", "name", n.String())
	d.table[n](regs)
	d.calls[n]++
	if regs.Result() != Success {
		d.failures[n]++
	}
	logger.L.Debug("syscall end", "name", n.String(), "result", regs.EAX)
}

// Stats returns a snapshot of the call counters.
func (d *Dispatcher) Stats() Stats {
	d.intr.Lock()
	defer d.intr.Unlock()

	st := Stats{
		Calls:    make(map[string]uint64),
		Failures: make(map[string]uint64),
		Unknown:  d.unknown,
	}
	for i, h := range d.table {
		if h == nil {
			continue
		}
		name := Number(i).String()
		st.Calls[name] = d.calls[i]
		st.Failures[name] = d.failures[i]
	}
	return st
}

func (d *Dispatcher) null(regs *Regs) {
	regs.setResult(Success)
}

func (d *Dispatcher) allocpg(regs *Regs) {
	count := regs.EBX

	addr, err := d.pages.Alloc(count)
	if err != nil {
		logger.L.Warn("allocpg failed", "count", count, "err", err)
		regs.setResult(Error)
		return
	}

	regs.setResult(Success)
	regs.EBX = addr
}

func (d *Dispatcher) freepg(regs *Regs) {
	addr, count := regs.EBX, regs.ECX

	if addr == 0 || count == 0 {
		regs.setResult(Error)
		return
	}

	if err := d.pages.Free(addr, count); err != nil {
		logger.L.Warn("freepg failed", "count", count, "addr", fmt.Sprintf("0x%08x", addr), "err", err)
		regs.setResult(Error)
		return
	}
	regs.setResult(Success)
}
