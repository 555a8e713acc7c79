// Package exo is the library OS side of the exokernel system call interface.
//
// Each call fills a register file, raises the syscall vector through a
// Trapper and decodes the result registers.
package exo

import (
	"errors"
	"fmt"

	"github.com/joshuapare/exokit/kernel/syscall"
	"github.com/joshuapare/exokit/mem"
)

// ErrSyscall is returned when the kernel reports failure for a call.
var ErrSyscall = errors.New("exo: syscall failed")

// Trapper raises the system call vector. *kernel.Kernel implements it.
type Trapper interface {
	Trap(regs *syscall.Regs)
}

// AllocUnit is a run of physical pages handed out by the kernel.
type AllocUnit struct {
	Addr  uint32 `json:"addr"`
	Count uint32 `json:"count"`
}

// End returns the first address past the run.
func (u AllocUnit) End() uint32 { return u.Addr + u.Count<<mem.PageShift }

// Contains reports whether addr lies inside the run.
func (u AllocUnit) Contains(addr uint32) bool {
	return addr >= u.Addr && addr < u.End()
}

func (u AllocUnit) String() string {
	return fmt.Sprintf("[0x%08x-0x%08x] %d pages", u.Addr, u.End(), u.Count)
}

// Client issues system calls on behalf of library OS code.
type Client struct {
	trap Trapper
}

// NewClient returns a client raising calls through t.
func NewClient(t Trapper) *Client {
	return &Client{trap: t}
}

func (c *Client) call(n syscall.Number, args ...uint32) (syscall.Regs, error) {
	regs := syscall.Regs{EAX: uint32(n)}
	slots := []*uint32{&regs.EBX, &regs.ECX, &regs.EDX, &regs.ESI, &regs.EDI}
	if len(args) > len(slots) {
		return regs, fmt.Errorf("exo: %s: %d arguments, at most %d fit in registers", n, len(args), len(slots))
	}
	for i, a := range args {
		*slots[i] = a
	}

	c.trap.Trap(&regs)

	if regs.Result() != syscall.Success {
		return regs, fmt.Errorf("%w: %s", ErrSyscall, n)
	}
	return regs, nil
}

// Null issues the null system call.
func (c *Client) Null() error {
	_, err := c.call(syscall.Null)
	return err
}

// AllocPg asks the kernel for count contiguous zeroed pages.
func (c *Client) AllocPg(count uint32) (AllocUnit, error) {
	regs, err := c.call(syscall.AllocPg, count)
	if err != nil {
		return AllocUnit{}, err
	}
	return AllocUnit{Addr: regs.EBX, Count: count}, nil
}

// FreePg returns a run obtained from AllocPg to the kernel.
func (c *Client) FreePg(unit AllocUnit) error {
	_, err := c.call(syscall.FreePg, unit.Addr, unit.Count)
	return err
}
