// Package kernel wires the boot sequence of the exokernel: it reads the boot
// information block out of physical memory, brings up the physical page
// allocator and installs the system call table.
package kernel

import (
	"errors"
	"fmt"

	"github.com/joshuapare/exokit/internal/logger"
	"github.com/joshuapare/exokit/kernel/multiboot"
	"github.com/joshuapare/exokit/kernel/pmm"
	"github.com/joshuapare/exokit/kernel/syscall"
	"github.com/joshuapare/exokit/mem/physmem"
)

// Kernel is a booted kernel instance.
type Kernel struct {
	ram      physmem.Memory
	info     *multiboot.Info
	pages    *pmm.Allocator
	syscalls *syscall.Dispatcher
}

// Boot brings the kernel up from the boot information at infoAddr.
//
// A boot information block without a memory map is fatal: Boot panics, as
// the page allocator cannot be built without one. Any other failure is
// returned.
func Boot(ram physmem.Memory, infoAddr uint32, layout pmm.Layout) (*Kernel, error) {
	info, err := multiboot.Load(ram, infoAddr)
	if err != nil {
		return nil, fmt.Errorf("kernel: load boot info: %w", err)
	}
	logger.L.Info("booting", "loader", info.BootLoaderName, "cmdline", info.Cmdline)

	pages, err := pmm.Init(info, layout, ram)
	if err != nil {
		if errors.Is(err, pmm.ErrNoMemoryMap) {
			halt(err)
		}
		return nil, fmt.Errorf("kernel: init physical memory manager: %w", err)
	}
	logger.L.Info("initialized physical memory manager")

	k := &Kernel{
		ram:      ram,
		info:     info,
		pages:    pages,
		syscalls: syscall.NewDispatcher(pages),
	}
	logger.L.Info("initialized syscall table", "vector", fmt.Sprintf("%#x", syscall.Vector))
	return k, nil
}

// halt stops the kernel on an unrecoverable boot error.
func halt(err error) {
	logger.L.Error("kernel panic", "err", err)
	panic(fmt.Errorf("kernel panic: %w", err))
}

// Trap raises the system call vector with regs.
func (k *Kernel) Trap(regs *syscall.Regs) {
	k.syscalls.Trap(regs)
}

// Pages returns the physical page allocator.
func (k *Kernel) Pages() *pmm.Allocator { return k.pages }

// Syscalls returns the system call dispatcher.
func (k *Kernel) Syscalls() *syscall.Dispatcher { return k.syscalls }

// Info returns the boot information the kernel was started with.
func (k *Kernel) Info() *multiboot.Info { return k.info }

// RAM returns the physical memory device.
func (k *Kernel) RAM() physmem.Memory { return k.ram }
