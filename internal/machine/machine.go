// Package machine assembles a simulated PC: physical memory, a boot
// information block left by a pretend boot loader, a booted kernel and a
// started library OS.
package machine

import (
	"errors"
	"fmt"

	"github.com/joshuapare/exokit/kernel"
	"github.com/joshuapare/exokit/kernel/multiboot"
	"github.com/joshuapare/exokit/kernel/pmm"
	"github.com/joshuapare/exokit/libos"
	"github.com/joshuapare/exokit/mem"
	"github.com/joshuapare/exokit/mem/physmem"
)

const (
	// InfoAddr is where the boot loader leaves the boot information block.
	// It is the reserved boot information frame.
	InfoAddr = 0x10000

	// MinMemMiB and MaxMemMiB bound the installed memory.
	MinMemMiB = 4
	MaxMemMiB = 3 * 1024

	// DefaultMemMiB is the installed memory when none is configured.
	DefaultMemMiB = 32
)

// Config describes the simulated machine.
type Config struct {
	MemMiB         int        // installed memory in MiB
	Layout         pmm.Layout // kernel image placement
	BootLoaderName string
	Cmdline        string
	NoMemoryMap    bool // boot without a memory map; the kernel panics
	NoLibOS        bool // boot the kernel only
}

// DefaultLayout places a 256 KiB kernel at 1 MiB.
var DefaultLayout = pmm.Layout{
	KernelStart: 0x100000,
	KernelEnd:   0x140000,
	StackSize:   pmm.DefaultStackSize,
}

// DefaultConfig returns a 32 MiB machine with the default kernel layout.
func DefaultConfig() Config {
	return Config{
		MemMiB:         DefaultMemMiB,
		Layout:         DefaultLayout,
		BootLoaderName: "exokit",
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.MemMiB < MinMemMiB || c.MemMiB > MaxMemMiB {
		return fmt.Errorf("machine: memory %d MiB outside [%d, %d]", c.MemMiB, MinMemMiB, MaxMemMiB)
	}
	if err := c.Layout.Validate(); err != nil {
		return err
	}
	top := uint64(c.Layout.BitmapAddr()) + uint64(mem.PageSize)
	if top > c.MemSize() {
		return fmt.Errorf("machine: kernel layout ends at %#x past %d MiB of memory", top, c.MemMiB)
	}
	if c.Layout.KernelStart < 0x100000 {
		return fmt.Errorf("machine: kernel start %#x below 1 MiB", c.Layout.KernelStart)
	}
	return nil
}

// MemSize returns the installed memory in bytes.
func (c Config) MemSize() uint64 { return uint64(c.MemMiB) << 20 }

// Machine is a booted simulated machine.
type Machine struct {
	cfg    Config
	ram    *physmem.RAM
	kernel *kernel.Kernel
	os     *libos.OS
}

// New powers on a machine: it writes the boot information, boots the kernel
// and starts the library OS.
func New(cfg Config) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ram, err := newRAM(int(cfg.MemSize()))
	if err != nil {
		return nil, fmt.Errorf("machine: %w", err)
	}

	// A kernel panic unwinds through here too; the RAM goes with it.
	booted := false
	defer func() {
		if !booted {
			_ = ram.Close()
		}
	}()

	m := &Machine{cfg: cfg, ram: ram}
	if err := m.boot(); err != nil {
		return nil, err
	}
	booted = true
	return m, nil
}

// newRAM installs the machine's memory. Tests replace it to observe release.
var newRAM = physmem.New

func (m *Machine) boot() error {
	info := &multiboot.Info{
		Flags:          multiboot.FlagMemory | multiboot.FlagMemMap,
		MemLower:       0x9FC00 >> 10,
		MemUpper:       uint32(m.cfg.MemSize()>>10) - 1024,
		Regions:        multiboot.StandardMemoryMap(m.cfg.MemSize()),
		Cmdline:        m.cfg.Cmdline,
		BootLoaderName: m.cfg.BootLoaderName,
	}
	if m.cfg.NoMemoryMap {
		info.Flags &^= multiboot.FlagMemMap
	}
	if info.Cmdline != "" {
		info.Flags |= multiboot.FlagCmdline
	}
	if info.BootLoaderName != "" {
		info.Flags |= multiboot.FlagBootLoaderName
	}
	if _, err := multiboot.Write(m.ram, InfoAddr, info); err != nil {
		return fmt.Errorf("machine: write boot info: %w", err)
	}

	k, err := kernel.Boot(m.ram, InfoAddr, m.cfg.Layout)
	if err != nil {
		return err
	}
	m.kernel = k

	if m.cfg.NoLibOS {
		return nil
	}
	m.os = libos.New(k)
	return m.os.Start()
}

// Config returns the machine configuration.
func (m *Machine) Config() Config { return m.cfg }

// RAM returns the physical memory.
func (m *Machine) RAM() *physmem.RAM { return m.ram }

// Kernel returns the booted kernel.
func (m *Machine) Kernel() *kernel.Kernel { return m.kernel }

// OS returns the library OS, or nil when the machine runs the kernel only.
func (m *Machine) OS() *libos.OS { return m.os }

// Close shuts the library OS down and releases the physical memory.
func (m *Machine) Close() error {
	var errs []error
	if m.os != nil {
		errs = append(errs, m.os.Shutdown())
	}
	errs = append(errs, m.ram.Close())
	return errors.Join(errs...)
}
