// Package libos is the library operating system that runs on top of the
// exokernel. It owns the library subsystems and serves dynamic memory to
// library code through the SLAB allocator.
package libos

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/joshuapare/exokit/internal/logger"
	"github.com/joshuapare/exokit/libos/exo"
	"github.com/joshuapare/exokit/libos/slab"
	"github.com/joshuapare/exokit/libos/subsystem"
)

// ErrNotStarted is returned by memory calls before Start or after Shutdown.
var ErrNotStarted = errors.New("libos: not started")

// OS is a library OS instance bound to one kernel.
type OS struct {
	sys  *exo.Client
	slab *slab.Allocator
	subs *subsystem.Manager

	mu      sync.Mutex // serializes Start and Shutdown
	running atomic.Bool
}

// New builds a library OS raising system calls through trap.
func New(trap exo.Trapper) *OS {
	sys := exo.NewClient(trap)
	sa := slab.New(sys)
	return &OS{
		sys:  sys,
		slab: sa,
		subs: subsystem.NewManager(sa),
	}
}

// Start brings up every subsystem. The library OS cannot run without its
// subsystems, so any failure is returned and the OS stays stopped.
func (o *OS) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.running.Load() {
		return nil
	}
	if err := o.sys.Null(); err != nil {
		return fmt.Errorf("libos: kernel not answering: %w", err)
	}
	if err := o.subs.Start(); err != nil {
		logger.L.Error("libos start failed", "err", err)
		return fmt.Errorf("libos: %w", err)
	}
	o.running.Store(true)
	logger.L.Info("libos started", "subsystems", len(o.subs.Subsystems()))
	return nil
}

// Shutdown stops the subsystems in reverse order, returning their pages to
// the kernel.
func (o *OS) Shutdown() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.running.Swap(false) {
		return nil
	}
	if err := o.subs.Stop(); err != nil {
		return fmt.Errorf("libos: %w", err)
	}
	return nil
}

// Running reports whether Start succeeded and Shutdown has not run.
func (o *OS) Running() bool { return o.running.Load() }

// Malloc returns the address of size bytes of memory.
func (o *OS) Malloc(size uint32) (uint32, error) {
	if !o.running.Load() {
		return 0, ErrNotStarted
	}
	return o.slab.Alloc(size)
}

// Free releases memory obtained from Malloc with the same size.
func (o *OS) Free(addr, size uint32) error {
	if !o.running.Load() {
		return ErrNotStarted
	}
	return o.slab.Free(addr, size)
}

// Slab returns the SLAB allocator subsystem.
func (o *OS) Slab() *slab.Allocator { return o.slab }

// Syscalls returns the system call client.
func (o *OS) Syscalls() *exo.Client { return o.sys }
