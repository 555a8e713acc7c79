// Package subsystem defines the lifecycle shared by library OS subsystems and
// a manager that drives them in order.
package subsystem

import (
	"errors"
	"fmt"

	"github.com/joshuapare/exokit/internal/logger"
)

// Subsystem is one component of the library OS.
type Subsystem interface {
	// Init acquires the resources the subsystem needs.
	Init() error
	// Run finishes setup once every earlier subsystem is up.
	Run() error
	// Exit releases what Init acquired.
	Exit() error
	Name() string
}

// Manager starts subsystems in registration order and stops them in reverse.
type Manager struct {
	subs    []Subsystem
	started int
}

// NewManager returns a manager over subs.
func NewManager(subs ...Subsystem) *Manager {
	return &Manager{subs: subs}
}

// Subsystems returns the registered subsystems in start order.
func (m *Manager) Subsystems() []Subsystem { return m.subs }

// Start initializes and runs each subsystem. The first failure stops the
// sequence; subsystems already started are exited in reverse order and the
// failure is returned.
func (m *Manager) Start() error {
	for _, s := range m.subs {
		if err := s.Init(); err != nil {
			return m.abort(fmt.Errorf("init %s: %w", s.Name(), err))
		}
		m.started++
		logger.L.Info("initialized subsystem", "name", s.Name())

		if err := s.Run(); err != nil {
			return m.abort(fmt.Errorf("run %s: %w", s.Name(), err))
		}
	}
	return nil
}

func (m *Manager) abort(err error) error {
	if stopErr := m.Stop(); stopErr != nil {
		return errors.Join(err, stopErr)
	}
	return err
}

// Stop exits every started subsystem in reverse order and returns all
// failures joined.
func (m *Manager) Stop() error {
	var errs []error
	for i := m.started - 1; i >= 0; i-- {
		s := m.subs[i]
		if err := s.Exit(); err != nil {
			errs = append(errs, fmt.Errorf("exit %s: %w", s.Name(), err))
			continue
		}
		logger.L.Info("shutdown subsystem", "name", s.Name())
	}
	m.started = 0
	return errors.Join(errs...)
}
