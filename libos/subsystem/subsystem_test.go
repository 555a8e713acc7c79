package subsystem

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	name    string
	log     *[]string
	initErr error
	runErr  error
	exitErr error
}

func (r *recorder) Init() error {
	*r.log = append(*r.log, "init "+r.name)
	return r.initErr
}

func (r *recorder) Run() error {
	*r.log = append(*r.log, "run "+r.name)
	return r.runErr
}

func (r *recorder) Exit() error {
	*r.log = append(*r.log, "exit "+r.name)
	return r.exitErr
}

func (r *recorder) Name() string { return r.name }

func TestManager_StartStop(t *testing.T) {
	var log []string
	m := NewManager(&recorder{name: "a", log: &log}, &recorder{name: "b", log: &log})

	require.NoError(t, m.Start())
	require.NoError(t, m.Stop())
	assert.Equal(t, []string{"init a", "run a", "init b", "run b", "exit b", "exit a"}, log)
	assert.Len(t, m.Subsystems(), 2)
}

func TestManager_InitFailureUnwinds(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	m := NewManager(
		&recorder{name: "a", log: &log},
		&recorder{name: "b", log: &log, initErr: boom},
		&recorder{name: "c", log: &log},
	)

	err := m.Start()
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "init b")
	assert.Equal(t, []string{"init a", "run a", "init b", "exit a"}, log)
}

func TestManager_RunFailureExitsFailedSubsystem(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	m := NewManager(&recorder{name: "a", log: &log, runErr: boom})

	require.ErrorIs(t, m.Start(), boom)
	assert.Equal(t, []string{"init a", "run a", "exit a"}, log)
}

func TestManager_StopJoinsErrors(t *testing.T) {
	var log []string
	e1, e2 := errors.New("e1"), errors.New("e2")
	m := NewManager(&recorder{name: "a", log: &log, exitErr: e1}, &recorder{name: "b", log: &log, exitErr: e2})

	require.NoError(t, m.Start())
	err := m.Stop()
	require.ErrorIs(t, err, e1)
	require.ErrorIs(t, err, e2)

	log = nil
	require.NoError(t, m.Stop(), "second stop is a no-op")
	assert.Empty(t, log)
}
