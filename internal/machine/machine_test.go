package machine

import (
	"testing"

	"github.com/joshuapare/exokit/kernel/pmm"
	"github.com/joshuapare/exokit/libos/slab"
	"github.com/joshuapare/exokit/mem"
	"github.com/joshuapare/exokit/mem/physmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMachine(t *testing.T, cfg Config) *Machine {
	t.Helper()
	m, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestNew_Default(t *testing.T) {
	m := newMachine(t, DefaultConfig())

	assert.Equal(t, 32<<20, m.RAM().Size())
	assert.Equal(t, "exokit", m.Kernel().Info().BootLoaderName)
	require.NotNil(t, m.OS())
	assert.True(t, m.OS().Running())
	assert.True(t, m.OS().Slab().Stats().Initialized)
	require.NoError(t, m.checkInvariants())
}

func TestNew_BootInfoLandsInReservedFrame(t *testing.T) {
	m := newMachine(t, DefaultConfig())
	assert.Equal(t, pmm.BootInfoFrame, mem.FrameFromAddress(InfoAddr))
	assert.True(t, m.Kernel().Pages().IsUsed(pmm.BootInfoFrame))
}

func TestNew_Cmdline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cmdline = "console=ttyS0 café"
	m := newMachine(t, cfg)
	assert.Equal(t, "console=ttyS0 café", m.Kernel().Info().Cmdline)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"too little memory", func(c *Config) { c.MemMiB = 1 }},
		{"too much memory", func(c *Config) { c.MemMiB = MaxMemMiB + 1 }},
		{"kernel below 1 MiB", func(c *Config) { c.Layout.KernelStart = 0x8000 }},
		{"kernel past memory", func(c *Config) {
			c.MemMiB = 4
			c.Layout.KernelStart = 0x300000
			c.Layout.KernelEnd = 0x400000
		}},
		{"inverted layout", func(c *Config) { c.Layout.KernelEnd = c.Layout.KernelStart - 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
			_, err := New(cfg)
			require.Error(t, err)
		})
	}
	require.NoError(t, DefaultConfig().Validate())
}

func TestNew_NoMemoryMapPanics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoMemoryMap = true
	require.Panics(t, func() { _, _ = New(cfg) })
}

func TestNew_ReleasesRAMOnFailure(t *testing.T) {
	var installed []*physmem.RAM
	orig := newRAM
	newRAM = func(size int) (*physmem.RAM, error) {
		r, err := orig(size)
		if err == nil {
			installed = append(installed, r)
		}
		return r, err
	}
	t.Cleanup(func() { newRAM = orig })

	cfg := DefaultConfig()
	cfg.NoMemoryMap = true
	require.PanicsWithError(t, "kernel panic: "+pmm.ErrNoMemoryMap.Error(), func() { _, _ = New(cfg) })

	cfg = DefaultConfig()
	cfg.Cmdline = "загрузчик"
	_, err := New(cfg)
	require.Error(t, err, "boot info write fails after RAM is installed")

	require.Len(t, installed, 2)
	for _, r := range installed {
		assert.Zero(t, r.Size(), "RAM released")
	}
}

func TestNew_KernelOnly(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NoLibOS = true
	m := newMachine(t, cfg)

	assert.Nil(t, m.OS())
	_, err := m.Exercise(1, 10)
	require.Error(t, err)
}

func TestRunScenario(t *testing.T) {
	t.Run("kernel only", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.NoLibOS = true
		m := newMachine(t, cfg)
		used := m.Kernel().Pages().Stats().UsedPages

		res, err := m.RunScenario()
		require.NoError(t, err)
		assert.Equal(t, uint32(0x1000), res.First)
		assert.Equal(t, uint32(0x2000), res.Second)
		assert.Equal(t, res.First, res.Again)
		assert.Equal(t, used, m.Kernel().Pages().Stats().UsedPages)
	})

	t.Run("with libos", func(t *testing.T) {
		m := newMachine(t, DefaultConfig())

		// The slab table took the first free page.
		res, err := m.RunScenario()
		require.NoError(t, err)
		assert.Equal(t, uint32(0x2000), res.First)
		assert.Equal(t, res.First+mem.PageSize, res.Second)
		assert.Equal(t, res.First, res.Again)
	})
}

func TestExercise(t *testing.T) {
	m := newMachine(t, DefaultConfig())
	used := m.Kernel().Pages().Stats().UsedPages

	rep, err := m.Exercise(42, 3000)
	require.NoError(t, err)
	assert.Equal(t, int64(42), rep.Seed)
	assert.Positive(t, rep.Mallocs)
	assert.Positive(t, rep.Frees)
	assert.Positive(t, rep.PageAllocs)
	assert.Equal(t, used, m.Kernel().Pages().Stats().UsedPages, "workload releases everything")
	assert.Zero(t, m.OS().Slab().Stats().SlabsAssigned)
}

func TestClose_ReturnsLibOSPages(t *testing.T) {
	m, err := New(DefaultConfig())
	require.NoError(t, err)
	pages := m.Kernel().Pages()
	withOS := pages.Stats().UsedPages

	require.NoError(t, m.Close())
	assert.Equal(t, withOS-slab.SlabsPages-slab.SlabsCount, pages.Stats().UsedPages)
}
