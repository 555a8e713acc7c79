package main

import (
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/exokit/libos/slab"
)

func TestInfoCommand(t *testing.T) {
	tests := []struct {
		name        string
		mem         int
		cmdline     string
		json        bool
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "default machine",
			mem:         32,
			wantContain: []string{"BIOS-provided physical RAM map", "available", "Kernel Layout", "0x00100000"},
		},
		{
			name:        "cmdline",
			mem:         16,
			cmdline:     "console=ttyS0",
			wantContain: []string{"Cmdline: console=ttyS0"},
		},
		{
			name:        "json",
			mem:         64,
			json:        true,
			wantContain: []string{`"boot_loader_name": "exokit"`, `"used_pages"`},
		},
		{
			name:    "too little memory",
			mem:     1,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(t)
			memMiB = tt.mem
			cmdline = tt.cmdline
			jsonOut = tt.json

			output, err := captureOutput(t, runInfo)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err, "output: %s", output)
			if tt.json {
				assertJSON(t, output)
			}
			assertContains(t, output, tt.wantContain)
		})
	}
}

func TestMapCommand(t *testing.T) {
	resetFlags(t)
	mapCount = 128
	mapWidth = 32

	output, err := captureOutput(t, runMap)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(output), "\n")
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Contains(t, output, "0x00000000 R")
	assert.Contains(t, output, "R reserved 2")
	assert.Contains(t, output, "S slab")
}

func TestMapCommand_JSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	mapFrom = 0
	mapCount = 20

	output, err := captureOutput(t, runMap)
	require.NoError(t, err)

	var out mapOutput
	require.NoError(t, jsoniter.Unmarshal([]byte(output), &out))
	require.Len(t, out.Frames, 20)
	assert.Equal(t, byte('R'), out.Frames[0])
	assert.Equal(t, byte('S'), out.Frames[1], "slab table page")
	assert.Equal(t, byte('R'), out.Frames[16])
	assert.Equal(t, byte('.'), out.Frames[2])
}

func TestMapCommand_BadArgs(t *testing.T) {
	resetFlags(t)
	mapWidth = 0
	_, err := captureOutput(t, runMap)
	require.Error(t, err)
}

func TestSlabCommand(t *testing.T) {
	resetFlags(t)
	slabAllocs = []uint{8, 8, 100, 2048}

	output, err := captureOutput(t, runSlab)
	require.NoError(t, err)
	assertContains(t, output, []string{"kmalloc-8", "kmalloc-2k", "3 assigned / 64 total", "malloc(100) = 0x"})
}

func TestSlabCommand_JSON(t *testing.T) {
	resetFlags(t)
	jsonOut = true
	slabAllocs = []uint{64}

	output, err := captureOutput(t, runSlab)
	require.NoError(t, err)

	var out slabOutput
	require.NoError(t, jsoniter.Unmarshal([]byte(output), &out))
	require.Len(t, out.Allocations, 1)
	assert.Equal(t, 1, out.Stats.SlabsAssigned)
	assert.Equal(t, uint32(1), out.Stats.Caches[slab.CacheIndex(64)].InUse)
}

func TestSlabCommand_Errors(t *testing.T) {
	resetFlags(t)
	slabAllocs = []uint{4096}
	_, err := captureOutput(t, runSlab)
	require.ErrorIs(t, err, slab.ErrBadSize)

	resetFlags(t)
	kernelOnly = true
	_, err = captureOutput(t, runSlab)
	require.Error(t, err)
}

func TestExerciseCommand(t *testing.T) {
	resetFlags(t)
	exerciseSteps = 500

	output, err := captureOutput(t, runExercise)
	require.NoError(t, err)
	assertContains(t, output, []string{"allocpg(1) = 0x00002000", "allocpg(2) = 0x00003000", "seed 1, 500 steps"})
}

func TestExerciseCommand_KernelOnlyJSON(t *testing.T) {
	resetFlags(t)
	kernelOnly = true
	jsonOut = true

	output, err := captureOutput(t, runExercise)
	require.NoError(t, err)
	assertJSON(t, output)
	assert.NotContains(t, output, "workload")
	assert.Contains(t, output, `"first": 4096`)
}

func TestMachineConfigFromFlags(t *testing.T) {
	resetFlags(t)
	memMiB = 64
	kernelStart = 0x200000
	kernelSize = 0x80000
	stackSize = 0x8000

	cfg := machineConfig()
	assert.Equal(t, 64, cfg.MemMiB)
	assert.Equal(t, uint32(0x200000), cfg.Layout.KernelStart)
	assert.Equal(t, uint32(0x280000), cfg.Layout.KernelEnd)
	assert.Equal(t, uint32(0x8000), cfg.Layout.StackSize)
}
