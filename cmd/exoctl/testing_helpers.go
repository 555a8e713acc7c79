package main

import (
	"bytes"
	"os"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"

	"github.com/joshuapare/exokit/internal/machine"
)

// resetFlags restores every global flag to its default.
func resetFlags(t *testing.T) {
	t.Helper()
	def := machine.DefaultConfig()

	verbose, quiet, jsonOut, noColor = false, false, false, true
	memMiB = def.MemMiB
	kernelStart = def.Layout.KernelStart
	kernelSize = def.Layout.KernelSize()
	stackSize = def.Layout.StackSize
	cmdline = ""
	kernelOnly = false

	mapFrom, mapCount, mapWidth = 0, 512, 64
	slabAllocs = nil
	exerciseSeed, exerciseSteps = 1, 5000
}

// captureOutput captures stdout while running a function
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	// Save original stdout
	origStdout := os.Stdout

	// Create a pipe to capture output
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}

	// Redirect stdout to pipe
	os.Stdout = w

	// Drain concurrently so large outputs cannot fill the pipe
	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		_, _ = buf.ReadFrom(r)
		close(done)
	}()

	// Run function
	fnErr := fn()

	// Close write end and restore stdout
	w.Close()
	os.Stdout = origStdout
	<-done

	return buf.String(), fnErr
}

// assertJSON checks that output is valid JSON
func assertJSON(t *testing.T, output string) {
	t.Helper()
	var result any
	if err := jsoniter.Unmarshal([]byte(output), &result); err != nil {
		t.Errorf("invalid JSON output: %v\nOutput: %s", err, output)
	}
}

// assertContains checks that output contains all expected strings
func assertContains(t *testing.T, output string, expected []string) {
	t.Helper()
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("output missing expected string %q\nGot: %s", want, output)
		}
	}
}
