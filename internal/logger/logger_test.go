package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Disabled(t *testing.T) {
	t.Cleanup(func() { Init(Options{}) })

	var buf bytes.Buffer
	Init(Options{Enabled: false, Writer: &buf})
	L.Error("dropped")
	assert.Empty(t, buf.String())
}

func TestInit_LevelFilters(t *testing.T) {
	t.Cleanup(func() { Init(Options{}) })

	var buf bytes.Buffer
	Init(Options{Enabled: true, Writer: &buf, Level: slog.LevelWarn})
	L.Info("quiet")
	L.Warn("loud", "pages", 3)

	out := buf.String()
	assert.NotContains(t, out, "quiet")
	assert.Contains(t, out, "loud")
	assert.Contains(t, out, "pages=3")
}

func TestInit_JSON(t *testing.T) {
	t.Cleanup(func() { Init(Options{}) })

	var buf bytes.Buffer
	Init(Options{Enabled: true, Writer: &buf, Level: slog.LevelDebug, JSON: true})
	L.Debug("allocated", "count", 2)
	assert.Contains(t, buf.String(), `"msg":"allocated"`)
	assert.Contains(t, buf.String(), `"count":2`)
}

func TestParseLevel(t *testing.T) {
	lvl, ok := ParseLevel("DEBUG")
	require.True(t, ok)
	assert.Equal(t, slog.LevelDebug, lvl)

	lvl, ok = ParseLevel(" warning ")
	require.True(t, ok)
	assert.Equal(t, slog.LevelWarn, lvl)

	_, ok = ParseLevel("")
	assert.False(t, ok)
	_, ok = ParseLevel("verbose")
	assert.False(t, ok)
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvVar, "error")
	opts := FromEnv()
	assert.True(t, opts.Enabled)
	assert.Equal(t, slog.LevelError, opts.Level)

	t.Setenv(EnvVar, "")
	assert.False(t, FromEnv().Enabled)
}
