package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Defaults()
	assert.Equal(t, 100, c.PollMs)
	assert.Equal(t, []string{"ddg", "diff"}, c.Mode.Markers)
	assert.Equal(t, []string{"PRO"}, c.Residues.Gray)
	assert.Equal(t, "#F6851F", c.Colors.High)
	assert.Equal(t, "#CCCCCC", c.Colors.Fallback)
}

func TestParseOverlaysDefaults(t *testing.T) {
	c, err := Parse(`
poll_ms = 5000
max_polls = -3

[mode]
markers = [" DeltaDelta ", ""]

[colors]
high = "#00ff00"
low = "not-a-color"

[legend]
note = "Gray: no data"
`)
	require.NoError(t, err)
	assert.Equal(t, 2000, c.PollMs)
	assert.Equal(t, 0, c.MaxPolls)
	assert.Equal(t, []string{"deltadelta"}, c.Mode.Markers)
	assert.Equal(t, "#00FF00", c.Colors.High)
	assert.Equal(t, "#FFFFFF", c.Colors.Low)
	assert.Equal(t, "#66BB45", c.Colors.Negative)
	assert.Equal(t, []string{"PRO"}, c.Residues.Gray)
	assert.Equal(t, "Gray: no data", c.Legend.Note)
}

func TestParseZeroPollFallsBack(t *testing.T) {
	c, err := Parse("poll_ms = 0\n")
	require.NoError(t, err)
	assert.Equal(t, 100, c.PollMs)
}

func TestParseErrorReturnsDefaults(t *testing.T) {
	c, err := Parse("poll_ms = [")
	require.Error(t, err)
	assert.Equal(t, Defaults(), c)
}

func TestLoadExplicitPath(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(p, []byte("poll_ms = 250\n"), 0o644))
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 250, c.PollMs)

	c, err = Load(filepath.Join(dir, "missing.toml"))
	require.Error(t, err)
	assert.Equal(t, 100, c.PollMs)
}

func TestLoadSearchPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	_, err := Load("")
	require.Error(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dgop"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dgop", "config.toml"), []byte("max_polls = 4\n"), 0o644))
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 4, c.MaxPolls)
}
