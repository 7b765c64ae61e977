package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd(t *testing.T) {
	t.Parallel()
	out := filepath.Join(t.TempDir(), "curves.png")

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--n", "400", "--seed", "3", "--out", out, "--log-level", "error", "--robust"})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, stdout.String(), "variance=robust (sandwich)")
	assert.Contains(t, stdout.String(), "Saved Kaplan-Meier plot to "+out)
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("n: 700\nseed: 9\nbootstrap: 20\n"), 0o644))

	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--seed", "11"}))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, 700, cfg.N)
	assert.Equal(t, uint64(11), cfg.Seed, "flags override the file")
	assert.Equal(t, 20, cfg.Bootstrap)
	assert.Equal(t, "km.png", cfg.Plot.Out)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags(nil))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 2000, cfg.N)
	assert.Equal(t, uint64(42), cfg.Seed)
}

func TestRootCmdInvalidFlags(t *testing.T) {
	t.Parallel()
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--n=-5"})
	assert.ErrorContains(t, cmd.Execute(), "n must be positive")

	cmd = newRootCmd()
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorContains(t, cmd.Execute(), "reading config file")
}

func TestRootCmdReportsFailureOnce(t *testing.T) {
	t.Parallel()

	// flag and config errors happen before the logger exists, so main prints them
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--n=-5"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.False(t, errors.As(err, new(loggedError)))

	// analysis failures are logged by the command itself
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cmd = newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--log-level=error", "--out", filepath.Join(t.TempDir(), "km.png")})
	err = cmd.ExecuteContext(ctx)
	require.Error(t, err)
	assert.True(t, errors.As(err, new(loggedError)))
	assert.ErrorIs(t, err, context.Canceled)
}
