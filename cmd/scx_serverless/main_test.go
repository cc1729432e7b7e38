package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/Gthulhu/scx_serverless/plugin"
	"github.com/Gthulhu/scx_serverless/plugin/classify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPrintSlices runs -s end to end without touching the kernel
func TestPrintSlices(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"-s", "--mode", "proportional"})

	require.NoError(t, cmd.Execute())
	got := out.String()
	assert.Contains(t, got, "profile proportional")
	assert.Contains(t, got, "ARG")
	assert.Contains(t, got, "13186.000 ms")
}

func TestRenderSlices(t *testing.T) {
	got := renderSlices("serverless", classify.Serverless())
	assert.Contains(t, got, "unbounded")
	assert.Contains(t, got, "default")
	assert.Equal(t, classify.FibArgMax-classify.FibArgMin+1, strings.Count(got, "unbounded")+strings.Count(got, "default"))
}

func TestApplyFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"-b", "16", "--mode", "fifo", "-v"}))

	cfg := plugin.DefaultConfig()
	opts := &options{batch: 16, mode: "fifo", verbose: true}
	applyFlags(cmd, opts, cfg)

	assert.Equal(t, uint32(16), cfg.Scheduler.BatchSize)
	assert.Equal(t, "fifo", cfg.Mode)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, plugin.DefaultConfig().BPF.PinPath, cfg.BPF.PinPath)
}

func TestUnknownMode(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"-s", "--mode", "nope"})
	assert.ErrorContains(t, cmd.Execute(), "unknown profile mode")
}
