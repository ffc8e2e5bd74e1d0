// Copyright (c) 2024, The OTNS Authors.
// All rights reserved.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions are met:
// 1. Redistributions of source code must retain the above copyright
//    notice, this list of conditions and the following disclaimer.
// 2. Redistributions in binary form must reproduce the above copyright
//    notice, this list of conditions and the following disclaimer in the
//    documentation and/or other materials provided with the distribution.
// 3. Neither the name of the copyright holder nor the
//    names of its contributors may be used to endorse or promote products
//    derived from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND CONTRIBUTORS "AS IS"
// AND ANY EXPRESS OR IMPLIED WARRANTIES, INCLUDING, BUT NOT LIMITED TO, THE
// IMPLIED WARRANTIES OF MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE
// ARE DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR CONTRIBUTORS BE
// LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL, SPECIAL, EXEMPLARY, OR
// CONSEQUENTIAL DAMAGES (INCLUDING, BUT NOT LIMITED TO, PROCUREMENT OF
// SUBSTITUTE GOODS OR SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY, WHETHER IN
// CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING NEGLIGENCE OR OTHERWISE)
// ARISING IN ANY WAY OUT OF THE USE OF THIS SOFTWARE, EVEN IF ADVISED OF THE
// POSSIBILITY OF SUCH DAMAGE.

package dwns_main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmsim/dwns/progctx"
)

func TestParseArgsDefaults(t *testing.T) {
	args, set, err := parseArgs("dwns", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, set)
	assert.Equal(t, 5, args.NodeCount)
	assert.Equal(t, 16, args.Channels)
	assert.Equal(t, uint64(20000), args.CycleInterval)

	cfg, err := buildConfig(args, set)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Program.NodeCount)
	assert.False(t, cfg.FileOutput.Output)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "dwns.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(`
program:
  node_count: 20
  seed: 7
nodes:
  channels: 8
  start_z: 500
`), 0644))

	args, set, err := parseArgs("dwns", []string{"-config", fn, "-nodes", "10", "-max-time", "2.5", "-output"}, nil)
	require.NoError(t, err)
	assert.True(t, set["nodes"])
	assert.False(t, set["channels"])

	cfg, err := buildConfig(args, set)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Program.NodeCount)
	assert.Equal(t, int64(7), cfg.Program.Seed)
	assert.Equal(t, 8, cfg.Nodes.Channels)
	assert.Equal(t, 500.0, cfg.Nodes.StartZ)
	assert.Equal(t, 2.5, cfg.Program.MaxTime)
	assert.True(t, cfg.FileOutput.Output)
}

func TestBuildConfigErrors(t *testing.T) {
	args, set, err := parseArgs("dwns", []string{"-broadcast", "150"}, nil)
	require.NoError(t, err)
	_, err = buildConfig(args, set)
	assert.Error(t, err)

	args, set, err = parseArgs("dwns", []string{"-config", filepath.Join(t.TempDir(), "none.yaml")}, nil)
	require.NoError(t, err)
	_, err = buildConfig(args, set)
	assert.Error(t, err)
}

func TestParseArgsErrors(t *testing.T) {
	var out bytes.Buffer
	_, _, err := parseArgs("dwns", []string{"-nodes", "many"}, &out)
	assert.Error(t, err)

	_, _, err = parseArgs("dwns", []string{"extra"}, &out)
	assert.Error(t, err)
}

func TestUsage(t *testing.T) {
	var out bytes.Buffer
	_, _, err := parseArgs("dwns", []string{"-h"}, &out)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, out.String(), "Usage: dwns [flags]")
	assert.Contains(t, out.String(), "-max-time")
	assert.Contains(t, out.String(), "ground station")
}

func TestCreateRunDir(t *testing.T) {
	base := t.TempDir()
	now := time.Date(2024, 3, 1, 12, 30, 5, 0, time.UTC)
	dir, err := createRunDir(base, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "run", "2024-03-01T12-30-05"), dir)
	assert.DirExists(t, dir)
}

func TestMainRunsToMaxTime(t *testing.T) {
	base := t.TempDir()
	ctx := progctx.New(context.Background())
	Main(ctx, []string{"-nodes", "2", "-max-time", "0.05", "-log", "off", "-output", "-out-dir", base})

	assert.Error(t, ctx.Err())
	assert.Equal(t, 0, ctx.WaitCount())
	runs, err := os.ReadDir(filepath.Join(base, "run"))
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.FileExists(t, filepath.Join(base, "run", runs[0].Name(), "kpi.json"))
}
