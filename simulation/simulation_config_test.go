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

package simulation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 16, cfg.McuConfig().NumChannels)
	assert.Equal(t, uint64(20000), cfg.McuConfig().GroupCycleInterval)
	assert.Equal(t, 0.001, cfg.KinematicsParams().TimeResolution)
}

func TestLoadConfig(t *testing.T) {
	cfg := DefaultConfig()
	data := []byte(`
program:
  node_count: 12
  seed: 42
  broadcast_percentage: 30
nodes:
  start_z: 1000
  channels: 4
sensors: [0, 2, 3]
protocol:
  airtime: 0.01
  broadcast_cycles: 500
broadcasters: [0, 3]
`)
	require.NoError(t, cfg.LoadConfig(data))
	assert.NoError(t, cfg.Validate())

	assert.Equal(t, 12, cfg.Program.NodeCount)
	assert.Equal(t, int64(42), cfg.Program.Seed)
	assert.Equal(t, 1000.0, cfg.Nodes.StartZ)
	assert.Equal(t, 4, cfg.Nodes.Channels)
	assert.Equal(t, []int{0, 2, 3}, cfg.Sensors)
	assert.Equal(t, 0.01, cfg.Protocol.Airtime)
	assert.Equal(t, uint64(500), cfg.Protocol.BroadcastCycles)
	assert.Equal(t, []int{0, 3}, cfg.Broadcasters)

	// untouched values keep their defaults
	assert.Equal(t, DefaultGravity, cfg.Program.Gravity)
	assert.Equal(t, 0.005, cfg.Protocol.ChannelSenseTime)
	assert.Len(t, cfg.SensorTypes(), 3)
}

func TestLoadConfigUnknownKey(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadConfig([]byte("program:\n  nodes: 3\n"))
	assert.Error(t, err)
}

func TestLoadConfigFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "dwns.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("file_output:\n  output: true\n  write_interval: 0.5\n"), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadConfigFile(fn))
	assert.True(t, cfg.FileOutput.Output)
	assert.Equal(t, 0.5, cfg.FileOutput.WriteInterval)

	assert.Error(t, cfg.LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(cfg *Config)
	}{
		{"no nodes", func(cfg *Config) { cfg.Program.NodeCount = 0 }},
		{"zero resolution", func(cfg *Config) { cfg.Program.TimeResolution = 0 }},
		{"negative max time", func(cfg *Config) { cfg.Program.MaxTime = -1 }},
		{"short write interval", func(cfg *Config) { cfg.FileOutput.WriteInterval = 0.0001 }},
		{"unknown sensor", func(cfg *Config) { cfg.Sensors = []int{7} }},
		{"broadcaster out of range", func(cfg *Config) { cfg.Broadcasters = []int{5} }},
		{"no channels", func(cfg *Config) { cfg.Nodes.Channels = 0 }},
		{"zero group size", func(cfg *Config) { cfg.Nodes.GroupMax = 0 }},
		{"percentage too high", func(cfg *Config) { cfg.Program.BroadcastPercentage = 101 }},
		{"bad log level", func(cfg *Config) { cfg.TerminalOutput.Log = "loud" }},
		{"spread too high", func(cfg *Config) { cfg.Nodes.SpreadFactor = 120 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
