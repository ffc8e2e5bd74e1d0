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
	"bytes"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/swarmsim/dwns/kinematics"
	"github.com/swarmsim/dwns/logger"
	"github.com/swarmsim/dwns/mcu"
	"github.com/swarmsim/dwns/sensor"
	. "github.com/swarmsim/dwns/types"
)

const (
	DefaultNodeCount        = 5
	DefaultGravity          = 9.80665
	DefaultStartZ           = 30000.0
	DefaultTimeResolution   = 0.001
	DefaultTerminalVelocity = 8.0
	DefaultSpreadFactor     = 20.0
	DefaultPowerOutput      = 20.0
	DefaultWriteInterval    = 1.0
	DefaultOutputDir        = "output"
)

type ProgramConfig struct {
	NodeCount           int     `yaml:"node_count"`
	Gravity             float64 `yaml:"gravity"`
	TimeResolution      float64 `yaml:"time_resolution"`
	BroadcastPercentage int     `yaml:"broadcast_percentage"`
	Seed                int64   `yaml:"seed"` // 0 picks a time-based seed
	GroupCycleInterval  uint64  `yaml:"group_cycle_interval"`
	MaxTime             float64 `yaml:"max_time"` // seconds; 0 runs until all nodes landed
}

type FileOutputConfig struct {
	Output        bool    `yaml:"output"`
	WriteInterval float64 `yaml:"write_interval"`
	OutputDir     string  `yaml:"out_dir"`
	NodeLogs      bool    `yaml:"node_logs"`
	Kpi           bool    `yaml:"kpi"`
}

type TerminalOutputConfig struct {
	Log   string `yaml:"log"`
	Watch string `yaml:"watch"`
}

type NodesConfig struct {
	StartX           float64 `yaml:"start_x"`
	StartY           float64 `yaml:"start_y"`
	StartZ           float64 `yaml:"start_z"`
	TerminalVelocity float64 `yaml:"terminal_velocity"`
	SpreadFactor     float64 `yaml:"spread_factor"`
	PowerOutput      DbValue `yaml:"power_output"`
	GroupMax         int     `yaml:"group_max"`
	Channels         int     `yaml:"channels"`
}

type ProtocolConfig struct {
	mcu.Timing        `yaml:",inline"`
	StoredMessagesMax int `yaml:"stored_messages_max"`
}

// Config is the complete simulation configuration. It mirrors the sections of the YAML config file.
type Config struct {
	Program        ProgramConfig        `yaml:"program"`
	FileOutput     FileOutputConfig     `yaml:"file_output"`
	TerminalOutput TerminalOutputConfig `yaml:"terminal_output"`
	Nodes          NodesConfig          `yaml:"nodes"`
	Sensors        []int                `yaml:"sensors,flow"`
	Protocol       ProtocolConfig       `yaml:"protocol"`
	Broadcasters   []NodeId             `yaml:"broadcasters,flow"`
}

func DefaultConfig() *Config {
	mcuDefaults := mcu.DefaultConfig()
	return &Config{
		Program: ProgramConfig{
			NodeCount:           DefaultNodeCount,
			Gravity:             DefaultGravity,
			TimeResolution:      DefaultTimeResolution,
			BroadcastPercentage: mcuDefaults.BroadcastPercentage,
			GroupCycleInterval:  mcuDefaults.GroupCycleInterval,
		},
		FileOutput: FileOutputConfig{
			WriteInterval: DefaultWriteInterval,
			OutputDir:     DefaultOutputDir,
			Kpi:           true,
		},
		TerminalOutput: TerminalOutputConfig{
			Log:   logger.GetLevelString(logger.DefaultLevel),
			Watch: logger.OffLevelString,
		},
		Nodes: NodesConfig{
			StartZ:           DefaultStartZ,
			TerminalVelocity: DefaultTerminalVelocity,
			SpreadFactor:     DefaultSpreadFactor,
			PowerOutput:      DefaultPowerOutput,
			GroupMax:         mcuDefaults.GroupMax,
			Channels:         mcuDefaults.NumChannels,
		},
		Protocol: ProtocolConfig{
			Timing:            mcuDefaults.Timing,
			StoredMessagesMax: mcuDefaults.StoredMessagesMax,
		},
	}
}

// LoadConfigFile reads a YAML config file on top of the values already in cfg. Unknown keys are an error.
func (cfg *Config) LoadConfigFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "reading config file %s", path)
	}
	return cfg.LoadConfig(data)
}

func (cfg *Config) LoadConfig(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return errors.Wrap(err, "parsing config")
	}
	return nil
}

// Validate checks the config for values the simulation can't run with.
func (cfg *Config) Validate() error {
	p := &cfg.Program
	if p.NodeCount < 1 || p.NodeCount > MaxNodeId {
		return errors.Errorf("node count must be within 1..%d, got %d", MaxNodeId, p.NodeCount)
	}
	if p.TimeResolution <= 0 {
		return errors.Errorf("time resolution must be positive, got %v", p.TimeResolution)
	}
	if p.MaxTime < 0 {
		return errors.Errorf("max time must not be negative, got %v", p.MaxTime)
	}
	if cfg.FileOutput.WriteInterval < p.TimeResolution {
		return errors.Errorf("write interval %v is shorter than the time resolution", cfg.FileOutput.WriteInterval)
	}
	if cfg.Nodes.TerminalVelocity <= 0 {
		return errors.Errorf("terminal velocity must be positive, got %v", cfg.Nodes.TerminalVelocity)
	}
	if cfg.Nodes.SpreadFactor < 0 || cfg.Nodes.SpreadFactor > 100 {
		return errors.Errorf("spread factor must be within 0..100, got %v", cfg.Nodes.SpreadFactor)
	}
	for _, code := range cfg.Sensors {
		if _, err := sensor.ParseType(code); err != nil {
			return err
		}
	}
	for _, id := range cfg.Broadcasters {
		if id < 0 || id >= p.NodeCount {
			return errors.Errorf("broadcaster id %d out of range 0..%d", id, p.NodeCount-1)
		}
	}
	if _, err := logger.ParseLevelString(cfg.TerminalOutput.Log); err != nil {
		return errors.Wrap(err, "terminal_output.log")
	}
	if _, err := logger.ParseLevelString(cfg.TerminalOutput.Watch); err != nil {
		return errors.Wrap(err, "terminal_output.watch")
	}
	return cfg.McuConfig().Validate()
}

// McuConfig derives the protocol configuration shared by all nodes.
func (cfg *Config) McuConfig() *mcu.Config {
	return &mcu.Config{
		NumChannels:         cfg.Nodes.Channels,
		GroupMax:            cfg.Nodes.GroupMax,
		TimeResolution:      cfg.Program.TimeResolution,
		BroadcastPercentage: cfg.Program.BroadcastPercentage,
		GroupCycleInterval:  cfg.Program.GroupCycleInterval,
		Broadcasters:        cfg.Broadcasters,
		StoredMessagesMax:   cfg.Protocol.StoredMessagesMax,
		Timing:              cfg.Protocol.Timing,
	}
}

func (cfg *Config) KinematicsParams() *kinematics.Params {
	return &kinematics.Params{
		Gravity:          cfg.Program.Gravity,
		TerminalVelocity: cfg.Nodes.TerminalVelocity,
		SpreadFactor:     cfg.Nodes.SpreadFactor,
		TimeResolution:   cfg.Program.TimeResolution,
	}
}

func (cfg *Config) SensorTypes() []sensor.Type {
	res := make([]sensor.Type, 0, len(cfg.Sensors))
	for _, code := range cfg.Sensors {
		t, err := sensor.ParseType(code)
		logger.PanicIfError(err)
		res = append(res, t)
	}
	return res
}
