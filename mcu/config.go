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

package mcu

import (
	"github.com/pkg/errors"

	. "github.com/swarmsim/dwns/types"
)

// Timing holds the protocol's busy costs (seconds) and loop bounds (cycles).
type Timing struct {
	ChannelSenseTime      float64 `yaml:"channel_sense_time"`
	TxSetupTime           float64 `yaml:"tx_setup_time"`
	Airtime               float64 `yaml:"airtime"`
	SleepTime             float64 `yaml:"sleep_time"`
	BroadcastCycles       uint64  `yaml:"broadcast_cycles"`
	ScanCycles            uint64  `yaml:"scan_cycles"`
	ResponseWindowCycles  uint64  `yaml:"response_window_cycles"`
	AckTimeoutCycles      uint64  `yaml:"ack_timeout_cycles"`
	RespondCycles         uint64  `yaml:"respond_cycles"`
	MaxResponseWaitCycles uint64  `yaml:"max_response_wait_cycles"`
	DataSendCycles        uint64  `yaml:"data_send_cycles"`
}

func DefaultTiming() Timing {
	return Timing{
		ChannelSenseTime:      0.005,
		TxSetupTime:           0.001,
		Airtime:               0.020,
		SleepTime:             1.0,
		BroadcastCycles:       2000,
		ScanCycles:            2500,
		ResponseWindowCycles:  3000,
		AckTimeoutCycles:      150,
		RespondCycles:         2000,
		MaxResponseWaitCycles: 60,
		DataSendCycles:        500,
	}
}

// Config is the read-only protocol configuration shared by all nodes.
type Config struct {
	NumChannels         int
	GroupMax            int
	TimeResolution      float64
	BroadcastPercentage int
	GroupCycleInterval  uint64
	Broadcasters        []NodeId // if not empty, exactly these nodes broadcast in every group cycle
	StoredMessagesMax   int
	Timing              Timing
}

func DefaultConfig() *Config {
	return &Config{
		NumChannels:         16,
		GroupMax:            5,
		TimeResolution:      0.001,
		BroadcastPercentage: 20,
		GroupCycleInterval:  20000,
		StoredMessagesMax:   64,
		Timing:              DefaultTiming(),
	}
}

func (cfg *Config) Validate() error {
	if cfg.NumChannels < 1 {
		return errors.Errorf("channel count must be positive, got %d", cfg.NumChannels)
	}
	if cfg.GroupMax < 1 {
		return errors.Errorf("group size must be positive, got %d", cfg.GroupMax)
	}
	if cfg.TimeResolution <= 0 {
		return errors.Errorf("time resolution must be positive, got %v", cfg.TimeResolution)
	}
	if cfg.BroadcastPercentage < 0 || cfg.BroadcastPercentage > 100 {
		return errors.Errorf("broadcast percentage must be within 0..100, got %d", cfg.BroadcastPercentage)
	}
	if cfg.GroupCycleInterval == 0 {
		return errors.New("group cycle interval must be positive")
	}
	t := &cfg.Timing
	if t.ChannelSenseTime < 0 || t.TxSetupTime < 0 || t.Airtime < 0 || t.SleepTime < 0 {
		return errors.New("protocol busy times must not be negative")
	}
	return nil
}

// busyCost returns the time charged when f is entered.
func (cfg *Config) busyCost(f function) float64 {
	switch f.Id() {
	case FuncCheckChannelBusy:
		return cfg.Timing.ChannelSenseTime
	case FuncTransmitMessageBegin:
		return cfg.Timing.TxSetupTime
	case FuncTransmitMessageComplete:
		return cfg.Timing.Airtime
	case FuncSleep:
		return cfg.Timing.SleepTime
	case FuncDelay:
		return float64(f.(*delayFn).cycles) * cfg.TimeResolution
	default:
		return 0
	}
}
