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
	"fmt"
	"math"
	"strings"

	"github.com/pkg/errors"

	"github.com/swarmsim/dwns/energy"
	"github.com/swarmsim/dwns/kinematics"
	"github.com/swarmsim/dwns/logger"
	"github.com/swarmsim/dwns/mcu"
	"github.com/swarmsim/dwns/prng"
	"github.com/swarmsim/dwns/progctx"
	"github.com/swarmsim/dwns/radiomodel"
	"github.com/swarmsim/dwns/report"
	report_multi "github.com/swarmsim/dwns/report/multi"
	report_nodefile "github.com/swarmsim/dwns/report/nodefile"
	report_statslog "github.com/swarmsim/dwns/report/statslog"
	. "github.com/swarmsim/dwns/types"
)

type Simulation struct {
	ctx            *progctx.ProgCtx
	stopped        bool
	cfg            *Config
	mcuCfg         *mcu.Config
	kin            *kinematics.Params
	medium         *radiomodel.Medium
	nodes          []*Node
	ground         *GroundStation
	energyAnalyser *energy.EnergyAnalyser
	kpiMgr         *KpiManager
	reporters      *report_multi.MultiReporter
	watchLevel     logger.Level

	cycle       uint64
	reportEvery uint64
	maxCycles   uint64 // 0 means no limit
}

// NewSimulation creates all nodes from cfg. The config must not be changed afterwards.
func NewSimulation(ctx *progctx.ProgCtx, cfg *Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid simulation config")
	}
	watchLevel, _ := logger.ParseLevelString(cfg.TerminalOutput.Watch)

	s := &Simulation{
		ctx:            ctx,
		cfg:            cfg,
		mcuCfg:         cfg.McuConfig(),
		kin:            cfg.KinematicsParams(),
		medium:         radiomodel.NewMedium(radiomodel.NewMediumParams(), cfg.Nodes.Channels),
		ground:         NewGroundStation(cfg.Nodes.Channels),
		energyAnalyser: energy.NewEnergyAnalyser(cfg.Program.TimeResolution),
		kpiMgr:         NewKpiManager(),
		reporters:      report_multi.NewMultiReporter(),
		watchLevel:     watchLevel,
	}
	s.reportEvery = uint64(math.Round(cfg.FileOutput.WriteInterval / cfg.Program.TimeResolution))
	if cfg.Program.MaxTime > 0 {
		s.maxCycles = uint64(math.Round(cfg.Program.MaxTime / cfg.Program.TimeResolution))
	}

	prng.Init(cfg.Program.Seed)
	logger.Infof("simulation seed %d, %d nodes, %d channels", prng.RootSeed(), cfg.Program.NodeCount,
		cfg.Nodes.Channels)

	for id := 0; id < cfg.Program.NodeCount; id++ {
		node := newNode(s, id)
		s.nodes = append(s.nodes, node)
		s.energyAnalyser.AddNode(id, 0)
	}
	s.medium.Commit()

	if cfg.FileOutput.Output {
		s.reporters.AddReporter(
			report_nodefile.NewNodefileReporter(cfg.FileOutput.OutputDir, cfg.Nodes.Channels),
			report_statslog.NewStatslogReporter(cfg.FileOutput.OutputDir),
		)
	}
	s.kpiMgr.Init(s)
	return s, nil
}

// AddReporter adds a reporting hook; it must be called before Run.
func (s *Simulation) AddReporter(r report.Reporter) {
	s.reporters.AddReporter(r)
}

func (s *Simulation) CurCycle() uint64 {
	return s.cycle
}

func (s *Simulation) CurTimeSec() float64 {
	return float64(s.cycle) * s.cfg.Program.TimeResolution
}

func (s *Simulation) Nodes() []*Node {
	return s.nodes
}

func (s *Simulation) GetNode(id NodeId) *Node {
	if id < 0 || id >= len(s.nodes) {
		return nil
	}
	return s.nodes[id]
}

func (s *Simulation) Medium() *radiomodel.Medium {
	return s.medium
}

func (s *Simulation) Ground() *GroundStation {
	return s.ground
}

func (s *Simulation) EnergyAnalyser() *energy.EnergyAnalyser {
	return s.energyAnalyser
}

func (s *Simulation) Kpi() *KpiManager {
	return s.kpiMgr
}

func (s *Simulation) OutputDir() string {
	return s.cfg.FileOutput.OutputDir
}

// Tick advances the simulation by one time resolution step.
func (s *Simulation) Tick() {
	s.cycle++

	for _, node := range s.nodes {
		node.move(s.kin)
	}
	s.medium.Commit()

	for _, node := range s.nodes {
		node.Mcu.Run()
	}

	activity := s.medium.ChannelActivity()
	s.ground.Update(activity)
	s.medium.UpdateChannelStats(activity)

	for _, node := range s.nodes {
		s.energyAnalyser.GetNode(node.Id).SetRadioState(node.Mcu.RadioState(), s.cycle)
		node.Logger.DisplayPendingLogEntries(s.cycle)
	}

	if s.reportEvery > 0 && s.cycle%s.reportEvery == 0 {
		s.energyAnalyser.StoreNetworkEnergy(s.cycle)
		s.reporters.Report(s.Snapshot())
	}
}

func (s *Simulation) AllLanded() bool {
	for _, node := range s.nodes {
		if !node.Body.Landed() {
			return false
		}
	}
	return true
}

// Done returns true once all nodes have landed or the configured max time is reached.
func (s *Simulation) Done() bool {
	if s.maxCycles > 0 && s.cycle >= s.maxCycles {
		return true
	}
	return s.AllLanded()
}

// Run ticks until Done or until the program context is cancelled.
func (s *Simulation) Run() error {
	s.reporters.Init()
	s.kpiMgr.Start()
	s.reporters.Report(s.Snapshot())

	for !s.Done() {
		if s.ctx != nil && s.ctx.Err() != nil {
			logger.Infof("simulation interrupted at cycle %d", s.cycle)
			return s.ctx.Err()
		}
		s.Tick()
	}
	logger.Debugf("simulation done at cycle %d", s.cycle)
	return nil
}

// Snapshot captures the current state of all nodes, channels and the ground station for reporting.
func (s *Simulation) Snapshot() *report.Snapshot {
	snap := &report.Snapshot{
		Cycle:      s.cycle,
		TimeSec:    s.CurTimeSec(),
		Nodes:      make([]report.NodeSnapshot, 0, len(s.nodes)),
		Channels:   make([]report.ChannelSnapshot, s.medium.NumChannels()),
		Collisions: s.medium.Collisions(),
		Ground:     s.ground.Counters(),
	}
	for _, node := range s.nodes {
		snap.Nodes = append(snap.Nodes, node.snapshot(s))
	}
	for ch, n := range s.medium.ChannelActivity() {
		stats := s.medium.GetChannelStats(ch)
		snap.Channels[ch] = report.ChannelSnapshot{
			Transmitters:   n,
			TxTicks:        stats.TxTicks,
			CollisionTicks: stats.CollisionTicks,
		}
	}
	return snap
}

type Summary struct {
	TimeSec      float64
	Cycles       uint64
	Collisions   uint64
	Ground       report.GroundCounters
	Nodes        int
	Broadcasters int
	Members      int
	Landed       int
}

func (s *Simulation) Summary() Summary {
	sum := Summary{
		TimeSec:    s.CurTimeSec(),
		Cycles:     s.cycle,
		Collisions: s.medium.Collisions(),
		Ground:     s.ground.Counters(),
		Nodes:      len(s.nodes),
	}
	for _, node := range s.nodes {
		switch {
		case node.Mcu.IsBroadcaster():
			sum.Broadcasters++
		case node.Mcu.GroupChannel() != InvalidChannel:
			sum.Members++
		}
		if node.Body.Landed() {
			sum.Landed++
		}
	}
	return sum
}

func (sum Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Simulated time       : %.3f s (%d cycles)\n", sum.TimeSec, sum.Cycles)
	fmt.Fprintf(&sb, "Receive collisions   : %d\n", sum.Collisions)
	fmt.Fprintf(&sb, "Ground messages      : %d\n", sum.Ground.MessagesReceived)
	fmt.Fprintf(&sb, "Ground collisions    : %d\n", sum.Ground.CollisionsDetected)
	fmt.Fprintf(&sb, "Broadcasters         : %d of %d nodes\n", sum.Broadcasters, sum.Nodes)
	fmt.Fprintf(&sb, "Grouped members      : %d\n", sum.Members)
	fmt.Fprintf(&sb, "Landed               : %d", sum.Landed)
	return sb.String()
}

// Stop finishes reporting and writes the run's output files. It can be called more than once.
func (s *Simulation) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	logger.Debugf("stopping simulation at cycle %d", s.cycle)

	s.kpiMgr.Stop()
	snap := s.Snapshot()
	s.reporters.Stop(snap)

	if s.cfg.FileOutput.Output {
		if err := s.energyAnalyser.SaveEnergyDataToFile(s.OutputDir(), s.cycle); err != nil {
			logger.Errorf("%v", err)
		}
		if s.cfg.FileOutput.Kpi {
			if err := s.kpiMgr.SaveDefaultFile(); err != nil {
				logger.Errorf("%v", err)
			}
		}
	}
	for _, node := range s.nodes {
		node.Logger.Close()
	}
}

func (s *Simulation) IsStopping() bool {
	return s.stopped || (s.ctx != nil && s.ctx.Err() != nil)
}
