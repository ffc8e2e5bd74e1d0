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
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/swarmsim/dwns/logger"
	"github.com/swarmsim/dwns/radiomodel"
	"github.com/swarmsim/dwns/report"
	. "github.com/swarmsim/dwns/types"
)

const KpiFileName = "kpi.json"

type KpiManager struct {
	sim             *Simulation
	data            *Kpi
	startCounters   NodeCountersStore
	curCounters     NodeCountersStore
	startChanStats  []radiomodel.ChannelStats
	startCycle      uint64
	startCollisions uint64
	startGround     report.GroundCounters
	isRunning       bool
}

type NodeCountersStore map[NodeId]NodeCounters

func NewKpiManager() *KpiManager {
	return &KpiManager{}
}

func (km *KpiManager) Init(sim *Simulation) {
	logger.AssertNil(km.sim)
	logger.AssertFalse(km.isRunning)
	km.sim = sim
	km.data = &Kpi{Status: "ok"}
	km.startCounters = NodeCountersStore{}
	km.curCounters = NodeCountersStore{}
}

// Start begins a KPI period at the current cycle; counters and channel statistics are reported relative to it.
func (km *KpiManager) Start() {
	logger.AssertNotNil(km.sim)
	km.startCounters = km.retrieveNodeCounters()
	km.startCycle = km.sim.CurCycle()
	km.startCollisions = km.sim.medium.Collisions()
	km.startGround = km.sim.ground.Counters()
	km.startChanStats = km.retrieveChannelStats()
	km.isRunning = true
}

func (km *KpiManager) Stop() {
	if km.isRunning {
		km.curCounters = km.retrieveNodeCounters()
		km.isRunning = false
		km.calculateKpis()
	}
}

func (km *KpiManager) IsRunning() bool {
	return km.isRunning
}

func (km *KpiManager) Data() *Kpi {
	return km.data
}

func (km *KpiManager) SaveDefaultFile() error {
	return km.SaveFile(filepath.Join(km.sim.OutputDir(), KpiFileName))
}

func (km *KpiManager) SaveFile(fn string) error {
	logger.AssertNotNil(km.sim)
	if km.isRunning {
		km.curCounters = km.retrieveNodeCounters()
		km.calculateKpis()
	}

	km.data.FileTime = time.Now().Format(time.RFC3339)
	data, err := json.MarshalIndent(km.data, "", "    ")
	if err != nil {
		return errors.Wrap(err, "marshalling KPI data")
	}
	if err = os.WriteFile(fn, data, 0644); err != nil {
		return errors.Wrapf(err, "writing KPI file %s", fn)
	}
	logger.Debugf("KPI data written to %s", fn)
	return nil
}

func (km *KpiManager) retrieveNodeCounters() NodeCountersStore {
	res := make(NodeCountersStore, len(km.sim.nodes))
	for _, node := range km.sim.nodes {
		res[node.Id] = node.Mcu.Counters()
	}
	return res
}

func (km *KpiManager) retrieveChannelStats() []radiomodel.ChannelStats {
	res := make([]radiomodel.ChannelStats, km.sim.medium.NumChannels())
	for ch := range res {
		res[ch] = km.sim.medium.GetChannelStats(ch)
	}
	return res
}

func getCountersDiff(curCtr NodeCounters, startCtr NodeCounters) NodeCounters {
	ret := NodeCounters{}
	for k, v := range curCtr {
		ret[k] = v - startCtr[k] // a counter missing at start counts from 0
	}
	return ret
}

func percentOf(part, whole uint64) float64 {
	if whole == 0 {
		return 0
	}
	return 100.0 * float64(part) / float64(whole)
}

func (km *KpiManager) calculateKpis() {
	res := km.sim.cfg.Program.TimeResolution

	// time
	km.data.Cycles.Start = km.startCycle
	km.data.Cycles.End = km.sim.CurCycle()
	km.data.Cycles.Period = km.data.Cycles.End - km.data.Cycles.Start
	km.data.TimeSec.StartTimeSec = float64(km.data.Cycles.Start) * res
	km.data.TimeSec.EndTimeSec = float64(km.data.Cycles.End) * res
	km.data.TimeSec.PeriodSec = float64(km.data.Cycles.Period) * res

	// channels
	km.data.Channels = make(map[ChannelId]KpiChannel)
	for ch, cur := range km.retrieveChannelStats() {
		start := km.startChanStats[ch]
		txTicks := cur.TxTicks - start.TxTicks
		collTicks := cur.CollisionTicks - start.CollisionTicks
		km.data.Channels[ch] = KpiChannel{
			TxTicks:             txTicks,
			TxPercentage:        percentOf(txTicks, km.data.Cycles.Period),
			CollisionTicks:      collTicks,
			CollisionPercentage: percentOf(collTicks, km.data.Cycles.Period),
		}
	}

	// collisions and ground
	km.data.Collisions = km.sim.medium.Collisions() - km.startCollisions
	ground := km.sim.ground.Counters()
	km.data.Ground.MessagesReceived = ground.MessagesReceived - km.startGround.MessagesReceived
	km.data.Ground.CollisionsDetected = ground.CollisionsDetected - km.startGround.CollisionsDetected

	sum := km.sim.Summary()
	km.data.Groups = KpiGroups{
		Broadcasters: sum.Broadcasters,
		Members:      sum.Members,
		Landed:       sum.Landed,
	}

	// counters
	km.data.Counters = make(map[NodeId]NodeCounters)
	for nid, ctr := range km.curCounters {
		km.data.Counters[nid] = getCountersDiff(ctr, km.startCounters[nid])
	}
	if km.sim.ctx != nil && km.sim.ctx.Err() != nil {
		km.data.Status = "simulation interrupted"
	}
}
