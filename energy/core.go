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

package energy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/swarmsim/dwns/logger"
	. "github.com/swarmsim/dwns/types"
)

const EnergyFileName = "energy.txt"

type EnergyAnalyser struct {
	nodes                map[NodeId]*NodeRadio
	networkHistory       []NetworkConsumption
	energyHistoryByNodes [][]NodeEnergy
	timeResolution       float64
}

func (e *EnergyAnalyser) AddNode(nodeID NodeId, timestamp uint64) {
	if _, ok := e.nodes[nodeID]; ok {
		return
	}
	e.nodes[nodeID] = newNodeRadio(nodeID, timestamp)
}

func (e *EnergyAnalyser) GetNode(nodeID NodeId) *NodeRadio {
	return e.nodes[nodeID]
}

func (e *EnergyAnalyser) GetNetworkEnergyHistory() []NetworkConsumption {
	return e.networkHistory
}

func (e *EnergyAnalyser) GetEnergyHistoryByNodes() [][]NodeEnergy {
	return e.energyHistoryByNodes
}

func (e *EnergyAnalyser) GetLatestEnergyOfNodes() []NodeEnergy {
	if len(e.energyHistoryByNodes) == 0 {
		return nil
	}
	return e.energyHistoryByNodes[len(e.energyHistoryByNodes)-1]
}

func (e *EnergyAnalyser) nodeEnergy(node *NodeRadio) NodeEnergy {
	sec := func(cycles uint64) float64 {
		return float64(cycles) * e.timeResolution
	}
	return NodeEnergy{
		NodeId:   node.nodeId,
		Disabled: sec(node.radio.SpentDisabled) * RadioDisabledConsumption,
		Sleep:    sec(node.radio.SpentSleep) * RadioSleepConsumption,
		Tx:       sec(node.radio.SpentTx) * RadioTxConsumption,
		Rx:       sec(node.radio.SpentRx) * RadioRxConsumption,
	}
}

func (e *EnergyAnalyser) sortedIds() []NodeId {
	ids := make([]NodeId, 0, len(e.nodes))
	for id := range e.nodes {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// StoreNetworkEnergy takes a snapshot of the energy used so far by each node and by the network on average.
func (e *EnergyAnalyser) StoreNetworkEnergy(timestamp uint64) {
	nodesEnergySnapshot := make([]NodeEnergy, 0, len(e.nodes))
	networkSnapshot := NetworkConsumption{
		Timestamp: timestamp,
	}

	netSize := float64(len(e.nodes))
	for _, id := range e.sortedIds() {
		node := e.nodes[id]
		node.ComputeRadioState(timestamp)

		ne := e.nodeEnergy(node)
		networkSnapshot.EnergyConsDisabled += ne.Disabled / netSize
		networkSnapshot.EnergyConsSleep += ne.Sleep / netSize
		networkSnapshot.EnergyConsTx += ne.Tx / netSize
		networkSnapshot.EnergyConsRx += ne.Rx / netSize
		nodesEnergySnapshot = append(nodesEnergySnapshot, ne)
	}

	e.networkHistory = append(e.networkHistory, networkSnapshot)
	e.energyHistoryByNodes = append(e.energyHistoryByNodes, nodesEnergySnapshot)
}

// SaveEnergyDataToFile writes the per-node totals and the network history to energy.txt in dir.
func (e *EnergyAnalyser) SaveEnergyDataToFile(dir string, timestamp uint64) error {
	path := filepath.Join(dir, EnergyFileName)
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating energy file %s", path)
	}
	defer f.Close()

	for _, node := range e.nodes {
		node.ComputeRadioState(timestamp)
	}
	e.writeEnergyByNodes(f, timestamp)
	fmt.Fprintln(f)
	e.writeNetworkEnergy(f)
	logger.Debugf("energy data written to %s", path)
	return nil
}

func (e *EnergyAnalyser) writeEnergyByNodes(f *os.File, timestamp uint64) {
	fmt.Fprintf(f, "Duration of the simulation (in seconds): %.3f\n", float64(timestamp)*e.timeResolution)
	fmt.Fprintf(f, "ID\tTx (s)\tRx (s)\tSleep (s)\tOff (s)\tDisabled (mJ)\tSleep (mJ)\tTransmitting (mJ)\tReceiving (mJ)\n")

	for _, id := range e.sortedIds() {
		node := e.nodes[id]
		ne := e.nodeEnergy(node)
		fmt.Fprintf(f, "%d\t%.3f\t%.3f\t%.3f\t%.3f\t%f\t%f\t%f\t%f\n",
			id,
			float64(node.radio.SpentTx)*e.timeResolution,
			float64(node.radio.SpentRx)*e.timeResolution,
			float64(node.radio.SpentSleep)*e.timeResolution,
			float64(node.radio.SpentDisabled)*e.timeResolution,
			ne.Disabled, ne.Sleep, ne.Tx, ne.Rx,
		)
	}
}

func (e *EnergyAnalyser) writeNetworkEnergy(f *os.File) {
	fmt.Fprintf(f, "Time (s)\tDisabled (mJ)\tSleep (mJ)\tTransmitting (mJ)\tReceiving (mJ)\n")
	for _, snapshot := range e.networkHistory {
		fmt.Fprintf(f, "%.3f\t%f\t%f\t%f\t%f\n",
			float64(snapshot.Timestamp)*e.timeResolution,
			snapshot.EnergyConsDisabled,
			snapshot.EnergyConsSleep,
			snapshot.EnergyConsTx,
			snapshot.EnergyConsRx,
		)
	}
}

func (e *EnergyAnalyser) ClearEnergyData() {
	logger.Debugf("node energy data cleared")
	e.networkHistory = make([]NetworkConsumption, 0, 3600)
	e.energyHistoryByNodes = make([][]NodeEnergy, 0, 3600)
}

// NewEnergyAnalyser creates an analyser whose timestamps are cycles of timeResolution seconds.
func NewEnergyAnalyser(timeResolution float64) *EnergyAnalyser {
	return &EnergyAnalyser{
		nodes:                make(map[NodeId]*NodeRadio),
		networkHistory:       make([]NetworkConsumption, 0, 3600),
		energyHistoryByNodes: make([][]NodeEnergy, 0, 3600),
		timeResolution:       timeResolution,
	}
}
