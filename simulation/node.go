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
	"github.com/swarmsim/dwns/kinematics"
	"github.com/swarmsim/dwns/logger"
	"github.com/swarmsim/dwns/mcu"
	"github.com/swarmsim/dwns/prng"
	"github.com/swarmsim/dwns/radiomodel"
	"github.com/swarmsim/dwns/report"
	. "github.com/swarmsim/dwns/types"
)

// Node is one falling sensor node: its body, its radio on the shared medium, and the MCU running the protocol.
type Node struct {
	Id     NodeId
	Body   *kinematics.Body
	Radio  *radiomodel.RadioNode
	Mcu    *mcu.Mcu
	Logger *logger.NodeLogger
}

func newNode(s *Simulation, nodeid NodeId) *Node {
	cfg := s.cfg
	nodeCfg := DefaultNodeConfig()
	nodeCfg.ID = nodeid
	nodeCfg.X, nodeCfg.Y, nodeCfg.Z = cfg.Nodes.StartX, cfg.Nodes.StartY, cfg.Nodes.StartZ
	nodeCfg.TxPower = cfg.Nodes.PowerOutput
	nodeCfg.NodeLogFile = cfg.FileOutput.Output && cfg.FileOutput.NodeLogs

	flightRand := prng.NewRand(prng.NewFlightRandomSeed())
	mcuRand := prng.NewRand(prng.NewNodeRandomSeed())

	node := &Node{
		Id:     nodeid,
		Body:   kinematics.NewBody(nodeCfg.X, nodeCfg.Y, nodeCfg.Z, s.kin, flightRand),
		Radio:  radiomodel.NewRadioNode(nodeid, &radiomodel.RadioNodeConfig{X: nodeCfg.X, Y: nodeCfg.Y, Z: nodeCfg.Z, TxPower: nodeCfg.TxPower}),
		Logger: logger.GetNodeLogger(cfg.FileOutput.OutputDir, &nodeCfg),
	}
	node.Logger.SetDisplayLevel(s.watchLevel)
	s.medium.AddNode(node.Radio)

	node.Mcu = mcu.NewMcu(nodeid, s.mcuCfg, cfg.SensorTypes(), mcu.Environment{
		Clock:    s,
		Medium:   s.medium,
		Platform: node.Body,
		Rand:     mcuRand,
		Logger:   node.Logger,
	})
	return node
}

// move advances the body by one tick and moves the radio along.
func (node *Node) move(params *kinematics.Params) {
	node.Body.Step(params)
	node.Radio.SetNodePos(node.Body.Position())
}

func (node *Node) snapshot(s *Simulation) report.NodeSnapshot {
	signals := make([]DbValue, len(s.nodes))
	for j := range s.nodes {
		if j != node.Id {
			signals[j] = s.medium.Signal(node.Id, j)
		}
	}
	_, _, vz := node.Body.Velocity()
	return report.NodeSnapshot{
		Id:           node.Id,
		X:            node.Body.X,
		Y:            node.Body.Y,
		Z:            node.Body.Z,
		Vz:           vz,
		Landed:       node.Body.Landed(),
		Broadcaster:  node.Mcu.IsBroadcaster(),
		DestNode:     node.Mcu.DestNode(),
		Members:      len(node.Mcu.Members()),
		Channel:      node.Radio.Channel,
		Transmitting: node.Radio.TransmitActive,
		Function:     node.Mcu.CurrentFunction().String(),
		Signals:      signals,
		Counters:     node.Mcu.Counters(),
	}
}
