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

package radiomodel

import (
	"github.com/swarmsim/dwns/logger"
	. "github.com/swarmsim/dwns/types"
)

// RxOutcome is the result category of a receive attempt.
type RxOutcome int

const (
	RxNoSignal RxOutcome = iota
	RxCollision
	RxDelivered
)

func (o RxOutcome) String() string {
	switch o {
	case RxNoSignal:
		return "none"
	case RxCollision:
		return "collision"
	case RxDelivered:
		return "delivered"
	default:
		return "invalid"
	}
}

// Reception is what an observer gets from Medium.Receive.
type Reception struct {
	Outcome RxOutcome
	Sender  NodeId  // only valid for RxDelivered
	Signal  DbValue // only valid for RxDelivered
	Message string  // sender's SendBuffer, only valid for RxDelivered
}

// ChannelStats contains the accumulated transmit activity of one channel.
type ChannelStats struct {
	TxTicks        uint64 // ticks with at least one transmitter
	CollisionTicks uint64 // ticks with two or more transmitters
}

type nodeSnapshot struct {
	x, y, z  float64
	txPower  DbValue
	channel  ChannelId
	transmit bool
	buffer   string
}

// Medium is the shared, channelized radio medium. Queries about other nodes observe the state captured by
// the last Commit, which the tick driver calls once before the scheduler pass; a node's own radio state
// is always read live.
type Medium struct {
	params       *MediumParams
	numChannels  int
	nodes        []*RadioNode
	snapshot     []nodeSnapshot
	collisions   uint64
	channelStats []ChannelStats
}

// NewMedium creates an empty medium with channels 0..numChannels-1.
func NewMedium(params *MediumParams, numChannels int) *Medium {
	logger.AssertTrue(numChannels > 0, "medium needs at least one channel")
	if params == nil {
		params = NewMediumParams()
	}
	return &Medium{
		params:       params,
		numChannels:  numChannels,
		channelStats: make([]ChannelStats, numChannels),
	}
}

// AddNode adds a radio node. Node ids are dense and assigned in order starting from 0.
func (m *Medium) AddNode(rn *RadioNode) {
	logger.AssertEqual(len(m.nodes), rn.Id, "radio nodes must be added in id order")
	m.nodes = append(m.nodes, rn)
	m.snapshot = append(m.snapshot, takeSnapshot(rn))
}

// GetNode returns the radio node with the given id.
func (m *Medium) GetNode(id NodeId) *RadioNode {
	return m.nodes[id]
}

func (m *Medium) NumNodes() int {
	return len(m.nodes)
}

func (m *Medium) NumChannels() int {
	return m.numChannels
}

// Commit captures the current radio state of all nodes; subsequent queries see other nodes as committed.
func (m *Medium) Commit() {
	for i, rn := range m.nodes {
		m.snapshot[i] = takeSnapshot(rn)
	}
}

func takeSnapshot(rn *RadioNode) nodeSnapshot {
	return nodeSnapshot{
		x:        rn.X,
		y:        rn.Y,
		z:        rn.Z,
		txPower:  rn.TxPower,
		channel:  rn.Channel,
		transmit: rn.TransmitActive,
		buffer:   rn.SendBuffer,
	}
}

// Signal returns the signal level at observer for a transmission of target.
func (m *Medium) Signal(observer NodeId, target NodeId) DbValue {
	o := &m.snapshot[observer]
	t := &m.snapshot[target]
	dist := distance(o.x, o.y, o.z, t.x, t.y, t.z)
	return computeFreeSpaceSignal(dist, t.txPower, m.params)
}

// ChannelBusy returns true iff any node other than observer is transmitting on channel.
func (m *Medium) ChannelBusy(observer NodeId, channel ChannelId) bool {
	for i := range m.snapshot {
		if i == observer {
			continue
		}
		if m.snapshot[i].transmit && m.snapshot[i].channel == channel {
			return true
		}
	}
	return false
}

// Receive listens on the observer's active channel. Two or more transmitters count as a collision, which
// also increments the global collision counter.
func (m *Medium) Receive(observer NodeId) Reception {
	obs := m.nodes[observer]
	sender := InvalidNodeId
	count := 0
	for i := range m.snapshot {
		if i == observer {
			continue
		}
		if m.snapshot[i].transmit && m.snapshot[i].channel == obs.Channel {
			count++
			sender = i
		}
	}

	switch {
	case count == 0:
		return Reception{Outcome: RxNoSignal, Sender: InvalidNodeId}
	case count >= 2:
		m.collisions++
		obs.stats.NumRxCollision++
		return Reception{Outcome: RxCollision, Sender: InvalidNodeId}
	default:
		sig := m.Signal(observer, sender)
		obs.rxSignals[sender] = sig
		obs.stats.NumRxDelivered++
		return Reception{
			Outcome: RxDelivered,
			Sender:  sender,
			Signal:  sig,
			Message: m.snapshot[sender].buffer,
		}
	}
}

// Collisions returns the global count of collision outcomes returned by Receive.
func (m *Medium) Collisions() uint64 {
	return m.collisions
}

// ChannelActivity returns, per channel, the number of nodes transmitting right now.
func (m *Medium) ChannelActivity() []int {
	act := make([]int, m.numChannels)
	for _, rn := range m.nodes {
		if rn.TransmitActive && rn.Channel >= 0 && rn.Channel < m.numChannels {
			act[rn.Channel]++
		}
	}
	return act
}

// UpdateChannelStats accumulates the current channel activity; called once per tick.
func (m *Medium) UpdateChannelStats(activity []int) {
	for ch, n := range activity {
		if n > 0 {
			m.channelStats[ch].TxTicks++
		}
		if n > 1 {
			m.channelStats[ch].CollisionTicks++
		}
	}
}

func (m *Medium) GetChannelStats(ch ChannelId) ChannelStats {
	return m.channelStats[ch]
}
