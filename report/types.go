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

// Package report defines the hooks through which the simulation hands its state to outputs: per-node
// files, statistics logs and metrics.
package report

import (
	. "github.com/swarmsim/dwns/types"
)

// GroundCounters are the ground station's edge-triggered channel counters.
type GroundCounters struct {
	MessagesReceived   uint64
	CollisionsDetected uint64
}

type NodeSnapshot struct {
	Id           NodeId
	X, Y, Z      float64
	Vz           float64
	Landed       bool
	Broadcaster  bool
	DestNode     NodeId
	Members      int
	Channel      ChannelId
	Transmitting bool
	Function     string
	Signals      []DbValue // Signals[j] is the signal from node j at this node; 0 for the node itself.
	Counters     NodeCounters
}

type ChannelSnapshot struct {
	Transmitters   int
	TxTicks        uint64
	CollisionTicks uint64
}

// Snapshot is the simulation state at one report interval.
type Snapshot struct {
	Cycle      uint64
	TimeSec    float64
	Nodes      []NodeSnapshot
	Channels   []ChannelSnapshot
	Collisions uint64
	Ground     GroundCounters
}

func (s *Snapshot) CountBroadcasters() int {
	n := 0
	for i := range s.Nodes {
		if s.Nodes[i].Broadcaster {
			n++
		}
	}
	return n
}

// CountMembers returns the number of nodes that joined a group.
func (s *Snapshot) CountMembers() int {
	n := 0
	for i := range s.Nodes {
		if !s.Nodes[i].Broadcaster && s.Nodes[i].DestNode != InvalidNodeId {
			n++
		}
	}
	return n
}

func (s *Snapshot) CountTransmitting() int {
	n := 0
	for i := range s.Nodes {
		if s.Nodes[i].Transmitting {
			n++
		}
	}
	return n
}

func (s *Snapshot) CountLanded() int {
	n := 0
	for i := range s.Nodes {
		if s.Nodes[i].Landed {
			n++
		}
	}
	return n
}

// Reporter receives the simulation state. Init is called before the first tick, Report at each report
// interval and Stop once at the end of the run with the final state.
type Reporter interface {
	Init()
	Report(s *Snapshot)
	Stop(s *Snapshot)
}
