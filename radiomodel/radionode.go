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
	"math"

	"github.com/swarmsim/dwns/logger"
	. "github.com/swarmsim/dwns/types"
)

// RadioNode is the radio status of a single node, as seen by the Medium.
type RadioNode struct {
	Id NodeId

	// TxPower is the output power of the node's transmitter.
	TxPower DbValue

	// Channel is the active channel, used for Rx, Tx and channel sensing. InvalidChannel until first set.
	Channel ChannelId

	// TransmitActive is true while the node is physically transmitting SendBuffer on Channel.
	TransmitActive bool

	// SendBuffer holds the current outgoing message in wire format.
	SendBuffer string

	// Node position in meters.
	X, Y, Z float64

	rxSignals map[NodeId]DbValue
	stats     RadioNodeStats
}

type RadioNodeConfig struct {
	X, Y, Z float64
	TxPower DbValue
}

type RadioNodeStats struct {
	NumTxStarted   uint64
	NumRxDelivered uint64
	NumRxCollision uint64
}

func NewRadioNode(nodeid NodeId, cfg *RadioNodeConfig) *RadioNode {
	rn := &RadioNode{
		Id:        nodeid,
		TxPower:   cfg.TxPower,
		X:         cfg.X,
		Y:         cfg.Y,
		Z:         cfg.Z,
		Channel:   InvalidChannel,
		rxSignals: make(map[NodeId]DbValue),
	}
	return rn
}

func (rn *RadioNode) SetChannel(ch ChannelId, numChannels int) {
	logger.AssertTrue(ch >= 0 && ch < numChannels, "channel out of range")
	rn.Channel = ch
}

// SetTransmit switches the transmitter on or off.
func (rn *RadioNode) SetTransmit(active bool) {
	if active && !rn.TransmitActive {
		rn.stats.NumTxStarted++
	}
	rn.TransmitActive = active
}

func (rn *RadioNode) SetNodePos(x, y, z float64) {
	rn.X, rn.Y, rn.Z = x, y, z
}

// LastRxSignal returns the signal level of the last message delivered from sender, if any.
func (rn *RadioNode) LastRxSignal(sender NodeId) (DbValue, bool) {
	v, ok := rn.rxSignals[sender]
	return v, ok
}

func (rn *RadioNode) Stats() RadioNodeStats {
	return rn.stats
}

func distance(x1, y1, z1, x2, y2, z2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	dz := z2 - z1
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
