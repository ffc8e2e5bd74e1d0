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
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/swarmsim/dwns/types"
)

func newTestMedium(numNodes int, numChannels int) *Medium {
	m := NewMedium(NewMediumParams(), numChannels)
	for i := 0; i < numNodes; i++ {
		m.AddNode(NewRadioNode(i, &RadioNodeConfig{X: float64(10 * i), Z: 100, TxPower: 20}))
	}
	m.Commit()
	return m
}

func TestSignal(t *testing.T) {
	m := NewMedium(nil, 1)
	m.AddNode(NewRadioNode(0, &RadioNodeConfig{X: 0, TxPower: 20}))
	m.AddNode(NewRadioNode(1, &RadioNodeConfig{X: 100, TxPower: 10}))
	m.Commit()

	expected := 10 - (20*math.Log(100) + 20*math.Log(2400) + 32.44)
	assert.InDelta(t, expected, m.Signal(0, 1), 1e-9)
	expected = 20 - (20*math.Log(100) + 20*math.Log(2400) + 32.44)
	assert.InDelta(t, expected, m.Signal(1, 0), 1e-9)

	// closer is stronger
	m.GetNode(1).SetNodePos(50, 0, 0)
	m.Commit()
	assert.Greater(t, m.Signal(0, 1), expected-10)
}

func TestChannelBusyExcludesSelf(t *testing.T) {
	// enumerate all channel/transmit assignments of 3 nodes over 2 channels
	for assign := 0; assign < 64; assign++ {
		m := newTestMedium(3, 2)
		for i := 0; i < 3; i++ {
			m.GetNode(i).SetChannel((assign>>(2*i))&1, 2)
			m.GetNode(i).SetTransmit((assign>>(2*i+1))&1 == 1)
		}
		m.Commit()

		for obs := 0; obs < 3; obs++ {
			for ch := 0; ch < 2; ch++ {
				others := 0
				for i := 0; i < 3; i++ {
					if i != obs && m.GetNode(i).TransmitActive && m.GetNode(i).Channel == ch {
						others++
					}
				}
				assert.Equal(t, others > 0, m.ChannelBusy(obs, ch), "assign=%d obs=%d ch=%d", assign, obs, ch)
			}
		}
	}
}

func TestReceiveOutcomes(t *testing.T) {
	m := newTestMedium(4, 2)
	for i := 0; i < 4; i++ {
		m.GetNode(i).SetChannel(0, 2)
	}
	m.Commit()

	rx := m.Receive(3)
	assert.Equal(t, RxNoSignal, rx.Outcome)
	assert.Equal(t, InvalidNodeId, rx.Sender)

	m.GetNode(1).SendBuffer = "N-ALL N-1 LFG"
	m.GetNode(1).SetTransmit(true)
	m.Commit()
	rx = m.Receive(3)
	assert.Equal(t, RxDelivered, rx.Outcome)
	assert.Equal(t, 1, rx.Sender)
	assert.Equal(t, "N-ALL N-1 LFG", rx.Message)
	sig, ok := m.GetNode(3).LastRxSignal(1)
	assert.True(t, ok)
	assert.Equal(t, rx.Signal, sig)
	assert.Equal(t, uint64(0), m.Collisions())

	// a transmitter does not hear itself
	rx = m.Receive(1)
	assert.Equal(t, RxNoSignal, rx.Outcome)

	// a different channel is silent
	m.GetNode(3).SetChannel(1, 2)
	rx = m.Receive(3)
	assert.Equal(t, RxNoSignal, rx.Outcome)
}

func TestReceiveCollision(t *testing.T) {
	m := newTestMedium(4, 1)
	for i := 0; i < 4; i++ {
		m.GetNode(i).SetChannel(0, 1)
	}
	for i := 0; i < 3; i++ {
		m.GetNode(i).SetTransmit(true)
	}
	m.Commit()

	rx := m.Receive(3)
	assert.Equal(t, RxCollision, rx.Outcome)
	assert.Equal(t, uint64(1), m.Collisions())
	assert.Equal(t, uint64(1), m.GetNode(3).Stats().NumRxCollision)

	// two transmitters heard from one of the three is still a collision
	rx = m.Receive(0)
	assert.Equal(t, RxCollision, rx.Outcome)
	assert.Equal(t, uint64(2), m.Collisions())

	assert.Equal(t, []int{3}, m.ChannelActivity())
}

func TestQueriesSeeCommittedState(t *testing.T) {
	m := newTestMedium(2, 1)
	m.GetNode(0).SetChannel(0, 1)
	m.GetNode(1).SetChannel(0, 1)
	m.GetNode(0).SetTransmit(true)

	// not committed yet: node 1 still sees the previous tick
	assert.False(t, m.ChannelBusy(1, 0))
	assert.Equal(t, RxNoSignal, m.Receive(1).Outcome)

	m.Commit()
	assert.True(t, m.ChannelBusy(1, 0))
	assert.False(t, m.ChannelBusy(0, 0))
}

func TestChannelStats(t *testing.T) {
	m := newTestMedium(3, 2)
	m.UpdateChannelStats([]int{2, 0})
	m.UpdateChannelStats([]int{1, 0})
	assert.Equal(t, ChannelStats{TxTicks: 2, CollisionTicks: 1}, m.GetChannelStats(0))
	assert.Equal(t, ChannelStats{}, m.GetChannelStats(1))
}

func TestSetChannelOutOfRange(t *testing.T) {
	rn := NewRadioNode(0, &RadioNodeConfig{})
	assert.Panics(t, func() {
		rn.SetChannel(5, 2)
	})
	assert.Equal(t, uint64(0), rn.Stats().NumTxStarted)
	rn.SetTransmit(true)
	rn.SetTransmit(true)
	assert.Equal(t, uint64(1), rn.Stats().NumTxStarted)
}
