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
	"github.com/swarmsim/dwns/message"
	"github.com/swarmsim/dwns/radiomodel"
	. "github.com/swarmsim/dwns/types"
)

const (
	mainLabelGroupCycle Label = iota
	mainLabelBroadcast
	mainLabelResponses
	mainLabelScan
	mainLabelRespond
	mainLabelDataSend
	mainLabelDataRecv
	mainLabelIdle
)

// mainFn is the node's top level loop. Each group cycle starts with a role roll, followed by discovery
// (broadcast and collect responses, or scan and respond), then data exchange until the cycle expires.
type mainFn struct{}

func (f *mainFn) Id() FunctionId {
	return FuncMain
}

func (f *mainFn) run(m *Mcu) {
	rf, ok := m.resume()
	if !ok {
		m.call(mainLabelGroupCycle, &groupCycleStartFn{})
		return
	}

	switch rf.label {
	case mainLabelGroupCycle:
		if m.broadcaster {
			m.call(mainLabelBroadcast, &broadcastLfgFn{})
		} else {
			m.call(mainLabelScan, &scanLfgFn{respond: true})
		}
	case mainLabelBroadcast:
		ch, ok := rf.value.Channel()
		switch {
		case !ok:
			m.log.Debugf("no clear channel to announce a group")
			f.next(m, rf.label)
		case m.groupCycleExpired():
			f.next(m, rf.label)
		default:
			m.groupChannel = ch
			m.call(mainLabelResponses, &scanLfgResponsesFn{})
		}
	case mainLabelScan:
		if sender, ok := rf.value.Node(); ok && !m.groupCycleExpired() {
			m.call(mainLabelRespond, &respondLfgFn{target: sender})
		} else {
			f.next(m, rf.label)
		}
	case mainLabelResponses, mainLabelRespond, mainLabelDataSend, mainLabelDataRecv, mainLabelIdle:
		f.next(m, rf.label)
	default:
		m.badReturn(rf)
	}
}

// next picks the activity that follows once the step at label is done.
func (f *mainFn) next(m *Mcu, label Label) {
	switch {
	case m.groupCycleExpired():
		m.call(mainLabelGroupCycle, &groupCycleStartFn{})
	case m.broadcaster && m.memberCount() > 0:
		m.call(mainLabelDataRecv, &sensorDataRecvFn{})
	case !m.broadcaster && m.destNode != InvalidNodeId && label != mainLabelDataSend:
		m.call(mainLabelDataSend, &sensorDataSendFn{})
	default:
		m.call(mainLabelIdle, &sleepFn{})
	}
}

// groupCycleStartFn begins a new group cycle: it resets the cycle start, drops the old group and rolls the role.
type groupCycleStartFn struct{}

func (f *groupCycleStartFn) Id() FunctionId {
	return FuncGroupCycleStart
}

func (f *groupCycleStartFn) run(m *Mcu) {
	m.groupCycleStart = m.clock.CurCycle()
	if m.broadcaster {
		m.clearMembers()
	}
	m.broadcaster = m.rollBroadcaster()
	m.destNode = InvalidNodeId
	m.groupChannel = InvalidChannel
	m.counters["group.cycles"]++
	if m.broadcaster {
		m.counters["role.broadcaster"]++
	}
	m.log.Debugf("group cycle start, broadcaster=%v", m.broadcaster)
	m.ret(okResult())
}

// checkChannelBusyFn senses the channel. The busy flag of its result is true if another node transmits there.
type checkChannelBusyFn struct {
	channel ChannelId
}

func (f *checkChannelBusyFn) Id() FunctionId {
	return FuncCheckChannelBusy
}

func (f *checkChannelBusyFn) run(m *Mcu) {
	m.ret(busyResult(m.medium.ChannelBusy(m.Id, f.channel)))
}

// transmitBeginFn switches the transmitter on with the current send buffer.
type transmitBeginFn struct{}

func (f *transmitBeginFn) Id() FunctionId {
	return FuncTransmitMessageBegin
}

func (f *transmitBeginFn) run(m *Mcu) {
	m.radio.SetTransmit(true)
	m.ret(okResult())
}

// transmitCompleteFn is entered with the airtime as busy cost, so the transmitter stays on for the airtime.
type transmitCompleteFn struct{}

func (f *transmitCompleteFn) Id() FunctionId {
	return FuncTransmitMessageComplete
}

func (f *transmitCompleteFn) run(m *Mcu) {
	m.radio.SetTransmit(false)
	m.ret(okResult())
}

// receiveFn listens once on the active channel and parses what was delivered.
type receiveFn struct{}

func (f *receiveFn) Id() FunctionId {
	return FuncReceive
}

func (f *receiveFn) run(m *Mcu) {
	rx := m.medium.Receive(m.Id)
	var msg *message.Message
	switch rx.Outcome {
	case radiomodel.RxDelivered:
		var err error
		if msg, err = message.Parse(rx.Message); err != nil {
			m.log.Tracef("dropped malformed message from %d: %v", rx.Sender, err)
			msg = nil
		}
	case radiomodel.RxCollision:
		m.log.Tracef("collision on channel %d", m.radio.Channel)
	}
	m.ret(rxResult(rx, msg))
}

type sleepFn struct{}

func (f *sleepFn) Id() FunctionId {
	return FuncSleep
}

func (f *sleepFn) run(m *Mcu) {
	m.ret(okResult())
}

// delayFn costs its own length, in cycles.
type delayFn struct {
	cycles uint64
}

func (f *delayFn) Id() FunctionId {
	return FuncDelay
}

func (f *delayFn) run(m *Mcu) {
	m.ret(okResult())
}
