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
)

const (
	dataLabelBusy Label = iota
	dataLabelWait
	dataLabelTx
	dataLabelDone
	dataLabelBound
)

// sensorDataSendFn sends a DATA message with fresh sensor readings to the broadcaster this node joined.
type sensorDataSendFn struct{}

func (f *sensorDataSendFn) Id() FunctionId {
	return FuncSensorDataSend
}

func (f *sensorDataSendFn) run(m *Mcu) {
	boundKey := timerKey(FuncSensorDataSend, dataLabelBound)
	rf, ok := m.resume()
	if !ok {
		if _, joined := m.groupChannelOk(); !joined {
			m.ret(failResult())
			return
		}
		m.setChannel(m.groupChannel)
		m.timers.Restart(boundKey, m.cfg.Timing.DataSendCycles)
		m.call(dataLabelBusy, &checkChannelBusyFn{channel: m.groupChannel})
		return
	}

	switch rf.label {
	case dataLabelBusy:
		if rf.value.Busy() {
			if m.loopDone(boundKey) {
				m.log.Debugf("channel %d stayed busy, DATA not sent", m.groupChannel)
				m.ret(failResult())
			} else {
				m.call(dataLabelBusy, &checkChannelBusyFn{channel: m.groupChannel})
			}
			return
		}
		msg := message.NewData(m.destNode, m.Id, m.refreshSensors(), m.clock.CurTimeSec())
		m.radio.SendBuffer = msg.Serialize()
		m.call(dataLabelWait, &delayFn{cycles: m.randomWait()})
	case dataLabelWait:
		m.call(dataLabelTx, &transmitBeginFn{})
	case dataLabelTx:
		m.call(dataLabelDone, &transmitCompleteFn{})
	case dataLabelDone:
		m.timers.Cancel(boundKey)
		m.counters["data.sent"]++
		m.ret(okResult())
	default:
		m.badReturn(rf)
	}
}

const (
	dataRecvLabelBusy Label = iota
	dataRecvLabelRecv
)

// sensorDataRecvFn listens on the group channel and stores DATA from members, until the group cycle expires.
type sensorDataRecvFn struct{}

func (f *sensorDataRecvFn) Id() FunctionId {
	return FuncSensorDataRecv
}

func (f *sensorDataRecvFn) run(m *Mcu) {
	rf, ok := m.resume()
	if ok {
		switch rf.label {
		case dataRecvLabelBusy:
			if rf.value.Busy() {
				m.call(dataRecvLabelRecv, &receiveFn{})
				return
			}
		case dataRecvLabelRecv:
			if msg, ok := rf.value.Message(); ok && msg.Type == message.TypeData && msg.Dest == m.Id && m.isMember(msg.Src) {
				m.stored.Add(msg.Src, m.clock.CurCycle(), msg)
				m.counters["data.stored"]++
				m.log.Debugf("stored %s", msg)
			}
		default:
			m.badReturn(rf)
			return
		}
	}

	if m.groupCycleExpired() {
		m.ret(okResult())
		return
	}
	if _, joined := m.groupChannelOk(); !joined {
		m.ret(failResult())
		return
	}
	m.setChannel(m.groupChannel)
	m.call(dataRecvLabelBusy, &checkChannelBusyFn{channel: m.groupChannel})
}
