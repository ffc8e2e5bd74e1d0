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
	"github.com/swarmsim/dwns/timers"
	. "github.com/swarmsim/dwns/types"
)

const (
	scanLabelBusy Label = iota
	scanLabelRecv
	scanLabelWindow
)

// scanLfgFn sweeps all channels in random order, listening for LFG announcements. Each heard broadcaster
// is recorded against its channel. With respond set it keeps sweeping until the scan window expires.
// Returns the last broadcaster heard, if any.
type scanLfgFn struct {
	respond    bool
	tried      []bool
	remaining  int
	channel    ChannelId
	lastSender NodeId
}

func (f *scanLfgFn) Id() FunctionId {
	return FuncScanLfg
}

func (f *scanLfgFn) run(m *Mcu) {
	windowKey := timerKey(FuncScanLfg, scanLabelWindow)
	rf, ok := m.resume()
	if !ok {
		f.lastSender = InvalidNodeId
		for i := range m.lfgChannels {
			m.lfgChannels[i] = InvalidNodeId
		}
		if f.respond {
			m.timers.Restart(windowKey, m.cfg.Timing.ScanCycles)
		}
		f.startSweep(m)
		f.scanNext(m)
		return
	}

	switch rf.label {
	case scanLabelBusy:
		if rf.value.Busy() {
			m.call(scanLabelRecv, &receiveFn{})
			return
		}
	case scanLabelRecv:
		if msg, ok := rf.value.Message(); ok && msg.Type == message.TypeLfg {
			m.lfgChannels[f.channel] = msg.Src
			f.lastSender = msg.Src
			m.counters["lfg.heard"]++
			m.log.Debugf("heard LFG from %d on channel %d", msg.Src, f.channel)
		}
	default:
		m.badReturn(rf)
		return
	}

	switch {
	case f.remaining > 0 && !m.groupCycleExpired():
		f.scanNext(m)
	case f.respond && !m.loopDone(windowKey):
		f.startSweep(m)
		f.scanNext(m)
	default:
		m.timers.Cancel(windowKey)
		m.ret(nodeResult(f.lastSender))
	}
}

func (f *scanLfgFn) startSweep(m *Mcu) {
	f.tried = make([]bool, m.cfg.NumChannels)
	f.remaining = m.cfg.NumChannels
}

func (f *scanLfgFn) scanNext(m *Mcu) {
	f.channel = m.pickUntried(f.tried)
	f.remaining--
	m.setChannel(f.channel)
	m.call(scanLabelBusy, &checkChannelBusyFn{channel: f.channel})
}

const findLabelBusy Label = 0

// findClearChannelFn tries channels in random order and returns the first one found clear.
type findClearChannelFn struct {
	tried     []bool
	remaining int
	channel   ChannelId
}

func (f *findClearChannelFn) Id() FunctionId {
	return FuncFindClearChannel
}

func (f *findClearChannelFn) run(m *Mcu) {
	rf, ok := m.resume()
	if !ok {
		f.tried = make([]bool, m.cfg.NumChannels)
		f.remaining = m.cfg.NumChannels
		f.tryNext(m)
		return
	}
	if rf.label != findLabelBusy {
		m.badReturn(rf)
		return
	}

	switch {
	case !rf.value.Busy():
		m.ret(channelResult(f.channel))
	case f.remaining > 0:
		f.tryNext(m)
	default:
		m.ret(channelResult(InvalidChannel))
	}
}

func (f *findClearChannelFn) tryNext(m *Mcu) {
	f.channel = m.pickUntried(f.tried)
	f.remaining--
	m.setChannel(f.channel)
	m.call(findLabelBusy, &checkChannelBusyFn{channel: f.channel})
}

const (
	bcastLabelFind Label = iota
	bcastLabelTx
	bcastLabelDone
)

// broadcastLfgFn announces a group: it keeps transmitting LFG on a clear channel until its timer expires.
// Returns the channel used, or none if no channel was clear.
type broadcastLfgFn struct {
	channel ChannelId
}

func (f *broadcastLfgFn) Id() FunctionId {
	return FuncBroadcastLfg
}

func (f *broadcastLfgFn) run(m *Mcu) {
	txKey := timerKey(FuncBroadcastLfg, bcastLabelTx)
	rf, ok := m.resume()
	if !ok {
		m.call(bcastLabelFind, &findClearChannelFn{})
		return
	}

	switch rf.label {
	case bcastLabelFind:
		ch, ok := rf.value.Channel()
		if !ok {
			m.ret(channelResult(InvalidChannel))
			return
		}
		f.channel = ch
		m.setChannel(ch)
		m.radio.SendBuffer = message.NewLfg(m.Id).Serialize()
		m.timers.Restart(txKey, m.cfg.Timing.BroadcastCycles)
		m.log.Debugf("announcing group on channel %d", ch)
		m.call(bcastLabelTx, &transmitBeginFn{})
	case bcastLabelTx:
		if m.loopDone(txKey) {
			m.call(bcastLabelDone, &transmitCompleteFn{})
		} else {
			m.call(bcastLabelTx, &transmitBeginFn{})
		}
	case bcastLabelDone:
		m.ret(channelResult(f.channel))
	default:
		m.badReturn(rf)
	}
}

const (
	respondLabelBusy Label = iota
	respondLabelWait
	respondLabelTx
	respondLabelTxDone
	respondLabelAck
	respondLabelBound
)

// respondLfgFn asks to join the group of target, retrying LFG-R until acknowledged or its bound expires.
type respondLfgFn struct {
	target   NodeId
	channel  ChannelId
	attempts int
}

func (f *respondLfgFn) Id() FunctionId {
	return FuncRespondLfg
}

func (f *respondLfgFn) run(m *Mcu) {
	boundKey := timerKey(FuncRespondLfg, respondLabelBound)
	rf, ok := m.resume()
	if !ok {
		f.channel = InvalidChannel
		for ch, id := range m.lfgChannels {
			if id == f.target {
				f.channel = ch
			}
		}
		if f.channel == InvalidChannel {
			m.ret(failResult())
			return
		}
		m.setChannel(f.channel)
		m.destNode = f.target
		m.timers.Restart(boundKey, m.cfg.Timing.RespondCycles)
		m.call(respondLabelBusy, &checkChannelBusyFn{channel: f.channel})
		return
	}

	switch rf.label {
	case respondLabelBusy:
		if rf.value.Busy() {
			if !f.giveUpIfExpired(m, boundKey) {
				m.call(respondLabelBusy, &checkChannelBusyFn{channel: f.channel})
			}
			return
		}
		m.radio.SendBuffer = message.NewLfgResponse(f.target, m.Id).Serialize()
		m.call(respondLabelWait, &delayFn{cycles: m.randomWait()})
	case respondLabelWait:
		m.call(respondLabelTx, &transmitBeginFn{})
	case respondLabelTx:
		m.call(respondLabelTxDone, &transmitCompleteFn{})
	case respondLabelTxDone:
		f.attempts++
		m.call(respondLabelAck, &lfgrGetAckFn{from: f.target})
	case respondLabelAck:
		if rf.value.Ok() {
			m.timers.Cancel(boundKey)
			m.groupChannel = f.channel
			m.counters["group.joined"]++
			m.log.Infof("joined group of %d on channel %d after %d attempts", f.target, f.channel, f.attempts)
			m.ret(okResult())
			return
		}
		if !f.giveUpIfExpired(m, boundKey) {
			m.call(respondLabelBusy, &checkChannelBusyFn{channel: f.channel})
		}
	default:
		m.badReturn(rf)
	}
}

func (f *respondLfgFn) giveUpIfExpired(m *Mcu, boundKey timers.Key) bool {
	if !m.loopDone(boundKey) {
		return false
	}
	m.destNode = InvalidNodeId
	m.log.Debugf("gave up joining %d after %d attempts", f.target, f.attempts)
	m.ret(failResult())
	return true
}

const (
	getAckLabelBusy Label = iota
	getAckLabelRecv
	getAckLabelTimeout
)

// lfgrGetAckFn listens for the ACK of from, until the ack timeout.
type lfgrGetAckFn struct {
	from NodeId
}

func (f *lfgrGetAckFn) Id() FunctionId {
	return FuncLfgrGetAck
}

func (f *lfgrGetAckFn) run(m *Mcu) {
	timeoutKey := timerKey(FuncLfgrGetAck, getAckLabelTimeout)
	rf, ok := m.resume()
	if !ok {
		m.timers.Restart(timeoutKey, m.cfg.Timing.AckTimeoutCycles)
		m.call(getAckLabelBusy, &checkChannelBusyFn{channel: m.radio.Channel})
		return
	}

	switch rf.label {
	case getAckLabelBusy:
		if rf.value.Busy() {
			m.call(getAckLabelRecv, &receiveFn{})
			return
		}
	case getAckLabelRecv:
		if msg, ok := rf.value.Message(); ok && msg.Type == message.TypeAck && msg.Dest == m.Id && msg.Src == f.from {
			m.timers.Cancel(timeoutKey)
			m.counters["ack.received"]++
			m.ret(okResult())
			return
		}
	default:
		m.badReturn(rf)
		return
	}

	if m.loopDone(timeoutKey) {
		m.ret(failResult())
		return
	}
	m.call(getAckLabelBusy, &checkChannelBusyFn{channel: m.radio.Channel})
}

const (
	respLabelBusy Label = iota
	respLabelRecv
	respLabelAck
	respLabelWindow
)

// scanLfgResponsesFn collects LFG-R from joining nodes during the response window, acknowledging each
// accepted one. Responses beyond the group size are dropped.
type scanLfgResponsesFn struct{}

func (f *scanLfgResponsesFn) Id() FunctionId {
	return FuncScanLfgResponses
}

func (f *scanLfgResponsesFn) run(m *Mcu) {
	windowKey := timerKey(FuncScanLfgResponses, respLabelWindow)
	rf, ok := m.resume()
	if !ok {
		m.timers.Restart(windowKey, m.cfg.Timing.ResponseWindowCycles)
		m.call(respLabelBusy, &checkChannelBusyFn{channel: m.radio.Channel})
		return
	}

	switch rf.label {
	case respLabelBusy:
		if rf.value.Busy() {
			m.call(respLabelRecv, &receiveFn{})
			return
		}
	case respLabelRecv:
		if msg, ok := rf.value.Message(); ok && msg.Type == message.TypeLfgResponse && msg.Dest == m.Id {
			switch {
			case m.isMember(msg.Src):
				m.call(respLabelAck, &lfgrSendAckFn{to: msg.Src})
				return
			case m.addMember(msg.Src):
				m.counters["group.member_added"]++
				m.log.Infof("added %d to group (%d/%d)", msg.Src, m.memberCount(), m.cfg.GroupMax)
				m.call(respLabelAck, &lfgrSendAckFn{to: msg.Src})
				return
			default:
				m.log.Tracef("group full, dropped response of %d", msg.Src)
			}
		}
	case respLabelAck:
	default:
		m.badReturn(rf)
		return
	}

	if m.loopDone(windowKey) {
		m.ret(nodeResult(InvalidNodeId))
		return
	}
	m.call(respLabelBusy, &checkChannelBusyFn{channel: m.radio.Channel})
}

const (
	sendAckLabelBusy Label = iota
	sendAckLabelTx
	sendAckLabelDone
	sendAckLabelBound
)

// lfgrSendAckFn acknowledges the LFG-R of a member once the channel is clear.
type lfgrSendAckFn struct {
	to NodeId
}

func (f *lfgrSendAckFn) Id() FunctionId {
	return FuncLfgrSendAck
}

func (f *lfgrSendAckFn) run(m *Mcu) {
	boundKey := timerKey(FuncLfgrSendAck, sendAckLabelBound)
	rf, ok := m.resume()
	if !ok {
		m.timers.Restart(boundKey, m.cfg.Timing.AckTimeoutCycles)
		m.call(sendAckLabelBusy, &checkChannelBusyFn{channel: m.radio.Channel})
		return
	}

	switch rf.label {
	case sendAckLabelBusy:
		if rf.value.Busy() {
			if m.loopDone(boundKey) {
				m.log.Tracef("channel stayed busy, no ACK for %d", f.to)
				m.ret(failResult())
			} else {
				m.call(sendAckLabelBusy, &checkChannelBusyFn{channel: m.radio.Channel})
			}
			return
		}
		m.radio.SendBuffer = message.NewAck(f.to, m.Id).Serialize()
		m.call(sendAckLabelTx, &transmitBeginFn{})
	case sendAckLabelTx:
		m.call(sendAckLabelDone, &transmitCompleteFn{})
	case sendAckLabelDone:
		m.timers.Cancel(boundKey)
		m.counters["ack.sent"]++
		m.ret(okResult())
	default:
		m.badReturn(rf)
	}
}
