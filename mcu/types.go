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
	"github.com/swarmsim/dwns/timers"
	. "github.com/swarmsim/dwns/types"
)

// FunctionId identifies a protocol function of the catalog.
type FunctionId int

const (
	FuncMain FunctionId = iota
	FuncGroupCycleStart
	FuncScanLfg
	FuncBroadcastLfg
	FuncFindClearChannel
	FuncCheckChannelBusy
	FuncTransmitMessageBegin
	FuncTransmitMessageComplete
	FuncReceive
	FuncSleep
	FuncDelay
	FuncRespondLfg
	FuncScanLfgResponses
	FuncLfgrSendAck
	FuncLfgrGetAck
	FuncSensorDataSend
	FuncSensorDataRecv
	numFunctions
)

var functionNames = [numFunctions]string{
	"main",
	"group_cycle_start",
	"scan_lfg",
	"broadcast_lfg",
	"find_clear_channel",
	"check_channel_busy",
	"transmit_message_begin",
	"transmit_message_complete",
	"receive",
	"sleep",
	"delay",
	"respond_lfg",
	"scan_lfg_responses",
	"lfgr_send_ack",
	"lfgr_get_ack",
	"sensor_data_send",
	"sensor_data_recv",
}

func (f FunctionId) String() string {
	if f < 0 || f >= numFunctions {
		return "invalid"
	}
	return functionNames[f]
}

// Label is a checkpoint within a function at which it resumes after a call returns.
type Label int

func timerKey(f FunctionId, l Label) timers.Key {
	return timers.Key{Function: int(f), Label: int(l)}
}

// function is one activation of a protocol function. Its fields are the locals it needs to resume.
type function interface {
	Id() FunctionId
	run(m *Mcu)
}

type callFrame struct {
	caller function
	label  Label
}

type returnFrame struct {
	from  FunctionId
	to    function
	label Label
	value Result
}

// Result is the value a function returns to its caller.
type Result struct {
	ok      bool
	busy    bool
	node    NodeId
	channel ChannelId
	rx      radiomodel.RxOutcome
	msg     *message.Message
}

func okResult() Result {
	return Result{ok: true, node: InvalidNodeId, channel: InvalidChannel}
}

func failResult() Result {
	return Result{ok: false, node: InvalidNodeId, channel: InvalidChannel}
}

func busyResult(busy bool) Result {
	r := okResult()
	r.busy = busy
	return r
}

func nodeResult(id NodeId) Result {
	return Result{ok: id != InvalidNodeId, node: id, channel: InvalidChannel}
}

func channelResult(ch ChannelId) Result {
	return Result{ok: ch != InvalidChannel, node: InvalidNodeId, channel: ch}
}

func rxResult(rx radiomodel.Reception, msg *message.Message) Result {
	return Result{ok: msg != nil, node: rx.Sender, channel: InvalidChannel, rx: rx.Outcome, msg: msg}
}

// Ok reports whether the called function achieved what it was called for.
func (r Result) Ok() bool {
	return r.ok
}

// Busy is the outcome of check_channel_busy.
func (r Result) Busy() bool {
	return r.busy
}

func (r Result) Node() (NodeId, bool) {
	return r.node, r.node != InvalidNodeId
}

func (r Result) Channel() (ChannelId, bool) {
	return r.channel, r.channel != InvalidChannel
}

// Message returns the parsed message of a receive that delivered a well-formed message.
func (r Result) Message() (*message.Message, bool) {
	return r.msg, r.msg != nil
}

func (r Result) RxOutcome() radiomodel.RxOutcome {
	return r.rx
}
