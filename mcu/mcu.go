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

// Package mcu emulates the microcontroller of a sensor node: a cooperative scheduler that runs one bounded
// step of the node's protocol per tick, and the protocol functions it runs.
//
// Each protocol function is a value holding its own locals. A function calls another by pushing itself
// with a resume label on the call stack; the callee returns by pushing a result frame, and the caller
// consumes it when it is next dispatched. Entering any function costs the node busy time during which
// no protocol code runs, which is how channel sensing, transmit setup and airtime take simulated time.
package mcu

import (
	"math/rand"

	"github.com/swarmsim/dwns/logger"
	"github.com/swarmsim/dwns/message"
	"github.com/swarmsim/dwns/radiomodel"
	"github.com/swarmsim/dwns/sensor"
	"github.com/swarmsim/dwns/timers"
	. "github.com/swarmsim/dwns/types"
)

const busyEpsilon = 1e-9

// Clock is the simulation clock as seen by a node.
type Clock interface {
	CurCycle() uint64
	CurTimeSec() float64
}

// Environment is what a node's MCU uses from the simulation around it.
type Environment struct {
	Clock    Clock
	Medium   *radiomodel.Medium
	Platform sensor.Platform
	Rand     *rand.Rand
	Logger   *logger.NodeLogger
}

type Mcu struct {
	Id NodeId

	cfg      *Config
	clock    Clock
	medium   *radiomodel.Medium
	radio    *radiomodel.RadioNode
	platform sensor.Platform
	rng      *rand.Rand
	timers   *timers.Registry
	log      *logger.NodeLogger

	current       function
	busyRemaining float64
	callStack     []callFrame
	returnStack   []returnFrame
	popsThisStep  int

	// protocol state, shared by the functions of the catalog
	lfgChannels     []NodeId
	broadcaster     bool
	members         []NodeId
	groupCycleStart uint64
	destNode        NodeId
	groupChannel    ChannelId
	sensors         []*sensor.Sensor
	stored          *message.Store
	counters        NodeCounters
}

// NewMcu creates the MCU of node id, which must already be added to env.Medium. The node starts in main,
// owing the busy cost of entering it.
func NewMcu(id NodeId, cfg *Config, sensorTypes []sensor.Type, env Environment) *Mcu {
	radio := env.Medium.GetNode(id)
	logger.AssertNotNil(radio, "node must be added to the medium first")
	logger.AssertNotNil(env.Rand)

	m := &Mcu{
		Id:            id,
		cfg:           cfg,
		clock:         env.Clock,
		medium:        env.Medium,
		radio:         radio,
		platform:      env.Platform,
		rng:           env.Rand,
		timers:        timers.NewRegistry(id, env.Clock),
		log:           env.Logger,
		current:       &mainFn{},
		busyRemaining: -1,
		lfgChannels:   make([]NodeId, cfg.NumChannels),
		members:       make([]NodeId, cfg.GroupMax),
		destNode:      InvalidNodeId,
		groupChannel:  InvalidChannel,
		stored:        message.NewStore(cfg.StoredMessagesMax),
		counters:      make(NodeCounters),
	}
	for i := range m.lfgChannels {
		m.lfgChannels[i] = InvalidNodeId
	}
	for i := range m.members {
		m.members[i] = InvalidNodeId
	}
	for _, t := range sensorTypes {
		m.sensors = append(m.sensors, sensor.New(t))
	}
	return m
}

// Run executes one scheduler step: it burns one tick of pending busy time, charges the entry cost of a
// function that was just called or returned to, or runs the current function up to its next call or return.
func (m *Mcu) Run() {
	m.popsThisStep = 0
	m.updateBusyTime()

	if m.busyRemaining > 0 {
		return
	}
	if m.busyRemaining < 0 {
		m.busyRemaining = m.entryCost()
		return
	}
	m.current.run(m)
}

// entryCost is the busy cost of entering the current function. Sleep never outlasts the group cycle.
func (m *Mcu) entryCost() float64 {
	cost := m.cfg.busyCost(m.current)
	if m.current.Id() != FuncSleep {
		return cost
	}
	end := m.groupCycleStart + m.cfg.GroupCycleInterval
	now := m.clock.CurCycle()
	if now >= end {
		return 0
	}
	if left := float64(end-now) * m.cfg.TimeResolution; left < cost {
		return left
	}
	return cost
}

func (m *Mcu) updateBusyTime() {
	if m.busyRemaining <= 0 {
		return
	}
	if m.busyRemaining-m.cfg.TimeResolution > busyEpsilon {
		m.busyRemaining -= m.cfg.TimeResolution
	} else {
		m.busyRemaining = 0
	}
}

// call suspends the current function at label and makes callee current.
func (m *Mcu) call(label Label, callee function) {
	m.log.Tracef("call %s -> %s", m.current.Id(), callee.Id())
	m.callStack = append(m.callStack, callFrame{caller: m.current, label: label})
	m.current = callee
	m.busyRemaining = -1
}

// ret returns value to the caller of the current function.
func (m *Mcu) ret(value Result) {
	logger.AssertTrue(m.popsThisStep == 0, "more than one stack pop in a single step")
	logger.AssertTrue(len(m.callStack) > 0, "return from the bottom of the call stack")
	m.popsThisStep++

	top := len(m.callStack) - 1
	frame := m.callStack[top]
	m.callStack = m.callStack[:top]
	m.log.Tracef("return %s -> %s", m.current.Id(), frame.caller.Id())

	m.returnStack = append(m.returnStack, returnFrame{
		from:  m.current.Id(),
		to:    frame.caller,
		label: frame.label,
		value: value,
	})
	m.current = frame.caller
	m.busyRemaining = -1
}

// resume consumes the pending return frame, if any. A function dispatched without one is entered fresh.
func (m *Mcu) resume() (returnFrame, bool) {
	if len(m.returnStack) == 0 {
		return returnFrame{}, false
	}
	top := len(m.returnStack) - 1
	rf := m.returnStack[top]
	if rf.to != m.current {
		logger.Panicf("%s: %s resumed with a result from %s meant for another function", GetNodeName(m.Id), m.current.Id(), rf.from)
	}
	m.returnStack = m.returnStack[:top]
	return rf, true
}

func (m *Mcu) badReturn(rf returnFrame) {
	logger.Panicf("%s: %s resumed at unknown label %d after %s", GetNodeName(m.Id), m.current.Id(), rf.label, rf.from)
}

// pickUntried picks a random channel not yet marked in tried, and marks it.
func (m *Mcu) pickUntried(tried []bool) ChannelId {
	var candidates []ChannelId
	for ch, t := range tried {
		if !t {
			candidates = append(candidates, ch)
		}
	}
	logger.AssertTrue(len(candidates) > 0, "no untried channel left")
	ch := candidates[m.rng.Intn(len(candidates))]
	tried[ch] = true
	return ch
}

func (m *Mcu) setChannel(ch ChannelId) {
	m.radio.SetChannel(ch, m.cfg.NumChannels)
}

// randomWait is the random back-off before answering, in cycles.
func (m *Mcu) randomWait() uint64 {
	if m.cfg.Timing.MaxResponseWaitCycles == 0 {
		return 0
	}
	return uint64(m.rng.Int63n(int64(m.cfg.Timing.MaxResponseWaitCycles) + 1))
}

func (m *Mcu) groupCycleExpired() bool {
	return m.clock.CurCycle() >= m.groupCycleStart+m.cfg.GroupCycleInterval
}

// loopDone reports whether a bounded loop must stop, either because its timer expired or because the group
// cycle is over. The timer is removed in both cases.
func (m *Mcu) loopDone(key timers.Key) bool {
	if m.groupCycleExpired() {
		m.timers.Cancel(key)
		return true
	}
	return m.timers.Expired(key)
}

func (m *Mcu) rollBroadcaster() bool {
	if len(m.cfg.Broadcasters) > 0 {
		for _, id := range m.cfg.Broadcasters {
			if id == m.Id {
				return true
			}
		}
		return false
	}
	return m.rng.Intn(100) < m.cfg.BroadcastPercentage
}

func (m *Mcu) isMember(id NodeId) bool {
	for _, mem := range m.members {
		if mem == id {
			return true
		}
	}
	return false
}

// addMember puts id in the first free member slot. Returns false if the group is full.
func (m *Mcu) addMember(id NodeId) bool {
	for i, mem := range m.members {
		if mem == InvalidNodeId {
			m.members[i] = id
			return true
		}
	}
	return false
}

func (m *Mcu) clearMembers() {
	for i := range m.members {
		m.members[i] = InvalidNodeId
	}
}

func (m *Mcu) memberCount() int {
	n := 0
	for _, mem := range m.members {
		if mem != InvalidNodeId {
			n++
		}
	}
	return n
}

func (m *Mcu) refreshSensors() []message.Reading {
	readings := make([]message.Reading, 0, len(m.sensors))
	for i, s := range m.sensors {
		s.Refresh(m.platform)
		readings = append(readings, message.Reading{Index: i, Values: append([]float64(nil), s.Reading...)})
	}
	return readings
}

// CurrentFunction returns the function that runs, or is entered, next.
func (m *Mcu) CurrentFunction() FunctionId {
	return m.current.Id()
}

// BusyRemaining returns the pending busy time in seconds; negative means an entry cost is still to be charged.
func (m *Mcu) BusyRemaining() float64 {
	return m.busyRemaining
}

func (m *Mcu) CallDepth() int {
	return len(m.callStack)
}

func (m *Mcu) PendingReturns() int {
	return len(m.returnStack)
}

func (m *Mcu) IsBroadcaster() bool {
	return m.broadcaster
}

// Members returns the current group members of a broadcaster.
func (m *Mcu) Members() []NodeId {
	var res []NodeId
	for _, mem := range m.members {
		if mem != InvalidNodeId {
			res = append(res, mem)
		}
	}
	return res
}

// DestNode returns the broadcaster this node has joined, or InvalidNodeId.
func (m *Mcu) DestNode() NodeId {
	return m.destNode
}

func (m *Mcu) GroupChannel() ChannelId {
	return m.groupChannel
}

func (m *Mcu) GroupCycleStart() uint64 {
	return m.groupCycleStart
}

// LfgChannels returns, per channel, the last broadcaster heard announcing a group there.
func (m *Mcu) LfgChannels() []NodeId {
	return append([]NodeId(nil), m.lfgChannels...)
}

func (m *Mcu) StoredMessages() *message.Store {
	return m.stored
}

// Counters returns the node's protocol counters merged with its radio statistics.
func (m *Mcu) Counters() NodeCounters {
	res := make(NodeCounters, len(m.counters)+3)
	res.Add(m.counters)
	st := m.radio.Stats()
	res["tx.started"] = st.NumTxStarted
	res["rx.delivered"] = st.NumRxDelivered
	res["rx.collision"] = st.NumRxCollision
	return res
}

// RadioState classifies what the radio is doing right now, for energy accounting.
func (m *Mcu) RadioState() RadioStates {
	switch {
	case m.radio.TransmitActive:
		return RadioTx
	case m.current.Id() == FuncSleep && m.busyRemaining > 0:
		return RadioSleep
	case m.radio.Channel == InvalidChannel:
		return RadioDisabled
	default:
		return RadioRx
	}
}

func (m *Mcu) groupChannelOk() (ChannelId, bool) {
	return m.groupChannel, m.groupChannel != InvalidChannel
}
