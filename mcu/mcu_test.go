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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmsim/dwns/logger"
	"github.com/swarmsim/dwns/message"
	"github.com/swarmsim/dwns/radiomodel"
	"github.com/swarmsim/dwns/sensor"
	. "github.com/swarmsim/dwns/types"
)

type testClock struct {
	cycle uint64
	res   float64
}

func (c *testClock) CurCycle() uint64 {
	return c.cycle
}

func (c *testClock) CurTimeSec() float64 {
	return float64(c.cycle) * c.res
}

type fixedPlatform struct{}

func (p fixedPlatform) Position() (float64, float64, float64) {
	return 0, 0, 1000
}

func (p fixedPlatform) Acceleration() (float64, float64, float64) {
	return 0, 0, -9.8
}

// recFn is a stand-in caller that only counts how often it runs.
type recFn struct {
	id   FunctionId
	runs int
}

func (f *recFn) Id() FunctionId {
	return f.id
}

func (f *recFn) run(m *Mcu) {
	f.runs++
}

type harness struct {
	clock  *testClock
	medium *radiomodel.Medium
	mcus   []*Mcu
}

func newHarness(cfg *Config, n int) *harness {
	h := &harness{
		clock:  &testClock{res: cfg.TimeResolution},
		medium: radiomodel.NewMedium(radiomodel.NewMediumParams(), cfg.NumChannels),
	}
	for i := 0; i < n; i++ {
		h.medium.AddNode(radiomodel.NewRadioNode(i, &radiomodel.RadioNodeConfig{X: float64(i), Z: 1000, TxPower: 20}))
	}
	for i := 0; i < n; i++ {
		nodeCfg := DefaultNodeConfig()
		nodeCfg.ID = i
		env := Environment{
			Clock:    h.clock,
			Medium:   h.medium,
			Platform: fixedPlatform{},
			Rand:     rand.New(rand.NewSource(int64(i) + 1)),
			Logger:   logger.GetNodeLogger("", &nodeCfg),
		}
		h.mcus = append(h.mcus, NewMcu(i, cfg, []sensor.Type{sensor.Temperature, sensor.Altimeter}, env))
	}
	return h
}

func (h *harness) tick() {
	h.clock.cycle++
	h.medium.Commit()
	for _, m := range h.mcus {
		m.Run()
	}
}

func (h *harness) tickOnly(i int) {
	h.clock.cycle++
	h.medium.Commit()
	h.mcus[i].Run()
}

// callAndWait calls callee on node i from a stand-in caller and runs only that node until callee returns.
func (h *harness) callAndWait(t *testing.T, i int, callee function, maxTicks int) returnFrame {
	m := h.mcus[i]
	caller := &recFn{id: FuncMain}
	m.current = caller
	m.busyRemaining = 0
	m.call(1, callee)
	for n := 0; n < maxTicks; n++ {
		h.tickOnly(i)
		if m.current == function(caller) && m.PendingReturns() > 0 {
			rf, ok := m.resume()
			require.True(t, ok)
			assert.Equal(t, 0, m.CallDepth())
			return rf
		}
	}
	require.FailNow(t, "callee did not return", "%s still running after %d ticks", callee.Id(), maxTicks)
	return returnFrame{}
}

func transmitManually(h *harness, id NodeId, ch ChannelId, msg *message.Message) {
	rn := h.medium.GetNode(id)
	rn.SetChannel(ch, h.medium.NumChannels())
	rn.SendBuffer = msg.Serialize()
	rn.SetTransmit(true)
}

func TestNewMcuStartsInMain(t *testing.T) {
	h := newHarness(DefaultConfig(), 1)
	m := h.mcus[0]
	assert.Equal(t, FuncMain, m.CurrentFunction())
	assert.Equal(t, -1.0, m.BusyRemaining())
	assert.Equal(t, 0, m.CallDepth())
	assert.Equal(t, InvalidNodeId, m.DestNode())
	assert.Empty(t, m.Members())
	for _, id := range m.LfgChannels() {
		assert.Equal(t, InvalidNodeId, id)
	}
}

func TestBusyCostCharging(t *testing.T) {
	h := newHarness(DefaultConfig(), 1)
	m := h.mcus[0]
	f := &recFn{id: FuncCheckChannelBusy}
	m.current = f
	m.busyRemaining = -1

	m.Run()
	assert.InDelta(t, 0.005, m.BusyRemaining(), 1e-12)
	for i := 0; i < 4; i++ {
		m.Run()
		assert.Equal(t, 0, f.runs)
	}
	m.Run()
	assert.Equal(t, 1, f.runs)
	assert.Equal(t, 0.0, m.BusyRemaining())
}

func TestZeroCostRunsOnNextStep(t *testing.T) {
	h := newHarness(DefaultConfig(), 1)
	m := h.mcus[0]
	f := &recFn{id: FuncMain}
	m.current = f
	m.busyRemaining = -1

	m.Run()
	assert.Equal(t, 0, f.runs)
	m.Run()
	assert.Equal(t, 1, f.runs)
}

func TestSentinelNotDecremented(t *testing.T) {
	h := newHarness(DefaultConfig(), 1)
	m := h.mcus[0]
	m.busyRemaining = -1
	m.updateBusyTime()
	assert.Equal(t, -1.0, m.busyRemaining)

	m.busyRemaining = 0.0015
	m.updateBusyTime()
	assert.InDelta(t, 0.0005, m.busyRemaining, 1e-12)
	m.updateBusyTime()
	assert.Equal(t, 0.0, m.busyRemaining)
}

func TestDelayCostIsItsLength(t *testing.T) {
	cfg := DefaultConfig()
	assert.InDelta(t, 0.030, cfg.busyCost(&delayFn{cycles: 30}), 1e-12)
	assert.Equal(t, 0.0, cfg.busyCost(&delayFn{}))
	assert.Equal(t, cfg.Timing.Airtime, cfg.busyCost(&transmitCompleteFn{}))
	assert.Equal(t, 0.0, cfg.busyCost(&mainFn{}))
}

func TestCallReturnSymmetry(t *testing.T) {
	h := newHarness(DefaultConfig(), 1)
	m := h.mcus[0]
	caller := &recFn{id: FuncMain}
	m.current = caller
	m.busyRemaining = 0

	m.call(Label(3), &recFn{id: FuncSleep})
	assert.Equal(t, 1, m.CallDepth())
	assert.Equal(t, FuncSleep, m.CurrentFunction())
	assert.Equal(t, -1.0, m.BusyRemaining())

	m.ret(nodeResult(4))
	assert.Equal(t, 0, m.CallDepth())
	assert.Equal(t, 1, m.PendingReturns())
	assert.Equal(t, FuncMain, m.CurrentFunction())
	assert.Equal(t, -1.0, m.BusyRemaining())

	rf, ok := m.resume()
	require.True(t, ok)
	assert.Equal(t, Label(3), rf.label)
	assert.Equal(t, FuncSleep, rf.from)
	assert.Equal(t, function(caller), rf.to)
	node, ok := rf.value.Node()
	assert.True(t, ok)
	assert.Equal(t, 4, node)
	assert.Equal(t, 0, m.PendingReturns())

	_, ok = m.resume()
	assert.False(t, ok)
}

func TestSecondPopInStepPanics(t *testing.T) {
	h := newHarness(DefaultConfig(), 1)
	m := h.mcus[0]
	m.current = &recFn{id: FuncMain}
	m.call(1, &recFn{id: FuncSleep})
	m.call(2, &recFn{id: FuncDelay})

	m.ret(okResult())
	assert.Panics(t, func() {
		m.ret(okResult())
	})
}

func TestReturnFromMainPanics(t *testing.T) {
	h := newHarness(DefaultConfig(), 1)
	assert.Panics(t, func() {
		h.mcus[0].ret(okResult())
	})
}

func TestUnknownLabelPanics(t *testing.T) {
	h := newHarness(DefaultConfig(), 1)
	m := h.mcus[0]
	m.returnStack = append(m.returnStack, returnFrame{from: FuncSleep, to: m.current, label: 99, value: okResult()})
	assert.Panics(t, func() {
		m.current.run(m)
	})
}

func TestResumeWithForeignResultPanics(t *testing.T) {
	h := newHarness(DefaultConfig(), 1)
	m := h.mcus[0]
	m.returnStack = append(m.returnStack, returnFrame{from: FuncReceive, to: &scanLfgFn{}, label: scanLabelRecv, value: okResult()})
	m.busyRemaining = 0
	assert.Panics(t, func() {
		m.Run()
	})
}

func TestSleepEndsWithGroupCycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GroupCycleInterval = 100
	h := newHarness(cfg, 1)
	m := h.mcus[0]
	m.current = &sleepFn{}

	h.clock.cycle = 70
	m.busyRemaining = -1
	m.Run()
	assert.InDelta(t, 0.030, m.BusyRemaining(), 1e-12)

	h.clock.cycle = 100
	m.busyRemaining = -1
	m.Run()
	assert.Equal(t, 0.0, m.BusyRemaining())

	m.groupCycleStart = 100
	m.busyRemaining = -1
	m.Run()
	assert.Equal(t, cfg.Timing.SleepTime, m.BusyRemaining())
}

func TestFindClearChannel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumChannels = 2
	h := newHarness(cfg, 3)
	transmitManually(h, 1, 0, message.NewLfg(1))

	rf := h.callAndWait(t, 0, &findClearChannelFn{}, 100)
	ch, ok := rf.value.Channel()
	assert.True(t, ok)
	assert.Equal(t, 1, ch)

	transmitManually(h, 2, 1, message.NewLfg(2))
	rf = h.callAndWait(t, 0, &findClearChannelFn{}, 100)
	_, ok = rf.value.Channel()
	assert.False(t, ok)
}

func TestReceiveCollision(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumChannels = 1
	h := newHarness(cfg, 3)
	h.medium.GetNode(0).SetChannel(0, 1)
	transmitManually(h, 1, 0, message.NewLfg(1))
	transmitManually(h, 2, 0, message.NewLfg(2))

	rf := h.callAndWait(t, 0, &receiveFn{}, 10)
	assert.Equal(t, radiomodel.RxCollision, rf.value.RxOutcome())
	_, ok := rf.value.Message()
	assert.False(t, ok)
	assert.Equal(t, uint64(1), h.medium.Collisions())
	assert.Equal(t, uint64(1), h.mcus[0].Counters()["rx.collision"])
}

func TestReceiveMalformedIsDropped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumChannels = 1
	h := newHarness(cfg, 2)
	h.medium.GetNode(0).SetChannel(0, 1)
	rn := h.medium.GetNode(1)
	rn.SetChannel(0, 1)
	rn.SendBuffer = "N-ALL garbage"
	rn.SetTransmit(true)

	rf := h.callAndWait(t, 0, &receiveFn{}, 10)
	assert.Equal(t, radiomodel.RxDelivered, rf.value.RxOutcome())
	_, ok := rf.value.Message()
	assert.False(t, ok)
}

func TestScanLfgSingleSweep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumChannels = 4
	h := newHarness(cfg, 2)
	transmitManually(h, 1, 2, message.NewLfg(1))

	rf := h.callAndWait(t, 0, &scanLfgFn{}, 1000)
	sender, ok := rf.value.Node()
	assert.True(t, ok)
	assert.Equal(t, 1, sender)
	assert.Equal(t, []NodeId{InvalidNodeId, InvalidNodeId, 1, InvalidNodeId}, h.mcus[0].LfgChannels())
	assert.Equal(t, uint64(1), h.mcus[0].Counters()["lfg.heard"])
}

func TestScanLfgRespondRunsUntilWindowExpires(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumChannels = 2
	cfg.Timing.ScanCycles = 200
	h := newHarness(cfg, 1)

	start := h.clock.cycle
	rf := h.callAndWait(t, 0, &scanLfgFn{respond: true}, 1000)
	_, ok := rf.value.Node()
	assert.False(t, ok)
	assert.GreaterOrEqual(t, h.clock.cycle-start, uint64(200))
}

func TestScanLfgStopsWhenGroupCycleExpires(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumChannels = 2
	cfg.GroupCycleInterval = 100
	h := newHarness(cfg, 1)

	rf := h.callAndWait(t, 0, &scanLfgFn{respond: true}, 1000)
	_, ok := rf.value.Node()
	assert.False(t, ok)
	assert.GreaterOrEqual(t, h.clock.cycle, uint64(100))
	assert.Less(t, h.clock.cycle, uint64(120))
	_, ok = h.mcus[0].timers.Remaining(timerKey(FuncScanLfg, scanLabelWindow))
	assert.False(t, ok)
}

func TestBroadcastLfgStopsWhenGroupCycleExpires(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumChannels = 2
	cfg.GroupCycleInterval = 100
	h := newHarness(cfg, 1)

	rf := h.callAndWait(t, 0, &broadcastLfgFn{}, 3000)
	_, ok := rf.value.Channel()
	assert.True(t, ok)
	assert.GreaterOrEqual(t, h.clock.cycle, uint64(120))
	assert.Less(t, h.clock.cycle, uint64(140))
	assert.False(t, h.mcus[0].radio.TransmitActive)
}

func TestGroupFullDropsSilently(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumChannels = 1
	cfg.GroupMax = 1
	cfg.Timing.ResponseWindowCycles = 100
	h := newHarness(cfg, 2)
	m := h.mcus[0]
	m.broadcaster = true
	m.members[0] = 5
	m.setChannel(0)
	transmitManually(h, 1, 0, message.NewLfgResponse(0, 1))

	h.callAndWait(t, 0, &scanLfgResponsesFn{}, 1000)
	assert.Equal(t, []NodeId{5}, m.Members())
	assert.Equal(t, uint64(0), m.Counters()["ack.sent"])
	assert.Equal(t, uint64(0), m.Counters()["tx.started"])
	assert.Greater(t, m.Counters()["rx.delivered"], uint64(0))
}

func TestKnownMemberIsAckedAgain(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumChannels = 1
	cfg.GroupMax = 1
	cfg.Timing.ResponseWindowCycles = 300
	h := newHarness(cfg, 2)
	m := h.mcus[0]
	m.broadcaster = true
	m.members[0] = 1
	m.setChannel(0)
	transmitManually(h, 1, 0, message.NewLfgResponse(0, 1))

	m.current = &recFn{id: FuncMain}
	m.busyRemaining = 0
	m.call(1, &scanLfgResponsesFn{})
	for i := 0; i < 1000 && m.Counters()["ack.sent"] == 0; i++ {
		if m.Counters()["rx.delivered"] > 0 {
			h.medium.GetNode(1).SetTransmit(false)
		}
		h.tickOnly(0)
	}
	assert.Equal(t, uint64(1), m.Counters()["ack.sent"])
	assert.Equal(t, uint64(0), m.Counters()["group.member_added"])
	assert.Equal(t, []NodeId{1}, m.Members())
}

func TestRespondLfgRetriesThenGivesUp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumChannels = 1
	cfg.Timing.RespondCycles = 400
	cfg.Timing.AckTimeoutCycles = 20
	h := newHarness(cfg, 2)
	m := h.mcus[1]
	m.lfgChannels[0] = 0

	fn := &respondLfgFn{target: 0}
	rf := h.callAndWait(t, 1, fn, 5000)
	assert.False(t, rf.value.Ok())
	assert.Greater(t, fn.attempts, 1)
	assert.Equal(t, uint64(fn.attempts), m.Counters()["tx.started"])
	assert.Equal(t, InvalidNodeId, m.DestNode())
	assert.Equal(t, InvalidChannel, m.GroupChannel())
	assert.Equal(t, uint64(0), m.Counters()["group.joined"])
	assert.Equal(t, uint64(0), m.Counters()["ack.received"])
}

func TestGroupDiscoveryAndDataExchange(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumChannels = 4
	cfg.Broadcasters = []NodeId{0}
	h := newHarness(cfg, 2)
	bc, member := h.mcus[0], h.mcus[1]

	for i := 0; i < 6000 && member.GroupChannel() == InvalidChannel; i++ {
		h.tick()
	}
	assert.True(t, bc.IsBroadcaster())
	assert.False(t, member.IsBroadcaster())
	assert.Equal(t, 0, member.DestNode())
	assert.Equal(t, []NodeId{1}, bc.Members())
	assert.Equal(t, bc.GroupChannel(), member.GroupChannel())
	assert.Equal(t, 0, member.LfgChannels()[bc.GroupChannel()])

	for i := 0; i < 4000 && bc.StoredMessages().Len() == 0; i++ {
		h.tick()
	}
	stored, ok := bc.StoredMessages().Latest(1)
	require.True(t, ok)
	assert.Equal(t, message.TypeData, stored.Msg.Type)
	assert.Equal(t, 0, stored.Msg.Dest)
	require.Len(t, stored.Msg.Readings, 2)
	assert.InDelta(t, 15-0.0065*1000, stored.Msg.Readings[0].Values[0], 1e-9)
	assert.Equal(t, []float64{1000}, stored.Msg.Readings[1].Values)
	assert.Greater(t, member.Counters()["data.sent"], uint64(0))
}

func TestGroupCycleRestart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumChannels = 1
	cfg.GroupCycleInterval = 100
	cfg.BroadcastPercentage = 100
	cfg.Timing.BroadcastCycles = 10
	cfg.Timing.ResponseWindowCycles = 10
	cfg.Timing.SleepTime = 0
	h := newHarness(cfg, 1)
	m := h.mcus[0]

	// main is charged and calls group_cycle_start, which is charged and then runs, all with the clock at 0
	for i := 0; i < 4; i++ {
		m.Run()
	}
	require.Equal(t, uint64(1), m.Counters()["group.cycles"])
	assert.Equal(t, uint64(0), m.GroupCycleStart())
	assert.True(t, m.IsBroadcaster())
	m.members[0] = 7

	for h.clock.cycle < 300 && m.Counters()["group.cycles"] < 2 {
		h.tick()
	}
	assert.Equal(t, uint64(2), m.Counters()["group.cycles"])
	assert.GreaterOrEqual(t, m.GroupCycleStart(), uint64(100))
	assert.LessOrEqual(t, m.GroupCycleStart(), uint64(115))
	assert.Empty(t, m.Members())
}

func TestRandomWaitBounded(t *testing.T) {
	cfg := DefaultConfig()
	h := newHarness(cfg, 1)
	for i := 0; i < 1000; i++ {
		assert.LessOrEqual(t, h.mcus[0].randomWait(), cfg.Timing.MaxResponseWaitCycles)
	}
	cfg.Timing.MaxResponseWaitCycles = 0
	assert.Equal(t, uint64(0), h.mcus[0].randomWait())
}

func TestRadioState(t *testing.T) {
	h := newHarness(DefaultConfig(), 1)
	m := h.mcus[0]
	assert.Equal(t, RadioDisabled, m.RadioState())
	m.setChannel(3)
	assert.Equal(t, RadioRx, m.RadioState())
	m.current = &sleepFn{}
	m.busyRemaining = 0.5
	assert.Equal(t, RadioSleep, m.RadioState())
	m.radio.SetTransmit(true)
	assert.Equal(t, RadioTx, m.RadioState())
}
