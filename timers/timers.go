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

// Package timers implements the per-node cycle timer registry, used to bound how long a protocol function
// may stay in a retry or listen loop.
package timers

import (
	"github.com/swarmsim/dwns/logger"
	. "github.com/swarmsim/dwns/types"
)

// Clock supplies the current simulation cycle.
type Clock interface {
	CurCycle() uint64
}

// Key identifies a timer within one node: the protocol function owning it and the checkpoint label.
type Key struct {
	Function int
	Label    int
}

type cycleTimer struct {
	Key
	Start      uint64
	Expiration uint64
}

// Registry holds the cycle timers of a single node. Timers are kept in creation order; lookups find the
// most recently created timer for a key first.
type Registry struct {
	nodeid NodeId
	clock  Clock
	timers []cycleTimer
}

func NewRegistry(nodeid NodeId, clock Clock) *Registry {
	logger.AssertNotNil(clock)
	return &Registry{
		nodeid: nodeid,
		clock:  clock,
	}
}

// Create inserts a new timer that expires expiration cycles after start. Duplicates are allowed.
func (r *Registry) Create(key Key, start uint64, expiration uint64) {
	r.timers = append(r.timers, cycleTimer{
		Key:        key,
		Start:      start,
		Expiration: expiration,
	})
}

// Start creates a timer starting at the current cycle.
func (r *Registry) Start(key Key, expiration uint64) {
	r.Create(key, r.clock.CurCycle(), expiration)
}

// Restart replaces any timers for key with a single new timer starting at the current cycle.
func (r *Registry) Restart(key Key, expiration uint64) {
	r.Cancel(key)
	r.Start(key, expiration)
}

func (r *Registry) find(key Key) int {
	for i := len(r.timers) - 1; i >= 0; i-- {
		if r.timers[i].Key == key {
			return i
		}
	}
	return -1
}

// Expired returns true, and removes the timer, if the most recent timer for key has expired at the current
// cycle. An unexpired timer is left untouched and a missing timer is not created; both return false.
func (r *Registry) Expired(key Key) bool {
	idx := r.find(key)
	if idx < 0 {
		return false
	}
	t := r.timers[idx]
	if t.Start+t.Expiration > r.clock.CurCycle() {
		return false
	}
	r.timers = append(r.timers[:idx], r.timers[idx+1:]...)
	return true
}

// Remaining returns the number of cycles until the most recent timer for key expires, if it exists.
func (r *Registry) Remaining(key Key) (uint64, bool) {
	idx := r.find(key)
	if idx < 0 {
		return 0, false
	}
	t := r.timers[idx]
	now := r.clock.CurCycle()
	if t.Start+t.Expiration <= now {
		return 0, true
	}
	return t.Start + t.Expiration - now, true
}

// Cancel removes all timers for key.
func (r *Registry) Cancel(key Key) {
	kept := r.timers[:0]
	for _, t := range r.timers {
		if t.Key != key {
			kept = append(kept, t)
		}
	}
	r.timers = kept
}

// Len returns the number of live timers.
func (r *Registry) Len() int {
	return len(r.timers)
}
