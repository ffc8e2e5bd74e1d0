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

package message

import (
	. "github.com/swarmsim/dwns/types"
)

// StoredMessage is a received DATA message kept for later relay.
type StoredMessage struct {
	Sender NodeId
	Cycle  uint64
	Msg    *Message
}

// Store keeps received messages newest first, dropping the oldest beyond its capacity.
type Store struct {
	max   int
	items []StoredMessage
}

func NewStore(max int) *Store {
	if max < 1 {
		max = 1
	}
	return &Store{max: max}
}

func (s *Store) Add(sender NodeId, cycle uint64, msg *Message) {
	s.items = append([]StoredMessage{{Sender: sender, Cycle: cycle, Msg: msg}}, s.items...)
	if len(s.items) > s.max {
		s.items = s.items[:s.max]
	}
}

// Latest returns the newest stored message from sender.
func (s *Store) Latest(sender NodeId) (StoredMessage, bool) {
	for _, it := range s.items {
		if it.Sender == sender {
			return it, true
		}
	}
	return StoredMessage{}, false
}

// All returns the stored messages, newest first.
func (s *Store) All() []StoredMessage {
	return s.items
}

func (s *Store) Len() int {
	return len(s.items)
}
