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

// Package message implements the text wire format exchanged by nodes over the medium:
//
//	<dest> <src> <TYPE> [payload...]
//
// where dest and src are N-<id> or N-ALL, TYPE is one of LFG, LFG-R, ACK, DATA and a DATA payload is a
// sequence of "S<index>: <reading>" pairs followed by "TIME <float>". A reading with more than one
// component is written comma separated.
package message

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	. "github.com/swarmsim/dwns/types"
)

type MessageType uint8

const (
	TypeInvalid MessageType = iota
	TypeLfg
	TypeLfgResponse
	TypeAck
	TypeData
)

const (
	addrPrefix    = "N-"
	addrBroadcast = "N-ALL"
	timeToken     = "TIME"
)

var typeTokens = map[MessageType]string{
	TypeLfg:         "LFG",
	TypeLfgResponse: "LFG-R",
	TypeAck:         "ACK",
	TypeData:        "DATA",
}

func (t MessageType) String() string {
	if s, ok := typeTokens[t]; ok {
		return s
	}
	return "INVALID"
}

func parseType(tok string) MessageType {
	for t, s := range typeTokens {
		if s == tok {
			return t
		}
	}
	return TypeInvalid
}

// Reading is one sensor slot's value in a DATA payload.
type Reading struct {
	Index  int
	Values []float64
}

// Message is the parsed form of a wire message.
type Message struct {
	Dest     NodeId // BroadcastNodeId for N-ALL
	Src      NodeId
	Type     MessageType
	Readings []Reading // DATA only
	Time     float64   // DATA only
}

func NewLfg(src NodeId) *Message {
	return &Message{Dest: BroadcastNodeId, Src: src, Type: TypeLfg}
}

func NewLfgResponse(dest NodeId, src NodeId) *Message {
	return &Message{Dest: dest, Src: src, Type: TypeLfgResponse}
}

func NewAck(dest NodeId, src NodeId) *Message {
	return &Message{Dest: dest, Src: src, Type: TypeAck}
}

func NewData(dest NodeId, src NodeId, readings []Reading, timeSec float64) *Message {
	return &Message{Dest: dest, Src: src, Type: TypeData, Readings: readings, Time: timeSec}
}

// IsFor returns true if the message is addressed to id, directly or by broadcast.
func (m *Message) IsFor(id NodeId) bool {
	return m.Dest == id || m.Dest == BroadcastNodeId
}

func formatAddr(id NodeId) string {
	if id == BroadcastNodeId {
		return addrBroadcast
	}
	return addrPrefix + strconv.Itoa(id)
}

func parseAddr(tok string) (NodeId, error) {
	if tok == addrBroadcast {
		return BroadcastNodeId, nil
	}
	if !strings.HasPrefix(tok, addrPrefix) {
		return InvalidNodeId, errors.Errorf("invalid address %q", tok)
	}
	id, err := strconv.Atoi(tok[len(addrPrefix):])
	if err != nil || id < 0 || id > MaxNodeId {
		return InvalidNodeId, errors.Errorf("invalid address %q", tok)
	}
	return id, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Serialize returns the wire format of the message.
func (m *Message) Serialize() string {
	var sb strings.Builder
	sb.WriteString(formatAddr(m.Dest))
	sb.WriteByte(' ')
	sb.WriteString(formatAddr(m.Src))
	sb.WriteByte(' ')
	sb.WriteString(m.Type.String())
	if m.Type != TypeData {
		return sb.String()
	}
	for _, r := range m.Readings {
		sb.WriteString(" S")
		sb.WriteString(strconv.Itoa(r.Index))
		sb.WriteString(": ")
		for i, v := range r.Values {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(formatFloat(v))
		}
	}
	sb.WriteString(" " + timeToken + " ")
	sb.WriteString(formatFloat(m.Time))
	return sb.String()
}

func (m *Message) String() string {
	return m.Serialize()
}

// Parse parses a wire message. Any deviation from the format is an error.
func Parse(s string) (*Message, error) {
	toks := strings.Fields(s)
	if len(toks) < 3 {
		return nil, errors.Errorf("message too short: %q", s)
	}
	dest, err := parseAddr(toks[0])
	if err != nil {
		return nil, errors.Wrap(err, "destination")
	}
	src, err := parseAddr(toks[1])
	if err != nil {
		return nil, errors.Wrap(err, "source")
	}
	if src == BroadcastNodeId {
		return nil, errors.Errorf("broadcast source address in %q", s)
	}
	msg := &Message{Dest: dest, Src: src, Type: parseType(toks[2])}
	switch msg.Type {
	case TypeInvalid:
		return nil, errors.Errorf("unknown message type %q", toks[2])
	case TypeData:
		if err = msg.parseDataPayload(toks[3:]); err != nil {
			return nil, errors.Wrapf(err, "DATA payload of %q", s)
		}
	default:
		if len(toks) > 3 {
			return nil, errors.Errorf("unexpected payload for %s: %q", msg.Type, s)
		}
	}
	return msg, nil
}

func (m *Message) parseDataPayload(toks []string) error {
	i := 0
	for ; i+1 < len(toks) && toks[i] != timeToken; i += 2 {
		slot := toks[i]
		if len(slot) < 3 || slot[0] != 'S' || slot[len(slot)-1] != ':' {
			return errors.Errorf("invalid sensor slot %q", slot)
		}
		idx, err := strconv.Atoi(slot[1 : len(slot)-1])
		if err != nil || idx < 0 {
			return errors.Errorf("invalid sensor slot %q", slot)
		}
		r := Reading{Index: idx}
		for _, f := range strings.Split(toks[i+1], ",") {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return errors.Wrapf(err, "sensor %d reading", idx)
			}
			r.Values = append(r.Values, v)
		}
		m.Readings = append(m.Readings, r)
	}
	if i+2 != len(toks) || toks[i] != timeToken {
		return errors.New("missing or misplaced TIME")
	}
	t, err := strconv.ParseFloat(toks[i+1], 64)
	if err != nil {
		return errors.Wrap(err, "TIME")
	}
	m.Time = t
	return nil
}
