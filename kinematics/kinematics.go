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

// Package kinematics integrates the free fall of a node: gravity up to a per-node terminal velocity, and a
// slowly drifting random lateral acceleration.
package kinematics

import (
	"math/rand"
)

const (
	// XyAccelDeltaMax is the max lateral acceleration change per second, per axis.
	XyAccelDeltaMax = 0.005
	// DragVariance is the relative spread of the per-node terminal velocity.
	DragVariance = 0.05
)

// Params are the flight parameters shared by all nodes.
type Params struct {
	Gravity          float64 // m/s^2
	TerminalVelocity float64 // m/s, nominal
	SpreadFactor     float64 // percent chance per tick of a lateral acceleration change
	TimeResolution   float64 // s per tick
}

// Body is the kinematic state of one node. Z is altitude; Vz and Az are positive downwards.
type Body struct {
	X, Y, Z          float64
	Vx, Vy, Vz       float64
	Ax, Ay, Az       float64
	TerminalVelocity float64

	rng *rand.Rand
}

// NewBody creates a body at rest at the given position, with its own terminal velocity drawn within
// DragVariance of the nominal value.
func NewBody(x, y, z float64, params *Params, rng *rand.Rand) *Body {
	variance := float64(rng.Intn(201)-100) / 100.0
	return &Body{
		X:                x,
		Y:                y,
		Z:                z,
		Az:               params.Gravity,
		TerminalVelocity: params.TerminalVelocity + params.TerminalVelocity*DragVariance*variance,
		rng:              rng,
	}
}

// Step advances the body by one tick.
func (b *Body) Step(params *Params) {
	res := params.TimeResolution

	if float64(b.rng.Intn(100)) < params.SpreadFactor {
		b.Ax += float64(b.rng.Intn(201)-100) / 100.0 * res * XyAccelDeltaMax
		b.Ay += float64(b.rng.Intn(201)-100) / 100.0 * res * XyAccelDeltaMax
	}

	if b.Z > 0 && b.Vz < b.TerminalVelocity {
		if b.Vz+b.Az*res < b.TerminalVelocity {
			b.Vz += b.Az * res
		} else {
			b.Vz = b.TerminalVelocity
		}
	}
	b.Vx += b.Ax * res
	b.Vy += b.Ay * res

	if b.Z > 0 {
		if b.Z-b.Vz*res > 0 {
			b.Z -= b.Vz * res
		} else {
			b.Z = 0
		}
	}
	b.X += b.Vx * res
	b.Y += b.Vy * res
}

// Landed returns true once the body reached the ground.
func (b *Body) Landed() bool {
	return b.Z <= 0
}

func (b *Body) Position() (x, y, z float64) {
	return b.X, b.Y, b.Z
}

func (b *Body) Velocity() (x, y, z float64) {
	return b.Vx, b.Vy, b.Vz
}

func (b *Body) Acceleration() (x, y, z float64) {
	return b.Ax, b.Ay, b.Az
}
