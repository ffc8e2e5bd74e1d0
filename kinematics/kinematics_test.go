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

package kinematics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testParams() *Params {
	return &Params{
		Gravity:          9.80665,
		TerminalVelocity: 8.0,
		SpreadFactor:     20,
		TimeResolution:   0.001,
	}
}

func TestTerminalVelocityVariance(t *testing.T) {
	params := testParams()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		b := NewBody(0, 0, 100, params, rng)
		assert.GreaterOrEqual(t, b.TerminalVelocity, 8.0*(1-DragVariance)-1e-9)
		assert.LessOrEqual(t, b.TerminalVelocity, 8.0*(1+DragVariance)+1e-9)
	}
}

func TestFallReachesTerminalVelocityAndLands(t *testing.T) {
	params := testParams()
	b := NewBody(0, 0, 50, params, rand.New(rand.NewSource(7)))

	for i := 0; i < 2000; i++ {
		b.Step(params)
	}
	assert.Equal(t, b.TerminalVelocity, b.Vz)
	assert.False(t, b.Landed())

	for i := 0; i < 20000 && !b.Landed(); i++ {
		b.Step(params)
	}
	assert.True(t, b.Landed())
	assert.Equal(t, 0.0, b.Z)

	b.Step(params)
	assert.Equal(t, 0.0, b.Z)
}

func TestNoDriftWithoutSpread(t *testing.T) {
	params := testParams()
	params.SpreadFactor = 0
	b := NewBody(3, 4, 100, params, rand.New(rand.NewSource(3)))
	for i := 0; i < 1000; i++ {
		b.Step(params)
	}
	x, y, _ := b.Position()
	assert.Equal(t, 3.0, x)
	assert.Equal(t, 4.0, y)
	ax, ay, az := b.Acceleration()
	assert.Equal(t, 0.0, ax)
	assert.Equal(t, 0.0, ay)
	assert.Equal(t, params.Gravity, az)
}

func TestDeterministic(t *testing.T) {
	params := testParams()
	b1 := NewBody(0, 0, 1000, params, rand.New(rand.NewSource(42)))
	b2 := NewBody(0, 0, 1000, params, rand.New(rand.NewSource(42)))
	for i := 0; i < 5000; i++ {
		b1.Step(params)
		b2.Step(params)
	}
	assert.Equal(t, b1.X, b2.X)
	assert.Equal(t, b1.Y, b2.Y)
	assert.Equal(t, b1.Z, b2.Z)
}
