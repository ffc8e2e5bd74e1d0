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

package sensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedPlatform struct {
	x, y, z    float64
	ax, ay, az float64
}

func (p *fixedPlatform) Position() (float64, float64, float64) {
	return p.x, p.y, p.z
}

func (p *fixedPlatform) Acceleration() (float64, float64, float64) {
	return p.ax, p.ay, p.az
}

func TestParseType(t *testing.T) {
	for code := 0; code <= 3; code++ {
		st, err := ParseType(code)
		assert.Nil(t, err)
		assert.Equal(t, Type(code), st)
	}
	_, err := ParseType(4)
	assert.NotNil(t, err)
	_, err = ParseType(-1)
	assert.NotNil(t, err)
}

func TestRefresh(t *testing.T) {
	p := &fixedPlatform{x: 1, y: 2, z: 1000, ax: 0.1, ay: -0.2, az: 9.8}

	s := New(Altimeter)
	s.Refresh(p)
	assert.Equal(t, []float64{1000}, s.Reading)

	s = New(GPS)
	s.Refresh(p)
	assert.Equal(t, []float64{1, 2, 1000}, s.Reading)

	s = New(Accelerometer)
	s.Refresh(p)
	assert.Equal(t, []float64{0.1, -0.2, 9.8}, s.Reading)

	s = New(Temperature)
	s.Refresh(p)
	assert.InDelta(t, 8.5, s.Reading[0], 1e-9)

	p.z = 30000
	s.Refresh(p)
	assert.InDelta(t, -56.5, s.Reading[0], 1e-9)
}
