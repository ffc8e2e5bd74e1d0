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

// Package sensor models the sensors attached to a node and their readings.
package sensor

import (
	"github.com/pkg/errors"
)

type Type int

const (
	Temperature   Type = 0
	Accelerometer Type = 1
	Altimeter     Type = 2
	GPS           Type = 3
)

const (
	seaLevelTempC   = 15.0
	lapseRateCPerM  = 0.0065
	tropopauseM     = 11000.0
	tropopauseTempC = seaLevelTempC - lapseRateCPerM*tropopauseM
)

func (t Type) String() string {
	switch t {
	case Temperature:
		return "temperature"
	case Accelerometer:
		return "accelerometer"
	case Altimeter:
		return "altimeter"
	case GPS:
		return "gps"
	default:
		return "unknown"
	}
}

// ParseType converts a configuration type code into a Type.
func ParseType(code int) (Type, error) {
	t := Type(code)
	switch t {
	case Temperature, Accelerometer, Altimeter, GPS:
		return t, nil
	default:
		return t, errors.Errorf("unknown sensor type code %d", code)
	}
}

// Platform is the body a sensor is mounted on.
type Platform interface {
	Position() (x, y, z float64)
	Acceleration() (x, y, z float64)
}

// Sensor is one sensor slot with its last reading.
type Sensor struct {
	Type    Type
	Reading []float64
}

func New(t Type) *Sensor {
	return &Sensor{Type: t}
}

// Refresh samples the platform. Temperature is a standard-atmosphere estimate from altitude.
func (s *Sensor) Refresh(p Platform) {
	x, y, z := p.Position()
	switch s.Type {
	case Temperature:
		if z < tropopauseM {
			s.Reading = []float64{seaLevelTempC - lapseRateCPerM*z}
		} else {
			s.Reading = []float64{tropopauseTempC}
		}
	case Accelerometer:
		ax, ay, az := p.Acceleration()
		s.Reading = []float64{ax, ay, az}
	case Altimeter:
		s.Reading = []float64{z}
	case GPS:
		s.Reading = []float64{x, y, z}
	}
}
