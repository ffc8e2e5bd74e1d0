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

package energy

import (
	. "github.com/swarmsim/dwns/types"
)

/*
 * Default consumption values by radio state of a 2.4 GHz sensor node transceiver at 3.3V.
 * Consumption in milliwatts, time in seconds, resulting energy in mJ.
 */
const (
	RadioDisabledConsumption float64 = 0.00011 // milliwatts, to be confirmed
	RadioTxConsumption       float64 = 17.16   // milliwatts @ i = 5.2 mA
	RadioRxConsumption       float64 = 14.85   // milliwatts @ i = 4.5 mA
	RadioSleepConsumption    float64 = 0.0033  // milliwatts @ i = 1 uA
)

type RadioStatus struct {
	State         RadioStates
	SpentDisabled uint64
	SpentSleep    uint64
	SpentTx       uint64
	SpentRx       uint64
	Timestamp     uint64
}

// NodeEnergy is the energy consumed by one node's radio, per state, in mJ.
type NodeEnergy struct {
	NodeId   NodeId
	Disabled float64
	Sleep    float64
	Tx       float64
	Rx       float64
}

func (e NodeEnergy) Total() float64 {
	return e.Disabled + e.Sleep + e.Tx + e.Rx
}

type NetworkConsumption struct {
	Timestamp          uint64
	EnergyConsDisabled float64
	EnergyConsSleep    float64
	EnergyConsTx       float64
	EnergyConsRx       float64
}
