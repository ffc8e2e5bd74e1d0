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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/swarmsim/dwns/types"
)

func TestRadioStateAccounting(t *testing.T) {
	e := NewEnergyAnalyser(0.001)
	e.AddNode(0, 0)
	node := e.GetNode(0)

	node.SetRadioState(RadioRx, 100)
	node.SetRadioState(RadioTx, 300)
	node.SetRadioState(RadioSleep, 320)
	node.ComputeRadioState(1320)

	st := node.Status()
	assert.Equal(t, uint64(100), st.SpentDisabled)
	assert.Equal(t, uint64(200), st.SpentRx)
	assert.Equal(t, uint64(20), st.SpentTx)
	assert.Equal(t, uint64(1000), st.SpentSleep)
	assert.Equal(t, uint64(1320), st.Timestamp)
}

func TestStoreNetworkEnergy(t *testing.T) {
	e := NewEnergyAnalyser(0.001)
	e.AddNode(0, 0)
	e.AddNode(1, 0)
	e.AddNode(1, 50) // ignored, already present
	e.GetNode(0).SetRadioState(RadioTx, 0)
	e.GetNode(1).SetRadioState(RadioRx, 0)

	assert.Nil(t, e.GetLatestEnergyOfNodes())
	e.StoreNetworkEnergy(1000)

	latest := e.GetLatestEnergyOfNodes()
	require.Len(t, latest, 2)
	assert.Equal(t, 0, latest[0].NodeId)
	assert.InDelta(t, RadioTxConsumption, latest[0].Tx, 1e-9)
	assert.InDelta(t, RadioRxConsumption, latest[1].Rx, 1e-9)
	assert.InDelta(t, RadioTxConsumption, latest[0].Total(), 1e-9)

	net := e.GetNetworkEnergyHistory()
	require.Len(t, net, 1)
	assert.InDelta(t, RadioTxConsumption/2, net[0].EnergyConsTx, 1e-9)
	assert.InDelta(t, RadioRxConsumption/2, net[0].EnergyConsRx, 1e-9)

	e.ClearEnergyData()
	assert.Empty(t, e.GetNetworkEnergyHistory())
	assert.Empty(t, e.GetEnergyHistoryByNodes())
}

func TestSaveEnergyDataToFile(t *testing.T) {
	dir := t.TempDir()
	e := NewEnergyAnalyser(0.001)
	e.AddNode(0, 0)
	e.GetNode(0).SetRadioState(RadioRx, 0)
	e.StoreNetworkEnergy(500)

	require.NoError(t, e.SaveEnergyDataToFile(dir, 2000))
	data, err := os.ReadFile(filepath.Join(dir, EnergyFileName))
	require.NoError(t, err)
	lines := strings.Split(string(data), "\n")
	assert.Equal(t, "Duration of the simulation (in seconds): 2.000", lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "0\t0.000\t2.000\t0.000\t0.000\t"))

	assert.Error(t, e.SaveEnergyDataToFile(filepath.Join(dir, "missing"), 2000))
}
