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

package prng

import (
	"math/rand"
	"time"
)

type RandomSeed int64

var (
	rootSeed                     int64
	newNodeRandSeedGenerator     *rand.Rand
	newFlightRandSeedGenerator   *rand.Rand
	newScenarioRandSeedGenerator *rand.Rand
)

func init() {
	Init(1)
}

// Init initializes the prng package, either with a fixed PRNG seed (seed != 0) or a 'random' time-based PRNG
// seed (if seed == 0). All generators handed out after Init are a pure function of the seed.
func Init(seed int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rootSeed = seed
	r := rand.New(rand.NewSource(seed))

	newNodeRandSeedGenerator = rand.New(rand.NewSource(seed + r.Int63n(1e10)))
	newFlightRandSeedGenerator = rand.New(rand.NewSource(seed + r.Int63n(1e10)))
	newScenarioRandSeedGenerator = rand.New(rand.NewSource(seed + r.Int63n(1e10)))
}

// RootSeed returns the seed in use, also when it was chosen from the clock.
func RootSeed() int64 {
	return rootSeed
}

// NewNodeRandomSeed generates unique random-seeds for the protocol logic of newly created nodes.
func NewNodeRandomSeed() RandomSeed {
	return RandomSeed(newNodeRandSeedGenerator.Int63())
}

// NewFlightRandomSeed generates unique random-seeds for the kinematics of newly created nodes.
func NewFlightRandomSeed() RandomSeed {
	return RandomSeed(newFlightRandSeedGenerator.Int63())
}

// NewScenarioRandomSeed generates a seed for simulation-wide random choices.
func NewScenarioRandomSeed() RandomSeed {
	return RandomSeed(newScenarioRandSeedGenerator.Int63())
}

// NewRand creates a generator from a seed handed out by this package.
func NewRand(seed RandomSeed) *rand.Rand {
	return rand.New(rand.NewSource(int64(seed)))
}
