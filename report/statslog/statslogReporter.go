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

package report_statslog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/swarmsim/dwns/logger"
	"github.com/swarmsim/dwns/report"
)

const StatsFileName = "stats.csv"

type statslogReporter struct {
	logFile       *os.File
	logFileName   string
	isFileEnabled bool
	lastCycle     uint64
	written       bool
}

type netStats struct {
	numNodes           int
	numBroadcasters    int
	numMembers         int
	numTransmitting    int
	numLanded          int
	collisions         uint64
	messagesReceived   uint64
	collisionsDetected uint64
}

// NewStatslogReporter creates a Reporter that logs network statistics to a CSV file in outputDir.
func NewStatslogReporter(outputDir string) report.Reporter {
	return &statslogReporter{
		logFileName:   filepath.Join(outputDir, StatsFileName),
		isFileEnabled: true,
	}
}

func (sr *statslogReporter) Init() {
	sr.createLogFile()
}

func (sr *statslogReporter) Report(s *report.Snapshot) {
	sr.writeLogEntry(s.TimeSec, calcStats(s))
	sr.lastCycle = s.Cycle
	sr.written = true
}

func (sr *statslogReporter) Stop(s *report.Snapshot) {
	// add a final entry with final status
	if s != nil && (!sr.written || s.Cycle != sr.lastCycle) {
		sr.writeLogEntry(s.TimeSec, calcStats(s))
	}
	sr.close()
	logger.Debugf("statslogReporter stopped and CSV log file closed.")
}

func (sr *statslogReporter) createLogFile() {
	logger.AssertNil(sr.logFile)

	var err error
	sr.logFile, err = os.OpenFile(sr.logFileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0664)
	if err != nil {
		logger.Errorf("creating new stats log file %s failed: %+v", sr.logFileName, err)
		sr.isFileEnabled = false
		return
	}
	sr.writeLogFileHeader()
	logger.Debugf("Stats log file '%s' created.", sr.logFileName)
}

func (sr *statslogReporter) writeLogFileHeader() {
	// RFC 4180 CSV file: no leading or trailing spaces in header field names
	header := "timeSec,nNodes,nBroadcasters,nMembers,nTransmitting,nCollisions,nGroundMessages,nGroundCollisions,nLanded"
	_ = sr.writeToLogFile(header)
}

func calcStats(s *report.Snapshot) netStats {
	return netStats{
		numNodes:           len(s.Nodes),
		numBroadcasters:    s.CountBroadcasters(),
		numMembers:         s.CountMembers(),
		numTransmitting:    s.CountTransmitting(),
		numLanded:          s.CountLanded(),
		collisions:         s.Collisions,
		messagesReceived:   s.Ground.MessagesReceived,
		collisionsDetected: s.Ground.CollisionsDetected,
	}
}

func (sr *statslogReporter) writeLogEntry(timeSec float64, stats netStats) {
	entry := fmt.Sprintf("%12.6f,%3d,%3d,%3d,%3d,%6d,%6d,%6d,%3d", timeSec, stats.numNodes, stats.numBroadcasters,
		stats.numMembers, stats.numTransmitting, stats.collisions, stats.messagesReceived, stats.collisionsDetected,
		stats.numLanded)
	_ = sr.writeToLogFile(entry)
}

func (sr *statslogReporter) writeToLogFile(line string) error {
	if !sr.isFileEnabled {
		return nil
	}
	_, err := sr.logFile.WriteString(line + "\n")
	if err != nil {
		sr.close()
		sr.isFileEnabled = false
		logger.Errorf("couldn't write to stats log file (%s), closing it", sr.logFileName)
	}
	return err
}

func (sr *statslogReporter) close() {
	if sr.logFile != nil {
		_ = sr.logFile.Close()
		sr.logFile = nil
		sr.isFileEnabled = false
	}
}
