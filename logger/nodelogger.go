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

package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/swarmsim/dwns/types"
)

// NodeLogger is a node-specific log object. Levels and output file can be set per individual node.
// Entries are buffered until the tick driver flushes them, so that output of one tick appears in node order.
type NodeLogger struct {
	Id           NodeId
	fileLevel    Level
	displayLevel Level

	logFile       *os.File
	logFileName   string
	isFileEnabled bool
	entries       chan logEntry
	cycle         uint64
}

var (
	nodeLogs = make(map[NodeId]*NodeLogger, 10)
	mutex    = sync.Mutex{}
)

// GetNodeLogger gets the NodeLogger instance for the given node config and configures it.
func GetNodeLogger(outputDir string, cfg *NodeConfig) *NodeLogger {
	mutex.Lock()
	defer mutex.Unlock()

	nodeid := cfg.ID
	nl, ok := nodeLogs[nodeid]
	if !ok {
		nl = &NodeLogger{
			Id:            nodeid,
			fileLevel:     DebugLevel,
			displayLevel:  OffLevel,
			entries:       make(chan logEntry, 1000),
			logFileName:   getLogFileName(outputDir, nodeid),
			isFileEnabled: cfg.NodeLogFile,
		}
		nodeLogs[nodeid] = nl
		if nl.isFileEnabled {
			nl.createLogFile()
		}
	} else {
		// an earlier simulation in this process may have used the same id; reconfigure.
		nl.logFileName = getLogFileName(outputDir, nodeid)
		nl.isFileEnabled = cfg.NodeLogFile
		if nl.isFileEnabled && nl.logFile == nil {
			nl.createLogFile()
		}
	}
	return nl
}

func getLogFileName(outputDir string, nodeId NodeId) string {
	return filepath.Join(outputDir, fmt.Sprintf("node-%d.log", nodeId))
}

func (nl *NodeLogger) createLogFile() {
	var err error
	nl.logFile, err = os.OpenFile(nl.logFileName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0664)
	if err != nil {
		Errorf("creating node log file %s failed: %+v", nl.logFileName, err)
		nl.isFileEnabled = false
		return
	}

	nl.writeLogFileHeader()
	Debugf("Node log file '%s' created.", nl.logFileName)
}

func (nl *NodeLogger) writeLogFileHeader() {
	header := fmt.Sprintf("#\n# dwns node log for %sCreated %s\n", GetNodeName(nl.Id),
		time.Now().Format(time.RFC3339)) +
		"#       Cycle Message"
	_ = nl.writeToLogFile(header)
}

// NodeLogf logs a formatted log message for the specific nodeid; correct NodeLogger object will be auto-found.
func NodeLogf(nodeid NodeId, level Level, format string, args ...interface{}) {
	mutex.Lock()
	nl := nodeLogs[nodeid]
	mutex.Unlock()
	if nl == nil || (level > nl.fileLevel && level > nl.displayLevel) {
		return
	}
	if level > nl.displayLevel && !nl.isFileEnabled {
		return
	}
	entry := logEntry{
		NodeId: nodeid,
		Level:  level,
		Msg:    getMessage(format, args),
	}
	select {
	case nl.entries <- entry:
		break
	default:
		nl.DisplayPendingLogEntries(nl.cycle)
		nl.entries <- entry
	}
}

func (nl *NodeLogger) SetDisplayLevel(level Level) {
	nl.displayLevel = level
}

func (nl *NodeLogger) Tracef(format string, args ...interface{}) {
	NodeLogf(nl.Id, TraceLevel, format, args...)
}

func (nl *NodeLogger) Debugf(format string, args ...interface{}) {
	NodeLogf(nl.Id, DebugLevel, format, args...)
}

func (nl *NodeLogger) Infof(format string, args ...interface{}) {
	NodeLogf(nl.Id, InfoLevel, format, args...)
}

func (nl *NodeLogger) Warnf(format string, args ...interface{}) {
	NodeLogf(nl.Id, WarnLevel, format, args...)
}

func (nl *NodeLogger) Errorf(format string, args ...interface{}) {
	NodeLogf(nl.Id, ErrorLevel, format, args...)
}

func (nl *NodeLogger) writeToLogFile(line string) error {
	_, err := nl.logFile.WriteString(line + "\n")
	if err != nil {
		nl.Close()
		nl.isFileEnabled = false
		Errorf("couldn't write to node log file (%s), closing it", nl.logFileName)
	}
	return err
}

// DisplayPendingLogEntries displays all pending log entries for the node, using given simulation cycle.
// This includes writing any pending entries to the node log file.
func (nl *NodeLogger) DisplayPendingLogEntries(cycle uint64) {
	nl.cycle = cycle
	cycleStr := fmt.Sprintf("%13d ", cycle)
	nodeStr := GetNodeName(nl.Id)
	for {
		select {
		case entry := <-nl.entries:
			isSaveEntry := nl.fileLevel >= entry.Level
			isDisplayEntry := nl.displayLevel >= entry.Level
			logStr := cycleStr + entry.Msg
			if (isDisplayEntry || isSaveEntry) && nl.isFileEnabled {
				_ = nl.writeToLogFile(logStr)
			}
			if isDisplayEntry {
				logAlways(entry.Level, nodeStr+logStr)
			}
		default:
			return
		}
	}
}

// IsFileEnabled returns true if logging to file is currently enabled, false if not.
func (nl *NodeLogger) IsFileEnabled() bool {
	return nl.isFileEnabled
}

// Close closes the node log file and also saves/displays any pending entries.
func (nl *NodeLogger) Close() {
	nl.DisplayPendingLogEntries(nl.cycle)
	if nl.logFile != nil {
		_ = nl.logFile.Close()
		nl.logFile = nil
	}
	nl.isFileEnabled = false
}
