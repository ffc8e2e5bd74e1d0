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

package report_nodefile

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/swarmsim/dwns/logger"
	"github.com/swarmsim/dwns/report"
)

const TransmitHistoryFileName = "transmit_history.txt"

// nodefileReporter writes, at each report, one line per node to node-<id>.txt with time, position and the
// signal received from every node, and one line to transmit_history.txt marking the channels in use.
type nodefileReporter struct {
	outputDir   string
	numChannels int
	nodeFiles   map[int]*bufio.Writer
	files       []*os.File
	history     *bufio.Writer
	enabled     bool
}

func NewNodefileReporter(outputDir string, numChannels int) report.Reporter {
	return &nodefileReporter{
		outputDir:   outputDir,
		numChannels: numChannels,
		nodeFiles:   make(map[int]*bufio.Writer),
		enabled:     true,
	}
}

func NodeFileName(outputDir string, id int) string {
	return filepath.Join(outputDir, fmt.Sprintf("node-%d.txt", id))
}

func (nr *nodefileReporter) create(name string) *bufio.Writer {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0664)
	if err != nil {
		logger.Errorf("creating output file %s failed: %+v", name, err)
		nr.enabled = false
		return nil
	}
	nr.files = append(nr.files, f)
	return bufio.NewWriter(f)
}

func (nr *nodefileReporter) Init() {
	nr.history = nr.create(filepath.Join(nr.outputDir, TransmitHistoryFileName))
	if nr.history == nil {
		return
	}
	cols := make([]string, nr.numChannels)
	for i := range cols {
		cols[i] = fmt.Sprintf("%d", i)
	}
	_, _ = fmt.Fprintf(nr.history, "Time\t\t%s\n", strings.Join(cols, "\t"))
}

func (nr *nodefileReporter) Report(s *report.Snapshot) {
	if !nr.enabled {
		return
	}
	for i := range s.Nodes {
		nr.writeNodeLine(s.TimeSec, &s.Nodes[i])
	}
	nr.writeHistoryLine(s)
}

func (nr *nodefileReporter) writeNodeLine(timeSec float64, n *report.NodeSnapshot) {
	w, ok := nr.nodeFiles[n.Id]
	if !ok {
		if w = nr.create(NodeFileName(nr.outputDir, n.Id)); w == nil {
			return
		}
		nr.nodeFiles[n.Id] = w
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%f %f %f %f", timeSec, n.X, n.Y, n.Z))
	for _, sig := range n.Signals {
		sb.WriteString(fmt.Sprintf(" %f", sig))
	}
	sb.WriteByte('\n')
	_, _ = w.WriteString(sb.String())
}

func (nr *nodefileReporter) writeHistoryLine(s *report.Snapshot) {
	if nr.history == nil {
		return
	}
	marks := make([]string, len(s.Channels))
	for ch, c := range s.Channels {
		if c.Transmitters > 0 {
			marks[ch] = "X"
		} else {
			marks[ch] = "."
		}
	}
	_, _ = fmt.Fprintf(nr.history, "%f\t%s\n", s.TimeSec, strings.Join(marks, "\t"))
}

func (nr *nodefileReporter) Stop(*report.Snapshot) {
	for _, w := range nr.nodeFiles {
		_ = w.Flush()
	}
	if nr.history != nil {
		_ = nr.history.Flush()
	}
	for _, f := range nr.files {
		if err := f.Close(); err != nil {
			logger.Errorf("closing %s failed: %+v", f.Name(), err)
		}
	}
	nr.files = nil
	nr.enabled = false
}
