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

// Package metrics exposes the simulation state as Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swarmsim/dwns/report"
)

// Collector bundles the simulation's Prometheus metrics. It is a report.Reporter, updated at each report
// interval.
type Collector struct {
	gatherer prometheus.Gatherer

	SimTime          prometheus.Gauge
	Nodes            *prometheus.GaugeVec
	NodeAltitude     *prometheus.GaugeVec
	Collisions       prometheus.Counter
	GroundMessages   prometheus.Counter
	GroundCollisions prometheus.Counter
	ChannelTxTicks   *prometheus.CounterVec

	last report.Snapshot
}

// NewCollector registers the metrics against reg, defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	c := &Collector{
		gatherer: gatherer,
		SimTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dwns_sim_time_seconds",
			Help: "Simulated time elapsed.",
		}),
		Nodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dwns_nodes",
			Help: "Number of nodes by state: broadcaster, member, transmitting or landed.",
		}, []string{"state"}),
		NodeAltitude: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dwns_node_altitude_meters",
			Help: "Current altitude of each node.",
		}, []string{"node"}),
		Collisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dwns_collisions_total",
			Help: "Receive attempts that ended in a collision.",
		}),
		GroundMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dwns_ground_messages_total",
			Help: "Transmissions the ground station saw starting alone on a channel.",
		}),
		GroundCollisions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dwns_ground_collisions_total",
			Help: "Times the ground station saw a channel enter a multi-transmitter state.",
		}),
		ChannelTxTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dwns_channel_tx_ticks_total",
			Help: "Ticks during which at least one node transmitted, per channel.",
		}, []string{"channel"}),
	}

	for _, col := range []prometheus.Collector{c.SimTime, c.Nodes, c.NodeAltitude, c.Collisions,
		c.GroundMessages, c.GroundCollisions, c.ChannelTxTicks} {
		if err := reg.Register(col); err != nil {
			return nil, errors.Wrap(err, "registering metrics")
		}
	}
	return c, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func (c *Collector) Init() {
}

func (c *Collector) Report(s *report.Snapshot) {
	c.SimTime.Set(s.TimeSec)
	c.Nodes.WithLabelValues("broadcaster").Set(float64(s.CountBroadcasters()))
	c.Nodes.WithLabelValues("member").Set(float64(s.CountMembers()))
	c.Nodes.WithLabelValues("transmitting").Set(float64(s.CountTransmitting()))
	c.Nodes.WithLabelValues("landed").Set(float64(s.CountLanded()))
	for i := range s.Nodes {
		c.NodeAltitude.WithLabelValues(strconv.Itoa(s.Nodes[i].Id)).Set(s.Nodes[i].Z)
	}

	c.Collisions.Add(float64(s.Collisions - c.last.Collisions))
	c.GroundMessages.Add(float64(s.Ground.MessagesReceived - c.last.Ground.MessagesReceived))
	c.GroundCollisions.Add(float64(s.Ground.CollisionsDetected - c.last.Ground.CollisionsDetected))
	for ch, cs := range s.Channels {
		var prev uint64
		if ch < len(c.last.Channels) {
			prev = c.last.Channels[ch].TxTicks
		}
		c.ChannelTxTicks.WithLabelValues(strconv.Itoa(ch)).Add(float64(cs.TxTicks - prev))
	}

	c.last = report.Snapshot{
		Collisions: s.Collisions,
		Ground:     s.Ground,
		Channels:   append([]report.ChannelSnapshot(nil), s.Channels...),
	}
}

func (c *Collector) Stop(s *report.Snapshot) {
	if s != nil {
		c.Report(s)
	}
}
