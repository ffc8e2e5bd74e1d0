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

package dwns_main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mitchellh/go-wordwrap"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"github.com/swarmsim/dwns/logger"
	"github.com/swarmsim/dwns/metrics"
	"github.com/swarmsim/dwns/progctx"
	"github.com/swarmsim/dwns/simulation"
)

const (
	defaultTermWidth = 80
	description      = "dwns simulates a swarm of sensor nodes falling to the ground. The nodes discover each " +
		"other on a shared channelized radio medium, organize into broadcaster/member groups and relay " +
		"sensor data, while a ground station counts messages and collisions. Settings are read from an " +
		"optional YAML config file; flags override the file."
)

type MainArgs struct {
	ConfigFile    string
	NodeCount     int
	Gravity       float64
	Resolution    float64
	StartZ        float64
	SpreadFactor  float64
	Seed          int64
	PowerOutput   float64
	Output        bool
	OutDir        string
	GroupMax      int
	Broadcast     int
	CycleInterval uint64
	Channels      int
	MaxTime       float64
	LogLevel      string
	WatchLevel    string
	MetricsAddr   string
	Kpi           bool
}

func newFlagSet(name string, args *MainArgs) *flag.FlagSet {
	def := simulation.DefaultConfig()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	fs.StringVar(&args.ConfigFile, "config", "", "YAML config file to load before applying flags")
	fs.IntVar(&args.NodeCount, "nodes", def.Program.NodeCount, "number of nodes")
	fs.Float64Var(&args.Gravity, "gravity", def.Program.Gravity, "gravity in m/s^2")
	fs.Float64Var(&args.Resolution, "res", def.Program.TimeResolution, "time resolution (tick length) in seconds")
	fs.Float64Var(&args.StartZ, "z", def.Nodes.StartZ, "start altitude of all nodes in meters")
	fs.Float64Var(&args.SpreadFactor, "spread", def.Nodes.SpreadFactor, "percent chance per tick of a lateral drift change")
	fs.Int64Var(&args.Seed, "seed", def.Program.Seed, "random seed; 0 picks a time-based seed")
	fs.Float64Var(&args.PowerOutput, "power", def.Nodes.PowerOutput, "transmit power of all nodes")
	fs.BoolVar(&args.Output, "output", def.FileOutput.Output, "write node, transmit history, stats, energy and KPI files")
	fs.StringVar(&args.OutDir, "out-dir", def.FileOutput.OutputDir, "base directory for output files; each run uses <out-dir>/run/<timestamp>")
	fs.IntVar(&args.GroupMax, "group-max", def.Nodes.GroupMax, "max number of members per group")
	fs.IntVar(&args.Broadcast, "broadcast", def.Program.BroadcastPercentage, "percent chance of a node becoming a broadcaster each group cycle")
	fs.Uint64Var(&args.CycleInterval, "cycle", def.Program.GroupCycleInterval, "group cycle length in ticks")
	fs.IntVar(&args.Channels, "channels", def.Nodes.Channels, "number of radio channels")
	fs.Float64Var(&args.MaxTime, "max-time", def.Program.MaxTime, "stop after this many simulated seconds; 0 runs until all nodes landed")
	fs.StringVar(&args.LogLevel, "log", def.TerminalOutput.Log, "log level: micro, trace, debug, info, note, warn, crit, off")
	fs.StringVar(&args.WatchLevel, "watch", def.TerminalOutput.Watch, "display level for node logs: off, trace, debug, info, note, warn, crit")
	fs.StringVar(&args.MetricsAddr, "metrics", "", "serve Prometheus metrics at this address, e.g. localhost:9100")
	fs.BoolVar(&args.Kpi, "kpi", def.FileOutput.Kpi, "write the KPI file (with -output)")

	fs.Usage = func() { printUsage(fs) }
	return fs
}

func termWidth() uint {
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if width, _, err := term.GetSize(fd); err == nil && width > 20 {
			return uint(width)
		}
	}
	return defaultTermWidth
}

func printUsage(fs *flag.FlagSet) {
	out := fs.Output()
	width := termWidth()
	fmt.Fprintf(out, "Usage: %s [flags]\n\n", fs.Name())
	fmt.Fprintln(out, wordwrap.WrapString(description, width))
	fmt.Fprintln(out, "\nFlags:")
	fs.VisitAll(func(f *flag.Flag) {
		fmt.Fprintf(out, "  -%s (default %q)\n", f.Name, f.DefValue)
		for _, line := range strings.Split(wordwrap.WrapString(f.Usage, width-6), "\n") {
			fmt.Fprintf(out, "      %s\n", line)
		}
	})
}

// parseArgs parses argv and returns the args and the names of the flags given explicitly.
func parseArgs(name string, argv []string, output io.Writer) (*MainArgs, map[string]bool, error) {
	args := &MainArgs{}
	fs := newFlagSet(name, args)
	if output != nil {
		fs.SetOutput(output)
	}
	if err := fs.Parse(argv); err != nil {
		return nil, nil, err
	}
	if fs.NArg() > 0 {
		return nil, nil, errors.Errorf("unexpected arguments: %v", fs.Args())
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})
	return args, set, nil
}

// buildConfig loads the config file, if any, and applies the explicitly given flags on top.
func buildConfig(args *MainArgs, set map[string]bool) (*simulation.Config, error) {
	cfg := simulation.DefaultConfig()
	if args.ConfigFile != "" {
		if err := cfg.LoadConfigFile(args.ConfigFile); err != nil {
			return nil, err
		}
	}

	overrides := map[string]func(){
		"nodes":     func() { cfg.Program.NodeCount = args.NodeCount },
		"gravity":   func() { cfg.Program.Gravity = args.Gravity },
		"res":       func() { cfg.Program.TimeResolution = args.Resolution },
		"z":         func() { cfg.Nodes.StartZ = args.StartZ },
		"spread":    func() { cfg.Nodes.SpreadFactor = args.SpreadFactor },
		"seed":      func() { cfg.Program.Seed = args.Seed },
		"power":     func() { cfg.Nodes.PowerOutput = args.PowerOutput },
		"output":    func() { cfg.FileOutput.Output = args.Output },
		"out-dir":   func() { cfg.FileOutput.OutputDir = args.OutDir },
		"group-max": func() { cfg.Nodes.GroupMax = args.GroupMax },
		"broadcast": func() { cfg.Program.BroadcastPercentage = args.Broadcast },
		"cycle":     func() { cfg.Program.GroupCycleInterval = args.CycleInterval },
		"channels":  func() { cfg.Nodes.Channels = args.Channels },
		"max-time":  func() { cfg.Program.MaxTime = args.MaxTime },
		"log":       func() { cfg.TerminalOutput.Log = args.LogLevel },
		"watch":     func() { cfg.TerminalOutput.Watch = args.WatchLevel },
		"kpi":       func() { cfg.FileOutput.Kpi = args.Kpi },
	}
	for name := range set {
		if apply, ok := overrides[name]; ok {
			apply()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// createRunDir creates <base>/run/<UTC timestamp> for the output files of one run.
func createRunDir(base string, now time.Time) (string, error) {
	dir := filepath.Join(base, "run", now.UTC().Format("2006-01-02T15-04-05"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrapf(err, "creating output directory %s", dir)
	}
	return dir, nil
}

func Main(ctx *progctx.ProgCtx, argv []string) {
	args, set, err := parseArgs("dwns", argv, nil)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	logger.FatalIfError(err)

	cfg, err := buildConfig(args, set)
	logger.FatalIfError(err)

	level, _ := logger.ParseLevelString(cfg.TerminalOutput.Log)
	logger.SetLevel(level)

	if cfg.FileOutput.Output {
		cfg.FileOutput.OutputDir, err = createRunDir(cfg.FileOutput.OutputDir, time.Now())
		logger.FatalIfError(err)
		logger.Infof("writing output files to %s", cfg.FileOutput.OutputDir)
	}

	handleSignals(ctx)

	sim, err := simulation.NewSimulation(ctx, cfg)
	logger.FatalIfError(err)
	logger.SetSimTimeSource(sim)

	if args.MetricsAddr != "" {
		collector, err := metrics.NewCollector(prometheus.NewRegistry())
		logger.FatalIfError(err)
		sim.AddReporter(collector)
		serveMetrics(ctx, args.MetricsAddr, collector.Handler())
	}

	if err = sim.Run(); err != nil {
		logger.Warnf("simulation stopped early: %v", err)
	}
	sim.Stop()
	logger.SetSimTimeSource(nil)
	logger.Println(sim.Summary().String())

	ctx.Cancel(nil)
	logger.Debugf("waiting for dwns to stop gracefully ...")
	ctx.Wait()
}

func serveMetrics(ctx *progctx.ProgCtx, addr string, handler http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	ctx.Defer(func() {
		_ = srv.Close()
	})
	ctx.Go("metrics", func() {
		logger.Infof("serving metrics at http://%s/metrics", addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("metrics server stopped unexpectedly: %+v", err)
		}
	})
}

func handleSignals(ctx *progctx.ProgCtx) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT, syscall.SIGHUP)

	ctx.Go("handleSignals", func() {
		defer logger.Debugf("handleSignals exit.")
		defer signal.Stop(c)

		for {
			select {
			case sig := <-c:
				logger.Infof("signal received: %v", sig)
				ctx.Cancel(nil)
			case <-ctx.Done():
				return
			}
		}
	})
}
