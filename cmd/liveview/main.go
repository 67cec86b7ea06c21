// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// liveview is a terminal front end for live sensor telemetry. It ingests
// newline-delimited JSON sample lines from a simulator, stdin, an MQTT
// topic, or a websocket endpoint, and renders per-channel sparkline traces
// with rate and staleness readouts.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/Azure/iot-telemetry-liveview/liveview"
	"github.com/Azure/iot-telemetry-liveview/source"
	"github.com/Azure/iot-telemetry-liveview/source/mqttsource"
	"github.com/Azure/iot-telemetry-liveview/source/wssource"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		sourceKind string
		mqttServer string
		mqttClient string
		mqttTopic  string
		wsURL      string
		simRate    float64
		simSensor  uint32
		simChans   []string

		window         float64
		maxPoints      int
		modeName       string
		adaptive       bool
		interval       time.Duration
		minInterval    time.Duration
		maxInterval    time.Duration
		slack          time.Duration
		capacity       int
		staleThreshold time.Duration
		logOutput      string
	)

	flagSet := pflag.NewFlagSet("liveview", pflag.ContinueOnError)
	flagSet.StringVar(&sourceKind, "source", "sim", "telemetry source: sim, stdin, mqtt, or ws")
	flagSet.StringVar(&mqttServer, "mqtt-server", "localhost:1883", "MQTT server address (host:port)")
	flagSet.StringVar(&mqttClient, "mqtt-client-id", "liveview", "MQTT client ID")
	flagSet.StringVar(&mqttTopic, "mqtt-topic", "telemetry/lines", "MQTT topic carrying sample lines")
	flagSet.StringVar(&wsURL, "ws-url", "ws://localhost:8080/telemetry", "websocket endpoint URL")
	flagSet.Float64Var(&simRate, "sim-rate", 500, "simulated sample rate in Hz")
	flagSet.Uint32Var(&simSensor, "sim-sensor", 1, "simulated sensor ID")
	flagSet.StringSliceVar(&simChans, "sim-channels", []string{"accel_x", "accel_y", "accel_z"}, "simulated channel names")

	flagSet.Float64Var(&window, "window", liveview.DefaultWindowSeconds, "render lookback in seconds of sample time")
	flagSet.IntVar(&maxPoints, "max-points", liveview.DefaultMaxPoints, "maximum points per rendered trace")
	flagSet.StringVar(&modeName, "mode", "envelope", "display decimation: envelope or mean")
	flagSet.BoolVar(&adaptive, "adaptive", false, "derive the refresh interval from the measured sample rate")
	flagSet.DurationVar(&interval, "interval", liveview.DefaultInterval, "fixed refresh interval (ignored with --adaptive)")
	flagSet.DurationVar(&minInterval, "min-interval", liveview.DefaultMinInterval, "adaptive refresh lower bound")
	flagSet.DurationVar(&maxInterval, "max-interval", liveview.DefaultMaxInterval, "adaptive refresh upper bound")
	flagSet.DurationVar(&slack, "slack", 0, "draw this far behind the newest sample to absorb jitter")
	flagSet.IntVar(&capacity, "capacity", liveview.DefaultCapacity, "per-channel ring buffer capacity")
	flagSet.DurationVar(&staleThreshold, "stale-threshold", liveview.DefaultStaleThreshold, "arrival gap after which a channel is marked stale")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	mode, err := liveview.ParseDecimationMode(modeName)
	if err != nil {
		return err
	}

	// Stderr would corrupt the alt-screen display, so background logging
	// goes to a file or nowhere.
	logger, cleanup, err := openLogger(logOutput)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := liveview.NewStore(
		liveview.WithCapacity(capacity),
		liveview.WithStaleThreshold(staleThreshold),
		liveview.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	display := newTraceDisplay()

	schedOpts := []liveview.SchedulerOption{
		liveview.WithWindow(window),
		liveview.WithMaxPoints(maxPoints),
		liveview.WithDecimation(mode),
		liveview.WithDisplaySlack(slack),
		liveview.WithLogger(logger),
	}
	if adaptive {
		schedOpts = append(schedOpts, liveview.WithAdaptiveRefresh{
			Min: minInterval,
			Max: maxInterval,
		})
	} else {
		schedOpts = append(schedOpts, liveview.WithRefreshInterval(interval))
	}
	scheduler, err := liveview.NewScheduler(store, display, schedOpts...)
	if err != nil {
		return err
	}

	worker, err := liveview.NewWorker(store,
		liveview.WithLogger(logger),
		liveview.WithFatalHandler(display.sendFatal),
	)
	if err != nil {
		return err
	}

	src, err := openSource(ctx, sourceKind, sourceConfig{
		mqttServer: mqttServer,
		mqttClient: mqttClient,
		mqttTopic:  mqttTopic,
		wsURL:      wsURL,
		simRate:    simRate,
		simSensor:  simSensor,
		simChans:   simChans,
	})
	if err != nil {
		return err
	}

	if err := worker.Start(ctx, src); err != nil {
		return err
	}
	defer worker.Stop()

	program := tea.NewProgram(
		newViewModel(display, store, worker),
		tea.WithAltScreen(),
	)
	display.SetProgram(program)

	go func() { _ = scheduler.Run(ctx) }()

	_, err = program.Run()
	return err
}

type sourceConfig struct {
	mqttServer string
	mqttClient string
	mqttTopic  string
	wsURL      string
	simRate    float64
	simSensor  uint32
	simChans   []string
}

func openSource(ctx context.Context, kind string, cfg sourceConfig) (liveview.LineSource, error) {
	switch strings.ToLower(kind) {
	case "sim":
		return source.NewSimulator(cfg.simSensor, cfg.simChans, cfg.simRate)
	case "stdin":
		return source.NewReader(os.Stdin), nil
	case "mqtt":
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return mqttsource.Connect(ctx, cfg.mqttServer, cfg.mqttClient, cfg.mqttTopic)
	case "ws":
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return wssource.Dial(ctx, cfg.wsURL)
	default:
		return nil, fmt.Errorf("unknown source %q: want sim, stdin, mqtt, or ws", kind)
	}
}

func openLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		handler := slog.NewJSONHandler(io.Discard, nil)
		return slog.New(handler), func() {}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	handler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), func() { file.Close() }, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `liveview — live terminal view of streaming sensor telemetry.

Reads newline-delimited JSON sample lines and renders one sparkline trace
per sensor channel, with per-channel rate estimates and staleness markers.

Usage:
  liveview [flags]

Examples:
  # Built-in simulator at 500 Hz
  liveview

  # Pipe a recorded stream through stdin
  cat capture.jsonl | liveview --source stdin --window 5

  # Subscribe to a live MQTT feed
  liveview --source mqtt --mqtt-server broker:1883 --mqtt-topic rig/telemetry

  # Websocket feed with adaptive refresh
  liveview --source ws --ws-url ws://rig:8080/telemetry --adaptive

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
