// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Azure/iot-telemetry-liveview/liveview"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type (
	// traceDisplay implements liveview.Display over a bubbletea program.
	// The render scheduler writes trace data from its own goroutine; the
	// model reads a snapshot under the same lock when painting. Flush
	// coalesces a whole tick's updates into a single repaint message.
	traceDisplay struct {
		mu     sync.Mutex
		keys   []liveview.ChannelKey
		traces map[liveview.ChannelKey]trace

		program *tea.Program
	}

	trace struct {
		values []float64
		last   float64
		min    float64
		max    float64
		stale  bool
		empty  bool
	}

	// repaintMsg asks the model to redraw from the display's current state.
	repaintMsg struct{}
)

func newTraceDisplay() *traceDisplay {
	return &traceDisplay{
		traces: make(map[liveview.ChannelKey]trace),
	}
}

// SetProgram attaches the running program. Flushes before this point are
// dropped, which only loses frames rendered before the screen exists.
func (d *traceDisplay) SetProgram(p *tea.Program) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.program = p
}

func (d *traceDisplay) Rebuild(keys []liveview.ChannelKey) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.keys = append([]liveview.ChannelKey(nil), keys...)

	keep := make(map[liveview.ChannelKey]bool, len(keys))
	for _, key := range keys {
		keep[key] = true
	}
	for key := range d.traces {
		if !keep[key] {
			delete(d.traces, key)
		}
	}
}

func (d *traceDisplay) UpdateTrace(
	key liveview.ChannelKey,
	times, values []float64,
	stale bool,
) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(values) == 0 {
		d.traces[key] = trace{stale: stale, empty: true}
		return
	}

	tr := trace{
		values: append([]float64(nil), values...),
		last:   values[len(values)-1],
		min:    values[0],
		max:    values[0],
		stale:  stale,
	}
	for _, v := range values {
		if v < tr.min {
			tr.min = v
		}
		if v > tr.max {
			tr.max = v
		}
	}
	d.traces[key] = tr
}

func (d *traceDisplay) Flush() {
	d.mu.Lock()
	program := d.program
	d.mu.Unlock()

	if program != nil {
		program.Send(repaintMsg{})
	}
}

// sendFatal forwards a terminal ingest error to the view. Called from the
// ingest goroutine, so the program pointer is read under the lock.
func (d *traceDisplay) sendFatal(err error) {
	d.mu.Lock()
	program := d.program
	d.mu.Unlock()

	if program != nil {
		program.Send(ingestFatalMsg{err: err})
	}
}

// snapshot copies the current trace set for rendering.
func (d *traceDisplay) snapshot() ([]liveview.ChannelKey, map[liveview.ChannelKey]trace) {
	d.mu.Lock()
	defer d.mu.Unlock()

	keys := append([]liveview.ChannelKey(nil), d.keys...)
	traces := make(map[liveview.ChannelKey]trace, len(d.traces))
	for key, tr := range d.traces {
		traces[key] = tr
	}
	return keys, traces
}

// Sparkline block characters from lowest to highest.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// sparkline renders values into a fixed-width bar strip, resampling when
// there are more values than columns.
func sparkline(values []float64, width int) string {
	if len(values) == 0 || width < 1 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	if len(values) > width {
		resampled := make([]float64, width)
		for i := range resampled {
			resampled[i] = values[i*len(values)/width]
		}
		values = resampled
	}

	var b strings.Builder
	span := hi - lo
	for _, v := range values {
		idx := 0
		if span > 0 {
			idx = int((v - lo) / span * float64(len(sparkBlocks)-1))
		}
		if idx >= len(sparkBlocks) {
			idx = len(sparkBlocks) - 1
		}
		b.WriteRune(sparkBlocks[idx])
	}
	return b.String()
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Width(18)
	sparkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	staleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	titleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

type (
	// viewModel is the bubbletea model for the live view. It owns no
	// telemetry state of its own; each paint reads a snapshot from the
	// display and per-channel rates from the store.
	viewModel struct {
		display *traceDisplay
		store   *liveview.Store
		worker  *liveview.Worker

		width  int
		height int
		err    error
	}

	// ingestFatalMsg carries a terminal ingest error into the view.
	ingestFatalMsg struct{ err error }
)

func newViewModel(display *traceDisplay, store *liveview.Store, worker *liveview.Worker) viewModel {
	return viewModel{
		display: display,
		store:   store,
		worker:  worker,
		width:   80,
		height:  24,
	}
}

func (m viewModel) Init() tea.Cmd {
	return nil
}

func (m viewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case repaintMsg:
		// State already lives in the display; repainting is View's job.

	case ingestFatalMsg:
		m.err = msg.err
	}
	return m, nil
}

func (m viewModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("liveview"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  session %s", m.store.SessionID())))
	if info, ok := m.store.StreamInfo(); ok {
		b.WriteString(dimStyle.Render(fmt.Sprintf(
			"  device %.0f Hz /%d", info.SampleRateHz, info.Decimation,
		)))
	}
	b.WriteByte('\n')

	stats := m.worker.Stats()
	b.WriteString(dimStyle.Render(fmt.Sprintf(
		"lines %d  samples %d  parse failures %d",
		stats.Lines, stats.Samples, stats.ParseFailures,
	)))
	b.WriteString("\n\n")

	sparkWidth := m.width - 50
	if sparkWidth < 10 {
		sparkWidth = 10
	}

	keys, traces := m.display.snapshot()
	if len(keys) == 0 {
		b.WriteString(dimStyle.Render("waiting for data..."))
		b.WriteByte('\n')
	}
	for _, key := range keys {
		tr := traces[key]

		b.WriteString(labelStyle.Render(key.String()))
		if tr.empty {
			b.WriteString(dimStyle.Render(strings.Repeat("·", sparkWidth)))
		} else {
			b.WriteString(sparkStyle.Render(sparkline(tr.values, sparkWidth)))
			b.WriteString(fmt.Sprintf("  %9.3f", tr.last))
			b.WriteString(dimStyle.Render(fmt.Sprintf(
				"  [%.3f, %.3f]", tr.min, tr.max,
			)))
		}
		if hz := m.store.Hz(key); hz > 0 {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  %.1f Hz", hz)))
		}
		if tr.stale {
			b.WriteString(staleStyle.Render("  STALE"))
		}
		b.WriteByte('\n')
	}

	if m.err != nil {
		b.WriteByte('\n')
		b.WriteString(staleStyle.Render(fmt.Sprintf("ingest stopped: %v", m.err)))
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(dimStyle.Render("q to quit"))
	return b.String()
}
