// Package engine owns the refresh/animation state machine: it decides when
// the scan pipeline runs, when layout is recomputed, and advances the
// transient UI counters. It is the single mutable owner of the published
// Graph and of all refresh state; every other component receives data for
// the duration of one call and retains nothing.
package engine

import (
	"os"
	"strconv"
	"time"

	"github.com/user/netgraph/internal/classify"
	"github.com/user/netgraph/internal/graph"
	"github.com/user/netgraph/internal/layout"
	"github.com/user/netgraph/internal/model"
	"github.com/user/netgraph/internal/procmap"
	"github.com/user/netgraph/internal/scanner"
	"github.com/user/netgraph/internal/util"
)

// Phase tracks where the engine is in one refresh cycle. Transitions are
// strictly sequential in this cooperative model - a new scan cannot start
// while a previous one is in flight.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseScanning
	PhaseLayingOut
	PhaseRendered
)

// Mode selects between the whole-host view and a single-process focus.
type Mode int

const (
	ModeHost Mode = iota
	ModeProcess
)

// Interval bounds and steps. UI ticks drive animation; data scans drive
// the pipeline. Both are adjusted in fixed steps and clamped.
const (
	MinUIIntervalMS  = 50
	MaxUIIntervalMS  = 1000
	UIIntervalStep   = 50
	MinDataIntervalMS = 500
	MaxDataIntervalMS = 10000
	DataIntervalStep  = 500
)

// pulseIncrement advances the animation phase each tick, cycling over 1.0.
const pulseIncrement = 0.05

// blinkPeriod is the slower cadence of the blink flag.
const blinkPeriod = 500 * time.Millisecond

// activityHistoryLen is the number of rolling activity samples retained
// for the traffic sparkline.
const activityHistoryLen = 60

// Engine is the pipeline driver and holder of all mutable state.
type Engine struct {
	cfg *util.Config

	rules      *classify.RuleSet
	latencyCfg classify.LatencyConfig

	// scan, correlate, lookup and sample are injection points for tests;
	// the defaults wire the live scanner and correlator.
	scan      func() []model.Connection
	correlate func([]model.Connection)
	lookup    func(pid int) model.ProcessInfo
	sample    func(addr string) (uint64, bool)

	hostname string

	phase   Phase
	stopped bool

	uiIntervalMS   int
	dataIntervalMS int
	lastScan       time.Time
	lastTick       time.Time
	lastBlink      time.Time

	pulsePhase float64
	blink      bool

	selected    int // index into conns, -1 when nothing selected
	mode        Mode
	focusedPID  int
	focusedProc model.ProcessInfo

	width, height   int
	layoutW, layoutH int
	layoutCfg       layout.Config

	conns    []model.Connection
	graphOut *model.Graph

	activity        []int
	tickCount       uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithScanner replaces the live socket scanner.
func WithScanner(scan func() []model.Connection) Option {
	return func(e *Engine) { e.scan = scan }
}

// WithCorrelator replaces the live process correlator.
func WithCorrelator(correlate func([]model.Connection)) Option {
	return func(e *Engine) { e.correlate = correlate }
}

// WithProcessLookup replaces the live per-PID process lookup.
func WithProcessLookup(lookup func(pid int) model.ProcessInfo) Option {
	return func(e *Engine) { e.lookup = lookup }
}

// WithLatencySampler supplies round-trip samples per remote address.
// Without one every endpoint stays in the Unknown bucket.
func WithLatencySampler(sample func(addr string) (uint64, bool)) Option {
	return func(e *Engine) { e.sample = sample }
}

// New creates an engine. The rule set may be empty but never nil after
// construction; a missing rules file degrades to the built-in defaults.
func New(cfg *util.Config, rules *classify.RuleSet, opts ...Option) *Engine {
	if rules == nil {
		rules = classify.DefaultRules()
	}
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "host"
	}

	e := &Engine{
		cfg:            cfg,
		rules:          rules,
		latencyCfg:     classify.LatencyConfig{LowMS: cfg.LatencyLowMS, HighMS: cfg.LatencyHighMS},
		scan:           scanner.Scan,
		correlate:      procmap.Correlate,
		lookup:         procmap.Lookup,
		hostname:       hostname,
		uiIntervalMS:   clampInt(cfg.UIIntervalMS, MinUIIntervalMS, MaxUIIntervalMS),
		dataIntervalMS: clampInt(cfg.DataIntervalMS, MinDataIntervalMS, MaxDataIntervalMS),
		selected:       -1,
		activity:       make([]int, activityHistoryLen),
		blink:          true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tick advances the state machine by one UI tick. Animation counters move
// every tick; the data pipeline runs only when the scan interval has
// elapsed, and layout is recomputed whenever the canvas changed since the
// last pass, independent of the scan cadence.
func (e *Engine) Tick(now time.Time) {
	if e.stopped {
		return
	}
	e.lastTick = now
	e.tickCount++

	e.pulsePhase += pulseIncrement
	if e.pulsePhase >= 1.0 {
		e.pulsePhase -= 1.0
	}

	if e.lastBlink.IsZero() || now.Sub(e.lastBlink) >= blinkPeriod {
		e.lastBlink = now
		e.blink = !e.blink
	}

	if e.lastScan.IsZero() || now.Sub(e.lastScan) >= e.DataInterval() {
		e.runPipeline(now)
	} else if e.width != e.layoutW || e.height != e.layoutH {
		e.relayout()
	}

	e.pushActivity()
	e.phase = PhaseRendered
}

// Rescan forces an immediate pipeline run on the next caller-held tick
// boundary, bypassing the data interval.
func (e *Engine) Rescan(now time.Time) {
	if e.stopped {
		return
	}
	e.runPipeline(now)
	e.phase = PhaseRendered
}

// runPipeline executes scan, correlate, classify/aggregate and layout as
// one non-reentrant pass. The published Graph is replaced wholesale; a
// partial result is never visible.
func (e *Engine) runPipeline(now time.Time) {
	e.phase = PhaseScanning
	e.lastScan = now

	conns := e.scan()
	e.correlate(conns)

	if e.mode == ModeProcess {
		filtered := conns[:0:0]
		for _, c := range conns {
			if c.PID == e.focusedPID {
				filtered = append(filtered, c)
			}
		}
		conns = filtered
	}
	e.conns = conns
	e.clampSelection()

	center := e.hostname
	if e.mode == ModeProcess {
		center = e.focusName()
	}

	g := graph.Aggregate(conns, graph.Options{
		Center:     center,
		MaxVisible: e.cfg.MaxVisibleEndpoints,
		Rules:      e.rules,
		Latency:    e.latencyCfg,
		SampleMS:   e.sample,
	})

	e.phase = PhaseLayingOut
	e.layoutCfg = layout.Compute(float64(e.width), float64(e.height))
	e.layoutW, e.layoutH = e.width, e.height
	layout.Apply(g.Endpoints, e.layoutCfg)

	e.graphOut = g
	util.Debug("pipeline: %d connections, %d endpoints (%d dropped, %d suspicious)",
		g.Summary.TotalConns, len(g.Endpoints), g.Dropped, g.Summary.Suspicious)
}

// relayout repositions the current graph for new canvas dimensions without
// rescanning.
func (e *Engine) relayout() {
	e.phase = PhaseLayingOut
	e.layoutCfg = layout.Compute(float64(e.width), float64(e.height))
	e.layoutW, e.layoutH = e.width, e.height
	if e.graphOut != nil {
		layout.Apply(e.graphOut.Endpoints, e.layoutCfg)
	}
}

// Resize records new canvas dimensions; the next tick relayouts.
func (e *Engine) Resize(width, height int) {
	e.width, e.height = width, height
}

// SelectNext advances the connection selection, starting at the first
// entry when nothing is selected.
func (e *Engine) SelectNext() {
	if len(e.conns) == 0 {
		e.selected = -1
		return
	}
	if e.selected < 0 {
		e.selected = 0
		return
	}
	if e.selected < len(e.conns)-1 {
		e.selected++
	}
}

// SelectPrev moves the connection selection backwards, starting at the
// last entry when nothing is selected.
func (e *Engine) SelectPrev() {
	if len(e.conns) == 0 {
		e.selected = -1
		return
	}
	if e.selected < 0 {
		e.selected = len(e.conns) - 1
		return
	}
	if e.selected > 0 {
		e.selected--
	}
}

// ToggleFocus switches between host view and single-process focus. The
// transition into focus is declined when no correlated connection is
// selected; leaving focus clears the recorded PID and filter. The pipeline
// reruns immediately so the view matches the mode.
func (e *Engine) ToggleFocus(now time.Time) {
	switch e.mode {
	case ModeHost:
		if e.selected < 0 || e.selected >= len(e.conns) {
			return
		}
		pid := e.conns[e.selected].PID
		if pid == 0 {
			return
		}
		e.mode = ModeProcess
		e.focusedPID = pid
		e.focusedProc = e.lookup(pid)
		if e.focusedProc.Name == "" {
			e.focusedProc.Name = e.conns[e.selected].Process
		}
		util.Info("focus: pid %d (%s)", pid, e.focusedProc.Name)
	case ModeProcess:
		e.mode = ModeHost
		e.focusedPID = 0
		e.focusedProc = model.ProcessInfo{}
	}
	e.Rescan(now)
}

// FasterUI shortens the UI tick interval by one step.
func (e *Engine) FasterUI() {
	e.uiIntervalMS = clampInt(e.uiIntervalMS-UIIntervalStep, MinUIIntervalMS, MaxUIIntervalMS)
}

// SlowerUI lengthens the UI tick interval by one step.
func (e *Engine) SlowerUI() {
	e.uiIntervalMS = clampInt(e.uiIntervalMS+UIIntervalStep, MinUIIntervalMS, MaxUIIntervalMS)
}

// FasterData shortens the data scan interval by one step.
func (e *Engine) FasterData() {
	e.dataIntervalMS = clampInt(e.dataIntervalMS-DataIntervalStep, MinDataIntervalMS, MaxDataIntervalMS)
}

// SlowerData lengthens the data scan interval by one step.
func (e *Engine) SlowerData() {
	e.dataIntervalMS = clampInt(e.dataIntervalMS+DataIntervalStep, MinDataIntervalMS, MaxDataIntervalMS)
}

// Stop marks the engine stopped. In-flight work is never interrupted; the
// flag is honored at the next tick boundary.
func (e *Engine) Stop() { e.stopped = true }

// Stopped reports whether Stop has been requested.
func (e *Engine) Stopped() bool { return e.stopped }

// Accessors for the renderer. Everything returned is a read-only snapshot
// owned by the engine.

func (e *Engine) Graph() *model.Graph            { return e.graphOut }
func (e *Engine) Layout() layout.Config          { return e.layoutCfg }
func (e *Engine) Connections() []model.Connection { return e.conns }
func (e *Engine) Phase() Phase                   { return e.phase }
func (e *Engine) Mode() Mode                     { return e.mode }
func (e *Engine) FocusedPID() int                { return e.focusedPID }
func (e *Engine) FocusedProcess() model.ProcessInfo { return e.focusedProc }
func (e *Engine) Selected() int                  { return e.selected }
func (e *Engine) PulsePhase() float64            { return e.pulsePhase }
func (e *Engine) Blink() bool                    { return e.blink }
func (e *Engine) Activity() []int                { return e.activity }

// UIInterval returns the current UI tick interval.
func (e *Engine) UIInterval() time.Duration {
	return time.Duration(e.uiIntervalMS) * time.Millisecond
}

// DataInterval returns the current data scan interval.
func (e *Engine) DataInterval() time.Duration {
	return time.Duration(e.dataIntervalMS) * time.Millisecond
}

// focusName labels the center node in process mode.
func (e *Engine) focusName() string {
	if e.focusedProc.Name != "" {
		return e.focusedProc.Name
	}
	for _, c := range e.conns {
		if c.PID == e.focusedPID && c.Process != "" {
			return c.Process
		}
	}
	if e.focusedPID > 0 {
		return "pid " + strconv.Itoa(e.focusedPID)
	}
	return e.hostname
}

func (e *Engine) clampSelection() {
	if len(e.conns) == 0 {
		e.selected = -1
		return
	}
	if e.selected >= len(e.conns) {
		e.selected = len(e.conns) - 1
	}
}

// pushActivity appends a rolled activity score derived from the current
// connection states: established sockets weigh heaviest, in-flight
// handshakes and teardowns signal churn, listeners add a little.
func (e *Engine) pushActivity() {
	established, listen, transitional := 0, 0, 0
	for _, c := range e.conns {
		switch c.State {
		case model.StateEstablished:
			established++
		case model.StateListen:
			listen++
		case model.StateSynSent, model.StateSynRecv, model.StateFinWait1,
			model.StateFinWait2, model.StateClosing:
			transitional++
		}
	}

	score := min(established*5, 50) + min(listen*2, 20) + min(transitional*10, 30)
	base := 5
	if len(e.conns) > 0 {
		base = 10
	}
	score += base
	if score > 100 {
		score = 100
	}

	copy(e.activity, e.activity[1:])
	e.activity[len(e.activity)-1] = score
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
