package framecore

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/comalice/framecore/behavior"
	"github.com/comalice/framecore/internal/logging"
	"github.com/comalice/framecore/internal/ticker"
	"github.com/comalice/framecore/platform"
	"github.com/comalice/framecore/platform/headless"
)

// UpdateMode decides when the behavior update pass runs.
type UpdateMode int

const (
	// UpdateOnTick runs one pass per frame tick. Ticks come from an
	// independent timer at the configured rate and are handled on the loop
	// goroutine like any other event; every window is redrawn after the pass.
	UpdateOnTick UpdateMode = iota
	// UpdateOnEvent runs one pass after every dispatched platform event.
	UpdateOnEvent
)

func (m UpdateMode) String() string {
	switch m {
	case UpdateOnTick:
		return "tick"
	case UpdateOnEvent:
		return "event"
	default:
		return fmt.Sprintf("UpdateMode(%d)", int(m))
	}
}

// ParseUpdateMode accepts "tick" and "event".
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch s {
	case "tick":
		return UpdateOnTick, nil
	case "event":
		return UpdateOnEvent, nil
	}
	return 0, fmt.Errorf("unknown update mode %q", s)
}

// InitGuard records whether a runtime has been initialized. Init uses a
// process-wide guard unless WithInitGuard supplies another.
type InitGuard struct {
	set atomic.Bool
}

var processGuard InitGuard

// NewInitGuard returns an unset guard.
func NewInitGuard() *InitGuard {
	return &InitGuard{}
}

// Initialized reports whether the guard has been taken.
func (g *InitGuard) Initialized() bool {
	return g.set.Load()
}

func (g *InitGuard) acquire() error {
	if !g.set.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}
	return nil
}

func (g *InitGuard) release() {
	g.set.Store(false)
}

// Option configures Init.
type Option func(*options)

type options struct {
	driver       platform.Driver
	graphics     platform.Graphics
	log          *slog.Logger
	registerer   prometheus.Registerer
	tickRate     time.Duration
	mode         UpdateMode
	policy       behavior.FaultPolicy
	clearColor   platform.Color
	context      platform.ContextConfig
	vsyncDefault bool
	guard        *InitGuard
	goos         string
}

func defaultOptions() options {
	return options{
		log:          logging.Discard(),
		tickRate:     ticker.DefaultRate,
		mode:         UpdateOnTick,
		policy:       behavior.FaultContinue,
		clearColor:   platform.DefaultClearColor,
		context:      platform.DefaultContextConfig(),
		vsyncDefault: true,
		guard:        &processGuard,
		goos:         runtime.GOOS,
	}
}

// WithPlatform sets the windowing and graphics substrates. Without it the
// runtime runs on the headless platform.
func WithPlatform(d platform.Driver, g platform.Graphics) Option {
	return func(o *options) {
		o.driver, o.graphics = d, g
	}
}

// WithLogger sets the runtime logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithMetrics registers runtime collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTickRate sets the period of UpdateOnTick. The default is 60 Hz.
func WithTickRate(d time.Duration) Option {
	return func(o *options) {
		o.tickRate = d
	}
}

// WithUpdateMode selects when the update pass runs.
func WithUpdateMode(m UpdateMode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithFaultPolicy selects how behavior panics are handled. Under
// behavior.FaultAbort, Run returns the first fault.
func WithFaultPolicy(p behavior.FaultPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithClearColor sets the color windows are cleared to on every redraw.
func WithClearColor(c platform.Color) Option {
	return func(o *options) {
		o.clearColor = c
	}
}

// WithContextConfig sets the graphics context attributes requested for each
// window.
func WithContextConfig(cfg platform.ContextConfig) Option {
	return func(o *options) {
		o.context = cfg
	}
}

// WithVSyncDefault controls whether Init disables vsync through the
// environment on Linux when the caller has not chosen. Enabled by default.
func WithVSyncDefault(enabled bool) Option {
	return func(o *options) {
		o.vsyncDefault = enabled
	}
}

// WithInitGuard replaces the process-wide init guard.
func WithInitGuard(g *InitGuard) Option {
	return func(o *options) {
		o.guard = g
	}
}

func withGOOS(goos string) Option {
	return func(o *options) {
		o.goos = goos
	}
}

func (o *options) fill() {
	if o.driver == nil {
		o.driver = headless.New()
	}
	if o.graphics == nil {
		o.graphics = headless.NewGraphics()
	}
	if o.log == nil {
		o.log = logging.Discard()
	}
	if o.guard == nil {
		o.guard = &processGuard
	}
}
