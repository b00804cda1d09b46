package framecore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/comalice/framecore/behavior"
	"github.com/comalice/framecore/internal/lifecycle"
	"github.com/comalice/framecore/internal/metrics"
	"github.com/comalice/framecore/internal/ticker"
	"github.com/comalice/framecore/platform"
	"github.com/comalice/framecore/window"
)

// Phase is the runtime's position in its lifecycle.
type Phase int

const (
	PhaseInitialized Phase = iota
	PhaseRunning
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseInitialized:
		return "initialized"
	case PhaseRunning:
		return "running"
	case PhaseClosed:
		return "closed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

const (
	evRun lifecycle.EventID = iota
	evClose
)

const metricsNamespace = "framecore"

// Runtime owns the event loop, the window registry and the behavior
// registry. Everything except Register and Loop().Post must be called from
// a single goroutine; Run pins that goroutine to its OS thread while the
// loop runs.
type Runtime struct {
	loop      platform.EventLoop
	graphics  platform.Graphics
	windows   *window.Registry
	behaviors *behavior.Registry
	phase     *lifecycle.Machine
	ticker    *ticker.Ticker
	log       *slog.Logger
	metrics   *metrics.Metrics

	mode    UpdateMode
	context platform.ContextConfig
}

// Init acquires the platform and returns a runtime in PhaseInitialized.
// Init succeeds at most once per guard; a failed Init leaves the guard free.
func Init(opts ...Option) (*Runtime, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.fill()

	if err := o.guard.acquire(); err != nil {
		return nil, err
	}
	if o.vsyncDefault {
		applyVSyncDefault(o.goos, o.log)
	}

	loop, err := o.driver.Open()
	if err != nil {
		o.guard.release()
		if !errors.Is(err, platform.ErrPlatformUnavailable) {
			err = fmt.Errorf("%w: %w", platform.ErrPlatformUnavailable, err)
		}
		return nil, fmt.Errorf("init: %w", err)
	}

	rt := &Runtime{
		loop:     loop,
		graphics: o.graphics,
		windows:  window.NewRegistry(o.clearColor),
		ticker:   ticker.New(loop, ticker.Config{Rate: o.tickRate}),
		log:      o.log,
		mode:     o.mode,
		context:  o.context,
	}
	if o.registerer != nil {
		rt.metrics = metrics.New(o.registerer, metricsNamespace)
	}
	rt.behaviors = behavior.NewRegistry(
		behavior.WithPolicy(o.policy),
		behavior.WithLogger(o.log.With("component", "behavior")),
		behavior.WithHooks(behavior.Hooks{
			Registered: rt.metrics.Registered,
			Fault:      func(f *behavior.Fault) { rt.metrics.Fault(string(f.Phase)) },
		}),
	)

	if rt.phase, err = rt.newPhaseMachine(); err == nil {
		err = rt.phase.Start(context.Background())
	}
	if err != nil {
		_ = loop.Close()
		o.guard.release()
		return nil, fmt.Errorf("init: %w", err)
	}

	rt.log.Info("runtime initialized",
		"update_mode", rt.mode,
		"fault_policy", rt.behaviors.Policy(),
		"tick_rate", rt.ticker.Rate(),
	)
	return rt, nil
}

func (rt *Runtime) newPhaseMachine() (*lifecycle.Machine, error) {
	initialized := &lifecycle.State{ID: lifecycle.StateID(PhaseInitialized), Name: "Initialized", Initial: true}
	running := &lifecycle.State{ID: lifecycle.StateID(PhaseRunning), Name: "Running"}
	closed := &lifecycle.State{ID: lifecycle.StateID(PhaseClosed), Name: "Closed", Final: true}

	initialized.On(evRun, "run", running, nil, nil)
	initialized.On(evClose, "close", closed, nil, nil)
	running.On(evClose, "close", closed, nil, nil)

	running.OnEntry(func(ctx context.Context, _ *lifecycle.Event, _, _ lifecycle.StateID) error {
		if rt.mode != UpdateOnTick {
			return nil
		}
		return rt.ticker.Start(ctx)
	})
	closed.OnEntry(func(context.Context, *lifecycle.Event, lifecycle.StateID, lifecycle.StateID) error {
		return rt.shutdown()
	})

	return lifecycle.NewMachine(initialized, running, closed)
}

// shutdown stops the ticker, releases every window and closes the loop.
func (rt *Runtime) shutdown() error {
	var errs []error
	if err := rt.ticker.Stop(); err != nil && !errors.Is(err, platform.ErrLoopClosed) {
		errs = append(errs, fmt.Errorf("stop ticker: %w", err))
	}
	ids := rt.windows.IDs()
	if err := rt.windows.Close(); err != nil {
		rt.log.Error("release windows", "err", err)
	}
	for _, id := range ids {
		rt.metrics.WindowClosed()
		rt.log.Info("window closed", "window", id, "reason", "shutdown")
	}
	if err := rt.loop.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close event loop: %w", err))
	}
	return errors.Join(errs...)
}

// Phase returns the current lifecycle phase.
func (rt *Runtime) Phase() Phase {
	return Phase(rt.phase.Current().ID)
}

// Windows returns the window registry. Not safe for use off the loop
// goroutine.
func (rt *Runtime) Windows() *window.Registry {
	return rt.windows
}

// Behaviors returns the behavior registry.
func (rt *Runtime) Behaviors() *behavior.Registry {
	return rt.behaviors
}

// Loop returns the platform event loop. Post is safe from any goroutine.
func (rt *Runtime) Loop() platform.EventLoop {
	return rt.loop
}

// Lifecycle renders the phase machine in Graphviz DOT.
func (rt *Runtime) Lifecycle() string {
	return rt.phase.DOT("framecore")
}

// CreateWindow opens a window with its own surface and graphics context,
// presents one cleared frame and adds it to the registry.
func (rt *Runtime) CreateWindow(title string, width, height uint32) (*window.Record, error) {
	if !rt.phase.Can(evRun) {
		return nil, ErrRuntimeClosed
	}
	size := platform.Size{Width: width, Height: height}
	if size.Empty() {
		return nil, fmt.Errorf("create window %q %s: %w", title, size, window.ErrZeroSize)
	}

	win, err := rt.loop.CreateWindow(platform.WindowConfig{Title: title, Size: size, Resizable: true})
	if err != nil {
		if !errors.Is(err, platform.ErrPlatformUnavailable) {
			err = fmt.Errorf("%w: %w", platform.ErrPlatformUnavailable, err)
		}
		return nil, fmt.Errorf("create window %q: %w", title, err)
	}

	surface, gctx, err := rt.graphics.CreateContext(win, rt.context)
	if err != nil {
		if derr := win.Destroy(); derr != nil {
			rt.log.Warn("destroy window after context failure", "window", win.ID(), "err", derr)
		}
		if !errors.Is(err, platform.ErrContextNegotiation) {
			err = fmt.Errorf("%w: %w", platform.ErrContextNegotiation, err)
		}
		return nil, fmt.Errorf("create window %q: %w", title, err)
	}

	rec := window.NewRecord(win, surface, gctx)
	// Draw errors carry platform.ErrPresent.
	if err := rec.Draw(rt.windows.ClearColor()); err != nil {
		return nil, errors.Join(fmt.Errorf("create window %q: first frame: %w", title, err), rec.Release())
	}
	if err := rt.windows.Insert(rec); err != nil {
		return nil, errors.Join(err, rec.Release())
	}

	rt.metrics.WindowCreated()
	rt.log.Info("window created", "window", rec.ID(), "title", title, "size", size)
	return rec, nil
}

// Register starts b and adds it to rt's behavior registry. The returned
// handle is b itself.
func Register[T behavior.Behavior](rt *Runtime, b T) (T, error) {
	return behavior.Register(rt.behaviors, b)
}

// Run dispatches platform events until the last window closes, ctx is done
// or, under behavior.FaultAbort, a behavior faults. Run consumes the
// runtime: on return every window is released and the phase is
// PhaseClosed. If no windows exist Run returns nil at once.
//
// The calling goroutine stays locked to its OS thread until Run returns.
// Cancellation is checked before every event, so a busy queue cannot hold
// the loop open.
func (rt *Runtime) Run(ctx context.Context) error {
	if !rt.phase.Can(evRun) {
		return ErrRuntimeClosed
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if rt.windows.Empty() {
		rt.log.Info("no windows, closing")
		return rt.close(nil)
	}
	if _, err := rt.phase.Send(ctx, lifecycle.Event{ID: evRun}); err != nil {
		return rt.close(fmt.Errorf("run: %w", err))
	}
	rt.log.Info("runtime running", "windows", rt.windows.Len())

	for {
		if err := ctx.Err(); err != nil {
			return rt.close(err)
		}
		ev, err := rt.loop.WaitEvent(ctx)
		if err != nil {
			return rt.close(err)
		}
		done, err := rt.dispatch(ev)
		if err != nil {
			return rt.close(err)
		}
		if done {
			rt.log.Info("last window closed")
			return rt.close(nil)
		}
	}
}

func (rt *Runtime) close(cause error) error {
	if rt.phase.Done() {
		return cause
	}
	_, err := rt.phase.Send(context.Background(), lifecycle.Event{ID: evClose})
	if err != nil {
		rt.log.Error("shutdown", "err", err)
	}
	rt.log.Info("runtime closed", "cause", cause)
	if cause != nil {
		return errors.Join(cause, err)
	}
	return err
}

// dispatch handles one event and reports whether the registry is now empty.
func (rt *Runtime) dispatch(ev platform.Event) (bool, error) {
	switch ev := ev.(type) {
	case platform.RedrawRequested:
		rt.redraw(ev.Window)
	case platform.Resized:
		rt.resize(ev.Window, ev.Size)
	case platform.CloseRequested:
		if rt.closeWindow(ev.Window, "close requested") {
			return true, nil
		}
	case platform.KeyInput:
		if platform.IsCloseKey(ev) && rt.closeWindow(ev.Window, "escape") {
			return true, nil
		}
	case platform.Tick:
		// The next tick is held back until this frame is done.
		defer rt.ticker.Ack()
		if rt.mode == UpdateOnTick {
			if err := rt.update(); err != nil {
				return false, err
			}
			for _, id := range rt.windows.IDs() {
				if rec, ok := rt.windows.Lookup(id); ok {
					rec.RequestRedraw()
				}
			}
			return false, nil
		}
	}

	if rt.mode == UpdateOnEvent {
		return false, rt.update()
	}
	return false, nil
}

// update runs one behavior pass. Faults are returned only under FaultAbort;
// the registry has already logged them either way.
func (rt *Runtime) update() error {
	start := time.Now()
	err := rt.behaviors.UpdateAll()
	rt.metrics.Tick(time.Since(start).Seconds())
	if err != nil && rt.behaviors.Policy() == behavior.FaultAbort {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}

func (rt *Runtime) redraw(id platform.WindowID) {
	if _, ok := rt.windows.Lookup(id); !ok {
		return
	}
	err := rt.windows.Redraw(id)
	rt.metrics.Redraw(err)
	if err != nil {
		rt.log.Error("redraw", "window", id, "err", err)
	}
}

// resize keeps the previous surface when the new size is rejected.
func (rt *Runtime) resize(id platform.WindowID, size platform.Size) {
	if err := rt.windows.Resize(id, size); err != nil {
		if errors.Is(err, window.ErrNotFound) {
			rt.log.Debug("resize for unknown window", "window", id)
			return
		}
		rt.log.Warn("resize rejected", "window", id, "size", size, "err", err)
		return
	}
	if rec, ok := rt.windows.Lookup(id); ok {
		rec.RequestRedraw()
	}
	rt.log.Debug("window resized", "window", id, "size", size)
}

// closeWindow removes id and reports whether the registry is now empty.
func (rt *Runtime) closeWindow(id platform.WindowID, reason string) bool {
	removed, err := rt.windows.Remove(id)
	if removed {
		rt.metrics.WindowClosed()
		rt.log.Info("window closed", "window", id, "reason", reason)
	}
	if err != nil {
		rt.log.Error("release window", "window", id, "err", err)
	}
	return rt.windows.Empty()
}
