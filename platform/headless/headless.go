// Package headless implements the platform collaborators in memory.
//
// Windows are plain records with UUID identities, events flow through an
// unbounded queue, and surfaces are software RGBA buffers. The package is
// deterministic, so it backs the examples and the tests; the scripting
// helpers on Loop (RequestClose, SendKey, ResizeWindow) stand in for a
// user interacting with real windows.
package headless

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/comalice/framecore/platform"
)

// Option configures a Driver.
type Option func(*Driver)

// WithOpenError makes Open fail with err.
func WithOpenError(err error) Option {
	return func(d *Driver) {
		d.openErr = err
	}
}

// WithIDs replaces UUID generation, mainly for readable test output.
func WithIDs(next func() platform.WindowID) Option {
	return func(d *Driver) {
		d.nextID = next
	}
}

// Driver opens headless event loops.
type Driver struct {
	openErr error
	nextID  func() platform.WindowID

	mu   sync.Mutex
	loop *Loop
}

// New returns a headless driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		nextID: func() platform.WindowID {
			return platform.WindowID(uuid.NewString())
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open creates the event loop.
func (d *Driver) Open() (platform.EventLoop, error) {
	if d.openErr != nil {
		return nil, fmt.Errorf("open headless loop: %w: %w", platform.ErrPlatformUnavailable, d.openErr)
	}
	l := &Loop{
		events:  newQueue(),
		windows: make(map[platform.WindowID]*Window),
		nextID:  d.nextID,
	}
	d.mu.Lock()
	d.loop = l
	d.mu.Unlock()
	return l, nil
}

// Loop returns the most recently opened loop, or nil.
func (d *Driver) Loop() *Loop {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loop
}

// Loop is the headless event loop.
type Loop struct {
	events *queue
	nextID func() platform.WindowID

	mu        sync.Mutex
	windows   map[platform.WindowID]*Window
	focused   platform.WindowID
	failNext  error
	destroyed int
}

// FailNextWindow makes the next CreateWindow call fail with err.
func (l *Loop) FailNextWindow(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failNext = err
}

// CreateWindow implements platform.EventLoop. The new window takes focus.
func (l *Loop) CreateWindow(cfg platform.WindowConfig) (platform.Window, error) {
	if cfg.Size.Empty() {
		return nil, fmt.Errorf("create window %q with size %s: %w", cfg.Title, cfg.Size, platform.ErrPlatformUnavailable)
	}

	l.mu.Lock()
	if err := l.failNext; err != nil {
		l.failNext = nil
		l.mu.Unlock()
		return nil, fmt.Errorf("create window %q: %w: %w", cfg.Title, platform.ErrPlatformUnavailable, err)
	}
	w := &Window{
		loop:      l,
		id:        l.nextID(),
		title:     cfg.Title,
		size:      cfg.Size,
		resizable: cfg.Resizable,
	}
	l.windows[w.id] = w
	l.focused = w.id
	l.mu.Unlock()

	if err := l.events.push(platform.Focused{Window: w.id, Focused: true}); err != nil {
		return nil, err
	}
	return w, nil
}

// WaitEvent implements platform.EventLoop.
func (l *Loop) WaitEvent(ctx context.Context) (platform.Event, error) {
	ev, err := l.events.pop(ctx)
	if err != nil {
		return nil, err
	}
	if rr, ok := ev.(platform.RedrawRequested); ok {
		if w := l.window(rr.Window); w != nil {
			w.redrawPending.Store(false)
		}
	}
	return ev, nil
}

// Post implements platform.EventLoop.
func (l *Loop) Post(ev platform.Event) error {
	return l.events.push(ev)
}

// Close implements platform.EventLoop.
func (l *Loop) Close() error {
	l.events.close()
	return nil
}

// Pending returns the number of queued events.
func (l *Loop) Pending() int {
	return l.events.len()
}

// Windows returns the ids of live windows in sorted order.
func (l *Loop) Windows() []platform.WindowID {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]platform.WindowID, 0, len(l.windows))
	for id := range l.windows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Destroyed returns how many windows have been destroyed.
func (l *Loop) Destroyed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.destroyed
}

// Focused returns the focused window id, or "" when none is focused.
func (l *Loop) Focused() platform.WindowID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.focused
}

// RequestClose posts a close request, as if the user clicked the close
// button of id.
func (l *Loop) RequestClose(id platform.WindowID) error {
	return l.Post(platform.CloseRequested{Window: id})
}

// SendKey posts a key event to the focused window.
func (l *Loop) SendKey(key platform.Key, state platform.KeyState, synthetic bool) error {
	return l.Post(platform.KeyInput{
		Window:    l.Focused(),
		Key:       key,
		State:     state,
		Synthetic: synthetic,
	})
}

// ResizeWindow changes the window's inner size and posts the resize event.
func (l *Loop) ResizeWindow(id platform.WindowID, size platform.Size) error {
	if w := l.window(id); w != nil {
		w.mu.Lock()
		w.size = size
		w.mu.Unlock()
	}
	return l.Post(platform.Resized{Window: id, Size: size})
}

func (l *Loop) window(id platform.WindowID) *Window {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.windows[id]
}

func (l *Loop) forget(w *Window) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.windows[w.id]; !ok {
		return
	}
	delete(l.windows, w.id)
	l.destroyed++
	if l.focused == w.id {
		l.focused = ""
	}
}

// Window is a headless window.
type Window struct {
	loop      *Loop
	id        platform.WindowID
	title     string
	resizable bool

	mu            sync.Mutex
	size          platform.Size
	destroyed     bool
	redrawPending atomic.Bool
}

func (w *Window) ID() platform.WindowID { return w.id }
func (w *Window) Title() string         { return w.title }

func (w *Window) Size() platform.Size {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// RequestRedraw queues a RedrawRequested event. Requests made while one is
// already queued are coalesced.
func (w *Window) RequestRedraw() {
	if w.Destroyed() {
		return
	}
	if !w.redrawPending.CompareAndSwap(false, true) {
		return
	}
	if err := w.loop.Post(platform.RedrawRequested{Window: w.id}); err != nil {
		w.redrawPending.Store(false)
	}
}

// Destroy removes the window from its loop. Calling it twice is a no-op.
func (w *Window) Destroy() error {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return nil
	}
	w.destroyed = true
	w.mu.Unlock()
	w.loop.forget(w)
	return nil
}

// Destroyed reports whether Destroy has been called.
func (w *Window) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}
