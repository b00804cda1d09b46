// Package window keeps the runtime's graphics-bound windows.
//
// A Record bundles a platform window with the surface and context created
// for it. The Registry owns every Record; removing one releases its GPU
// resources immediately. Neither type is safe for concurrent use: both
// belong to the goroutine running the event loop.
package window

import (
	"errors"
	"fmt"

	"github.com/comalice/framecore/platform"
)

// Record is a window with its drawing surface and active context.
type Record struct {
	window   platform.Window
	surface  platform.Surface
	context  platform.Context
	released bool
}

// NewRecord bundles the three resources. The record takes ownership of them.
func NewRecord(w platform.Window, s platform.Surface, c platform.Context) *Record {
	return &Record{window: w, surface: s, context: c}
}

func (r *Record) ID() platform.WindowID     { return r.window.ID() }
func (r *Record) Title() string             { return r.window.Title() }
func (r *Record) Window() platform.Window   { return r.window }
func (r *Record) Surface() platform.Surface { return r.surface }
func (r *Record) Context() platform.Context { return r.context }
func (r *Record) Size() platform.Size       { return r.surface.Size() }
func (r *Record) Released() bool            { return r.released }

// RequestRedraw asks the platform for a RedrawRequested event.
func (r *Record) RequestRedraw() {
	if r.released {
		return
	}
	r.window.RequestRedraw()
}

// Draw makes the context current on the surface, clears it to clear and
// presents it. Every failure wraps platform.ErrPresent.
func (r *Record) Draw(clear platform.Color) error {
	if r.released {
		return fmt.Errorf("window %s: %w: %w", r.ID(), platform.ErrPresent, errReleased)
	}
	if err := r.context.MakeCurrent(r.surface); err != nil {
		return fmt.Errorf("window %s: make current: %w: %w", r.ID(), platform.ErrPresent, err)
	}
	if err := r.context.Clear(clear); err != nil {
		return fmt.Errorf("window %s: clear: %w: %w", r.ID(), platform.ErrPresent, err)
	}
	if err := r.context.SwapBuffers(r.surface); err != nil {
		return fmt.Errorf("window %s: swap buffers: %w: %w", r.ID(), platform.ErrPresent, err)
	}
	return nil
}

// Release frees the context, then the surface, then the native window.
// Every step runs even if an earlier one fails. Later calls do nothing.
func (r *Record) Release() error {
	if r.released {
		return nil
	}
	r.released = true

	var errs []error
	if err := r.context.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release context: %w", err))
	}
	if err := r.surface.Release(); err != nil {
		errs = append(errs, fmt.Errorf("release surface: %w", err))
	}
	if err := r.window.Destroy(); err != nil {
		errs = append(errs, fmt.Errorf("destroy window: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("window %s: %w", r.ID(), errors.Join(errs...))
	}
	return nil
}
