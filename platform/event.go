package platform

import (
	"fmt"
	"time"
)

// Event is a platform event delivered by EventLoop.WaitEvent.
type Event interface {
	event()
}

// RedrawRequested asks for the window to be drawn again.
type RedrawRequested struct {
	Window WindowID
}

// Resized reports a new inner size for a window.
type Resized struct {
	Window WindowID
	Size   Size
}

// CloseRequested reports that the user asked to close a window.
type CloseRequested struct {
	Window WindowID
}

// KeyInput is a keyboard event on the focused window.
type KeyInput struct {
	Window    WindowID
	Key       Key
	State     KeyState
	Synthetic bool // generated by the platform on focus changes, not typed
}

// Focused reports a focus change.
type Focused struct {
	Window  WindowID
	Focused bool
}

// Tick is posted by the frame ticker to wake the loop for an update pass.
type Tick struct {
	Seq uint64
	At  time.Time
}

// UserEvent carries an arbitrary value posted by application code.
type UserEvent struct {
	Value any
}

func (RedrawRequested) event() {}
func (Resized) event()         {}
func (CloseRequested) event()  {}
func (KeyInput) event()        {}
func (Focused) event()         {}
func (Tick) event()            {}
func (UserEvent) event()       {}

// Key is a virtual key code.
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyEnter
	KeySpace
	KeyA
	KeyQ
)

func (k Key) String() string {
	switch k {
	case KeyEscape:
		return "escape"
	case KeyEnter:
		return "enter"
	case KeySpace:
		return "space"
	case KeyA:
		return "a"
	case KeyQ:
		return "q"
	default:
		return fmt.Sprintf("key(%d)", int(k))
	}
}

// KeyState is the press state of a key event.
type KeyState int

const (
	Pressed KeyState = iota
	Released
)

// IsCloseKey reports whether ev asks to close its window: a real Escape
// key-down.
func IsCloseKey(ev KeyInput) bool {
	return ev.Key == KeyEscape && ev.State == Pressed && !ev.Synthetic
}
