// Package platform declares the collaborators the runtime orchestrates:
// a windowing substrate that owns native windows and delivers events, and a
// graphics substrate that binds a drawing surface and context to a window.
//
// Implementations are not required to be safe for concurrent use, with one
// exception: EventLoop.Post may be called from any goroutine.
package platform

import "context"

// WindowID identifies a live window. Values are assigned by the platform and
// are unique among live windows.
type WindowID string

// WindowConfig describes a window to create.
type WindowConfig struct {
	Title     string
	Size      Size
	Resizable bool
}

// Driver opens the platform event loop. Open is called once per runtime.
type Driver interface {
	Open() (EventLoop, error)
}

// EventLoop is the platform event source and window factory.
type EventLoop interface {
	// CreateWindow creates a native window. Errors should wrap
	// ErrPlatformUnavailable.
	CreateWindow(cfg WindowConfig) (Window, error)

	// WaitEvent blocks until the next event is available or ctx is done.
	WaitEvent(ctx context.Context) (Event, error)

	// Post queues an event from any goroutine and wakes WaitEvent.
	Post(ev Event) error

	// Close releases the loop. Pending and future waits fail with ErrLoopClosed.
	Close() error
}

// Window is a native window handle.
type Window interface {
	ID() WindowID
	Title() string
	Size() Size
	RequestRedraw()
	Destroy() error
}

// Graphics creates drawing surfaces and contexts bound to windows.
type Graphics interface {
	// CreateContext builds a surface sized to the window and a context that
	// renders to it. Errors should wrap ErrContextNegotiation.
	CreateContext(w Window, cfg ContextConfig) (Surface, Context, error)
}

// Surface is the drawable backing a window.
type Surface interface {
	Size() Size
	// Resize changes the drawable size. Size must have non-zero area.
	Resize(size Size) error
	Release() error
}

// Context is the drawing state object. It must be made current before any
// draw call and is only touched from the event loop goroutine.
type Context interface {
	MakeCurrent(s Surface) error
	Clear(c Color) error
	SwapBuffers(s Surface) error
	Release() error
}

// API names a graphics API family.
type API string

const (
	OpenGL   API = "opengl"
	OpenGLES API = "opengles"
)

// Profile selects an OpenGL profile.
type Profile string

const (
	CoreProfile          Profile = "core"
	CompatibilityProfile Profile = "compat"
)

// ContextConfig lists the attributes requested from the graphics substrate.
type ContextConfig struct {
	API     API
	Major   int
	Minor   int
	Profile Profile
	SRGB    bool
}

// DefaultContextConfig requests an sRGB-capable OpenGL 3.1 core context.
func DefaultContextConfig() ContextConfig {
	return ContextConfig{
		API:     OpenGL,
		Major:   3,
		Minor:   1,
		Profile: CoreProfile,
		SRGB:    true,
	}
}
