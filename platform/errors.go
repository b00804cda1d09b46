package platform

import (
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	// ErrPlatformUnavailable means the windowing substrate could not open a
	// loop or create a window.
	ErrPlatformUnavailable = fmt.Errorf("platform unavailable: %w", errdefs.ErrUnavailable)

	// ErrContextNegotiation means no surface or context matched the
	// requested configuration.
	ErrContextNegotiation = fmt.Errorf("graphics context negotiation failed: %w", errdefs.ErrUnavailable)

	// ErrSurfaceResize means the surface rejected a resize.
	ErrSurfaceResize = fmt.Errorf("surface resize rejected: %w", errdefs.ErrUnavailable)

	// ErrPresent means a frame could not be cleared or presented.
	ErrPresent = fmt.Errorf("present frame failed: %w", errdefs.ErrUnavailable)

	// ErrLoopClosed is returned by a closed event loop.
	ErrLoopClosed = fmt.Errorf("event loop closed: %w", errdefs.ErrUnavailable)
)
