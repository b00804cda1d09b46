package framecore

import (
	"fmt"

	"github.com/containerd/errdefs"
)

var (
	// ErrAlreadyInitialized is returned by a second Init against the same guard.
	ErrAlreadyInitialized = fmt.Errorf("runtime already initialized: %w", errdefs.ErrFailedPrecondition)

	// ErrRuntimeClosed is returned by CreateWindow and Run once Run has been
	// called.
	ErrRuntimeClosed = fmt.Errorf("runtime closed: %w", errdefs.ErrFailedPrecondition)
)
