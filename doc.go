// Package framecore is the core of a small real-time application framework.
//
// A program calls Init once, creates its windows, registers behaviors and
// hands control to Run:
//
//	rt, err := framecore.Init(framecore.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	if _, err := rt.CreateWindow("demo", 1280, 720); err != nil {
//		return err
//	}
//	if _, err := framecore.Register(rt, &BallContainer{Balls: 69}); err != nil {
//		return err
//	}
//	return rt.Run(ctx)
//
// Run dispatches platform events on the calling goroutine, locked to its OS
// thread until Run returns. Each window is cleared and presented on every
// redraw. Closing a window, or pressing Escape in it, releases its graphics
// context, its surface and the native window in that order; Run returns
// when the last window is gone.
//
// Behaviors are started when registered and updated once per frame tick
// (UpdateOnTick) or after every platform event (UpdateOnEvent). A panic in a
// behavior is recovered and reported; see behavior.FaultPolicy.
//
// The platform itself is pluggable through package platform. Without
// WithPlatform the runtime uses platform/headless, which renders into
// in-memory images.
package framecore
