// Package benchmarks measures the runtime loop on the headless platform.
package benchmarks

import (
	"fmt"
	"testing"

	"github.com/comalice/framecore"
	"github.com/comalice/framecore/platform"
	"github.com/comalice/framecore/platform/headless"
)

// Setup is an initialized runtime with its headless loop.
type Setup struct {
	RT   *framecore.Runtime
	Loop *headless.Loop
}

// NewSetup initializes a runtime with its own init guard and opens windows
// windows of width x height.
func NewSetup(tb testing.TB, windows int, width, height uint32, opts ...framecore.Option) *Setup {
	tb.Helper()
	driver := headless.New()
	base := []framecore.Option{
		framecore.WithPlatform(driver, headless.NewGraphics()),
		framecore.WithInitGuard(framecore.NewInitGuard()),
		framecore.WithVSyncDefault(false),
	}
	rt, err := framecore.Init(append(base, opts...)...)
	if err != nil {
		tb.Fatal(err)
	}
	for i := range windows {
		if _, err := rt.CreateWindow(fmt.Sprintf("bench %d", i), width, height); err != nil {
			tb.Fatal(err)
		}
	}
	return &Setup{RT: rt, Loop: driver.Loop()}
}

// CloseAll queues a close request for every open window.
func (s *Setup) CloseAll(tb testing.TB) {
	tb.Helper()
	for _, id := range s.RT.Windows().IDs() {
		if err := s.Loop.RequestClose(id); err != nil {
			tb.Fatal(err)
		}
	}
}

// Post queues n events built by mk.
func (s *Setup) Post(tb testing.TB, n int, mk func(i int) platform.Event) {
	tb.Helper()
	for i := range n {
		if err := s.Loop.Post(mk(i)); err != nil {
			tb.Fatal(err)
		}
	}
}

// Nop is a behavior that does nothing.
type Nop struct{}

func (Nop) Start()  {}
func (Nop) Update() {}
