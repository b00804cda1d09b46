package benchmarks

import (
	"context"
	"testing"

	"github.com/comalice/framecore"
	"github.com/comalice/framecore/platform"
)

func run(b *testing.B, s *Setup) {
	b.Helper()
	if err := s.RT.Run(context.Background()); err != nil {
		b.Fatal(err)
	}
}

// BenchmarkDispatch measures event dispatch with one update pass per event
// across 10 behaviors.
func BenchmarkDispatch(b *testing.B) {
	s := NewSetup(b, 1, 16, 16, framecore.WithUpdateMode(framecore.UpdateOnEvent))
	for range 10 {
		if _, err := framecore.Register(s.RT, Nop{}); err != nil {
			b.Fatal(err)
		}
	}
	s.Post(b, b.N, func(i int) platform.Event { return platform.UserEvent{Value: i} })
	s.CloseAll(b)

	b.ReportAllocs()
	b.ResetTimer()
	run(b, s)
}

func BenchmarkRedraw(b *testing.B) {
	sizes := []struct {
		name          string
		width, height uint32
	}{
		{"64x64", 64, 64},
		{"640x480", 640, 480},
	}
	for _, sz := range sizes {
		b.Run(sz.name, func(b *testing.B) {
			s := NewSetup(b, 1, sz.width, sz.height)
			id := s.RT.Windows().IDs()[0]
			s.Post(b, b.N, func(int) platform.Event { return platform.RedrawRequested{Window: id} })
			s.CloseAll(b)

			b.ReportAllocs()
			b.ResetTimer()
			run(b, s)
		})
	}
}

// BenchmarkCreateWindow measures window, surface and context setup plus the
// first frame.
func BenchmarkCreateWindow(b *testing.B) {
	s := NewSetup(b, 0, 0, 0)
	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		if _, err := s.RT.CreateWindow("bench", 64, 64); err != nil {
			b.Fatal(err)
		}
	}
	b.StopTimer()
	s.CloseAll(b)
	run(b, s)
}
