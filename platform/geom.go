package platform

import "fmt"

// Size is a size in physical pixels.
type Size struct {
	Width  uint32
	Height uint32
}

// Empty reports whether s has zero area.
func (s Size) Empty() bool {
	return s.Width == 0 || s.Height == 0
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Color is a linear RGBA color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// DefaultClearColor is the background used when nothing else is configured.
var DefaultClearColor = Color{R: 0.1, G: 0.2, B: 0.3, A: 1.0}

// RGBA8 converts c to 8-bit channels, clamping out-of-range components.
func (c Color) RGBA8() (r, g, b, a uint8) {
	return to8(c.R), to8(c.G), to8(c.B), to8(c.A)
}

func to8(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
