package headless

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/comalice/framecore/platform"
)

var (
	errReleased   = errors.New("resource released")
	errNotCurrent = errors.New("context is not current")
)

// GraphicsOption configures Graphics.
type GraphicsOption func(*Graphics)

// WithMaxVersion caps the context version Graphics will negotiate.
func WithMaxVersion(major, minor int) GraphicsOption {
	return func(g *Graphics) {
		g.maxMajor, g.maxMinor = major, minor
	}
}

// Graphics creates software surfaces and contexts.
type Graphics struct {
	maxMajor int
	maxMinor int

	mu       sync.Mutex
	failNext error
	created  int
}

// NewGraphics returns a software graphics substrate supporting OpenGL and
// OpenGL ES up to version 4.6 unless capped with WithMaxVersion.
func NewGraphics(opts ...GraphicsOption) *Graphics {
	g := &Graphics{maxMajor: 4, maxMinor: 6}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// FailNextContext makes the next CreateContext call fail with err.
func (g *Graphics) FailNextContext(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failNext = err
}

// Created returns how many contexts have been created.
func (g *Graphics) Created() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.created
}

// CreateContext implements platform.Graphics.
func (g *Graphics) CreateContext(w platform.Window, cfg platform.ContextConfig) (platform.Surface, platform.Context, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.failNext; err != nil {
		g.failNext = nil
		return nil, nil, fmt.Errorf("window %s: %w: %w", w.ID(), platform.ErrContextNegotiation, err)
	}
	switch cfg.API {
	case platform.OpenGL, platform.OpenGLES:
	default:
		return nil, nil, fmt.Errorf("window %s: api %q: %w", w.ID(), cfg.API, platform.ErrContextNegotiation)
	}
	if cfg.Major > g.maxMajor || (cfg.Major == g.maxMajor && cfg.Minor > g.maxMinor) {
		return nil, nil, fmt.Errorf("window %s: version %d.%d above %d.%d: %w",
			w.ID(), cfg.Major, cfg.Minor, g.maxMajor, g.maxMinor, platform.ErrContextNegotiation)
	}

	size := w.Size()
	if size.Empty() {
		return nil, nil, fmt.Errorf("window %s: size %s: %w", w.ID(), size, platform.ErrContextNegotiation)
	}

	s := newSurface(size)
	g.created++
	return s, &Context{cfg: cfg}, nil
}

// Surface is a double-buffered software surface.
type Surface struct {
	mu       sync.Mutex
	size     platform.Size
	back     *image.RGBA
	front    *image.RGBA
	frames   uint64
	released bool
}

func newSurface(size platform.Size) *Surface {
	return &Surface{
		size:  size,
		back:  image.NewRGBA(image.Rect(0, 0, int(size.Width), int(size.Height))),
		front: image.NewRGBA(image.Rect(0, 0, int(size.Width), int(size.Height))),
	}
}

func (s *Surface) Size() platform.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Resize reallocates both buffers. Contents are discarded.
func (s *Surface) Resize(size platform.Size) error {
	if size.Empty() {
		return fmt.Errorf("resize to %s: %w", size, platform.ErrSurfaceResize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return fmt.Errorf("resize to %s: %w: %w", size, platform.ErrSurfaceResize, errReleased)
	}
	s.size = size
	s.back = image.NewRGBA(image.Rect(0, 0, int(size.Width), int(size.Height)))
	s.front = image.NewRGBA(image.Rect(0, 0, int(size.Width), int(size.Height)))
	return nil
}

func (s *Surface) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	s.back, s.front = nil, nil
	return nil
}

// Released reports whether Release has been called.
func (s *Surface) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

// Frames returns the number of buffer swaps.
func (s *Surface) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

// At returns the presented pixel at (x, y).
func (s *Surface) At(x, y int) color.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.front == nil {
		return color.RGBA{}
	}
	return s.front.RGBAAt(x, y)
}

// Context draws into a Surface.
type Context struct {
	cfg platform.ContextConfig

	mu       sync.Mutex
	current  *Surface
	released bool
}

// Config returns the negotiated configuration.
func (c *Context) Config() platform.ContextConfig {
	return c.cfg
}

func (c *Context) MakeCurrent(s platform.Surface) error {
	hs, ok := s.(*Surface)
	if !ok {
		return fmt.Errorf("make current: foreign surface %T", s)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released || hs.Released() {
		return fmt.Errorf("make current: %w", errReleased)
	}
	c.current = hs
	return nil
}

func (c *Context) Clear(col platform.Color) error {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s == nil {
		return fmt.Errorf("clear: %w", errNotCurrent)
	}

	r, g, b, a := col.RGBA8()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return fmt.Errorf("clear: %w", errReleased)
	}
	draw.Draw(s.back, s.back.Bounds(), image.NewUniform(color.RGBA{R: r, G: g, B: b, A: a}), image.Point{}, draw.Src)
	return nil
}

func (c *Context) SwapBuffers(s platform.Surface) error {
	c.mu.Lock()
	cur := c.current
	c.mu.Unlock()
	if cur == nil || platform.Surface(cur) != s {
		return fmt.Errorf("swap buffers: %w", errNotCurrent)
	}

	cur.mu.Lock()
	defer cur.mu.Unlock()
	if cur.released {
		return fmt.Errorf("swap buffers: %w", errReleased)
	}
	cur.back, cur.front = cur.front, cur.back
	cur.frames++
	return nil
}

func (c *Context) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
	c.current = nil
	return nil
}
