package window

import (
	"errors"
	"fmt"
	"image/color"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/framecore/platform"
	"github.com/comalice/framecore/platform/headless"
)

type fixture struct {
	loop *headless.Loop
	gfx  *headless.Graphics
	reg  *Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	n := 0
	driver := headless.New(headless.WithIDs(func() platform.WindowID {
		n++
		return platform.WindowID(fmt.Sprintf("w%d", n))
	}))
	loop, err := driver.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = loop.Close() })
	return &fixture{
		loop: driver.Loop(),
		gfx:  headless.NewGraphics(),
		reg:  NewRegistry(platform.DefaultClearColor),
	}
}

func (f *fixture) record(t *testing.T, w, h uint32) *Record {
	t.Helper()
	win, err := f.loop.CreateWindow(platform.WindowConfig{Title: "t", Size: platform.Size{Width: w, Height: h}})
	require.NoError(t, err)
	s, c, err := f.gfx.CreateContext(win, platform.DefaultContextConfig())
	require.NoError(t, err)
	return NewRecord(win, s, c)
}

func TestInsertLookupRemove(t *testing.T) {
	f := newFixture(t)
	a := f.record(t, 800, 600)
	b := f.record(t, 640, 480)

	require.NoError(t, f.reg.Insert(a))
	require.NoError(t, f.reg.Insert(b))
	assert.Equal(t, 2, f.reg.Len())
	assert.Equal(t, []platform.WindowID{"w1", "w2"}, f.reg.IDs())

	got, ok := f.reg.Lookup("w2")
	require.True(t, ok)
	assert.Same(t, b, got)

	removed, err := f.reg.Remove("w1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.True(t, a.Released())
	assert.True(t, a.Surface().(*headless.Surface).Released())
	assert.Equal(t, []platform.WindowID{"w2"}, f.loop.Windows())

	removed, err = f.reg.Remove("w1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 1, f.reg.Len())
	assert.False(t, f.reg.Empty())
}

func TestInsertDuplicate(t *testing.T) {
	f := newFixture(t)
	rec := f.record(t, 10, 10)
	require.NoError(t, f.reg.Insert(rec))

	err := f.reg.Insert(rec)
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.True(t, errdefs.IsAlreadyExists(err))
}

func TestRedrawPresentsClearColor(t *testing.T) {
	f := newFixture(t)
	rec := f.record(t, 4, 4)
	require.NoError(t, f.reg.Insert(rec))

	require.NoError(t, f.reg.Redraw(rec.ID()))
	require.NoError(t, f.reg.Redraw(rec.ID()))

	s := rec.Surface().(*headless.Surface)
	assert.Equal(t, uint64(2), s.Frames())
	assert.Equal(t, color.RGBA{R: 26, G: 51, B: 77, A: 255}, s.At(0, 0))
}

func TestRedrawAbsentIsNoop(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.reg.Redraw("gone"))
}

func TestResize(t *testing.T) {
	f := newFixture(t)
	rec := f.record(t, 4, 4)
	require.NoError(t, f.reg.Insert(rec))

	require.NoError(t, f.reg.Resize(rec.ID(), platform.Size{Width: 10, Height: 20}))
	assert.Equal(t, platform.Size{Width: 10, Height: 20}, rec.Size())

	err := f.reg.Resize(rec.ID(), platform.Size{Width: 10})
	assert.ErrorIs(t, err, ErrZeroSize)
	assert.True(t, errdefs.IsInvalidArgument(err))
	assert.Equal(t, platform.Size{Width: 10, Height: 20}, rec.Size())

	err = f.reg.Resize("gone", platform.Size{Width: 1, Height: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

type brokenSurface struct {
	platform.Surface
}

func (brokenSurface) Resize(platform.Size) error { return errors.New("driver lost") }
func (brokenSurface) Release() error             { return errors.New("double free") }

func TestResizeWrapsDriverErrors(t *testing.T) {
	f := newFixture(t)
	rec := f.record(t, 4, 4)
	rec.surface = brokenSurface{rec.surface}
	require.NoError(t, f.reg.Insert(rec))

	err := f.reg.Resize(rec.ID(), platform.Size{Width: 8, Height: 8})
	assert.ErrorIs(t, err, platform.ErrSurfaceResize)
	assert.True(t, errdefs.IsUnavailable(err))
}

func TestReleaseRunsEveryStep(t *testing.T) {
	f := newFixture(t)
	rec := f.record(t, 4, 4)
	rec.surface = brokenSurface{rec.surface}

	err := rec.Release()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "double free")
	assert.Empty(t, f.loop.Windows(), "window destroyed despite surface error")

	assert.NoError(t, rec.Release())
	err = rec.Draw(platform.DefaultClearColor)
	assert.ErrorIs(t, err, platform.ErrPresent)
	assert.True(t, errdefs.IsUnavailable(err))
}

func TestCloseReleasesAll(t *testing.T) {
	f := newFixture(t)
	var recs []*Record
	for i := 0; i < 3; i++ {
		rec := f.record(t, 4, 4)
		require.NoError(t, f.reg.Insert(rec))
		recs = append(recs, rec)
	}

	require.NoError(t, f.reg.Close())
	assert.True(t, f.reg.Empty())
	for _, rec := range recs {
		assert.True(t, rec.Released())
	}
	assert.Equal(t, 3, f.loop.Destroyed())
}
