package window

import (
	"errors"
	"fmt"
	"sort"

	"github.com/containerd/errdefs"

	"github.com/comalice/framecore/platform"
)

var (
	// ErrZeroSize is returned for a window or surface size with zero area.
	ErrZeroSize = fmt.Errorf("window size must be non-zero: %w", errdefs.ErrInvalidArgument)

	// ErrNotFound is returned when an id is not in the registry.
	ErrNotFound = fmt.Errorf("window not found: %w", errdefs.ErrNotFound)

	// ErrDuplicate is returned when inserting an id that is already present.
	ErrDuplicate = fmt.Errorf("window already registered: %w", errdefs.ErrAlreadyExists)

	errReleased = errors.New("window released")
)

// Registry maps window ids to records.
type Registry struct {
	records map[platform.WindowID]*Record
	clear   platform.Color
}

// NewRegistry returns an empty registry that clears windows to clear on
// every redraw.
func NewRegistry(clear platform.Color) *Registry {
	return &Registry{
		records: make(map[platform.WindowID]*Record),
		clear:   clear,
	}
}

// ClearColor returns the color used by Redraw.
func (r *Registry) ClearColor() platform.Color {
	return r.clear
}

// Insert adds rec. Ids are unique among live records.
func (r *Registry) Insert(rec *Record) error {
	id := rec.ID()
	if _, ok := r.records[id]; ok {
		return fmt.Errorf("insert %s: %w", id, ErrDuplicate)
	}
	r.records[id] = rec
	return nil
}

// Lookup returns the record for id.
func (r *Registry) Lookup(id platform.WindowID) (*Record, bool) {
	rec, ok := r.records[id]
	return rec, ok
}

// Remove drops the record for id and releases its resources. Removing an
// absent id is a no-op and reports false.
func (r *Registry) Remove(id platform.WindowID) (bool, error) {
	rec, ok := r.records[id]
	if !ok {
		return false, nil
	}
	delete(r.records, id)
	return true, rec.Release()
}

// Redraw clears and presents the window. Absent ids are ignored: a redraw
// may still be queued for a window that was just closed.
func (r *Registry) Redraw(id platform.WindowID) error {
	rec, ok := r.records[id]
	if !ok {
		return nil
	}
	return rec.Draw(r.clear)
}

// Resize resizes the window's surface to size.
func (r *Registry) Resize(id platform.WindowID, size platform.Size) error {
	if size.Empty() {
		return fmt.Errorf("resize %s to %s: %w", id, size, ErrZeroSize)
	}
	rec, ok := r.records[id]
	if !ok {
		return fmt.Errorf("resize %s: %w", id, ErrNotFound)
	}
	if err := rec.surface.Resize(size); err != nil {
		if !errors.Is(err, platform.ErrSurfaceResize) {
			err = fmt.Errorf("%w: %w", platform.ErrSurfaceResize, err)
		}
		return fmt.Errorf("resize %s to %s: %w", id, size, err)
	}
	return nil
}

// Len returns the number of live windows.
func (r *Registry) Len() int {
	return len(r.records)
}

// Empty reports whether no windows remain.
func (r *Registry) Empty() bool {
	return len(r.records) == 0
}

// IDs returns the live ids in sorted order.
func (r *Registry) IDs() []platform.WindowID {
	ids := make([]platform.WindowID, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Close removes every record.
func (r *Registry) Close() error {
	var errs []error
	for _, id := range r.IDs() {
		if _, err := r.Remove(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
