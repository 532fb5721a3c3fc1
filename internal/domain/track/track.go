// Package track provides the Track domain entity.
package track

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// Errors
var (
	ErrResourceUnreadable = errors.New("resource unreadable")
	ErrHandleUnavailable  = errors.New("handle unavailable")
)

// ID identifies a track by its absolute source path.
type ID string

// String returns the path the ID was built from.
func (id ID) String() string {
	return string(id)
}

// Track represents one loadable audio file.
// Identity is the ID only; the handle is owned by the Track and never shared.
type Track struct {
	id     ID                // Absolute source path
	name   string            // Base name of the source path
	handle io.ReadSeekCloser // Open read cursor owned by this Track
}

// Load opens the file at path and returns a Track owning the open handle.
// The path is made absolute before it becomes the Track ID.
func Load(path string) (*Track, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to resolve %s", path), ErrResourceUnreadable)
	}

	f, err := openFile(abs)
	if err != nil {
		return nil, errors.Mark(err, ErrResourceUnreadable)
	}

	return New(ID(abs), f), nil
}

// New builds a Track around an already opened handle, taking ownership of it.
// Panics if the ID has no final path segment.
func New(id ID, handle io.ReadSeekCloser) *Track {
	name := filepath.Base(string(id))
	if name == "" || name == "." || name == string(filepath.Separator) {
		panic("track: identifier has no path segment: " + string(id))
	}
	return &Track{
		id:     id,
		name:   name,
		handle: handle,
	}
}

// ID returns the track identity.
func (t *Track) ID() ID {
	return t.id
}

// DisplayName returns the final segment of the source path.
func (t *Track) DisplayName() string {
	return t.name
}

// Equal reports whether both tracks refer to the same source.
func (t *Track) Equal(other *Track) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.id == other.id
}

// Handle returns the read cursor owned by this Track.
func (t *Track) Handle() io.ReadSeekCloser {
	return t.handle
}

// Size returns the current size of the source file in bytes.
func (t *Track) Size() (int64, error) {
	info, err := os.Stat(string(t.id))
	if err != nil {
		return 0, errors.Mark(errors.Wrapf(err, "failed to stat %s", t.name), ErrResourceUnreadable)
	}
	return info.Size(), nil
}

// Rewind moves the owned cursor back to the start of the file.
func (t *Track) Rewind() error {
	if t.handle == nil {
		return errors.Mark(errors.Newf("%s is closed", t.id), ErrHandleUnavailable)
	}
	if _, err := t.handle.Seek(0, io.SeekStart); err != nil {
		return errors.Wrapf(err, "failed to rewind %s", t.id)
	}
	return nil
}

// Reacquire opens a new cursor over the same file, independent from the
// Track's own handle. The caller owns the returned cursor.
func (t *Track) Reacquire() (io.ReadSeekCloser, error) {
	f, err := openFile(string(t.id))
	if err != nil {
		return nil, errors.Mark(err, ErrHandleUnavailable)
	}
	return f, nil
}

// Duplicate returns a Track with the same identity and its own handle.
func (t *Track) Duplicate() (*Track, error) {
	h, err := t.Reacquire()
	if err != nil {
		return nil, err
	}
	return &Track{
		id:     t.id,
		name:   t.name,
		handle: h,
	}, nil
}

// Close releases the owned handle.
func (t *Track) Close() error {
	if t.handle == nil {
		return nil
	}
	err := t.handle.Close()
	t.handle = nil
	if err != nil && !errors.Is(err, os.ErrClosed) {
		return errors.Wrapf(err, "failed to close %s", t.id)
	}
	return nil
}

// openFile opens path for reading, refusing directories.
func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(err, "failed to stat %s", path)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, errors.Newf("%s is a directory", path)
	}
	return f, nil
}
