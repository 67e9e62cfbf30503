package artifact

import (
	"errors"
	"fmt"
)

var (
	// ErrIO is returned when the artifact set cannot be written.
	ErrIO = errors.New("artifact write failed")

	// ErrPackaging is returned when the archive cannot be built or moved into storage.
	ErrPackaging = errors.New("packaging failed")

	// ErrNotFound is returned when an archive to deliver does not exist.
	ErrNotFound = errors.New("archive not found")
)

// Error records the failed operation and the path it touched.
type Error struct {
	Kind error  // ErrIO, ErrPackaging or ErrNotFound
	Op   string // e.g. "mkdir", "write", "zip", "rename"
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s %s", e.Kind, e.Op, e.Path)
	}
	return fmt.Sprintf("%s: %s %s: %v", e.Kind, e.Op, e.Path, e.Err)
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

func ioError(op, path string, err error) error {
	return &Error{Kind: ErrIO, Op: op, Path: path, Err: err}
}

func packError(op, path string, err error) error {
	return &Error{Kind: ErrPackaging, Op: op, Path: path, Err: err}
}
