package engine

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/josephlewis42/forksh/core/expand"
)

var (
	ErrAmbiguous   = errors.New("Ambiguous.")
	ErrNoMatch     = expand.ErrNoMatch
	ErrFileExists  = errors.New("File exists.")
	ErrNoProcess   = errors.New("No more processes.")
	ErrPipe        = errors.New("Can't make pipe.")
	ErrBadNumber   = errors.New("Badly formed number.")
	ErrMissingName = errors.New("Missing name for redirect.")
	ErrNotFound    = errors.New("Command not found.")
)

// Error is an error that aborts the command line being executed.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// osError strips the operation and path an *fs.PathError repeats so the
// message reads "path: reason".
func osError(op, path string, err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		err = pe.Err
	}
	return &Error{Op: op, Path: path, Err: err}
}

// ExitError asks a forked shell process to exit with Status. It is only
// returned inside children of the shell.
type ExitError struct {
	Status int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Status)
}
