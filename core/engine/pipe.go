package engine

import (
	"os"

	"golang.org/x/sys/unix"
)

// Pipe is an anonymous pipe shared by two pipeline stages.
type Pipe struct {
	R *os.File
	W *os.File
}

// MakePipe creates a pipe with both ends close-on-exec. Binding an end onto
// a child's 0 or 1 is what makes it inheritable.
func MakePipe() (*Pipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return nil, &Error{Op: "pipe", Err: ErrPipe}
	}

	return &Pipe{
		R: os.NewFile(uintptr(fds[0]), "|0"),
		W: os.NewFile(uintptr(fds[1]), "|1"),
	}, nil
}

// Close closes whichever ends are still open. It is safe to call more than
// once.
func (p *Pipe) Close() {
	if p == nil {
		return
	}
	if p.R != nil {
		p.R.Close()
		p.R = nil
	}
	if p.W != nil {
		p.W.Close()
		p.W = nil
	}
}
