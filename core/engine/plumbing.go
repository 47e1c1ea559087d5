package engine

import (
	"io"
	"os"

	"github.com/josephlewis42/forksh/core/shell"
	"github.com/josephlewis42/forksh/core/vars"
	"golang.org/x/sys/unix"
)

// bindDescriptors computes the standard input, output and error of n.
//
// Input comes from, in order of preference, a here document, an input
// redirection, the pipe from the previous stage, /dev/null for background
// commands without job control, or the shell's input. Output comes from an
// output redirection, the pipe to the next stage or the shell's output.
// Errors follow output when merged.
//
// Once bound the triple is reused until doneDescriptors so repeated
// executions of one node don't reopen their files.
func (e *Engine) bindDescriptors(n *shell.Node, pipeIn, pipeOut *Pipe) (Triple, error) {
	if e.ctx.bound {
		return e.ctx.live, nil
	}

	t, err := e.openTriple(n, pipeIn, pipeOut)
	if err != nil {
		e.closeOwned()
		return Triple{}, err
	}

	e.ctx.live = t
	e.ctx.bound = true
	return t, nil
}

func (e *Engine) openTriple(n *shell.Node, pipeIn, pipeOut *Pipe) (t Triple, err error) {
	switch {
	case n.In != nil && n.In.IsHeredoc:
		if t.In, err = e.heredoc(n.In.Heredoc); err != nil {
			return t, err
		}
	case n.In != nil:
		path, err := e.resolveTarget(n, n.In.Word)
		if err != nil {
			return t, err
		}
		f, err := os.Open(path)
		if err != nil {
			return t, osError("open", path, err)
		}
		e.own(f)
		e.events.Redirect(path, "read")
		t.In = f
	case n.Flags.PipeIn && pipeIn != nil:
		t.In = pipeIn.R
	case n.Flags.NoInterrupt && !e.jobControl:
		f, err := os.Open(os.DevNull)
		if err != nil {
			return t, osError("open", os.DevNull, err)
		}
		e.own(f)
		t.In = f
	default:
		t.In = e.ctx.std.In
	}

	switch {
	case n.Out != nil:
		path, err := e.resolveTarget(n, n.Out.Word)
		if err != nil {
			return t, err
		}
		f, err := e.openOutput(path, n.Flags)
		if err != nil {
			return t, err
		}
		e.own(f)
		t.Out = f
	case n.Flags.PipeOut && pipeOut != nil:
		t.Out = pipeOut.W
	default:
		t.Out = e.ctx.std.Out
	}

	if n.Flags.MergeStderr {
		t.Err = t.Out
	} else {
		t.Err = e.ctx.std.Err
	}
	return t, nil
}

// openOutput opens an output redirection target honoring append, the
// noclobber variable and the overwrite override.
func (e *Engine) openOutput(path string, f shell.Flags) (*os.File, error) {
	guarded := !f.Overwrite && e.vars.IsSet(vars.NoClobber)

	if f.Append {
		fd, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
		if err == nil {
			e.events.Redirect(path, "append")
			return fd, nil
		}
		if guarded {
			return nil, osError("open", path, err)
		}
	}

	if guarded {
		if st, err := os.Stat(path); err == nil && st.Mode()&os.ModeCharDevice == 0 {
			return nil, &Error{Op: "open", Path: path, Err: ErrFileExists}
		}
	}

	fd, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, osError("open", path, err)
	}
	e.events.Redirect(path, "write")
	return fd, nil
}

// heredoc writes text to an unlinked temporary file and returns it rewound.
func (e *Engine) heredoc(text string) (*os.File, error) {
	f, err := os.CreateTemp("", "forksh-heredoc-*")
	if err != nil {
		return nil, osError("heredoc", "", err)
	}
	e.own(f)
	os.Remove(f.Name())

	if _, err := io.WriteString(f, text); err != nil {
		return nil, osError("heredoc", "", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, osError("heredoc", "", err)
	}
	return f, nil
}

func (e *Engine) own(f *os.File) {
	e.ctx.owned = append(e.ctx.owned, f)
}

func (e *Engine) closeOwned() {
	for _, f := range e.ctx.owned {
		f.Close()
	}
	e.ctx.owned = nil
}

// doneDescriptors releases the current binding.
func (e *Engine) doneDescriptors() {
	e.closeOwned()
	e.ctx.live = Triple{}
	e.ctx.bound = false
}

// installStdio makes t the process's descriptors 0, 1 and 2, surviving exec.
func installStdio(t Triple) error {
	for i, f := range []*os.File{t.In, t.Out, t.Err} {
		fd := int(f.Fd())
		if fd == i {
			if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, 0); err != nil {
				return osError("dup", f.Name(), err)
			}
			continue
		}
		if err := unix.Dup3(fd, i, 0); err != nil {
			return osError("dup", f.Name(), err)
		}
	}
	return nil
}

// dupStdio copies descriptors 0, 1 and 2 to close-on-exec descriptors so
// they survive later rebinding of 0, 1 and 2.
func dupStdio() (Triple, error) {
	var out [3]*os.File
	for i, name := range []string{"stdin", "stdout", "stderr"} {
		fd, err := unix.FcntlInt(uintptr(i), unix.F_DUPFD_CLOEXEC, 10)
		if err != nil {
			return Triple{}, osError("dup", name, err)
		}
		out[i] = os.NewFile(uintptr(fd), name)
	}
	return Triple{In: out[0], Out: out[1], Err: out[2]}, nil
}
