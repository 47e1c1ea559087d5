package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"syscall"

	"github.com/josephlewis42/forksh/core/shell"
	"github.com/josephlewis42/forksh/core/vars"
	"golang.org/x/sys/unix"
)

// fork starts n in a new process and, if n is the last stage to be started,
// waits for its job.
func (e *Engine) fork(ctx context.Context, n *shell.Node, strategy Strategy, want TTYRequest, pipeIn, pipeOut *Pipe, doGlob bool) error {
	fds, err := e.bindDescriptors(n, pipeIn, pipeOut)
	if err != nil {
		return err
	}

	mode := modeSubshell
	var path string
	if n.Kind == shell.KindSimple {
		mode = modeBuiltin
		if _, ok := e.builtins.Lookup(n.Argv[0]); !ok {
			mode = modeExec
			path, err = LookPath(e.fs, e.vars.Get(vars.EnvPath), n.Argv[0])
			if err != nil {
				e.notFound(n.Argv[0])
				if werr := e.afterSpawn(ctx, n, pipeIn, pipeOut); werr != nil {
					return werr
				}
				e.setStatus(1)
				return nil
			}
		}
	}

	e.holdSignals()

	pgid := e.jobs.Group()
	attr := &syscall.SysProcAttr{}
	if want != TTYIgnore {
		attr.Setpgid = true
		attr.Pgid = pgid
	}

	var pid int
	if strategy == LightFork {
		pid, err = e.lightFork(path, n.Argv, fds, attr)
	} else {
		pid, err = e.heavyFork(childRequest{
			Mode:       mode,
			Node:       n,
			Path:       path,
			Shell:      e.vars.ShellList(),
			Env:        e.vars.Environ(),
			Options:    e.opts,
			JobControl: e.jobControl,
			DoGlob:     doGlob,
		}, fds, attr)
	}
	if err != nil {
		e.log.Printf("fork %q: %v", n.Argv, err)
		return &Error{Op: "fork", Err: ErrNoProcess}
	}

	group := pgid
	if want == TTYIgnore && group == 0 {
		// Without a group of its own the process stays in the shell's.
		group = unix.Getpgrp()
	}
	e.ctx.job = e.jobs.Register(pid, group, n)
	if want == TTYForeground && pgid == 0 {
		if err := e.term.SetForeground(pid); err != nil {
			e.log.Printf("tcsetpgrp %d: %v", pid, err)
		}
	}
	e.events.Spawn(strategy.String(), pid, n.Argv)

	return e.afterSpawn(ctx, n, pipeIn, pipeOut)
}

// afterSpawn runs in the shell once a stage has been started. The stage
// started second of the two sharing a pipe closes the shell's copy, and the
// stage started last waits for the whole job.
func (e *Engine) afterSpawn(ctx context.Context, n *shell.Node, pipeIn, pipeOut *Pipe) error {
	if e.opts.PipeOrder == LastStageLeads {
		if n.Flags.PipeOut {
			pipeOut.Close()
		}
		if n.Flags.PipeIn {
			return nil
		}
	} else {
		if n.Flags.PipeIn {
			pipeIn.Close()
		}
		if n.Flags.PipeOut {
			return nil
		}
	}

	e.releaseSignals()
	if n.Flags.Background || e.ctx.job == 0 || e.jobs.Group() == 0 {
		return nil
	}
	return e.waitForeground(ctx, n)
}

func (e *Engine) waitForeground(ctx context.Context, n *shell.Node) error {
	id := e.ctx.job
	e.ctx.job = 0

	res, err := e.jobs.WaitForeground(ctx, id)
	if e.jobControl {
		if rerr := e.term.Restore(); rerr != nil {
			e.log.Printf("restoring terminal: %v", rerr)
		}
	}
	if err != nil {
		return err
	}

	e.setStatus(res.Status)
	if res.Timed {
		fmt.Fprintln(e.ctx.std.Err, res.TimeReport())
	}
	e.events.Exit(n.Name(), res.Status)
	return nil
}

func (e *Engine) lightFork(path string, argv []string, fds Triple, attr *syscall.SysProcAttr) (int, error) {
	saved := e.ctx.save()
	defer e.ctx.restore(saved)

	return syscall.ForkExec(path, argv, &syscall.ProcAttr{
		Env:   e.vars.Environ(),
		Files: fds.files(),
		Sys:   attr,
	})
}

// heavyFork re-executes the shell with req on descriptor 3. The child sets
// itself up from req before running the command.
func (e *Engine) heavyFork(req childRequest, fds Triple, attr *syscall.SysProcAttr) (int, error) {
	pv, err := MakePipe()
	if err != nil {
		return 0, err
	}

	files := append(fds.files(), pv.R.Fd())
	env := append(e.vars.Environ(), childEnv+"=1")
	pid, err := syscall.ForkExec(e.self, []string{"forksh"}, &syscall.ProcAttr{
		Env:   env,
		Files: files,
		Sys:   attr,
	})
	pv.R.Close()
	pv.R = nil
	if err != nil {
		pv.Close()
		return 0, err
	}

	w := pv.W
	pv.W = nil
	go func() {
		defer w.Close()
		if err := json.NewEncoder(w).Encode(req); err != nil {
			e.log.Printf("sending request to %d: %v", pid, err)
		}
	}()
	return pid, nil
}

// execInPlace replaces the current process, which must be a forked shell,
// with n.
func (e *Engine) execInPlace(ctx context.Context, n *shell.Node, pipeIn, pipeOut *Pipe, doGlob bool) error {
	fds, err := e.bindDescriptors(n, pipeIn, pipeOut)
	if err != nil {
		return err
	}
	e.releaseSignals()

	if n.Kind == shell.KindSubshell {
		if err := installStdio(fds); err != nil {
			return err
		}
		status, err := e.subshell(ctx, n, doGlob)
		if err != nil && !errors.As(err, new(*ExitError)) {
			e.report(err)
			status = 1
		}
		return &ExitError{Status: status}
	}

	path, err := LookPath(e.fs, e.vars.Get(vars.EnvPath), n.Argv[0])
	if err != nil {
		e.notFound(n.Argv[0])
		return &ExitError{Status: 1}
	}
	if err := installStdio(fds); err != nil {
		return err
	}

	err = unix.Exec(path, n.Argv, e.vars.Environ())
	fmt.Fprintf(e.ctx.std.Err, "%s: %v\n", n.Argv[0], err)
	return &ExitError{Status: 1}
}

// subshell runs the body of n in this process, which must be a forked shell.
func (e *Engine) subshell(ctx context.Context, n *shell.Node, doGlob bool) (int, error) {
	std, err := dupStdio()
	if err != nil {
		return 1, err
	}
	e.ctx.std = std
	e.ctx.bound = false
	e.ctx.live = Triple{}

	body := n.Body
	if body == nil {
		return 0, nil
	}
	body.Flags.NoInterrupt = body.Flags.NoInterrupt || n.Flags.NoInterrupt

	err = e.Execute(ctx, body, TTYIgnore, nil, nil, doGlob)
	e.releaseSignals()
	if e.jobs.Group() != 0 {
		e.jobs.DeferBackground(e.ctx.job)
	}

	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Status, err
	}
	return e.vars.Status(), err
}
