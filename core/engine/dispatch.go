package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/josephlewis42/forksh/core/expand"
	"github.com/josephlewis42/forksh/core/shell"
)

// Execute runs n. pipeIn and pipeOut are the pipes shared with neighboring
// pipeline stages, if any; doGlob enables filename globbing of arguments.
//
// An error aborts the rest of the command line.
func (e *Engine) Execute(ctx context.Context, n *shell.Node, want TTYRequest, pipeIn, pipeOut *Pipe, doGlob bool) error {
	if n == nil || e.exitCode != nil {
		return nil
	}
	if n.Flags.Background {
		want = TTYBackground
	}

	var err error
	switch n.Kind {
	case shell.KindSimple, shell.KindSubshell:
		err = e.command(ctx, n, want, pipeIn, pipeOut, doGlob)
	case shell.KindPipe:
		err = e.pipeline(ctx, n, want, pipeIn, pipeOut, doGlob)
	case shell.KindSequence:
		err = e.sequence(ctx, n, want, doGlob)
	case shell.KindAnd, shell.KindOr:
		err = e.conditional(ctx, n, want, doGlob)
	default:
		err = &Error{Op: "execute", Err: fmt.Errorf("unknown node kind %v", n.Kind)}
	}

	if e.ctx.bound && !n.Flags.Repeat {
		e.doneDescriptors()
	}
	return err
}

func (e *Engine) pipeline(ctx context.Context, n *shell.Node, want TTYRequest, pipeIn, pipeOut *Pipe, doGlob bool) error {
	pv, err := MakePipe()
	if err != nil {
		return err
	}
	defer pv.Close()

	writer, reader := n.Left, n.Right
	writer.Flags.Merge(n.Flags.ForPipeWriter())
	reader.Flags.Merge(n.Flags.ForPipeReader())

	if e.opts.PipeOrder == LastStageLeads {
		if err := e.Execute(ctx, reader, want, pv, pipeOut, doGlob); err != nil {
			return err
		}
		return e.Execute(ctx, writer, want, pipeIn, pv, doGlob)
	}

	if err := e.Execute(ctx, writer, want, pipeIn, pv, doGlob); err != nil {
		return err
	}
	return e.Execute(ctx, reader, want, pv, pipeOut, doGlob)
}

func (e *Engine) sequence(ctx context.Context, n *shell.Node, want TTYRequest, doGlob bool) error {
	if left := n.Left; left != nil {
		left.Flags.Merge(n.Flags.ForListLeft())
		if err := e.Execute(ctx, left, want, nil, nil, doGlob); err != nil {
			return err
		}
		if left.Flags.Background && n.Right != nil && e.jobs.Group() != 0 {
			e.jobs.DeferBackground(e.ctx.job)
		}
	}

	if right := n.Right; right != nil {
		right.Flags.Merge(n.Flags.ForListRight())
		return e.Execute(ctx, right, want, nil, nil, doGlob)
	}
	return nil
}

func (e *Engine) conditional(ctx context.Context, n *shell.Node, want TTYRequest, doGlob bool) error {
	n.Left.Flags.Merge(n.Flags.ForListLeft())
	if err := e.Execute(ctx, n.Left, want, nil, nil, doGlob); err != nil {
		return err
	}

	ok := e.vars.Status() == 0
	if ok != (n.Kind == shell.KindAnd) {
		return nil
	}

	n.Right.Flags.Merge(n.Flags.ForListRight())
	return e.Execute(ctx, n.Right, want, nil, nil, doGlob)
}

// command runs a simple command or a subshell.
func (e *Engine) command(ctx context.Context, n *shell.Node, want TTYRequest, pipeIn, pipeOut *Pipe, doGlob bool) error {
	var builtin Builtin
	if n.Kind == shell.KindSimple {
		if !n.Flags.Repeat {
			if err := e.expandArgv(n, doGlob); err != nil {
				return err
			}
		}
		if len(n.Argv) == 0 {
			return nil
		}
	}

	e.setStatus(0)

	if n.Kind == shell.KindSimple {
		if err := StripModifiers(n); err != nil {
			return err
		}
		if b, ok := e.builtins.Lookup(n.Argv[0]); ok {
			builtin = b
		}
		if builtin != nil && (n.Argv[0] == "cd" || n.Argv[0] == "chdir") {
			n.Flags.Nice = false
		}
	}

	if e.opts.NoExec && (builtin == nil || !builtin.ControlFlow()) {
		return nil
	}
	if e.opts.PipeOrder == LastStageLeads && n.Flags.PipeIn {
		n.Flags.NoFork = false
	}

	strategy := SelectStrategy(n, builtin != nil, e.caps())
	e.log.Printf("%s %q: %s [%s]", n.Kind, n.Argv, strategy, n.Flags)

	switch strategy {
	case RunInPlace:
		return e.runInPlace(ctx, n, builtin, pipeIn, pipeOut)
	case ExecInPlace:
		return e.execInPlace(ctx, n, pipeIn, pipeOut, doGlob)
	default:
		return e.fork(ctx, n, strategy, want, pipeIn, pipeOut, doGlob)
	}
}

// expandArgv replaces the words of n with their expansions. Words that
// expand to nothing are dropped unless they were quoted.
func (e *Engine) expandArgv(n *shell.Node, doGlob bool) error {
	e.ctx.scratch = e.ctx.scratch[:0]
	var fields []expand.Field
	for _, word := range n.Argv {
		f, err := e.expander.Expand(word)
		if err != nil {
			return &Error{Op: "expand", Path: word, Err: err}
		}
		if f.Text == "" && !strings.ContainsAny(word, `"'`) {
			continue
		}
		fields = append(fields, f)
	}

	if doGlob {
		words, err := e.expander.Glob(fields)
		if errors.Is(err, expand.ErrNoMatch) {
			return &Error{Op: "glob", Path: n.Name(), Err: ErrNoMatch}
		}
		if err != nil {
			return &Error{Op: "glob", Path: n.Name(), Err: err}
		}
		e.ctx.scratch = append(e.ctx.scratch, words...)
	} else {
		e.ctx.scratch = append(e.ctx.scratch, expand.Texts(fields)...)
	}

	n.Argv = append([]string(nil), e.ctx.scratch...)
	e.ctx.scratch = e.ctx.scratch[:0]
	return nil
}

func (e *Engine) runInPlace(ctx context.Context, n *shell.Node, builtin Builtin, pipeIn, pipeOut *Pipe) error {
	fds, err := e.bindDescriptors(n, pipeIn, pipeOut)
	if err != nil {
		return err
	}

	status := e.invoke(ctx, builtin, n, fds)
	e.setStatus(status)
	e.events.Builtin(n.Argv, status)
	return nil
}

func (e *Engine) invoke(ctx context.Context, builtin Builtin, n *shell.Node, fds Triple) int {
	return builtin.Run(ctx, &Invocation{
		Argv:   n.Argv,
		Node:   n,
		Stdin:  fds.In,
		Stdout: fds.Out,
		Stderr: fds.Err,
		Vars:   e.vars,
		Shell:  e,
	})
}

func (e *Engine) notFound(name string) {
	fmt.Fprintf(e.ctx.std.Err, "%s: %v\n", name, ErrNotFound)
	e.events.NotFound(name)
}
