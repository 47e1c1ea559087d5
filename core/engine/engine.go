// Package engine executes parsed command trees: it wires descriptors, picks
// how each command is started and waits for foreground jobs.
package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"syscall"

	"github.com/fatih/color"
	"github.com/josephlewis42/forksh/core/expand"
	"github.com/josephlewis42/forksh/core/jobs"
	"github.com/josephlewis42/forksh/core/logger"
	"github.com/josephlewis42/forksh/core/shell"
	"github.com/josephlewis42/forksh/core/tty"
	"github.com/josephlewis42/forksh/core/vars"
	"github.com/spf13/afero"
	"golang.org/x/term"
)

// TTYRequest says what a command wants from the terminal.
type TTYRequest int

const (
	// TTYIgnore runs the command in the shell's process group.
	TTYIgnore TTYRequest = -1
	// TTYBackground gives the command its own process group.
	TTYBackground TTYRequest = 0
	// TTYForeground also hands the command the terminal.
	TTYForeground TTYRequest = 1
)

// Builtin is a command implemented by the shell.
type Builtin interface {
	// ControlFlow builtins run even when commands are only checked.
	ControlFlow() bool
	Run(ctx context.Context, inv *Invocation) int
}

// Builtins finds builtins by name.
type Builtins interface {
	Lookup(name string) (Builtin, bool)
}

// Invocation is a single run of a builtin.
type Invocation struct {
	Argv   []string
	Node   *shell.Node
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Vars   *vars.Vars
	Shell  Shell
}

// Shell is the part of the engine builtins may call back into.
type Shell interface {
	// Exit asks the shell to exit with code once the current line is done.
	Exit(code int)
	// Repeat executes n count times, reusing the current descriptors.
	Repeat(ctx context.Context, n *shell.Node, count int) error
	// ListJobs prints the job table.
	ListJobs(w io.Writer, long bool)
}

// JobControl registers started processes and waits for them.
type JobControl interface {
	Group() int
	Register(pid, pgid int, n *shell.Node) jobs.ID
	WaitForeground(ctx context.Context, id jobs.ID) (jobs.Result, error)
	DeferBackground(id jobs.ID)
}

// Expander expands and globs command words.
type Expander interface {
	Expand(word string) (expand.Field, error)
	Glob(fields []expand.Field) ([]string, error)
}

// Options are the settings an engine is started with. They are handed to
// forked shells.
type Options struct {
	PipeOrder PipeOrder `json:"pipe_order"`
	LightFork bool      `json:"light_fork"`
	// NoExec only checks commands, running nothing but control flow.
	NoExec bool `json:"no_exec"`
}

// Deps are the collaborators of an engine. Zero fields get defaults.
type Deps struct {
	Vars     *vars.Vars
	Builtins Builtins
	Jobs     JobControl
	Expander Expander
	Terminal *tty.Terminal
	// Mask must be the mask Jobs reaps through.
	Mask   *tty.Mask
	Fs     afero.Fs
	Events *logger.SessionLogger
	Log    *log.Logger

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// Engine executes command trees. It is not safe for concurrent use.
type Engine struct {
	opts       Options
	vars       *vars.Vars
	builtins   Builtins
	jobs       JobControl
	expander   Expander
	term       *tty.Terminal
	mask       *tty.Mask
	fs         afero.Fs
	events     *logger.SessionLogger
	log        *log.Logger
	errColor   *color.Color
	self       string
	jobControl bool
	child      bool

	ctx      executionContext
	exitCode *int
}

type noBuiltins struct{}

func (noBuiltins) Lookup(string) (Builtin, bool) { return nil, false }

// New creates an engine.
func New(opts Options, deps Deps) (*Engine, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		opts:     opts,
		vars:     deps.Vars,
		builtins: deps.Builtins,
		jobs:     deps.Jobs,
		expander: deps.Expander,
		term:     deps.Terminal,
		mask:     deps.Mask,
		fs:       deps.Fs,
		events:   deps.Events,
		log:      deps.Log,
		self:     self,
		ctx: executionContext{
			std: Triple{In: deps.Stdin, Out: deps.Stdout, Err: deps.Stderr},
		},
	}

	if e.ctx.std.In == nil {
		e.ctx.std.In = os.Stdin
	}
	if e.ctx.std.Out == nil {
		e.ctx.std.Out = os.Stdout
	}
	if e.ctx.std.Err == nil {
		e.ctx.std.Err = os.Stderr
	}
	if e.vars == nil {
		e.vars = vars.New(os.Environ())
	}
	if e.builtins == nil {
		e.builtins = noBuiltins{}
	}
	if e.fs == nil {
		e.fs = afero.NewOsFs()
	}
	if e.expander == nil {
		e.expander = &expand.Expander{Vars: e.vars, Fs: e.fs}
	}
	if e.term == nil {
		e.term = tty.Disabled()
	}
	if e.mask == nil {
		e.mask = &tty.Mask{}
	}
	if e.jobs == nil {
		table := jobs.NewTable(e.mask, e.ctx.std.Err)
		table.Start(context.Background())
		e.jobs = table
	}
	if e.events == nil {
		e.events = logger.Discard().NewSession()
	}
	if e.log == nil {
		e.log = log.New(io.Discard, "", 0)
	}
	e.jobControl = e.term.Enabled()

	e.errColor = color.New(color.FgRed)
	if !term.IsTerminal(int(e.ctx.std.Err.Fd())) {
		e.errColor.DisableColor()
	}
	return e, nil
}

// Vars returns the engine's variables.
func (e *Engine) Vars() *vars.Vars {
	return e.vars
}

// Status returns the status of the last command.
func (e *Engine) Status() int {
	return e.vars.Status()
}

// Exit implements Shell.
func (e *Engine) Exit(code int) {
	e.exitCode = &code
}

// ExitRequested reports whether a builtin asked the shell to exit.
func (e *Engine) ExitRequested() (int, bool) {
	if e.exitCode == nil {
		return 0, false
	}
	return *e.exitCode, true
}

// ListJobs implements Shell.
func (e *Engine) ListJobs(w io.Writer, long bool) {
	if l, ok := e.jobs.(interface{ List(io.Writer, bool) }); ok {
		l.List(w, long)
	}
}

// Repeat implements Shell.
func (e *Engine) Repeat(ctx context.Context, n *shell.Node, count int) error {
	n.Flags.Repeat = true
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Execute(ctx, n, TTYIgnore, nil, nil, true); err != nil {
			return err
		}
	}
	return nil
}

// Run executes a whole command line. Errors that abort the line are printed
// to the shell's error output, set the status to 1 and are returned.
func (e *Engine) Run(ctx context.Context, n *shell.Node) error {
	if n == nil {
		return nil
	}

	want := TTYIgnore
	if e.jobControl {
		want = TTYForeground
	}

	err := e.Execute(ctx, n, want, nil, nil, true)
	e.releaseSignals()
	if e.ctx.bound {
		e.doneDescriptors()
	}

	// A background job at the end of the line is still under construction.
	if e.jobs.Group() != 0 {
		e.jobs.DeferBackground(e.ctx.job)
	}
	e.ctx.job = 0

	var exit *ExitError
	switch {
	case err == nil:
	case errors.As(err, &exit):
	case errors.Is(err, jobs.ErrInterrupted), errors.Is(err, context.Canceled):
		e.setStatus(128 + int(syscall.SIGINT))
	default:
		e.report(err)
		e.setStatus(1)
	}
	return err
}

func (e *Engine) report(err error) {
	e.errColor.Fprintln(e.ctx.std.Err, err.Error())
	var ee *Error
	if errors.As(err, &ee) {
		e.events.Error(ee.Op, err)
	} else {
		e.events.Error("execute", err)
	}
}

func (e *Engine) setStatus(code int) {
	e.vars.SetStatus(code)
}

func (e *Engine) caps() Capabilities {
	return Capabilities{LightFork: e.opts.LightFork, ExecInPlace: e.child}
}

// holdSignals blocks SIGCHLD handling until releaseSignals. Every process a
// node starts is registered before any of them can be reaped.
func (e *Engine) holdSignals() {
	if !e.ctx.holding {
		e.mask.Block(syscall.SIGCHLD)
		e.ctx.holding = true
	}
}

func (e *Engine) releaseSignals() {
	if e.ctx.holding {
		e.mask.Unblock(syscall.SIGCHLD)
		e.ctx.holding = false
	}
}
