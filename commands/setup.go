package commands

import (
	"context"
	"io"
	"log"
	"os"

	"github.com/josephlewis42/forksh/core/engine"
	"github.com/josephlewis42/forksh/core/jobs"
	"github.com/josephlewis42/forksh/core/logger"
	"github.com/josephlewis42/forksh/core/tty"
	"github.com/josephlewis42/forksh/core/vars"
)

// Environment is what an engine running these builtins is built from.
type Environment struct {
	Options  engine.Options
	Vars     *vars.Vars
	Terminal *tty.Terminal
	Events   *logger.SessionLogger
	Log      *log.Logger

	Stdin  *os.File
	Stdout *os.File
	Stderr *os.File
}

// NewEngine creates an engine with the builtins of this package and a job
// table reaping its children until ctx is done.
func NewEngine(ctx context.Context, env Environment) (*engine.Engine, *jobs.Table, error) {
	if env.Log == nil {
		env.Log = log.New(io.Discard, "", 0)
	}
	stderr := env.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	mask := &tty.Mask{}
	table := jobs.NewTable(mask, stderr)
	table.Log = env.Log
	table.Start(ctx)

	e, err := engine.New(env.Options, engine.Deps{
		Vars:     env.Vars,
		Builtins: Table{},
		Jobs:     table,
		Mask:     mask,
		Terminal: env.Terminal,
		Events:   env.Events,
		Log:      env.Log,
		Stdin:    env.Stdin,
		Stdout:   env.Stdout,
		Stderr:   env.Stderr,
	})
	if err != nil {
		return nil, nil, err
	}
	return e, table, nil
}

// ChildSetup builds the engine of a forked shell.
func ChildSetup(opts engine.Options, v *vars.Vars) (*engine.Engine, error) {
	e, _, err := NewEngine(context.Background(), Environment{Options: opts, Vars: v})
	return e, err
}

var _ engine.Setup = ChildSetup
