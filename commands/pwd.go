package commands

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/josephlewis42/forksh/core/engine"
	"github.com/josephlewis42/forksh/core/vars"
)

// Pwd prints the working directory.
func Pwd(_ context.Context, inv *engine.Invocation) int {
	flags := flag.NewFlagSet("pwd", flag.ContinueOnError)
	flags.SetOutput(inv.Stderr)
	if err := flags.Parse(inv.Argv[1:]); err != nil {
		fmt.Fprintln(inv.Stderr, "Usage: pwd")
		fmt.Fprintln(inv.Stderr, "Print the name of the current working directory.")
		return 1
	}

	pwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(inv.Stderr, "pwd: %v\n", err)
		return 1
	}
	fmt.Fprintln(inv.Stdout, pwd)

	return 0
}

// Cd changes the working directory, to $HOME without an argument, and
// updates cwd and PWD.
func Cd(_ context.Context, inv *engine.Invocation) int {
	args := inv.Argv
	switch len(args) {
	case 1:
		args = append(args, inv.Vars.Get(vars.EnvHome))
		fallthrough
	case 2:
		if err := os.Chdir(args[1]); err != nil {
			fmt.Fprintf(inv.Stderr, "%s: %v\n", args[1], unwrapPathError(err))
			return 1
		}
	default:
		fmt.Fprintf(inv.Stderr, "%s: Too many arguments.\n", args[0])
		return 1
	}

	SyncCwd(inv.Vars)
	return 0
}

// SyncCwd sets cwd and PWD to the process working directory.
func SyncCwd(v *vars.Vars) {
	if wd, err := os.Getwd(); err == nil {
		v.Shell.Set(vars.Cwd, wd)
		v.Env.Set(vars.EnvPWD, wd)
	}
}

func unwrapPathError(err error) error {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err
	}
	return err
}

func init() {
	addBuiltin(&Builtin{Name: "pwd", Short: "Print the working directory.", Main: Pwd})
	addBuiltin(&Builtin{Name: "cd", Short: "Change the working directory.", Main: Cd}, "chdir")
}
