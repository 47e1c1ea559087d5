package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/josephlewis42/forksh/core/engine"
	"github.com/josephlewis42/forksh/core/shell"
)

// Jobs lists the job table, with process group ids when given -l.
func Jobs(_ context.Context, inv *engine.Invocation) int {
	cmd := &SimpleCommand{
		Use:   "jobs [-l]",
		Short: "List active jobs.",
	}
	long := cmd.Flags().Bool('l', "also list process group ids")

	return cmd.Run(inv, func() int {
		inv.Shell.ListJobs(inv.Stdout, *long)
		return 0
	})
}

// Repeat runs a command count times. Redirections on the repeat line are
// opened once and shared by every run.
func Repeat(ctx context.Context, inv *engine.Invocation) int {
	if len(inv.Argv) < 3 {
		fmt.Fprintln(inv.Stderr, "repeat: Too few arguments.")
		return 1
	}
	count, err := strconv.Atoi(inv.Argv[1])
	if err != nil || count < 0 {
		fmt.Fprintln(inv.Stderr, "repeat: Badly formed number.")
		return 1
	}

	if err := inv.Shell.Repeat(ctx, shell.NewSimple(inv.Argv[2:]...), count); err != nil {
		fmt.Fprintf(inv.Stderr, "repeat: %v\n", err)
		return 1
	}
	return inv.Vars.Status()
}

func init() {
	addBuiltin(&Builtin{Name: "jobs", Short: "List active jobs.", Main: Jobs})
	addBuiltin(&Builtin{Name: "repeat", Short: "Run a command several times.", Main: Repeat})
}
