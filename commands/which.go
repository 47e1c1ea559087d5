package commands

import (
	"context"
	"fmt"

	"github.com/josephlewis42/forksh/core/engine"
	"github.com/josephlewis42/forksh/core/vars"
	"github.com/spf13/afero"
)

// Which reports how each name would be run: as a builtin or from a path.
func Which(_ context.Context, inv *engine.Invocation) int {
	cmd := &SimpleCommand{
		Use:   "which command...",
		Short: "Locate a command.",
	}

	return cmd.Run(inv, func() int {
		names := cmd.Flags().Args()
		if len(names) == 0 {
			fmt.Fprintln(inv.Stderr, "which: Too few arguments.")
			return 1
		}

		fsys := afero.NewOsFs()
		status := 0
		for _, name := range names {
			if _, ok := AllBuiltins[name]; ok {
				fmt.Fprintf(inv.Stdout, "%s: shell built-in command.\n", name)
				continue
			}

			found, err := engine.LookPath(fsys, inv.Vars.Get(vars.EnvPath), name)
			if err != nil {
				fmt.Fprintf(inv.Stdout, "%s: Command not found.\n", name)
				status = 1
				continue
			}
			fmt.Fprintln(inv.Stdout, found)
		}
		return status
	})
}

func init() {
	addBuiltin(&Builtin{Name: "which", Short: "Locate a command.", Main: Which})
}
