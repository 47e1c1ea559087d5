package commands

import (
	"context"
	"fmt"

	"github.com/josephlewis42/forksh/core/engine"
)

// Printenv prints the environment, or the value of one variable.
func Printenv(_ context.Context, inv *engine.Invocation) int {
	switch len(inv.Argv) {
	case 1:
		for _, entry := range inv.Vars.Environ() {
			fmt.Fprintln(inv.Stdout, entry)
		}
		return 0

	case 2:
		val, ok := inv.Vars.Env.Lookup(inv.Argv[1])
		if !ok {
			return 1
		}
		fmt.Fprintln(inv.Stdout, val)
		return 0

	default:
		fmt.Fprintln(inv.Stderr, "printenv: Too many arguments.")
		return 1
	}
}

func init() {
	addBuiltin(&Builtin{Name: "printenv", Short: "Print the environment.", Main: Printenv})
}
