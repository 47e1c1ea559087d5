package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/josephlewis42/forksh/core/engine"
)

// Exit asks the shell to exit with the given status, or the last status.
func Exit(_ context.Context, inv *engine.Invocation) int {
	code := inv.Vars.Status()
	switch len(inv.Argv) {
	case 1:
	case 2:
		n, err := strconv.Atoi(inv.Argv[1])
		if err != nil {
			fmt.Fprintln(inv.Stderr, "exit: Badly formed number.")
			return 1
		}
		code = n
	default:
		fmt.Fprintln(inv.Stderr, "exit: Expression Syntax.")
		return 1
	}

	inv.Shell.Exit(code)
	return code
}

func loopOnly(_ context.Context, inv *engine.Invocation) int {
	fmt.Fprintf(inv.Stderr, "%s: Not in while/foreach.\n", inv.Argv[0])
	return 1
}

func init() {
	addBuiltin(&Builtin{Name: "exit", Short: "Leave the shell.", Flow: true, Main: Exit})
	addBuiltin(&Builtin{Name: "break", Short: "Leave the enclosing loop.", Flow: true, Main: loopOnly})
	addBuiltin(&Builtin{Name: "continue", Short: "Continue the enclosing loop.", Flow: true, Main: loopOnly})
	addBuiltin(&Builtin{Name: "true", Short: "Do nothing, successfully.", Main: func(context.Context, *engine.Invocation) int { return 0 }}, ":")
	addBuiltin(&Builtin{Name: "false", Short: "Do nothing, unsuccessfully.", Main: func(context.Context, *engine.Invocation) int { return 1 }})
}
