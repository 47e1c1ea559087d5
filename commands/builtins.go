package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/josephlewis42/forksh/core/engine"
)

// PrintBuiltins writes every builtin name with its description. Control
// flow builtins are highlighted.
func PrintBuiltins(w io.Writer, cp *ColorPrinter) {
	width := 0
	for _, name := range BuiltinNames() {
		if len(name) > width {
			width = len(name)
		}
	}

	for _, name := range BuiltinNames() {
		b := AllBuiltins[name]
		padded := name + strings.Repeat(" ", width-len(name))
		if b.Flow {
			padded = cp.Sprintf(ColorBoldCyan, "%s", padded)
		}
		fmt.Fprintf(w, "%s  %s\n", padded, b.Short)
	}
}

// Builtins lists the builtins.
func Builtins(_ context.Context, inv *engine.Invocation) int {
	cmd := &SimpleCommand{
		Use:   "builtins [--color=auto]",
		Short: "List the commands built into the shell.",
	}
	var cp ColorPrinter
	cp.Init(cmd.Flags(), inv.Stdout)

	return cmd.Run(inv, func() int {
		PrintBuiltins(inv.Stdout, &cp)
		return 0
	})
}

func init() {
	addBuiltin(&Builtin{Name: "builtins", Short: "List the commands built into the shell.", Main: Builtins})
}
