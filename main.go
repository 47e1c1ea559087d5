package main

import (
	"github.com/josephlewis42/forksh/cmd"
	"github.com/josephlewis42/forksh/commands"
	"github.com/josephlewis42/forksh/core/engine"
)

func main() {
	// Processes forked to run builtins and subshells re-enter here.
	engine.RunChildIfRequested(commands.ChildSetup)

	cmd.Execute()
}
