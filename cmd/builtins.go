package cmd

import (
	"github.com/josephlewis42/forksh/commands"
	"github.com/spf13/cobra"
)

var builtinsColor string

// builtinsCmd lists the builtin commands
var builtinsCmd = &cobra.Command{
	Use:   "builtins",
	Short: "Show the commands built into the shell.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		commands.PrintBuiltins(out, commands.NewColorPrinter(builtinsColor, out))
		return nil
	},
}

func init() {
	builtinsCmd.Flags().StringVar(&builtinsColor, "color", "auto", "colorize the output (always|auto|never)")
	rootCmd.AddCommand(builtinsCmd)
}
