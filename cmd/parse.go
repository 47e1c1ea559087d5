package cmd

import (
	"fmt"
	"strings"

	"github.com/josephlewis42/forksh/core/shell"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

var parseYAML bool

// parseCmd shows the command tree of a line
var parseCmd = &cobra.Command{
	Use:   "parse <command line>",
	Short: "Show how a command line is parsed.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		node, err := shell.Parse(strings.Join(args, " "))
		if err != nil {
			return err
		}
		if node == nil {
			return nil
		}

		if !parseYAML {
			fmt.Fprint(cmd.OutOrStdout(), node.String())
			return nil
		}

		out, err := yaml.Marshal(node)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	parseCmd.Flags().BoolVar(&parseYAML, "yaml", false, "print the tree as YAML")
	rootCmd.AddCommand(parseCmd)
}
