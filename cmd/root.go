package cmd

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/josephlewis42/forksh/commands"
	"github.com/josephlewis42/forksh/core/config"
	"github.com/josephlewis42/forksh/core/engine"
	"github.com/josephlewis42/forksh/core/logger"
	"github.com/josephlewis42/forksh/core/tty"
	"github.com/josephlewis42/forksh/core/vars"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	cfgPath     string
	commandFlag string
	noExecFlag  bool
	debugFlag   bool

	exitStatus int
)

// configDir is where the configuration lives, ~/.forksh unless --config is
// given.
func configDir() string {
	if cfgPath != "" {
		return cfgPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".forksh")
}

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(configDir())
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "forksh [-c command] [-n] [script]",
	Short: "A job control shell",
	Long: `forksh runs pipelines, command lists, subshells and background jobs
the way the C shell does, with noclobber and noambiguous redirections.

Without arguments it reads commands interactively, or from standard input
when that isn't a terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadConfig()
		if err != nil {
			return err
		}

		exitStatus, err = runShell(cmd, configuration, args)
		return err
	},
}

func runShell(cmd *cobra.Command, configuration *config.Configuration, args []string) (int, error) {
	ctx := context.Background()

	order, err := engine.ParsePipeOrder(configuration.PipeOrder)
	if err != nil {
		return 1, err
	}
	opts := engine.Options{
		PipeOrder: order,
		LightFork: configuration.LightFork,
		NoExec:    noExecFlag,
	}

	v := vars.New(os.Environ())
	if _, ok := v.Env.Lookup(vars.EnvPath); !ok {
		v.Env.Set(vars.EnvPath, configuration.DefaultPath())
	}
	v.SetBool(vars.NoClobber, configuration.NoClobber)
	v.SetBool(vars.NoAmbiguous, configuration.NoAmbiguous)
	v.SetStatus(0)
	commands.SyncCwd(v)

	logs := log.New(io.Discard, "", 0)
	if debugFlag {
		logs = log.New(cmd.ErrOrStderr(), "forksh: ", log.Lmicroseconds)
	}

	interactive := commandFlag == "" && len(args) == 0 && term.IsTerminal(int(os.Stdin.Fd()))
	terminal := tty.Disabled()
	if interactive {
		terminal = tty.Open(os.Stdin)
		if err := terminal.Acquire(); err != nil {
			logs.Printf("job control disabled: %v", err)
			terminal = tty.Disabled()
		}
	}

	eventLog, err := configuration.OpenEventLog()
	if err != nil {
		return 1, err
	}
	events := logger.Discard()
	if eventLog != nil {
		defer eventLog.Close()
		events = logger.NewJsonLinesLogRecorder(eventLog)
	}

	e, table, err := commands.NewEngine(ctx, commands.Environment{
		Options:  opts,
		Vars:     v,
		Terminal: terminal,
		Events:   events.NewSession(),
		Log:      logs,
	})
	if err != nil {
		return 1, err
	}

	switch {
	case commandFlag != "":
		return commands.RunScript(ctx, e, commandFlag, cmd.ErrOrStderr()), nil
	case len(args) == 1:
		src, err := os.ReadFile(args[0])
		if err != nil {
			return 1, err
		}
		return commands.RunScript(ctx, e, string(src), cmd.ErrOrStderr()), nil
	case !interactive:
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			return 1, err
		}
		return commands.RunScript(ctx, e, string(src), cmd.ErrOrStderr()), nil
	}

	// Keep interrupts from killing the shell between commands.
	signal.Notify(make(chan os.Signal, 1), os.Interrupt)

	sh, err := commands.NewShell(e, table, commands.ShellConfig{
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Interactive: true,
		HistoryFile: historyPath(configuration, v),
		Prompt:      configuration.Prompt,
		Log:         logs,
	})
	if err != nil {
		return 1, err
	}
	defer sh.Close()

	return sh.RunInteractive(ctx), nil
}

func historyPath(configuration *config.Configuration, v *vars.Vars) string {
	switch file := configuration.HistoryFile; {
	case file == "":
		return ""
	case filepath.IsAbs(file):
		return file
	default:
		return filepath.Join(v.Get(vars.EnvHome), file)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
	os.Exit(exitStatus)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config directory (default ~/.forksh)")
	rootCmd.Flags().StringVarP(&commandFlag, "command", "c", "", "run the command line and exit")
	rootCmd.Flags().BoolVarP(&noExecFlag, "noexec", "n", false, "parse commands without running them")
	rootCmd.Flags().BoolVar(&debugFlag, "debug", false, "log execution decisions to stderr")
}
