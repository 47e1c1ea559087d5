package commands

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"os/user"
	"strings"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/forksh/core/engine"
	"github.com/josephlewis42/forksh/core/jobs"
	"github.com/josephlewis42/forksh/core/shell"
	"github.com/josephlewis42/forksh/core/vars"
)

const DefaultPrompt = "%m:%~%# "

// ShellConfig configures the interactive loop.
type ShellConfig struct {
	Stdin       io.ReadCloser
	Stdout      io.Writer
	Stderr      io.Writer
	Interactive bool
	HistoryFile string
	// Prompt is used when the prompt variable isn't set.
	Prompt string
	Log    *log.Logger
}

// Shell reads command lines and hands them to an engine.
type Shell struct {
	Engine   *engine.Engine
	Jobs     *jobs.Table
	Readline *readline.Instance

	prompt string
	stdout io.Writer
	stderr io.Writer
	log    *log.Logger
}

func NewShell(e *engine.Engine, table *jobs.Table, cfg ShellConfig) (*Shell, error) {
	rlCfg := &readline.Config{
		Stdin:       readline.NewCancelableStdin(cfg.Stdin),
		Stdout:      cfg.Stdout,
		Stderr:      cfg.Stderr,
		HistoryFile: cfg.HistoryFile,
		FuncIsTerminal: func() bool {
			return cfg.Interactive
		},
	}

	if err := rlCfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return nil, err
	}

	s := &Shell{
		Engine:   e,
		Jobs:     table,
		Readline: rl,
		prompt:   cfg.Prompt,
		stdout:   cfg.Stdout,
		stderr:   cfg.Stderr,
		log:      cfg.Log,
	}
	if s.prompt == "" {
		s.prompt = DefaultPrompt
	}
	if s.log == nil {
		s.log = log.New(io.Discard, "", 0)
	}
	return s, nil
}

// Close releases the line editor.
func (s *Shell) Close() error {
	return s.Readline.Close()
}

// Prompt expands the prompt variable, or the configured prompt. %m is the
// short hostname, %M the full one, %n the user, %~ the working directory
// with the home directory shown as ~, %/ the working directory, %# is #
// for root and % otherwise, and %% is a percent sign.
func (s *Shell) Prompt() string {
	format, ok := s.Engine.Vars().Lookup(vars.Prompt)
	if !ok {
		format = s.prompt
	}
	return expandPrompt(format, s.Engine.Vars())
}

func expandPrompt(format string, v *vars.Vars) string {
	var sb strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' || i == len(format)-1 {
			sb.WriteByte(format[i])
			continue
		}

		i++
		switch format[i] {
		case 'm', 'M':
			host, _ := os.Hostname()
			if format[i] == 'm' {
				host, _, _ = strings.Cut(host, ".")
			}
			sb.WriteString(host)
		case 'n':
			if u, err := user.Current(); err == nil {
				sb.WriteString(u.Username)
			}
		case '~':
			cwd := currentDir(v)
			if home := v.Get(vars.EnvHome); home != "" && strings.HasPrefix(cwd, home) {
				cwd = "~" + strings.TrimPrefix(cwd, home)
			}
			sb.WriteString(cwd)
		case '/':
			sb.WriteString(currentDir(v))
		case '#':
			if os.Geteuid() == 0 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('%')
			}
		case '%':
			sb.WriteByte('%')
		default:
			sb.WriteByte('%')
			sb.WriteByte(format[i])
		}
	}
	return unescape(sb.String())
}

func currentDir(v *vars.Vars) string {
	if cwd := v.Get(vars.Cwd); cwd != "" {
		return cwd
	}
	wd, _ := os.Getwd()
	return wd
}

// RunInteractive reads and runs lines until end of input or exit, and
// returns the shell's exit status.
func (s *Shell) RunInteractive(ctx context.Context) int {
	for {
		if code, ok := s.Engine.ExitRequested(); ok {
			return code
		}

		s.Jobs.Notify(s.stdout)
		s.Readline.SetPrompt(s.Prompt())
		line, err := s.Readline.Readline()

		switch {
		case err == io.EOF:
			fmt.Fprintln(s.stdout, "exit")
			return s.Engine.Status()

		case err == readline.ErrInterrupt:
			// Interrupt clears line.
			continue

		case err != nil:
			s.log.Printf("Error readline: %v", err)
			continue

		case strings.TrimSpace(line) == "":
			continue

		default:
			s.RunCommand(ctx, line)
		}
	}
}

// RunCommand parses and runs one command line. An interrupt while it runs
// abandons the wait for it.
func (s *Shell) RunCommand(ctx context.Context, line string) error {
	node, err := shell.Parse(line)
	if err != nil {
		fmt.Fprintf(s.stderr, "forksh: %v\n", err)
		s.Engine.Vars().SetStatus(1)
		return err
	}
	if node == nil {
		return nil
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	return s.Engine.Run(runCtx, node)
}

// RunScript runs src as a single command line and returns the exit status.
func RunScript(ctx context.Context, e *engine.Engine, src string, stderr io.Writer) int {
	node, err := shell.Parse(src)
	if err != nil {
		fmt.Fprintf(stderr, "forksh: %v\n", err)
		return 1
	}

	e.Run(ctx, node)
	if code, ok := e.ExitRequested(); ok {
		return code
	}
	return e.Status()
}
