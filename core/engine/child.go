package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/josephlewis42/forksh/core/shell"
	"github.com/josephlewis42/forksh/core/vars"
	"golang.org/x/sys/unix"
)

// childEnv marks a process started by heavyFork.
const childEnv = "FORKSH_CHILD"

// requestFd is the descriptor a forked shell reads its childRequest from.
const requestFd = 3

const (
	modeExec     = "exec"
	modeBuiltin  = "builtin"
	modeSubshell = "subshell"
)

// childRequest tells a forked shell what to run and how.
type childRequest struct {
	Mode       string      `json:"mode"`
	Node       *shell.Node `json:"node"`
	Path       string      `json:"path,omitempty"`
	Shell      []string    `json:"shell"`
	Env        []string    `json:"env"`
	Options    Options     `json:"options"`
	JobControl bool        `json:"job_control"`
	DoGlob     bool        `json:"do_glob"`
}

// Setup builds the engine of a forked shell from the options and variables
// of its parent.
type Setup func(opts Options, v *vars.Vars) (*Engine, error)

// RunChildIfRequested turns the process into a forked shell if it was
// started as one, and never returns in that case. It must be called early
// in main, before anything else touches the standard descriptors.
func RunChildIfRequested(setup Setup) {
	if os.Getenv(childEnv) == "" {
		return
	}
	os.Unsetenv(childEnv)
	os.Exit(runChild(setup))
}

func runChild(setup Setup) int {
	req, err := readRequest()
	if err != nil {
		fmt.Fprintf(os.Stderr, "forksh: %v\n", err)
		return 1
	}

	n := req.Node
	if err := applyFlags(n, req.JobControl); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", n.Name(), err)
		return 1
	}

	if req.Mode == modeExec {
		err := unix.Exec(req.Path, n.Argv, req.Env)
		fmt.Fprintf(os.Stderr, "%s: %v\n", n.Name(), err)
		return 1
	}

	e, err := setup(req.Options, vars.FromLists(req.Shell, req.Env))
	if err != nil {
		fmt.Fprintf(os.Stderr, "forksh: %v\n", err)
		return 1
	}
	e.child = true
	e.jobControl = req.JobControl

	ctx := context.Background()
	status := 0
	switch req.Mode {
	case modeBuiltin:
		builtin, ok := e.builtins.Lookup(n.Name())
		if !ok {
			e.notFound(n.Name())
			return 1
		}
		status = e.invoke(ctx, builtin, n, e.ctx.std)
	case modeSubshell:
		status, err = e.subshell(ctx, n, req.DoGlob)
		if err != nil && !errors.As(err, new(*ExitError)) {
			e.report(err)
			status = 1
		}
	default:
		fmt.Fprintf(os.Stderr, "forksh: unknown request mode %q\n", req.Mode)
		return 1
	}

	if code, ok := e.ExitRequested(); ok {
		return code
	}
	return status
}

func readRequest() (*childRequest, error) {
	f := os.NewFile(requestFd, "request")
	if f == nil {
		return nil, errors.New("missing request")
	}
	defer f.Close()

	var req childRequest
	if err := json.NewDecoder(f).Decode(&req); err != nil {
		return nil, fmt.Errorf("reading request: %w", err)
	}
	if req.Node == nil {
		return nil, errors.New("request without command")
	}
	return &req, nil
}

// applyFlags sets up the signal dispositions and priority n asks for. They
// are kept across exec.
func applyFlags(n *shell.Node, jobControl bool) error {
	if n.Flags.NoInterrupt && !jobControl {
		signal.Ignore(syscall.SIGINT, syscall.SIGQUIT)
	}
	if n.Flags.NoHup {
		signal.Ignore(syscall.SIGHUP)
	}
	if n.Flags.Hup {
		RestoreHangup()
	}
	if n.Flags.Nice {
		if err := unix.Setpriority(unix.PRIO_PROCESS, 0, n.NiceLevel); err != nil {
			return fmt.Errorf("setpriority: %w", err)
		}
	}
	return nil
}

// RestoreHangup gives SIGHUP its default action back, even if the process
// was started with it ignored. A caught signal reverts to the default on
// exec; until then a hangup ends the process with the status the default
// action would leave.
func RestoreHangup() {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		<-hup
		signal.Reset(syscall.SIGHUP)
		os.Exit(128 + int(syscall.SIGHUP))
	}()
}
