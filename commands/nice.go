package commands

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/josephlewis42/forksh/core/engine"
	"github.com/josephlewis42/forksh/core/jobs"
	"golang.org/x/sys/unix"
)

// Nice changes the priority of the shell itself. Prefixed to a command,
// nice only affects that command and never reaches this builtin.
func Nice(_ context.Context, inv *engine.Invocation) int {
	level := engine.DefaultNice
	switch len(inv.Argv) {
	case 1:
	case 2:
		n, err := strconv.Atoi(inv.Argv[1])
		if err != nil {
			fmt.Fprintln(inv.Stderr, "nice: Badly formed number.")
			return 1
		}
		level = n
	default:
		fmt.Fprintln(inv.Stderr, "nice: Too many arguments.")
		return 1
	}

	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, level); err != nil {
		fmt.Fprintf(inv.Stderr, "setpriority: %v\n", err)
		return 1
	}
	return 0
}

// Nohup makes the shell ignore hangups.
func Nohup(_ context.Context, inv *engine.Invocation) int {
	signal.Ignore(syscall.SIGHUP)
	return 0
}

// Hup restores the default hangup handling of the shell.
func Hup(_ context.Context, inv *engine.Invocation) int {
	engine.RestoreHangup()
	return 0
}

var shellStarted = time.Now()

// Time prints the resources used by the shell and its children so far.
func Time(_ context.Context, inv *engine.Invocation) int {
	var self, children unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &self); err != nil {
		fmt.Fprintf(inv.Stderr, "time: %v\n", err)
		return 1
	}
	if err := unix.Getrusage(unix.RUSAGE_CHILDREN, &children); err != nil {
		fmt.Fprintf(inv.Stderr, "time: %v\n", err)
		return 1
	}

	result := jobs.Result{
		User:    tvDuration(self.Utime) + tvDuration(children.Utime),
		System:  tvDuration(self.Stime) + tvDuration(children.Stime),
		Elapsed: time.Since(shellStarted),
	}
	fmt.Fprintln(inv.Stdout, result.TimeReport())
	return 0
}

func tvDuration(tv unix.Timeval) time.Duration {
	return time.Duration(tv.Nano())
}

func init() {
	addBuiltin(&Builtin{Name: "nice", Short: "Change the priority of the shell.", Main: Nice})
	addBuiltin(&Builtin{Name: "nohup", Short: "Ignore hangups in the shell.", Main: Nohup})
	addBuiltin(&Builtin{Name: "hup", Short: "Exit on hangups.", Main: Hup})
	addBuiltin(&Builtin{Name: "time", Short: "Show resources used by the shell.", Main: Time})
}
