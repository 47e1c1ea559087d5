package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/josephlewis42/forksh/core/engine"
	"golang.org/x/sys/unix"
)

// parseSignal accepts a signal number or a name with or without the SIG
// prefix.
func parseSignal(spec string) (syscall.Signal, bool) {
	if n, err := strconv.Atoi(spec); err == nil {
		sig := syscall.Signal(n)
		return sig, n == 0 || unix.SignalName(sig) != ""
	}

	name := strings.ToUpper(spec)
	if !strings.HasPrefix(name, "SIG") {
		name = "SIG" + name
	}
	sig := unix.SignalNum(name)
	return sig, sig != 0
}

func signalNames() []string {
	var names []string
	for sig := syscall.Signal(1); sig < 32; sig++ {
		if name := unix.SignalName(sig); name != "" {
			names = append(names, strings.TrimPrefix(name, "SIG"))
		}
	}
	sort.Strings(names)
	return names
}

// Kill sends a signal to processes. A negative pid names a process group.
func Kill(_ context.Context, inv *engine.Invocation) int {
	args := inv.Argv[1:]
	if len(args) > 0 && args[0] == "-l" {
		fmt.Fprintln(inv.Stdout, strings.Join(signalNames(), " "))
		return 0
	}

	// A lone negative number is a process group, not a signal.
	sig := syscall.SIGTERM
	if len(args) > 1 && strings.HasPrefix(args[0], "-") {
		spec := strings.TrimPrefix(args[0], "-")
		args = args[1:]
		if spec == "s" {
			spec, args = args[0], args[1:]
		}

		var ok bool
		if sig, ok = parseSignal(spec); !ok {
			fmt.Fprintln(inv.Stderr, "kill: Unknown signal; kill -l lists signals.")
			return 1
		}
	}

	if len(args) == 0 {
		fmt.Fprintln(inv.Stderr, "kill: Too few arguments.")
		return 1
	}

	status := 0
	for _, arg := range args {
		pid, err := strconv.Atoi(arg)
		if err != nil || pid == 0 {
			fmt.Fprintln(inv.Stderr, "kill: Arguments should be jobs or process id's.")
			status = 1
			continue
		}
		if err := unix.Kill(pid, sig); err != nil {
			fmt.Fprintf(inv.Stderr, "%d: %s.\n", pid, err)
			status = 1
		}
	}
	return status
}

func init() {
	addBuiltin(&Builtin{Name: "kill", Short: "Send a signal to processes.", Main: Kill})
}
