package engine

import (
	"fmt"

	"github.com/josephlewis42/forksh/core/shell"
)

// PipeOrder decides which pipeline stage is started first. The first
// process started leads the job's process group.
type PipeOrder int

const (
	// FirstStageLeads starts pipelines left to right.
	FirstStageLeads PipeOrder = iota
	// LastStageLeads starts pipelines right to left, for systems where a
	// process group can't be led by a zombie.
	LastStageLeads
)

// ParsePipeOrder reads the configuration spelling of a PipeOrder.
func ParsePipeOrder(s string) (PipeOrder, error) {
	switch s {
	case "", "first_stage_leads":
		return FirstStageLeads, nil
	case "last_stage_leads":
		return LastStageLeads, nil
	}
	return FirstStageLeads, fmt.Errorf("unknown pipe order %q", s)
}

func (p PipeOrder) String() string {
	if p == LastStageLeads {
		return "last_stage_leads"
	}
	return "first_stage_leads"
}

// Strategy is how a node is turned into a running command.
type Strategy int

const (
	// RunInPlace runs a builtin inside the shell process.
	RunInPlace Strategy = iota
	// ExecInPlace replaces the current process, only possible inside a
	// forked shell.
	ExecInPlace
	// HeavyFork re-executes the shell as a child that sets itself up before
	// running the command.
	HeavyFork
	// LightFork starts an external program directly.
	LightFork
)

func (s Strategy) String() string {
	switch s {
	case RunInPlace:
		return "in_place"
	case ExecInPlace:
		return "exec"
	case HeavyFork:
		return "heavy"
	default:
		return "light"
	}
}

// Capabilities describe what the running engine is able to do.
type Capabilities struct {
	// LightFork allows starting programs without re-executing the shell.
	LightFork bool
	// ExecInPlace is set inside forked shells, which may replace themselves.
	ExecInPlace bool
}

// SelectStrategy picks how to run n. builtin reports whether n names a
// builtin.
func SelectStrategy(n *shell.Node, builtin bool, caps Capabilities) Strategy {
	f := n.Flags

	needsProcess := f.Timed ||
		(!f.NoFork && (!builtin || f.PipeIn || f.PipeOut || f.Background || f.Modified()))
	if f.NoFork && !builtin && !caps.ExecInPlace {
		needsProcess = true
	}

	if !needsProcess {
		if builtin {
			return RunInPlace
		}
		return ExecInPlace
	}

	if n.Kind == shell.KindSubshell || builtin || f.Repeat || f.Background || f.Modified() || !caps.LightFork {
		return HeavyFork
	}
	return LightFork
}
