package engine

import (
	"os"

	"github.com/josephlewis42/forksh/core/jobs"
)

// Triple is a standard input, output and error.
type Triple struct {
	In  *os.File
	Out *os.File
	Err *os.File
}

func (t Triple) files() []uintptr {
	return []uintptr{t.In.Fd(), t.Out.Fd(), t.Err.Fd()}
}

// executionContext is the mutable state shared by every node of a command
// line.
type executionContext struct {
	// std holds the shell's own descriptors, used by nodes without
	// redirections.
	std Triple
	// live is the triple bound for the node being executed.
	live  Triple
	bound bool
	// owned are descriptors opened by the current binding.
	owned []*os.File

	// job is the job the last started process joined.
	job jobs.ID
	// scratch holds words during expansion.
	scratch []string
	// holding is set while SIGCHLD handling is blocked.
	holding bool
}

// snapshot is the part of the context starting a process may disturb.
type snapshot struct {
	job     jobs.ID
	scratch []string
	std     Triple
	bound   bool
	holding bool
}

func (c *executionContext) save() snapshot {
	return snapshot{
		job:     c.job,
		scratch: append([]string(nil), c.scratch...),
		std:     c.std,
		bound:   c.bound,
		holding: c.holding,
	}
}

func (c *executionContext) restore(s snapshot) {
	c.job = s.job
	c.scratch = s.scratch
	c.std = s.std
	c.bound = s.bound
	c.holding = s.holding
}
