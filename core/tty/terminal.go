// Package tty manages the controlling terminal and the signal mask used while
// child processes are created.
package tty

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal is the shell's controlling terminal. A Terminal opened on
// something that isn't a terminal is disabled: job control is off and every
// method is a no-op.
type Terminal struct {
	fd        int
	shellPgrp int
}

// Open returns the terminal behind f.
func Open(f *os.File) *Terminal {
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return Disabled()
	}

	return &Terminal{
		fd:        int(f.Fd()),
		shellPgrp: unix.Getpgrp(),
	}
}

// Disabled returns a terminal for shells without job control.
func Disabled() *Terminal {
	return &Terminal{fd: -1, shellPgrp: -1}
}

// Enabled reports whether the shell controls a terminal.
func (t *Terminal) Enabled() bool {
	return t != nil && t.fd >= 0
}

// Fd is the terminal descriptor, -1 if disabled.
func (t *Terminal) Fd() int {
	if !t.Enabled() {
		return -1
	}
	return t.fd
}

// ShellGroup is the process group of the shell itself, -1 if disabled.
func (t *Terminal) ShellGroup() int {
	if !t.Enabled() {
		return -1
	}
	return t.shellPgrp
}

// Foreground returns the process group that owns the terminal.
func (t *Terminal) Foreground() (int, error) {
	if !t.Enabled() {
		return -1, nil
	}
	return unix.IoctlGetInt(t.fd, unix.TIOCGPGRP)
}

// SetForeground hands the terminal to the process group pgid.
func (t *Terminal) SetForeground(pgid int) error {
	if !t.Enabled() || pgid <= 0 {
		return nil
	}
	return unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, pgid)
}

// Restore takes the terminal back for the shell.
func (t *Terminal) Restore() error {
	return t.SetForeground(t.ShellGroup())
}

// Acquire puts an interactive shell in its own process group and makes it
// the terminal's foreground group.
//
// SIGTTOU is ignored so the shell can take the terminal back from a job.
// SIGTSTP and SIGTTIN are caught rather than ignored so that programs the
// shell execs get their default dispositions back.
func (t *Terminal) Acquire() error {
	if !t.Enabled() {
		return nil
	}

	signal.Ignore(syscall.SIGTTOU)
	signal.Notify(make(chan os.Signal, 1), syscall.SIGTSTP, syscall.SIGTTIN)

	pid := os.Getpid()
	if unix.Getpgrp() != pid {
		if err := unix.Setpgid(0, 0); err != nil {
			return err
		}
	}
	t.shellPgrp = pid
	return t.SetForeground(pid)
}
