package tty

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMask_DeliverWaitsForUnblock(t *testing.T) {
	var m Mask
	m.Block(syscall.SIGCHLD)
	assert.True(t, m.Blocked(syscall.SIGCHLD))

	delivered := make(chan struct{})
	go m.Deliver(syscall.SIGCHLD, func() { close(delivered) })

	select {
	case <-delivered:
		t.Fatal("handler ran while blocked")
	case <-time.After(50 * time.Millisecond):
	}

	m.Unblock(syscall.SIGCHLD)
	select {
	case <-delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never ran after unblock")
	}
}

func TestMask_BlockIsIdempotent(t *testing.T) {
	var m Mask
	m.Block(syscall.SIGCHLD)
	m.Block(syscall.SIGCHLD)
	m.Unblock(syscall.SIGCHLD)

	assert.False(t, m.Blocked(syscall.SIGCHLD))
}

func TestMask_BlockWaitsForRunningHandler(t *testing.T) {
	var m Mask
	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})

	go m.Deliver(syscall.SIGCHLD, func() {
		close(started)
		<-release
		close(finished)
	})
	<-started

	blocked := make(chan struct{})
	go func() {
		m.Block(syscall.SIGCHLD)
		close(blocked)
	}()

	select {
	case <-blocked:
		t.Fatal("Block returned while the handler was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-finished
	<-blocked
	assert.True(t, m.Blocked(syscall.SIGCHLD))
}

func TestMask_SignalsAreIndependent(t *testing.T) {
	var m Mask
	m.Block(syscall.SIGCHLD)

	ran := false
	m.Deliver(os.Interrupt, func() { ran = true })
	assert.True(t, ran)
}

func TestTerminal_Disabled(t *testing.T) {
	term := Disabled()

	assert.False(t, term.Enabled())
	assert.Equal(t, -1, term.Fd())
	assert.Equal(t, -1, term.ShellGroup())
	assert.NoError(t, term.SetForeground(1234))
	assert.NoError(t, term.Restore())
	assert.NoError(t, term.Acquire())

	pgrp, err := term.Foreground()
	assert.NoError(t, err)
	assert.Equal(t, -1, pgrp)
}

func TestOpen_notATerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "tty")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	assert.False(t, Open(f).Enabled())
	assert.False(t, Open(nil).Enabled())
}
