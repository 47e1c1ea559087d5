package engine

import (
	"os"
	"testing"

	"github.com/josephlewis42/forksh/core/jobs"
	"github.com/josephlewis42/forksh/core/shell"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestore(t *testing.T) {
	c := executionContext{
		job:     3,
		scratch: []string{"a"},
		std:     Triple{In: os.Stdin, Out: os.Stdout, Err: os.Stderr},
		bound:   true,
		holding: true,
	}
	want := c

	saved := c.save()
	c.job = 9
	c.scratch[0] = "z"
	c.scratch = append(c.scratch, "b")
	c.std = Triple{}
	c.bound = false
	c.holding = false
	c.restore(saved)

	assert.Equal(t, jobs.ID(3), c.job)
	assert.Equal(t, []string{"a"}, c.scratch)
	assert.Equal(t, want.std, c.std)
	assert.True(t, c.bound)
	assert.True(t, c.holding)
}

func newBareEngine(t *testing.T) *Engine {
	t.Helper()

	e, err := New(Options{}, Deps{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr})
	require.NoError(t, err)
	return e
}

func TestBindDescriptors(t *testing.T) {
	t.Run("background without job control reads /dev/null", func(t *testing.T) {
		e := newBareEngine(t)
		n := shell.NewSimple("cat")
		n.Flags.NoInterrupt = true

		fds, err := e.bindDescriptors(n, nil, nil)
		require.NoError(t, err)
		defer e.doneDescriptors()

		assert.Equal(t, os.DevNull, fds.In.Name())
		assert.Equal(t, os.Stdout, fds.Out)
	})

	t.Run("pipes and merged errors", func(t *testing.T) {
		e := newBareEngine(t)
		in, err := MakePipe()
		require.NoError(t, err)
		defer in.Close()
		out, err := MakePipe()
		require.NoError(t, err)
		defer out.Close()

		n := shell.NewSimple("tr")
		n.Flags = shell.Flags{PipeIn: true, PipeOut: true, MergeStderr: true, NoInterrupt: true}

		fds, err := e.bindDescriptors(n, in, out)
		require.NoError(t, err)
		defer e.doneDescriptors()

		assert.Same(t, in.R, fds.In, "a pipe takes precedence over /dev/null")
		assert.Same(t, out.W, fds.Out)
		assert.Same(t, out.W, fds.Err)
	})

	t.Run("bound descriptors are reused", func(t *testing.T) {
		e := newBareEngine(t)
		n := shell.NewSimple("cat")
		n.In = &shell.Redirect{IsHeredoc: true, Heredoc: "doc\n"}

		first, err := e.bindDescriptors(n, nil, nil)
		require.NoError(t, err)
		second, err := e.bindDescriptors(shell.NewSimple("other"), nil, nil)
		require.NoError(t, err)
		assert.Same(t, first.In, second.In)

		e.doneDescriptors()
		assert.False(t, e.ctx.bound)
		assert.Empty(t, e.ctx.owned)
	})
}
