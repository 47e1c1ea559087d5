package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/josephlewis42/forksh/core/engine"
	"github.com/josephlewis42/forksh/core/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPrompt(t *testing.T) {
	v := vars.FromLists([]string{"cwd=/home/u/src"}, []string{"HOME=/home/u"})

	host, err := os.Hostname()
	require.NoError(t, err)
	short, _, _ := strings.Cut(host, ".")

	hash := "%"
	if os.Geteuid() == 0 {
		hash = "#"
	}

	cases := map[string]string{
		"%~ ":       "~/src ",
		"%/":        "/home/u/src",
		"100%%":     "100%",
		"%m":        short,
		"%M":        host,
		"%#":        hash,
		"%q":        "%q",
		"trailing%": "trailing%",
		`\e[1m>`:    "\033[1m>",
	}

	for format, want := range cases {
		t.Run(format, func(t *testing.T) {
			assert.Equal(t, want, expandPrompt(format, v))
		})
	}
}

func newTestEngine(t *testing.T) (*engine.Engine, string) {
	t.Helper()

	out := filepath.Join(t.TempDir(), "stdout")
	stdout, err := os.Create(out)
	require.NoError(t, err)
	t.Cleanup(func() { stdout.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	e, _, err := NewEngine(ctx, Environment{
		Options: engine.Options{LightFork: true},
		Vars:    vars.New(os.Environ()),
		Stdout:  stdout,
		Stderr:  stdout,
	})
	require.NoError(t, err)
	return e, out
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestRunScript(t *testing.T) {
	t.Run("builtins and programs", func(t *testing.T) {
		e, out := newTestEngine(t)

		status := RunScript(context.Background(), e, `echo one; sh -c 'echo two'; set x=3; echo $x`, io.Discard)

		assert.Equal(t, 0, status)
		assert.Equal(t, "one\ntwo\n3\n", readFile(t, out))
	})

	t.Run("exit status", func(t *testing.T) {
		e, _ := newTestEngine(t)

		assert.Equal(t, 3, RunScript(context.Background(), e, `exit 3`, io.Discard))
	})

	t.Run("last status", func(t *testing.T) {
		e, _ := newTestEngine(t)

		assert.Equal(t, 1, RunScript(context.Background(), e, `true && false`, io.Discard))
	})

	t.Run("syntax error", func(t *testing.T) {
		e, _ := newTestEngine(t)
		stderr := &bytes.Buffer{}

		assert.Equal(t, 1, RunScript(context.Background(), e, `echo (`, stderr))
		assert.Contains(t, stderr.String(), "forksh: ")
	})

	t.Run("builtin in a pipeline", func(t *testing.T) {
		e, out := newTestEngine(t)

		status := RunScript(context.Background(), e, `echo piped | tr a-z A-Z`, io.Discard)

		assert.Equal(t, 0, status)
		assert.Equal(t, "PIPED\n", readFile(t, out))
	})
}

func TestShell_RunInteractive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := filepath.Join(t.TempDir(), "stdout")
	stdout, err := os.Create(out)
	require.NoError(t, err)
	defer stdout.Close()

	e, table, err := NewEngine(ctx, Environment{
		Options: engine.Options{LightFork: true},
		Vars:    vars.New(os.Environ()),
		Stdout:  stdout,
		Stderr:  stdout,
	})
	require.NoError(t, err)

	input := "echo first\n\nnot-a-command-forksh\necho $status\nexit 4\necho never\n"
	screen := &bytes.Buffer{}
	sh, err := NewShell(e, table, ShellConfig{
		Stdin:  io.NopCloser(strings.NewReader(input)),
		Stdout: screen,
		Stderr: screen,
		Prompt: "test> ",
	})
	require.NoError(t, err)
	defer sh.Close()

	assert.Equal(t, 4, sh.RunInteractive(ctx))
	assert.Equal(t, "first\nnot-a-command-forksh: Command not found.\n1\n", readFile(t, out))
	assert.Equal(t, "test> ", sh.Prompt())
}

func ExampleRunScript() {
	dir, _ := os.MkdirTemp("", "forksh-example")
	defer os.RemoveAll(dir)
	out := filepath.Join(dir, "greeting")

	e, _, _ := NewEngine(context.Background(), Environment{Vars: vars.New(os.Environ())})
	RunScript(context.Background(), e, fmt.Sprintf(`echo hello > '%s'`, out), os.Stderr)

	b, _ := os.ReadFile(out)
	fmt.Print(string(b))
	// Output: hello
}
