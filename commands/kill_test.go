package commands

import (
	"errors"
	"os/exec"
	"strconv"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignal(t *testing.T) {
	cases := map[string]struct {
		sig syscall.Signal
		ok  bool
	}{
		"9":       {syscall.SIGKILL, true},
		"0":       {0, true},
		"HUP":     {syscall.SIGHUP, true},
		"sigint":  {syscall.SIGINT, true},
		"SIGTERM": {syscall.SIGTERM, true},
		"bogus":   {0, false},
	}

	for spec, tc := range cases {
		t.Run(spec, func(t *testing.T) {
			sig, ok := parseSignal(spec)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.sig, sig)
			}
		})
	}
}

func TestKill(t *testing.T) {
	sleeper := exec.Command("sleep", "30")
	require.NoError(t, sleeper.Start())
	pid := strconv.Itoa(sleeper.Process.Pid)

	status, out, _ := invocation{Args: []string{"kill", "-s", "KILL", pid}}.run(t)
	assert.Equal(t, 0, status, string(out))

	err := sleeper.Wait()
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	ws := exitErr.Sys().(syscall.WaitStatus)
	assert.Equal(t, syscall.SIGKILL, ws.Signal())
}

func TestKill_errors(t *testing.T) {
	cases := map[string]struct {
		args []string
		out  string
	}{
		"no pid":     {[]string{"kill"}, "kill: Too few arguments.\n"},
		"bad signal": {[]string{"kill", "-NOPE", "1"}, "kill: Unknown signal; kill -l lists signals.\n"},
		"bad pid":    {[]string{"kill", "%x"}, "kill: Arguments should be jobs or process id's.\n"},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			status, out, _ := invocation{Args: tc.args}.run(t)
			assert.Equal(t, 1, status)
			assert.Equal(t, tc.out, string(out))
		})
	}
}

func TestKill_list(t *testing.T) {
	status, out, _ := invocation{Args: []string{"kill", "-l"}}.run(t)
	assert.Equal(t, 0, status)
	assert.Contains(t, string(out), "HUP")
	assert.Contains(t, string(out), "TERM")
}
