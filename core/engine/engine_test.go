package engine_test

import (
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/josephlewis42/forksh/core/engine"
	"github.com/josephlewis42/forksh/core/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lightForks = engine.Options{LightFork: true}

func TestRun_redirectCreatesFile(t *testing.T) {
	h := newHarness(t, lightForks)

	require.NoError(t, h.run(t, fmt.Sprintf(`sh -c 'printf hello' > '%s'`, h.path("out"))))

	assert.Equal(t, "hello", h.read(t, "out"))
	assert.Equal(t, 0, h.engine.Status())
}

func TestRun_appendKeepsContents(t *testing.T) {
	h := newHarness(t, lightForks)
	require.NoError(t, os.WriteFile(h.path("log"), []byte("a\n"), 0644))

	require.NoError(t, h.run(t, fmt.Sprintf(`sh -c 'echo b' >> '%s'`, h.path("log"))))

	assert.Equal(t, "a\nb\n", h.read(t, "log"))
}

func TestRun_redirectTruncates(t *testing.T) {
	h := newHarness(t, lightForks)
	require.NoError(t, os.WriteFile(h.path("out"), []byte("long old contents"), 0644))

	require.NoError(t, h.run(t, fmt.Sprintf(`sh -c 'printf new' > '%s'`, h.path("out"))))

	assert.Equal(t, "new", h.read(t, "out"))
}

func TestRun_noclobber(t *testing.T) {
	t.Run("existing file", func(t *testing.T) {
		h := newHarness(t, lightForks)
		h.engine.Vars().SetBool(vars.NoClobber, true)
		require.NoError(t, os.WriteFile(h.path("out"), []byte("keep"), 0644))

		err := h.run(t, fmt.Sprintf(`sh -c 'printf lost' > '%s'`, h.path("out")))

		assert.ErrorIs(t, err, engine.ErrFileExists)
		assert.Equal(t, "keep", h.read(t, "out"))
		assert.Equal(t, 1, h.engine.Status())
		assert.Contains(t, h.stderrText(t), "File exists.")
	})

	t.Run("overwrite", func(t *testing.T) {
		h := newHarness(t, lightForks)
		h.engine.Vars().SetBool(vars.NoClobber, true)
		require.NoError(t, os.WriteFile(h.path("out"), []byte("old"), 0644))

		require.NoError(t, h.run(t, fmt.Sprintf(`sh -c 'printf new' >| '%s'`, h.path("out"))))

		assert.Equal(t, "new", h.read(t, "out"))
	})

	t.Run("character device", func(t *testing.T) {
		h := newHarness(t, lightForks)
		h.engine.Vars().SetBool(vars.NoClobber, true)

		assert.NoError(t, h.run(t, `sh -c 'printf gone' > /dev/null`))
	})

	t.Run("append to missing file", func(t *testing.T) {
		h := newHarness(t, lightForks)
		h.engine.Vars().SetBool(vars.NoClobber, true)

		err := h.run(t, fmt.Sprintf(`sh -c 'printf x' >> '%s'`, h.path("missing")))

		assert.ErrorIs(t, err, fs.ErrNotExist)
		assert.NoFileExists(t, h.path("missing"))
	})

	t.Run("append without noclobber creates", func(t *testing.T) {
		h := newHarness(t, lightForks)

		require.NoError(t, h.run(t, fmt.Sprintf(`sh -c 'printf x' >> '%s'`, h.path("new"))))

		assert.Equal(t, "x", h.read(t, "new"))
	})
}

func TestRun_inputRedirect(t *testing.T) {
	h := newHarness(t, lightForks)
	require.NoError(t, os.WriteFile(h.path("in"), []byte("from a file\n"), 0644))

	require.NoError(t, h.run(t, fmt.Sprintf(`cat < '%s' > '%s'`, h.path("in"), h.path("out"))))

	assert.Equal(t, "from a file\n", h.read(t, "out"))
}

func TestRun_heredoc(t *testing.T) {
	h := newHarness(t, lightForks)

	require.NoError(t, h.run(t, fmt.Sprintf("cat <<EOF > '%s'\nhello\nthere\nEOF\n", h.path("out"))))

	assert.Equal(t, "hello\nthere\n", h.read(t, "out"))
}

func openFds(t *testing.T) int {
	t.Helper()

	entries, err := os.ReadDir("/proc/self/fd")
	require.NoError(t, err)
	return len(entries)
}

func TestRun_pipeline(t *testing.T) {
	cases := map[string]struct {
		order engine.PipeOrder
		want  []string
	}{
		"first stage leads": {engine.FirstStageLeads, []string{"sh", "cat", "tr"}},
		"last stage leads":  {engine.LastStageLeads, []string{"tr", "cat", "sh"}},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, engine.Options{LightFork: true, PipeOrder: tc.order})
			before := openFds(t)

			line := fmt.Sprintf(`sh -c 'printf abc' | cat | tr a-z A-Z > '%s'`, h.path("out"))
			require.NoError(t, h.run(t, line))

			assert.Equal(t, "ABC", h.read(t, "out"))
			assert.Equal(t, before, openFds(t), "the shell leaked a pipe descriptor")
			assert.Equal(t, tc.want, h.jobs.names())

			started := h.jobs.started
			require.Len(t, started, 3)
			for _, s := range started {
				assert.Equal(t, syscall.Getpgrp(), s.Pgid, "without job control every stage stays in the shell's group")
			}
		})
	}
}

func TestRun_backgroundPipelineLeadsGroup(t *testing.T) {
	h := newHarness(t, lightForks)

	line := fmt.Sprintf(`sh -c 'printf abc' | tr a-z A-Z > '%s' &`, h.path("out"))
	require.NoError(t, h.run(t, line))

	started := h.jobs.started
	require.Len(t, started, 2)
	assert.Equal(t, 0, started[0].Pgid, "the first process started leads the group")
	assert.Equal(t, started[0].Pid, started[1].Pgid)

	assert.Eventually(t, func() bool {
		b, err := os.ReadFile(h.path("out"))
		return err == nil && string(b) == "ABC"
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRun_pipelineStatusIsLastStage(t *testing.T) {
	h := newHarness(t, lightForks)

	require.NoError(t, h.run(t, `sh -c 'exit 3' | sh -c 'exit 5'`))
	assert.Equal(t, 5, h.engine.Status())

	require.NoError(t, h.run(t, `sh -c 'exit 3' | true`))
	assert.Equal(t, 0, h.engine.Status())
}

func TestRun_heavyForks(t *testing.T) {
	t.Run("builtin in pipeline", func(t *testing.T) {
		h := newHarness(t, lightForks)

		require.NoError(t, h.run(t, fmt.Sprintf(`echo hi there | cat > '%s'`, h.path("out"))))

		assert.Equal(t, "hi there\n", h.read(t, "out"))
	})

	t.Run("light forks disabled", func(t *testing.T) {
		h := newHarness(t, engine.Options{})

		require.NoError(t, h.run(t, fmt.Sprintf(`sh -c 'printf x' | cat > '%s'`, h.path("out"))))

		assert.Equal(t, "x", h.read(t, "out"))
	})

	t.Run("exit only leaves the child", func(t *testing.T) {
		h := newHarness(t, lightForks)

		require.NoError(t, h.run(t, `exit 3 | cat`))

		_, exited := h.engine.ExitRequested()
		assert.False(t, exited)
		assert.Equal(t, 0, h.engine.Status())
	})

	t.Run("nice", func(t *testing.T) {
		h := newHarness(t, lightForks)

		line := fmt.Sprintf(`nice +19 cut -d' ' -f19 /proc/self/stat > '%s'`, h.path("out"))
		require.NoError(t, h.run(t, line))

		assert.Equal(t, "19\n", h.read(t, "out"))
	})
}

func TestRun_exitBuiltin(t *testing.T) {
	h := newHarness(t, lightForks)

	require.NoError(t, h.run(t, `exit 4`))

	code, exited := h.engine.ExitRequested()
	assert.True(t, exited)
	assert.Equal(t, 4, code)
}

func TestRun_mergeStderr(t *testing.T) {
	h := newHarness(t, lightForks)

	require.NoError(t, h.run(t, fmt.Sprintf(`sh -c 'echo oops >&2' |& cat > '%s'`, h.path("out"))))

	assert.Equal(t, "oops\n", h.read(t, "out"))
}

func TestRun_subshell(t *testing.T) {
	h := newHarness(t, lightForks)

	line := fmt.Sprintf(`(sh -c 'printf one'; sh -c 'printf two') > '%s'`, h.path("out"))
	require.NoError(t, h.run(t, line))

	assert.Equal(t, "onetwo", h.read(t, "out"))
}

func TestRun_subshellStatus(t *testing.T) {
	h := newHarness(t, lightForks)

	require.NoError(t, h.run(t, `(true; sh -c 'exit 7')`))

	assert.Equal(t, 7, h.engine.Status())
}

func TestRun_andOr(t *testing.T) {
	cases := map[string]struct {
		line string
		runs bool
	}{
		"and after success": {"true && sh -c 'printf ran' > '%s'", true},
		"and after failure": {"false && sh -c 'printf ran' > '%s'", false},
		"or after success":  {"true || sh -c 'printf ran' > '%s'", false},
		"or after failure":  {"false || sh -c 'printf ran' > '%s'", true},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, lightForks)

			require.NoError(t, h.run(t, fmt.Sprintf(tc.line, h.path("out"))))

			if tc.runs {
				assert.FileExists(t, h.path("out"))
			} else {
				assert.NoFileExists(t, h.path("out"))
			}
		})
	}
}

func TestRun_backgroundDoesNotWait(t *testing.T) {
	h := newHarness(t, lightForks)

	start := time.Now()
	require.NoError(t, h.run(t, `sleep 30 &`))
	assert.Less(t, time.Since(start), 10*time.Second)

	require.Len(t, h.jobs.started, 1)
	pid := h.jobs.started[0].Pid
	defer syscall.Kill(pid, syscall.SIGKILL)

	assert.Equal(t, 1, h.jobs.deferred)
	assert.Equal(t, 1, h.jobs.Len())
	assert.Contains(t, h.stderrText(t), fmt.Sprintf("[1] %d", pid))
}

func TestRun_backgroundThenForeground(t *testing.T) {
	h := newHarness(t, lightForks)

	require.NoError(t, h.run(t, `sleep 30 & sh -c 'exit 2'`))

	require.Len(t, h.jobs.started, 2)
	defer syscall.Kill(h.jobs.started[0].Pid, syscall.SIGKILL)

	assert.Equal(t, 2, h.engine.Status())
	assert.Equal(t, 1, h.jobs.deferred)
	assert.NotEqual(t, h.jobs.started[0].Pid, h.jobs.started[1].Pgid, "the foreground command starts a new job")
}

func TestRun_errorAbortsLine(t *testing.T) {
	h := newHarness(t, lightForks)

	line := fmt.Sprintf(`sh -c 'exit 0' > %s/*.none ; sh -c 'printf y' > '%s'`, h.dir, h.path("after"))
	err := h.run(t, line)

	assert.ErrorIs(t, err, engine.ErrAmbiguous)
	assert.NoFileExists(t, h.path("after"))
	assert.Equal(t, 1, h.engine.Status())
	assert.Contains(t, h.stderrText(t), "Ambiguous.")
}

func TestRun_ambiguousRedirect(t *testing.T) {
	t.Run("strict", func(t *testing.T) {
		h := newHarness(t, lightForks)
		require.NoError(t, os.WriteFile(h.path("a.txt"), nil, 0644))
		require.NoError(t, os.WriteFile(h.path("b.txt"), nil, 0644))

		err := h.run(t, fmt.Sprintf(`sh -c 'printf x' > %s/*.txt`, h.dir))

		assert.ErrorIs(t, err, engine.ErrAmbiguous)
		assert.Empty(t, h.read(t, "a.txt"))
	})

	t.Run("single match", func(t *testing.T) {
		h := newHarness(t, lightForks)
		require.NoError(t, os.WriteFile(h.path("only.txt"), nil, 0644))

		require.NoError(t, h.run(t, fmt.Sprintf(`sh -c 'printf x' > %s/*.txt`, h.dir)))

		assert.Equal(t, "x", h.read(t, "only.txt"))
	})

	t.Run("noambiguous appends the rest", func(t *testing.T) {
		h := newHarness(t, lightForks)
		h.engine.Vars().SetBool(vars.NoAmbiguous, true)
		require.NoError(t, os.WriteFile(h.path("a.txt"), nil, 0644))
		require.NoError(t, os.WriteFile(h.path("b.txt"), nil, 0644))

		require.NoError(t, h.run(t, fmt.Sprintf(`sh -c 'printf %%s "$0"' > %s/*.txt`, h.dir)))

		assert.Equal(t, h.path("b.txt"), h.read(t, "a.txt"))
	})

	t.Run("noambiguous without matches", func(t *testing.T) {
		h := newHarness(t, lightForks)
		h.engine.Vars().SetBool(vars.NoAmbiguous, true)

		err := h.run(t, fmt.Sprintf(`sh -c 'printf x' > %s/*.txt`, h.dir))

		assert.ErrorIs(t, err, engine.ErrNoMatch)
	})
}

func TestRun_status(t *testing.T) {
	h := newHarness(t, lightForks)

	require.NoError(t, h.run(t, `sh -c 'exit 3'`))
	assert.Equal(t, 3, h.engine.Status())
	assert.Equal(t, "3", h.engine.Vars().Get(vars.Status))

	require.NoError(t, h.run(t, `false`))
	assert.Equal(t, 1, h.engine.Status())

	require.NoError(t, h.run(t, `true`))
	assert.Equal(t, 0, h.engine.Status())
}

func TestRun_commandNotFound(t *testing.T) {
	h := newHarness(t, lightForks)

	require.NoError(t, h.run(t, `no-such-command-forksh arg`))

	assert.Equal(t, 1, h.engine.Status())
	assert.Contains(t, h.stderrText(t), "no-such-command-forksh: Command not found.")
}

func TestRun_repeat(t *testing.T) {
	h := newHarness(t, lightForks)

	require.NoError(t, h.run(t, fmt.Sprintf(`repeat 3 sh -c 'printf x' > '%s'`, h.path("out"))))

	assert.Equal(t, "xxx", h.read(t, "out"))
}

func TestRun_noExec(t *testing.T) {
	h := newHarness(t, engine.Options{LightFork: true, NoExec: true})

	require.NoError(t, h.run(t, fmt.Sprintf(`sh -c 'printf x' > '%s'; break`, h.path("out"))))

	assert.NoFileExists(t, h.path("out"))
	assert.Equal(t, "yes", h.engine.Vars().Get("checked"))
}

var timeReport = regexp.MustCompile(`\d+\.\d{3}u \d+\.\d{3}s \d+:\d{2}\.\d{2} \d+\.\d%`)

func TestRun_time(t *testing.T) {
	h := newHarness(t, lightForks)

	require.NoError(t, h.run(t, `time sh -c 'exit 0'`))

	assert.Regexp(t, timeReport, h.stderrText(t))
	assert.Equal(t, []string{"sh"}, h.jobs.names())
}

func TestRun_timePipeline(t *testing.T) {
	h := newHarness(t, lightForks)

	require.NoError(t, h.run(t, `time sh -c 'exit 0' | cat`))

	assert.Regexp(t, timeReport, h.stderrText(t))
	assert.Equal(t, 1, strings.Count(h.stderrText(t), "%"), "one report per job")
	assert.Equal(t, []string{"sh", "cat"}, h.jobs.names())
}

func TestRun_lookupMissIgnoresValue(t *testing.T) {
	h := newHarnessWith(t, lightForks, zeroOnMiss{})

	require.NoError(t, h.run(t, `sh -c 'exit 4'`))

	assert.Equal(t, 4, h.engine.Status())
	assert.Equal(t, []string{"sh"}, h.jobs.names())
}

func TestRun_hupOverridesInheritedIgnore(t *testing.T) {
	signal.Ignore(syscall.SIGHUP)
	t.Cleanup(func() { signal.Reset(syscall.SIGHUP) })
	h := newHarness(t, lightForks)

	require.NoError(t, h.run(t, `sh -c 'kill -HUP $$; exit 0'`))
	assert.Equal(t, 0, h.engine.Status(), "an ignored hangup is inherited")

	require.NoError(t, h.run(t, `hup sh -c 'kill -HUP $$; exit 0'`))
	assert.Equal(t, 128+int(syscall.SIGHUP), h.engine.Status())
}

func TestRun_variables(t *testing.T) {
	h := newHarness(t, lightForks)
	h.engine.Vars().Shell.Set("greeting", "hi")

	require.NoError(t, h.run(t, fmt.Sprintf(`echo $greeting "$greeting" > '%s'`, h.path("out"))))

	assert.Equal(t, "hi hi\n", h.read(t, "out"))
}

func TestRun_exitStopsTheLine(t *testing.T) {
	h := newHarness(t, lightForks)

	require.NoError(t, h.run(t, fmt.Sprintf(`exit 2; sh -c 'printf late' > '%s'`, h.path("out"))))

	code, exited := h.engine.ExitRequested()
	assert.True(t, exited)
	assert.Equal(t, 2, code)
	assert.NoFileExists(t, h.path("out"))
}
