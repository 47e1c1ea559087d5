// Package jobs tracks the processes the shell starts, reaps them and reports
// their status.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/josephlewis42/forksh/core/shell"
	"github.com/josephlewis42/forksh/core/tty"
	"golang.org/x/sys/unix"
)

// ErrInterrupted is returned when a foreground wait is abandoned.
var ErrInterrupted = errors.New("wait interrupted")

// Table is the job table. Processes are registered while SIGCHLD is held
// back by Mask, and reaped by a goroutine that handles SIGCHLD through the
// same Mask, so a process is never reaped before it belongs to a job.
type Table struct {
	// Mask gates SIGCHLD handling, it must be shared with whoever starts
	// processes.
	Mask *tty.Mask
	// Out receives job notifications like "[1] 4242".
	Out io.Writer
	Log *log.Logger

	mu      sync.Mutex
	jobs    map[ID]*Job
	byPid   map[int]*Job
	current *Job
	kick    chan struct{}
}

// NewTable creates a table printing notifications to out.
func NewTable(mask *tty.Mask, out io.Writer) *Table {
	return &Table{
		Mask:  mask,
		Out:   out,
		Log:   log.New(io.Discard, "", 0),
		jobs:  make(map[ID]*Job),
		byPid: make(map[int]*Job),
		kick:  make(chan struct{}, 1),
	}
}

// Start reaps children on SIGCHLD until ctx is done.
func (t *Table) Start(ctx context.Context) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGCHLD)

	go func() {
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
			case <-t.kick:
			}
			t.Mask.Deliver(syscall.SIGCHLD, t.reap)
		}
	}()
}

// Group returns the process group of the job under construction, 0 if no
// job is being built.
func (t *Table) Group() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		return 0
	}
	return t.current.Pgid
}

// Register adds pid to the job under construction, starting a new job if
// there is none. A pgid of 0 makes pid the group leader.
func (t *Table) Register(pid, pgid int, n *shell.Node) ID {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current == nil {
		if pgid == 0 {
			pgid = pid
		}
		t.current = newJob(t.nextID(), pgid)
		t.jobs[t.current.ID] = t.current
	}

	job := t.current
	job.Procs = append(job.Procs, &Process{
		Pid:     pid,
		Command: describe(n),
		Last:    !n.Flags.PipeOut,
		Timed:   n.Flags.Timed,
	})
	job.Background = job.Background || n.Flags.Background
	t.byPid[pid] = job

	t.Log.Printf("registered pid %d in job %d (pgid %d)", pid, job.ID, job.Pgid)
	return job.ID
}

func (t *Table) nextID() ID {
	for id := ID(1); ; id++ {
		if _, ok := t.jobs[id]; !ok {
			return id
		}
	}
}

func describe(n *shell.Node) string {
	if n.Kind == shell.KindSubshell {
		return "( ... )"
	}
	return strings.Join(n.Argv, " ")
}

// seal finishes construction of the job, the caller must hold mu.
func (t *Table) seal(id ID) (*Job, bool) {
	job, ok := t.jobs[id]
	if !ok {
		return nil, false
	}
	if t.current == job {
		t.current = nil
	}
	job.sealed = true
	job.settle()
	return job, true
}

// WaitForeground seals the job and waits for it to finish or stop. If ctx is
// done first the wait is abandoned and ErrInterrupted returned; the job keeps
// running and is reported later like a background job.
func (t *Table) WaitForeground(ctx context.Context, id ID) (Result, error) {
	t.mu.Lock()
	job, ok := t.seal(id)
	t.mu.Unlock()
	if !ok {
		return Result{}, fmt.Errorf("job %d: no such job", id)
	}

	select {
	case t.kick <- struct{}{}:
	default:
	}

	select {
	case <-job.done:
	case <-ctx.Done():
		t.mu.Lock()
		job.Background = true
		t.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %v", ErrInterrupted, ctx.Err())
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	result := job.result()
	if result.Stopped {
		job.Background = true
		job.notified = true
		fmt.Fprintf(t.Out, "\nSuspended\n")
	} else {
		delete(t.jobs, job.ID)
	}
	return result, nil
}

// DeferBackground seals the job and announces it as running in the
// background.
func (t *Table) DeferBackground(id ID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.seal(id)
	if !ok {
		return
	}
	job.Background = true

	pids := make([]string, 0, len(job.Procs))
	for _, pid := range job.Pids() {
		pids = append(pids, fmt.Sprint(pid))
	}
	fmt.Fprintf(t.Out, "[%d] %s\n", job.ID, strings.Join(pids, " "))
}

// Notify prints and forgets background jobs that finished since the last
// call.
func (t *Table) Notify(w io.Writer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, job := range t.sorted() {
		if !job.Background || !job.settled {
			continue
		}
		if job.State() == Done {
			fmt.Fprintf(w, "[%d]    %-24s%s\n", job.ID, doneText(job), job.Command())
			delete(t.jobs, job.ID)
			continue
		}
		if !job.notified {
			job.notified = true
			fmt.Fprintf(w, "[%d]    %-24s%s\n", job.ID, job.State(), job.Command())
		}
	}
}

func doneText(job *Job) string {
	if status := job.Status(); status != 0 {
		return fmt.Sprintf("Exit %d", status)
	}
	return "Done"
}

// List prints every known job.
func (t *Table) List(w io.Writer, long bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, job := range t.sorted() {
		if long {
			fmt.Fprintf(w, "[%d]  %d %-10s%s\n", job.ID, job.Pgid, job.State(), job.Command())
		} else {
			fmt.Fprintf(w, "[%d]    %-24s%s\n", job.ID, job.State(), job.Command())
		}
	}
}

// Len returns the number of jobs in the table.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.jobs)
}

func (t *Table) sorted() []*Job {
	out := make([]*Job, 0, len(t.jobs))
	for _, job := range t.jobs {
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// reap collects every registered child that changed state. Only registered
// pids are waited for so children owned by someone else are left alone.
func (t *Table) reap() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for pid, job := range t.byPid {
		var ws unix.WaitStatus
		var usage unix.Rusage
		wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG|unix.WUNTRACED, &usage)
		p := job.proc(pid)

		switch {
		case errors.Is(err, unix.ECHILD):
			t.Log.Printf("pid %d was reaped elsewhere", pid)
			p.State = Done
			p.Status = 1
		case err != nil:
			t.Log.Printf("wait4(%d): %v", pid, err)
			continue
		case wpid == 0:
			continue
		case ws.Stopped():
			p.State = Stopped
			p.Signal = ws.StopSignal()
		case ws.Signaled():
			p.State = Done
			p.Signal = ws.Signal()
			p.Status = 128 + int(ws.Signal())
			p.Usage = usage
		default:
			p.State = Done
			p.Status = ws.ExitStatus()
			p.Usage = usage
		}

		if p.State == Done {
			delete(t.byPid, pid)
		}
		job.settle()
	}
}
