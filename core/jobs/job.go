package jobs

import (
	"fmt"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// ID numbers a job the way it is shown to the user, starting at 1.
type ID int

// State of a process or job.
type State int

const (
	Running State = iota
	Stopped
	Done
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Stopped:
		return "Suspended"
	default:
		return "Done"
	}
}

// Process is one child registered with the table.
type Process struct {
	Pid     int
	Command string
	// Last marks the pipeline stage whose status becomes the job's status.
	Last  bool
	Timed bool

	State  State
	Status int
	Signal syscall.Signal
	Usage  unix.Rusage
}

// Job is a set of processes started for one pipeline or command.
type Job struct {
	ID         ID
	Pgid       int
	Procs      []*Process
	Background bool
	Started    time.Time

	// sealed is set once no more processes will join the job.
	sealed   bool
	settled  bool
	done     chan struct{}
	notified bool
}

func newJob(id ID, pgid int) *Job {
	return &Job{
		ID:      id,
		Pgid:    pgid,
		Started: time.Now(),
		done:    make(chan struct{}),
	}
}

func (j *Job) proc(pid int) *Process {
	for _, p := range j.Procs {
		if p.Pid == pid {
			return p
		}
	}
	return nil
}

// State summarizes the processes: Running if any runs, Stopped if any is
// stopped, Done otherwise.
func (j *Job) State() State {
	state := Done
	for _, p := range j.Procs {
		switch p.State {
		case Running:
			return Running
		case Stopped:
			state = Stopped
		}
	}
	return state
}

// Status is the exit status of the job's last stage.
func (j *Job) Status() int {
	if len(j.Procs) == 0 {
		return 0
	}
	for _, p := range j.Procs {
		if p.Last {
			return p.Status
		}
	}
	return j.Procs[len(j.Procs)-1].Status
}

// Command renders the job the way the user typed it, stages joined by pipes.
func (j *Job) Command() string {
	var parts []string
	for _, p := range j.Procs {
		parts = append(parts, p.Command)
	}
	return strings.Join(parts, " | ")
}

// Pids lists the process ids in registration order.
func (j *Job) Pids() []int {
	out := make([]int, len(j.Procs))
	for i, p := range j.Procs {
		out[i] = p.Pid
	}
	return out
}

func (j *Job) settle() {
	if j.settled || !j.sealed || j.State() == Running {
		return
	}
	j.settled = true
	close(j.done)
}

func (j *Job) result() Result {
	r := Result{
		Status:  j.Status(),
		Stopped: j.State() == Stopped,
		Elapsed: time.Since(j.Started),
	}
	for _, p := range j.Procs {
		if !p.Timed {
			continue
		}
		r.Timed = true
		r.User += time.Duration(p.Usage.Utime.Nano())
		r.System += time.Duration(p.Usage.Stime.Nano())
	}
	return r
}

// Result is what a foreground wait reports.
type Result struct {
	Status  int
	Stopped bool

	// Timed is set when any stage asked for resource usage.
	Timed   bool
	User    time.Duration
	System  time.Duration
	Elapsed time.Duration
}

// TimeReport formats the usage in the style of the time builtin.
func (r Result) TimeReport() string {
	percent := 0.0
	if r.Elapsed > 0 {
		percent = 100 * float64(r.User+r.System) / float64(r.Elapsed)
	}
	elapsed := r.Elapsed.Round(10 * time.Millisecond)
	minutes := int(elapsed / time.Minute)
	seconds := (elapsed % time.Minute).Seconds()
	return fmt.Sprintf("%.3fu %.3fs %d:%05.2f %.1f%%", r.User.Seconds(), r.System.Seconds(), minutes, seconds, percent)
}
