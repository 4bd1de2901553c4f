package interp

import (
	"os"
	"sync"

	"github.com/philipwilsonTHG/psh/ast"
	"golang.org/x/sys/unix"
)

// JobState is a Job's run state, per spec.md §3.
type JobState int

const (
	JobRunning JobState = iota
	JobStopped
	JobDone
)

func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "Running"
	case JobStopped:
		return "Stopped"
	default:
		return "Done"
	}
}

// Process is one forked child of a Job's pipeline.
type Process struct {
	PID    int
	Cmd    *os.Process
	Status int
	Done   bool
}

// Job is one pipeline run in the background (or stopped), per spec.md
// §3/§4.J. PGID is the process group id for real forked pipelines; for a
// backgrounded compound command that could not be handed to os/exec
// directly (see runBackground), PGID is a synthetic negative id used only
// to key the job table and populate $!.
type Job struct {
	ID         int
	PGID       int
	Command    string
	Processes  []*Process
	State      JobState
	Foreground bool
	Notified   bool
	aol        *ast.AndOrList
}

// JobTable tracks background and stopped jobs, following the teacher's
// lack of one (mvdan-sh never forks) generalized per spec.md §4.J: this
// is the piece of runtime substrate built fresh rather than adapted.
type JobTable struct {
	mu       sync.Mutex
	jobs     map[int]*Job
	nextID   int
	nextPGID int // synthetic pgid counter for pseudo (in-process) jobs
}

func NewJobTable() *JobTable {
	return &JobTable{jobs: map[int]*Job{}, nextID: 1, nextPGID: -2}
}

func (t *JobTable) add(j *Job) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j.ID = t.nextID
	t.nextID++
	t.jobs[j.ID] = j
}

// AddReal registers a job backed by real forked processes.
func (t *JobTable) AddReal(command string, pgid int, procs []*Process) *Job {
	j := &Job{PGID: pgid, Command: command, Processes: procs, State: JobRunning}
	t.add(j)
	return j
}

// newPseudoJob registers a job for a backgrounded command that runs as
// an in-process goroutine rather than a forked process (see
// Runner.runBackground): it still gets a stable synthetic PGID so `jobs`
// and `$!` behave, but `wait`/`kill` on it only affect the goroutine's
// completion channel, not a real OS process.
func (t *JobTable) newPseudoJob(aol *ast.AndOrList) *Job {
	t.mu.Lock()
	pgid := t.nextPGID
	t.nextPGID--
	t.mu.Unlock()
	j := &Job{PGID: pgid, Command: "(background)", State: JobRunning, aol: aol}
	t.add(j)
	return j
}

func (t *JobTable) finish(j *Job, status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j.State = JobDone
	if len(j.Processes) > 0 {
		j.Processes[0].Status = status
		j.Processes[0].Done = true
	}
}

// List returns all known jobs, sorted by ID (used by the `jobs` builtin).
func (t *JobTable) List() []*Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Job, 0, len(t.jobs))
	for _, j := range t.jobs {
		out = append(out, j)
	}
	for i := 1; i < len(out); i++ {
		for k := i; k > 0 && out[k].ID < out[k-1].ID; k-- {
			out[k], out[k-1] = out[k-1], out[k]
		}
	}
	return out
}

func (t *JobTable) Get(id int) (*Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	return j, ok
}

// Reap drains completed real processes without blocking. It is called
// from StartSignalLoop's goroutine on every SIGCHLD (see signal.go:
// os/signal.Notify is the self-pipe) and from waitJob's polling loop; the
// Runner's main loop does not call it.
func (t *JobTable) Reap() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, j := range t.jobs {
		if j.State != JobRunning || j.PGID < 0 {
			continue
		}
		allDone := true
		for _, p := range j.Processes {
			if p.Done {
				continue
			}
			var ws unix.WaitStatus
			pid, err := unix.Wait4(p.PID, &ws, unix.WNOHANG, nil)
			if err != nil || pid == 0 {
				allDone = false
				continue
			}
			p.Done = true
			p.Status = ws.ExitStatus()
		}
		if allDone {
			j.State = JobDone
		}
	}
}
