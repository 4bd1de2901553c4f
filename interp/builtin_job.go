package interp

import (
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

func registerJobBuiltins(r *Runner) {
	r.Builtins["jobs"] = builtinJobs
	r.Builtins["fg"] = builtinFg
	r.Builtins["bg"] = builtinBg
	r.Builtins["wait"] = builtinWait
	r.Builtins["kill"] = builtinKill
	r.Builtins["trap"] = builtinTrap
}

func builtinJobs(r *Runner, args []string) (int, error) {
	for _, j := range r.Jobs.List() {
		r.stdout.WriteString("[" + strconv.Itoa(j.ID) + "] " + j.State.String() + "  " + j.Command + "\n")
	}
	return 0, nil
}

// builtinFg/builtinBg resolve a `%N` job spec (defaulting to the most
// recently added job) and, for fg, hand it the controlling terminal via
// setForeground before waiting on it, per spec.md §4.J.
func builtinFg(r *Runner, args []string) (int, error) {
	j, ok := resolveJobSpec(r, args)
	if !ok {
		return 1, errf(1, "fg: no such job")
	}
	j.Foreground = true
	if j.PGID > 0 {
		r.setForeground(j.PGID)
		defer r.setForeground(r.shellPGID())
	}
	return waitJob(r, j), nil
}

func builtinBg(r *Runner, args []string) (int, error) {
	j, ok := resolveJobSpec(r, args)
	if !ok {
		return 1, errf(1, "bg: no such job")
	}
	if j.PGID > 0 {
		unix.Kill(-j.PGID, unix.SIGCONT)
	}
	return 0, nil
}

func resolveJobSpec(r *Runner, args []string) (*Job, bool) {
	if len(args) == 0 {
		jobs := r.Jobs.List()
		if len(jobs) == 0 {
			return nil, false
		}
		return jobs[len(jobs)-1], true
	}
	spec := strings.TrimPrefix(args[0], "%")
	id, err := strconv.Atoi(spec)
	if err != nil {
		return nil, false
	}
	return r.Jobs.Get(id)
}

func (r *Runner) shellPGID() int {
	pgid, err := unix.Getpgid(0)
	if err != nil {
		return 0
	}
	return pgid
}

// waitJob polls the job table until j finishes, calling job.go's Reap
// (a non-blocking wait4) between sleeps as well as relying on the SIGCHLD
// loop's own calls to it.
func waitJob(r *Runner, j *Job) int {
	for j.State == JobRunning {
		time.Sleep(10 * time.Millisecond)
		r.Jobs.Reap()
	}
	if len(j.Processes) > 0 {
		return j.Processes[0].Status
	}
	return 0
}

func builtinWait(r *Runner, args []string) (int, error) {
	if len(args) == 0 {
		for _, j := range r.Jobs.List() {
			waitJob(r, j)
		}
		return 0, nil
	}
	status := 0
	for _, a := range args {
		id, err := strconv.Atoi(strings.TrimPrefix(a, "%"))
		if err != nil {
			continue
		}
		if j, ok := r.Jobs.Get(id); ok {
			status = waitJob(r, j)
		}
	}
	return status, nil
}

func builtinKill(r *Runner, args []string) (int, error) {
	sig := unix.SIGTERM
	i := 0
	if len(args) > 0 && strings.HasPrefix(args[0], "-") {
		if s, ok := signalTable[strings.ToUpper(strings.TrimPrefix(args[0], "-"))]; ok {
			sig = s
		} else if n, err := strconv.Atoi(strings.TrimPrefix(args[0], "-")); err == nil {
			sig = unix.Signal(n)
		}
		i++
	}
	for ; i < len(args); i++ {
		target := args[i]
		if strings.HasPrefix(target, "%") {
			j, ok := resolveJobSpec(r, []string{target})
			if !ok {
				continue
			}
			unix.Kill(-j.PGID, sig)
			continue
		}
		pid, err := strconv.Atoi(target)
		if err != nil {
			continue
		}
		unix.Kill(pid, sig)
	}
	return 0, nil
}

// builtinTrap registers cmd for each named signal/pseudo-signal (EXIT,
// DEBUG, ERR, RETURN, or a real signal name), per spec.md §4.J. `trap` with
// no arguments, or with -p as its first argument, lists the current traps.
func builtinTrap(r *Runner, args []string) (int, error) {
	if len(args) == 0 || args[0] == "-p" {
		for _, name := range r.Traps.Names() {
			cmd, _ := r.Traps.Get(name)
			r.stdout.WriteString("trap -- '" + cmd + "' " + name + "\n")
		}
		return 0, nil
	}
	cmd := args[0]
	for _, name := range args[1:] {
		r.Traps.Set(strings.ToUpper(name), cmd)
	}
	return 0, nil
}
