package interp

import (
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// TrapTable maps a signal name (or the pseudo-signals EXIT/DEBUG/ERR/
// RETURN) to the command string `trap` registered for it, per spec.md
// §3's Trap table.
type TrapTable struct {
	mu    sync.Mutex
	traps map[string]string
}

func NewTrapTable() *TrapTable {
	return &TrapTable{traps: map[string]string{}}
}

func (t *TrapTable) Set(name, command string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if command == "" {
		delete(t.traps, name)
		return
	}
	t.traps[name] = command
}

func (t *TrapTable) Get(name string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cmd, ok := t.traps[name]
	return cmd, ok
}

func (t *TrapTable) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.traps))
	for n := range t.traps {
		out = append(out, n)
	}
	return out
}

// signalTable maps the trap command's symbolic names to unix signal
// numbers, for the subset POSIX shells commonly trap.
var signalTable = map[string]unix.Signal{
	"HUP": unix.SIGHUP, "INT": unix.SIGINT, "QUIT": unix.SIGQUIT,
	"ILL": unix.SIGILL, "ABRT": unix.SIGABRT, "FPE": unix.SIGFPE,
	"KILL": unix.SIGKILL, "SEGV": unix.SIGSEGV, "PIPE": unix.SIGPIPE,
	"ALRM": unix.SIGALRM, "TERM": unix.SIGTERM, "USR1": unix.SIGUSR1,
	"USR2": unix.SIGUSR2, "CHLD": unix.SIGCHLD, "CONT": unix.SIGCONT,
	"STOP": unix.SIGSTOP, "TSTP": unix.SIGTSTP, "TTIN": unix.SIGTTIN,
	"TTOU": unix.SIGTTOU,
}

// StartSignalLoop wires os/signal.Notify into a buffered channel and
// runs reaping/trap-dispatch in a background goroutine for the process's
// lifetime. Per spec.md §9: Go's runtime signal handler is itself the
// "self-pipe" the design calls for — it is the only code that touches the
// real OS signal action, writing into a lock-free queue that
// signal.Notify drains into the channel read here, so no separate pipe
// plumbing is needed.
func (r *Runner) StartSignalLoop() {
	ch := make(chan os.Signal, 32)
	signal.Notify(ch, unix.SIGCHLD, unix.SIGINT, unix.SIGTERM, unix.SIGHUP)
	go func() {
		for sig := range ch {
			switch sig {
			case unix.SIGCHLD:
				r.Jobs.Reap()
			default:
				r.dispatchTrap(signalName(sig))
			}
		}
	}()
}

func signalName(sig os.Signal) string {
	for name, s := range signalTable {
		if s == sig {
			return name
		}
	}
	return ""
}

func (r *Runner) dispatchTrap(name string) {
	cmd, ok := r.Traps.Get(name)
	if !ok || cmd == "" {
		return
	}
	r.RunSource(cmd, "trap")
}
