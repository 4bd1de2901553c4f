package interp

import (
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// termState caches whether the controlling terminal is usable for job
// control, per spec.md §5's "Terminal: failure (ENOTTY, no controlling
// terminal) is cached and treated as 'no job control available'".
type termState struct {
	checked   bool
	available bool
	fd        int
}

func (r *Runner) hasJobControl() bool {
	if !r.term.checked {
		r.term.fd = int(os.Stdin.Fd())
		r.term.available = term.IsTerminal(r.term.fd)
		r.term.checked = true
	}
	return r.term.available && r.Opts.Monitor
}

// setForeground hands the controlling terminal to pgid via TIOCSPGRP —
// the Go-idiomatic tcsetpgrp, per spec.md §4.J. Failure is non-fatal: a
// shell without a controlling terminal just never calls this.
func (r *Runner) setForeground(pgid int) error {
	if !r.hasJobControl() {
		return nil
	}
	return unix.IoctlSetPointerInt(r.term.fd, unix.TIOCSPGRP, pgid)
}

// withTerminalState saves the current terminal mode, runs fn, and
// restores it afterward — used around foreground job handoffs so a
// stopped job's raw-mode changes don't leak back to the shell's own
// prompt, per spec.md §4.J.
func (r *Runner) withTerminalState(fn func() error) error {
	if !r.hasJobControl() {
		return fn()
	}
	state, err := term.GetState(r.term.fd)
	if err != nil {
		return fn()
	}
	defer term.Restore(r.term.fd, state)
	return fn()
}
