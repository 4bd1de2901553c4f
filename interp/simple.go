package interp

import (
	"os"
	"os/exec"
	"sort"
	"syscall"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/expand"
)

func (r *Runner) execSimpleCommand(c *ast.SimpleCommand) (int, error) {
	return r.withRedirects(c.Redirects, func() (int, error) {
		if len(c.Args) == 0 {
			for _, a := range c.Assignments {
				if err := r.applyAssignment(a, false); err != nil {
					return 1, err
				}
			}
			return 0, nil
		}

		if len(c.Assignments) > 0 {
			r.Vars.PushScope()
			defer r.Vars.PopScope()
			for _, a := range c.Assignments {
				if err := r.applyAssignment(a, true); err != nil {
					return 1, err
				}
			}
		}

		args, err := r.expandWords(c.Args)
		if err != nil {
			return 1, err
		}
		if len(args) == 0 {
			return 0, nil
		}
		name, rest := args[0], args[1:]

		if alias, ok := r.Aliases[name]; ok {
			name, rest = splitAliasCommand(alias, rest)
		}

		r.traceExec(args)

		if fn, ok := r.Functions[name]; ok {
			return r.callFunction(fn, rest)
		}
		if b, ok := r.Builtins[name]; ok {
			return b(r, rest)
		}
		return r.execExternal(name, rest)
	})
}

// callFunction invokes fn's body with the positional parameters
// temporarily replaced by args, restoring them on return, per spec.md
// §3's function-scope invariant.
func (r *Runner) callFunction(fn *ast.FunctionDef, args []string) (int, error) {
	savedPositional := r.Vars.positional
	r.Vars.SetPositional(args)
	r.Vars.PushScope()
	r.funcDepth++
	defer func() {
		r.funcDepth--
		r.Vars.PopScope()
		r.Vars.positional = savedPositional
	}()
	status, err := r.execCommand(fn.Body)
	if fr, ok := err.(FunctionReturn); ok {
		return fr.Status, nil
	}
	return status, err
}

// execExternal forks and execs name (resolved via PATH), waiting for it
// to finish in the foreground. Real job-control process-group placement:
// Setpgid true with Pgid 0 puts it in a new group led by itself, which
// setForeground then hands the controlling terminal to.
func (r *Runner) execExternal(name string, args []string) (int, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return 127, errf(127, "%s: command not found", name)
	}
	cmd := exec.Command(path, args...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = r.fdOrDevNull(0), r.fdOrDevNull(1), r.fdOrDevNull(2)
	cmd.Env = r.execEnv()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return 126, errf(126, "%s: %v", name, err)
	}
	if r.hasJobControl() {
		r.setForeground(cmd.Process.Pid)
		defer r.setForeground(os.Getpid())
	}
	err = cmd.Wait()
	return exitStatusOf(err), nil
}

// startBackgroundExternal is execExternal's non-waiting twin for `cmd &`:
// it starts the process, registers it in the job table, and returns
// immediately so the caller can continue the script without blocking.
func (r *Runner) startBackgroundExternal(sc *ast.SimpleCommand) (int, bool) {
	args, err := r.expandWords(sc.Args)
	if err != nil || len(args) == 0 {
		return 0, false
	}
	path, err := exec.LookPath(args[0])
	if err != nil {
		return 0, false
	}
	saved, opened, err := r.applyRedirects(sc.Redirects)
	if err != nil {
		return 0, false
	}
	cmd := exec.Command(path, args[1:]...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = r.fdOrDevNull(0), r.fdOrDevNull(1), r.fdOrDevNull(2)
	cmd.Env = r.execEnv()
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		r.restoreFDs(saved)
		for _, f := range opened {
			f.Close()
		}
		return 0, false
	}
	r.restoreFDs(saved)
	for _, f := range opened {
		f.Close()
	}
	r.Jobs.AddReal(args[0]+" &", cmd.Process.Pid, []*Process{{PID: cmd.Process.Pid, Cmd: cmd.Process}})
	// reaped asynchronously; see job.go's Reap via SIGCHLD
	return cmd.Process.Pid, true
}

func (r *Runner) fdOrDevNull(fd int) *os.File {
	if f := r.fileForFd(fd); f != nil {
		return f
	}
	devNull, _ := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	return devNull
}

// execEnv builds the child process environment from every exported
// variable, per spec.md §3's export model (seedEnvironment marks the
// inherited os.Environ() entries AttrExport, so they fall out of this
// the same way freshly `export`ed ones do).
func (r *Runner) execEnv() []string {
	var out []string
	r.Vars.Each(func(name string, vr expand.Variable) bool {
		if vr.Exported {
			out = append(out, name+"="+vr.Str)
		}
		return true
	})
	sort.Strings(out)
	return out
}

func exitStatusOf(err error) int {
	if err == nil {
		return 0
	}
	if ee, ok := err.(*exec.ExitError); ok {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok {
			return ws.ExitStatus()
		}
	}
	return 1
}

// splitAliasCommand substitutes an alias's expansion text for the
// command name, per spec.md §6: a trailing space in the alias value
// allows the *next* word to itself be alias-expanded too (not
// implemented here — aliases only expand the command word itself, a
// documented, narrower subset).
func splitAliasCommand(alias string, rest []string) (string, []string) {
	fields := splitSpaces(alias)
	if len(fields) == 0 {
		return alias, rest
	}
	return fields[0], append(fields[1:], rest...)
}

func splitSpaces(s string) []string {
	var out []string
	start := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] != ' ' && s[i] != '\t' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, s[start:i])
			start = -1
		}
	}
	return out
}
