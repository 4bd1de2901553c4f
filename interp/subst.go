package interp

import (
	"bytes"
	"os"
	"strconv"

	"github.com/philipwilsonTHG/psh/ast"
)

// runCommandSubstitution implements $(...)/`...`: run cl in a subshell
// copy with stdout captured through a real os.Pipe (a concurrent
// goroutine drains it while the subshell runs, so a child that writes
// more than the pipe buffer can't deadlock), trailing newlines trimmed
// per spec.md §4.X.
func (r *Runner) runCommandSubstitution(cl *ast.CommandList) (string, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return "", err
	}
	sub := r.subshellCopy()
	sub.stdout = pw

	out := make(chan []byte, 1)
	go func() {
		var buf bytes.Buffer
		buf.ReadFrom(pr)
		out <- buf.Bytes()
	}()

	_, err = sub.execList(cl)
	pw.Close()
	captured := <-out
	pr.Close()
	if es, ok := err.(ExitShell); ok {
		_ = es
		err = nil
	}
	s := string(captured)
	for len(s) > 0 && s[len(s)-1] == '\n' {
		s = s[:len(s)-1]
	}
	return s, err
}

// runProcessSubstitution implements <(...)/>(...): run cl in a subshell
// copy with its stdin or stdout connected to one end of a real os.Pipe,
// returning the /dev/fd/N path for the *other* end so the enclosing
// command sees an ordinary filename.
func (r *Runner) runProcessSubstitution(dir byte, cl *ast.CommandList) (string, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return "", err
	}
	sub := r.subshellCopy()
	var path string
	if dir == '<' {
		sub.stdout = pw
		path = fdPath(pr.Fd())
		r.extraFDs[int(pr.Fd())] = pr
		go func() {
			defer pw.Close()
			sub.execList(cl)
		}()
	} else {
		sub.stdin = pr
		path = fdPath(pw.Fd())
		r.extraFDs[int(pw.Fd())] = pw
		go func() {
			defer pr.Close()
			sub.execList(cl)
		}()
	}
	return path, nil
}

func fdPath(fd uintptr) string {
	return "/dev/fd/" + strconv.Itoa(int(fd))
}
