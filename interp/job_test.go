// Copyright (c) 2019, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

//go:build !windows

package interp

import (
	"bufio"
	"os"
	"strings"
	"testing"

	"github.com/creack/pty"
)

// TestTTYDetection runs `test -t 0` and `test -t 1` against a real pseudo
// terminal and against a plain pipe, following the teacher's own
// terminal_test.go pattern of swapping the Runner's stdio for a pty to
// exercise job-control/terminal-dependent codepaths that a plain os.Pipe
// can't.
func TestTTYDetection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(t *testing.T) (*os.File, bool) // returns the fd to attach, and whether it's a tty
	}{
		{"Pseudo", func(t *testing.T) (*os.File, bool) {
			_, tty, err := pty.Open()
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { tty.Close() })
			return tty, true
		}},
		{"Pipe", func(t *testing.T) (*os.File, bool) {
			pr, pw, err := os.Pipe()
			if err != nil {
				t.Fatal(err)
			}
			t.Cleanup(func() { pr.Close(); pw.Close() })
			return pr, false
		}},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			f, wantTTY := test.setup(t)

			r := NewRunner("psh", nil)
			r.stdin = f
			status, err := r.RunSource(`test -t 0`, "<test>")
			if err != nil {
				t.Fatalf("RunSource: %v", err)
			}
			gotTTY := status == 0
			if gotTTY != wantTTY {
				t.Fatalf("test -t 0 on %s: status=%d, want tty=%v", test.name, status, wantTTY)
			}
		})
	}
}

// TestReadOverPTY exercises the `read` builtin's line-at-a-time protocol
// against a pseudo terminal's line-discipline (CRLF translation included),
// the same way the teacher's TestRunnerTerminalStdIO swaps a Runner's
// stdio for a pty master/slave pair.
func TestReadOverPTY(t *testing.T) {
	t.Parallel()

	ptyMaster, ttySlave, err := pty.Open()
	if err != nil {
		t.Fatal(err)
	}
	defer ptyMaster.Close()
	defer ttySlave.Close()

	r := NewRunner("psh", nil)
	r.stdin = ttySlave
	r.stdout = ttySlave

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := r.RunSource(`read line; echo "got:$line"`, "<test>"); err != nil {
			t.Error(err)
		}
	}()

	if _, err := ptyMaster.WriteString("hello world\n"); err != nil {
		t.Fatal(err)
	}

	rd := bufio.NewReader(ptyMaster)
	// The slave's line discipline echoes the typed line back first.
	if _, err := rd.ReadString('\n'); err != nil {
		t.Fatal(err)
	}
	got, err := rd.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	got = strings.TrimRight(got, "\r\n")
	if got != "got:hello world" {
		t.Fatalf("got %q, want %q", got, "got:hello world")
	}
	<-done
}
