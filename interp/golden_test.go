package interp

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/diff"
)

// runCapture runs src to completion with stdout/stderr redirected to an
// os.Pipe and returns the captured bytes — the same plumbing
// cmd/psh/main.go's non-interactive paths use, just read back in-process
// instead of going to the real fds.
func runCapture(t *testing.T, src string) (out string, status int) {
	t.Helper()
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner("psh", nil)
	r.stdout = pw
	r.stderr = pw

	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		io.Copy(&buf, pr)
		close(done)
	}()

	status, err = r.RunSource(src, "<golden>")
	pw.Close()
	<-done
	pr.Close()
	if err != nil {
		t.Fatalf("RunSource(%q): %v", src, err)
	}
	return buf.String(), status
}

// assertGolden compares got against want with go-internal/diff, printing a
// unified diff (the same renderer cmd/psh's --format uses) on mismatch
// instead of a raw string dump.
func assertGolden(t *testing.T, name, got, want string) {
	t.Helper()
	if got == want {
		return
	}
	d := diff.Diff(name+".got", []byte(got), name+".want", []byte(want))
	t.Fatalf("output mismatch:\n%s", d)
}

// The six end-to-end scenarios from spec.md §8, unchanged in meaning per
// SPEC_FULL.md §8.

func TestGoldenNestedCommandSubstInArithmetic(t *testing.T) {
	t.Parallel()
	out, status := runCapture(t, `x=$(( $(echo ')') + 1 )); echo $x`)
	if status != 0 {
		t.Fatalf("status = %d, want 0; output: %q", status, out)
	}
	assertGolden(t, "nested-arith", out, "1\n")
}

func TestGoldenMultipleAtWithAffixes(t *testing.T) {
	t.Parallel()
	out, status := runCapture(t, `set -- 1 2 3; printf '<%s>\n' "a$@b$@c"`)
	if status != 0 {
		t.Fatalf("status = %d, want 0; output: %q", status, out)
	}
	want := "<a1>\n<2>\n<3b1>\n<2>\n<3c>\n"
	assertGolden(t, "at-affixes", out, want)
}

func TestGoldenPipelineWithNestedSubshell(t *testing.T) {
	t.Parallel()
	out, status := runCapture(t, `(echo outer; (echo inner)) | cat`)
	if status != 0 {
		t.Fatalf("status = %d, want 0; output: %q", status, out)
	}
	assertGolden(t, "nested-subshell-pipe", out, "outer\ninner\n")
}

func TestGoldenHeredocWithExpansion(t *testing.T) {
	t.Parallel()
	out, status := runCapture(t, "name=world\ncat <<EOF\nhello $name\nEOF\n")
	if status != 0 {
		t.Fatalf("status = %d, want 0; output: %q", status, out)
	}
	assertGolden(t, "heredoc-expansion", out, "hello world\n")
}

func TestGoldenExtglobInCase(t *testing.T) {
	t.Parallel()
	out, status := runCapture(t, `shopt -s extglob; case abc in @(abc|xyz)) echo match ;; esac`)
	if status != 0 {
		t.Fatalf("status = %d, want 0; output: %q", status, out)
	}
	assertGolden(t, "extglob-case", out, "match\n")
}

func TestGoldenFunctionScopeWithLocal(t *testing.T) {
	t.Parallel()
	out, status := runCapture(t, "x=global\nf() { local x=local; echo $x; }\nf\necho $x\n")
	if status != 0 {
		t.Fatalf("status = %d, want 0; output: %q", status, out)
	}
	assertGolden(t, "local-scope", out, "local\nglobal\n")
}
