package interp

import (
	"os"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/parser"
)

// fdTable is the in-process analogue of the teacher's []*os.File fd
// array in interp/interp.go, generalized so redirects can be applied and
// then exactly undone around a single command's execution (spec.md §5's
// "every redirect is undone exactly once" invariant).
type fdTable struct {
	stdin, stdout, stderr *os.File
	extra                 map[int]*os.File // fd >= 3, opened for n>file/n<file forms
}

func (r *Runner) currentFDs() fdTable {
	return fdTable{stdin: r.stdin, stdout: r.stdout, stderr: r.stderr, extra: r.extraFDs}
}

func (r *Runner) restoreFDs(saved fdTable) {
	r.stdin, r.stdout, r.stderr = saved.stdin, saved.stdout, saved.stderr
	r.extraFDs = saved.extra
}

// applyRedirects mutates r's current fd set per rs, returning the prior
// set so the caller can restore it with restoreFDs once the command
// finishes, and any files this call opened so they can be closed.
func (r *Runner) applyRedirects(rs []*ast.Redirect) (saved fdTable, opened []*os.File, err error) {
	saved = r.currentFDs()
	newExtra := map[int]*os.File{}
	for k, v := range r.extraFDs {
		newExtra[k] = v
	}
	r.extraFDs = newExtra

	for _, rd := range rs {
		if err := r.applyOne(rd, &opened); err != nil {
			r.restoreFDs(saved)
			return saved, opened, err
		}
	}
	return saved, opened, nil
}

func (r *Runner) applyOne(rd *ast.Redirect, opened *[]*os.File) error {
	targetFd := func(def int) int {
		if rd.HasFd {
			return rd.Fd
		}
		return def
	}
	setFile := func(fd int, f *os.File) {
		switch fd {
		case 0:
			r.stdin = f
		case 1:
			r.stdout = f
		case 2:
			r.stderr = f
		default:
			r.extraFDs[fd] = f
		}
	}
	getFile := func(fd int) *os.File {
		switch fd {
		case 0:
			return r.stdin
		case 1:
			return r.stdout
		case 2:
			return r.stderr
		default:
			return r.extraFDs[fd]
		}
	}

	switch rd.Op {
	case ast.RedirLess:
		path, err := r.redirectTarget(rd)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return &RedirectError{Op: "<" + path, Err: err}
		}
		*opened = append(*opened, f)
		setFile(targetFd(0), f)

	case ast.RedirGreat, ast.RedirClobber:
		path, err := r.redirectTarget(rd)
		if err != nil {
			return err
		}
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if r.Opts.Noclobber && rd.Op == ast.RedirGreat {
			flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
		}
		f, err := os.OpenFile(path, flags, 0644)
		if err != nil {
			return &RedirectError{Op: ">" + path, Err: err}
		}
		*opened = append(*opened, f)
		setFile(targetFd(1), f)

	case ast.RedirAppend, ast.RedirErrAppend, ast.RedirAmpAppend:
		path, err := r.redirectTarget(rd)
		if err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return &RedirectError{Op: ">>" + path, Err: err}
		}
		*opened = append(*opened, f)
		def := 1
		if rd.Op == ast.RedirErrAppend {
			def = 2
		}
		setFile(targetFd(def), f)
		if rd.Op == ast.RedirAmpAppend {
			r.stdout, r.stderr = f, f
		}

	case ast.RedirErr:
		path, err := r.redirectTarget(rd)
		if err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return &RedirectError{Op: "2>" + path, Err: err}
		}
		*opened = append(*opened, f)
		r.stderr = f

	case ast.RedirAmp:
		path, err := r.redirectTarget(rd)
		if err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return &RedirectError{Op: "&>" + path, Err: err}
		}
		*opened = append(*opened, f)
		r.stdout, r.stderr = f, f

	case ast.RedirHereString:
		text, err := r.expandLiteral(rd.Target)
		if err != nil {
			return err
		}
		pr, pw, err := os.Pipe()
		if err != nil {
			return &RedirectError{Op: "<<<", Err: err}
		}
		go func() { defer pw.Close(); pw.WriteString(text + "\n") }()
		*opened = append(*opened, pr)
		setFile(targetFd(0), pr)

	case ast.RedirHeredoc, ast.RedirHeredocTabs:
		body := rd.HeredocPayload
		if rd.HeredocStripTabs {
			body = stripLeadingTabs(body)
		}
		if !rd.HeredocQuoted {
			expanded, err := r.expandHeredocBody(body)
			if err == nil {
				body = expanded
			}
		}
		pr, pw, err := os.Pipe()
		if err != nil {
			return &RedirectError{Op: "<<", Err: err}
		}
		go func() { defer pw.Close(); pw.WriteString(body) }()
		*opened = append(*opened, pr)
		setFile(targetFd(0), pr)

	case ast.RedirDupIn, ast.RedirDupOut:
		lit, ok := rd.Target.Lit()
		if !ok {
			return errf(1, "bad fd duplication target")
		}
		if lit == "-" {
			def := 0
			if rd.Op == ast.RedirDupOut {
				def = 1
			}
			setFile(targetFd(def), nil)
			return nil
		}
		src, err := parseFd(lit)
		if err != nil {
			return err
		}
		def := 0
		if rd.Op == ast.RedirDupOut {
			def = 1
		}
		setFile(targetFd(def), getFile(src))

	case ast.RedirCloseIn:
		setFile(targetFd(0), nil)
	case ast.RedirCloseOut:
		setFile(targetFd(1), nil)

	case ast.RedirReadWrite:
		path, err := r.redirectTarget(rd)
		if err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
		if err != nil {
			return &RedirectError{Op: "<>" + path, Err: err}
		}
		*opened = append(*opened, f)
		setFile(targetFd(0), f)
	}
	return nil
}

func (r *Runner) redirectTarget(rd *ast.Redirect) (string, error) {
	return r.expandLiteral(rd.Target)
}

func (r *Runner) expandHeredocBody(body string) (string, error) {
	// Heredoc bodies expand like a double-quoted string: parameter,
	// command, and arithmetic expansion, no field splitting or globbing.
	// We reuse the parser's word-building path via ScanOperand so the
	// same expansion rules apply to both.
	w, err := parser.ParseWordText(body, r.parserConfig)
	if err != nil {
		return body, err
	}
	return r.expandLiteral(w)
}

func stripLeadingTabs(s string) string {
	out := make([]byte, 0, len(s))
	atLineStart := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if atLineStart && c == '\t' {
			continue
		}
		atLineStart = c == '\n'
		out = append(out, c)
	}
	return string(out)
}

func parseFd(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, errf(1, "bad fd number")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, errf(1, "bad fd number %q", s)
		}
		n = n*10 + int(s[i]-'0')
	}
	return n, nil
}
