package interp

import (
	"os"
	"regexp"
	"strconv"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/glob"
)

// evalTest evaluates a `[[ ... ]]` (or `test`/`[`, via its shared
// TestWord/TestUnary/TestBinary shape) expression tree, following the
// teacher's recursive evaluator shape (interp/test.go) generalized over
// ast.TestExpr instead of syntax.TestExpr.
func (r *Runner) evalTest(t ast.TestExpr) (bool, error) {
	switch x := t.(type) {
	case *ast.TestWord:
		s, err := r.testOperand(x.W)
		if err != nil {
			return false, err
		}
		return s != "", nil
	case *ast.TestNot:
		v, err := r.evalTest(x.X)
		return !v, err
	case *ast.TestParen:
		return r.evalTest(x.X)
	case *ast.TestAndOr:
		l, err := r.evalTest(x.X)
		if err != nil {
			return false, err
		}
		if x.Op == ast.TestAnd && !l {
			return false, nil
		}
		if x.Op == ast.TestOr && l {
			return true, nil
		}
		return r.evalTest(x.Y)
	case *ast.TestUnary:
		return r.evalTestUnary(x)
	case *ast.TestBinary:
		return r.evalTestBinary(x)
	default:
		return false, errf(2, "unsupported test expression %T", t)
	}
}

func (r *Runner) testOperand(w *ast.Word) (string, error) {
	return r.expandLiteral(w)
}

func (r *Runner) evalTestUnary(u *ast.TestUnary) (bool, error) {
	tw, ok := u.X.(*ast.TestWord)
	if !ok {
		return false, errf(2, "unary test operand must be a word")
	}
	s, err := r.testOperand(tw.W)
	if err != nil {
		return false, err
	}
	switch u.Op {
	case ast.TestStrEmpty:
		return s == "", nil
	case ast.TestStrNonEmpty:
		return s != "", nil
	case ast.TestVarSet:
		return r.Vars.Get(s).Declared(), nil
	case ast.TestNameref:
		vr, ok := r.Vars.GetVar(s)
		return ok && vr.Attrs.has(AttrNameref), nil
	}
	info, statErr := os.Stat(s)
	switch u.Op {
	case ast.TestFileExists:
		return statErr == nil, nil
	case ast.TestRegularFile:
		return statErr == nil && info.Mode().IsRegular(), nil
	case ast.TestDirectory:
		return statErr == nil && info.IsDir(), nil
	case ast.TestNonEmptyFile:
		return statErr == nil && info.Size() > 0, nil
	case ast.TestSymlink:
		li, err := os.Lstat(s)
		return err == nil && li.Mode()&os.ModeSymlink != 0, nil
	case ast.TestFIFO:
		return statErr == nil && info.Mode()&os.ModeNamedPipe != 0, nil
	case ast.TestSocket:
		return statErr == nil && info.Mode()&os.ModeSocket != 0, nil
	case ast.TestBlockDev:
		return statErr == nil && info.Mode()&os.ModeDevice != 0 && info.Mode()&os.ModeCharDevice == 0, nil
	case ast.TestCharDev:
		return statErr == nil && info.Mode()&os.ModeCharDevice != 0, nil
	case ast.TestTTY:
		n, err := strconv.Atoi(s)
		if err != nil {
			return false, nil
		}
		return r.fdIsTTY(n), nil
	case ast.TestReadable:
		return statErr == nil && info.Mode().Perm()&0400 != 0, nil
	case ast.TestWritable:
		return statErr == nil && info.Mode().Perm()&0200 != 0, nil
	case ast.TestExecutable:
		return statErr == nil && info.Mode().Perm()&0100 != 0, nil
	}
	return false, errf(2, "unsupported unary test operator")
}

func (r *Runner) fdIsTTY(fd int) bool {
	f := r.fileForFd(fd)
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

func (r *Runner) evalTestBinary(b *ast.TestBinary) (bool, error) {
	lw, lok := b.X.(*ast.TestWord)
	rw, rok := b.Y.(*ast.TestWord)
	if !lok || !rok {
		return false, errf(2, "binary test operands must be words")
	}
	l, err := r.testOperand(lw.W)
	if err != nil {
		return false, err
	}
	rv, err := r.testOperand(rw.W)
	if err != nil {
		return false, err
	}
	switch b.Op {
	case ast.TestStrEq:
		return globOrEqual(l, rv)
	case ast.TestStrNe:
		eq, err := globOrEqual(l, rv)
		return !eq, err
	case ast.TestStrLt:
		return l < rv, nil
	case ast.TestStrGt:
		return l > rv, nil
	case ast.TestGlobMatch:
		return glob.Match(rv, l, glob.Options{ExtGlob: true})
	case ast.TestGlobNoMatch:
		ok, err := glob.Match(rv, l, glob.Options{ExtGlob: true})
		return !ok, err
	case ast.TestRegexMatch:
		re, err := regexp.Compile(rv)
		if err != nil {
			return false, err
		}
		return re.MatchString(l), nil
	case ast.TestNumEq, ast.TestNumNe, ast.TestNumLt, ast.TestNumLe, ast.TestNumGt, ast.TestNumGe:
		ln, err := strconv.ParseInt(l, 10, 64)
		if err != nil {
			return false, errf(2, "%s: not a number", l)
		}
		rn, err := strconv.ParseInt(rv, 10, 64)
		if err != nil {
			return false, errf(2, "%s: not a number", rv)
		}
		switch b.Op {
		case ast.TestNumEq:
			return ln == rn, nil
		case ast.TestNumNe:
			return ln != rn, nil
		case ast.TestNumLt:
			return ln < rn, nil
		case ast.TestNumLe:
			return ln <= rn, nil
		case ast.TestNumGt:
			return ln > rn, nil
		case ast.TestNumGe:
			return ln >= rn, nil
		}
	case ast.TestNewer, ast.TestOlder, ast.TestSameFile:
		li, lerr := os.Stat(l)
		ri, rerr := os.Stat(rv)
		if lerr != nil || rerr != nil {
			return false, nil
		}
		switch b.Op {
		case ast.TestNewer:
			return li.ModTime().After(ri.ModTime()), nil
		case ast.TestOlder:
			return li.ModTime().Before(ri.ModTime()), nil
		case ast.TestSameFile:
			return os.SameFile(li, ri), nil
		}
	}
	return false, errf(2, "unsupported binary test operator")
}

// globOrEqual implements `[[ x == pattern ]]`. The binary-test AST doesn't
// distinguish `[[ ]]` from `test`/`[`, and builtin_cond.go evaluates
// through the same evalTest, so `test`/`[` = == != also glob-match an
// unquoted right operand that contains pattern characters.
func globOrEqual(s, pat string) (bool, error) {
	if !glob.HasMeta(pat, glob.ExtGlob) {
		return s == pat, nil
	}
	return glob.Match(pat, s, glob.Options{ExtGlob: true})
}
