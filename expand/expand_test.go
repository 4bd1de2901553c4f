package expand

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/parser"
)

// memEnv is a minimal in-memory Environ/WriteEnviron for exercising the
// expansion pipeline without pulling in interp.Vars, following the
// teacher's own expand/environ_test.go style of a map-backed Funcenv
// fake standing in for the real variable table.
type memEnv map[string]Variable

func (m memEnv) Get(name string) Variable { return m[name] }

func (m memEnv) Each(fn func(name string, vr Variable) bool) {
	for k, v := range m {
		if !fn(k, v) {
			return
		}
	}
}

func (m memEnv) Set(name string, vr Variable) error {
	m[name] = vr
	return nil
}

func firstArgWord(t *testing.T, src string) *ast.Word {
	t.Helper()
	p := parser.New(src, parser.Config{})
	cl, state, err := p.Parse()
	if err != nil || state != parser.Complete {
		t.Fatalf("parse(%q): state=%v err=%v", src, state, err)
	}
	sc := cl.Lists[0].Pipelines[0].Commands[0].(*ast.SimpleCommand)
	return sc.Args[len(sc.Args)-1]
}

func fieldsOf(t *testing.T, env memEnv, src string) []string {
	t.Helper()
	cfg := &Config{Env: env}
	got, err := Fields(firstArgWord(t, src), cfg)
	if err != nil {
		t.Fatalf("Fields(%q): %v", src, err)
	}
	return got
}

// TestIFSSplittingWhitespaceCollapses exercises the whitespace half of
// invariant 7 from spec.md §8: runs of whitespace IFS characters collapse
// to one boundary and are trimmed from both ends.
func TestIFSSplittingWhitespaceCollapses(t *testing.T) {
	c := qt.New(t)
	env := memEnv{"x": {Set: true, Kind: String, Str: "  a  b  "}}
	got := fieldsOf(t, env, `echo $x`)
	c.Assert(got, qt.DeepEquals, []string{"a", "b"})
}

// TestIFSSplittingNonWhitespacePreservesEmpty exercises the other half:
// non-whitespace IFS characters always produce a boundary, even when that
// yields an empty field.
func TestIFSSplittingNonWhitespacePreservesEmpty(t *testing.T) {
	c := qt.New(t)
	env := memEnv{
		"IFS": {Set: true, Kind: String, Str: ":"},
		"x":   {Set: true, Kind: String, Str: "a::b"},
	}
	got := fieldsOf(t, env, `echo $x`)
	c.Assert(got, qt.DeepEquals, []string{"a", "", "b"})
}

// TestIFSEmptyDisablesSplitting covers the boundary behaviour `IFS=` from
// spec.md §8: no word splitting at all.
func TestIFSEmptyDisablesSplitting(t *testing.T) {
	c := qt.New(t)
	env := memEnv{
		"IFS": {Set: true, Kind: String, Str: ""},
		"x":   {Set: true, Kind: String, Str: "a b c"},
	}
	got := fieldsOf(t, env, `echo $x`)
	c.Assert(got, qt.DeepEquals, []string{"a b c"})
}

// TestAtWithZeroPositionalParams covers the boundary behaviour `"$@"` with
// zero positional params: zero fields, not one empty field.
func TestAtWithZeroPositionalParams(t *testing.T) {
	c := qt.New(t)
	env := memEnv{"@": {Set: true, Kind: Indexed, List: nil}}
	got := fieldsOf(t, env, `echo "$@"`)
	c.Assert(got, qt.HasLen, 0)
}

// TestUnsetVariableExpandsEmpty checks that referencing an unset variable
// (without nounset) expands to the empty string and contributes no field
// once whitespace is collapsed around it.
func TestUnsetVariableExpandsEmpty(t *testing.T) {
	c := qt.New(t)
	env := memEnv{}
	got := fieldsOf(t, env, `echo $unset`)
	c.Assert(got, qt.HasLen, 0)
}

func TestLiteralQuoteRemoval(t *testing.T) {
	c := qt.New(t)
	env := memEnv{"x": {Set: true, Kind: String, Str: "hi"}}
	cfg := &Config{Env: env}
	got, err := Literal(firstArgWord(t, `echo pre$x'lit'`), cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, "prehilit")
}
