package expand

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/philipwilsonTHG/psh/parser"
)

func evalArith(t *testing.T, env memEnv, src string) int64 {
	t.Helper()
	expr, err := parser.ParseArithExpr(src)
	if err != nil {
		t.Fatalf("ParseArithExpr(%q): %v", src, err)
	}
	v, err := EvalArith(expr, &Config{Env: env})
	if err != nil {
		t.Fatalf("EvalArith(%q): %v", src, err)
	}
	return v
}

func TestArithBasicPrecedence(t *testing.T) {
	c := qt.New(t)
	env := memEnv{}
	c.Assert(evalArith(t, env, "1 + 2 * 3"), qt.Equals, int64(7))
	c.Assert(evalArith(t, env, "(1 + 2) * 3"), qt.Equals, int64(9))
	c.Assert(evalArith(t, env, "2 ** 10"), qt.Equals, int64(1024))
}

func TestArithTernary(t *testing.T) {
	c := qt.New(t)
	env := memEnv{}
	c.Assert(evalArith(t, env, "1 ? 2 : 3"), qt.Equals, int64(2))
	c.Assert(evalArith(t, env, "0 ? 2 : 3"), qt.Equals, int64(3))
}

func TestArithVariableReadWrite(t *testing.T) {
	c := qt.New(t)
	env := memEnv{"y": {Set: true, Kind: String, Str: "4"}}
	c.Assert(evalArith(t, env, "y = y + 1"), qt.Equals, int64(5))
	c.Assert(env["y"].Str, qt.Equals, "5")
}

func TestArithBases(t *testing.T) {
	c := qt.New(t)
	env := memEnv{}
	c.Assert(evalArith(t, env, "0x1A"), qt.Equals, int64(26))
	c.Assert(evalArith(t, env, "010"), qt.Equals, int64(8))
	c.Assert(evalArith(t, env, "2#101"), qt.Equals, int64(5))
}

func TestArithDivisionByZero(t *testing.T) {
	c := qt.New(t)
	expr, err := parser.ParseArithExpr("1 / 0")
	c.Assert(err, qt.IsNil)
	_, evalErr := EvalArith(expr, &Config{Env: memEnv{}})
	c.Assert(evalErr, qt.IsNotNil)
}
