package parser

import (
	"testing"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/lexer"
)

func mustParse(t *testing.T, src string) *ast.CommandList {
	t.Helper()
	p := New(src, Config{})
	cl, state, err := p.Parse()
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	if state != Complete {
		t.Fatalf("Parse(%q): state = %v, want Complete", src, state)
	}
	return cl
}

func firstCommand(t *testing.T, cl *ast.CommandList) ast.Command {
	t.Helper()
	if len(cl.Lists) != 1 || len(cl.Lists[0].Pipelines) != 1 || len(cl.Lists[0].Pipelines[0].Commands) != 1 {
		t.Fatalf("expected exactly one command, got %#v", cl)
	}
	return cl.Lists[0].Pipelines[0].Commands[0]
}

func TestSimpleCommand(t *testing.T) {
	cl := mustParse(t, "echo hello world\n")
	sc, ok := firstCommand(t, cl).(*ast.SimpleCommand)
	if !ok {
		t.Fatalf("got %T, want *SimpleCommand", firstCommand(t, cl))
	}
	if len(sc.Args) != 3 {
		t.Fatalf("len(Args) = %d, want 3", len(sc.Args))
	}
}

func TestAssignmentAndRedirect(t *testing.T) {
	cl := mustParse(t, "FOO=bar cmd arg >out.txt 2>&1\n")
	sc := firstCommand(t, cl).(*ast.SimpleCommand)
	if len(sc.Assignments) != 1 || sc.Assignments[0].Name != "FOO" {
		t.Fatalf("assignments = %#v", sc.Assignments)
	}
	if len(sc.Redirects) != 2 {
		t.Fatalf("len(Redirects) = %d, want 2", len(sc.Redirects))
	}
}

func TestPipelineAndAndOr(t *testing.T) {
	cl := mustParse(t, "a | b && c || d\n")
	aol := cl.Lists[0]
	if len(aol.Pipelines) != 3 {
		t.Fatalf("len(Pipelines) = %d, want 3", len(aol.Pipelines))
	}
	if len(aol.Pipelines[0].Commands) != 2 {
		t.Fatalf("first pipeline has %d commands, want 2", len(aol.Pipelines[0].Commands))
	}
	if aol.Operators[0] != ast.LogicalAnd || aol.Operators[1] != ast.LogicalOr {
		t.Fatalf("operators = %#v", aol.Operators)
	}
}

func TestBackgroundTerminator(t *testing.T) {
	cl := mustParse(t, "sleep 1 &\n")
	if cl.Terms[0] != ast.TermAmp {
		t.Fatalf("term = %v, want TermAmp", cl.Terms[0])
	}
	sc := cl.Lists[0].Pipelines[0].Commands[0].(*ast.SimpleCommand)
	if !sc.Background {
		t.Fatal("expected Background = true")
	}
}

func TestIfElif(t *testing.T) {
	cl := mustParse(t, "if a; then b; elif c; then d; else e; fi\n")
	ifc := firstCommand(t, cl).(*ast.IfConditional)
	if len(ifc.Elifs) != 1 {
		t.Fatalf("len(Elifs) = %d, want 1", len(ifc.Elifs))
	}
	if ifc.Else == nil {
		t.Fatal("expected Else branch")
	}
}

func TestWhileUntil(t *testing.T) {
	cl := mustParse(t, "while true; do a; done\n")
	if _, ok := firstCommand(t, cl).(*ast.WhileLoop); !ok {
		t.Fatal("expected WhileLoop")
	}
	cl = mustParse(t, "until false; do a; done\n")
	if _, ok := firstCommand(t, cl).(*ast.UntilLoop); !ok {
		t.Fatal("expected UntilLoop")
	}
}

func TestForLoop(t *testing.T) {
	cl := mustParse(t, "for x in a b c; do echo $x; done\n")
	fl := firstCommand(t, cl).(*ast.ForLoop)
	if fl.Var != "x" || !fl.HasIn || len(fl.Words) != 3 {
		t.Fatalf("for loop = %#v", fl)
	}
}

func TestCStyleForLoop(t *testing.T) {
	cl := mustParse(t, "for ((i=0; i<10; i++)); do echo $i; done\n")
	fl := firstCommand(t, cl).(*ast.CStyleForLoop)
	if fl.Init == nil || fl.Cond == nil || fl.Update == nil {
		t.Fatalf("c-style for loop missing clauses: %#v", fl)
	}
}

func TestCaseStatement(t *testing.T) {
	cl := mustParse(t, "case $x in a|b) foo;; *) bar;; esac\n")
	cs := firstCommand(t, cl).(*ast.CaseStatement)
	if len(cs.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(cs.Items))
	}
	if len(cs.Items[0].Patterns) != 2 {
		t.Fatalf("first item patterns = %d, want 2", len(cs.Items[0].Patterns))
	}
}

func TestFunctionDefBothForms(t *testing.T) {
	cl := mustParse(t, "foo() { bar; }\n")
	if _, ok := firstCommand(t, cl).(*ast.FunctionDef); !ok {
		t.Fatal("expected FunctionDef for 'foo() {...}'")
	}
	cl = mustParse(t, "function foo { bar; }\n")
	if _, ok := firstCommand(t, cl).(*ast.FunctionDef); !ok {
		t.Fatal("expected FunctionDef for 'function foo {...}'")
	}
}

func TestSubshellAndBraceGroup(t *testing.T) {
	cl := mustParse(t, "(cd /tmp && ls)\n")
	if _, ok := firstCommand(t, cl).(*ast.SubshellGroup); !ok {
		t.Fatal("expected SubshellGroup")
	}
	cl = mustParse(t, "{ cd /tmp; ls; }\n")
	if _, ok := firstCommand(t, cl).(*ast.BraceGroup); !ok {
		t.Fatal("expected BraceGroup")
	}
}

func TestArithmeticCommand(t *testing.T) {
	cl := mustParse(t, "(( x = 1 + 2 * 3 ))\n")
	ac := firstCommand(t, cl).(*ast.ArithmeticCommand)
	bin, ok := ac.Expr.(*ast.ArithAssign)
	if !ok {
		t.Fatalf("expr = %#v, want *ArithAssign", ac.Expr)
	}
	if bin.Name != "x" {
		t.Fatalf("assign target = %q, want x", bin.Name)
	}
}

func TestEnhancedTest(t *testing.T) {
	cl := mustParse(t, `[[ -f foo && $x == bar ]]` + "\n")
	et := firstCommand(t, cl).(*ast.EnhancedTest)
	andOr, ok := et.Expression.(*ast.TestAndOr)
	if !ok {
		t.Fatalf("expression = %#v, want *TestAndOr", et.Expression)
	}
	if _, ok := andOr.X.(*ast.TestUnary); !ok {
		t.Fatalf("left = %#v, want *TestUnary", andOr.X)
	}
	bin, ok := andOr.Y.(*ast.TestBinary)
	if !ok {
		t.Fatalf("right = %#v, want *TestBinary", andOr.Y)
	}
	if bin.Op != ast.TestGlobMatch {
		t.Fatalf("op = %v, want TestGlobMatch", bin.Op)
	}
}

func TestParameterExpansionOperators(t *testing.T) {
	cl := mustParse(t, `echo ${name:-default}`+"\n")
	sc := firstCommand(t, cl).(*ast.SimpleCommand)
	ep := sc.Args[1].Parts[0].(*ast.ExpansionPart)
	pe, ok := ep.Expansion.(*ast.ParameterExpansion)
	if !ok {
		t.Fatalf("expansion = %#v, want *ParameterExpansion", ep.Expansion)
	}
	if pe.Name != "name" || pe.Operator != ast.ParamDefaultUSet {
		t.Fatalf("pe = %#v", pe)
	}
}

func TestCommandSubstitutionNesting(t *testing.T) {
	cl := mustParse(t, "echo $(echo $(echo inner))\n")
	sc := firstCommand(t, cl).(*ast.SimpleCommand)
	ep := sc.Args[1].Parts[0].(*ast.ExpansionPart)
	cs, ok := ep.Expansion.(*ast.CommandSubstitution)
	if !ok {
		t.Fatalf("expansion = %#v, want *CommandSubstitution", ep.Expansion)
	}
	if len(cs.CommandList.Lists) != 1 {
		t.Fatalf("nested command list = %#v", cs.CommandList)
	}
}

func TestHeredocBody(t *testing.T) {
	cl := mustParse(t, "cat <<EOF\nline one\nline two\nEOF\n")
	sc := firstCommand(t, cl).(*ast.SimpleCommand)
	if len(sc.Redirects) != 1 {
		t.Fatalf("len(Redirects) = %d, want 1", len(sc.Redirects))
	}
	want := "line one\nline two\n"
	if sc.Redirects[0].HeredocPayload != want {
		t.Fatalf("heredoc payload = %q, want %q", sc.Redirects[0].HeredocPayload, want)
	}
}

func TestIncompleteStateForUnclosedConstruct(t *testing.T) {
	p := New("if true; then echo hi", Config{})
	_, state, err := p.Parse()
	if state != Incomplete {
		t.Fatalf("state = %v, want Incomplete (err=%v)", state, err)
	}
}

func TestRecoveryModeCollectsIssues(t *testing.T) {
	p := New("echo ok; ) ; echo also-ok\n", Config{RecoveryMode: true})
	_, state, err := p.Parse()
	if state != Invalid {
		t.Fatalf("state = %v, want Invalid", state)
	}
	if err == nil {
		t.Fatal("expected a reported error")
	}
	if len(p.Issues()) == 0 {
		t.Fatal("expected at least one recovered issue")
	}
}

func TestArithExprPrecedence(t *testing.T) {
	expr, err := parseArithString("1 + 2 * 3", ast.Position{})
	if err != nil {
		t.Fatalf("parseArithString: %v", err)
	}
	bin, ok := expr.(*ast.ArithBinary)
	if !ok {
		t.Fatalf("expr = %#v, want *ArithBinary", expr)
	}
	if _, ok := bin.X.(*ast.ArithNumber); !ok {
		t.Fatalf("X = %#v, want *ArithNumber", bin.X)
	}
	rhs, ok := bin.Y.(*ast.ArithBinary)
	if !ok {
		t.Fatalf("Y = %#v, want *ArithBinary (2 * 3)", bin.Y)
	}
	if rhs.X.(*ast.ArithNumber).Value != "2" || rhs.Y.(*ast.ArithNumber).Value != "3" {
		t.Fatalf("rhs = %#v", rhs)
	}
}

func TestArithTernaryAndAssign(t *testing.T) {
	expr, err := parseArithString("x = a ? b : c", ast.Position{})
	if err != nil {
		t.Fatalf("parseArithString: %v", err)
	}
	assign, ok := expr.(*ast.ArithAssign)
	if !ok {
		t.Fatalf("expr = %#v, want *ArithAssign", expr)
	}
	if _, ok := assign.Value.(*ast.ArithTernary); !ok {
		t.Fatalf("value = %#v, want *ArithTernary", assign.Value)
	}
}

func TestScanOperandUsedByParameterDefault(t *testing.T) {
	parts, err := lexer.ScanOperand("a value with spaces", lexer.Config{})
	if err != nil {
		t.Fatalf("ScanOperand: %v", err)
	}
	if len(parts) != 1 || parts[0].Text != "a value with spaces" {
		t.Fatalf("parts = %#v", parts)
	}
}
