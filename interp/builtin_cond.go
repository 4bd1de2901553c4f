package interp

import "github.com/philipwilsonTHG/psh/ast"

func registerTestBuiltins(r *Runner) {
	r.Builtins["test"] = builtinTest
	r.Builtins["["] = builtinBracket
}

func builtinBracket(r *Runner, args []string) (int, error) {
	if len(args) == 0 || args[len(args)-1] != "]" {
		return 2, errf(2, "[: missing matching ]")
	}
	return builtinTest(r, args[:len(args)-1])
}

var testUnaryOps = map[string]ast.TestUnaryOp{
	"-e": ast.TestFileExists, "-f": ast.TestRegularFile, "-d": ast.TestDirectory,
	"-r": ast.TestReadable, "-w": ast.TestWritable, "-x": ast.TestExecutable,
	"-s": ast.TestNonEmptyFile, "-L": ast.TestSymlink, "-h": ast.TestSymlink,
	"-p": ast.TestFIFO, "-S": ast.TestSocket, "-b": ast.TestBlockDev,
	"-c": ast.TestCharDev, "-t": ast.TestTTY, "-z": ast.TestStrEmpty,
	"-n": ast.TestStrNonEmpty, "-v": ast.TestVarSet,
}

var testBinaryOps = map[string]ast.TestBinaryOp{
	"=": ast.TestStrEq, "==": ast.TestStrEq, "!=": ast.TestStrNe,
	"<": ast.TestStrLt, ">": ast.TestStrGt,
	"-eq": ast.TestNumEq, "-ne": ast.TestNumNe, "-lt": ast.TestNumLt,
	"-le": ast.TestNumLe, "-gt": ast.TestNumGt, "-ge": ast.TestNumGe,
	"-nt": ast.TestNewer, "-ot": ast.TestOlder, "-ef": ast.TestSameFile,
}

// builtinTest implements POSIX `test`/`[`'s small argument-count grammar
// (0/1/2/3/4 args, with -a/-o conjunction for the 4-arg and general
// cases), following the teacher's own classicTest->bashTest split
// (interp/builtin.go, interp/test.go) but working directly off string
// arguments rather than re-tokenizing into ast.Word, since test's
// operands are never subject to further expansion — they arrive already
// expanded as argv.
func builtinTest(r *Runner, args []string) (int, error) {
	expr, err := parseClassicTest(args)
	if err != nil {
		return 2, err
	}
	if expr == nil {
		return 1, nil
	}
	ok, err := r.evalTest(expr)
	if err != nil {
		return 2, err
	}
	if ok {
		return 0, nil
	}
	return 1, nil
}

func litWord(s string) *ast.Word {
	return &ast.Word{Parts: []ast.WordPart{&ast.LiteralPart{Text: s}}}
}

func testWord(s string) ast.TestExpr { return &ast.TestWord{W: litWord(s)} }

func parseClassicTest(args []string) (ast.TestExpr, error) {
	switch len(args) {
	case 0:
		return nil, nil
	case 1:
		return testWord(args[0]), nil
	case 2:
		if op, ok := testUnaryOps[args[0]]; ok {
			return &ast.TestUnary{Op: op, X: testWord(args[1])}, nil
		}
		if args[0] == "!" {
			x, err := parseClassicTest(args[1:])
			if err != nil {
				return nil, err
			}
			return &ast.TestNot{X: x}, nil
		}
		return nil, errf(2, "test: unknown unary operator %q", args[0])
	case 3:
		if op, ok := testBinaryOps[args[1]]; ok {
			return &ast.TestBinary{Op: op, X: testWord(args[0]), Y: testWord(args[2])}, nil
		}
		if args[0] == "!" {
			x, err := parseClassicTest(args[1:])
			if err != nil {
				return nil, err
			}
			return &ast.TestNot{X: x}, nil
		}
		return nil, errf(2, "test: %q: unexpected operator", args[1])
	default:
		for i, a := range args {
			if a == "-a" || a == "-o" {
				l, err := parseClassicTest(args[:i])
				if err != nil {
					return nil, err
				}
				rhs, err := parseClassicTest(args[i+1:])
				if err != nil {
					return nil, err
				}
				op := ast.TestAnd
				if a == "-o" {
					op = ast.TestOr
				}
				return &ast.TestAndOr{Op: op, X: l, Y: rhs}, nil
			}
		}
		return nil, errf(2, "test: too many arguments")
	}
}
