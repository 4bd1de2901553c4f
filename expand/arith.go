package expand

import (
	"strconv"
	"strings"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/token"
)

// EvalArith walks an ast.ArithExpr (produced by parser/arith.go for
// `$((...))`, `(( ))`, and C-style `for`) and returns its integer value,
// per spec.md §4.X. Variable reads/writes go through cfg.Env exactly like
// every other expansion, so `x=$((y=y+1))` mutates the same variable table
// ordinary assignment does.
//
// Grounded on the teacher's expand/arith.go evaluator switch, restructured
// around parser/arith.go's ArithExpr node set and token.Kind operators
// instead of mvdan-sh's syntax.BinaryArithm/UnaryArithm.
func EvalArith(expr ast.ArithExpr, cfg *Config) (int64, error) {
	switch e := expr.(type) {
	case *ast.ArithNumber:
		return parseArithLiteral(e.Value)
	case *ast.ArithVar:
		return arithVarValue(e, cfg)
	case *ast.ArithParen:
		return EvalArith(e.X, cfg)
	case *ast.ArithUnary:
		return evalArithUnary(e, cfg)
	case *ast.ArithBinary:
		return evalArithBinary(e, cfg)
	case *ast.ArithTernary:
		cond, err := EvalArith(e.Cond, cfg)
		if err != nil {
			return 0, err
		}
		if cond != 0 {
			return EvalArith(e.Then, cfg)
		}
		return EvalArith(e.Else, cfg)
	case *ast.ArithAssign:
		return evalArithAssign(e, cfg)
	default:
		return 0, errf("unsupported arithmetic node %T", expr)
	}
}

func parseArithLiteral(s string) (int64, error) {
	switch {
	case strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X"):
		return strconv.ParseInt(s[2:], 16, 64)
	case strings.Contains(s, "#"):
		parts := strings.SplitN(s, "#", 2)
		base, err := strconv.Atoi(parts[0])
		if err != nil {
			return 0, errf("invalid arithmetic base %q", s)
		}
		return strconv.ParseInt(parts[1], base, 64)
	case len(s) > 1 && s[0] == '0':
		return strconv.ParseInt(s, 8, 64)
	default:
		if s == "" {
			return 0, nil
		}
		return strconv.ParseInt(s, 10, 64)
	}
}

func arithVarValue(v *ast.ArithVar, cfg *Config) (int64, error) {
	vr := cfg.Env.Get(v.Name)
	if v.Index != nil {
		idx, err := EvalArith(v.Index, cfg)
		if err != nil {
			return 0, err
		}
		if vr.Kind == Indexed {
			if idx < 0 || int(idx) >= len(vr.List) {
				return 0, nil
			}
			return parseArithLiteral(vr.List[idx])
		}
		if vr.Kind == Associative {
			s, ok := vr.Map[v.Index.(*ast.ArithNumber).Value]
			if !ok {
				return 0, nil
			}
			return parseArithLiteral(s)
		}
		return 0, nil
	}
	if !vr.Set {
		return 0, nil
	}
	s := vr.String()
	if s == "" {
		return 0, nil
	}
	return parseArithLiteral(s)
}

func evalArithUnary(u *ast.ArithUnary, cfg *Config) (int64, error) {
	if u.Op == token.ARITH_INC || u.Op == token.ARITH_DEC {
		v, ok := u.X.(*ast.ArithVar)
		if !ok {
			return 0, errf("++/-- requires a variable operand")
		}
		cur, err := arithVarValue(v, cfg)
		if err != nil {
			return 0, err
		}
		next := cur + 1
		if u.Op == token.ARITH_DEC {
			next = cur - 1
		}
		if err := setArithVar(v, next, cfg); err != nil {
			return 0, err
		}
		if u.Post {
			return cur, nil
		}
		return next, nil
	}
	x, err := EvalArith(u.X, cfg)
	if err != nil {
		return 0, err
	}
	switch u.Op {
	case token.ARITH_PLUS:
		return x, nil
	case token.ARITH_MINUS:
		return -x, nil
	case token.BANG:
		if x == 0 {
			return 1, nil
		}
		return 0, nil
	case token.ARITH_TILDE:
		return ^x, nil
	default:
		return 0, errf("unsupported unary arithmetic operator %v", u.Op)
	}
}

func evalArithBinary(b *ast.ArithBinary, cfg *Config) (int64, error) {
	if b.Op == token.AND_AND {
		x, err := EvalArith(b.X, cfg)
		if err != nil {
			return 0, err
		}
		if x == 0 {
			return 0, nil
		}
		y, err := EvalArith(b.Y, cfg)
		if err != nil {
			return 0, err
		}
		return boolInt(y != 0), nil
	}
	if b.Op == token.OR_OR {
		x, err := EvalArith(b.X, cfg)
		if err != nil {
			return 0, err
		}
		if x != 0 {
			return 1, nil
		}
		y, err := EvalArith(b.Y, cfg)
		if err != nil {
			return 0, err
		}
		return boolInt(y != 0), nil
	}
	if b.Op == token.ARITH_COMMA {
		if _, err := EvalArith(b.X, cfg); err != nil {
			return 0, err
		}
		return EvalArith(b.Y, cfg)
	}
	x, err := EvalArith(b.X, cfg)
	if err != nil {
		return 0, err
	}
	y, err := EvalArith(b.Y, cfg)
	if err != nil {
		return 0, err
	}
	switch b.Op {
	case token.ARITH_PLUS:
		return x + y, nil
	case token.ARITH_MINUS:
		return x - y, nil
	case token.ARITH_STAR:
		return x * y, nil
	case token.ARITH_SLASH:
		if y == 0 {
			return 0, errf("division by zero")
		}
		return x / y, nil
	case token.ARITH_PERCENT:
		if y == 0 {
			return 0, errf("division by zero")
		}
		return x % y, nil
	case token.ARITH_POW:
		return ipow(x, y), nil
	case token.ARITH_EQ:
		return boolInt(x == y), nil
	case token.ARITH_NE:
		return boolInt(x != y), nil
	case token.LSS:
		return boolInt(x < y), nil
	case token.GTR:
		return boolInt(x > y), nil
	case token.ARITH_LE:
		return boolInt(x <= y), nil
	case token.ARITH_GE:
		return boolInt(x >= y), nil
	case token.SHL:
		return x << uint(y), nil
	case token.SHR:
		return x >> uint(y), nil
	case token.AMP:
		return x & y, nil
	case token.PIPE:
		return x | y, nil
	case token.ARITH_CARET:
		return x ^ y, nil
	default:
		return 0, errf("unsupported binary arithmetic operator %v", b.Op)
	}
}

func evalArithAssign(a *ast.ArithAssign, cfg *Config) (int64, error) {
	rhs, err := EvalArith(a.Value, cfg)
	if err != nil {
		return 0, err
	}
	val := rhs
	if a.Op != token.ARITH_ASSIGN {
		cur, err := arithVarValue(&ast.ArithVar{Name: a.Name}, cfg)
		if err != nil {
			return 0, err
		}
		switch a.Op {
		case token.ARITH_PLUS_ASSIGN:
			val = cur + rhs
		case token.ARITH_MINUS_ASSIGN:
			val = cur - rhs
		case token.ARITH_STAR_ASSIGN:
			val = cur * rhs
		case token.ARITH_SLASH_ASSIGN:
			if rhs == 0 {
				return 0, errf("division by zero")
			}
			val = cur / rhs
		case token.ARITH_PERCENT_ASSIGN:
			if rhs == 0 {
				return 0, errf("division by zero")
			}
			val = cur % rhs
		case token.ARITH_SHL_ASSIGN:
			val = cur << uint(rhs)
		case token.ARITH_SHR_ASSIGN:
			val = cur >> uint(rhs)
		case token.ARITH_AMP_ASSIGN:
			val = cur & rhs
		case token.ARITH_CARET_ASSIGN:
			val = cur ^ rhs
		case token.ARITH_PIPE_ASSIGN:
			val = cur | rhs
		}
	}
	if err := setArithVar(&ast.ArithVar{Name: a.Name}, val, cfg); err != nil {
		return 0, err
	}
	return val, nil
}

func setArithVar(v *ast.ArithVar, val int64, cfg *Config) error {
	return cfg.Env.Set(v.Name, Variable{Set: true, Integer: true, Kind: String, Str: strconv.FormatInt(val, 10)})
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func ipow(base, exp int64) int64 {
	if exp < 0 {
		return 0
	}
	var result int64 = 1
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}
