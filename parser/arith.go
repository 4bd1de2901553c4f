package parser

import (
	"strings"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/token"
)

// parseArithString parses the body of a `$((...))` or `(( ))` construct
// into an ArithExpr, per spec.md §4.X's precedence-climbing grammar:
// `+ - * / % **`, unary `+ - ! ~`, comparisons, `&& ||`, `& | ^ << >>`,
// `? :`, pre/post `++ --`, and the compound assignment operators.
//
// Known limitation: a command substitution or `${...}` operator embedded
// directly in an arithmetic expression (e.g. `$(( $(cmd) + 1 ))`) is not
// representable by ArithExpr's node set and is rejected with a parse
// error rather than silently mishandled; a bare `$name`/`${name}`
// variable reference is supported and treated the same as `name`.
type arithParser struct {
	toks []arithTok
	pos  int
}

type arithTok struct {
	kind token.Kind
	text string
	pos  ast.Position
}

// ParseArithExpr parses a bare arithmetic expression string — used outside
// `$((...))`/`(( ))` contexts, e.g. by the expand package to evaluate an
// array index or a `${name:offset:length}` operand that itself contains
// arithmetic.
func ParseArithExpr(s string) (ast.ArithExpr, error) {
	return parseArithString(s, ast.Position{})
}

func parseArithString(s string, base ast.Position) (ast.ArithExpr, error) {
	toks, err := arithTokenize(s, base)
	if err != nil {
		return nil, err
	}
	ap := &arithParser{toks: toks}
	if len(ap.toks) == 0 {
		return &ast.ArithNumber{StartPos: base, Value: "0"}, nil
	}
	expr, err := ap.parseComma()
	if err != nil {
		return nil, err
	}
	if ap.pos != len(ap.toks) {
		t := ap.toks[ap.pos]
		return nil, &Error{Message: "unexpected token " + t.text + " in arithmetic expression", Pos: t.pos}
	}
	return expr, nil
}

func (ap *arithParser) cur() (arithTok, bool) {
	if ap.pos >= len(ap.toks) {
		return arithTok{}, false
	}
	return ap.toks[ap.pos], true
}

func (ap *arithParser) at(kinds ...token.Kind) bool {
	t, ok := ap.cur()
	if !ok {
		return false
	}
	for _, k := range kinds {
		if t.kind == k {
			return true
		}
	}
	return false
}

func (ap *arithParser) advance() arithTok {
	t := ap.toks[ap.pos]
	ap.pos++
	return t
}

func (ap *arithParser) errHere(msg string) error {
	if t, ok := ap.cur(); ok {
		return &Error{Message: msg, Pos: t.pos}
	}
	return &Error{Message: msg + " at end of expression"}
}

func (ap *arithParser) parseComma() (ast.ArithExpr, error) {
	x, err := ap.parseAssign()
	if err != nil {
		return nil, err
	}
	for ap.at(token.ARITH_COMMA) {
		opTok := ap.advance()
		y, err := ap.parseAssign()
		if err != nil {
			return nil, err
		}
		x = &ast.ArithBinary{OpPos: opTok.pos, Op: token.ARITH_COMMA, X: x, Y: y}
	}
	return x, nil
}

var assignOps = []token.Kind{
	token.ARITH_ASSIGN, token.ARITH_PLUS_ASSIGN, token.ARITH_MINUS_ASSIGN,
	token.ARITH_STAR_ASSIGN, token.ARITH_SLASH_ASSIGN, token.ARITH_PERCENT_ASSIGN,
	token.ARITH_SHL_ASSIGN, token.ARITH_SHR_ASSIGN, token.ARITH_AMP_ASSIGN,
	token.ARITH_CARET_ASSIGN, token.ARITH_PIPE_ASSIGN,
}

func (ap *arithParser) parseAssign() (ast.ArithExpr, error) {
	lhs, err := ap.parseTernary()
	if err != nil {
		return nil, err
	}
	if !ap.at(assignOps...) {
		return lhs, nil
	}
	v, ok := lhs.(*ast.ArithVar)
	if !ok {
		return nil, ap.errHere("left-hand side of assignment must be a variable")
	}
	opTok := ap.advance()
	rhs, err := ap.parseAssign()
	if err != nil {
		return nil, err
	}
	return &ast.ArithAssign{OpPos: opTok.pos, Op: opTok.kind, Name: v.Name, Value: rhs}, nil
}

func (ap *arithParser) parseTernary() (ast.ArithExpr, error) {
	cond, err := ap.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if !ap.at(token.ARITH_QUESTION) {
		return cond, nil
	}
	ap.advance()
	then, err := ap.parseAssign()
	if err != nil {
		return nil, err
	}
	if !ap.at(token.ARITH_COLON) {
		return nil, ap.errHere("expected ':' in ternary expression")
	}
	ap.advance()
	els, err := ap.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ast.ArithTernary{Cond: cond, Then: then, Else: els}, nil
}

// binaryLevels is ordered from lowest to highest precedence; parseBinary
// recurses from level 0 (loosest, `||`) down to the unary/postfix base.
var binaryLevels = [][]token.Kind{
	{token.OR_OR},
	{token.AND_AND},
	{token.PIPE},
	{token.ARITH_CARET},
	{token.AMP},
	{token.ARITH_EQ, token.ARITH_NE},
	{token.LSS, token.GTR, token.ARITH_LE, token.ARITH_GE},
	{token.SHL, token.SHR},
	{token.ARITH_PLUS, token.ARITH_MINUS},
	{token.ARITH_STAR, token.ARITH_SLASH, token.ARITH_PERCENT},
}

func (ap *arithParser) parseBinary(level int) (ast.ArithExpr, error) {
	if level >= len(binaryLevels) {
		return ap.parsePow()
	}
	x, err := ap.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for ap.at(binaryLevels[level]...) {
		opTok := ap.advance()
		y, err := ap.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		x = &ast.ArithBinary{OpPos: opTok.pos, Op: opTok.kind, X: x, Y: y}
	}
	return x, nil
}

// parsePow is right-associative, above the multiplicative level.
func (ap *arithParser) parsePow() (ast.ArithExpr, error) {
	x, err := ap.parseUnary()
	if err != nil {
		return nil, err
	}
	if ap.at(token.ARITH_POW) {
		opTok := ap.advance()
		y, err := ap.parsePow()
		if err != nil {
			return nil, err
		}
		return &ast.ArithBinary{OpPos: opTok.pos, Op: token.ARITH_POW, X: x, Y: y}, nil
	}
	return x, nil
}

func (ap *arithParser) parseUnary() (ast.ArithExpr, error) {
	if ap.at(token.ARITH_PLUS, token.ARITH_MINUS, token.BANG, token.ARITH_TILDE) {
		opTok := ap.advance()
		x, err := ap.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.ArithUnary{OpPos: opTok.pos, Op: opTok.kind, X: x}, nil
	}
	if ap.at(token.ARITH_INC, token.ARITH_DEC) {
		opTok := ap.advance()
		x, err := ap.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.ArithUnary{OpPos: opTok.pos, Op: opTok.kind, X: x}, nil
	}
	return ap.parsePostfix()
}

func (ap *arithParser) parsePostfix() (ast.ArithExpr, error) {
	x, err := ap.parsePrimary()
	if err != nil {
		return nil, err
	}
	for ap.at(token.ARITH_INC, token.ARITH_DEC) {
		opTok := ap.advance()
		x = &ast.ArithUnary{OpPos: opTok.pos, Op: opTok.kind, Post: true, X: x}
	}
	return x, nil
}

func (ap *arithParser) parsePrimary() (ast.ArithExpr, error) {
	t, ok := ap.cur()
	if !ok {
		return nil, ap.errHere("unexpected end of arithmetic expression")
	}
	switch t.kind {
	case token.WORD: // NUMBER, reusing WORD kind for literal text
		ap.advance()
		return &ast.ArithNumber{StartPos: t.pos, Value: t.text}, nil
	case token.VARIABLE:
		ap.advance()
		v := &ast.ArithVar{StartPos: t.pos, Name: t.text}
		if ap.at(token.LBRACKET) {
			ap.advance()
			idx, err := ap.parseComma()
			if err != nil {
				return nil, err
			}
			if !ap.at(token.RBRACKET) {
				return nil, ap.errHere("expected ']' after array index")
			}
			ap.advance()
			v.Index = idx
		}
		return v, nil
	case token.LPAREN:
		lp := ap.advance()
		x, err := ap.parseComma()
		if err != nil {
			return nil, err
		}
		if !ap.at(token.RPAREN) {
			return nil, ap.errHere("expected ')'")
		}
		rp := ap.advance()
		return &ast.ArithParen{Lparen: lp.pos, Rparen: rp.pos, X: x}, nil
	default:
		return nil, ap.errHere("unexpected token " + t.text + " in arithmetic expression")
	}
}

// arithTokenize turns the raw text of a `$((...))`/`(( ))` body into
// arithmetic tokens. `$name`/`${name}` are normalised to a bare VARIABLE
// token (arithmetic context implies variable reference either way).
func arithTokenize(s string, base ast.Position) ([]arithTok, error) {
	var toks []arithTok
	pos := func(i int) ast.Position {
		p := base
		p.Offset += i
		return p
	}
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case token.IsDigit(c):
			j := i
			for j < len(s) && (isAlnum(s[j]) || s[j] == '#') {
				j++
			}
			toks = append(toks, arithTok{kind: token.WORD, text: s[i:j], pos: pos(i)})
			i = j
		case token.IsIdentStart(c):
			j := i + 1
			for j < len(s) && token.IsIdentCont(s[j]) {
				j++
			}
			toks = append(toks, arithTok{kind: token.VARIABLE, text: s[i:j], pos: pos(i)})
			i = j
		case c == '$':
			name, consumed, err := scanArithDollar(s[i:])
			if err != nil {
				return nil, &Error{Message: err.Error(), Pos: pos(i)}
			}
			toks = append(toks, arithTok{kind: token.VARIABLE, text: name, pos: pos(i)})
			i += consumed
		default:
			kind, width, ok := matchArithOp(s[i:])
			if !ok {
				return nil, &Error{Message: "unexpected character " + string(c) + " in arithmetic expression", Pos: pos(i)}
			}
			toks = append(toks, arithTok{kind: kind, text: s[i : i+width], pos: pos(i)})
			i += width
		}
	}
	return toks, nil
}

func isAlnum(c byte) bool {
	return token.IsDigit(c) || token.IsIdentCont(c)
}

func scanArithDollar(s string) (name string, consumed int, err error) {
	if len(s) < 2 {
		return "", 0, errArith("stray '$' in arithmetic expression")
	}
	if s[1] == '{' {
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return "", 0, errArith("unterminated ${...} in arithmetic expression")
		}
		inner := s[2:end]
		if !isPlainName(inner) {
			return "", 0, errArith("unsupported ${...} operator in arithmetic expression")
		}
		return inner, end + 1, nil
	}
	if s[1] == '(' {
		return "", 0, errArith("command substitution is not supported inside arithmetic expressions")
	}
	if token.IsIdentStart(s[1]) {
		j := 2
		for j < len(s) && token.IsIdentCont(s[j]) {
			j++
		}
		return s[1:j], j, nil
	}
	if token.SpecialParam(s[1:2]) {
		return s[1:2], 2, nil
	}
	return "", 0, errArith("invalid '$' expansion in arithmetic expression")
}

func isPlainName(s string) bool {
	if s == "" || !token.IsIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !token.IsIdentCont(s[i]) {
			return false
		}
	}
	return true
}

type errArith string

func (e errArith) Error() string { return string(e) }

var arithOps = []struct {
	text string
	kind token.Kind
}{
	{"<<=", token.ARITH_SHL_ASSIGN}, {">>=", token.ARITH_SHR_ASSIGN},
	{"**", token.ARITH_POW}, {"<<", token.SHL}, {">>", token.SHR},
	{"<=", token.ARITH_LE}, {">=", token.ARITH_GE},
	{"==", token.ARITH_EQ}, {"!=", token.ARITH_NE},
	{"&&", token.AND_AND}, {"||", token.OR_OR},
	{"++", token.ARITH_INC}, {"--", token.ARITH_DEC},
	{"+=", token.ARITH_PLUS_ASSIGN}, {"-=", token.ARITH_MINUS_ASSIGN},
	{"*=", token.ARITH_STAR_ASSIGN}, {"/=", token.ARITH_SLASH_ASSIGN},
	{"%=", token.ARITH_PERCENT_ASSIGN}, {"&=", token.ARITH_AMP_ASSIGN},
	{"^=", token.ARITH_CARET_ASSIGN}, {"|=", token.ARITH_PIPE_ASSIGN},
	{"+", token.ARITH_PLUS}, {"-", token.ARITH_MINUS},
	{"*", token.ARITH_STAR}, {"/", token.ARITH_SLASH}, {"%", token.ARITH_PERCENT},
	{"^", token.ARITH_CARET}, {"~", token.ARITH_TILDE}, {"!", token.BANG},
	{"<", token.LSS}, {">", token.GTR},
	{"&", token.AMP}, {"|", token.PIPE},
	{"?", token.ARITH_QUESTION}, {":", token.ARITH_COLON}, {",", token.ARITH_COMMA},
	{"=", token.ARITH_ASSIGN},
	{"(", token.LPAREN}, {")", token.RPAREN},
	{"[", token.LBRACKET}, {"]", token.RBRACKET},
}

func matchArithOp(s string) (token.Kind, int, bool) {
	for _, o := range arithOps {
		if strings.HasPrefix(s, o.text) {
			return o.kind, len(o.text), true
		}
	}
	return 0, 0, false
}
