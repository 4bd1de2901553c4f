package parser

import (
	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/lexer"
	"github.com/philipwilsonTHG/psh/token"
)

// parseEnhancedTest parses a `[[ ... ]]` compound command. The caller has
// just consumed the DBL_LBRACKET token; the body is extracted as raw text
// up to the matching `]]` and re-lexed independently (the same
// balanced-extraction technique parseArithString relies on for
// `$((...))`), then walked by a small dedicated recursive-descent parser
// since its operator set (`-eq`, `=~`, unquoted `<`/`>` as string
// comparisons) doesn't belong in the general word grammar.
func (p *Parser) parseEnhancedTest() (*ast.EnhancedTest, error) {
	startTok := p.cur()
	startPos := startTok.Pos
	p.advance()

	raw, err := p.lex.ScanDoubleBracketBody()
	if err != nil {
		return nil, err
	}
	toks, err := p.lexTestBody(raw)
	if err != nil {
		return nil, err
	}
	tp := &testExprParser{p: p, toks: toks}
	expr, err := tp.parseOr()
	if err != nil {
		return nil, err
	}
	if tp.pos != len(tp.toks) {
		t := tp.cur()
		return nil, p.errorf(t.Pos, "unexpected token %q in [[ ]] expression", t.String())
	}
	endPos := startPos
	endPos.Offset += len("[[") + len(raw) + len("]]")
	return &ast.EnhancedTest{StartPos: startPos, EndPos: endPos, Expression: expr}, nil
}

func (p *Parser) lexTestBody(raw string) ([]lexer.Token, error) {
	lx := lexer.New(raw, p.cfg.Lexer)
	var toks []lexer.Token
	for {
		t, err := lx.Next()
		if err != nil {
			return nil, err
		}
		if t.Kind == token.EOF {
			return toks, nil
		}
		if t.Kind == token.NEWLINE {
			continue
		}
		toks = append(toks, t)
	}
}

type testExprParser struct {
	p    *Parser
	toks []lexer.Token
	pos  int
}

func (tp *testExprParser) cur() lexer.Token {
	if tp.pos >= len(tp.toks) {
		return lexer.Token{Kind: token.EOF}
	}
	return tp.toks[tp.pos]
}

func (tp *testExprParser) advance() lexer.Token {
	t := tp.cur()
	tp.pos++
	return t
}

func (tp *testExprParser) parseOr() (ast.TestExpr, error) {
	x, err := tp.parseAnd()
	if err != nil {
		return nil, err
	}
	for tp.cur().Kind == token.OR_OR {
		tp.advance()
		y, err := tp.parseAnd()
		if err != nil {
			return nil, err
		}
		x = &ast.TestAndOr{Op: ast.TestOr, X: x, Y: y}
	}
	return x, nil
}

func (tp *testExprParser) parseAnd() (ast.TestExpr, error) {
	x, err := tp.parseNot()
	if err != nil {
		return nil, err
	}
	for tp.cur().Kind == token.AND_AND {
		tp.advance()
		y, err := tp.parseNot()
		if err != nil {
			return nil, err
		}
		x = &ast.TestAndOr{Op: ast.TestAnd, X: x, Y: y}
	}
	return x, nil
}

func (tp *testExprParser) parseNot() (ast.TestExpr, error) {
	if tp.cur().Kind == token.BANG {
		opTok := tp.advance()
		x, err := tp.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.TestNot{OpPos: opTok.Pos, X: x}, nil
	}
	return tp.parsePrimary()
}

func (tp *testExprParser) parsePrimary() (ast.TestExpr, error) {
	t := tp.cur()
	switch t.Kind {
	case token.EOF:
		return nil, tp.p.errorf(t.Pos, "unexpected end of [[ ]] expression")
	case token.LPAREN:
		lp := tp.advance()
		x, err := tp.parseOr()
		if err != nil {
			return nil, err
		}
		if tp.cur().Kind != token.RPAREN {
			return nil, tp.p.errorf(tp.cur().Pos, "expected ')' in [[ ]] expression")
		}
		rp := tp.advance()
		return &ast.TestParen{Lparen: lp.Pos, Rparen: rp.Pos, X: x}, nil
	}
	if lit, ok := t.Lit(); ok {
		if op, ok := unaryTestOps[lit]; ok {
			opTok := tp.advance()
			w, err := tp.parseWord()
			if err != nil {
				return nil, err
			}
			return &ast.TestUnary{OpPos: opTok.Pos, Op: op, X: &ast.TestWord{W: w}}, nil
		}
	}
	w, err := tp.parseWord()
	if err != nil {
		return nil, err
	}
	if op, opPos, ok := tp.tryBinaryOp(); ok {
		rhs, err := tp.parseWord()
		if err != nil {
			return nil, err
		}
		return &ast.TestBinary{OpPos: opPos, Op: op, X: &ast.TestWord{W: w}, Y: &ast.TestWord{W: rhs}}, nil
	}
	return &ast.TestWord{W: w}, nil
}

func (tp *testExprParser) parseWord() (*ast.Word, error) {
	t := tp.cur()
	if t.Kind != token.WORD {
		return nil, tp.p.errorf(t.Pos, "expected word in [[ ]] expression, got %q", t.String())
	}
	tp.advance()
	return tp.p.buildWord(t)
}

func (tp *testExprParser) tryBinaryOp() (ast.TestBinaryOp, ast.Position, bool) {
	t := tp.cur()
	switch t.Kind {
	case token.LSS:
		tp.advance()
		return ast.TestStrLt, t.Pos, true
	case token.GTR:
		tp.advance()
		return ast.TestStrGt, t.Pos, true
	}
	if lit, ok := t.Lit(); ok {
		if op, ok := binaryTestOps[lit]; ok {
			tp.advance()
			return op, t.Pos, true
		}
	}
	return 0, ast.Position{}, false
}

var unaryTestOps = map[string]ast.TestUnaryOp{
	"-e": ast.TestFileExists, "-f": ast.TestRegularFile, "-d": ast.TestDirectory,
	"-r": ast.TestReadable, "-w": ast.TestWritable, "-x": ast.TestExecutable,
	"-s": ast.TestNonEmptyFile, "-L": ast.TestSymlink, "-h": ast.TestSymlink,
	"-p": ast.TestFIFO, "-S": ast.TestSocket, "-b": ast.TestBlockDev,
	"-c": ast.TestCharDev, "-t": ast.TestTTY, "-z": ast.TestStrEmpty,
	"-n": ast.TestStrNonEmpty, "-v": ast.TestVarSet, "-R": ast.TestNameref,
}

var binaryTestOps = map[string]ast.TestBinaryOp{
	"==": ast.TestGlobMatch, "=": ast.TestGlobMatch, "!=": ast.TestGlobNoMatch,
	"=~": ast.TestRegexMatch,
	"-eq": ast.TestNumEq, "-ne": ast.TestNumNe, "-lt": ast.TestNumLt,
	"-le": ast.TestNumLe, "-gt": ast.TestNumGt, "-ge": ast.TestNumGe,
	"-nt": ast.TestNewer, "-ot": ast.TestOlder, "-ef": ast.TestSameFile,
}
