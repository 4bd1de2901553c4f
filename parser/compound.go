package parser

import (
	"strings"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/lexer"
	"github.com/philipwilsonTHG/psh/token"
)

// parseCompoundCommand dispatches to the production for one compound
// command, per the grammar listed in parser.go's package doc. The caller
// (parseCompoundWithRedirects) attaches any trailing redirects afterward.
func (p *Parser) parseCompoundCommand(kind token.Kind) (ast.Command, error) {
	switch kind {
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.UNTIL:
		return p.parseUntil()
	case token.FOR:
		return p.parseFor()
	case token.CASE:
		return p.parseCase()
	case token.SELECT:
		return p.parseSelect()
	case token.FUNCTION:
		return p.parseFunctionKeyword()
	case token.LBRACE:
		return p.parseBraceGroup()
	case token.LPAREN:
		return p.parseSubshellGroup()
	case token.DLPAREN:
		return p.parseArithmeticCommand()
	case token.DBL_LBRACKET:
		return p.parseEnhancedTest()
	}
	return nil, p.errorf(p.cur().Pos, "internal: no compound production for %s", kind)
}

func stopAtTokens(kinds ...token.Kind) func(lexer.Token) bool {
	return func(tok lexer.Token) bool {
		for _, k := range kinds {
			if tok.Kind == k {
				return true
			}
		}
		return false
	}
}

func (p *Parser) stopAtKeywords(kinds ...token.Kind) func(lexer.Token) bool {
	return func(lexer.Token) bool { return p.atKeyword(kinds...) }
}

// expectKeyword consumes the current token if it is the reserved word
// kind, otherwise reports a syntax (or incomplete, at EOF) error.
func (p *Parser) expectKeyword(kind token.Kind, name string) (lexer.Token, error) {
	if !p.atKeyword(kind) {
		tok := p.cur()
		if tok.Kind == token.EOF {
			return tok, p.incompleteErrorf(tok.Pos, "unexpected EOF, expected %q", name)
		}
		return tok, p.errorf(tok.Pos, "unexpected token %q, expected %q", tok.String(), name)
	}
	return p.advance(), nil
}

func afterTok(tok lexer.Token) ast.Position {
	end := tok.Pos
	end.Offset += len(tok.String())
	return end
}

func (p *Parser) parseIf() (*ast.IfConditional, error) {
	ifPos := p.cur().Pos
	p.advance()
	cond, err := p.parseCommandList(p.stopAtKeywords(token.THEN))
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword(token.THEN, "then"); err != nil {
		return nil, err
	}
	then, err := p.parseCommandList(p.stopAtKeywords(token.ELIF, token.ELSE, token.FI))
	if err != nil {
		return nil, err
	}
	ifc := &ast.IfConditional{StartPos: ifPos, Condition: cond, Then: then}
	for p.atKeyword(token.ELIF) {
		p.advance()
		econd, err := p.parseCommandList(p.stopAtKeywords(token.THEN))
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKeyword(token.THEN, "then"); err != nil {
			return nil, err
		}
		ethen, err := p.parseCommandList(p.stopAtKeywords(token.ELIF, token.ELSE, token.FI))
		if err != nil {
			return nil, err
		}
		ifc.Elifs = append(ifc.Elifs, &ast.ElifBranch{Condition: econd, Then: ethen})
	}
	if p.atKeyword(token.ELSE) {
		p.advance()
		elseBody, err := p.parseCommandList(p.stopAtKeywords(token.FI))
		if err != nil {
			return nil, err
		}
		ifc.Else = elseBody
	}
	fiTok, err := p.expectKeyword(token.FI, "fi")
	if err != nil {
		return nil, err
	}
	ifc.EndPos = afterTok(fiTok)
	return ifc, nil
}

func (p *Parser) parseWhile() (*ast.WhileLoop, error) {
	wPos := p.cur().Pos
	p.advance()
	cond, err := p.parseCommandList(p.stopAtKeywords(token.DO))
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword(token.DO, "do"); err != nil {
		return nil, err
	}
	body, err := p.parseCommandList(p.stopAtKeywords(token.DONE))
	if err != nil {
		return nil, err
	}
	doneTok, err := p.expectKeyword(token.DONE, "done")
	if err != nil {
		return nil, err
	}
	return &ast.WhileLoop{StartPos: wPos, EndPos: afterTok(doneTok), Condition: cond, Body: body}, nil
}

func (p *Parser) parseUntil() (*ast.UntilLoop, error) {
	uPos := p.cur().Pos
	p.advance()
	cond, err := p.parseCommandList(p.stopAtKeywords(token.DO))
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword(token.DO, "do"); err != nil {
		return nil, err
	}
	body, err := p.parseCommandList(p.stopAtKeywords(token.DONE))
	if err != nil {
		return nil, err
	}
	doneTok, err := p.expectKeyword(token.DONE, "done")
	if err != nil {
		return nil, err
	}
	return &ast.UntilLoop{StartPos: uPos, EndPos: afterTok(doneTok), Condition: cond, Body: body}, nil
}

func (p *Parser) parseFor() (ast.Command, error) {
	forPos := p.cur().Pos
	p.advance()

	if p.cur().Kind == token.DLPAREN {
		dlPos := p.cur().Pos
		p.advance() // lexer cursor now sits right after "((" in the source
		raw, err := p.lex.ScanArithCommandBody()
		if err != nil {
			return nil, err
		}
		clauses := splitTop(raw, ';')
		for len(clauses) < 3 {
			clauses = append(clauses, "")
		}
		var initE, condE, updE ast.ArithExpr
		if s := strings.TrimSpace(clauses[0]); s != "" {
			if initE, err = parseArithString(s, dlPos); err != nil {
				return nil, err
			}
		}
		if s := strings.TrimSpace(clauses[1]); s != "" {
			if condE, err = parseArithString(s, dlPos); err != nil {
				return nil, err
			}
		}
		if s := strings.TrimSpace(clauses[2]); s != "" {
			if updE, err = parseArithString(s, dlPos); err != nil {
				return nil, err
			}
		}
		p.parseTerminator()
		p.skipNewlines()
		if _, err := p.expectKeyword(token.DO, "do"); err != nil {
			return nil, err
		}
		body, err := p.parseCommandList(p.stopAtKeywords(token.DONE))
		if err != nil {
			return nil, err
		}
		doneTok, err := p.expectKeyword(token.DONE, "done")
		if err != nil {
			return nil, err
		}
		return &ast.CStyleForLoop{StartPos: forPos, EndPos: afterTok(doneTok), Init: initE, Cond: condE, Update: updE, Body: body}, nil
	}

	nameTok := p.cur()
	name, ok := nameTok.Lit()
	if nameTok.Kind != token.WORD || !ok {
		return nil, p.errorf(nameTok.Pos, "expected name after 'for'")
	}
	p.advance()
	fl := &ast.ForLoop{StartPos: forPos, Var: name}
	p.skipNewlines()
	if p.atKeyword(token.IN) {
		p.advance()
		fl.HasIn = true
		for p.cur().Kind == token.WORD {
			w, err := p.buildWord(p.advance())
			if err != nil {
				return nil, err
			}
			fl.Words = append(fl.Words, w)
		}
	}
	p.parseTerminator()
	p.skipNewlines()
	if _, err := p.expectKeyword(token.DO, "do"); err != nil {
		return nil, err
	}
	body, err := p.parseCommandList(p.stopAtKeywords(token.DONE))
	if err != nil {
		return nil, err
	}
	doneTok, err := p.expectKeyword(token.DONE, "done")
	if err != nil {
		return nil, err
	}
	fl.Body = body
	fl.EndPos = afterTok(doneTok)
	return fl, nil
}

func (p *Parser) parseSelect() (*ast.SelectLoop, error) {
	selPos := p.cur().Pos
	p.advance()
	nameTok := p.cur()
	name, ok := nameTok.Lit()
	if nameTok.Kind != token.WORD || !ok {
		return nil, p.errorf(nameTok.Pos, "expected name after 'select'")
	}
	p.advance()
	sl := &ast.SelectLoop{StartPos: selPos, Var: name}
	p.skipNewlines()
	if p.atKeyword(token.IN) {
		p.advance()
		sl.HasIn = true
		for p.cur().Kind == token.WORD {
			w, err := p.buildWord(p.advance())
			if err != nil {
				return nil, err
			}
			sl.Words = append(sl.Words, w)
		}
	}
	p.parseTerminator()
	p.skipNewlines()
	if _, err := p.expectKeyword(token.DO, "do"); err != nil {
		return nil, err
	}
	body, err := p.parseCommandList(p.stopAtKeywords(token.DONE))
	if err != nil {
		return nil, err
	}
	doneTok, err := p.expectKeyword(token.DONE, "done")
	if err != nil {
		return nil, err
	}
	sl.Body = body
	sl.EndPos = afterTok(doneTok)
	return sl, nil
}

func (p *Parser) parseCase() (*ast.CaseStatement, error) {
	casePos := p.cur().Pos
	p.advance()
	wordTok := p.cur()
	if wordTok.Kind != token.WORD {
		return nil, p.errorf(wordTok.Pos, "expected word after 'case'")
	}
	p.advance()
	w, err := p.buildWord(wordTok)
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if _, err := p.expectKeyword(token.IN, "in"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	cs := &ast.CaseStatement{StartPos: casePos, Word: w}
	for !p.atKeyword(token.ESAC) {
		if p.cur().Kind == token.EOF {
			return cs, p.incompleteErrorf(p.cur().Pos, "unexpected EOF, expected esac")
		}
		item, err := p.parseCaseItem()
		if err != nil {
			return cs, err
		}
		cs.Items = append(cs.Items, item)
	}
	esacTok, err := p.expectKeyword(token.ESAC, "esac")
	if err != nil {
		return cs, err
	}
	cs.EndPos = afterTok(esacTok)
	return cs, nil
}

func (p *Parser) parseCaseItem() (*ast.CaseItem, error) {
	p.skipNewlines()
	if p.cur().Kind == token.LPAREN {
		p.advance()
	}
	var patterns []*ast.Word
	for {
		t := p.cur()
		if t.Kind != token.WORD {
			return nil, p.errorf(t.Pos, "expected case pattern")
		}
		p.advance()
		w, err := p.buildWord(t)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, w)
		if p.cur().Kind == token.PIPE {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RPAREN, "case pattern"); err != nil {
		return nil, err
	}
	p.skipNewlines()
	stop := func(tok lexer.Token) bool {
		if tok.Kind == token.DSEMI || tok.Kind == token.SEMIFALL || tok.Kind == token.DSEMIFALL {
			return true
		}
		return p.atKeyword(token.ESAC)
	}
	body, err := p.parseCommandList(stop)
	if err != nil {
		return nil, err
	}
	term := ast.CaseEnd
	switch p.cur().Kind {
	case token.DSEMI:
		p.advance()
		term = ast.CaseEnd
	case token.SEMIFALL:
		p.advance()
		term = ast.CaseFallthrough
	case token.DSEMIFALL:
		p.advance()
		term = ast.CaseContinueMatch
	}
	p.skipNewlines()
	return &ast.CaseItem{Patterns: patterns, Body: body, Terminator: term}, nil
}

func (p *Parser) parseFunctionKeyword() (*ast.FunctionDef, error) {
	fnPos := p.cur().Pos
	p.advance()
	nameTok := p.cur()
	name, ok := nameTok.Lit()
	if nameTok.Kind != token.WORD || !ok {
		return nil, p.errorf(nameTok.Pos, "expected name after 'function'")
	}
	p.advance()
	if p.cur().Kind == token.LPAREN && p.peek(1).Kind == token.RPAREN {
		p.advance()
		p.advance()
	}
	p.skipNewlines()
	body, err := p.parseSimpleOrCompound()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDef{StartPos: fnPos, Name: name, Body: body}, nil
}

// tryParseFunctionDef detects the POSIX `name ()` function-definition
// shape (no 'function' keyword). It only commits once it has seen the
// full `name ( )` prefix, so a plain subshell like `(cmd)` in command
// position is never mistaken for one.
func (p *Parser) tryParseFunctionDef() (ast.Command, bool, error) {
	tok := p.cur()
	if tok.Kind != token.WORD {
		return nil, false, nil
	}
	name, ok := tok.Lit()
	if !ok || !isValidFuncName(name) {
		return nil, false, nil
	}
	if p.peek(1).Kind != token.LPAREN || p.peek(1).Spaced {
		return nil, false, nil
	}
	if p.peek(2).Kind != token.RPAREN {
		return nil, false, nil
	}
	p.advance() // name
	p.advance() // (
	p.advance() // )
	p.skipNewlines()
	body, err := p.parseSimpleOrCompound()
	if err != nil {
		return nil, true, err
	}
	return &ast.FunctionDef{StartPos: tok.Pos, Name: name, Body: body}, true, nil
}

func isValidFuncName(s string) bool {
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

func (p *Parser) parseBraceGroup() (*ast.BraceGroup, error) {
	lb := p.cur().Pos
	p.advance()
	body, err := p.parseCommandList(stopAtTokens(token.RBRACE))
	if err != nil {
		return nil, err
	}
	rb, err := p.expect(token.RBRACE, "brace group")
	if err != nil {
		return nil, err
	}
	return &ast.BraceGroup{StartPos: lb, EndPos: afterTok(rb), Body: body}, nil
}

func (p *Parser) parseSubshellGroup() (*ast.SubshellGroup, error) {
	lp := p.cur().Pos
	p.advance()
	body, err := p.parseCommandList(stopAtTokens(token.RPAREN))
	if err != nil {
		return nil, err
	}
	rp, err := p.expect(token.RPAREN, "subshell")
	if err != nil {
		return nil, err
	}
	return &ast.SubshellGroup{StartPos: lp, EndPos: afterTok(rp), Body: body}, nil
}

func (p *Parser) parseArithmeticCommand() (*ast.ArithmeticCommand, error) {
	dlPos := p.cur().Pos
	p.advance() // lexer cursor now sits right after "((" in the source
	raw, err := p.lex.ScanArithCommandBody()
	if err != nil {
		return nil, err
	}
	expr, err := parseArithString(raw, dlPos)
	if err != nil {
		return nil, err
	}
	endPos := dlPos
	endPos.Offset += len("((") + len(raw) + len("))")
	return &ast.ArithmeticCommand{StartPos: dlPos, EndPos: endPos, Expr: expr}, nil
}

// splitTop splits s on every top-level occurrence of sep, tracking
// backslash escapes and paren/bracket depth so a `;` inside a nested
// construct doesn't split a C-style for-loop clause early.
func splitTop(s string, sep byte) []string {
	var out []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		default:
			if s[i] == sep && depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}
