package parser

import (
	"strings"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/lexer"
	"github.com/philipwilsonTHG/psh/token"
)

// parseSimpleCommand parses a sequence of leading assignments, then words
// and redirects in any order, per spec.md §4.P.
func (p *Parser) parseSimpleCommand() (*ast.SimpleCommand, error) {
	start := p.cur().Pos
	sc := &ast.SimpleCommand{StartPos: start}
	for {
		if assign, ok, err := p.tryParseAssignment(); err != nil {
			return sc, err
		} else if ok {
			sc.Assignments = append(sc.Assignments, assign)
			continue
		}
		if redirs, consumed, err := p.tryParseOneRedirect(); err != nil {
			return sc, err
		} else if consumed {
			sc.Redirects = append(sc.Redirects, redirs)
			continue
		}
		if p.cur().Kind != token.WORD {
			break
		}
		w, err := p.buildWord(p.advance())
		if err != nil {
			return sc, err
		}
		sc.Args = append(sc.Args, w)
	}
	if len(sc.Args) == 0 && len(sc.Assignments) == 0 && len(sc.Redirects) == 0 {
		return sc, p.errorf(p.cur().Pos, "unexpected token %q, expected a command", p.cur().String())
	}
	return sc, nil
}

// tryParseAssignment detects `name=value`, `name+=value`,
// `name[index]=value` (where index is an unexpanded literal, the common
// case), and `name=(...)`/`name+=(...)` array initialisers, per spec.md
// §4.P's "[A-Za-z_][A-Za-z0-9_]*(\[…\])?=…" rule. It only fires in
// assignment position: the caller stops calling it once a non-assignment
// word has been seen.
func (p *Parser) tryParseAssignment() (*ast.Assignment, bool, error) {
	tok := p.cur()
	if tok.Kind != token.WORD || len(tok.Parts) == 0 {
		return nil, false, nil
	}
	first := tok.Parts[0]
	if first.IsExpansion || first.Quote != token.NONE {
		return nil, false, nil
	}
	text := first.Text
	i := 0
	if i >= len(text) || !token.IsIdentStart(text[i]) {
		return nil, false, nil
	}
	i++
	for i < len(text) && token.IsIdentCont(text[i]) {
		i++
	}
	name := text[:i]

	var index *ast.Word
	if i < len(text) && text[i] == '[' {
		end := strings.IndexByte(text[i:], ']')
		if end < 0 {
			return nil, false, nil
		}
		end += i
		idxText := text[i+1 : end]
		index = &ast.Word{Parts: []ast.WordPart{&ast.LiteralPart{StartPos: tok.Pos, Text: idxText}}}
		i = end + 1
	}

	appendOp := false
	switch {
	case i < len(text) && text[i] == '+' && i+1 < len(text) && text[i+1] == '=':
		appendOp = true
		i += 2
	case i < len(text) && text[i] == '=':
		i++
	default:
		return nil, false, nil
	}

	restText := text[i:]
	restParts := append([]lexer.QuotePart{}, tok.Parts[1:]...)
	if restText != "" {
		restParts = append([]lexer.QuotePart{{Text: restText, Quote: token.NONE}}, restParts...)
	}

	// array initialiser: `name=(` / `name+=(` with nothing else in this
	// token and an immediately-following, non-spaced `(`.
	if restText == "" && len(tok.Parts) == 1 && p.peek(1).Kind == token.LPAREN && !p.peek(1).Spaced {
		p.advance() // consume the name= token
		p.advance() // consume '('
		elems, err := p.parseArrayInitElems()
		if err != nil {
			return nil, false, err
		}
		return &ast.Assignment{StartPos: start(tok), Name: name, Kind: ast.AssignArrayInit, Elems: elems, Append: appendOp}, true, nil
	}

	p.advance()
	value, err := p.buildWordFromParts(tok.Pos, restParts)
	if err != nil {
		return nil, false, err
	}
	if index != nil {
		return &ast.Assignment{StartPos: start(tok), Name: name, Kind: ast.AssignArrayElem, Index: index, Value: value, Append: appendOp}, true, nil
	}
	return &ast.Assignment{StartPos: start(tok), Name: name, Kind: ast.AssignString, Value: value, Append: appendOp}, true, nil
}

func start(tok lexer.Token) ast.Position { return tok.Pos }

func (p *Parser) parseArrayInitElems() ([]ast.ArrayElem, error) {
	var elems []ast.ArrayElem
	p.skipNewlines()
	for p.cur().Kind != token.RPAREN {
		if p.cur().Kind == token.EOF {
			return elems, p.incompleteErrorf(p.cur().Pos, "unexpected EOF, expected ) to close array initialiser")
		}
		tok := p.cur()
		var idx *ast.Word
		if tok.Kind == token.WORD && len(tok.Parts) > 0 {
			first := tok.Parts[0]
			if !first.IsExpansion && first.Quote == token.NONE && strings.HasPrefix(first.Text, "[") {
				if end := strings.IndexByte(first.Text, ']'); end > 0 && end+1 < len(first.Text) && first.Text[end+1] == '=' {
					idxText := first.Text[1:end]
					idx = &ast.Word{Parts: []ast.WordPart{&ast.LiteralPart{StartPos: tok.Pos, Text: idxText}}}
					rest := append([]lexer.QuotePart{}, tok.Parts...)
					rest[0] = lexer.QuotePart{Text: first.Text[end+2:], Quote: token.NONE}
					p.advance()
					val, err := p.buildWordFromParts(tok.Pos, rest)
					if err != nil {
						return elems, err
					}
					elems = append(elems, ast.ArrayElem{Index: idx, Value: val})
					p.skipNewlines()
					continue
				}
			}
		}
		val, err := p.buildWord(p.advance())
		if err != nil {
			return elems, err
		}
		elems = append(elems, ast.ArrayElem{Value: val})
		p.skipNewlines()
	}
	p.advance() // ')'
	return elems, nil
}

// tryParseOneRedirect recognises an optional fd-prefix digit glued to a
// redirection operator (`2>file` vs the bare argument `2` in `cmd 2`).
func (p *Parser) tryParseOneRedirect() (*ast.Redirect, bool, error) {
	tok := p.cur()
	fd := -1
	hasFd := false
	if tok.Kind == token.WORD {
		if lit, ok := tok.Lit(); ok && isAllDigits(lit) && !p.peek(1).Spaced && isRedirectOp(p.peek(1).Kind) {
			fd = atoiSafe(lit)
			hasFd = true
			p.advance()
			tok = p.cur()
		} else {
			return nil, false, nil
		}
	}
	if !isRedirectOp(tok.Kind) {
		if hasFd {
			return nil, false, p.errorf(tok.Pos, "expected redirection operator after fd %d", fd)
		}
		return nil, false, nil
	}
	op, opPos := tok.Kind, tok.Pos
	p.advance()

	if op == token.SHL || op == token.LT_LT_DASH {
		return p.parseHeredocRedirect(op, opPos, fd, hasFd)
	}

	target, err := p.buildWord(p.advance())
	if err != nil {
		return nil, false, err
	}
	redirOp, defaultFd := mapRedirOp(op)
	if !hasFd {
		fd = defaultFd
	}
	return &ast.Redirect{StartPos: opPos, Op: redirOp, Fd: fd, HasFd: hasFd, Target: target}, true, nil
}

func (p *Parser) parseHeredocRedirect(op token.Kind, opPos ast.Position, fd int, hasFd bool) (*ast.Redirect, bool, error) {
	delimTok := p.advance()
	delim, quoted := heredocDelim(delimTok)
	stripTabs := op == token.LT_LT_DASH
	handle := p.lex.QueueHeredoc(delim, quoted, stripTabs)
	redirOp := ast.RedirHeredoc
	if stripTabs {
		redirOp = ast.RedirHeredocTabs
	}
	if !hasFd {
		fd = 0
	}
	r := &ast.Redirect{StartPos: opPos, Op: redirOp, Fd: fd, HasFd: hasFd, Target: nil, HeredocQuoted: quoted, HeredocStripTabs: stripTabs}
	p.pendingHeredocs = append(p.pendingHeredocs, pendingHeredocAttach{redirect: r, handle: handle})
	return r, true, nil
}

// heredocDelim extracts the literal delimiter text and whether it was
// quoted anywhere (which disables later expansion of the body).
func heredocDelim(tok lexer.Token) (delim string, quoted bool) {
	var sb strings.Builder
	for _, part := range tok.Parts {
		sb.WriteString(part.Text)
		if part.Quote != token.NONE {
			quoted = true
		}
	}
	return sb.String(), quoted
}

func (p *Parser) parseRedirects() ([]*ast.Redirect, error) {
	var out []*ast.Redirect
	for {
		r, ok, err := p.tryParseOneRedirect()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, r)
	}
}

func isRedirectOp(k token.Kind) bool {
	switch k {
	case token.LSS, token.GTR, token.SHL, token.SHR, token.LT_LT_DASH, token.LT_LT_LT,
		token.REDIR_DUP_IN, token.REDIR_DUP_OUT, token.RDR_INOUT,
		token.AMP_REDIRECT, token.AMP_REDIR_APP:
		return true
	}
	return false
}

func mapRedirOp(k token.Kind) (op ast.RedirOp, defaultFd int) {
	switch k {
	case token.LSS:
		return ast.RedirLess, 0
	case token.GTR:
		return ast.RedirGreat, 1
	case token.SHR:
		return ast.RedirAppend, 1
	case token.LT_LT_LT:
		return ast.RedirHereString, 0
	case token.REDIR_DUP_IN:
		return ast.RedirDupIn, 0
	case token.REDIR_DUP_OUT:
		return ast.RedirDupOut, 1
	case token.RDR_INOUT:
		return ast.RedirReadWrite, 0
	case token.AMP_REDIRECT:
		return ast.RedirAmp, 1
	case token.AMP_REDIR_APP:
		return ast.RedirAmpAppend, 1
	}
	return ast.RedirGreat, 1
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !token.IsDigit(s[i]) {
			return false
		}
	}
	return true
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		n = n*10 + int(s[i]-'0')
	}
	return n
}
