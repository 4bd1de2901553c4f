package parser

import (
	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/lexer"
	"github.com/philipwilsonTHG/psh/token"
)

// parseCommandList implements `command_list := and_or_list (terminator
// and_or_list)* terminator?`, stopping when stop(cur) holds (a closing
// keyword, EOF, or whatever the enclosing construct needs).
func (p *Parser) parseCommandList(stop func(lexer.Token) bool) (*ast.CommandList, error) {
	start := p.cur().Pos
	cl := &ast.CommandList{StartPos: start}
	p.skipNewlines()
	for {
		if stop(p.cur()) {
			return cl, nil
		}
		if p.cur().Kind == token.EOF {
			return cl, nil
		}
		aol, err := p.parseAndOrList()
		if err != nil {
			if p.cfg.RecoveryMode {
				p.issues = append(p.issues, err)
				p.recover()
				continue
			}
			return cl, err
		}
		cl.Lists = append(cl.Lists, aol)
		term := p.parseTerminator()
		cl.Terms = append(cl.Terms, term)
		if term == ast.TermAmp {
			backgroundLastPipeline(aol)
		}
		p.skipNewlines()
		if term == ast.TermNone && !stop(p.cur()) && p.cur().Kind != token.EOF {
			return cl, p.errorf(p.cur().Pos, "unexpected token %q after command", p.cur().String())
		}
	}
}

// parseTerminator consumes one terminator (`;`, `&`, or one-or-more
// NEWLINEs) if present and reports which kind it was.
func (p *Parser) parseTerminator() ast.Terminator {
	switch p.cur().Kind {
	case token.SEMI:
		p.advance()
		return ast.TermSemi
	case token.AMP:
		p.advance()
		return ast.TermAmp
	case token.NEWLINE:
		p.advance()
		p.skipNewlines()
		return ast.TermNewline
	default:
		return ast.TermNone
	}
}

func backgroundLastPipeline(aol *ast.AndOrList) {
	if len(aol.Pipelines) == 0 {
		return
	}
	pl := aol.Pipelines[len(aol.Pipelines)-1]
	for _, c := range pl.Commands {
		if sc, ok := c.(*ast.SimpleCommand); ok {
			sc.Background = true
		}
	}
}

// recover skips to the next statement terminator after a parse error, per
// spec.md §4.P's recovery-mode contract.
func (p *Parser) recover() {
	for {
		tok := p.cur()
		if tok.Kind == token.EOF || tok.Kind == token.SEMI || tok.Kind == token.NEWLINE {
			if tok.Kind != token.EOF {
				p.advance()
			}
			return
		}
		p.advance()
	}
}

func (p *Parser) parseAndOrList() (*ast.AndOrList, error) {
	first, err := p.parsePipeline()
	if err != nil {
		return nil, err
	}
	aol := &ast.AndOrList{Pipelines: []*ast.Pipeline{first}}
	for p.cur().Kind == token.AND_AND || p.cur().Kind == token.OR_OR {
		op := ast.LogicalAnd
		if p.cur().Kind == token.OR_OR {
			op = ast.LogicalOr
		}
		p.advance()
		p.skipNewlines()
		next, err := p.parsePipeline()
		if err != nil {
			return nil, err
		}
		aol.Pipelines = append(aol.Pipelines, next)
		aol.Operators = append(aol.Operators, op)
	}
	return aol, nil
}

func (p *Parser) parsePipeline() (*ast.Pipeline, error) {
	start := p.cur().Pos
	negated := false
	if p.atKeyword(token.BANG) {
		negated = true
		p.advance()
	}
	first, err := p.parseSimpleOrCompound()
	if err != nil {
		return nil, err
	}
	pl := &ast.Pipeline{StartPos: start, Commands: []ast.Command{first}, Negated: negated}
	for p.cur().Kind == token.PIPE || p.cur().Kind == token.PIPE_AMP {
		pl.StderrTo = append(pl.StderrTo, p.cur().Kind == token.PIPE_AMP)
		p.advance()
		p.skipNewlines()
		next, err := p.parseSimpleOrCompound()
		if err != nil {
			return nil, err
		}
		pl.Commands = append(pl.Commands, next)
	}
	return pl, nil
}

// parseSimpleOrCompound implements `compound_command redirect* |
// simple_command`, plus function-definition detection (`name ()` or
// `function name [()]`), which the grammar altitude note folds into
// compound_command.
func (p *Parser) parseSimpleOrCompound() (ast.Command, error) {
	if fn, ok, err := p.tryParseFunctionDef(); ok || err != nil {
		return fn, err
	}
	if kind, ok := p.keyword(); ok {
		switch kind {
		case token.IF, token.WHILE, token.UNTIL, token.FOR, token.CASE, token.SELECT, token.FUNCTION:
			return p.parseCompoundWithRedirects(kind)
		}
	}
	switch p.cur().Kind {
	case token.LBRACE:
		return p.parseCompoundWithRedirects(token.LBRACE)
	case token.LPAREN:
		return p.parseCompoundWithRedirects(token.LPAREN)
	case token.DLPAREN:
		return p.parseCompoundWithRedirects(token.DLPAREN)
	case token.DBL_LBRACKET:
		return p.parseCompoundWithRedirects(token.DBL_LBRACKET)
	}
	return p.parseSimpleCommand()
}

func (p *Parser) parseCompoundWithRedirects(kind token.Kind) (ast.Command, error) {
	cmd, err := p.parseCompoundCommand(kind)
	if err != nil {
		return cmd, err
	}
	redirs, err := p.parseRedirects()
	if err != nil {
		return cmd, err
	}
	attachRedirects(cmd, redirs)
	return cmd, nil
}

func attachRedirects(cmd ast.Command, redirs []*ast.Redirect) {
	switch c := cmd.(type) {
	case *ast.IfConditional:
		c.Redirects = redirs
	case *ast.WhileLoop:
		c.Redirects = redirs
	case *ast.UntilLoop:
		c.Redirects = redirs
	case *ast.ForLoop:
		c.Redirects = redirs
	case *ast.CStyleForLoop:
		c.Redirects = redirs
	case *ast.SelectLoop:
		c.Redirects = redirs
	case *ast.CaseStatement:
		c.Redirects = redirs
	case *ast.SubshellGroup:
		c.Redirects = redirs
	case *ast.BraceGroup:
		c.Redirects = redirs
	case *ast.EnhancedTest:
		c.Redirects = redirs
	case *ast.ArithmeticCommand:
		c.Redirects = redirs
	}
}
