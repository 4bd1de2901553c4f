// Package parser turns a lexer.Token stream into the Command/Word AST
// defined by the ast package, following the POSIX shell grammar:
//
//	command_list   := and_or_list (terminator and_or_list)* terminator?
//	and_or_list     := pipeline ((AND_AND | OR_OR) pipeline)*
//	pipeline        := BANG? simple_or_compound (PIPE simple_or_compound)*
//	simple_or_compound := compound_command redirect* | simple_command
//	compound_command   := if | while | until | for | case | brace_group |
//	                       subshell | dbl_bracket | dbl_paren | function |
//	                       select
package parser

import (
	"fmt"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/lexer"
	"github.com/philipwilsonTHG/psh/token"
)

// ParseState reports whether a parse completed, or stopped because the
// input ended mid-construct (the REPL uses this to decide whether to
// prompt PS2 and keep reading, rather than reporting a syntax error).
type ParseState int

const (
	Complete ParseState = iota
	Incomplete
	Invalid
)

// Error is a ParserError per spec.md §7.
type Error struct {
	Message string
	Pos     ast.Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}

// incomplete marks an Error as representing an unclosed construct (missing
// `done`/`fi`/`esac`/closing brace/quote) rather than a genuine syntax
// error, per spec.md §4.P.
type incomplete struct{ err *Error }

func (e incomplete) Error() string { return e.err.Error() }

// Config mirrors the lexer's and adds parser-only switches.
type Config struct {
	Lexer        lexer.Config
	RecoveryMode bool
}

// Parser is a recursive-descent parser driven by one token of lookahead
// (two for the rare `name ()` function-definition vs subshell ambiguity).
// Constructs whose tokenization depends on grammatical position (`[[ ]]`,
// `(( ))`, arithmetic `for`) are scanned as raw text by the lexer
// (ScanDoubleBracketBody, ScanArithCommandBody) and parsed separately; the
// parser does not push or pop the lexer's context stack.
type Parser struct {
	lex *lexer.Lexer
	cfg Config

	buf []lexer.Token // lookahead buffer; buf[0] is "current"
	err error

	// issues accumulates recovered errors in RecoveryMode; Parse returns
	// them attached to the returned state rather than failing outright.
	issues []error

	// pendingHeredocs holds redirects awaiting their body text, resolved as
	// soon as the lexer materialises the NEWLINE that triggered its drain.
	pendingHeredocs []pendingHeredocAttach
}

type pendingHeredocAttach struct {
	redirect *ast.Redirect
	handle   *lexer.Heredoc
}

func (p *Parser) resolvePendingHeredocs() {
	for _, a := range p.pendingHeredocs {
		a.redirect.HeredocPayload = a.handle.Body()
	}
	p.pendingHeredocs = p.pendingHeredocs[:0]
}

func New(src string, cfg Config) *Parser {
	p := &Parser{lex: lexer.New(src, cfg.Lexer), cfg: cfg}
	p.fill(1)
	return p
}

// Parse parses a full command list (a whole script or REPL chunk).
func (p *Parser) Parse() (*ast.CommandList, ParseState, error) {
	cl, err := p.parseCommandList(func(tok lexer.Token) bool { return tok.Kind == token.EOF })
	if err == nil && p.err != nil {
		err = p.err
		// every lexer error is an unterminated quote/substitution/heredoc
		if le, ok := p.err.(*lexer.Error); ok {
			err = incomplete{&Error{Message: le.Message, Pos: le.Pos}}
		}
	}
	if err != nil {
		if _, ok := err.(incomplete); ok {
			return cl, Incomplete, err
		}
		if p.cfg.RecoveryMode {
			return cl, Invalid, err
		}
		return nil, Invalid, err
	}
	if len(p.issues) > 0 {
		return cl, Invalid, p.issues[0]
	}
	return cl, Complete, nil
}

// Issues returns syntax errors collected in RecoveryMode.
func (p *Parser) Issues() []error { return p.issues }

func (p *Parser) fill(n int) {
	for len(p.buf) < n {
		tok, err := p.lex.Next()
		if err != nil {
			p.err = err
			// surface as an EOF-shaped token so callers stop cleanly;
			// Parse reports the stashed p.err once the command list ends.
			p.buf = append(p.buf, lexer.Token{Kind: token.EOF})
			continue
		}
		if tok.Kind == token.NEWLINE {
			p.resolvePendingHeredocs()
		}
		p.buf = append(p.buf, tok)
	}
}

func (p *Parser) cur() lexer.Token {
	p.fill(1)
	return p.buf[0]
}

func (p *Parser) peek(n int) lexer.Token {
	p.fill(n + 1)
	return p.buf[n]
}

func (p *Parser) advance() lexer.Token {
	p.fill(1)
	tok := p.buf[0]
	p.buf = p.buf[1:]
	return tok
}

func (p *Parser) errorf(pos ast.Position, format string, args ...interface{}) error {
	return &Error{Message: fmt.Sprintf(format, args...), Pos: pos}
}

func (p *Parser) incompleteErrorf(pos ast.Position, format string, args ...interface{}) error {
	return incomplete{&Error{Message: fmt.Sprintf(format, args...), Pos: pos}}
}

// expect consumes the current token if it matches kind, otherwise reports
// an error (incomplete if the stream ended looking for it).
func (p *Parser) expect(kind token.Kind, construct string) (lexer.Token, error) {
	tok := p.cur()
	if tok.Kind == token.EOF {
		return tok, p.incompleteErrorf(tok.Pos, "unexpected EOF, expected %s to close %s", kind, construct)
	}
	if tok.Kind != kind {
		return tok, p.errorf(tok.Pos, "unexpected token %q, expected %s", tok.String(), kind)
	}
	return p.advance(), nil
}

// keyword reports whether the current token is an unquoted, unexpanded
// bare word matching a reserved word -- recognised only where the grammar
// calls for a keyword (command position), never inside ordinary words.
func (p *Parser) keyword() (token.Kind, bool) {
	tok := p.cur()
	if tok.Kind != token.WORD || len(tok.Parts) != 1 {
		return 0, false
	}
	part := tok.Parts[0]
	if part.IsExpansion || part.Quote != token.NONE {
		return 0, false
	}
	kind, ok := token.Keywords[part.Text]
	return kind, ok
}

func (p *Parser) atKeyword(kinds ...token.Kind) bool {
	kind, ok := p.keyword()
	if !ok {
		return false
	}
	for _, k := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// skipNewlines consumes any run of NEWLINE tokens (blank lines between
// constructs).
func (p *Parser) skipNewlines() {
	for p.cur().Kind == token.NEWLINE {
		p.advance()
	}
}
