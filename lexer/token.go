// Package lexer tokenizes shell source into the stream described in
// spec.md §3/§4.L: composite WORD tokens carrying per-segment quote
// context, plus the usual operator and keyword tokens.
package lexer

import (
	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/token"
)

// QuotePart is one contiguous segment of a composite Token, tagged with the
// quote context it was scanned under. IsExpansion segments carry the raw,
// not-yet-parsed source text of one expansion ($var, ${...}, $(...), `...`,
// $((...)), <(...), >(...)); the parser is responsible for recursively
// lexing/parsing that text, since expansions can themselves contain full
// command lists.
type QuotePart struct {
	Text        string
	Quote       token.QuoteKind
	IsExpansion bool
}

// Token is one lexical item. For WORD/STRING/ASSIGNMENT_WORD kinds, Parts
// holds the composite segments; Value holds the concatenation of every
// part's literal text with expansions rendered as their raw source (handy
// for error messages and for the round-trip property in spec.md §8).
type Token struct {
	Kind  token.Kind
	Value string
	Pos   ast.Position
	Parts []QuotePart
	// Spaced reports whether whitespace or a comment separated this token
	// from the previous one. The parser uses this to tell `2>file` (an fd
	// prefix glued to a redirection) apart from `2 >file` (a bare argument
	// "2" followed by a redirection of stdout).
	Spaced bool
}

func (t Token) String() string {
	if t.Value != "" {
		return t.Value
	}
	return t.Kind.String()
}

// Lit reports the token's text and true when it is a single unquoted,
// unexpanded literal segment (the shape tryParseOneRedirect needs to
// recognise a bare fd-prefix digit like the `2` in `2>file`).
func (t Token) Lit() (string, bool) {
	if len(t.Parts) != 1 {
		return "", false
	}
	p := t.Parts[0]
	if p.IsExpansion || p.Quote != token.NONE {
		return "", false
	}
	return p.Text, true
}
