package parser

import (
	"strings"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/lexer"
	"github.com/philipwilsonTHG/psh/token"
)

// buildWord converts one lexer.Token's Parts into an ast.Word, recursively
// parsing every expansion's raw source text. Per spec.md §4.P, a literal
// and an expansion are never merged across a quote boundary, so each
// QuotePart becomes its own WordPart.
func (p *Parser) buildWord(tok lexer.Token) (*ast.Word, error) {
	return p.buildWordFromParts(tok.Pos, tok.Parts)
}

func (p *Parser) buildWordFromParts(pos ast.Position, parts []lexer.QuotePart) (*ast.Word, error) {
	w := &ast.Word{}
	offset := pos
	for _, part := range parts {
		if part.IsExpansion {
			exp, err := p.parseExpansionText(part.Text, offset)
			if err != nil {
				return w, err
			}
			end := offset
			end.Offset += len(part.Text)
			w.Parts = append(w.Parts, &ast.ExpansionPart{
				StartPos: offset, EndPos: end, Expansion: exp,
				Quoted: part.Quote != token.NONE, QuoteChar: part.Quote,
			})
		} else {
			w.Parts = append(w.Parts, &ast.LiteralPart{
				StartPos: offset, Text: part.Text,
				Quoted: part.Quote != token.NONE, QuoteChar: part.Quote,
			})
		}
		offset.Offset += len(part.Text)
	}
	return w, nil
}

// parseExpansionText dispatches on the shape of one expansion's raw
// source, as captured verbatim by the lexer's scanDollarPart /
// scanBacktickPart / scanProcessSubstPart.
func (p *Parser) parseExpansionText(raw string, pos ast.Position) (ast.Expansion, error) {
	switch {
	case strings.HasPrefix(raw, "$((") && strings.HasSuffix(raw, "))"):
		inner := raw[3 : len(raw)-2]
		expr, err := parseArithString(inner, pos)
		if err != nil {
			return nil, err
		}
		return &ast.ArithmeticExpansion{StartPos: pos, EndPos: endOf(pos, raw), ExprString: inner, Expr: expr}, nil
	case strings.HasPrefix(raw, "${") && strings.HasSuffix(raw, "}"):
		return p.parseParamExpansion(raw[2:len(raw)-1], pos, true)
	case strings.HasPrefix(raw, "$(") && strings.HasSuffix(raw, ")"):
		cl, err := p.parseSubCommandList(raw[2 : len(raw)-1])
		if err != nil {
			return nil, err
		}
		return &ast.CommandSubstitution{StartPos: pos, EndPos: endOf(pos, raw), CommandList: cl}, nil
	case strings.HasPrefix(raw, "`") && strings.HasSuffix(raw, "`"):
		cl, err := p.parseSubCommandList(unescapeBacktickBody(raw[1 : len(raw)-1]))
		if err != nil {
			return nil, err
		}
		return &ast.CommandSubstitution{StartPos: pos, EndPos: endOf(pos, raw), CommandList: cl, BacktickStyle: true}, nil
	case strings.HasPrefix(raw, "<(") && strings.HasSuffix(raw, ")"):
		cl, err := p.parseSubCommandList(raw[2 : len(raw)-1])
		if err != nil {
			return nil, err
		}
		return &ast.ProcessSubstitution{StartPos: pos, EndPos: endOf(pos, raw), Direction: '<', CommandList: cl}, nil
	case strings.HasPrefix(raw, ">(") && strings.HasSuffix(raw, ")"):
		cl, err := p.parseSubCommandList(raw[2 : len(raw)-1])
		if err != nil {
			return nil, err
		}
		return &ast.ProcessSubstitution{StartPos: pos, EndPos: endOf(pos, raw), Direction: '>', CommandList: cl}, nil
	case strings.HasPrefix(raw, "$"):
		return &ast.VariableExpansion{StartPos: pos, EndPos: endOf(pos, raw), Name: raw[1:]}, nil
	default:
		return nil, p.errorf(pos, "internal: unrecognised expansion text %q", raw)
	}
}

func endOf(pos ast.Position, raw string) ast.Position {
	pos.Offset += len(raw)
	return pos
}

// unescapeBacktickBody undoes the one layer of backslash-escaping bash
// applies to `\$`, `` \` ``, and `\\` inside a backquoted command
// substitution (POSIX's historical quoting rule for nested backticks).
func unescapeBacktickBody(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '$', '`', '\\':
				sb.WriteByte(s[i+1])
				i++
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// parseSubCommandList re-parses a nested command list extracted verbatim
// by the lexer's balanced scanner (command substitution / process
// substitution bodies).
func (p *Parser) parseSubCommandList(src string) (*ast.CommandList, error) {
	sub := New(src, p.cfg)
	cl, state, err := sub.Parse()
	if state == Incomplete {
		return cl, p.incompleteErrorf(cl.Pos(), "unterminated command substitution")
	}
	return cl, err
}
