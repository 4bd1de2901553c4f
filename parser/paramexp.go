package parser

import (
	"strings"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/lexer"
	"github.com/philipwilsonTHG/psh/token"
)

// parseParamExpansion parses the body of a `${...}` construct per the
// operator table in spec.md §4.X. body is the raw text between the braces,
// exactly as captured by the lexer's balanced scanner (so it may itself
// contain nested expansions, which are re-scanned by ScanOperand below).
func (p *Parser) parseParamExpansion(body string, pos ast.Position, braced bool) (*ast.ParameterExpansion, error) {
	pe := &ast.ParameterExpansion{StartPos: pos, EndPos: endOf(pos, body), Braced: braced}
	i := 0

	if strings.HasPrefix(body, "#") && len(body) > 1 && (token.IsIdentStart(body[1]) || body[1] == '!' || token.SpecialParam(body[1:2])) {
		pe.Operator = ast.ParamLength
		i = 1
	} else if strings.HasPrefix(body, "!") && len(body) > 1 {
		// `${!name}` indirect, `${!prefix*}` / `${!prefix@}` name
		// matching, or `${!arr[@]}` / `${!arr[*]}` keys -- disambiguated
		// once the name and any trailing `[...]`/`*`/`@` is known.
		rest := body[1:]
		name, n := scanName(rest)
		if n == 0 {
			return pe, p.errorf(pos, "invalid parameter expansion ${!%s}", rest)
		}
		tail := rest[n:]
		switch {
		case tail == "*":
			pe.Name, pe.Operator = name, ast.ParamNamesPrefix
			return pe, nil
		case tail == "@":
			pe.Name, pe.Operator = name, ast.ParamNamesPrefixArr
			return pe, nil
		case tail == "[@]" || tail == "[*]":
			pe.Name, pe.Operator = name, ast.ParamKeys
			return pe, nil
		case tail == "":
			pe.Name, pe.Operator = name, ast.ParamIndirect
			return pe, nil
		default:
			return pe, p.errorf(pos, "invalid parameter expansion ${!%s}", rest)
		}
	}

	name, n := scanName(body[i:])
	if n == 0 {
		return pe, p.errorf(pos, "invalid parameter expansion ${%s}", body)
	}
	pe.Name = name
	i += n

	if i < len(body) && body[i] == '[' {
		end := matchingBracket(body, i)
		if end < 0 {
			return pe, p.errorf(pos, "unterminated index in ${%s}", body)
		}
		idxText := body[i+1 : end]
		lengthOf := pe.Operator == ast.ParamLength
		if idxText == "@" || idxText == "*" {
			if lengthOf {
				// ${#arr[@]}/${#arr[*]}: element count, not a string
				// length. Keep Operator == ParamLength and stash the
				// raw "@"/"*" marker in Index so the expander can tell
				// this apart from ${#arr[2]}.
				idx, err := p.operandWord(idxText, pos)
				if err != nil {
					return pe, err
				}
				pe.Index = idx
			} else if idxText == "@" {
				pe.Operator = ast.ParamAt
			} else {
				pe.Operator = ast.ParamStar
			}
		} else {
			idx, err := p.operandWord(idxText, pos)
			if err != nil {
				return pe, err
			}
			pe.Index = idx
		}
		i = end + 1
	} else if pe.Operator == ast.ParamNone && name == "@" {
		pe.Operator = ast.ParamAt
	} else if pe.Operator == ast.ParamNone && name == "*" {
		pe.Operator = ast.ParamStar
	}

	if i == len(body) {
		return pe, nil
	}
	rest := body[i:]
	return p.parseParamOperator(pe, rest, pos)
}

func (p *Parser) parseParamOperator(pe *ast.ParameterExpansion, rest string, pos ast.Position) (*ast.ParameterExpansion, error) {
	set := func(op ast.ParamOperator, operand string) error {
		pe.Operator = op
		w, err := p.operandWord(operand, pos)
		if err != nil {
			return err
		}
		pe.Operand = w
		return nil
	}
	switch {
	case strings.HasPrefix(rest, ":-"):
		return pe, set(ast.ParamDefaultUSet, rest[2:])
	case strings.HasPrefix(rest, "-"):
		return pe, set(ast.ParamDefaultU, rest[1:])
	case strings.HasPrefix(rest, ":="):
		return pe, set(ast.ParamAssignUSet, rest[2:])
	case strings.HasPrefix(rest, "="):
		return pe, set(ast.ParamAssignU, rest[1:])
	case strings.HasPrefix(rest, ":?"):
		return pe, set(ast.ParamErrUSet, rest[2:])
	case strings.HasPrefix(rest, "?"):
		return pe, set(ast.ParamErrU, rest[1:])
	case strings.HasPrefix(rest, ":+"):
		return pe, set(ast.ParamAltUSet, rest[2:])
	case strings.HasPrefix(rest, "+"):
		return pe, set(ast.ParamAltU, rest[1:])
	case strings.HasPrefix(rest, "##"):
		return pe, set(ast.ParamRemLargePre, rest[2:])
	case strings.HasPrefix(rest, "#"):
		return pe, set(ast.ParamRemSmallPre, rest[1:])
	case strings.HasPrefix(rest, "%%"):
		return pe, set(ast.ParamRemLargeSuf, rest[2:])
	case strings.HasPrefix(rest, "%"):
		return pe, set(ast.ParamRemSmallSuf, rest[1:])
	case strings.HasPrefix(rest, "//"):
		return pe, p.parseSubst(pe, ast.ParamSubstAll, rest[2:], pos)
	case strings.HasPrefix(rest, "/#"):
		return pe, p.parseSubst(pe, ast.ParamSubstPrefix, rest[2:], pos)
	case strings.HasPrefix(rest, "/%"):
		return pe, p.parseSubst(pe, ast.ParamSubstSuffix, rest[2:], pos)
	case strings.HasPrefix(rest, "/"):
		return pe, p.parseSubst(pe, ast.ParamSubstFirst, rest[1:], pos)
	case strings.HasPrefix(rest, ":"):
		return pe, p.parseSubstring(pe, rest[1:], pos)
	case strings.HasPrefix(rest, "^^"):
		return pe, set(ast.ParamCaseUAll, rest[2:])
	case strings.HasPrefix(rest, "^"):
		return pe, set(ast.ParamCaseUFirst, rest[1:])
	case strings.HasPrefix(rest, ",,"):
		return pe, set(ast.ParamCaseLAll, rest[2:])
	case strings.HasPrefix(rest, ","):
		return pe, set(ast.ParamCaseLFirst, rest[1:])
	default:
		return pe, p.errorf(pos, "unsupported parameter expansion operator %q", rest)
	}
}

func (p *Parser) parseSubst(pe *ast.ParameterExpansion, op ast.ParamOperator, rest string, pos ast.Position) error {
	pe.Operator = op
	patText, replText, hasRepl := splitUnescaped(rest, '/')
	pat, err := p.operandWord(patText, pos)
	if err != nil {
		return err
	}
	pe.Operand = pat
	if hasRepl {
		repl, err := p.operandWord(replText, pos)
		if err != nil {
			return err
		}
		pe.Operand2 = repl
	}
	return nil
}

func (p *Parser) parseSubstring(pe *ast.ParameterExpansion, rest string, pos ast.Position) error {
	pe.Operator = ast.ParamSubstring
	offText, lenText, hasLen := splitUnescaped(rest, ':')
	off, err := p.operandWord(offText, pos)
	if err != nil {
		return err
	}
	pe.Operand = off
	if hasLen {
		ln, err := p.operandWord(lenText, pos)
		if err != nil {
			return err
		}
		pe.Operand2 = ln
	}
	return nil
}

// splitUnescaped splits s on the first unescaped occurrence of sep.
func splitUnescaped(s string, sep byte) (before, after string, found bool) {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case sep:
			if depth == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return s, "", false
}

// ParseWordText parses s (plain text, not shell source with reserved
// words or operators) into an ast.Word, expanding any $.../${...}/`...`
// it contains exactly as an operand word would be. Used outside the
// normal token stream — e.g. by interp to expand a heredoc body, which
// the lexer hands over as raw text once the delimiter is found.
func ParseWordText(s string, cfg Config) (*ast.Word, error) {
	p := &Parser{cfg: cfg}
	return p.operandWord(s, ast.Position{})
}

func (p *Parser) operandWord(s string, pos ast.Position) (*ast.Word, error) {
	parts, err := lexer.ScanOperand(s, p.cfg.Lexer)
	if err != nil {
		return nil, err
	}
	return p.buildWordFromParts(pos, parts)
}

func scanName(s string) (string, int) {
	if s == "" {
		return "", 0
	}
	if token.SpecialParam(s[:1]) {
		return s[:1], 1
	}
	if !token.IsIdentStart(s[0]) {
		return "", 0
	}
	i := 1
	for i < len(s) && token.IsIdentCont(s[i]) {
		i++
	}
	return s[:i], i
}

func matchingBracket(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
