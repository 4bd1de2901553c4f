package expand

import (
	"strings"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/glob"
	"github.com/philipwilsonTHG/psh/parser"
)

// segment is one contributor to a word's expansion: either literal text or
// the result of an expansion. quoted segments are never field-split or
// glob-expanded; splittable marks text that came from an un-quoted
// parameter/command/arithmetic expansion and is therefore subject to IFS
// splitting (POSIX never splits literal text — the lexer already broke
// unquoted literal whitespace into separate Words). hardBreak marks the
// boundary after an array element ($@, arr[@]) other than the last, which
// is always a field edge regardless of IFS or quoting.
type segment struct {
	text       string
	quoted     bool
	splittable bool
	hardBreak  bool
}

// Fields performs the full pipeline on w: tilde expansion, parameter and
// command/arithmetic expansion, IFS field splitting, pathname expansion,
// and (implicitly, since segments never carry quote characters) quote
// removal. Used for ordinary command-line argument words.
func Fields(w *ast.Word, cfg *Config) ([]string, error) {
	segs, err := expandWordSegments(w, cfg)
	if err != nil {
		return nil, err
	}
	fields := splitFields(segs, cfg.ifs())
	return globFields(fields, cfg)
}

// Literal expands w the way an assignment RHS, a heredoc delimiter, or a
// case pattern word does: tilde/parameter/command/arithmetic expansion and
// quote removal, but no IFS splitting and no pathname expansion.
func Literal(w *ast.Word, cfg *Config) (string, error) {
	segs, err := expandWordSegments(w, cfg)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, s := range segs {
		sb.WriteString(s.text)
	}
	return sb.String(), nil
}

// Pattern expands w like Literal and also reports whether the whole text is
// glob-eligible, so callers (case, [[ == ]], the param # % operators) can
// pass unquoted wildcard characters through to glob.Translate. The flag is
// per word, not per byte: globOK is true only when no contributing segment
// came from a quoted context; a single quoted segment makes it false for
// the whole text.
func Pattern(w *ast.Word, cfg *Config) (text string, globOK bool, err error) {
	segs, err := expandWordSegments(w, cfg)
	if err != nil {
		return "", false, err
	}
	var sb strings.Builder
	allUnquoted := true
	for _, s := range segs {
		sb.WriteString(s.text)
		if s.quoted {
			allUnquoted = false
		}
	}
	return sb.String(), allUnquoted, nil
}

func expandWordSegments(w *ast.Word, cfg *Config) ([]segment, error) {
	var segs []segment
	for i, part := range w.Parts {
		ps, err := expandPart(part, cfg)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			ps = applyTilde(ps, cfg)
		}
		segs = append(segs, ps...)
	}
	return segs, nil
}

func expandPart(part ast.WordPart, cfg *Config) ([]segment, error) {
	switch p := part.(type) {
	case *ast.LiteralPart:
		return []segment{{text: p.Text, quoted: p.Quoted}}, nil
	case *ast.ExpansionPart:
		return expandExpansion(p, cfg)
	default:
		return nil, errf("unsupported word part %T", part)
	}
}

func expandExpansion(p *ast.ExpansionPart, cfg *Config) ([]segment, error) {
	switch e := p.Expansion.(type) {
	case *ast.VariableExpansion:
		return expandVariableLike(e.Name, nil, p.Quoted, cfg)
	case *ast.ParameterExpansion:
		return expandParameterExpansion(e, p.Quoted, cfg)
	case *ast.CommandSubstitution:
		out, err := cfg.CmdSubst(e.CommandList)
		if err != nil {
			return nil, err
		}
		out = strings.TrimRight(out, "\n")
		return []segment{{text: out, quoted: p.Quoted, splittable: !p.Quoted}}, nil
	case *ast.ArithmeticExpansion:
		expr := e.Expr
		if expr == nil {
			var err error
			expr, err = parser.ParseArithExpr(e.ExprString)
			if err != nil {
				return nil, err
			}
		}
		v, err := EvalArith(expr, cfg)
		if err != nil {
			return nil, err
		}
		return []segment{{text: formatInt(v), quoted: p.Quoted, splittable: !p.Quoted}}, nil
	case *ast.ProcessSubstitution:
		path, err := cfg.ProcSubst(e.Direction, e.CommandList)
		if err != nil {
			return nil, err
		}
		return []segment{{text: path, quoted: p.Quoted}}, nil
	default:
		return nil, errf("unsupported expansion %T", p.Expansion)
	}
}

func formatInt(v int64) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [24]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// splitFields turns the flat segment stream into final field strings,
// honouring quoting, splittable runs, and hard array-element breaks.
func splitFields(segs []segment, ifs string) []string {
	var fields []string
	var cur strings.Builder
	haveContent := false // true once cur holds literal or quoted text

	flush := func() {
		if haveContent || cur.Len() > 0 {
			fields = append(fields, cur.String())
		}
		cur.Reset()
		haveContent = false
	}

	for _, s := range segs {
		if !s.splittable {
			if s.text != "" || s.quoted {
				haveContent = true
			}
			cur.WriteString(s.text)
		} else {
			pieces := splitIFS(s.text, ifs)
			for i, piece := range pieces {
				if i > 0 {
					flush()
				}
				if piece != "" {
					haveContent = true
				}
				cur.WriteString(piece)
			}
		}
		if s.hardBreak {
			flush()
		}
	}
	flush()
	return fields
}

// splitIFS implements spec.md §4's field-splitting rule precisely (the
// teacher's own expand.go uses a plain strings.FieldsFunc over IFS here,
// which collapses every run of IFS characters alike and never yields an
// empty field — too coarse for invariant 7: whitespace IFS characters
// (space/tab/newline, only when also present in IFS) collapse as a unit
// and are trimmed from both ends, but each non-whitespace IFS character
// always introduces its own field boundary, preserving empty fields
// around it even when adjacent to collapsed whitespace.
func splitIFS(s, ifs string) []string {
	if ifs == "" {
		return []string{s}
	}
	isWhitespace := func(r rune) bool {
		return (r == ' ' || r == '\t' || r == '\n') && strings.ContainsRune(ifs, r)
	}
	isSep := func(r rune) bool { return strings.ContainsRune(ifs, r) }

	runes := []rune(s)
	start, end := 0, len(runes)
	for start < end && isWhitespace(runes[start]) {
		start++
	}
	for end > start && isWhitespace(runes[end-1]) {
		end--
	}
	runes = runes[start:end]
	n := len(runes)

	var fields []string
	var cur strings.Builder
	i := 0
	for i < n {
		if !isSep(runes[i]) {
			cur.WriteRune(runes[i])
			i++
			continue
		}
		sawNonWhitespace := false
		for i < n && isSep(runes[i]) {
			if !isWhitespace(runes[i]) {
				if sawNonWhitespace {
					fields = append(fields, cur.String())
					cur.Reset()
				}
				sawNonWhitespace = true
			}
			i++
		}
		fields = append(fields, cur.String())
		cur.Reset()
	}
	fields = append(fields, cur.String())
	return fields
}

func globFields(fields []string, cfg *Config) ([]string, error) {
	if cfg.NoGlob {
		return fields, nil
	}
	var out []string
	for _, f := range fields {
		if !glob.HasMeta(f, cfg.patternMode()) {
			out = append(out, f)
			continue
		}
		matches, err := glob.Expand(f, cfg.globOpts())
		if err != nil {
			return nil, err
		}
		out = append(out, matches...)
	}
	return out, nil
}
