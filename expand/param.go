package expand

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/glob"
	"github.com/philipwilsonTHG/psh/parser"
)

// expandVariableLike resolves a bare $name / $1 / $@ / $* reference (an
// ast.VariableExpansion carries no operator, unlike ${...}).
func expandVariableLike(name string, _ *ast.Word, quoted bool, cfg *Config) ([]segment, error) {
	if name == "@" || name == "*" {
		return buildArraySegments(name, arrayValues(name, cfg), quoted, cfg.ifs()), nil
	}
	vr := cfg.Env.Get(name)
	if cfg.NoUnset && !vr.Set {
		return nil, errf("%s: unbound variable", name)
	}
	return []segment{{text: vr.String(), quoted: quoted, splittable: !quoted}}, nil
}

func arrayValues(name string, cfg *Config) []string {
	if name == "@" || name == "*" {
		return cfg.Env.Get("@").List
	}
	vr := cfg.Env.Get(name)
	switch vr.Kind {
	case Indexed:
		return vr.List
	case Associative:
		keys := make([]string, 0, len(vr.Map))
		for k := range vr.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]string, len(keys))
		for i, k := range keys {
			out[i] = vr.Map[k]
		}
		return out
	default:
		if vr.Set {
			return []string{vr.Str}
		}
		return nil
	}
}

// buildArraySegments turns an array's elements into field segments: "$*"
// joins on the first IFS byte into a single field (split again later if
// unquoted); "$@" keeps every element its own field (hardBreak after every
// element but the last, so a literal prefix joins the first element and a
// literal suffix joins the last), splitting its contents further only when
// unquoted, exactly like a normal unquoted expansion.
func buildArraySegments(name string, arr []string, quoted bool, ifs string) []segment {
	if name == "*" {
		sep := ""
		if ifs != "" {
			sep = ifs[:1]
		}
		return []segment{{text: strings.Join(arr, sep), quoted: quoted, splittable: !quoted}}
	}
	if len(arr) == 0 {
		return nil
	}
	segs := make([]segment, 0, len(arr))
	for i, s := range arr {
		segs = append(segs, segment{text: s, quoted: quoted, splittable: !quoted, hardBreak: i < len(arr)-1})
	}
	return segs
}

// resolvedValue is what a ${...} operator's left-hand side resolves to
// before the operator is applied.
type resolvedValue struct {
	scalar  string
	arr     []string
	isArray bool
	isSet   bool
	isNull  bool // set but empty, for the ":-" family's distinction from "-"
}

func resolveParam(pe *ast.ParameterExpansion, cfg *Config) (resolvedValue, error) {
	switch pe.Operator {
	case ast.ParamAt, ast.ParamStar:
		arr := arrayValues(pe.Name, cfg)
		return resolvedValue{arr: arr, isArray: true, isSet: true, isNull: len(arr) == 0}, nil
	}
	if pe.Index != nil {
		idxText, err := Literal(pe.Index, cfg)
		if err != nil {
			return resolvedValue{}, err
		}
		vr := cfg.Env.Get(pe.Name)
		if vr.Kind == Associative {
			s, ok := vr.Map[idxText]
			return resolvedValue{scalar: s, isSet: ok, isNull: s == ""}, nil
		}
		n, err := evalIndex(idxText, cfg)
		if err != nil || n < 0 || n >= len(vr.List) {
			return resolvedValue{}, nil
		}
		return resolvedValue{scalar: vr.List[n], isSet: true, isNull: vr.List[n] == ""}, nil
	}
	vr := cfg.Env.Get(pe.Name)
	return resolvedValue{scalar: vr.String(), isSet: vr.Set, isNull: vr.String() == ""}, nil
}

func evalIndex(text string, cfg *Config) (int, error) {
	expr, err := parser.ParseArithExpr(text)
	if err != nil {
		return 0, err
	}
	n, err := EvalArith(expr, cfg)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func expandParameterExpansion(pe *ast.ParameterExpansion, quoted bool, cfg *Config) ([]segment, error) {
	switch pe.Operator {
	case ast.ParamAt, ast.ParamStar:
		rv, err := resolveParam(pe, cfg)
		if err != nil {
			return nil, err
		}
		name := "@"
		if pe.Operator == ast.ParamStar {
			name = "*"
		}
		return buildArraySegments(name, rv.arr, quoted, cfg.ifs()), nil

	case ast.ParamLength:
		return expandParamLength(pe, quoted, cfg)

	case ast.ParamIndirect:
		target := cfg.Env.Get(pe.Name).String()
		vr := cfg.Env.Get(target)
		return []segment{{text: vr.String(), quoted: quoted, splittable: !quoted}}, nil

	case ast.ParamNamesPrefix, ast.ParamNamesPrefixArr:
		var names []string
		cfg.Env.Each(func(n string, vr Variable) bool {
			if strings.HasPrefix(n, pe.Name) {
				names = append(names, n)
			}
			return true
		})
		sort.Strings(names)
		if pe.Operator == ast.ParamNamesPrefixArr {
			return buildArraySegments("@", names, quoted, cfg.ifs()), nil
		}
		sep := " "
		return []segment{{text: strings.Join(names, sep), quoted: quoted, splittable: !quoted}}, nil

	case ast.ParamKeys:
		vr := cfg.Env.Get(pe.Name)
		var keys []string
		switch vr.Kind {
		case Associative:
			for k := range vr.Map {
				keys = append(keys, k)
			}
			sort.Strings(keys)
		case Indexed:
			for i := range vr.List {
				keys = append(keys, strconv.Itoa(i))
			}
		}
		return buildArraySegments("@", keys, quoted, cfg.ifs()), nil
	}

	rv, err := resolveParam(pe, cfg)
	if err != nil {
		return nil, err
	}

	switch pe.Operator {
	case ast.ParamNone:
		if rv.isArray && len(rv.arr) > 0 {
			rv.scalar = rv.arr[0]
		}
		return []segment{{text: rv.scalar, quoted: quoted, splittable: !quoted}}, nil

	case ast.ParamDefaultU, ast.ParamDefaultUSet:
		useDefault := !rv.isSet || (pe.Operator == ast.ParamDefaultUSet && rv.isNull)
		if useDefault {
			text, err := Literal(pe.Operand, cfg)
			if err != nil {
				return nil, err
			}
			return []segment{{text: text, quoted: quoted, splittable: !quoted}}, nil
		}
		return []segment{{text: rv.scalar, quoted: quoted, splittable: !quoted}}, nil

	case ast.ParamAssignU, ast.ParamAssignUSet:
		useDefault := !rv.isSet || (pe.Operator == ast.ParamAssignUSet && rv.isNull)
		if useDefault {
			text, err := Literal(pe.Operand, cfg)
			if err != nil {
				return nil, err
			}
			if err := cfg.Env.Set(pe.Name, Variable{Set: true, Kind: String, Str: text}); err != nil {
				return nil, err
			}
			return []segment{{text: text, quoted: quoted, splittable: !quoted}}, nil
		}
		return []segment{{text: rv.scalar, quoted: quoted, splittable: !quoted}}, nil

	case ast.ParamErrU, ast.ParamErrUSet:
		useErr := !rv.isSet || (pe.Operator == ast.ParamErrUSet && rv.isNull)
		if useErr {
			msg := "parameter null or not set"
			if pe.Operand != nil {
				m, err := Literal(pe.Operand, cfg)
				if err != nil {
					return nil, err
				}
				if m != "" {
					msg = m
				}
			}
			return nil, errf("%s: %s", pe.Name, msg)
		}
		return []segment{{text: rv.scalar, quoted: quoted, splittable: !quoted}}, nil

	case ast.ParamAltU, ast.ParamAltUSet:
		useAlt := rv.isSet && !(pe.Operator == ast.ParamAltUSet && rv.isNull)
		if useAlt {
			text, err := Literal(pe.Operand, cfg)
			if err != nil {
				return nil, err
			}
			return []segment{{text: text, quoted: quoted, splittable: !quoted}}, nil
		}
		return []segment{{text: "", quoted: quoted}}, nil

	case ast.ParamRemSmallPre, ast.ParamRemLargePre, ast.ParamRemSmallSuf, ast.ParamRemLargeSuf:
		text, err := trimPattern(pe, rv.scalar, cfg)
		if err != nil {
			return nil, err
		}
		return []segment{{text: text, quoted: quoted, splittable: !quoted}}, nil

	case ast.ParamSubstFirst, ast.ParamSubstAll, ast.ParamSubstPrefix, ast.ParamSubstSuffix:
		text, err := substPattern(pe, rv.scalar, cfg)
		if err != nil {
			return nil, err
		}
		return []segment{{text: text, quoted: quoted, splittable: !quoted}}, nil

	case ast.ParamSubstring:
		text, err := substring(pe, rv.scalar, cfg)
		if err != nil {
			return nil, err
		}
		return []segment{{text: text, quoted: quoted, splittable: !quoted}}, nil

	case ast.ParamCaseUFirst, ast.ParamCaseUAll, ast.ParamCaseLFirst, ast.ParamCaseLAll:
		text, err := changeCase(pe, rv.scalar, cfg)
		if err != nil {
			return nil, err
		}
		return []segment{{text: text, quoted: quoted, splittable: !quoted}}, nil

	default:
		return nil, errf("unsupported parameter expansion operator for %q", pe.Name)
	}
}

func expandParamLength(pe *ast.ParameterExpansion, quoted bool, cfg *Config) ([]segment, error) {
	if pe.Index != nil {
		idxText, err := Literal(pe.Index, cfg)
		if err != nil {
			return nil, err
		}
		if idxText == "@" || idxText == "*" {
			n := len(arrayValues(pe.Name, cfg))
			return []segment{{text: strconv.Itoa(n), quoted: quoted}}, nil
		}
	}
	if pe.Name == "@" || pe.Name == "*" {
		n := len(arrayValues(pe.Name, cfg))
		return []segment{{text: strconv.Itoa(n), quoted: quoted}}, nil
	}
	rv, err := resolveParam(pe, cfg)
	if err != nil {
		return nil, err
	}
	return []segment{{text: strconv.Itoa(utf8.RuneCountInString(rv.scalar)), quoted: quoted}}, nil
}

func patternRegexp(w *ast.Word, cfg *Config, anchor glob.Mode) (*regexp.Regexp, error) {
	text, globOK, err := Pattern(w, cfg)
	if err != nil {
		return nil, err
	}
	if !globOK {
		// a segment came from a quoted context: match the text literally
		return regexp.Compile(regexp.QuoteMeta(text))
	}
	restr, err := glob.Translate(text, anchor|cfg.patternMode())
	if err != nil {
		return nil, err
	}
	return regexp.Compile(restr)
}

func trimPattern(pe *ast.ParameterExpansion, value string, cfg *Config) (string, error) {
	anchor := glob.Mode(0)
	fromStart := pe.Operator == ast.ParamRemSmallPre || pe.Operator == ast.ParamRemLargePre
	largest := pe.Operator == ast.ParamRemLargePre || pe.Operator == ast.ParamRemLargeSuf
	text, globOK, err := Pattern(pe.Operand, cfg)
	if err != nil {
		return "", err
	}
	if !globOK {
		anchor = 0
	}
	restr, err := glob.Translate(text, anchor|cfg.patternMode())
	if err != nil {
		return "", err
	}
	if !largest {
		restr = "(?U)" + restr // prefer shortest match
	}
	if fromStart {
		restr = "^(?:" + restr + ")"
	} else {
		restr = "(?:" + restr + ")$"
	}
	re, err := regexp.Compile(restr)
	if err != nil {
		return "", err
	}
	if !fromStart && !largest {
		// The leftmost match of a $-anchored regexp is the longest suffix,
		// so find the shortest one by trying start positions from the end.
		for i := len(value); i >= 0; i-- {
			if i < len(value) && !utf8.RuneStart(value[i]) {
				continue
			}
			if loc := re.FindStringIndex(value[i:]); loc != nil && loc[0] == 0 {
				return value[:i], nil
			}
		}
		return value, nil
	}
	loc := re.FindStringIndex(value)
	if loc == nil {
		return value, nil
	}
	if fromStart {
		return value[loc[1]:], nil
	}
	return value[:loc[0]], nil
}

func substPattern(pe *ast.ParameterExpansion, value string, cfg *Config) (string, error) {
	text, globOK, err := Pattern(pe.Operand, cfg)
	if err != nil {
		return "", err
	}
	mode := cfg.patternMode()
	if !globOK {
		mode &^= glob.ExtGlob
	}
	restr, err := glob.Translate(text, mode)
	if err != nil {
		return "", err
	}
	switch pe.Operator {
	case ast.ParamSubstPrefix:
		restr = "^(?:" + restr + ")"
	case ast.ParamSubstSuffix:
		restr = "(?:" + restr + ")$"
	}
	re, err := regexp.Compile(restr)
	if err != nil {
		return "", err
	}
	repl := ""
	if pe.Operand2 != nil {
		repl, err = Literal(pe.Operand2, cfg)
		if err != nil {
			return "", err
		}
	}
	repl = strings.ReplaceAll(repl, `$`, `$$`)
	switch pe.Operator {
	case ast.ParamSubstAll:
		return re.ReplaceAllString(value, repl), nil
	default:
		replaced := false
		return re.ReplaceAllStringFunc(value, func(m string) string {
			if replaced {
				return m
			}
			replaced = true
			return re.ReplaceAllString(m, repl)
		}), nil
	}
}

func substring(pe *ast.ParameterExpansion, value string, cfg *Config) (string, error) {
	offText, err := Literal(pe.Operand, cfg)
	if err != nil {
		return "", err
	}
	offExpr, err := parser.ParseArithExpr(offText)
	if err != nil {
		return "", err
	}
	off, err := EvalArith(offExpr, cfg)
	if err != nil {
		return "", err
	}
	runes := []rune(value)
	n := int64(len(runes))
	if off < 0 {
		off += n
		if off < 0 {
			off = 0
		}
	}
	if off > n {
		off = n
	}
	length := n - off
	if pe.Operand2 != nil {
		lenText, err := Literal(pe.Operand2, cfg)
		if err != nil {
			return "", err
		}
		lenExpr, err := parser.ParseArithExpr(lenText)
		if err != nil {
			return "", err
		}
		l, err := EvalArith(lenExpr, cfg)
		if err != nil {
			return "", err
		}
		if l < 0 {
			l = n - off + l
			if l < 0 {
				l = 0
			}
		}
		length = l
	}
	end := off + length
	if end > n {
		end = n
	}
	if end < off {
		end = off
	}
	return string(runes[off:end]), nil
}

func changeCase(pe *ast.ParameterExpansion, value string, cfg *Config) (string, error) {
	all := pe.Operator == ast.ParamCaseUAll || pe.Operator == ast.ParamCaseLAll
	upper := pe.Operator == ast.ParamCaseUFirst || pe.Operator == ast.ParamCaseUAll
	var re *regexp.Regexp
	if pe.Operand != nil {
		var err error
		re, err = patternRegexp(pe.Operand, cfg, 0)
		if err != nil {
			return "", err
		}
	}
	transform := func(r rune) rune {
		if upper {
			return unicode.ToUpper(r)
		}
		return unicode.ToLower(r)
	}
	runes := []rune(value)
	for i := range runes {
		if !all && i > 0 {
			break
		}
		if re != nil && !re.MatchString(string(runes[i])) {
			continue
		}
		runes[i] = transform(runes[i])
	}
	return string(runes), nil
}
