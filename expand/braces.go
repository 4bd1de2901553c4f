package expand

import (
	"strconv"
	"strings"

	"github.com/philipwilsonTHG/psh/ast"
)

// Braces performs bash brace expansion on a word: "foo{bar,baz}" becomes
// the two words "foobar" and "foobaz"; "file{1..3}" becomes "file1",
// "file2", "file3". It runs before tilde/parameter/command expansion, on
// the word's literal text only, matching bash's own ordering (brace
// expansion happens first, on raw unexpanded text).
//
// Unlike the teacher, whose lexer keeps {..} as a first-class node, our
// parser never tokenizes braces specially, so this operates after the
// fact on Word.Lit(): if w is not a pure literal (it contains an
// expansion part, e.g. "$x{a,b}"), brace expansion is skipped entirely
// and w is returned unchanged — a documented, conservative limitation.
// Malformed brace groups (unbalanced, or a single element with no comma
// or ".." range) are left untouched, same as bash.
func Braces(w *ast.Word) []*ast.Word {
	lit, ok := w.Lit()
	if !ok {
		return []*ast.Word{w}
	}
	expanded := expandBraceText(lit)
	if len(expanded) == 1 && expanded[0] == lit {
		return []*ast.Word{w}
	}
	out := make([]*ast.Word, len(expanded))
	for i, s := range expanded {
		out[i] = &ast.Word{Parts: []ast.WordPart{&ast.LiteralPart{Text: s}}}
	}
	return out
}

// expandBraceText runs brace expansion on a plain string, recursively.
func expandBraceText(s string) []string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return []string{s}
	}
	end := matchingBrace(s, start)
	if end < 0 {
		return []string{s}
	}
	prefix, body, suffix := s[:start], s[start+1:end], s[end+1:]
	alts := splitBraceAlts(body)
	if alts == nil {
		// No top-level comma and not a valid range: not a brace group.
		rest := expandBraceText(suffix)
		out := make([]string, 0, len(rest))
		for _, r := range rest {
			out = append(out, prefix+"{"+body+"}"+r)
		}
		return out
	}
	var out []string
	for _, alt := range alts {
		for _, sfx := range expandBraceText(suffix) {
			for _, combined := range expandBraceText(alt) {
				out = append(out, prefix+combined+sfx)
			}
		}
	}
	return out
}

// matchingBrace returns the index of the '}' matching the '{' at open, or
// -1 if unbalanced.
func matchingBrace(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitBraceAlts returns the alternatives for a brace body: either a
// comma-separated list ("a,b,c") or a ".."-range ("1..5", "a..e", with an
// optional "..step"). Returns nil if body is neither (a lone segment with
// no comma, e.g. "{foo}", isn't a brace expansion in bash).
func splitBraceAlts(body string) []string {
	if r := rangeAlts(body); r != nil {
		return r
	}
	parts := splitTopLevelComma(body)
	if len(parts) < 2 {
		return nil
	}
	return parts
}

func splitTopLevelComma(s string) []string {
	var out []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[last:i])
				last = i + 1
			}
		}
	}
	out = append(out, s[last:])
	return out
}

// rangeAlts recognizes "x..y" and "x..y..step" numeric or single-letter
// ranges. Returns nil if body isn't a range.
func rangeAlts(body string) []string {
	fields := strings.Split(body, "..")
	if len(fields) != 2 && len(fields) != 3 {
		return nil
	}
	step := 1
	if len(fields) == 3 {
		n, err := strconv.Atoi(fields[2])
		if err != nil || n == 0 {
			return nil
		}
		step = n
	}
	lo, hi := fields[0], fields[1]

	if len(lo) == 1 && len(hi) == 1 && !isDigit(lo[0]) && !isDigit(hi[0]) {
		return letterRange(lo[0], hi[0], step)
	}
	loN, err1 := strconv.Atoi(lo)
	hiN, err2 := strconv.Atoi(hi)
	if err1 != nil || err2 != nil {
		return nil
	}
	width := 0
	if (strings.HasPrefix(lo, "0") && len(lo) > 1) || (strings.HasPrefix(hi, "0") && len(hi) > 1) {
		if len(lo) > len(hi) {
			width = len(lo)
		} else {
			width = len(hi)
		}
	}
	return intRange(loN, hiN, step, width)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func letterRange(lo, hi byte, step int) []string {
	if step < 0 {
		step = -step
	}
	var out []string
	if lo <= hi {
		for c := lo; ; c += byte(step) {
			out = append(out, string(c))
			if int(c)+step > int(hi) {
				break
			}
		}
	} else {
		for c := lo; ; c -= byte(step) {
			out = append(out, string(c))
			if int(c)-step < int(hi) {
				break
			}
		}
	}
	return out
}

func intRange(lo, hi, step, width int) []string {
	if step < 0 {
		step = -step
	}
	var out []string
	format := func(n int) string {
		s := strconv.Itoa(n)
		if width == 0 {
			return s
		}
		neg := strings.HasPrefix(s, "-")
		if neg {
			s = s[1:]
		}
		for len(s) < width {
			s = "0" + s
		}
		if neg {
			s = "-" + s
		}
		return s
	}
	if lo <= hi {
		for n := lo; n <= hi; n += step {
			out = append(out, format(n))
		}
	} else {
		for n := lo; n >= hi; n -= step {
			out = append(out, format(n))
		}
	}
	return out
}
