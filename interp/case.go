package interp

import (
	"io"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/expand"
	"github.com/philipwilsonTHG/psh/glob"
)

// expandPatternWord expands a case item's pattern word the way
// expand.Pattern does: quote-removal with a glob-eligibility flag so an
// entirely-quoted pattern (`"foo"`) matches literally instead of as a
// wildcard.
func expandPatternWord(r *Runner, w *ast.Word) (string, bool, error) {
	return expand.Pattern(w, r.expandConfig())
}

func matchCasePattern(pat, subj string, globOK bool) (bool, error) {
	opts := glob.Options{ExtGlob: true}
	if !globOK {
		return pat == subj, nil
	}
	return glob.Match(pat, subj, opts)
}

func itoaFor(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func atoiFor(s string) int {
	n := 0
	neg := false
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0
		}
		n = n*10 + int(s[i]-'0')
	}
	if neg {
		n = -n
	}
	return n
}

// readLine reads one newline-terminated line from f, per the `select`
// loop and the `read` builtin's simplest form. ok is false at EOF with no
// bytes read.
func readLine(f io.Reader) (string, bool) {
	var buf []byte
	one := make([]byte, 1)
	read := false
	for {
		n, err := f.Read(one)
		if n > 0 {
			read = true
			if one[0] == '\n' {
				break
			}
			buf = append(buf, one[0])
		}
		if err != nil {
			break
		}
	}
	return string(buf), read
}
