package interp

import (
	"fmt"
	"strconv"
	"strings"
)

// runPrintf implements the printf builtin's format mini-language, kept
// separate from the shell's own word/parameter parser per spec.md §9's
// note that printf's `%`-directives are a wholly different grammar and
// don't belong tangled into the lexer. Supported verbs: %s %d %i %o %x
// %X %u %c %b %q %e %f %g %%, with POSIX's cycle-the-format-over-
// leftover-arguments behaviour when more arguments are supplied than the
// format consumes.
func (r *Runner) runPrintf(format string, args []string) (string, error) {
	var out strings.Builder
	ai := 0
	nextArg := func() string {
		if ai < len(args) {
			s := args[ai]
			ai++
			return s
		}
		return ""
	}

	consumeOnce := func() error {
		i := 0
		for i < len(format) {
			c := format[i]
			if c == '\\' && i+1 < len(format) {
				out.WriteByte(unescapeOne(format[i+1]))
				i += 2
				continue
			}
			if c != '%' {
				out.WriteByte(c)
				i++
				continue
			}
			i++
			if i >= len(format) {
				out.WriteByte('%')
				break
			}
			spec, verb, n := scanPrintfSpec(format[i:])
			i += n
			if err := applyPrintfVerb(&out, spec, verb, nextArg); err != nil {
				return err
			}
		}
		return nil
	}

	if err := consumeOnce(); err != nil {
		return "", err
	}
	for ai > 0 && ai < len(args) {
		if err := consumeOnce(); err != nil {
			return "", err
		}
	}
	return out.String(), nil
}

// scanPrintfSpec splits a `%`-directive (the part after the `%`) into its
// flags/width/precision prefix and verb byte, returning how many bytes of
// s it consumed.
func scanPrintfSpec(s string) (spec string, verb byte, n int) {
	i := 0
	for i < len(s) && strings.IndexByte("-+ 0#123456789.", s[i]) >= 0 {
		i++
	}
	if i >= len(s) {
		return s[:i], 0, i
	}
	return s[:i], s[i], i + 1
}

func applyPrintfVerb(out *strings.Builder, spec string, verb byte, nextArg func() string) error {
	switch verb {
	case '%':
		out.WriteByte('%')
	case 's':
		fmt.Fprintf(out, "%"+spec+"s", nextArg())
	case 'c':
		a := nextArg()
		if len(a) > 0 {
			out.WriteByte(a[0])
		}
	case 'q':
		out.WriteString(shellQuote(nextArg()))
	case 'b':
		out.WriteString(unescapeAll(nextArg()))
	case 'd', 'i':
		n, _ := strconv.ParseInt(numericPrefix(nextArg()), 0, 64)
		fmt.Fprintf(out, "%"+spec+"d", n)
	case 'o':
		n, _ := strconv.ParseInt(numericPrefix(nextArg()), 0, 64)
		fmt.Fprintf(out, "%"+spec+"o", n)
	case 'x':
		n, _ := strconv.ParseInt(numericPrefix(nextArg()), 0, 64)
		fmt.Fprintf(out, "%"+spec+"x", n)
	case 'X':
		n, _ := strconv.ParseInt(numericPrefix(nextArg()), 0, 64)
		fmt.Fprintf(out, "%"+spec+"X", n)
	case 'u':
		n, _ := strconv.ParseUint(numericPrefix(nextArg()), 0, 64)
		fmt.Fprintf(out, "%"+spec+"d", n)
	case 'e', 'f', 'g':
		f, _ := strconv.ParseFloat(numericPrefix(nextArg()), 64)
		fmt.Fprintf(out, "%"+spec+string(verb), f)
	default:
		out.WriteByte('%')
		out.WriteString(spec)
		out.WriteByte(verb)
	}
	return nil
}

func numericPrefix(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "0"
	}
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.' || s[i] == 'x' || s[i] == 'X' ||
		(s[i] >= 'a' && s[i] <= 'f') || (s[i] >= 'A' && s[i] <= 'F')) {
		i++
	}
	if i == 0 {
		return "0"
	}
	return s[:i]
}

func unescapeOne(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '\\':
		return '\\'
	default:
		return c
	}
}

func unescapeAll(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			b.WriteByte(unescapeOne(s[i+1]))
			i++
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// shellQuote implements %q: quote a string so it can be reused as shell
// input, per spec.md §4.B's printf entry.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for _, c := range s {
		if !(c == '_' || c == '-' || c == '.' || c == '/' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
