package interp

import (
	"os"
	"strings"

	"github.com/philipwilsonTHG/psh/expand"
)

func registerIOBuiltins(r *Runner) {
	r.Builtins["echo"] = builtinEcho
	r.Builtins["printf"] = builtinPrintf
	r.Builtins["read"] = builtinRead
	r.Builtins["cd"] = builtinCd
	r.Builtins["pwd"] = builtinPwd
}

// builtinEcho follows the common `-n`/`-e`/`-E` subset, per spec.md
// §4.B; it stops scanning options at the first arg that isn't one of
// them, matching every POSIX-ish echo's quirk that `echo -x` prints
// literally once `-x` isn't a recognized flag.
func builtinEcho(r *Runner, args []string) (int, error) {
	noNewline := false
	interpret := false
	i := 0
scan:
	for i < len(args) {
		switch args[i] {
		case "-n":
			noNewline = true
		case "-e":
			interpret = true
		case "-E":
			interpret = false
		default:
			break scan
		}
		i++
	}
	parts := args[i:]
	line := strings.Join(parts, " ")
	if interpret {
		line = unescapeAll(line)
	}
	r.stdout.WriteString(line)
	if !noNewline {
		r.stdout.WriteString("\n")
	}
	return 0, nil
}

func builtinPrintf(r *Runner, args []string) (int, error) {
	if len(args) == 0 {
		return 1, errf(1, "printf: format required")
	}
	out, err := r.runPrintf(args[0], args[1:])
	if err != nil {
		return 1, err
	}
	r.stdout.WriteString(out)
	return 0, nil
}

// builtinRead implements `read [-r] [-a array] [-p prompt] [name...]`,
// splitting one line of input on $IFS across the given names (the last
// name absorbs any remaining fields, per POSIX), defaulting to REPLY
// when no names are given.
func builtinRead(r *Runner, args []string) (int, error) {
	raw := false
	var arrayName, prompt string
	var names []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-r":
			raw = true
		case "-a":
			i++
			if i < len(args) {
				arrayName = args[i]
			}
		case "-p":
			i++
			if i < len(args) {
				prompt = args[i]
			}
		default:
			names = append(names, args[i])
		}
	}
	if prompt != "" {
		r.stderr.WriteString(prompt)
	}
	line, ok := readLine(r.stdin)
	if !raw {
		line = unescapeAll(line)
	}
	ifs := r.Vars.Get("IFS").String()
	fields := splitIFS(line, ifs)

	if arrayName != "" {
		r.Vars.SetVar(arrayName, &Variable{Kind: expand.Indexed, List: fields}, false)
		return boolStatus(ok), nil
	}
	if len(names) == 0 {
		names = []string{"REPLY"}
	}
	for i, name := range names {
		val := ""
		if i < len(fields) {
			if i == len(names)-1 {
				val = strings.Join(fields[i:], firstByteOr(ifs, ' '))
			} else {
				val = fields[i]
			}
		}
		r.Vars.SetVar(name, &Variable{Kind: expand.String, Str: val}, false)
	}
	return boolStatus(ok), nil
}

func boolStatus(ok bool) int {
	if ok {
		return 0
	}
	return 1
}

func firstByteOr(s string, def byte) string {
	if s == "" {
		return string(def)
	}
	return string(s[0])
}

func splitIFS(s, ifs string) []string {
	if ifs == "" {
		ifs = " \t\n"
	}
	return strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(ifs, r)
	})
}

func builtinCd(r *Runner, args []string) (int, error) {
	dir := r.Vars.Get("HOME").String()
	if len(args) > 0 {
		dir = args[0]
		if dir == "-" {
			dir = r.Vars.Get("OLDPWD").String()
		}
	}
	if dir == "" {
		return 1, errf(1, "cd: HOME not set")
	}
	old, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		return 1, errf(1, "cd: %v", err)
	}
	pwd, _ := os.Getwd()
	r.Vars.SetVar("OLDPWD", &Variable{Kind: expand.String, Str: old}, false)
	r.Vars.SetVar("PWD", &Variable{Kind: expand.String, Str: pwd}, false)
	return 0, nil
}

func builtinPwd(r *Runner, args []string) (int, error) {
	pwd, err := os.Getwd()
	if err != nil {
		return 1, err
	}
	r.stdout.WriteString(pwd + "\n")
	return 0, nil
}
