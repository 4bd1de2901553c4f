package interp

import "os/exec"

func registerTypeBuiltins(r *Runner) {
	r.Builtins["type"] = builtinType
}

// builtinType reports how a name would be resolved in execSimpleCommand's
// own dispatch order (alias, function, builtin, external), per spec.md
// §4.B — kept in sync with that order rather than reimplementing it.
func builtinType(r *Runner, args []string) (int, error) {
	status := 0
	for _, name := range args {
		if alias, ok := r.Aliases[name]; ok {
			r.stdout.WriteString(name + " is aliased to `" + alias + "'\n")
			continue
		}
		if _, ok := r.Functions[name]; ok {
			r.stdout.WriteString(name + " is a function\n")
			continue
		}
		if _, ok := r.Builtins[name]; ok {
			r.stdout.WriteString(name + " is a shell builtin\n")
			continue
		}
		path, err := exec.LookPath(name)
		if err != nil {
			r.stdout.WriteString(name + ": not found\n")
			status = 1
			continue
		}
		r.stdout.WriteString(name + " is " + path + "\n")
	}
	return status, nil
}
