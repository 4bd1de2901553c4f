package interp

import "strings"

func registerAliasBuiltins(r *Runner) {
	r.Builtins["alias"] = builtinAlias
	r.Builtins["unalias"] = builtinUnalias
}

func builtinAlias(r *Runner, args []string) (int, error) {
	if len(args) == 0 {
		for name, val := range r.Aliases {
			r.stdout.WriteString("alias " + name + "='" + val + "'\n")
		}
		return 0, nil
	}
	status := 0
	for _, a := range args {
		name, val, hasVal := strings.Cut(a, "=")
		if !hasVal {
			val, ok := r.Aliases[name]
			if !ok {
				r.stderr.WriteString("alias: " + name + ": not found\n")
				status = 1
				continue
			}
			r.stdout.WriteString("alias " + name + "='" + val + "'\n")
			continue
		}
		r.Aliases[name] = val
	}
	return status, nil
}

func builtinUnalias(r *Runner, args []string) (int, error) {
	for _, name := range args {
		if name == "-a" {
			r.Aliases = map[string]string{}
			continue
		}
		delete(r.Aliases, name)
	}
	return 0, nil
}
