package interp

import (
	"strings"

	"github.com/philipwilsonTHG/psh/expand"
)

func registerVarBuiltins(r *Runner) {
	r.Builtins["export"] = builtinExport
	r.Builtins["unset"] = builtinUnset
	r.Builtins["declare"] = builtinDeclare
	r.Builtins["typeset"] = builtinDeclare
	r.Builtins["local"] = builtinLocal
	r.Builtins["readonly"] = builtinReadonly
	r.Builtins["shift"] = builtinShift
	r.Builtins["set"] = builtinSet
	r.Builtins["shopt"] = builtinShopt
}

func builtinExport(r *Runner, args []string) (int, error) {
	for _, a := range args {
		name, val, hasVal := strings.Cut(a, "=")
		var nv *Variable
		if hasVal {
			nv = &Variable{Kind: expand.String, Str: val}
		} else if existing, ok := r.Vars.GetVar(name); ok {
			nv = &Variable{Kind: existing.Kind, Str: existing.Str, List: existing.List, Map: existing.Map, Attrs: existing.Attrs}
		} else {
			nv = &Variable{Kind: expand.String}
		}
		nv.Attrs |= AttrExport
		if err := r.Vars.SetVar(name, nv, false); err != nil {
			return 1, err
		}
	}
	return 0, nil
}

func builtinUnset(r *Runner, args []string) (int, error) {
	for _, name := range args {
		if name == "-f" || name == "-v" {
			continue
		}
		if _, ok := r.Functions[name]; ok {
			delete(r.Functions, name)
			continue
		}
		if vr, ok := r.Vars.GetVar(name); ok && vr.Attrs.has(AttrReadOnly) {
			return 1, errf(1, "%s: readonly variable", name)
		}
		r.Vars.Unset(name)
	}
	return 0, nil
}

// builtinDeclare implements `declare`/`typeset` attribute-setting form
// (`declare -x`/`-r`/`-i`/`-a`/`-A`/`-l`/`-u name[=val]`), plus the
// bare `declare -p` listing form, per spec.md §4.B.
func builtinDeclare(r *Runner, args []string) (int, error) {
	return declareImpl(r, args, false)
}

func builtinLocal(r *Runner, args []string) (int, error) {
	return declareImpl(r, args, true)
}

func declareImpl(r *Runner, args []string, local bool) (int, error) {
	var attrs VarAttr
	var names []string
	printAll := false
	for _, a := range args {
		if strings.HasPrefix(a, "-") && len(a) > 1 && a != "-" {
			for _, f := range a[1:] {
				switch f {
				case 'x':
					attrs |= AttrExport
				case 'r':
					attrs |= AttrReadOnly
				case 'i':
					attrs |= AttrInteger
				case 'a':
					attrs |= AttrArray
				case 'A':
					attrs |= AttrAssoc
				case 'l':
					attrs |= AttrLower
				case 'u':
					attrs |= AttrUpper
				case 'n':
					attrs |= AttrNameref
				case 'p':
					printAll = true
				}
			}
			continue
		}
		names = append(names, a)
	}
	if printAll || len(names) == 0 {
		printDeclared(r, names)
		return 0, nil
	}
	for _, a := range names {
		name, val, hasVal := strings.Cut(a, "=")
		nv := &Variable{Attrs: attrs, Kind: expand.String}
		if hasVal {
			nv.Str = val
		} else if existing, ok := r.Vars.GetVar(name); ok {
			nv.Kind, nv.Str, nv.List, nv.Map = existing.Kind, existing.Str, existing.List, existing.Map
		}
		if err := r.Vars.SetVar(name, nv, local); err != nil {
			return 1, err
		}
	}
	return 0, nil
}

func printDeclared(r *Runner, names []string) {
	print1 := func(name string, vr *Variable) {
		var flags string
		if vr.Attrs.has(AttrExport) {
			flags += "x"
		}
		if vr.Attrs.has(AttrReadOnly) {
			flags += "r"
		}
		if vr.Attrs.has(AttrInteger) {
			flags += "i"
		}
		if vr.Attrs.has(AttrArray) {
			flags += "a"
		}
		if vr.Attrs.has(AttrAssoc) {
			flags += "A"
		}
		if flags == "" {
			flags = "-"
		}
		r.stdout.WriteString("declare -" + flags + " " + name + "=\"" + vr.Str + "\"\n")
	}
	if len(names) == 0 {
		r.Vars.Each(func(name string, vr expand.Variable) bool {
			if rv, ok := r.Vars.GetVar(name); ok {
				print1(name, rv)
			}
			return true
		})
		return
	}
	for _, name := range names {
		if vr, ok := r.Vars.GetVar(name); ok {
			print1(name, vr)
		}
	}
}

func builtinReadonly(r *Runner, args []string) (int, error) {
	for _, a := range args {
		name, val, hasVal := strings.Cut(a, "=")
		nv := &Variable{Kind: expand.String, Attrs: AttrReadOnly}
		if hasVal {
			nv.Str = val
		} else if existing, ok := r.Vars.GetVar(name); ok {
			nv.Kind, nv.Str, nv.List, nv.Map, nv.Attrs = existing.Kind, existing.Str, existing.List, existing.Map, existing.Attrs|AttrReadOnly
		}
		if err := r.Vars.SetVar(name, nv, false); err != nil {
			return 1, err
		}
	}
	return 0, nil
}

func builtinShift(r *Runner, args []string) (int, error) {
	n := 1
	if len(args) > 0 {
		v, err := optionalCount(args)
		if err != nil {
			return 1, err
		}
		n = v
	}
	if !r.Vars.ShiftPositional(n) {
		return 1, nil
	}
	return 0, nil
}

// builtinSet implements `set -eux`/`set -o name`/`set +o name` and the
// bare `set` positional-parameter-reassignment form, dispatching through
// options.go's lookup tables.
func builtinSet(r *Runner, args []string) (int, error) {
	i := 0
	for i < len(args) {
		a := args[i]
		if a == "--" {
			i++
			break
		}
		if len(a) < 2 || (a[0] != '-' && a[0] != '+') {
			break
		}
		on := a[0] == '-'
		if a == "-o" || a == "+o" {
			i++
			if i >= len(args) {
				return 0, nil
			}
			if fn, ok := setOptNames[args[i]]; ok {
				fn(r.Opts, on)
			}
			i++
			continue
		}
		for _, f := range a[1:] {
			if fn, ok := setOptLetters[byte(f)]; ok {
				fn(r.Opts, on)
			}
		}
		i++
	}
	if i < len(args) {
		r.Vars.SetPositional(args[i:])
	}
	return 0, nil
}

func builtinShopt(r *Runner, args []string) (int, error) {
	mode := "-s"
	i := 0
	if len(args) > 0 && (args[0] == "-s" || args[0] == "-u") {
		mode = args[0]
		i++
	}
	for ; i < len(args); i++ {
		if fn, ok := shoptNames[args[i]]; ok {
			fn(r.Opts, mode == "-s")
		}
	}
	return 0, nil
}
