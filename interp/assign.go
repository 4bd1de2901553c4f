package interp

import (
	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/expand"
	"github.com/philipwilsonTHG/psh/parser"
)

// applyAssignment implements one `name=value` / `name[i]=value` /
// `name=(...)` form, per spec.md §4.P's three assignment shapes. local
// mirrors the `local` builtin's placement rule (always the innermost
// scope frame) — also used for a command-prefix assignment
// (`FOO=bar cmd`), which the caller isolates by pushing a throwaway
// frame around the whole command (see execSimpleCommand).
func (r *Runner) applyAssignment(a *ast.Assignment, local bool) error {
	switch a.Kind {
	case ast.AssignString:
		val, err := r.expandLiteral(a.Value)
		if err != nil {
			return err
		}
		if a.Append {
			if existing, ok := r.Vars.GetVar(a.Name); ok {
				val = existing.Str + val
			}
		}
		return r.Vars.SetVar(a.Name, &Variable{Kind: expand.String, Str: val}, local)

	case ast.AssignArrayElem:
		n, err := r.evalArrayIndex(a.Index)
		if err != nil {
			return err
		}
		val, err := r.expandLiteral(a.Value)
		if err != nil {
			return err
		}
		var list []string
		if existing, ok := r.Vars.GetVar(a.Name); ok {
			list = append([]string{}, existing.List...)
		}
		for len(list) <= n {
			list = append(list, "")
		}
		if a.Append {
			list[n] += val
		} else {
			list[n] = val
		}
		return r.Vars.SetVar(a.Name, &Variable{Kind: expand.Indexed, List: list}, local)

	case ast.AssignArrayInit:
		var list []string
		next := 0
		for _, el := range a.Elems {
			val, err := r.expandLiteral(el.Value)
			if err != nil {
				return err
			}
			idx := next
			if el.Index != nil {
				n, err := r.evalArrayIndex(el.Index)
				if err != nil {
					return err
				}
				idx = n
			}
			for len(list) <= idx {
				list = append(list, "")
			}
			list[idx] = val
			next = idx + 1
		}
		return r.Vars.SetVar(a.Name, &Variable{Kind: expand.Indexed, List: list}, local)
	}
	return nil
}

func (r *Runner) evalArrayIndex(w *ast.Word) (int, error) {
	text, err := r.expandLiteral(w)
	if err != nil {
		return 0, err
	}
	expr, err := parser.ParseArithExpr(text)
	if err != nil {
		return 0, err
	}
	n, err := expand.EvalArith(expr, r.expandConfig())
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
