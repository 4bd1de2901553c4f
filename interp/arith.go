package interp

import (
	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/expand"
)

// evalArithCommand evaluates an `(( expr ))`/C-style-for clause through
// the same expand.EvalArith walker that $(( )) expansion uses, so
// assignment and side effects on shell variables behave identically in
// both contexts.
func (r *Runner) evalArithCommand(expr ast.ArithExpr) (int64, error) {
	if expr == nil {
		return 1, nil
	}
	return expand.EvalArith(expr, r.expandConfig())
}
