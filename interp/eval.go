package interp

import (
	"github.com/philipwilsonTHG/psh/parser"
)

// RunSource parses src as a complete script/command list and runs it in
// this Runner, used by the `eval`/`source`/`.` builtins, the `-c` CLI
// flag, and trap dispatch (signal.go's dispatchTrap). label only appears
// in parser error messages, identifying where the source came from.
func (r *Runner) RunSource(src, label string) (int, error) {
	p := parser.New(src, r.parserConfig)
	cl, state, err := p.Parse()
	if err != nil {
		if state == parser.Incomplete {
			return 2, errf(2, "%s: unexpected end of input: %v", label, err)
		}
		return 2, errf(2, "%s: %v", label, err)
	}
	if cl == nil {
		return 0, nil
	}
	return r.Run(cl)
}
