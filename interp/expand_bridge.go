package interp

import (
	"os/user"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/expand"
)

// expandConfig builds the expand.Config for the current call: the
// variable table plus the glob/split options threaded from r.Opts, and
// callbacks that close over r so expand never needs to import interp
// (the one-way dependency direction expand/environ.go's doc comment
// requires).
func (r *Runner) expandConfig() *expand.Config {
	o := r.Opts
	return &expand.Config{
		Env:        r.Vars,
		CmdSubst:   r.runCommandSubstitution,
		ProcSubst:  r.runProcessSubstitution,
		HomeDir:    lookupHomeDir,
		NoGlob:     o.Noglob,
		NullGlob:   o.NullGlob,
		DotGlob:    o.DotGlob,
		ExtGlob:    o.ExtGlob,
		NoCaseGlob: o.NoCaseGlob,
		GlobStar:   o.GlobStar,
		NoUnset:    o.Nounset,
		LineNo:     func() int { return r.lineNo },
	}
}

func lookupHomeDir(name string) (string, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return "", err
	}
	return u.HomeDir, nil
}

// expandWords expands each argument word to zero or more fields, applying
// brace expansion first (per bash ordering: braces run before
// tilde/parameter/command expansion and before split/glob).
func (r *Runner) expandWords(words []*ast.Word) ([]string, error) {
	cfg := r.expandConfig()
	var out []string
	for _, w := range words {
		for _, bw := range expand.Braces(w) {
			fs, err := expand.Fields(bw, cfg)
			if err != nil {
				return nil, err
			}
			out = append(out, fs...)
		}
	}
	return out, nil
}

// expandLiteral expands w the way an assignment RHS or case pattern does:
// no splitting, no globbing.
func (r *Runner) expandLiteral(w *ast.Word) (string, error) {
	return expand.Literal(w, r.expandConfig())
}
