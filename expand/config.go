package expand

import (
	"fmt"

	"github.com/philipwilsonTHG/psh/ast"
	"github.com/philipwilsonTHG/psh/glob"
)

// Error is a position-less expansion-time error (bad substitution, unset
// variable under nounset, division by zero, ...); interp wraps it with a
// position when it has one available from the originating ast node.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// Config carries everything the expansion pipeline needs from its caller:
// the variable table, callbacks to run nested command lists (command and
// process substitution truly fork in interp; the expander only knows how to
// ask for their captured output), and the active glob/split options.
type Config struct {
	Env WriteEnviron

	// CmdSubst runs cl (a $(...) or `...` body) and returns its captured
	// stdout, trailing newlines stripped, per spec.md §4.X.
	CmdSubst func(cl *ast.CommandList) (string, error)

	// ProcSubst runs cl as <(...) or >(...) and returns the /dev/fd (or
	// named-pipe) path substituted in its place.
	ProcSubst func(dir byte, cl *ast.CommandList) (string, error)

	// HomeDir resolves `~` and `~user` for tilde expansion; nil means
	// "use os/user" (the default interp.Runner wiring).
	HomeDir func(user string) (string, error)

	NoGlob     bool
	NullGlob   bool
	DotGlob    bool
	ExtGlob    bool
	NoCaseGlob bool
	GlobStar   bool

	NoUnset bool // nounset: referencing an unset variable is an error

	// LineNo resolves ${LINENO}; nil means "always 0".
	LineNo func() int
}

func (c *Config) patternMode() glob.Mode {
	m := glob.Mode(glob.Filenames)
	if c.ExtGlob {
		m |= glob.ExtGlob
	}
	if c.NoCaseGlob {
		m |= glob.NoCase
	}
	return m
}

func (c *Config) globOpts() glob.Options {
	return glob.Options{
		NoGlob:     c.NoGlob,
		NullGlob:   c.NullGlob,
		DotGlob:    c.DotGlob,
		ExtGlob:    c.ExtGlob,
		NoCaseGlob: c.NoCaseGlob,
		GlobStar:   c.GlobStar,
	}
}

func (c *Config) ifs() string {
	vr := c.Env.Get("IFS")
	if !vr.Set {
		return " \t\n"
	}
	return vr.String()
}
