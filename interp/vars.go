// Package interp is the executor and runtime substrate: variable scopes,
// jobs, signals, traps, redirections, builtins, and fd bookkeeping. It
// follows the teacher's interp/runner.go visitor-style dispatch over the
// Command AST. External commands, including those in pipeline stages, run
// as real OS processes (os/exec). Subshells, command substitution and
// process substitution do not fork: they run in-process on a copy of the
// Runner (subshellCopy) with a cloned variable table.
package interp

import (
	"sort"
	"strconv"

	"github.com/philipwilsonTHG/psh/expand"
)

// VarAttr is the attribute bitset from spec.md §3, generalizing the
// teacher's Variable.ReadOnly/NameRef bools (expand/environ.go) into the
// full set declare/typeset can set.
type VarAttr uint16

const (
	AttrExport VarAttr = 1 << iota
	AttrReadOnly
	AttrInteger
	AttrLower
	AttrUpper
	AttrArray
	AttrAssoc
	AttrNameref
	// AttrTombstone marks a name explicitly unset in a scope that shadows
	// a same-named variable further down the stack, so lookup stops
	// there instead of falling through to the shadowed value.
	AttrTombstone
)

func (a VarAttr) has(f VarAttr) bool { return a&f != 0 }

// Variable is the runtime representation of one shell variable: richer
// than expand.Variable (it carries the full attribute bitset, not just
// the three bools the expander needs), but convertible to one via toExpand.
type Variable struct {
	Attrs VarAttr
	Kind  expand.ValueKind
	Str   string
	List  []string
	Map   map[string]string
}

func (v *Variable) toExpand(set bool) expand.Variable {
	return expand.Variable{
		Set:      set,
		Exported: v.Attrs.has(AttrExport),
		ReadOnly: v.Attrs.has(AttrReadOnly),
		Integer:  v.Attrs.has(AttrInteger),
		Kind:     v.Kind,
		Str:      v.Str,
		List:     v.List,
		Map:      v.Map,
	}
}

// scope is one frame of the variable stack: the global frame, or one
// pushed per function call per spec.md §3's function-scope invariant
// ("`local` creates a new frame; lookup walks frames innermost-first").
type scope struct {
	vars map[string]*Variable
}

func newScope() *scope { return &scope{vars: map[string]*Variable{}} }

// Vars is the shell's full variable table: the scope stack plus the
// positional parameters and the handful of special parameters ($?, $$,
// $!, $#, $0) that are not ordinary named variables. It implements
// expand.WriteEnviron so the expand package can be driven directly from a
// *Vars, keeping expand import-free of interp per the architecture note
// in expand/environ.go.
type Vars struct {
	global *scope
	funcs  []*scope // call stack of `local` frames, innermost last

	positional []string // positional[0] is unused; args start at [1]
	scriptName string
	lastStatus int
	lastBgPID  int
	shellPID   int
	subshell   bool
}

func NewVars(scriptName string, args []string, pid int) *Vars {
	v := &Vars{
		global:     newScope(),
		scriptName: scriptName,
		shellPID:   pid,
	}
	v.positional = append([]string{scriptName}, args...)
	return v
}

// PushScope opens a new `local` frame for a function call.
func (v *Vars) PushScope() { v.funcs = append(v.funcs, newScope()) }

// PopScope closes the innermost `local` frame.
func (v *Vars) PopScope() {
	if len(v.funcs) > 0 {
		v.funcs = v.funcs[:len(v.funcs)-1]
	}
}

// frames returns the scope stack innermost-first.
func (v *Vars) frames() []*scope {
	out := make([]*scope, 0, len(v.funcs)+1)
	for i := len(v.funcs) - 1; i >= 0; i-- {
		out = append(out, v.funcs[i])
	}
	return append(out, v.global)
}

func (v *Vars) lookup(name string) (*Variable, bool) {
	for _, f := range v.frames() {
		if vr, ok := f.vars[name]; ok {
			if vr.Attrs.has(AttrTombstone) {
				return nil, false
			}
			return vr, true
		}
	}
	return nil, false
}

// Get implements expand.Environ, resolving ordinary names, positional
// parameters, and the special parameters # ? $ ! @ * 0-9+.
func (v *Vars) Get(name string) expand.Variable {
	switch name {
	case "#":
		return expand.Variable{Set: true, Kind: expand.String, Str: strconv.Itoa(len(v.positional) - 1)}
	case "?":
		return expand.Variable{Set: true, Kind: expand.String, Str: strconv.Itoa(v.lastStatus)}
	case "$":
		return expand.Variable{Set: true, Kind: expand.String, Str: strconv.Itoa(v.shellPID)}
	case "!":
		if v.lastBgPID == 0 {
			return expand.Variable{}
		}
		return expand.Variable{Set: true, Kind: expand.String, Str: strconv.Itoa(v.lastBgPID)}
	case "0":
		return expand.Variable{Set: true, Kind: expand.String, Str: v.scriptName}
	case "@", "*":
		return expand.Variable{Set: true, Kind: expand.Indexed, List: v.Positional()}
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 1 {
		if n < len(v.positional) {
			return expand.Variable{Set: true, Kind: expand.String, Str: v.positional[n]}
		}
		return expand.Variable{Set: true, Kind: expand.String, Str: ""}
	}
	if nr, ok := v.lookup(name); ok {
		if nr.Attrs.has(AttrNameref) && nr.Str != "" {
			return v.Get(nr.Str)
		}
		return nr.toExpand(true)
	}
	return expand.Variable{}
}

// Positional returns $1.. (never $0).
func (v *Vars) Positional() []string {
	if len(v.positional) <= 1 {
		return nil
	}
	out := make([]string, len(v.positional)-1)
	copy(out, v.positional[1:])
	return out
}

func (v *Vars) SetPositional(args []string) {
	v.positional = append([]string{v.positional[0]}, args...)
}

func (v *Vars) ShiftPositional(n int) bool {
	if n < 0 || n >= len(v.positional) {
		return false
	}
	v.positional = append([]string{v.positional[0]}, v.positional[n+1:]...)
	return true
}

// Each implements expand.Environ, used for ${!prefix*}, export -p, and
// building the execve environment.
func (v *Vars) Each(fn func(name string, vr expand.Variable) bool) {
	seen := map[string]bool{}
	for _, f := range v.frames() {
		names := make([]string, 0, len(f.vars))
		for n := range f.vars {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			if seen[n] {
				continue
			}
			seen[n] = true
			vr := f.vars[n]
			if vr.Attrs.has(AttrTombstone) {
				continue
			}
			if !fn(n, vr.toExpand(true)) {
				return
			}
		}
	}
}

// Set implements expand.WriteEnviron, used by the expander for
// `${x:=default}` and arithmetic assignment.
func (v *Vars) Set(name string, vr expand.Variable) error {
	return v.SetVar(name, &Variable{
		Kind: vr.Kind,
		Str:  vr.Str,
		List: vr.List,
		Map:  vr.Map,
	}, false)
}

// SetVar assigns name in the innermost scope that already declares it, or
// the global scope otherwise — unless local is true, in which case it is
// always assigned (or declared) in the innermost frame, implementing the
// `local` builtin. A read-only variable rejects reassignment.
func (v *Vars) SetVar(name string, nv *Variable, local bool) error {
	if existing, ok := v.lookup(name); ok && existing.Attrs.has(AttrReadOnly) {
		return &Error{Message: name + ": readonly variable"}
	}
	target := v.global
	if local && len(v.funcs) > 0 {
		target = v.funcs[len(v.funcs)-1]
	} else {
		for _, f := range v.frames() {
			if _, ok := f.vars[name]; ok {
				target = f
				break
			}
		}
	}
	if existing, ok := target.vars[name]; ok {
		nv.Attrs |= existing.Attrs &^ AttrTombstone
	}
	if nv.Attrs.has(AttrUpper) {
		nv.Str = toUpper(nv.Str)
	} else if nv.Attrs.has(AttrLower) {
		nv.Str = toLower(nv.Str)
	}
	target.vars[name] = nv
	return nil
}

// Clone returns a copy of v for subshell isolation: shallow-copies every
// scope's variable map (new maps, same *Variable values) so assignments
// made inside the subshell rebind entries in the clone without mutating
// the parent's map, per spec.md §5's subshell-isolation requirement.
func (v *Vars) Clone() *Vars {
	cp := &Vars{
		global:     cloneScope(v.global),
		scriptName: v.scriptName,
		lastStatus: v.lastStatus,
		lastBgPID:  v.lastBgPID,
		shellPID:   v.shellPID,
		subshell:   true,
	}
	cp.positional = append([]string(nil), v.positional...)
	for _, f := range v.funcs {
		cp.funcs = append(cp.funcs, cloneScope(f))
	}
	return cp
}

func cloneScope(s *scope) *scope {
	ns := newScope()
	for k, val := range s.vars {
		ns.vars[k] = val
	}
	return ns
}

// LastStatus returns $? — the exit status of the most recently completed
// command, used by cmd/psh as the interactive REPL's own process exit
// code when it quits.
func (v *Vars) LastStatus() int { return v.lastStatus }

// GetVar returns the raw Variable (with attributes) for builtins like
// `declare -p` and `readonly` that need more than expand.Variable exposes.
func (v *Vars) GetVar(name string) (*Variable, bool) {
	return v.lookup(name)
}

// Unset removes name. Inside a function scope that only shadows a global
// of the same name, a tombstone is recorded instead of deleting the
// global entry, so restoring the caller's scope on return still sees it.
func (v *Vars) Unset(name string) {
	frames := v.frames()
	for i, f := range frames {
		if _, ok := f.vars[name]; ok {
			if i < len(frames)-1 {
				f.vars[name] = &Variable{Attrs: AttrTombstone}
			} else {
				delete(f.vars, name)
			}
			return
		}
	}
}

func toUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 'a' + 'A'
		}
	}
	return string(b)
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c - 'A' + 'a'
		}
	}
	return string(b)
}
