package interp

// Options is the boolean option set from spec.md §3, generalizing the
// teacher's r.opts [...]bool array (interp/interp.go) into named fields
// plus the shopt-style pathname-expansion flags expand.Config also needs.
type Options struct {
	Errexit    bool // set -e
	Nounset    bool // set -u
	Pipefail   bool // set -o pipefail
	Noclobber  bool // set -C
	Noglob     bool // set -f
	Xtrace     bool // set -x
	Verbose    bool // set -v
	Monitor    bool // set -m (job control)
	Posix      bool // set -o posix

	// shopt-equivalent pathname-expansion flags, threaded straight into
	// expand.Config on every word-expansion call.
	DotGlob    bool
	NullGlob   bool
	ExtGlob    bool
	NoCaseGlob bool
	GlobStar   bool
}

// setOptLetters maps the single-letter `set -X`/`set +X` flags to fields.
var setOptLetters = map[byte]func(*Options, bool){
	'e': func(o *Options, v bool) { o.Errexit = v },
	'u': func(o *Options, v bool) { o.Nounset = v },
	'C': func(o *Options, v bool) { o.Noclobber = v },
	'f': func(o *Options, v bool) { o.Noglob = v },
	'x': func(o *Options, v bool) { o.Xtrace = v },
	'v': func(o *Options, v bool) { o.Verbose = v },
	'm': func(o *Options, v bool) { o.Monitor = v },
}

// setOptNames maps `set -o name`/`set +o name` long option names.
var setOptNames = map[string]func(*Options, bool){
	"errexit":   func(o *Options, v bool) { o.Errexit = v },
	"nounset":   func(o *Options, v bool) { o.Nounset = v },
	"pipefail":  func(o *Options, v bool) { o.Pipefail = v },
	"noclobber": func(o *Options, v bool) { o.Noclobber = v },
	"noglob":    func(o *Options, v bool) { o.Noglob = v },
	"xtrace":    func(o *Options, v bool) { o.Xtrace = v },
	"verbose":   func(o *Options, v bool) { o.Verbose = v },
	"monitor":   func(o *Options, v bool) { o.Monitor = v },
	"posix":     func(o *Options, v bool) { o.Posix = v },
}

// shoptNames maps `shopt -s name`/`shopt -u name`.
var shoptNames = map[string]func(*Options, bool){
	"dotglob":    func(o *Options, v bool) { o.DotGlob = v },
	"nullglob":   func(o *Options, v bool) { o.NullGlob = v },
	"extglob":    func(o *Options, v bool) { o.ExtGlob = v },
	"nocaseglob": func(o *Options, v bool) { o.NoCaseGlob = v },
	"globstar":   func(o *Options, v bool) { o.GlobStar = v },
}
