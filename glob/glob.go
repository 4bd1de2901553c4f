package glob

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Options controls the shopt-driven filesystem expansion behaviour from
// spec.md §4.X's pathname-expansion stage.
type Options struct {
	NoGlob     bool // noglob: pattern expansion is disabled entirely
	NullGlob   bool // nullglob: no match expands to zero fields, not the pattern
	DotGlob    bool // dotglob: '*'/'?'/'[' match leading dots too
	ExtGlob    bool // extglob: ?() *() +() @() !() operators
	NoCaseGlob bool // nocaseglob: case-insensitive matching
	GlobStar   bool // globstar: '**' recurses through directories
}

func (o Options) mode() Mode {
	m := Mode(Filenames)
	if o.ExtGlob {
		m |= ExtGlob
	}
	if o.NoCaseGlob {
		m |= NoCase
	}
	return m
}

// Expand walks the filesystem rooted at the current directory and returns
// every pathname matching pattern, sorted lexically (matching bash's glob
// order under the C locale). If nothing matches, it returns pattern itself
// unless NullGlob is set (then a nil slice) — the caller is expected to
// apply that "expands to itself" fallback only when NoGlob is false and the
// pattern actually contained a wildcard.
func Expand(pattern string, opts Options) ([]string, error) {
	if opts.NoGlob || !HasMeta(pattern, opts.mode()) {
		return []string{pattern}, nil
	}

	abs := strings.HasPrefix(pattern, "/")
	segments := strings.Split(pattern, "/")
	start := "."
	if abs {
		start = "/"
		segments = segments[1:]
	}

	matches := []string{start}
	if abs {
		matches = []string{"/"}
	} else {
		matches = []string{""}
	}

	for idx, seg := range segments {
		if seg == "" {
			continue
		}
		last := idx == len(segments)-1
		var next []string
		if opts.GlobStar && seg == "**" {
			for _, base := range matches {
				dirs, err := collectDirsRecursive(joinBase(base, abs))
				if err != nil {
					continue
				}
				next = append(next, dirs...)
			}
			matches = dedupe(next)
			continue
		}
		for _, base := range matches {
			dir := joinBase(base, abs)
			if dir == "" {
				dir = "."
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			re, err := compileSegment(seg, opts)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				name := e.Name()
				if !opts.DotGlob && strings.HasPrefix(name, ".") && !strings.HasPrefix(seg, ".") {
					continue
				}
				if !re.MatchString(name) {
					continue
				}
				if !last && !e.IsDir() {
					continue
				}
				next = append(next, joinSegment(base, name))
			}
		}
		matches = next
		sort.Strings(matches)
	}

	var out []string
	for _, m := range matches {
		if m == "" {
			continue
		}
		out = append(out, m)
	}
	sort.Strings(out)
	if len(out) == 0 {
		if opts.NullGlob {
			return nil, nil
		}
		return []string{pattern}, nil
	}
	return out, nil
}

func compileSegment(seg string, opts Options) (*regexp.Regexp, error) {
	restr, err := Translate(seg, opts.mode()|EntireString)
	if err != nil {
		return nil, err
	}
	return regexp.Compile(restr)
}

func joinBase(base string, abs bool) string {
	if base == "" {
		return "."
	}
	return base
}

func joinSegment(base, name string) string {
	if base == "" {
		return name
	}
	return filepath.Join(base, name)
}

func collectDirsRecursive(root string) ([]string, error) {
	var out []string
	out = append(out, root)
	entries, err := os.ReadDir(root)
	if err != nil {
		return out, nil
	}
	for _, e := range entries {
		if e.IsDir() {
			sub, _ := collectDirsRecursive(filepath.Join(root, e.Name()))
			out = append(out, sub...)
		}
	}
	return out, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Match reports whether name matches the shell pattern pat, using the same
// translator that Expand uses for pathname segments. Used by case
// statements, ${var/pat/...} style operators, and [[ val == pat ]].
func Match(pat, name string, opts Options) (bool, error) {
	re, err := compileSegment(pat, opts)
	if err != nil {
		return false, err
	}
	return re.MatchString(name), nil
}
