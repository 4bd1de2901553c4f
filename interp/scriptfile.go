package interp

import (
	"bytes"
	"os"
	"regexp"
)

// shebangRe recognizes the handful of shebang forms spec.md §6 requires
// the loader to tolerate, generalizing the teacher's fileutil.HasShebang
// (which only looks for sh/bash) to any interpreter name, since PSH is
// invoked both as /usr/bin/env psh and as a direct #!/path/to/psh.
var shebangRe = regexp.MustCompile(`^#![^\n]*\n?`)

// LoadScriptFile reads path for the `psh script [args...]` form, applying
// spec.md §6's loading rules: a shebang line, if present, is stripped
// before parsing (it was the OS's concern, not the shell's); a file that
// isn't text is rejected outright rather than silently executed.
func LoadScriptFile(path string) (src string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if isBinary(data) {
		return "", &Error{Message: path + ": cannot execute binary file"}
	}
	if loc := shebangRe.FindIndex(data); loc != nil && loc[0] == 0 {
		data = data[loc[1]:]
	}
	return string(data), nil
}

// isBinary applies the classic "NUL byte in the first few KB" heuristic
// used by file(1) and git's own binary-diff detection: the teacher's
// fileutil package never needed this (shfmt only formats files it
// already knows are scripts), so this is new for PSH's direct script
// loader.
func isBinary(data []byte) bool {
	n := len(data)
	if n > 8000 {
		n = 8000
	}
	return bytes.IndexByte(data[:n], 0) != -1
}
