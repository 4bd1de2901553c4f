package expand

import (
	"os"
	"os/user"
	"strings"
)

// applyTilde implements spec.md §4.X's tilde-expansion stage: `~`, `~/rest`,
// `~user`, `~user/rest`, `~+` (PWD), and `~-` (OLDPWD), applied only to an
// unquoted literal prefix at the very start of a word — never mid-word and
// never to quoted or expansion-produced text, per POSIX.
func applyTilde(ps []segment, cfg *Config) []segment {
	if len(ps) == 0 || ps[0].quoted || ps[0].splittable {
		return ps
	}
	text := ps[0].text
	if !strings.HasPrefix(text, "~") {
		return ps
	}
	rest := text[1:]
	name := rest
	tail := ""
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		name = rest[:idx]
		tail = rest[idx:]
	}

	var home string
	switch name {
	case "":
		home = lookupHome("", cfg)
	case "+":
		home = cfg.Env.Get("PWD").String()
	case "-":
		home = cfg.Env.Get("OLDPWD").String()
	default:
		home = lookupHome(name, cfg)
	}
	if home == "" {
		return ps
	}
	out := append([]segment{}, ps...)
	out[0] = segment{text: home + tail, quoted: false}
	return out
}

func lookupHome(name string, cfg *Config) string {
	if cfg.HomeDir != nil {
		h, err := cfg.HomeDir(name)
		if err == nil {
			return h
		}
		return ""
	}
	if name == "" {
		if h := cfg.Env.Get("HOME"); h.Set {
			return h.String()
		}
		if h, err := os.UserHomeDir(); err == nil {
			return h
		}
		return ""
	}
	u, err := user.Lookup(name)
	if err != nil {
		return ""
	}
	return u.HomeDir
}
