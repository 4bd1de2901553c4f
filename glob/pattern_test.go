package glob

import (
	"regexp"
	"testing"
)

func mustMatch(t *testing.T, pat, s string, mode Mode, want bool) {
	t.Helper()
	restr, err := Translate(pat, mode|EntireString)
	if err != nil {
		t.Fatalf("Translate(%q): %v", pat, err)
	}
	re, err := regexp.Compile(restr)
	if err != nil {
		t.Fatalf("regexp.Compile(%q): %v", restr, err)
	}
	if got := re.MatchString(s); got != want {
		t.Fatalf("Translate(%q)=%q matching %q = %v, want %v", pat, restr, s, got, want)
	}
}

func TestTranslateStar(t *testing.T) {
	mustMatch(t, "foo*bar", "foobazbar", 0, true)
	mustMatch(t, "foo*bar", "foo/bar", Filenames, false)
	mustMatch(t, "foo*bar", "foobar", 0, true)
}

func TestTranslateQuestion(t *testing.T) {
	mustMatch(t, "fo?", "foo", 0, true)
	mustMatch(t, "fo?", "fo", 0, false)
}

func TestTranslateBracket(t *testing.T) {
	mustMatch(t, "[abc]at", "bat", 0, true)
	mustMatch(t, "[!abc]at", "bat", 0, false)
	mustMatch(t, "[a-c]at", "cat", 0, true)
	mustMatch(t, "[[:digit:]]x", "5x", 0, true)
}

func TestTranslateGlobstar(t *testing.T) {
	mustMatch(t, "**", "a/b/c", Filenames, true)
}

func TestTranslateExtglob(t *testing.T) {
	mustMatch(t, "@(foo|bar)", "foo", ExtGlob, true)
	mustMatch(t, "@(foo|bar)", "baz", ExtGlob, false)
	mustMatch(t, "*(ab)", "ababab", ExtGlob, true)
	mustMatch(t, "+(ab)", "", ExtGlob, false)
}

func TestHasMeta(t *testing.T) {
	if HasMeta("plain", 0) {
		t.Fatal("plain string reported as having metacharacters")
	}
	if !HasMeta("a*b", 0) {
		t.Fatal("star not detected")
	}
	if !HasMeta("@(a)", ExtGlob) {
		t.Fatal("extglob not detected")
	}
}
