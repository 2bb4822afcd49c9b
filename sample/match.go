package sample

import (
	"fmt"
	"regexp"

	"github.com/gobwas/glob"
)

// Matcher tests names against a pattern.
type Matcher interface {
	Match(name string) bool
}

// Glob compiles a shell-style pattern: * and ? are wildcards and [abc] a
// character class. The whole name must match.
func Glob(pattern string) (Matcher, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("sample: bad pattern %q: %w: %w", pattern, ErrConfig, err)
	}
	return g, nil
}

type regexMatcher struct{ re *regexp.Regexp }

func (m regexMatcher) Match(name string) bool { return m.re.MatchString(name) }

// Regexp compiles a regular expression anchored at both ends.
func Regexp(pattern string) (Matcher, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("sample: bad regular expression %q: %w: %w", pattern, ErrConfig, err)
	}
	return regexMatcher{re}, nil
}

// matchAny reports whether name matches one of the glob patterns. Invalid
// patterns only match themselves.
func matchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if p == name {
			return true
		}
		if g, err := glob.Compile(p); err == nil && g.Match(name) {
			return true
		}
	}
	return false
}
