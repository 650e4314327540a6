package device

import (
	"strings"

	"github.com/gobwas/glob"
)

// Filter returns the devices whose names match pattern, preserving order.
//
// A pattern containing glob metacharacters (*, ?, [ or {) is compiled with
// gobwas/glob and matched against the lowercased name; anything else, including
// a glob that fails to compile, is a case-insensitive substring match. An empty
// pattern matches everything.
func Filter(devices []Descriptor, pattern string) []Descriptor {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		out := make([]Descriptor, len(devices))
		copy(out, devices)
		return out
	}

	match := substringMatcher(pattern)
	if strings.ContainsAny(pattern, "*?[{") {
		if g, err := glob.Compile(pattern); err == nil {
			match = g.Match
		}
	}

	out := make([]Descriptor, 0, len(devices))
	for _, d := range devices {
		if match(strings.ToLower(d.Name)) {
			out = append(out, d)
		}
	}
	return out
}

func substringMatcher(pattern string) func(string) bool {
	return func(name string) bool {
		return strings.Contains(name, pattern)
	}
}
