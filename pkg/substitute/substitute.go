// Package substitute expands variable references in catalog property values.
//
// Both ${NAME} and ${ENV:NAME} are resolved from a lookup function,
// normally the process environment. References that cannot be resolved are
// left untouched so the consumer sees the literal text.
package substitute

import (
	"os"
	"regexp"
	"strings"
)

// Func rewrites a raw value. Implementations must not fail.
type Func func(string) string

// LookupFunc resolves a variable name.
type LookupFunc func(name string) (string, bool)

// Identity returns its input unchanged.
func Identity(s string) string { return s }

var reference = regexp.MustCompile(`\$\{(?:ENV:)?([A-Za-z_][A-Za-z0-9_.]*)\}`)

// Expand replaces every resolvable reference in s using lookup.
func Expand(s string, lookup LookupFunc) string {
	if lookup == nil || !strings.Contains(s, "${") {
		return s
	}
	return reference.ReplaceAllStringFunc(s, func(match string) string {
		name := reference.FindStringSubmatch(match)[1]
		if v, ok := lookup(name); ok {
			return v
		}
		return match
	})
}

// Env returns a Func resolving references from the process environment.
func Env() Func {
	return With(os.LookupEnv)
}

// With returns a Func resolving references through lookup.
func With(lookup LookupFunc) Func {
	return func(s string) string {
		return Expand(s, lookup)
	}
}

// Map returns a LookupFunc backed by a map.
func Map(values map[string]string) LookupFunc {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}
