package config

import (
	"os"
	"regexp"
)

// envRefPattern matches the ENV:NAME[:default] substitution syntax
// config values may use in place of a literal. This is a narrow,
// one-line problem with no library fit, so it is hand-rolled against
// the standard library rather than reaching for a templating engine.
var envRefPattern = regexp.MustCompile(`^ENV:([A-Za-z_][A-Za-z0-9_]*)(?::(.*))?$`)

// resolveEnvRef substitutes a single ENV:NAME[:default] string value
// from the environment. Values that do not match the pattern are
// returned unchanged.
func resolveEnvRef(raw string) string {
	m := envRefPattern.FindStringSubmatch(raw)
	if m == nil {
		return raw
	}
	name, def := m[1], m[2]
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}
