package core

import "regexp"

// NamespaceFilter implements the default.namespace_patterns config key:
// a record is observable only if its namespace (or, for kind=namespace
// records themselves, their own name) matches at least one pattern. An
// empty pattern list allows everything. Applied once, at Watcher
// ingestion, so the Store can never hold a record that fails it
// (testable invariant 4) — HTTP/WS reads inherit the filter for free
// by only ever reading from the Store.
type NamespaceFilter struct {
	patterns []*regexp.Regexp
}

// NewNamespaceFilter compiles patterns. An empty or nil slice yields a
// filter that allows everything.
func NewNamespaceFilter(patterns []string) (*NamespaceFilter, error) {
	f := &NamespaceFilter{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, &ErrInvalidInput{Field: "default.namespace_patterns", Message: err.Error()}
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// Allows reports whether a record of kind, with the given namespace
// and name, passes the filter. For kind == KindNamespace the subject
// is the namespace object's own name, since it has no namespace of its
// own (it is cluster-scoped).
func (f *NamespaceFilter) Allows(kind Kind, namespace, name string) bool {
	if len(f.patterns) == 0 {
		return true
	}

	subject := namespace
	if kind == KindNamespace {
		subject = name
	}

	for _, re := range f.patterns {
		if re.MatchString(subject) {
			return true
		}
	}
	return false
}
