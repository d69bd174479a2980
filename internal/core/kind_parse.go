package core

import "fmt"

// kindSet indexes Kinds for ParseKind's validity check.
var kindSet = map[Kind]struct{}{
	KindNamespace:   {},
	KindDeployment:  {},
	KindStatefulSet: {},
	KindPod:         {},
}

// ParseKind validates a resourceType string from a WebSocket frame or
// an HTTP path segment against the closed Kind set. There is no
// discovery fallback: an unknown string is always a client error.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kindSet[k]; !ok {
		return "", &ErrInvalidInput{Field: "resourceType", Message: fmt.Sprintf("unrecognized kind %q", s)}
	}
	return k, nil
}
