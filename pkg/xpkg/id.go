// Package xpkg defines the package identity and recipe-carrier types that
// the rest of the engine (plan, planner, builder, store) operates on.
package xpkg

import (
	"fmt"
	"strings"
)

// Id is a package identifier: a name plus an ordered namespace stack.
// Canonical rendering is "name@ns1/ns2/...". Two Ids are equal iff their
// canonical renderings are equal.
type Id struct {
	Name      string
	Namespace []string
}

// NewId builds an Id, copying the namespace slice so callers may not
// mutate it out from under the engine afterward.
func NewId(name string, namespace []string) Id {
	ns := make([]string, len(namespace))
	copy(ns, namespace)
	return Id{Name: name, Namespace: ns}
}

// String renders the canonical "name@ns1/ns2/..." form.
func (id Id) String() string {
	if len(id.Namespace) == 0 {
		return id.Name + "@"
	}
	return id.Name + "@" + strings.Join(id.Namespace, "/")
}

// Equal reports whether two Ids have the same canonical rendering.
func (id Id) Equal(other Id) bool {
	return id.String() == other.String()
}

// Less gives the total lexicographic order over canonical renderings.
// Nothing in this module calls it.
func (id Id) Less(other Id) bool {
	return id.String() < other.String()
}

// Validate rejects an Id whose namespace contains an empty token, which
// would make the canonical rendering ambiguous.
func (id Id) Validate() error {
	if id.Name == "" {
		return fmt.Errorf("package id: name must not be empty")
	}
	for i, tok := range id.Namespace {
		if tok == "" {
			return fmt.Errorf("package id %q: namespace token %d is empty", id.Name, i)
		}
	}
	return nil
}

// ParseId parses the canonical "name@ns1/ns2/..." rendering back into an Id.
// An absent "@" is treated as an empty namespace.
func ParseId(s string) Id {
	name, rest, ok := strings.Cut(s, "@")
	if !ok || rest == "" {
		return Id{Name: name}
	}
	return Id{Name: name, Namespace: strings.Split(rest, "/")}
}
