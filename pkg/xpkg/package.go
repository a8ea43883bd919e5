package xpkg

import (
	"context"
	"fmt"
)

// LinkTime classifies a dependency edge as either runtime (the artifact
// must be linked alongside the depending package once deployed) or
// buildtime (needed only to produce the artifact).
type LinkTime int

const (
	// Runtime marks a dependency whose artifact must accompany the
	// depending package's artifact when it is later deployed.
	Runtime LinkTime = iota
	// Buildtime marks a dependency needed only to produce the artifact.
	Buildtime
)

// String renders the link-time classification for logs and diagnostics.
func (lt LinkTime) String() string {
	switch lt {
	case Runtime:
		return "runtime"
	case Buildtime:
		return "buildtime"
	default:
		return fmt.Sprintf("LinkTime(%d)", int(lt))
	}
}

// NodeRef is anything that can stand in for a dependency target: the
// planner's own node handles satisfy it, which lets package definitions
// and Partial results reference dependencies without xpkg importing the
// planner or plan packages.
type NodeRef interface {
	PackageId() Id
}

// DepSpec is a dependency as seen from a package definition: a reference
// to another node plus the link-time classification utils.runtime /
// utils.buildtime assign it.
type DepSpec struct {
	Ref  NodeRef
	Link LinkTime
}

// Thunk is a callable value owned by the script host (e.g. a Starlark
// function). The engine never inspects its internals; it only invokes it
// at the appropriate lifecycle point and inspects the error it returns.
// Defining the interface here (rather than depending on the script
// package) lets xpkg, plan, planner, and builder all reference build and
// configure thunks without importing the scripting layer.
type Thunk interface {
	// Invoke runs the thunk with the given named arguments and returns
	// named results. args/results are opaque to the engine; the script
	// host is responsible for marshaling them to and from its own value
	// representation.
	Invoke(ctx context.Context, args map[string]any) (map[string]any, error)
}

// Partial is what a configure-thunk produces: a fresh dependency set,
// metadata bag, and build thunk, to be spliced into a newly cloned
// Package by planner.configure.
type Partial struct {
	Dependencies []DepSpec
	Metadata     map[string]any
	Build        Thunk
}

// Configurator is the apply thunk a PackageConfig carries: given a new
// configuration value it produces a fresh Partial. It is typed (rather
// than the generic Thunk used for build/modify callbacks) because its
// result carries engine-internal values (dependency refs, a build
// Thunk) that do not round-trip through a plain string-keyed map.
type Configurator interface {
	Apply(ctx context.Context, value any) (Partial, error)
}

// PackageConfig carries a package's current configuration value plus the
// thunk that, given a new configuration value, produces a fresh Partial.
type PackageConfig struct {
	// Current is the configuration value in effect right now. Nil for
	// packages marked utils.no_config.
	Current any
	// Apply is nil for packages marked utils.no_config (identity).
	Apply Configurator
}

// Package is a user-authored recipe: an identity, an opaque metadata bag,
// a build thunk, and a configuration record. Package is structurally
// hashable: two packages hash equal iff their id, fully-resolved
// dependency list, metadata, and current configuration value hash equal
// (see StructuralHash, and the Plan for the resolved dependency list,
// which is not stored on Package itself).
type Package struct {
	Id       Id
	Metadata map[string]any
	Build    Thunk
	Config   PackageConfig
}

// PackageId implements NodeRef so a bare Package (before it is inserted
// into a Plan) can itself be used as a dependency target in tests and
// direct API use.
func (p *Package) PackageId() Id { return p.Id }

// Definition is what a script's package(...) call parses into before the
// planner assigns it a namespace and registers it: everything a Package
// needs except the Id's namespace, which the planner fills in from its
// current namespace stack.
type Definition struct {
	Name     string
	Metadata map[string]any
	Build    Thunk
	Config   PackageConfig
	// Dependencies are DepSpecs gathered from utils.runtime/utils.buildtime
	// wrapper calls in the script, in the order the script listed them.
	Dependencies []DepSpec
}
