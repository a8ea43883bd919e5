package script

import (
	"go.starlark.net/starlark"

	"github.com/catdeal3r/xuehua/pkg/plan"
	"github.com/catdeal3r/xuehua/pkg/xpkg"
)

// nodeHandle is the opaque "node_handle" spec §4.1 returns from
// planner.package/planner.configure: a Starlark value wrapping a
// *plan.Node so scripts can pass it straight back in as a later
// package's dependency or configure() source without the engine ever
// unmarshaling it through the generic Go<->Starlark conversion.
type nodeHandle struct {
	node *plan.Node
}

var (
	_ starlark.Value    = (*nodeHandle)(nil)
	_ starlark.HasAttrs = (*nodeHandle)(nil)
	_ xpkg.NodeRef      = (*nodeHandle)(nil)
)

func (n *nodeHandle) String() string        { return n.node.Pkg.Id.String() }
func (n *nodeHandle) Type() string          { return "planner.node" }
func (n *nodeHandle) Freeze()               {}
func (n *nodeHandle) Truth() starlark.Bool  { return starlark.True }
func (n *nodeHandle) Hash() (uint32, error) { return starlark.String(n.node.Pkg.Id.String()).Hash() }

// PackageId implements xpkg.NodeRef so a nodeHandle can be used directly
// as a DepSpec.Ref without the planner caring it came from Starlark.
func (n *nodeHandle) PackageId() xpkg.Id { return n.node.Pkg.Id }

func (n *nodeHandle) Attr(name string) (starlark.Value, error) {
	if name == "id" {
		return starlark.String(n.node.Pkg.Id.String()), nil
	}
	return nil, nil
}

func (n *nodeHandle) AttrNames() []string { return []string{"id"} }
