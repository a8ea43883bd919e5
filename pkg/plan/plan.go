// Package plan implements the dependency DAG the Planner builds and the
// Builder walks: a directed acyclic graph of packages whose edges carry a
// link-time classification (runtime vs buildtime), backed by
// gonum.org/v1/gonum/graph the way distri's batch scheduler
// (internal/batch/batch.go) builds its package graph and detects cycles
// with topo.Sort.
package plan

import (
	"fmt"

	"github.com/catdeal3r/xuehua/pkg/engineerr"
	"github.com/catdeal3r/xuehua/pkg/xpkg"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Node is a vertex in the Plan: a package plus the graph-internal integer
// id gonum requires. Plan vertices are never mutated after insertion.
type Node struct {
	id  int64
	Pkg *xpkg.Package
}

// ID satisfies graph.Node.
func (n *Node) ID() int64 { return n.id }

// PackageId satisfies xpkg.NodeRef so a Node can be used directly as a
// dependency target when building up DepSpecs from script callbacks.
func (n *Node) PackageId() xpkg.Id { return n.Pkg.Id }

// edge is a graph.Edge annotated with the dependency's link-time
// classification. gonum's simple.DirectedGraph stores whatever
// graph.Edge implementation SetEdge is given, so the label rides along
// with the edge itself rather than needing a side map.
type edge struct {
	f, t graph.Node
	link xpkg.LinkTime
}

func (e edge) From() graph.Node         { return e.f }
func (e edge) To() graph.Node           { return e.t }
func (e edge) ReversedEdge() graph.Edge { return edge{f: e.t, t: e.f, link: e.link} }

// LinkTime reports whether the edge is a runtime or buildtime dependency.
func (e edge) LinkTime() xpkg.LinkTime { return e.link }

// Plan is the DAG of packages and their link-time-labeled dependencies.
// Outgoing edges of a node are its dependencies; incoming edges are its
// dependents.
type Plan struct {
	g      *simple.DirectedGraph
	byId   map[string]*Node
	nextID int64
}

// New creates an empty Plan.
func New() *Plan {
	return &Plan{
		g:    simple.NewDirectedGraph(),
		byId: make(map[string]*Node),
	}
}

// AddPackage inserts a new vertex for pkg. It fails with a PlanConflict
// error if pkg's id is already registered — Planner.package rejects
// duplicates by id, not by structural equality (spec §4.1).
func (p *Plan) AddPackage(pkg *xpkg.Package) (*Node, error) {
	key := pkg.Id.String()
	if _, ok := p.byId[key]; ok {
		return nil, engineerr.NewPlanConflict(pkg.Id)
	}
	n := &Node{id: p.nextID, Pkg: pkg}
	p.nextID++
	p.g.AddNode(n)
	p.byId[key] = n
	return n, nil
}

// Lookup returns the node registered under id, if any.
func (p *Plan) Lookup(id xpkg.Id) (*Node, bool) {
	n, ok := p.byId[id.String()]
	return n, ok
}

// TryAddEdge adds a dependency edge from -> to labeled with link. If
// adding the edge would make the graph unorderable (i.e. create a
// cycle), the edge is rejected and never added; the Plan is left exactly
// as it was before the call. This mirrors distri's batch scheduler,
// which calls topo.Sort after building the graph and breaks any
// unorderable component it finds — except here the check runs per edge,
// at insertion time, so a cycle is caught at planner.package() time
// rather than discovered later against a fully-built graph.
func (p *Plan) TryAddEdge(from, to *Node, link xpkg.LinkTime) error {
	e := edge{f: from, t: to, link: link}
	p.g.SetEdge(e)
	if _, err := topo.Sort(p.g); err != nil {
		p.g.RemoveEdge(from.id, to.id)
		return engineerr.NewPlanCycle(from.Pkg.Id, to.Pkg.Id)
	}
	return nil
}

// Dependencies returns the outgoing edges of n: the packages n depends
// on, together with the link-time classification of each edge.
func (p *Plan) Dependencies(n *Node) []Edge {
	it := p.g.From(n.id)
	var out []Edge
	for it.Next() {
		to := it.Node().(*Node)
		ge := p.g.Edge(n.id, to.id).(edge)
		out = append(out, Edge{From: n, To: to, Link: ge.link})
	}
	return out
}

// Dependents returns the incoming edges of n: the packages that depend
// on n.
func (p *Plan) Dependents(n *Node) []Edge {
	it := p.g.To(n.id)
	var out []Edge
	for it.Next() {
		from := it.Node().(*Node)
		ge := p.g.Edge(from.id, n.id).(edge)
		out = append(out, Edge{From: from, To: n, Link: ge.link})
	}
	return out
}

// Edge is a dependency edge as returned by Dependencies/Dependents: a
// friendlier projection of the internal gonum edge type.
type Edge struct {
	From *Node
	To   *Node
	Link xpkg.LinkTime
}

// Nodes returns every vertex currently in the Plan, in no particular
// order.
func (p *Plan) Nodes() []*Node {
	out := make([]*Node, 0, len(p.byId))
	for _, n := range p.byId {
		out = append(out, n)
	}
	return out
}

// Len returns the number of vertices in the Plan.
func (p *Plan) Len() int { return len(p.byId) }

// Reachable returns the subgraph reachable from target by following
// outgoing (dependency) edges, target included. This is the subgraph the
// Builder walks for a single build invocation (spec §4.4 "Scheduling",
// step 1).
func (p *Plan) Reachable(target *Node) map[*Node]bool {
	seen := map[*Node]bool{target: true}
	stack := []*Node{target}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range p.Dependencies(n) {
			if !seen[e.To] {
				seen[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	return seen
}

// checkAcyclic is a defensive assertion: it verifies the whole Plan
// remains sortable, independent of any single TryAddEdge call having
// already enforced it incrementally. Nothing in this module calls it.
func (p *Plan) checkAcyclic() error {
	if _, err := topo.Sort(p.g); err != nil {
		return fmt.Errorf("plan: graph is not acyclic: %w", err)
	}
	return nil
}
