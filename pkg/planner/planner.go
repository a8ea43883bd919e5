// Package planner implements the Planner contract of spec §4.1: it runs
// user scripts, deduplicates and registers packages under hierarchical
// identifiers, and builds the acyclic dependency graph (pkg/plan) whose
// edges carry a link-time classification.
package planner

import (
	"context"
	"fmt"
	"sync"

	"github.com/catdeal3r/xuehua/pkg/engineerr"
	"github.com/catdeal3r/xuehua/pkg/plan"
	"github.com/catdeal3r/xuehua/pkg/xpkg"
)

// Planner evaluates package definitions coming from the script host and
// registers them into a Plan. A Planner is not safe for concurrent use:
// the scripting layer it drives is itself single-threaded, and scripts
// may re-enter the Planner through registered callbacks (e.g. a
// configure or apply thunk that calls planner.package() or
// planner.configure() while Configure is still running). Any nested
// *mutating* re-entry is rejected with a ReentrantPlanner error rather
// than silently corrupting the borrowed Plan.
type Planner struct {
	mu      sync.Mutex
	entered bool

	plan    *plan.Plan
	nsStack []string
}

// New creates a Planner over a fresh, empty Plan.
func New() *Planner {
	return &Planner{plan: plan.New()}
}

// Plan returns the Plan built so far. Call this once planning (script
// evaluation) has finished; the Planner does not hand the Plan to the
// script host.
func (p *Planner) Plan() *plan.Plan { return p.plan }

// enter acquires the re-entry guard, failing if a mutating call is
// already in progress on this goroutine's logical call stack.
// Non-mutating callbacks (e.g. reading the current namespace) do not
// call enter and are always allowed, per spec §4.1.
func (p *Planner) enter() (func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.entered {
		return nil, engineerr.NewReentrantPlanner()
	}
	p.entered = true
	return func() {
		p.mu.Lock()
		p.entered = false
		p.mu.Unlock()
	}, nil
}

// CurrentNamespace returns a copy of the namespace stack in effect right
// now. This is a non-mutating callback: scripts may call it at any time,
// including from within a nested planner call, without tripping the
// re-entry guard.
func (p *Planner) CurrentNamespace() []string {
	ns := make([]string, len(p.nsStack))
	copy(ns, p.nsStack)
	return ns
}

// Namespace pushes token on the namespace stack, runs closure, and pops
// it back off — nested safe. The stack is the lexical namespace used by
// Package while closure runs.
func (p *Planner) Namespace(token string, closure func() error) error {
	if token == "" {
		return fmt.Errorf("planner: namespace token must not be empty")
	}
	p.nsStack = append(p.nsStack, token)
	defer func() {
		p.nsStack = p.nsStack[:len(p.nsStack)-1]
	}()
	return closure()
}

// Package registers a new package definition as a vertex in the Plan,
// under the current namespace stack, with one outgoing edge per
// dependency in def.Dependencies. It fails with PlanConflict if the
// resulting PackageId is already registered, or PlanCycle if any
// dependency edge would create a cycle.
func (p *Planner) Package(def xpkg.Definition) (*plan.Node, error) {
	release, err := p.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	id := xpkg.NewId(def.Name, p.nsStack)
	if err := id.Validate(); err != nil {
		return nil, err
	}

	pkg := &xpkg.Package{
		Id:       id,
		Metadata: def.Metadata,
		Build:    def.Build,
		Config:   def.Config,
	}

	node, err := p.plan.AddPackage(pkg)
	if err != nil {
		return nil, err
	}

	for _, dep := range def.Dependencies {
		target, ok := dep.Ref.(*plan.Node)
		if !ok {
			return nil, fmt.Errorf("planner: dependency of %s is not a node returned by package()/configure()", id)
		}
		if err := p.plan.TryAddEdge(node, target, dep.Link); err != nil {
			return nil, err
		}
	}

	return node, nil
}

// Configure clones the package at source, renames it to newName under
// the current namespace, and runs its apply thunk with the
// script-returned modification (the result of invoking modify against
// the current configuration value) applied to the current configuration
// value. The clone is a new vertex with its own edges: the Partial the
// apply thunk returns may list a different dependency set than source
// had.
func (p *Planner) Configure(ctx context.Context, source *plan.Node, newName string, modify xpkg.Thunk) (*plan.Node, error) {
	release, err := p.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	if source.Pkg.Config.Apply == nil {
		return nil, fmt.Errorf("planner: package %s is not configurable (utils.no_config)", source.Pkg.Id)
	}

	newValue := source.Pkg.Config.Current
	if modify != nil {
		res, err := modify.Invoke(ctx, map[string]any{"config": source.Pkg.Config.Current})
		if err != nil {
			return nil, engineerr.NewScriptFailure(source.Pkg.Id, err)
		}
		if v, ok := res["config"]; ok {
			newValue = v
		}
	}

	partial, err := source.Pkg.Config.Apply.Apply(ctx, newValue)
	if err != nil {
		return nil, engineerr.NewScriptFailure(source.Pkg.Id, err)
	}

	id := xpkg.NewId(newName, p.nsStack)
	if err := id.Validate(); err != nil {
		return nil, err
	}

	pkg := &xpkg.Package{
		Id:       id,
		Metadata: partial.Metadata,
		Build:    partial.Build,
		Config: xpkg.PackageConfig{
			Current: newValue,
			Apply:   source.Pkg.Config.Apply,
		},
	}

	node, err := p.plan.AddPackage(pkg)
	if err != nil {
		return nil, err
	}

	for _, dep := range partial.Dependencies {
		target, ok := dep.Ref.(*plan.Node)
		if !ok {
			return nil, fmt.Errorf("planner: dependency of %s is not a node returned by package()/configure()", id)
		}
		if err := p.plan.TryAddEdge(node, target, dep.Link); err != nil {
			return nil, err
		}
	}

	return node, nil
}
