// Package builder implements the Builder of spec §4.4: a concurrent,
// dependency-driven scheduler that walks a Plan's reachable subgraph in
// reverse-topological order, maintains a per-node BuildState, bounds
// in-flight builds to a fixed worker pool, assembles buildtime/runtime
// closures, consults the Store for cache hits, and invokes the package's
// build thunk inside a freshly provisioned environment directory.
// Grounded in distri's internal/batch scheduler (worker-pool-over-a-
// channel, parent-notification-on-completion) generalized from distri's
// build-everything-unconditionally model to one driven by a single
// target and a link-time-aware closure.
package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/catdeal3r/xuehua/pkg/engineerr"
	"github.com/catdeal3r/xuehua/pkg/executor"
	"github.com/catdeal3r/xuehua/pkg/plan"
	"github.com/catdeal3r/xuehua/pkg/policy"
	"github.com/catdeal3r/xuehua/pkg/store"
	"github.com/catdeal3r/xuehua/pkg/xpkg"
)

// PolicyChecker is the pre-build hook a Builder consults, if configured,
// before dispatching a package's build thunk. *policy.Engine satisfies
// this by signature; it is expressed as a narrow interface here so a
// Builder can be constructed and tested with a fake checker instead of
// a compiled OPA engine.
type PolicyChecker interface {
	Evaluate(ctx context.Context, pkg *xpkg.Package) (*policy.PolicyResult, error)
}

// Builder executes the Plan's reachable subgraph of one target.
type Builder struct {
	Plan       *plan.Plan
	Store      store.Store
	Executors  *executor.Manager
	Concurrent int
	BuildRoot  string
	Sandbox    executor.Options

	// Policy is consulted immediately before a build thunk is dispatched,
	// if set. A nil Policy makes the check a no-op, matching an engine
	// run with no policy bundle configured.
	Policy PolicyChecker

	// Metrics and Tracer are optional; both are nil-safe.
	Metrics *Metrics
	Tracer  Tracer
}

// nodeResult is what a build task reports back to the coordinator.
type nodeResult struct {
	node     *plan.Node
	runtime  map[*plan.Node]bool
	artifact store.ArtifactId
	cacheHit bool
	err      error
}

// Build builds every package transitively reachable from target (spec
// §4.4), returning the transitive runtime closure of target. Builds
// that hit the Store cache skip their build thunk entirely. A failed
// node does not cascade failure to siblings; if target itself never
// reaches Built, Build returns the first error observed among the
// nodes that blocked it.
func (b *Builder) Build(ctx context.Context, target *plan.Node) (map[*plan.Node]bool, error) {
	if b.Concurrent <= 0 {
		return nil, fmt.Errorf("builder: Concurrent must be positive")
	}

	reachable := b.Plan.Reachable(target)
	states := make(map[*plan.Node]*nodeState, len(reachable))
	for n := range reachable {
		remaining := 0
		for _, e := range b.Plan.Dependencies(n) {
			if reachable[e.To] {
				remaining++
			}
		}
		states[n] = &nodeState{kind: stateUnbuilt, remaining: remaining}
	}

	numNodes := len(reachable)
	work := make(chan *plan.Node, numNodes)
	results := make(chan nodeResult, numNodes)

	var mu sync.Mutex
	inFlight := 0
	for n, st := range states {
		if st.remaining == 0 {
			st.kind = stateBuilding
			work <- n
			inFlight++
		}
	}

	eg, gctx := errgroup.WithContext(ctx)
	for i := 0; i < b.Concurrent; i++ {
		eg.Go(func() error {
			for n := range work {
				if err := gctx.Err(); err != nil {
					return err
				}
				results <- b.buildOne(gctx, n, states, &mu, reachable)
			}
			return nil
		})
	}

	var firstErr error
loop:
	for inFlight > 0 {
		select {
		case res := <-results:
			inFlight--
			inFlight += b.apply(res, states, &mu, work, reachable)
			if res.err != nil && firstErr == nil {
				firstErr = res.err
			}
		case <-gctx.Done():
			break loop
		}
	}
	close(work)

	if err := eg.Wait(); err != nil && firstErr == nil {
		firstErr = err
	}

	mu.Lock()
	targetState := states[target]
	mu.Unlock()
	if targetState.kind != stateBuilt {
		if firstErr == nil {
			firstErr = fmt.Errorf("builder: target %s did not build (unreachable dependency failure)", target.Pkg.Id)
		}
		return nil, firstErr
	}
	return targetState.runtime, nil
}

// apply folds a completed node's result into the shared state map and,
// on success, enqueues any parent whose remaining count has reached
// zero. It returns the number of parents it enqueued.
func (b *Builder) apply(res nodeResult, states map[*plan.Node]*nodeState, mu *sync.Mutex, work chan<- *plan.Node, reachable map[*plan.Node]bool) int {
	mu.Lock()
	defer mu.Unlock()

	st := states[res.node]
	if res.err != nil {
		st.kind = stateUnbuilt
		st.remaining = 0
		if b.Metrics != nil {
			b.Metrics.builds.WithLabelValues("failed").Inc()
		}
		return 0
	}

	st.kind = stateBuilt
	st.runtime = res.runtime
	if b.Metrics != nil {
		if res.cacheHit {
			b.Metrics.cacheHits.Inc()
		}
		b.Metrics.builds.WithLabelValues("succeeded").Inc()
	}

	enqueued := 0
	for _, e := range b.Plan.Dependents(res.node) {
		if !reachable[e.From] {
			continue
		}
		ps := states[e.From]
		if ps.kind != stateUnbuilt {
			continue
		}
		ps.remaining--
		if ps.remaining == 0 {
			ps.kind = stateBuilding
			work <- e.From
			enqueued++
		}
	}
	return enqueued
}

// buildOne runs the per-build sequence of spec §4.4 for a single node:
// closure assembly, cache consultation, environment provisioning,
// build-thunk invocation, and artifact registration.
func (b *Builder) buildOne(ctx context.Context, n *plan.Node, states map[*plan.Node]*nodeState, mu *sync.Mutex, reachable map[*plan.Node]bool) nodeResult {
	if b.Metrics != nil {
		b.Metrics.building.Inc()
		defer b.Metrics.building.Dec()
	}
	if b.Tracer != nil {
		var span trace.Span
		ctx, span = b.Tracer.Start(ctx, "builder.build_node", trace.WithAttributes(
			attribute.String("package_id", n.Pkg.Id.String()),
		))
		defer span.End()
	}

	buildtimeClosure, runtimeClosure := b.assembleClosures(n, states, mu)

	deps := make(map[*plan.Node]bool, len(buildtimeClosure)+len(runtimeClosure))
	for k := range buildtimeClosure {
		deps[k] = true
	}
	for k := range runtimeClosure {
		deps[k] = true
	}
	resolvedIds := make([]xpkg.Id, 0, len(deps))
	for d := range deps {
		resolvedIds = append(resolvedIds, d.Pkg.Id)
	}

	structHash, err := xpkg.StructuralHash(n.Pkg, resolvedIds)
	if err != nil {
		return nodeResult{node: n, err: fmt.Errorf("builder: structural hash of %s: %w", n.Pkg.Id, err)}
	}

	if artifact, runtime, ok := b.cacheHit(ctx, n, structHash, runtimeClosure); ok {
		return nodeResult{node: n, runtime: runtime, artifact: artifact, cacheHit: true}
	}

	start := time.Now()
	artifact, err := b.runBuild(ctx, n, resolvedIds)
	if err != nil {
		return nodeResult{node: n, err: err}
	}
	if b.Metrics != nil {
		b.Metrics.buildTimes.Observe(time.Since(start).Seconds())
	}

	if _, err := b.Store.RegisterPackage(ctx, n.Pkg, artifact, structHash); err != nil {
		return nodeResult{node: n, err: err}
	}

	runtime := map[*plan.Node]bool{n: true}
	for c := range runtimeClosure {
		runtime[c] = true
	}
	return nodeResult{node: n, runtime: runtime, artifact: artifact}
}

// assembleClosures computes the buildtime and runtime closures of n per
// spec §4.4 "Closure assembly": the buildtime closure is the union over
// Buildtime-labeled children of the child's runtime closure plus the
// child itself; the runtime closure (pre-self) is the same union over
// Runtime-labeled children.
func (b *Builder) assembleClosures(n *plan.Node, states map[*plan.Node]*nodeState, mu *sync.Mutex) (buildtime, runtime map[*plan.Node]bool) {
	buildtime = map[*plan.Node]bool{}
	runtime = map[*plan.Node]bool{}

	mu.Lock()
	defer mu.Unlock()
	for _, e := range b.Plan.Dependencies(n) {
		childState := states[e.To]
		switch e.Link {
		case xpkg.Buildtime:
			for c := range childState.runtime {
				buildtime[c] = true
			}
			buildtime[e.To] = true
		case xpkg.Runtime:
			for c := range childState.runtime {
				runtime[c] = true
			}
			runtime[e.To] = true
		}
	}
	return buildtime, runtime
}

// cacheHit consults the Store's bindings for n's id and reports a hit
// if any binding's structural hash matches structHash (spec §4.4 "Cache
// consultation"). Store lookup errors other than a missing package are
// not fatal here: a cache-consultation failure just means "build it",
// per spec §7's propagation rule that StoreMissingPackage/MissingArtifact
// are cache misses, not failures.
func (b *Builder) cacheHit(ctx context.Context, n *plan.Node, structHash [32]byte, runtimeClosure map[*plan.Node]bool) (store.ArtifactId, map[*plan.Node]bool, bool) {
	bindings, err := b.Store.Packages(ctx, n.Pkg.Id)
	if err != nil {
		return store.ArtifactId{}, nil, false
	}
	for _, binding := range bindings {
		if binding.StructuralHash != structHash {
			continue
		}
		if _, err := b.Store.Content(ctx, binding.ArtifactId); err != nil {
			continue
		}
		runtime := map[*plan.Node]bool{n: true}
		for c := range runtimeClosure {
			runtime[c] = true
		}
		return binding.ArtifactId, runtime, true
	}
	return store.ArtifactId{}, nil, false
}

// runBuild provisions a fresh environment directory, publishes the
// registered executors into it, and invokes the package's build thunk.
func (b *Builder) runBuild(ctx context.Context, n *plan.Node, resolvedIds []xpkg.Id) (store.ArtifactId, error) {
	if n.Pkg.Build == nil {
		return store.ArtifactId{}, fmt.Errorf("builder: package %s has no build thunk", n.Pkg.Id)
	}

	if b.Policy != nil {
		result, err := b.Policy.Evaluate(ctx, n.Pkg)
		if err != nil {
			return store.ArtifactId{}, engineerr.NewExecutorExternal("evaluate policy", err)
		}
		if !result.Allowed {
			reasons := make([]string, 0, len(result.Violations))
			for _, v := range result.Violations {
				reasons = append(reasons, fmt.Sprintf("%s: %s", v.Policy, v.Message))
			}
			return store.ArtifactId{}, engineerr.NewPolicyDenied(n.Pkg.Id, reasons)
		}
	}

	envDir := filepath.Join(b.BuildRoot, strconv.FormatInt(n.ID(), 10))
	outputDir := filepath.Join(envDir, "output")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return store.ArtifactId{}, engineerr.NewBuildIO(envDir, err)
	}

	execs, err := b.Executors.New(envDir, b.Sandbox)
	if err != nil {
		return store.ArtifactId{}, engineerr.NewExecutorExternal("provision executors", err)
	}

	args := map[string]any{
		"dependencies": resolvedIds,
		"executors":    execs,
		"output_dir":   outputDir,
	}
	if _, err := n.Pkg.Build.Invoke(ctx, args); err != nil {
		return store.ArtifactId{}, engineerr.NewScriptFailure(n.Pkg.Id, err)
	}

	artifact, err := b.Store.RegisterArtifact(ctx, outputDir)
	if err != nil {
		return store.ArtifactId{}, err
	}
	return artifact, nil
}
