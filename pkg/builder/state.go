package builder

import "github.com/catdeal3r/xuehua/pkg/plan"

type stateKind int

const (
	stateUnbuilt stateKind = iota
	stateBuilding
	stateBuilt
)

// nodeState is the per-node BuildState machine of spec §4.4:
//
//	Unbuilt(remaining=k) --[k→0 && claim]--> Building --[success]--> Built(runtime=R)
//	                                                 └--[failure]--> Unbuilt(k=0)
//
// remaining counts not-yet-built direct dependencies within the target's
// reachable subgraph; it only ever decreases on a dependency's
// successful completion, never on failure, which is what leaves a
// failed node's parents permanently dangling in Unbuilt rather than
// retried automatically within the same Build call (spec §4.4 "Failure
// & cancellation").
type nodeState struct {
	kind      stateKind
	remaining int
	runtime   map[*plan.Node]bool
}
