package engineerr

import (
	"fmt"

	"github.com/catdeal3r/xuehua/pkg/xpkg"
)

// NewPlanConflict reports that a PackageId was registered twice.
func NewPlanConflict(id xpkg.Id) *Error {
	return newErr(KindPlanConflict, fmt.Sprintf("package %s already registered", id), nil,
		map[string]any{"package_id": id.String()})
}

// NewPlanCycle reports that inserting the edge from->to would have
// created a cycle; the edge is never added to the Plan.
func NewPlanCycle(from, to xpkg.Id) *Error {
	return newErr(KindPlanCycle, fmt.Sprintf("dependency %s -> %s would create a cycle", from, to), nil,
		map[string]any{"from": from.String(), "to": to.String()})
}

// NewMissingPackage reports that the Store has no binding for id. The
// Builder treats this as a cache miss, not a failure.
func NewMissingPackage(id xpkg.Id) *Error {
	return newErr(KindStoreMissingPackage, fmt.Sprintf("no store binding for package %s", id), nil,
		map[string]any{"package_id": id.String()})
}

// NewMissingArtifact reports that the Store has no record for an
// ArtifactId. hex is the artifact's hex-encoded id.
func NewMissingArtifact(hex string) *Error {
	return newErr(KindStoreMissingArtifact, fmt.Sprintf("no artifact %s in store", hex), nil,
		map[string]any{"artifact_id": hex})
}

// NewStoreExternal wraps a database/IO failure from the Store.
func NewStoreExternal(op string, cause error) *Error {
	return newErr(KindStoreExternal, fmt.Sprintf("store: %s failed", op), cause, nil)
}

// NewExecutorExternal wraps a sandbox-launch or subprocess I/O failure.
func NewExecutorExternal(op string, cause error) *Error {
	return newErr(KindExecutorExternal, fmt.Sprintf("executor: %s failed", op), cause, nil)
}

// NewBuildAcquireFailed reports that the build semaphore was closed
// (engine shutdown); the Builder treats this as cancellation.
func NewBuildAcquireFailed(cause error) *Error {
	return newErr(KindBuildAcquireFailed, "build semaphore closed", cause, nil)
}

// NewBuildIO wraps a failure creating a node's environment directory.
func NewBuildIO(path string, cause error) *Error {
	return newErr(KindBuildIO, fmt.Sprintf("could not create build environment %s", path), cause,
		map[string]any{"path": path})
}

// NewScriptFailure wraps an error a build thunk returned.
func NewScriptFailure(id xpkg.Id, cause error) *Error {
	return newErr(KindScriptFailure, fmt.Sprintf("build thunk for %s failed", id), cause,
		map[string]any{"package_id": id.String()})
}

// NewPolicyDenied reports that a configured policy bundle rejected a
// package before its build thunk was dispatched.
func NewPolicyDenied(id xpkg.Id, reasons []string) *Error {
	return newErr(KindPolicyDenied, fmt.Sprintf("package %s denied by policy", id), nil,
		map[string]any{"package_id": id.String(), "reasons": reasons})
}

// NewReentrantPlanner reports a nested mutating call into the Planner
// from a script callback while a previous call is still in progress
// (spec §4.1 "External dependency on script host").
func NewReentrantPlanner() *Error {
	return newErr(KindReentrantPlanner, "nested mutating call into planner while already borrowed", nil, nil)
}
