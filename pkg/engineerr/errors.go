// Package engineerr implements the engine's error taxonomy (spec §7): a
// single classified error type carrying a Kind, a message, an optional
// wrapped cause, and structured fields for logging, in the style of the
// teacher's EngineError/ErrorClass pattern.
package engineerr

import (
	"fmt"
)

// Kind classifies an Error for recovery/propagation decisions: the kinds
// spec.md §7 enumerates, plus KindReentrantPlanner for the Planner's
// re-entry guard and KindPolicyDenied for the Builder's policy hook.
type Kind string

const (
	KindPlanConflict         Kind = "plan_conflict"
	KindPlanCycle            Kind = "plan_cycle"
	KindStoreMissingPackage  Kind = "store_missing_package"
	KindStoreMissingArtifact Kind = "store_missing_artifact"
	KindStoreExternal        Kind = "store_external"
	KindExecutorExternal     Kind = "executor_external"
	KindBuildAcquireFailed   Kind = "build_acquire_failed"
	KindBuildIO              Kind = "build_io"
	KindScriptFailure        Kind = "script_failure"
	KindReentrantPlanner     Kind = "reentrant_planner"
	KindPolicyDenied         Kind = "policy_denied"
)

// Error is the engine's single error type. Construct instances with the
// Kind-specific constructors below rather than the struct literal, so
// every error carries a Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
	Fields  map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match by Kind alone, the way callers typically want
// to test "was this a cache-miss-shaped store error" without comparing
// messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, msg string, err error, fields map[string]any) *Error {
	return &Error{Kind: kind, Message: msg, Err: err, Fields: fields}
}
