// Package script implements the scripting layer spec §4.1 treats as an
// external dependency (module registration, source execution, re-entrant
// callbacks) and the module surface spec §6 names: planner, executor,
// utils, and logger. It runs recipes as Starlark source, the way the
// teacher's StarlarkEvaluator runs procedural config snippets, grounded
// in pkg/config/starlark_eval.go's predeclared-environment-plus-
// ExecFile shape, generalized from one evaluation per call to one
// starlark.Thread held open across a whole planning pass so that build
// and configure thunks captured during evaluation remain callable
// afterward (spec §9 "Script-held build thunks").
package script

import (
	"context"
	"fmt"
	"sync"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/catdeal3r/xuehua/pkg/planner"
)

// Logger is the narrow interface the logger module dispatches to. Kept
// local (rather than importing the telemetry package) so pkg/script has
// no dependency on how the engine's logging is wired; any zerolog-backed
// telemetry.Logger satisfies it.
type Logger interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
	Debug(msg string)
	Trace(msg string)
}

type nopLogger struct{}

func (nopLogger) Info(string)  {}
func (nopLogger) Warn(string)  {}
func (nopLogger) Error(string) {}
func (nopLogger) Debug(string) {}
func (nopLogger) Trace(string) {}

// Host runs package-definition scripts against one Planner over one
// starlark.Thread.
type Host struct {
	thread  *starlark.Thread
	planner *planner.Planner
	logger  Logger

	// buildMu serializes every thunk and configurator call into the
	// shared thread: build thunks, configure-modify thunks, and
	// configurator Apply calls alike. Load does not take it. This is the reference choice spec §4.4's "Concurrency
	// notes" describes for the global build-lock bottleneck — a single
	// script-wide lock rather than one script instance per in-flight
	// build.
	buildMu sync.Mutex
}

// NewHost creates a Host bound to p. logger may be nil, in which case
// logger-module calls from scripts are silently discarded.
func NewHost(p *planner.Planner, logger Logger) *Host {
	if logger == nil {
		logger = nopLogger{}
	}
	h := &Host{planner: p, logger: logger}
	h.thread = &starlark.Thread{
		Name: "xuehua",
		Print: func(_ *starlark.Thread, msg string) {
			h.logger.Info(msg)
		},
	}
	return h
}

// Load parses and executes a package-definition script. Any package
// registrations the script performs land directly in the Host's
// Planner as a side effect; the script's own top-level globals are
// discarded. Per spec §4.1's failure policy, any error aborts planning
// and the caller must discard the Plan built so far — Load does not
// attempt partial recovery.
func (h *Host) Load(ctx context.Context, filename, src string) error {
	predeclared := starlark.StringDict{
		"struct":  starlarkstruct.Default,
		"planner": h.plannerModule(ctx),
		"utils":   utilsModule(),
		"logger":  h.loggerModule(),
	}
	_, err := starlark.ExecFile(h.thread, filename, src, predeclared)
	if err != nil {
		if evalErr, ok := err.(*starlark.EvalError); ok {
			return fmt.Errorf("script %s: %s", filename, evalErr.Backtrace())
		}
		return fmt.Errorf("script %s: %w", filename, err)
	}
	return nil
}

func (h *Host) plannerModule(ctx context.Context) *starlarkstruct.Struct {
	return starlarkstruct.FromStringDict(starlarkstruct.Default, starlark.StringDict{
		"package":   starlark.NewBuiltin("planner.package", h.builtinPackage),
		"configure": starlark.NewBuiltin("planner.configure", h.builtinConfigure(ctx)),
		"namespace": starlark.NewBuiltin("planner.namespace", h.builtinNamespace),
	})
}
