package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/catdeal3r/xuehua/pkg/config"
	"github.com/catdeal3r/xuehua/pkg/executor"
	"github.com/catdeal3r/xuehua/pkg/executor/direct"
	"github.com/catdeal3r/xuehua/pkg/executor/userns"
	"github.com/catdeal3r/xuehua/pkg/plan"
	"github.com/catdeal3r/xuehua/pkg/planner"
	"github.com/catdeal3r/xuehua/pkg/script"
	"github.com/catdeal3r/xuehua/pkg/telemetry"
	"github.com/catdeal3r/xuehua/pkg/xpkg"
)

// loadEngineConfig reads and validates the engine config at configPath,
// falling back to config.Default() with the cwd as both store and build
// root if the file does not exist, so plan/build work against a fresh
// checkout with no xuehua.yaml committed yet.
func loadEngineConfig(path string) (config.EngineConfig, error) {
	if _, err := os.Stat(path); err != nil {
		cwd, err := os.Getwd()
		if err != nil {
			return config.EngineConfig{}, err
		}
		cfg := config.Default()
		cfg.StoreRoot = cwd + "/.xuehua/store"
		cfg.BuildRoot = cwd + "/.xuehua/build"
		return cfg, nil
	}
	return config.Load(path)
}

// cliLogger builds the five-level script.Logger recipes log through,
// honoring the --verbose flag.
func cliLogger() (*telemetry.Logger, error) {
	level := "info"
	if verbose {
		level = "debug"
	}
	return telemetry.NewLogger(telemetry.LoggingConfig{
		Level:  level,
		Format: "console",
		Output: "stderr",
	})
}

// buildPlan evaluates the recipe at scriptPath and returns the
// resulting Plan.
func buildPlan(ctx context.Context, scriptPath string, logger script.Logger) (*plan.Plan, error) {
	src, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("read recipe %s: %w", scriptPath, err)
	}

	p := planner.New()
	host := script.NewHost(p, logger)
	if err := host.Load(ctx, scriptPath, string(src)); err != nil {
		return nil, err
	}
	return p.Plan(), nil
}

// resolveTarget looks up targetName (in xpkg.Id canonical "name@ns"
// form) within pl.
func resolveTarget(pl *plan.Plan, targetName string) (*plan.Node, error) {
	id := xpkg.ParseId(targetName)
	n, ok := pl.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("target %s: no such package in plan", targetName)
	}
	return n, nil
}

// newExecutorManager registers the two executor backends this module
// ships: "direct" (no isolation, for builds that declare no sandboxing
// need) and "userns" (Linux user-namespace sandbox), matching the names
// a recipe's executor module entries are keyed by.
func newExecutorManager() *executor.Manager {
	m := executor.NewManager()
	m.Register("direct", direct.Factory)
	m.Register("userns", userns.Factory)
	return m
}
