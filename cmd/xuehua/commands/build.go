package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/catdeal3r/xuehua/pkg/builder"
	"github.com/catdeal3r/xuehua/pkg/policy"
	"github.com/catdeal3r/xuehua/pkg/store"
)

func newBuildCommand() *cobra.Command {
	var (
		target     string
		concurrent int
	)

	cmd := &cobra.Command{
		Use:   "build <recipe.star>",
		Short: "Plan and build a package's reachable closure",
		Long: `Build runs a Starlark recipe, plans --target's dependency closure,
and walks it in dependency order, consulting the content-addressed
store for cache hits before invoking each package's build thunk inside
a sandboxed executor.

If --policy-dir names a directory of Rego policy bundles, every
package is evaluated against them immediately before its build thunk
runs; a package an enabled policy denies aborts that package's build.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd.Context(), args[0], target, concurrent)
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "package id (name@ns) to build")
	cmd.Flags().IntVar(&concurrent, "concurrent", 0, "maximum number of packages built at once (0 uses the config's concurrency)")
	cmd.MarkFlagRequired("target")
	return cmd
}

func runBuild(ctx context.Context, scriptPath, target string, concurrent int) error {
	logger, err := cliLogger()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	cfg, err := loadEngineConfig(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if concurrent <= 0 {
		concurrent = cfg.Concurrency
	}

	pl, err := buildPlan(ctx, scriptPath, logger)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	node, err := resolveTarget(pl, target)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}

	b := &builder.Builder{
		Plan:       pl,
		Store:      st,
		Executors:  newExecutorManager(),
		Concurrent: concurrent,
		BuildRoot:  cfg.BuildRoot,
		Sandbox:    cfg.Sandbox.ToOptions(),
	}

	if policyDir != "" {
		eng, err := policy.NewEngine(log.Logger)
		if err != nil {
			return fmt.Errorf("policy: %w", err)
		}
		if err := eng.LoadPolicies(ctx, []string{policyDir}); err != nil {
			return fmt.Errorf("policy: load %s: %w", policyDir, err)
		}
		b.Policy = eng
	}

	runtime, err := b.Build(ctx, node)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}

	fmt.Printf("built %s\n", node.Pkg.Id)
	for n := range runtime {
		if n == node {
			continue
		}
		fmt.Printf("  runtime dependency: %s\n", n.Pkg.Id)
	}
	return nil
}
