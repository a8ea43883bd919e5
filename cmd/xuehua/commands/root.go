// Package commands implements the xuehua CLI: a thin cobra front end
// over the Planner/Builder/Store triple, grounded in the teacher's
// cmd/froyo/commands package layout (one file per subcommand, a shared
// root.go wiring persistent flags and subcommands together).
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	policyDir  string
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xuehua",
		Short: "Xuehua - reproducible, content-addressed source-build package manager",
		Long: `Xuehua plans and builds packages from Starlark recipes into a
content-addressed store.

A recipe script registers packages with the planner, which assembles
them into a dependency DAG; the builder then walks that DAG in
reverse-topological order, consulting the store for cache hits and
invoking each package's build thunk inside a sandboxed executor.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "xuehua.yaml", "engine config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&policyDir, "policy-dir", "", "directory of Rego policy bundles to load (omit to disable policy evaluation)")

	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newBuildCommand())

	return rootCmd
}
