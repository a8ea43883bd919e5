package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/catdeal3r/xuehua/pkg/plan"
)

func newPlanCommand() *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "plan <recipe.star>",
		Short: "Evaluate a recipe and print the resulting dependency DAG",
		Long: `Plan runs a Starlark recipe against a fresh planner, registering
every package the recipe declares, and prints the reachable subgraph
of --target in build order (dependencies before dependents).

It performs no builds; it only reports what "build" would do.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := cliLogger()
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}

			pl, err := buildPlan(cmd.Context(), args[0], logger)
			if err != nil {
				return fmt.Errorf("plan: %w", err)
			}

			if target == "" {
				for _, n := range pl.Nodes() {
					fmt.Println(n.Pkg.Id.String())
				}
				return nil
			}

			node, err := resolveTarget(pl, target)
			if err != nil {
				return err
			}
			printReachable(pl, node)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "print only the closure reachable from this package id (name@ns); default prints every registered package")
	return cmd
}

// printReachable prints node's reachable subgraph, dependencies before
// dependents, which is the order the builder itself would process them
// in (minus the concurrency).
func printReachable(pl *plan.Plan, target *plan.Node) {
	reachable := pl.Reachable(target)
	remaining := make(map[*plan.Node]int, len(reachable))
	for n := range reachable {
		c := 0
		for _, e := range pl.Dependencies(n) {
			if reachable[e.To] {
				c++
			}
		}
		remaining[n] = c
	}

	var queue []*plan.Node
	for n, c := range remaining {
		if c == 0 {
			queue = append(queue, n)
		}
	}

	seen := make(map[*plan.Node]bool, len(reachable))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		fmt.Println(n.Pkg.Id.String())

		for _, e := range pl.Dependents(n) {
			if !reachable[e.From] {
				continue
			}
			remaining[e.From]--
			if remaining[e.From] == 0 {
				queue = append(queue, e.From)
			}
		}
	}

	if len(seen) != len(reachable) {
		log.Warn().
			Int("printed", len(seen)).
			Int("reachable", len(reachable)).
			Msg("reachable subgraph did not fully order; this indicates a cycle slipped past plan construction")
	}
}
