package handlers

import (
	"context"
	"sort"

	"github.com/spf13/cobra"

	"github.com/NimaFathima/astrobiomers/internal/graph"
)

// NewStatsCmd creates the read-only graph statistics command.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print node and edge counts from the graph store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return &exitError{code: ExitConfig, err: err}
			}
			client, err := graph.NewClient(cfg.Graph)
			if err != nil {
				return &exitError{code: ExitStage, err: err}
			}
			ctx := context.Background()
			defer client.Close(ctx)

			stats, err := client.GetGraphStatistics(ctx)
			if err != nil {
				return &exitError{code: ExitStage, err: err}
			}
			cmd.Printf("nodes: %d\n", stats.TotalNodes)
			for _, label := range sortedKeys(stats.NodeCounts) {
				cmd.Printf("  %-16s %d\n", label, stats.NodeCounts[label])
			}
			cmd.Printf("relationships: %d\n", stats.TotalRelationships)
			for _, relType := range sortedKeys(stats.RelationshipCounts) {
				cmd.Printf("  %-16s %d\n", relType, stats.RelationshipCounts[relType])
			}
			return nil
		},
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
