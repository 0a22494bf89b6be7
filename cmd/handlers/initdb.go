package handlers

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/NimaFathima/astrobiomers/internal/graph"
)

// NewInitDBCmd creates the schema-initialization command.
func NewInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Create the graph schema (constraints and indexes)",
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

			if err := client.EnsureSchema(ctx); err != nil {
				return &exitError{code: ExitStage, err: err}
			}
			cmd.Println("graph schema ready")
			return nil
		},
	}
}
