package handlers

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/NimaFathima/astrobiomers/internal/acquire"
	"github.com/NimaFathima/astrobiomers/internal/graph"
	"github.com/NimaFathima/astrobiomers/internal/pipeline"
)

// NewStatusCmd creates the connectivity-and-artifacts report command.
func NewStatusCmd() *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report external service connectivity and artifact presence",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return &exitError{code: ExitConfig, err: err}
			}
			if outputDir == "" {
				outputDir = cfg.Pipeline.OutputDir
			}
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()

			cmd.Println("services:")
			if cfg.Acquisition.LiteratureEnabled {
				lit := acquire.NewLiteratureClient(cfg.Acquisition)
				cmd.Printf("  literature      %s\n", okOrError(lit.Ping(ctx)))
			} else {
				cmd.Println("  literature      disabled")
			}
			if client, err := graph.NewClient(cfg.Graph); err == nil {
				cmd.Printf("  graph store     %s\n", okOrError(client.Ping(ctx)))
				_ = client.Close(ctx)
			} else {
				cmd.Printf("  graph store     error: %v\n", err)
			}

			cmd.Println("artifacts:")
			for _, artifact := range []string{
				pipeline.ArtifactRawPapers, pipeline.ArtifactPreprocessed,
				pipeline.ArtifactMentions, pipeline.ArtifactRelationships,
				pipeline.ArtifactTopicAssign, pipeline.ArtifactTopics,
				pipeline.ArtifactResolved, pipeline.ArtifactAligned,
				pipeline.ArtifactGraphReport, pipeline.ArtifactRunSummary,
			} {
				state := "missing"
				if _, err := os.Stat(filepath.Join(outputDir, artifact)); err == nil {
					state = "present"
				}
				cmd.Printf("  %-36s %s\n", artifact, state)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "artifact directory")
	return cmd
}

func okOrError(err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
