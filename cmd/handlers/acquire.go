package handlers

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/NimaFathima/astrobiomers/internal/acquire"
	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/pipeline"
)

// NewAcquireCuratedCmd creates the curated-only acquisition command.
func NewAcquireCuratedCmd() *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "acquire-curated",
		Short: "Run only the curated-list acquisition and write raw_papers.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return &exitError{code: ExitConfig, err: err}
			}
			cfg.Acquisition.CuratedEnabled = true
			cfg.Acquisition.LiteratureEnabled = false
			cfg.Acquisition.SecondarySources = nil
			return runAcquire(cmd, cfg, outputDir)
		},
	}
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "artifact directory")
	return cmd
}

// NewAcquireAllCmd creates the all-sources acquisition command.
func NewAcquireAllCmd() *cobra.Command {
	var outputDir string
	cmd := &cobra.Command{
		Use:   "acquire-all",
		Short: "Run acquisition from every enabled source and write raw_papers.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return &exitError{code: ExitConfig, err: err}
			}
			return runAcquire(cmd, cfg, outputDir)
		},
	}
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "artifact directory")
	return cmd
}

func runAcquire(cmd *cobra.Command, cfg *config.Config, outputDir string) error {
	if outputDir == "" {
		outputDir = cfg.Pipeline.OutputDir
	}
	acquirer, err := acquire.New(cfg.Acquisition)
	if err != nil {
		return &exitError{code: ExitConfig, err: err}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	papers, rejects, err := acquirer.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return &exitError{code: ExitCancelled}
		}
		return &exitError{code: ExitStage, err: err}
	}
	if err := pipeline.WriteRejections(outputDir, pipeline.StageAcquisition, rejects); err != nil {
		return &exitError{code: ExitStage, err: err}
	}
	path := filepath.Join(outputDir, pipeline.ArtifactRawPapers)
	meta := pipeline.Meta{Producer: pipeline.StageAcquisition, RunID: uuid.NewString()}
	if err := pipeline.WriteArtifact(path, meta, papers); err != nil {
		return &exitError{code: ExitStage, err: err}
	}
	cmd.Printf("acquired %d papers -> %s\n", len(papers), path)
	if len(rejects) > 0 {
		cmd.Printf("%d records rejected\n", len(rejects))
		return &exitError{code: ExitPartial}
	}
	return nil
}
