// Package handlers wires the CLI commands to the pipeline.
package handlers

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/logger"
	"github.com/NimaFathima/astrobiomers/internal/pipeline"
)

// Exit codes, mapped from run outcomes by Execute.
const (
	ExitOK        = 0
	ExitConfig    = 2
	ExitStage     = 3
	ExitPartial   = 4
	ExitCancelled = 130
)

var cfgFile string

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "astrobiomers",
		Short: "Build a space-biology knowledge graph from scientific literature",
		Long: `astrobiomers builds a knowledge graph of space-biology research.

It acquires publications from curated lists and literature services, extracts
biological entities and relationships, groups papers into latent topics,
normalizes entities against public registries and ontologies, and loads the
result as a typed property graph.

Examples:
  astrobiomers build --papers 200
  astrobiomers build --resume --output-dir output
  astrobiomers acquire-curated --output-dir output
  astrobiomers stats`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./astrobiomers.yaml)")

	rootCmd.AddCommand(NewBuildCmd())
	rootCmd.AddCommand(NewAcquireCuratedCmd())
	rootCmd.AddCommand(NewAcquireAllCmd())
	rootCmd.AddCommand(NewInitDBCmd())
	rootCmd.AddCommand(NewStatusCmd())
	rootCmd.AddCommand(NewStatsCmd())
	return rootCmd
}

// loadConfig reads configuration and initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Logging.Level, filepath.Join(cfg.Pipeline.OutputDir, pipeline.LogFile))
	return cfg, nil
}
