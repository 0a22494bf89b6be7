package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NimaFathima/astrobiomers/internal/core"
	"github.com/NimaFathima/astrobiomers/internal/pipeline"
)

// exitError carries a process exit code through cobra's error path.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit %d", e.code)
	}
	return e.err.Error()
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := NewRootCmd().Execute()
	if err == nil {
		return ExitOK
	}
	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintln(os.Stderr, "Error:", exit.err)
		}
		return exit.code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	if errors.Is(err, core.ErrConfig) {
		return ExitConfig
	}
	return ExitStage
}

// NewBuildCmd creates the full-pipeline command.
func NewBuildCmd() *cobra.Command {
	var (
		papers       int
		useCurated   bool
		useLit       bool
		useSecondary bool
		loadGraph    bool
		skipGraph    bool
		resume       bool
		incremental  bool
		outputDir    string
		failFast     bool
		stagesCSV    string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the full knowledge-graph construction pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return &exitError{code: ExitConfig, err: err}
			}
			if cmd.Flags().Changed("papers") {
				cfg.Acquisition.MaxPapers = papers
			}
			if cmd.Flags().Changed("use-curated") {
				cfg.Acquisition.CuratedEnabled = useCurated
			}
			if cmd.Flags().Changed("use-literature") {
				cfg.Acquisition.LiteratureEnabled = useLit
			}
			if cmd.Flags().Changed("use-secondary") && !useSecondary {
				cfg.Acquisition.SecondarySources = nil
			}
			if cmd.Flags().Changed("output-dir") {
				cfg.Pipeline.OutputDir = outputDir
			}
			cfg.Pipeline.Resume = resume
			cfg.Pipeline.Incremental = incremental
			cfg.Pipeline.FailFast = failFast
			if stagesCSV != "" {
				cfg.Pipeline.Stages = strings.Split(stagesCSV, ",")
			}
			if skipGraph {
				loadGraph = false
			}
			if !loadGraph {
				cfg.Pipeline.Stages = withoutStage(cfg.Pipeline.Stages, pipeline.StageGraph)
			}
			if err := validateStages(cfg.Pipeline.Stages); err != nil {
				return &exitError{code: ExitConfig, err: err}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := pipeline.New(cfg).Run(ctx)
			if summary != nil {
				printSummary(cmd, summary)
			}
			switch {
			case summary != nil && summary.Status == pipeline.StatusCancelled:
				return &exitError{code: ExitCancelled}
			case err != nil:
				return &exitError{code: ExitStage, err: err}
			case summary.Status == pipeline.StatusWithRejections:
				return &exitError{code: ExitPartial}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&papers, "papers", 0, "maximum number of papers to acquire")
	cmd.Flags().BoolVar(&useCurated, "use-curated", true, "include the curated paper list")
	cmd.Flags().BoolVar(&useLit, "use-literature", false, "query the literature service")
	cmd.Flags().BoolVar(&useSecondary, "use-secondary", true, "include secondary sources")
	cmd.Flags().BoolVar(&loadGraph, "load-graph", true, "load the graph store")
	cmd.Flags().BoolVar(&skipGraph, "skip-graph", false, "skip the graph loading stage")
	cmd.Flags().BoolVar(&resume, "resume", false, "skip stages whose artifacts already exist")
	cmd.Flags().BoolVar(&incremental, "incremental", false, "process only papers not yet in the graph")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "artifact directory")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "stop on the first stage failure")
	cmd.Flags().StringVar(&stagesCSV, "stages", "", "comma-separated subset of stages to run")
	return cmd
}

func withoutStage(stages []string, drop string) []string {
	var out []string
	for _, s := range stages {
		if s != drop {
			out = append(out, s)
		}
	}
	return out
}

func validateStages(stages []string) error {
	known := make(map[string]bool)
	for _, s := range []string{
		pipeline.StageAcquisition, pipeline.StagePreprocessing, pipeline.StageNER,
		pipeline.StageRE, pipeline.StageTopics, pipeline.StageResolution,
		pipeline.StageAlignment, pipeline.StageGraph,
	} {
		known[s] = true
	}
	for _, s := range stages {
		if !known[strings.TrimSpace(s)] {
			return core.NewConfigError("pipeline.stages", "unknown stage "+s)
		}
	}
	return nil
}

func printSummary(cmd *cobra.Command, summary *pipeline.Summary) {
	cmd.Printf("run %s: %s\n", summary.RunID, summary.Status)
	for _, s := range summary.Stages {
		line := fmt.Sprintf("  %-14s %-24s %6d records", s.Name, s.Status, s.Records)
		if s.Rejections > 0 {
			line += fmt.Sprintf("  (%d rejections)", s.Rejections)
		}
		cmd.Println(line)
	}
}
