package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/core"
	"github.com/NimaFathima/astrobiomers/internal/graph"
	"github.com/NimaFathima/astrobiomers/internal/logger"
	"github.com/NimaFathima/astrobiomers/internal/ner"
	"github.com/NimaFathima/astrobiomers/internal/topics"
)

// Stage names, in topological order.
var stageOrder = []string{
	StageAcquisition, StagePreprocessing, StageNER, StageRE,
	StageTopics, StageResolution, StageAlignment, StageGraph,
}

const (
	StageAcquisition   = "acquisition"
	StagePreprocessing = "preprocessing"
	StageNER           = "ner"
	StageRE            = "re"
	StageTopics        = "topics"
	StageResolution    = "resolution"
	StageAlignment     = "alignment"
	StageGraph         = "graph"
)

// Stage statuses reported in the run summary.
const (
	StatusSuccess        = "success"
	StatusWithRejections = "success-with-rejections"
	StatusSkipped        = "skipped"
	StatusFailed         = "failed"
	StatusCancelled      = "cancelled"
)

// optionalStages may fail without failing the run when fail_fast is off.
var optionalStages = map[string]bool{
	StageResolution: true,
	StageAlignment:  true,
}

// stageArtifacts maps each stage to the artifacts it must produce; the first
// is the resume probe target. stageDeps maps each stage to the artifacts it
// reads, with the stage that produces them.
var stageArtifacts = map[string][]string{
	StageAcquisition:   {ArtifactRawPapers},
	StagePreprocessing: {ArtifactPreprocessed},
	StageNER:           {ArtifactMentions},
	StageRE:            {ArtifactRelationships},
	StageTopics:        {ArtifactTopicAssign, ArtifactTopics},
	StageResolution:    {ArtifactResolved},
	StageAlignment:     {ArtifactAligned},
	StageGraph:         {ArtifactGraphReport},
}

type dependency struct {
	artifact string
	producer string
}

var stageDeps = map[string][]dependency{
	StagePreprocessing: {{ArtifactRawPapers, StageAcquisition}},
	StageNER:           {{ArtifactPreprocessed, StagePreprocessing}},
	StageRE:            {{ArtifactPreprocessed, StagePreprocessing}, {ArtifactMentions, StageNER}},
	StageTopics:        {{ArtifactPreprocessed, StagePreprocessing}},
	StageResolution:    {{ArtifactMentions, StageNER}},
	StageAlignment:     {{ArtifactResolved, StageResolution}},
	StageGraph: {
		{ArtifactPreprocessed, StagePreprocessing},
		{ArtifactAligned, StageAlignment},
		{ArtifactRelationships, StageRE},
		{ArtifactTopicAssign, StageTopics},
	},
}

// StageResult is one row of the run summary.
type StageResult struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Records    int    `json:"records"`
	Rejections int    `json:"rejections"`
	Error      string `json:"error,omitempty"`
}

// Summary is the run summary persisted as pipeline_results.json.
type Summary struct {
	RunID       string            `json:"run_id"`
	Status      string            `json:"status"`
	Seed        int               `json:"seed"`
	DegradedNLP bool              `json:"degraded_nlp,omitempty"`
	Stages      []StageResult     `json:"stages"`
	Artifacts   map[string]string `json:"artifacts"`
}

// GraphStore abstracts the loader's store so tests run without a server.
type GraphStore interface {
	ExistingPaperIDs(ctx context.Context) (map[string]bool, error)
	Load(ctx context.Context, plan *graph.Plan) (*graph.Report, error)
	Close(ctx context.Context) error
}

// Orchestrator owns the in-progress artifacts and runs the stages in order.
// The factory fields exist so tests can inject stubs for the model-backed and
// store-backed stages.
type Orchestrator struct {
	cfg       *config.Config
	outputDir string
	runID     string

	NewNER func(config.NER) (NERRunner, error)
	NewTopicModel func(config.Topic) (TopicRunner, error)
	NewGraphStore func(cfg config.Graph, failFast bool, rejectionPath string) (GraphStore, error)

	degradedNLP bool
}

// NERRunner is the ensemble capability the orchestrator drives.
type NERRunner interface {
	Run(papers []*core.Paper) ([]core.Mention, error)
	Close()
}

// TopicRunner is the topic model capability the orchestrator drives.
type TopicRunner interface {
	Run(papers []*core.Paper) (*topics.Result, error)
	Close()
}

// New builds an orchestrator over the given configuration.
func New(cfg *config.Config) *Orchestrator {
	o := &Orchestrator{
		cfg:       cfg,
		outputDir: cfg.Pipeline.OutputDir,
		runID:     uuid.NewString(),
	}
	o.NewNER = func(c config.NER) (NERRunner, error) { return ner.NewEnsemble(c) }
	o.NewTopicModel = func(c config.Topic) (TopicRunner, error) { return topics.New(c) }
	o.NewGraphStore = func(c config.Graph, failFast bool, rejectionPath string) (GraphStore, error) {
		client, err := graph.NewClient(c)
		if err != nil {
			return nil, err
		}
		return &storeAdapter{client: client, loader: graph.NewLoader(client, c, failFast, rejectionPath)}, nil
	}
	return o
}

type storeAdapter struct {
	client *graph.Client
	loader *graph.Loader
}

func (s *storeAdapter) ExistingPaperIDs(ctx context.Context) (map[string]bool, error) {
	return s.client.ExistingPaperIDs(ctx)
}
func (s *storeAdapter) Load(ctx context.Context, plan *graph.Plan) (*graph.Report, error) {
	return s.loader.Load(ctx, plan)
}
func (s *storeAdapter) Close(ctx context.Context) error { return s.client.Close(ctx) }

func (o *Orchestrator) path(artifact string) string {
	return filepath.Join(o.outputDir, artifact)
}

// Run executes the configured stages in topological order, honoring resume,
// incremental mode, and cancellation between stages.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	log := logger.With("pipeline")
	summary := &Summary{
		RunID:     o.runID,
		Status:    StatusSuccess,
		Seed:      o.cfg.Topic.Seed,
		Artifacts: map[string]string{},
	}

	requested := make(map[string]bool, len(o.cfg.Pipeline.Stages))
	for _, s := range o.cfg.Pipeline.Stages {
		requested[s] = true
	}

	cancelled := false
	upstreamRan := false
	for _, stage := range stageOrder {
		if !requested[stage] {
			continue
		}
		if cancelled || ctx.Err() != nil {
			cancelled = true
			summary.Stages = append(summary.Stages, StageResult{Name: stage, Status: StatusCancelled})
			continue
		}

		// Resume may only skip a stage while every stage before it was also
		// skipped; once something re-runs, its consumers must re-run too.
		result := o.runStage(ctx, stage, !upstreamRan)
		if result.Status != StatusSkipped {
			upstreamRan = true
		}
		summary.Stages = append(summary.Stages, result)
		for _, artifact := range stageArtifacts[stage] {
			summary.Artifacts[artifact] = o.path(artifact)
		}
		log.Info().
			Str("stage", stage).
			Str("status", result.Status).
			Int64("duration_ms", result.DurationMS).
			Int("records", result.Records).
			Msg("stage finished")

		switch result.Status {
		case StatusFailed:
			if optionalStages[stage] && !o.cfg.Pipeline.FailFast {
				log.Warn().Str("stage", stage).Str("error", result.Error).
					Msg("optional stage failed, continuing")
				continue
			}
			summary.Status = StatusFailed
			o.writeSummary(summary)
			return summary, fmt.Errorf("stage %s failed: %s", stage, result.Error)
		case StatusCancelled:
			cancelled = true
		}
	}

	if cancelled {
		summary.Status = StatusCancelled
	} else {
		for _, s := range summary.Stages {
			if s.Status == StatusWithRejections {
				summary.Status = StatusWithRejections
			}
		}
	}
	summary.DegradedNLP = o.degradedNLP
	o.writeSummary(summary)
	return summary, nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage string, allowSkip bool) StageResult {
	result := StageResult{Name: stage}
	started := time.Now()
	defer func() { result.DurationMS = time.Since(started).Milliseconds() }()

	// Resume: a present, valid output artifact skips the stage.
	if o.cfg.Pipeline.Resume && allowSkip {
		allPresent := true
		for _, artifact := range stageArtifacts[stage] {
			if !ProbeArtifact(o.path(artifact), stage) {
				allPresent = false
				break
			}
		}
		if allPresent {
			result.Status = StatusSkipped
			return result
		}
	}

	for _, dep := range stageDeps[stage] {
		if !ProbeArtifact(o.path(dep.artifact), dep.producer) {
			err := core.NewPipelineDependencyError(stage, dep.artifact)
			result.Status = StatusFailed
			result.Error = err.Error()
			return result
		}
	}

	var (
		records    int
		rejections int
		err        error
	)
	switch stage {
	case StageAcquisition:
		records, rejections, err = o.runAcquisition(ctx)
	case StagePreprocessing:
		records, rejections, err = o.runPreprocessing()
	case StageNER:
		records, err = o.runNER()
	case StageRE:
		records, err = o.runRE()
	case StageTopics:
		records, err = o.runTopics()
	case StageResolution:
		records, err = o.runResolution(ctx)
	case StageAlignment:
		records, err = o.runAlignment()
	case StageGraph:
		records, rejections, err = o.runGraph(ctx)
	default:
		err = fmt.Errorf("unknown stage %q", stage)
	}

	result.Records = records
	result.Rejections = rejections
	switch {
	case err != nil && ctx.Err() != nil:
		result.Status = StatusCancelled
	case err != nil:
		result.Status = StatusFailed
		result.Error = err.Error()
	case rejections > 0:
		result.Status = StatusWithRejections
	default:
		result.Status = StatusSuccess
	}
	return result
}

func (o *Orchestrator) writeSummary(summary *Summary) {
	_ = WriteArtifact(o.path(ArtifactRunSummary),
		Meta{Producer: "pipeline", RunID: o.runID, Seed: o.cfg.Topic.Seed},
		[]*Summary{summary})
}
