package pipeline

import (
	"context"
	"path/filepath"

	"github.com/NimaFathima/astrobiomers/internal/acquire"
	"github.com/NimaFathima/astrobiomers/internal/align"
	"github.com/NimaFathima/astrobiomers/internal/core"
	"github.com/NimaFathima/astrobiomers/internal/graph"
	"github.com/NimaFathima/astrobiomers/internal/logger"
	"github.com/NimaFathima/astrobiomers/internal/ner"
	"github.com/NimaFathima/astrobiomers/internal/preprocess"
	"github.com/NimaFathima/astrobiomers/internal/relex"
	"github.com/NimaFathima/astrobiomers/internal/resolve"
)

func (o *Orchestrator) runAcquisition(ctx context.Context) (int, int, error) {
	acquirer, err := acquire.New(o.cfg.Acquisition)
	if err != nil {
		return 0, 0, err
	}

	// Incremental: only papers absent from the graph flow through the run.
	if o.cfg.Pipeline.Incremental {
		store, err := o.NewGraphStore(o.cfg.Graph, o.cfg.Pipeline.FailFast, "")
		if err != nil {
			return 0, 0, err
		}
		existing, err := store.ExistingPaperIDs(ctx)
		_ = store.Close(ctx)
		if err != nil {
			return 0, 0, err
		}
		acquirer.SkipIDs = existing
	}

	papers, rejects, err := acquirer.Run(ctx)
	if err != nil {
		return 0, len(rejects), err
	}
	if err := WriteRejections(o.outputDir, StageAcquisition, rejects); err != nil {
		return 0, 0, err
	}
	err = WriteArtifact(o.path(ArtifactRawPapers),
		Meta{Producer: StageAcquisition, RunID: o.runID}, papers)
	return len(papers), len(rejects), err
}

func (o *Orchestrator) runPreprocessing() (int, int, error) {
	papers, _, err := ReadArtifact[*core.Paper](o.path(ArtifactRawPapers), StageAcquisition)
	if err != nil {
		return 0, 0, err
	}
	result := preprocess.New(o.cfg.Preprocessing).Run(papers)
	o.degradedNLP = o.degradedNLP || result.DegradedNLP
	if err := WriteRejections(o.outputDir, StagePreprocessing, result.Rejected); err != nil {
		return 0, 0, err
	}
	err = WriteArtifact(o.path(ArtifactPreprocessed),
		Meta{Producer: StagePreprocessing, RunID: o.runID, DegradedNLP: result.DegradedNLP},
		result.Papers)
	return len(result.Papers), len(result.Rejected), err
}

func (o *Orchestrator) runNER() (int, error) {
	papers, _, err := ReadArtifact[*core.Paper](o.path(ArtifactPreprocessed), StagePreprocessing)
	if err != nil {
		return 0, err
	}
	ensemble, err := o.NewNER(o.cfg.NER)
	if err != nil {
		return 0, err
	}
	defer ensemble.Close()

	mentions, err := ensemble.Run(papers)
	if err != nil {
		return 0, err
	}
	err = WriteArtifact(o.path(ArtifactMentions),
		Meta{Producer: StageNER, RunID: o.runID}, mentions)
	return len(mentions), err
}

func (o *Orchestrator) runRE() (int, error) {
	papers, _, err := ReadArtifact[*core.Paper](o.path(ArtifactPreprocessed), StagePreprocessing)
	if err != nil {
		return 0, err
	}
	mentions, _, err := ReadArtifact[core.Mention](o.path(ArtifactMentions), StageNER)
	if err != nil {
		return 0, err
	}
	rels := relex.NewEngine(o.cfg.RE).Run(papers, mentions)
	err = WriteArtifact(o.path(ArtifactRelationships),
		Meta{Producer: StageRE, RunID: o.runID}, rels)
	return len(rels), err
}

func (o *Orchestrator) runTopics() (int, error) {
	papers, _, err := ReadArtifact[*core.Paper](o.path(ArtifactPreprocessed), StagePreprocessing)
	if err != nil {
		return 0, err
	}
	model, err := o.NewTopicModel(o.cfg.Topic)
	if err != nil {
		return 0, err
	}
	defer model.Close()

	result, err := model.Run(papers)
	if err != nil {
		return 0, err
	}
	meta := Meta{Producer: StageTopics, RunID: o.runID, Seed: o.cfg.Topic.Seed}
	if err := WriteArtifact(o.path(ArtifactTopicAssign), meta, result.Assignments); err != nil {
		return 0, err
	}
	if err := WriteArtifact(o.path(ArtifactTopics), meta, result.Topics); err != nil {
		return 0, err
	}
	return len(result.Assignments), nil
}

func (o *Orchestrator) runResolution(ctx context.Context) (int, error) {
	mentions, _, err := ReadArtifact[core.Mention](o.path(ArtifactMentions), StageNER)
	if err != nil {
		return 0, err
	}
	entities := ner.BuildEntities(mentions)

	cfg := o.cfg.Resolver
	if !filepath.IsAbs(cfg.CachePath) {
		cfg.CachePath = filepath.Join(o.outputDir, cfg.CachePath)
	}
	resolver, err := resolve.New(cfg)
	if err != nil {
		// Resolver failures are never fatal: entities pass through
		// unresolved and the stage still writes its artifact.
		logger.With(StageResolution).Warn().Err(err).
			Msg("resolver unavailable, entities pass through unresolved")
	} else {
		entities = resolver.Run(ctx, entities)
		_ = resolver.Close()
	}
	err = WriteArtifact(o.path(ArtifactResolved),
		Meta{Producer: StageResolution, RunID: o.runID}, entities)
	return len(entities), err
}

func (o *Orchestrator) runAlignment() (int, error) {
	entities, _, err := ReadArtifact[*core.Entity](o.path(ArtifactResolved), StageResolution)
	if err != nil {
		return 0, err
	}
	aligner, err := align.New(o.cfg.Aligner)
	if err != nil {
		return 0, err
	}
	entities = aligner.Run(entities)
	err = WriteArtifact(o.path(ArtifactAligned),
		Meta{Producer: StageAlignment, RunID: o.runID}, entities)
	return len(entities), err
}

func (o *Orchestrator) runGraph(ctx context.Context) (int, int, error) {
	papers, _, err := ReadArtifact[*core.Paper](o.path(ArtifactPreprocessed), StagePreprocessing)
	if err != nil {
		return 0, 0, err
	}
	entities, _, err := ReadArtifact[*core.Entity](o.path(ArtifactAligned), StageAlignment)
	if err != nil {
		return 0, 0, err
	}
	rels, _, err := ReadArtifact[*core.Relationship](o.path(ArtifactRelationships), StageRE)
	if err != nil {
		return 0, 0, err
	}
	assignments, _, err := ReadArtifact[core.TopicAssignment](o.path(ArtifactTopicAssign), StageTopics)
	if err != nil {
		return 0, 0, err
	}
	topicList, _, err := ReadArtifact[core.Topic](o.path(ArtifactTopics), StageTopics)
	if err != nil {
		return 0, 0, err
	}

	graphCfg := o.cfg.Graph
	if o.cfg.Pipeline.Incremental {
		// Incremental merges the delta, never replaces.
		graphCfg.Mode = "merge"
	}
	plan, err := graph.BuildPlan(graph.Input{
		Papers:              papers,
		Entities:            entities,
		Relationships:       rels,
		Assignments:         assignments,
		Topics:              topicList,
		IncludeCooccurrence: graphCfg.IncludeCooccurrenceEdges,
	}, graphCfg.BatchSize)
	if err != nil {
		return 0, 0, err
	}

	rejectionPath := filepath.Join(o.outputDir, RejectionsDir, "graph_batches.json")
	store, err := o.NewGraphStore(graphCfg, o.cfg.Pipeline.FailFast, rejectionPath)
	if err != nil {
		return 0, 0, err
	}
	defer store.Close(ctx)

	report, err := store.Load(ctx, plan)
	if err != nil {
		return 0, 0, err
	}
	err = WriteArtifact(o.path(ArtifactGraphReport),
		Meta{Producer: StageGraph, RunID: o.runID}, []*graph.Report{report})
	return report.TotalNodes + report.TotalEdges, report.RejectedBatches, err
}
