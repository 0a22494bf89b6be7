// Package topics assigns each paper to a latent topic via the deterministic
// embed → reduce → cluster → label chain, and scores topic coherence.
package topics

import (
	"sort"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/core"
	"github.com/NimaFathima/astrobiomers/internal/logger"
)

// Result is the topic modeling stage output.
type Result struct {
	Assignments []core.TopicAssignment
	Topics      []core.Topic
}

// Model runs the topic chain. The embedder is injected so deployments choose
// their checkpoint and tests stay deterministic.
type Model struct {
	cfg      config.Topic
	embedder Embedder
}

// New builds a topic model with the configured ONNX embedder.
func New(cfg config.Topic) (*Model, error) {
	embedder, err := NewHugotEmbedder(cfg.EmbeddingModelPath)
	if err != nil {
		// No embedder means the stage cannot run at all.
		return nil, err
	}
	return &Model{cfg: cfg, embedder: embedder}, nil
}

// NewWith builds a topic model around an explicit embedder.
func NewWith(cfg config.Topic, embedder Embedder) *Model {
	return &Model{cfg: cfg, embedder: embedder}
}

// Close releases the embedding model.
func (m *Model) Close() {
	if m.embedder != nil {
		m.embedder.Close()
	}
}

// Run assigns every paper a topic. Corpora smaller than min_topic_size × 2
// skip clustering entirely and land in the "unclustered" pseudo-topic.
func (m *Model) Run(papers []*core.Paper) (*Result, error) {
	log := logger.With("topics")

	texts := make([]string, len(papers))
	for i, p := range papers {
		texts[i] = p.Title + ". " + p.Abstract
	}

	if len(papers) < m.cfg.MinTopicSize*2 {
		log.Info().Int("papers", len(papers)).Msg("corpus below clustering threshold, all papers unclustered")
		return m.unclustered(papers), nil
	}

	vectors, err := m.embedder.Embed(texts)
	if err != nil {
		return nil, core.NewModelUnavailableError("topics", m.cfg.EmbeddingModelTag, err)
	}
	reduced, err := Reduce(vectors, m.cfg.UMAP.NComponents)
	if err != nil {
		return nil, err
	}
	assignments, err := clusterAssignments(reduced, m.cfg.MinTopicSize)
	if err != nil {
		return nil, err
	}

	keywordsByCluster := labelClusters(texts, assignments)

	result := &Result{}
	sizes := make(map[int]int)
	for i, paper := range papers {
		result.Assignments = append(result.Assignments, core.TopicAssignment{
			PaperID: paper.LiteratureID,
			TopicID: assignments[i],
		})
		sizes[assignments[i]]++
	}

	var clusterIDs []int
	for id := range keywordsByCluster {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Ints(clusterIDs)
	for _, id := range clusterIDs {
		keywords := keywordsByCluster[id]
		result.Topics = append(result.Topics, core.Topic{
			TopicID:   id,
			Label:     labelFromKeywords(keywords),
			Keywords:  keywords,
			Coherence: coherenceNPMI(keywords, texts),
			Size:      sizes[id],
		})
	}
	if sizes[core.NoiseTopicID] > 0 {
		result.Topics = append(result.Topics, core.Topic{
			TopicID: core.NoiseTopicID,
			Label:   "noise",
			Size:    sizes[core.NoiseTopicID],
		})
	}

	log.Info().
		Int("topics", len(result.Topics)).
		Int("noise", sizes[core.NoiseTopicID]).
		Msg("topic modeling complete")
	return result, nil
}

func (m *Model) unclustered(papers []*core.Paper) *Result {
	result := &Result{
		Topics: []core.Topic{{
			TopicID: core.NoiseTopicID,
			Label:   "unclustered",
			Size:    len(papers),
		}},
	}
	for _, p := range papers {
		result.Assignments = append(result.Assignments, core.TopicAssignment{
			PaperID: p.LiteratureID,
			TopicID: core.NoiseTopicID,
		})
	}
	return result
}
