package topics

import (
	"math"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// Embedder produces one dense vector per input text. The topic model holds at
// most one embedder in memory and releases it when the stage ends.
type Embedder interface {
	Embed(texts []string) ([][]float64, error)
	Close()
}

// HugotEmbedder wraps a hugot feature-extraction pipeline over a biomedical
// sentence-embedding ONNX checkpoint.
type HugotEmbedder struct {
	session  *hugot.Session
	pipeline *pipelines.FeatureExtractionPipeline
}

// NewHugotEmbedder loads the embedding model from modelPath.
func NewHugotEmbedder(modelPath string) (*HugotEmbedder, error) {
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, core.NewModelUnavailableError("topics", modelPath, err)
	}
	cfg := hugot.FeatureExtractionConfig{
		ModelPath: modelPath,
		Name:      "paper-embedder",
	}
	pipe, err := hugot.NewPipeline(session, cfg)
	if err != nil {
		session.Destroy()
		return nil, core.NewModelUnavailableError("topics", modelPath, err)
	}
	return &HugotEmbedder{session: session, pipeline: pipe}, nil
}

// Embed batch-encodes the texts and L2-normalizes each vector.
func (h *HugotEmbedder) Embed(texts []string) ([][]float64, error) {
	out, err := h.pipeline.RunPipeline(texts)
	if err != nil {
		return nil, err
	}
	vectors := make([][]float64, len(out.Embeddings))
	for i, emb := range out.Embeddings {
		v := make([]float64, len(emb))
		for j, x := range emb {
			v[j] = float64(x)
		}
		vectors[i] = l2normalize(v)
	}
	return vectors, nil
}

// Close releases the model session.
func (h *HugotEmbedder) Close() {
	if h.session != nil {
		h.session.Destroy()
	}
}

func l2normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return v
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
	return v
}
