package ner

import (
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// transformerLabels maps token-classification model labels onto entity types.
// Only labels in this table are kept.
var transformerLabels = map[string]core.EntityType{
	"GENE":      core.EntityGene,
	"PROTEIN":   core.EntityProtein,
	"DISEASE":   core.EntityDisease,
	"CHEMICAL":  core.EntityChemical,
	"GENEPROD":  core.EntityProtein,
	"CELL_LINE": core.EntityCellType,
}

// TransformerExtractor runs a biomedical token-classification checkpoint
// through a hugot ONNX pipeline.
type TransformerExtractor struct {
	session  *hugot.Session
	pipeline *pipelines.TokenClassificationPipeline
}

// NewTransformerExtractor loads the model from modelPath. A load failure is
// returned as ModelUnavailable so the ensemble can drop this extractor and
// continue.
func NewTransformerExtractor(modelPath string) (*TransformerExtractor, error) {
	session, err := hugot.NewGoSession()
	if err != nil {
		return nil, core.NewModelUnavailableError("ner", modelPath, err)
	}
	cfg := hugot.TokenClassificationConfig{
		ModelPath: modelPath,
		Name:      "biomedical-ner",
	}
	pipe, err := hugot.NewPipeline(session, cfg)
	if err != nil {
		session.Destroy()
		return nil, core.NewModelUnavailableError("ner", modelPath, err)
	}
	return &TransformerExtractor{session: session, pipeline: pipe}, nil
}

// Name implements Extractor.
func (t *TransformerExtractor) Name() string { return ExtractorTransformer }

// SupportedTypes implements Extractor.
func (t *TransformerExtractor) SupportedTypes() []core.EntityType {
	return []core.EntityType{core.EntityGene, core.EntityProtein, core.EntityDisease, core.EntityChemical}
}

// Extract implements Extractor.
func (t *TransformerExtractor) Extract(sentence core.Sentence) ([]Span, error) {
	out, err := t.pipeline.RunPipeline([]string{sentence.Text})
	if err != nil {
		return nil, err
	}
	var spans []Span
	for _, ents := range out.Entities {
		for _, ent := range ents {
			label := strings.TrimPrefix(strings.TrimPrefix(ent.Entity, "B-"), "I-")
			entityType, ok := transformerLabels[strings.ToUpper(label)]
			if !ok {
				continue
			}
			start, end := int(ent.Start), int(ent.End)
			if start < 0 || end > len(sentence.Text) || end <= start {
				continue
			}
			spans = append(spans, Span{
				Start:      start,
				End:        end,
				Surface:    sentence.Text[start:end],
				Type:       entityType,
				Confidence: float64(ent.Score),
				Extractor:  t.Name(),
			})
		}
	}
	return spans, nil
}

// Close releases the model session. The orchestrator calls this before the
// next model-heavy stage begins.
func (t *TransformerExtractor) Close() {
	if t.session != nil {
		t.session.Destroy()
	}
}
