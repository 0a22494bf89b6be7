// Package ner extracts typed entity mentions from sentences with an ensemble
// of transformer, dictionary, and pattern extractors, reconciled per sentence.
package ner

import (
	"github.com/NimaFathima/astrobiomers/internal/core"
)

// Extractor names double as mention extractor tags.
const (
	ExtractorTransformer = "transformer_scientific"
	ExtractorDictionary  = "dictionary_biomedical"
	ExtractorPatterns    = "patterns_space_biology"
)

// extractorPriority breaks reconciliation ties: lower wins.
var extractorPriority = map[string]int{
	ExtractorTransformer: 0,
	ExtractorDictionary:  1,
	ExtractorPatterns:    2,
}

// Span is one candidate entity span within a sentence, before reconciliation.
type Span struct {
	Start      int
	End        int
	Surface    string
	Type       core.EntityType
	Confidence float64
	Extractor  string
}

// Extractor is the capability a member of the NER ensemble implements.
// Extract returns candidate spans for one sentence; the reconciler consumes
// candidates from all extractors uniformly.
type Extractor interface {
	Name() string
	SupportedTypes() []core.EntityType
	Extract(sentence core.Sentence) ([]Span, error)
}
