package ner

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

//go:embed data/space_biology_patterns.json
var spaceBiologyPatterns []byte

// patternConfidence is the default confidence for curated pattern hits.
const patternConfidence = 0.8

// patternGroup is one typed group of the bundled space-biology patterns.
type patternGroup struct {
	Type     string   `json:"type"`
	Terms    []string `json:"terms"`
	Patterns []string `json:"patterns,omitempty"`
}

// PatternExtractor matches the curated space-biology lexicon: stressors,
// phenotypes, and interventions that the general biomedical models miss.
type PatternExtractor struct {
	regexps map[core.EntityType][]*regexp.Regexp
}

// NewPatternExtractor compiles the bundled patterns. Literal terms are
// compiled case-insensitively on word boundaries, longer terms first. Extract
// emits every match, so "simulated microgravity" and "microgravity" both
// appear; reconciliation keeps the longer span.
func NewPatternExtractor() (*PatternExtractor, error) {
	var groups []patternGroup
	if err := json.Unmarshal(spaceBiologyPatterns, &groups); err != nil {
		return nil, fmt.Errorf("parsing space-biology patterns: %w", err)
	}
	p := &PatternExtractor{regexps: make(map[core.EntityType][]*regexp.Regexp)}
	for _, g := range groups {
		t := core.EntityType(g.Type)
		if !t.Valid() {
			return nil, fmt.Errorf("pattern group has unknown type %q", g.Type)
		}
		terms := append([]string(nil), g.Terms...)
		sort.Slice(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
		for _, term := range terms {
			re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
			if err != nil {
				return nil, err
			}
			p.regexps[t] = append(p.regexps[t], re)
		}
		for _, raw := range g.Patterns {
			re, err := regexp.Compile(`(?i)` + raw)
			if err != nil {
				return nil, fmt.Errorf("compiling pattern %q: %w", raw, err)
			}
			p.regexps[t] = append(p.regexps[t], re)
		}
	}
	return p, nil
}

// Name implements Extractor.
func (p *PatternExtractor) Name() string { return ExtractorPatterns }

// SupportedTypes implements Extractor.
func (p *PatternExtractor) SupportedTypes() []core.EntityType {
	return []core.EntityType{core.EntityStressor, core.EntityPhenotype, core.EntityIntervention}
}

// Extract implements Extractor.
func (p *PatternExtractor) Extract(sentence core.Sentence) ([]Span, error) {
	var spans []Span
	for t, regexps := range p.regexps {
		for _, re := range regexps {
			for _, loc := range re.FindAllStringIndex(sentence.Text, -1) {
				spans = append(spans, Span{
					Start:      loc[0],
					End:        loc[1],
					Surface:    sentence.Text[loc[0]:loc[1]],
					Type:       t,
					Confidence: patternConfidence,
					Extractor:  p.Name(),
				})
			}
		}
	}
	return spans, nil
}
