package ner

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

//go:embed data/biomedical_lexicon.json
var biomedicalLexicon []byte

// maxDictionaryGram bounds phrase length during matching.
const maxDictionaryGram = 5

// lexiconEntry is one term of the bundled biomedical lexica.
type lexiconEntry struct {
	Term     string   `json:"term"`
	Type     string   `json:"type"`
	Synonyms []string `json:"synonyms,omitempty"`
}

// DictionaryExtractor links sentence phrases against the bundled biomedical
// lexica. Exact normalized matches score 1.0; partial matches (plural or
// hyphenation variants) score 0.7.
type DictionaryExtractor struct {
	// exact maps normalized term -> entity type.
	exact map[string]core.EntityType
}

// NewDictionaryExtractor loads the bundled lexica.
func NewDictionaryExtractor() (*DictionaryExtractor, error) {
	var entries []lexiconEntry
	if err := json.Unmarshal(biomedicalLexicon, &entries); err != nil {
		return nil, fmt.Errorf("parsing biomedical lexicon: %w", err)
	}
	d := &DictionaryExtractor{exact: make(map[string]core.EntityType, len(entries))}
	for _, e := range entries {
		t := core.EntityType(e.Type)
		if !t.Valid() {
			return nil, fmt.Errorf("lexicon term %q has unknown type %q", e.Term, e.Type)
		}
		d.exact[core.NormalizeKey(e.Term)] = t
		for _, syn := range e.Synonyms {
			d.exact[core.NormalizeKey(syn)] = t
		}
	}
	return d, nil
}

// Name implements Extractor.
func (d *DictionaryExtractor) Name() string { return ExtractorDictionary }

// SupportedTypes implements Extractor.
func (d *DictionaryExtractor) SupportedTypes() []core.EntityType {
	return []core.EntityType{core.EntityDisease, core.EntityChemical, core.EntityOrganism, core.EntityCellType}
}

// Extract scans token n-grams longest-first so multiword terms win over their
// prefixes.
func (d *DictionaryExtractor) Extract(sentence core.Sentence) ([]Span, error) {
	tokens := sentence.Tokens
	var spans []Span
	for i := 0; i < len(tokens); i++ {
		for n := min(maxDictionaryGram, len(tokens)-i); n >= 1; n-- {
			start := tokens[i].Start
			end := tokens[i+n-1].End
			surface := sentence.Text[start:end]
			key := core.NormalizeKey(surface)
			if t, ok := d.exact[key]; ok {
				spans = append(spans, Span{
					Start: start, End: end, Surface: surface,
					Type: t, Confidence: 1.0, Extractor: d.Name(),
				})
				i += n - 1
				break
			}
			if t, ok := d.partialMatch(key); ok {
				spans = append(spans, Span{
					Start: start, End: end, Surface: surface,
					Type: t, Confidence: 0.7, Extractor: d.Name(),
				})
				i += n - 1
				break
			}
		}
	}
	return spans, nil
}

// partialMatch tries plural and hyphenation variants of the normalized key.
func (d *DictionaryExtractor) partialMatch(key string) (core.EntityType, bool) {
	if strings.HasSuffix(key, "s") {
		if t, ok := d.exact[strings.TrimSuffix(key, "s")]; ok {
			return t, true
		}
	}
	if strings.Contains(key, "-") {
		if t, ok := d.exact[strings.ReplaceAll(key, "-", " ")]; ok {
			return t, true
		}
	}
	return "", false
}
