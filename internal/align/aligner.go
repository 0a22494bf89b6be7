// Package align attaches ontology term references to canonical entities by
// closest-sense match over the bundled ontology lexica.
package align

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/core"
	"github.com/NimaFathima/astrobiomers/internal/logger"
)

//go:embed data/ontology_terms.json
var ontologyTerms []byte

// maxCandidates caps recorded references per entity, best first.
const maxCandidates = 3

// Match tiers, best first.
const (
	tierLabel   = 1
	tierSynonym = 2
	tierJaccard = 3
)

// ontologyFor routes entity types to the ontologies that can describe them.
var ontologyFor = map[core.EntityType][]string{
	core.EntityGene:      {"GO"},
	core.EntityProtein:   {"GO"},
	core.EntityPhenotype: {"HPO"},
	core.EntityDisease:   {"MONDO"},
	core.EntityStressor:  {"ENVO"},
	core.EntityCellType:  {"CL", "UBERON"},
}

// term is one bundled ontology term.
type term struct {
	Ontology string   `json:"ontology"`
	TermID   string   `json:"term_id"`
	Label    string   `json:"label"`
	Synonyms []string `json:"synonyms,omitempty"`
}

// index holds one ontology's terms with normalized lookup maps.
type index struct {
	terms    []term
	byLabel  map[string]int
	bySynonym map[string]int
}

// Aligner matches entities against the enabled ontologies in three tiers:
// exact preferred label, exact synonym, then token-Jaccard over content
// tokens.
type Aligner struct {
	cfg     config.Aligner
	indexes map[string]*index
}

// New loads the bundled ontology lexica for the enabled ontologies.
func New(cfg config.Aligner) (*Aligner, error) {
	var terms []term
	if err := json.Unmarshal(ontologyTerms, &terms); err != nil {
		return nil, fmt.Errorf("parsing ontology terms: %w", err)
	}
	enabled := make(map[string]bool, len(cfg.OntologiesEnabled))
	for _, o := range cfg.OntologiesEnabled {
		enabled[o] = true
	}
	a := &Aligner{cfg: cfg, indexes: make(map[string]*index)}
	for _, t := range terms {
		if !enabled[t.Ontology] {
			continue
		}
		idx := a.indexes[t.Ontology]
		if idx == nil {
			idx = &index{byLabel: map[string]int{}, bySynonym: map[string]int{}}
			a.indexes[t.Ontology] = idx
		}
		pos := len(idx.terms)
		idx.terms = append(idx.terms, t)
		idx.byLabel[core.NormalizeKey(t.Label)] = pos
		for _, syn := range t.Synonyms {
			idx.bySynonym[core.NormalizeKey(syn)] = pos
		}
	}
	return a, nil
}

// Run aligns every entity in place and returns the input slice. A no-match is
// not an error.
func (a *Aligner) Run(entities []*core.Entity) []*core.Entity {
	log := logger.With("alignment")
	aligned := 0
	for _, entity := range entities {
		refs := a.alignOne(entity)
		if len(refs) > 0 {
			entity.OntologyRefs = refs
			aligned++
		}
	}
	log.Info().Int("entities", len(entities)).Int("aligned", aligned).Msg("alignment complete")
	return entities
}

func (a *Aligner) alignOne(entity *core.Entity) []core.OntologyRef {
	var refs []core.OntologyRef
	for _, ontology := range ontologyFor[entity.Type] {
		idx := a.indexes[ontology]
		if idx == nil {
			continue
		}
		refs = append(refs, a.matchIndex(idx, entity.NormalizedKey)...)
	}
	// Highest tier first, then score, then term id for determinism.
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Tier != refs[j].Tier {
			return refs[i].Tier < refs[j].Tier
		}
		if refs[i].Score != refs[j].Score {
			return refs[i].Score > refs[j].Score
		}
		return refs[i].TermID < refs[j].TermID
	})
	if len(refs) > maxCandidates {
		refs = refs[:maxCandidates]
	}
	return refs
}

func (a *Aligner) matchIndex(idx *index, key string) []core.OntologyRef {
	if pos, ok := idx.byLabel[key]; ok {
		return []core.OntologyRef{refFor(idx.terms[pos], 1.0, tierLabel)}
	}
	if pos, ok := idx.bySynonym[key]; ok {
		return []core.OntologyRef{refFor(idx.terms[pos], 1.0, tierSynonym)}
	}
	queryTokens := contentTokens(key)
	if len(queryTokens) == 0 {
		return nil
	}
	var refs []core.OntologyRef
	for _, t := range idx.terms {
		score := jaccard(queryTokens, contentTokens(core.NormalizeKey(t.Label)))
		if score >= a.cfg.MatchThreshold {
			refs = append(refs, refFor(t, score, tierJaccard))
		}
	}
	return refs
}

func refFor(t term, score float64, tier int) core.OntologyRef {
	return core.OntologyRef{
		Ontology: t.Ontology,
		TermID:   t.TermID,
		Label:    t.Label,
		Score:    score,
		Tier:     tier,
	}
}

var alignTokenRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

// alignStopwords excluded from token-Jaccard content tokens.
var alignStopwords = map[string]bool{
	"of": true, "the": true, "a": true, "an": true, "in": true, "to": true,
	"and": true, "or": true, "by": true, "with": true,
}

func contentTokens(s string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range alignTokenRe.FindAllString(strings.ToLower(s), -1) {
		if !alignStopwords[tok] {
			out[tok] = true
		}
	}
	return out
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
