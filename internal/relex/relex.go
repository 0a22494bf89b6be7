// Package relex produces typed (subject, predicate, object) relationships
// over NER mentions by combining trigger-verb analysis, curated surface
// patterns, and a co-occurrence fallback.
package relex

import (
	"sort"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/core"
	"github.com/NimaFathima/astrobiomers/internal/logger"
)

// Extractor names double as evidence extractor tags.
const (
	ExtractorDependency   = "dependency_patterns"
	ExtractorSurface      = "surface_patterns"
	ExtractorCooccurrence = "cooccurrence"
)

// SentenceContext is the unit of extraction: one sentence with the mentions
// inside it.
type SentenceContext struct {
	PaperID  string
	Sentence core.Sentence
	Mentions []core.Mention
}

// Candidate is one proposed relationship instance before deduplication.
type Candidate struct {
	Subject    core.EntityKey
	Predicate  core.Predicate
	Object     core.EntityKey
	Confidence float64
	Extractor  string
	PaperID    string
	SentenceIndex int
}

// Extractor is the capability a relation extraction strategy implements.
type Extractor interface {
	Name() string
	SupportedPredicates() []core.Predicate
	Extract(ctx SentenceContext) []Candidate
}

// Engine runs the enabled extractors and folds their candidates into
// deduplicated relationships with unioned evidence.
type Engine struct {
	cfg        config.RE
	extractors []Extractor
}

// NewEngine builds the engine from configuration toggles.
func NewEngine(cfg config.RE) *Engine {
	e := &Engine{cfg: cfg}
	if cfg.DependencyEnabled {
		e.extractors = append(e.extractors, NewDependencyExtractor())
	}
	if cfg.PatternsEnabled {
		e.extractors = append(e.extractors, NewSurfacePatternExtractor())
	}
	return e
}

// Run extracts relationships from all papers. Mentions must carry the paper
// and sentence they came from.
func (e *Engine) Run(papers []*core.Paper, mentions []core.Mention) []*core.Relationship {
	log := logger.With("re")

	// Group mentions by (paper, sentence).
	type sentKey struct {
		paperID string
		index   int
	}
	grouped := make(map[sentKey][]core.Mention)
	for _, m := range mentions {
		k := sentKey{m.PaperID, m.SentenceIndex}
		grouped[k] = append(grouped[k], m)
	}

	dedup := newRelationshipSet()
	claimed := newClaimSet()

	for _, paper := range papers {
		for _, sentence := range paper.Sentences {
			sctx := SentenceContext{
				PaperID:  paper.LiteratureID,
				Sentence: sentence,
				Mentions: grouped[sentKey{paper.LiteratureID, sentence.Index}],
			}
			if len(sctx.Mentions) < 2 {
				continue
			}
			for _, ex := range e.extractors {
				for _, cand := range ex.Extract(sctx) {
					e.accept(dedup, claimed, cand)
				}
			}
		}
	}

	if e.cfg.CooccurrenceEnabled {
		co := NewCooccurrenceExtractor(e.cfg.CooccurrenceWindowSentences)
		for _, cand := range co.Extract(papers, mentions, claimed) {
			e.accept(dedup, claimed, cand)
		}
	}

	rels := dedup.relationships()
	log.Info().Int("relationships", len(rels)).Msg("relation extraction complete")
	return rels
}

func (e *Engine) accept(dedup *relationshipSet, claimed *claimSet, cand Candidate) {
	if cand.Subject == cand.Object {
		return
	}
	if cand.Confidence < e.cfg.MinConfidence && cand.Predicate != core.PredicateAssociatedWith {
		return
	}
	if !core.Compatible(cand.Subject.Type, cand.Predicate, cand.Object.Type) {
		return
	}
	if cand.Predicate != core.PredicateAssociatedWith {
		claimed.claim(cand.Subject, cand.Object)
	}
	dedup.add(cand)
}

// relationshipSet deduplicates on (subject, predicate, object), unioning
// evidence and keeping the maximum confidence as headline.
type relationshipSet struct {
	byKey map[string]*core.Relationship
	order []string
}

func newRelationshipSet() *relationshipSet {
	return &relationshipSet{byKey: make(map[string]*core.Relationship)}
}

func (s *relationshipSet) add(cand Candidate) {
	key := cand.Subject.String() + "→" + string(cand.Predicate) + "→" + cand.Object.String()
	rel, ok := s.byKey[key]
	if !ok {
		rel = &core.Relationship{
			Subject:   cand.Subject,
			Predicate: cand.Predicate,
			Object:    cand.Object,
		}
		s.byKey[key] = rel
		s.order = append(s.order, key)
	}
	rel.AddEvidence(core.Evidence{
		PaperID:       cand.PaperID,
		SentenceIndex: cand.SentenceIndex,
		Confidence:    cand.Confidence,
		Extractor:     cand.Extractor,
	})
}

func (s *relationshipSet) relationships() []*core.Relationship {
	out := make([]*core.Relationship, 0, len(s.order))
	for _, key := range s.order {
		out = append(out, s.byKey[key])
	}
	core.SortRelationships(out)
	return out
}

// claimSet records unordered entity pairs that already have a stronger claim
// than co-occurrence.
type claimSet struct {
	pairs map[string]bool
}

func newClaimSet() *claimSet { return &claimSet{pairs: make(map[string]bool)} }

func pairKey(a, b core.EntityKey) string {
	ka, kb := a.String(), b.String()
	if kb < ka {
		ka, kb = kb, ka
	}
	return ka + "‖" + kb
}

func (c *claimSet) claim(a, b core.EntityKey)          { c.pairs[pairKey(a, b)] = true }
func (c *claimSet) claimed(a, b core.EntityKey) bool   { return c.pairs[pairKey(a, b)] }

// sortedMentions returns the sentence's mentions in span order.
func sortedMentions(mentions []core.Mention) []core.Mention {
	out := append([]core.Mention(nil), mentions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}
