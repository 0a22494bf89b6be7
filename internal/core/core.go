package core

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// EntityType is the closed set of biological entity types the pipeline extracts.
type EntityType string

const (
	EntityGene         EntityType = "GENE"
	EntityProtein      EntityType = "PROTEIN"
	EntityDisease      EntityType = "DISEASE"
	EntityChemical     EntityType = "CHEMICAL"
	EntityStressor     EntityType = "STRESSOR"
	EntityPhenotype    EntityType = "PHENOTYPE"
	EntityOrganism     EntityType = "ORGANISM"
	EntityCellType     EntityType = "CELL_TYPE"
	EntityIntervention EntityType = "INTERVENTION"
)

// EntityTypes lists every valid entity type in a stable order.
var EntityTypes = []EntityType{
	EntityGene, EntityProtein, EntityDisease, EntityChemical, EntityStressor,
	EntityPhenotype, EntityOrganism, EntityCellType, EntityIntervention,
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Predicate is the closed set of relationship types between entities.
type Predicate string

const (
	PredicateUpregulates    Predicate = "UPREGULATES"
	PredicateDownregulates  Predicate = "DOWNREGULATES"
	PredicateCauses         Predicate = "CAUSES"
	PredicateTreats         Predicate = "TREATS"
	PredicatePrevents       Predicate = "PREVENTS"
	PredicateInteractsWith  Predicate = "INTERACTS_WITH"
	PredicatePartOf         Predicate = "PART_OF"
	PredicateAssociatedWith Predicate = "ASSOCIATED_WITH"
)

// Predicates lists every valid predicate in a stable order.
var Predicates = []Predicate{
	PredicateUpregulates, PredicateDownregulates, PredicateCauses,
	PredicateTreats, PredicatePrevents, PredicateInteractsWith,
	PredicatePartOf, PredicateAssociatedWith,
}

// Paper represents one acquired publication record.
type Paper struct {
	LiteratureID    string            `json:"literature_id"`
	SecondaryIDs    map[string]string `json:"secondary_ids,omitempty"`
	Title           string            `json:"title"`
	Abstract        string            `json:"abstract"`
	FullText        string            `json:"full_text,omitempty"`
	Authors         []string          `json:"authors,omitempty"`
	PublicationYear int               `json:"publication_year,omitempty"`
	Journal         string            `json:"journal,omitempty"`
	SourceTags      []string          `json:"source_tags"`
	Keywords        []string          `json:"keywords,omitempty"`

	// Preprocessing output. Papers are never mutated after preprocessing;
	// the cleaned form lives in these sibling fields.
	CleanText string     `json:"clean_text,omitempty"`
	Sentences []Sentence `json:"sentences,omitempty"`
}

// HasSourceTag reports whether the paper carries the given acquisition tag.
func (p *Paper) HasSourceTag(tag string) bool {
	for _, t := range p.SourceTags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddSourceTag unions a tag into the paper's source tag set, preserving order.
func (p *Paper) AddSourceTag(tag string) {
	if !p.HasSourceTag(tag) {
		p.SourceTags = append(p.SourceTags, tag)
	}
}

// Sentence is one segmented sentence of a paper. Sentences are ephemeral and
// rebuilt on every preprocessing run.
type Sentence struct {
	Index  int     `json:"index"`
	Text   string  `json:"text"`
	Tokens []Token `json:"tokens,omitempty"`
}

// Token is one token of a sentence with its POS tag and lemma. Lemma is empty
// when the run is in degraded NLP mode.
type Token struct {
	Text  string `json:"text"`
	Tag   string `json:"tag,omitempty"`
	Lemma string `json:"lemma,omitempty"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Mention is a typed entity span inside one sentence of one paper.
type Mention struct {
	PaperID       string     `json:"paper_id"`
	SentenceIndex int        `json:"sentence_index"`
	Start         int        `json:"start"`
	End           int        `json:"end"`
	Surface       string     `json:"surface"`
	NormalizedKey string     `json:"normalized_key"`
	Type          EntityType `json:"type"`
	Confidence    float64    `json:"confidence"`
	Extractor     string     `json:"extractor"`
}

// ExternalID is one identifier assigned by an external registry service.
type ExternalID struct {
	Registry     string   `json:"registry"`
	PrimaryID    string   `json:"primary_id"`
	SecondaryIDs []string `json:"secondary_ids,omitempty"`
}

// OntologyRef is one ontology term attached to an entity by the aligner.
type OntologyRef struct {
	Ontology string  `json:"ontology"`
	TermID   string  `json:"term_id"`
	Label    string  `json:"label"`
	Score    float64 `json:"score"`
	// Tier records which match rule produced the reference:
	// 1 preferred label, 2 synonym, 3 token overlap.
	Tier int `json:"tier"`
}

// Entity is the canonical, de-duplicated record for a cluster of mentions.
// Its stable key within a run and in the graph is (Type, NormalizedKey).
type Entity struct {
	Type          EntityType    `json:"type"`
	CanonicalName string        `json:"canonical_name"`
	NormalizedKey string        `json:"normalized_key"`
	Aliases       []string      `json:"aliases,omitempty"`
	ExternalIDs   []ExternalID  `json:"external_ids,omitempty"`
	OntologyRefs  []OntologyRef `json:"ontology_refs,omitempty"`
	Resolved      bool          `json:"resolved"`
	MentionCount  int           `json:"mention_count"`
	PaperCount    int           `json:"paper_count"`

	// MentionsByPaper holds the per-paper mention tally used for the
	// MENTIONS edge property.
	MentionsByPaper map[string]int `json:"mentions_by_paper,omitempty"`
}

// Key returns the entity's stable (type, normalized name) identity.
func (e *Entity) Key() EntityKey {
	return EntityKey{Type: e.Type, NormalizedKey: e.NormalizedKey}
}

// AddAlias unions a surface form into the entity's alias set.
func (e *Entity) AddAlias(alias string) {
	for _, a := range e.Aliases {
		if a == alias {
			return
		}
	}
	e.Aliases = append(e.Aliases, alias)
}

// EntityKey identifies a canonical entity. Relationships reference entities by
// key, never by pointer, so the in-memory model stays acyclic and artifacts
// serialize directly.
type EntityKey struct {
	Type          EntityType `json:"type"`
	NormalizedKey string     `json:"normalized_key"`
}

// String renders the key in its "TYPE|normalized name" artifact form.
func (k EntityKey) String() string {
	return string(k.Type) + "|" + k.NormalizedKey
}

// Evidence is one (paper, sentence) witness for a relationship.
type Evidence struct {
	PaperID       string  `json:"paper_id"`
	SentenceIndex int     `json:"sentence_index"`
	Confidence    float64 `json:"confidence"`
	Extractor     string  `json:"extractor"`
}

// Relationship is a typed edge between two canonical entities with its
// supporting evidence. Relationships are deduplicated on
// (subject key, predicate, object key) with evidence lists unioned.
type Relationship struct {
	Subject    EntityKey  `json:"subject"`
	Predicate  Predicate  `json:"predicate"`
	Object     EntityKey  `json:"object"`
	Confidence float64    `json:"confidence"`
	Evidence   []Evidence `json:"evidence"`
}

// AddEvidence unions one witness into the relationship, deduplicating on
// (paper, sentence, extractor) and keeping the maximum confidence as the
// headline confidence.
func (r *Relationship) AddEvidence(ev Evidence) {
	for _, existing := range r.Evidence {
		if existing.PaperID == ev.PaperID &&
			existing.SentenceIndex == ev.SentenceIndex &&
			existing.Extractor == ev.Extractor {
			return
		}
	}
	r.Evidence = append(r.Evidence, ev)
	if ev.Confidence > r.Confidence {
		r.Confidence = ev.Confidence
	}
}

// KeywordWeight is one weighted label keyword of a topic.
type KeywordWeight struct {
	Keyword string  `json:"keyword"`
	Weight  float64 `json:"weight"`
}

// NoiseTopicID marks papers HDBSCAN left unclustered.
const NoiseTopicID = -1

// Topic is one latent topic discovered by the topic model. TopicID -1 is the
// noise/outlier pseudo-topic.
type Topic struct {
	TopicID   int             `json:"topic_id"`
	Label     string          `json:"label"`
	Keywords  []KeywordWeight `json:"keywords"`
	Coherence float64         `json:"coherence"`
	Size      int             `json:"size"`
}

// TopicAssignment maps one paper to its topic for the run.
type TopicAssignment struct {
	PaperID    string  `json:"paper_id"`
	TopicID    int     `json:"topic_id"`
	Confidence float64 `json:"confidence"`
}

// NormalizeKey canonicalizes a surface form into the casing- and
// whitespace-canonical key used for entity identity: lowercased, whitespace
// collapsed, combining marks stripped (ASCII fold), with Greek letters and
// hyphens retained.
func NormalizeKey(surface string) string {
	folded := norm.NFD.String(strings.ToLower(strings.TrimSpace(surface)))
	var b strings.Builder
	b.Grow(len(folded))
	lastSpace := false
	for _, r := range folded {
		switch {
		case unicode.Is(unicode.Mn, r):
			// Combining marks dropped: "naïve" folds to "naive" while
			// "α-actinin" keeps its alpha.
			continue
		case unicode.IsSpace(r):
			if !lastSpace && b.Len() > 0 {
				b.WriteRune(' ')
				lastSpace = true
			}
			continue
		default:
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// SortEntities orders entities by (type, normalized key) for stable artifacts.
func SortEntities(entities []*Entity) {
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Type != entities[j].Type {
			return entities[i].Type < entities[j].Type
		}
		return entities[i].NormalizedKey < entities[j].NormalizedKey
	})
}

// SortRelationships orders relationships by (subject, predicate, object) for
// stable artifacts.
func SortRelationships(rels []*Relationship) {
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Subject.String() != rels[j].Subject.String() {
			return rels[i].Subject.String() < rels[j].Subject.String()
		}
		if rels[i].Predicate != rels[j].Predicate {
			return rels[i].Predicate < rels[j].Predicate
		}
		return rels[i].Object.String() < rels[j].Object.String()
	})
}
