package relex

import (
	"regexp"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// surfacePatternConfidence is the fixed confidence of curated pattern hits.
const surfacePatternConfidence = 0.8

// surfacePattern is one curated "<subject type> <connector> <object type>"
// template. The connector regex is matched against the text strictly between
// the two mentions.
type surfacePattern struct {
	subjectTypes []core.EntityType
	connector    *regexp.Regexp
	predicate    core.Predicate
	objectTypes  []core.EntityType
}

var surfacePatterns = []surfacePattern{
	{
		subjectTypes: []core.EntityType{core.EntityStressor},
		connector:    regexp.MustCompile(`(?i)^\s*(causes|induces|leads\s+to|results\s+in)\s*$`),
		predicate:    core.PredicateCauses,
		objectTypes:  []core.EntityType{core.EntityPhenotype, core.EntityDisease},
	},
	{
		subjectTypes: []core.EntityType{core.EntityStressor},
		connector:    regexp.MustCompile(`(?i)^\s*(increases|elevates|upregulates)\s*$`),
		predicate:    core.PredicateUpregulates,
		objectTypes:  []core.EntityType{core.EntityGene, core.EntityProtein},
	},
	{
		subjectTypes: []core.EntityType{core.EntityIntervention},
		connector:    regexp.MustCompile(`(?i)^\s*(prevents|protects\s+against|counteracts)\s*$`),
		predicate:    core.PredicatePrevents,
		objectTypes:  []core.EntityType{core.EntityPhenotype, core.EntityDisease},
	},
	{
		subjectTypes: []core.EntityType{core.EntityIntervention},
		connector:    regexp.MustCompile(`(?i)^\s*(treats|ameliorates|alleviates|rescues)\s*$`),
		predicate:    core.PredicateTreats,
		objectTypes:  []core.EntityType{core.EntityPhenotype, core.EntityDisease},
	},
	{
		subjectTypes: []core.EntityType{core.EntityGene, core.EntityProtein},
		connector:    regexp.MustCompile(`(?i)^\s*(interacts\s+with|binds(\s+to)?)\s*$`),
		predicate:    core.PredicateInteractsWith,
		objectTypes:  []core.EntityType{core.EntityGene, core.EntityProtein},
	},
	{
		subjectTypes: core.EntityTypes,
		connector:    regexp.MustCompile(`(?i)^\s*(is\s+part\s+of|in|within)\s*$`),
		predicate:    core.PredicatePartOf,
		objectTypes:  []core.EntityType{core.EntityCellType, core.EntityOrganism},
	},
}

// SurfacePatternExtractor applies the curated templates to adjacent mention
// pairs.
type SurfacePatternExtractor struct{}

// NewSurfacePatternExtractor returns the curated surface pattern extractor.
func NewSurfacePatternExtractor() *SurfacePatternExtractor { return &SurfacePatternExtractor{} }

// Name implements Extractor.
func (s *SurfacePatternExtractor) Name() string { return ExtractorSurface }

// SupportedPredicates implements Extractor.
func (s *SurfacePatternExtractor) SupportedPredicates() []core.Predicate {
	seen := map[core.Predicate]bool{}
	var out []core.Predicate
	for _, p := range surfacePatterns {
		if !seen[p.predicate] {
			seen[p.predicate] = true
			out = append(out, p.predicate)
		}
	}
	return out
}

// Extract implements Extractor.
func (s *SurfacePatternExtractor) Extract(ctx SentenceContext) []Candidate {
	mentions := sortedMentions(ctx.Mentions)
	var out []Candidate
	for i := 0; i+1 < len(mentions); i++ {
		left, right := mentions[i], mentions[i+1]
		if right.Start <= left.End {
			continue
		}
		connectorText := ctx.Sentence.Text[left.End:right.Start]
		for _, p := range surfacePatterns {
			if !typeIn(left.Type, p.subjectTypes) || !typeIn(right.Type, p.objectTypes) {
				continue
			}
			if !p.connector.MatchString(connectorText) {
				continue
			}
			out = append(out, Candidate{
				Subject:       core.EntityKey{Type: left.Type, NormalizedKey: left.NormalizedKey},
				Predicate:     p.predicate,
				Object:        core.EntityKey{Type: right.Type, NormalizedKey: right.NormalizedKey},
				Confidence:    surfacePatternConfidence,
				Extractor:     s.Name(),
				PaperID:       ctx.PaperID,
				SentenceIndex: ctx.Sentence.Index,
			})
			break
		}
	}
	return out
}

func typeIn(t core.EntityType, set []core.EntityType) bool {
	for _, candidate := range set {
		if t == candidate {
			return true
		}
	}
	return false
}
