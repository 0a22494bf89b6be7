package relex

import (
	"sort"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// cooccurrenceCap bounds the fallback confidence.
const cooccurrenceCap = 0.5

// CooccurrenceExtractor emits ASSOCIATED_WITH for entity pairs that co-occur
// within a sentence window and have no stronger extractor claim. Confidence
// is min(0.5, 0.1 × co-occurrence count).
type CooccurrenceExtractor struct {
	window int
}

// NewCooccurrenceExtractor returns the fallback extractor with the given
// sentence window.
func NewCooccurrenceExtractor(window int) *CooccurrenceExtractor {
	if window < 0 {
		window = 0
	}
	return &CooccurrenceExtractor{window: window}
}

// Name identifies the extractor tag used in evidence records.
func (c *CooccurrenceExtractor) Name() string { return ExtractorCooccurrence }

// cooccurrence tallies one unordered pair's sightings.
type cooccurrence struct {
	a, b      core.EntityKey
	count     int
	firstSeen []core.Evidence
}

// Extract runs corpus-wide: unlike the sentence-scoped extractors it needs
// the whole paper to window across sentences and the claim set to skip pairs
// a stronger extractor already asserted.
func (c *CooccurrenceExtractor) Extract(papers []*core.Paper, mentions []core.Mention, claimed *claimSet) []Candidate {
	// Mentions per paper per sentence.
	byPaper := make(map[string]map[int][]core.Mention)
	for _, m := range mentions {
		if byPaper[m.PaperID] == nil {
			byPaper[m.PaperID] = make(map[int][]core.Mention)
		}
		byPaper[m.PaperID][m.SentenceIndex] = append(byPaper[m.PaperID][m.SentenceIndex], m)
	}

	tally := make(map[string]*cooccurrence)
	var order []string

	for _, paper := range papers {
		sentences := byPaper[paper.LiteratureID]
		if sentences == nil {
			continue
		}
		var indices []int
		for idx := range sentences {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			for _, m1 := range sentences[idx] {
				for span := 0; span <= c.window; span++ {
					others, ok := sentences[idx+span]
					if !ok {
						continue
					}
					for _, m2 := range others {
						if span == 0 && m2.Start <= m1.Start {
							continue
						}
						k1 := core.EntityKey{Type: m1.Type, NormalizedKey: m1.NormalizedKey}
						k2 := core.EntityKey{Type: m2.Type, NormalizedKey: m2.NormalizedKey}
						if k1 == k2 || claimed.claimed(k1, k2) {
							continue
						}
						key := pairKey(k1, k2)
						entry, seen := tally[key]
						if !seen {
							a, b := k1, k2
							if b.String() < a.String() {
								a, b = b, a
							}
							entry = &cooccurrence{a: a, b: b}
							tally[key] = entry
							order = append(order, key)
						}
						entry.count++
						entry.firstSeen = append(entry.firstSeen, core.Evidence{
							PaperID:       paper.LiteratureID,
							SentenceIndex: idx,
						})
					}
				}
			}
		}
	}

	var out []Candidate
	for _, key := range order {
		entry := tally[key]
		confidence := 0.1 * float64(entry.count)
		if confidence > cooccurrenceCap {
			confidence = cooccurrenceCap
		}
		for _, ev := range entry.firstSeen {
			out = append(out, Candidate{
				Subject:       entry.a,
				Predicate:     core.PredicateAssociatedWith,
				Object:        entry.b,
				Confidence:    confidence,
				Extractor:     c.Name(),
				PaperID:       ev.PaperID,
				SentenceIndex: ev.SentenceIndex,
			})
		}
	}
	return out
}
