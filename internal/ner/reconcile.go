package ner

import (
	"sort"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// Reconcile resolves competing candidate spans within one sentence:
// longest-span-wins, then higher confidence, then extractor priority
// (transformer > dictionary > patterns). Surviving spans below minConfidence
// are dropped. The result is independent of the order candidates were
// collected in.
func Reconcile(paperID string, sentence core.Sentence, candidates []Span, minConfidence float64) []core.Mention {
	ordered := append([]Span(nil), candidates...)
	sort.Slice(ordered, func(i, j int) bool {
		li, lj := ordered[i].End-ordered[i].Start, ordered[j].End-ordered[j].Start
		if li != lj {
			return li > lj
		}
		if ordered[i].Confidence != ordered[j].Confidence {
			return ordered[i].Confidence > ordered[j].Confidence
		}
		pi, pj := extractorPriority[ordered[i].Extractor], extractorPriority[ordered[j].Extractor]
		if pi != pj {
			return pi < pj
		}
		if ordered[i].Start != ordered[j].Start {
			return ordered[i].Start < ordered[j].Start
		}
		return ordered[i].Type < ordered[j].Type
	})

	var accepted []Span
	for _, cand := range ordered {
		if cand.Start < 0 || cand.End <= cand.Start || cand.End > len(sentence.Text) {
			continue
		}
		overlaps := false
		for _, a := range accepted {
			if cand.Start < a.End && a.Start < cand.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			accepted = append(accepted, cand)
		}
	}

	var mentions []core.Mention
	for _, span := range accepted {
		if span.Confidence < minConfidence {
			continue
		}
		mentions = append(mentions, core.Mention{
			PaperID:       paperID,
			SentenceIndex: sentence.Index,
			Start:         span.Start,
			End:           span.End,
			Surface:       span.Surface,
			NormalizedKey: core.NormalizeKey(span.Surface),
			Type:          span.Type,
			Confidence:    span.Confidence,
			Extractor:     span.Extractor,
		})
	}
	sort.Slice(mentions, func(i, j int) bool { return mentions[i].Start < mentions[j].Start })
	return mentions
}
