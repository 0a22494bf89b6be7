package relex

import (
	"strings"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// Confidence model for trigger-verb extraction.
const (
	dependencyBaseConfidence = 0.9
	passiveHopPenalty        = 0.1
	dependencyFloor          = 0.5
)

// DependencyExtractor finds trigger verbs on the path between two compatible
// mentions and reads relation direction from the verb's grammatical subject
// and object: in active voice the left mention is the relation subject; in
// passive voice ("X is induced by Y") the agent is.
type DependencyExtractor struct{}

// NewDependencyExtractor returns the trigger-verb extractor.
func NewDependencyExtractor() *DependencyExtractor { return &DependencyExtractor{} }

// Name implements Extractor.
func (d *DependencyExtractor) Name() string { return ExtractorDependency }

// SupportedPredicates implements Extractor.
func (d *DependencyExtractor) SupportedPredicates() []core.Predicate {
	return []core.Predicate{
		core.PredicateUpregulates, core.PredicateDownregulates, core.PredicateCauses,
		core.PredicateTreats, core.PredicatePrevents, core.PredicateInteractsWith,
		core.PredicatePartOf,
	}
}

// Extract implements Extractor.
func (d *DependencyExtractor) Extract(ctx SentenceContext) []Candidate {
	mentions := sortedMentions(ctx.Mentions)
	tokens := ctx.Sentence.Tokens
	var out []Candidate
	for i := 0; i < len(mentions); i++ {
		for j := i + 1; j < len(mentions); j++ {
			left, right := mentions[i], mentions[j]
			if left.NormalizedKey == right.NormalizedKey && left.Type == right.Type {
				continue
			}
			cand, ok := d.extractPair(ctx, tokens, left, right)
			if ok {
				out = append(out, cand)
			}
		}
	}
	return out
}

func (d *DependencyExtractor) extractPair(ctx SentenceContext, tokens []core.Token, left, right core.Mention) (Candidate, bool) {
	between := tokensBetween(tokens, left.End, right.Start)
	for idx, tok := range between {
		if !isVerbish(tok) {
			continue
		}
		pred, ok := triggerFor(tok)
		if !ok || pred == core.PredicateAssociatedWith {
			continue
		}
		passiveHops := passiveConstructionHops(between, idx)
		confidence := dependencyBaseConfidence - passiveHopPenalty*float64(passiveHops)
		if confidence < dependencyFloor {
			confidence = dependencyFloor
		}

		subject, object := left, right
		if passiveHops > 0 {
			// "X is induced by Y": the agent after the verb is the subject.
			subject, object = right, left
		}
		if !core.Compatible(subject.Type, pred, object.Type) {
			// Direction repair for clauses whose surface order opposes the
			// typed direction ("in mice, bone loss follows from unloading").
			if core.Compatible(object.Type, pred, subject.Type) && passiveHops == 0 {
				subject, object = object, subject
			} else {
				continue
			}
		}
		return Candidate{
			Subject:       core.EntityKey{Type: subject.Type, NormalizedKey: subject.NormalizedKey},
			Predicate:     pred,
			Object:        core.EntityKey{Type: object.Type, NormalizedKey: object.NormalizedKey},
			Confidence:    confidence,
			Extractor:     d.Name(),
			PaperID:       ctx.PaperID,
			SentenceIndex: ctx.Sentence.Index,
		}, true
	}
	return Candidate{}, false
}

// tokensBetween returns the tokens strictly between two character offsets.
func tokensBetween(tokens []core.Token, from, to int) []core.Token {
	var out []core.Token
	for _, t := range tokens {
		if t.Start >= from && t.End <= to {
			out = append(out, t)
		}
	}
	return out
}

// isVerbish accepts tokens tagged as verbs, or any token at all in degraded
// mode (no tags), leaving the trigger lexicon to discriminate.
func isVerbish(tok core.Token) bool {
	if tok.Tag == "" {
		return true
	}
	return strings.HasPrefix(tok.Tag, "VB")
}

// passiveConstructionHops reports one passive hop when an auxiliary be-verb
// sits within the two tokens before the trigger at idx, and zero otherwise.
func passiveConstructionHops(tokens []core.Token, idx int) int {
	hops := 0
	for back := idx - 1; back >= 0 && back >= idx-2; back-- {
		if beForms[strings.ToLower(tokens[back].Text)] {
			hops = 1
			break
		}
	}
	if hops == 0 {
		return 0
	}
	// An agentive "by" after the trigger is not examined and costs no
	// further confidence.
	return hops
}
