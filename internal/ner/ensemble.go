package ner

import (
	"fmt"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/core"
	"github.com/NimaFathima/astrobiomers/internal/logger"
)

// Ensemble runs the enabled extractors over every sentence and reconciles
// their candidates. An extractor that fails disables itself for the remainder
// of the run; the stage fails only when no extractor is left.
type Ensemble struct {
	cfg        config.NER
	extractors []Extractor
	disabled   map[string]bool
	closers    []func()
}

// NewEnsemble constructs the configured extractors. A transformer model that
// cannot load drops that extractor with a warning rather than failing
// construction; dictionary or pattern lexicon corruption is a build error.
func NewEnsemble(cfg config.NER) (*Ensemble, error) {
	log := logger.With("ner")
	e := &Ensemble{cfg: cfg, disabled: make(map[string]bool)}
	for _, name := range cfg.ModelsEnabled {
		switch name {
		case ExtractorTransformer:
			tx, err := NewTransformerExtractor(cfg.ModelPath)
			if err != nil {
				log.Warn().Err(err).Msg("transformer model unavailable, extractor disabled")
				continue
			}
			e.extractors = append(e.extractors, tx)
			e.closers = append(e.closers, tx.Close)
		case ExtractorDictionary:
			dx, err := NewDictionaryExtractor()
			if err != nil {
				return nil, err
			}
			e.extractors = append(e.extractors, dx)
		case ExtractorPatterns:
			px, err := NewPatternExtractor()
			if err != nil {
				return nil, err
			}
			e.extractors = append(e.extractors, px)
		default:
			return nil, core.NewConfigError("ner.models_enabled", "unknown model "+name)
		}
	}
	if len(e.extractors) == 0 {
		return nil, core.NewModelUnavailableError("ner", "all extractors",
			fmt.Errorf("no NER extractor could be constructed"))
	}
	return e, nil
}

// NewEnsembleWith builds an ensemble from explicit extractors. Used by tests
// and by callers that inject their own models.
func NewEnsembleWith(cfg config.NER, extractors ...Extractor) *Ensemble {
	return &Ensemble{cfg: cfg, extractors: extractors, disabled: make(map[string]bool)}
}

// Run extracts mentions for every paper, in paper order.
func (e *Ensemble) Run(papers []*core.Paper) ([]core.Mention, error) {
	log := logger.With("ner")
	var mentions []core.Mention
	for _, paper := range papers {
		for _, sentence := range paper.Sentences {
			sentenceMentions, err := e.extractSentence(paper.LiteratureID, sentence)
			if err != nil {
				return nil, err
			}
			mentions = append(mentions, sentenceMentions...)
		}
	}
	log.Info().Int("mentions", len(mentions)).Int("papers", len(papers)).Msg("extraction complete")
	return mentions, nil
}

func (e *Ensemble) extractSentence(paperID string, sentence core.Sentence) ([]core.Mention, error) {
	var candidates []Span
	active := 0
	for _, ex := range e.extractors {
		if e.disabled[ex.Name()] {
			continue
		}
		active++
		spans, err := ex.Extract(sentence)
		if err != nil {
			// Failure policy: the extractor is out for the rest of the run.
			log := logger.With("ner")
			log.Warn().Str("extractor", ex.Name()).Err(err).
				Msg("extractor failed and was disabled")
			e.disabled[ex.Name()] = true
			active--
			continue
		}
		candidates = append(candidates, spans...)
	}
	if active == 0 {
		return nil, core.NewModelUnavailableError("ner", "all extractors",
			fmt.Errorf("every NER extractor has failed"))
	}
	return Reconcile(paperID, sentence, candidates, e.cfg.MinConfidence), nil
}

// Close releases any held model sessions.
func (e *Ensemble) Close() {
	for _, c := range e.closers {
		c()
	}
}

// BuildEntities folds mentions into canonical entities keyed by
// (type, normalized key), tallying mention and paper counts and collecting
// surface aliases.
func BuildEntities(mentions []core.Mention) []*core.Entity {
	byKey := make(map[core.EntityKey]*core.Entity)
	var order []core.EntityKey
	for _, m := range mentions {
		key := core.EntityKey{Type: m.Type, NormalizedKey: m.NormalizedKey}
		ent, ok := byKey[key]
		if !ok {
			ent = &core.Entity{
				Type:            m.Type,
				CanonicalName:   m.Surface,
				NormalizedKey:   m.NormalizedKey,
				MentionsByPaper: make(map[string]int),
			}
			byKey[key] = ent
			order = append(order, key)
		}
		ent.AddAlias(m.Surface)
		ent.MentionCount++
		ent.MentionsByPaper[m.PaperID]++
	}
	entities := make([]*core.Entity, 0, len(order))
	for _, key := range order {
		ent := byKey[key]
		ent.PaperCount = len(ent.MentionsByPaper)
		entities = append(entities, ent)
	}
	return entities
}
