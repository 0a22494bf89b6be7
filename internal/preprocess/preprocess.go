// Package preprocess cleans scientific text, segments it into sentences, and
// attaches token, POS, and lemma annotations.
package preprocess

import (
	"strings"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/core"
	"github.com/NimaFathima/astrobiomers/internal/logger"
)

// minCleanTextLength is the drop threshold for papers whose cleaned text is
// too short to carry signal.
const minCleanTextLength = 200

// Result is the preprocessing stage output.
type Result struct {
	Papers      []*core.Paper
	Rejected    []core.RejectedRecord
	DegradedNLP bool
}

// Preprocessor cleans and annotates acquired papers.
type Preprocessor struct {
	cfg    config.Preprocessing
	tagger tagger

	// DegradedNLP is set when the scientific tagger failed and the regex
	// fallback took over for the remainder of the run.
	DegradedNLP bool
}

// New builds a Preprocessor with the scientific tagger, falling back to the
// regex tokenizer lazily if tagging fails at runtime.
func New(cfg config.Preprocessing) *Preprocessor {
	return &Preprocessor{
		cfg:    cfg,
		tagger: &proseTagger{lemmatize: cfg.Lemmatize},
	}
}

// Run processes every paper: clean title+abstract(+full text), segment,
// tokenize. Papers whose cleaned text falls under the minimum length are
// dropped with a reason.
func (p *Preprocessor) Run(papers []*core.Paper) Result {
	log := logger.With("preprocessing")
	var out Result
	for _, paper := range papers {
		body := paper.Abstract
		if paper.FullText != "" {
			body = body + "\n" + paper.FullText
		}
		cleaned := Clean(paper.Title+". "+body, p.cfg.RemoveCitationMarkers)
		if len(cleaned) < minCleanTextLength {
			out.Rejected = append(out.Rejected, core.RejectedRecord{
				Stage:    "preprocessing",
				RecordID: paper.LiteratureID,
				Reason:   "clean_text_too_short",
			})
			continue
		}
		paper.CleanText = cleaned
		paper.Sentences = p.annotate(Segment(cleaned, p.cfg.MinSentenceLength))
		out.Papers = append(out.Papers, paper)
	}
	out.DegradedNLP = p.DegradedNLP
	log.Info().
		Int("papers", len(out.Papers)).
		Int("dropped", len(out.Rejected)).
		Bool("degraded_nlp", out.DegradedNLP).
		Msg("preprocessing complete")
	return out
}

// annotate tokenizes each sentence. The first tagger failure demotes the run
// to the regex fallback for all remaining sentences.
func (p *Preprocessor) annotate(sentenceTexts []string) []core.Sentence {
	var sentences []core.Sentence
	for i, text := range sentenceTexts {
		text = strings.TrimSpace(text)
		tokens, err := p.tagger.tokenize(text)
		if err != nil && !p.DegradedNLP {
			logger.With("preprocessing").Warn().Err(err).
				Msg("scientific tagger unavailable, falling back to regex tokenizer")
			p.DegradedNLP = true
			p.tagger = regexTagger{}
			tokens, _ = p.tagger.tokenize(text)
		}
		sentences = append(sentences, core.Sentence{Index: i, Text: text, Tokens: tokens})
	}
	return sentences
}
