package preprocess

import (
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

var (
	tokenizerOnce sync.Once
	tokenizer     *sentences.DefaultSentenceTokenizer
	tokenizerErr  error
)

// Segment splits cleaned text into sentences using the English punkt model.
// Sentences shorter than minLen characters are dropped.
func Segment(text string, minLen int) []string {
	tokenizerOnce.Do(func() {
		tokenizer, tokenizerErr = english.NewSentenceTokenizer(nil)
	})
	var raw []string
	if tokenizerErr != nil || tokenizer == nil {
		// Punkt training data unavailable; fall back to naive splitting.
		raw = naiveSplit(text)
	} else {
		for _, s := range tokenizer.Tokenize(text) {
			raw = append(raw, s.Text)
		}
	}
	var out []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if len(s) >= minLen {
			out = append(out, s)
		}
	}
	return out
}

func naiveSplit(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
