package preprocess

import (
	"regexp"
	"strings"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	prose "github.com/jdkato/prose/v2"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// tagger abstracts the scientific NLP tagger so the regex fallback slots in
// when the model is unavailable.
type tagger interface {
	tokenize(sentence string) ([]core.Token, error)
}

var (
	lemmatizerOnce sync.Once
	lemmatizer     *golem.Lemmatizer
)

func getLemmatizer() *golem.Lemmatizer {
	lemmatizerOnce.Do(func() {
		l, err := golem.New(en.New())
		if err == nil {
			lemmatizer = l
		}
	})
	return lemmatizer
}

// proseTagger tokenizes and POS-tags with the prose model and lemmatizes with
// the golem English dictionary.
type proseTagger struct {
	lemmatize bool
}

func (p *proseTagger) tokenize(sentence string) ([]core.Token, error) {
	doc, err := prose.NewDocument(sentence,
		prose.WithSegmentation(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, err
	}
	lem := getLemmatizer()
	var tokens []core.Token
	cursor := 0
	for _, t := range doc.Tokens() {
		start := strings.Index(sentence[cursor:], t.Text)
		if start < 0 {
			continue
		}
		start += cursor
		end := start + len(t.Text)
		cursor = end
		tok := core.Token{Text: t.Text, Tag: t.Tag, Start: start, End: end}
		if p.lemmatize && lem != nil {
			tok.Lemma = strings.ToLower(lem.Lemma(t.Text))
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// wordRe keeps hyphenated tokens and Greek letters whole.
var wordRe = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}\p{Greek}-]*|[^\s\p{L}\p{N}]`)

// regexTagger is the degraded fallback: token boundaries only, no POS tags,
// no lemmas.
type regexTagger struct{}

func (regexTagger) tokenize(sentence string) ([]core.Token, error) {
	var tokens []core.Token
	for _, loc := range wordRe.FindAllStringIndex(sentence, -1) {
		tokens = append(tokens, core.Token{
			Text:  sentence[loc[0]:loc[1]],
			Start: loc[0],
			End:   loc[1],
		})
	}
	return tokens, nil
}
