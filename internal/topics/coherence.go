package topics

import (
	"math"
	"strings"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// coherenceNPMI scores a keyword set by the average normalized pointwise
// mutual information of its pairs over the document set. Range [-1, 1];
// higher is more coherent.
func coherenceNPMI(keywords []core.KeywordWeight, texts []string) float64 {
	if len(keywords) < 2 || len(texts) == 0 {
		return 0
	}
	n := float64(len(texts))

	contains := make([]map[string]bool, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		contains[i] = make(map[string]bool, len(keywords))
		for _, kw := range keywords {
			if strings.Contains(lower, kw.Keyword) {
				contains[i][kw.Keyword] = true
			}
		}
	}
	docFreq := func(term string) float64 {
		var c float64
		for _, m := range contains {
			if m[term] {
				c++
			}
		}
		return c
	}
	coFreq := func(a, b string) float64 {
		var c float64
		for _, m := range contains {
			if m[a] && m[b] {
				c++
			}
		}
		return c
	}

	var sum float64
	var pairs int
	for i := 0; i < len(keywords); i++ {
		for j := i + 1; j < len(keywords); j++ {
			a, b := keywords[i].Keyword, keywords[j].Keyword
			pa, pb := docFreq(a)/n, docFreq(b)/n
			pab := coFreq(a, b) / n
			pairs++
			if pab == 0 || pa == 0 || pb == 0 {
				sum += -1
				continue
			}
			if pab >= 1 {
				sum += 1
				continue
			}
			pmi := math.Log(pab / (pa * pb))
			sum += pmi / -math.Log(pab)
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}
