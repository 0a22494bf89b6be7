package topics

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// topKeywords is how many label keywords each topic carries.
const topKeywords = 10

var labelTokenRe = regexp.MustCompile(`[\p{L}][\p{L}\p{N}-]{2,}`)

// stopwords excluded from topic labels.
var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "are": true, "was": true, "were": true,
	"during": true, "after": true, "into": true, "these": true, "their": true,
	"which": true, "have": true, "has": true, "been": true, "not": true,
	"may": true, "can": true, "its": true, "also": true, "than": true,
	"between": true, "within": true, "over": true, "under": true, "our": true,
	"study": true, "studies": true, "results": true, "effects": true,
	"using": true, "show": true, "shows": true, "shown": true,
}

// labelClusters computes class-based TF-IDF keywords for each cluster: term
// frequency within the cluster scaled by log of inverse cross-cluster
// document frequency.
func labelClusters(texts []string, assignments []int) map[int][]core.KeywordWeight {
	clusterTerms := make(map[int]map[string]float64)
	termClusters := make(map[string]map[int]bool)

	for i, text := range texts {
		cluster := assignments[i]
		if cluster == core.NoiseTopicID {
			continue
		}
		if clusterTerms[cluster] == nil {
			clusterTerms[cluster] = make(map[string]float64)
		}
		for _, tok := range labelTokenRe.FindAllString(strings.ToLower(text), -1) {
			if stopwords[tok] {
				continue
			}
			clusterTerms[cluster][tok]++
			if termClusters[tok] == nil {
				termClusters[tok] = make(map[int]bool)
			}
			termClusters[tok][cluster] = true
		}
	}

	numClusters := float64(len(clusterTerms))
	out := make(map[int][]core.KeywordWeight, len(clusterTerms))
	for cluster, terms := range clusterTerms {
		var total float64
		for _, count := range terms {
			total += count
		}
		var weighted []core.KeywordWeight
		for term, count := range terms {
			tf := count / total
			idf := math.Log(1 + numClusters/float64(len(termClusters[term])))
			weighted = append(weighted, core.KeywordWeight{Keyword: term, Weight: tf * idf})
		}
		sort.Slice(weighted, func(i, j int) bool {
			if weighted[i].Weight != weighted[j].Weight {
				return weighted[i].Weight > weighted[j].Weight
			}
			return weighted[i].Keyword < weighted[j].Keyword
		})
		if len(weighted) > topKeywords {
			weighted = weighted[:topKeywords]
		}
		out[cluster] = weighted
	}
	return out
}

// labelFromKeywords renders the display label from the top keywords.
func labelFromKeywords(keywords []core.KeywordWeight) string {
	n := 3
	if len(keywords) < n {
		n = len(keywords)
	}
	parts := make([]string, 0, n)
	for _, kw := range keywords[:n] {
		parts = append(parts, kw.Keyword)
	}
	return strings.Join(parts, ", ")
}
