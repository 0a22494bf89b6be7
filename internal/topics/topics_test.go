package topics

import (
	"math"
	"reflect"
	"testing"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/core"
)

// fixedEmbedder returns pre-baked vectors keyed by input order.
type fixedEmbedder struct {
	vectors [][]float64
	closed  bool
}

func (f *fixedEmbedder) Embed(texts []string) ([][]float64, error) {
	return f.vectors[:len(texts)], nil
}
func (f *fixedEmbedder) Close() { f.closed = true }

func testTopicConfig() config.Topic {
	return config.Topic{
		MinTopicSize: 3,
		UMAP:         config.UMAPParams{NNeighbors: 15, NComponents: 2},
		Seed:         42,
	}
}

func papersOf(n int) []*core.Paper {
	var papers []*core.Paper
	for i := 0; i < n; i++ {
		papers = append(papers, &core.Paper{
			LiteratureID: "PMID:" + string(rune('A'+i)),
			Title:        "Paper",
			Abstract:     "Microgravity and bone loss.",
		})
	}
	return papers
}

func TestSmallCorpusAllUnclustered(t *testing.T) {
	model := NewWith(testTopicConfig(), &fixedEmbedder{})
	// Below min_topic_size * 2 skips clustering entirely.
	result, err := model.Run(papersOf(5))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Assignments) != 5 {
		t.Fatalf("topic totality violated: %d assignments for 5 papers", len(result.Assignments))
	}
	for _, a := range result.Assignments {
		if a.TopicID != core.NoiseTopicID {
			t.Errorf("small corpus must assign -1, got %d", a.TopicID)
		}
	}
	if len(result.Topics) != 1 || result.Topics[0].Label != "unclustered" {
		t.Fatalf("expected single unclustered pseudo-topic, got %+v", result.Topics)
	}
	if result.Topics[0].Size != 5 {
		t.Errorf("pseudo-topic size should cover all papers, got %d", result.Topics[0].Size)
	}
}

func TestReduceDeterministic(t *testing.T) {
	vectors := [][]float64{
		{1, 0, 0, 0.5}, {0.9, 0.1, 0, 0.4}, {0, 1, 0.2, 0}, {0.1, 0.9, 0.1, 0},
	}
	a, err := Reduce(vectors, 2)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	b, err := Reduce(vectors, 2)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("reduction is not deterministic")
	}
	if len(a) != 4 || len(a[0]) != 2 {
		t.Fatalf("unexpected reduced shape: %dx%d", len(a), len(a[0]))
	}
}

func TestReducePassthroughWhenSmallDim(t *testing.T) {
	vectors := [][]float64{{1, 2}, {3, 4}}
	out, err := Reduce(vectors, 5)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if !reflect.DeepEqual(out, vectors) {
		t.Fatal("components >= dim should pass vectors through")
	}
}

func TestL2Normalize(t *testing.T) {
	v := l2normalize([]float64{3, 4})
	length := math.Sqrt(v[0]*v[0] + v[1]*v[1])
	if math.Abs(length-1) > 1e-9 {
		t.Errorf("normalized length %f", length)
	}
	zero := l2normalize([]float64{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Error("zero vector must survive normalization")
	}
}

func TestLabelClusters(t *testing.T) {
	texts := []string{
		"bone loss microgravity osteoclast bone",
		"bone resorption microgravity osteoclast",
		"radiation dna damage lymphocyte",
		"radiation cosmic dna damage",
	}
	assignments := []int{0, 0, 1, 1}
	labels := labelClusters(texts, assignments)
	if len(labels) != 2 {
		t.Fatalf("expected 2 labeled clusters, got %d", len(labels))
	}
	top := func(cluster int) map[string]bool {
		out := map[string]bool{}
		for _, kw := range labels[cluster] {
			out[kw.Keyword] = true
		}
		return out
	}
	if !top(0)["bone"] {
		t.Errorf("cluster 0 should feature 'bone': %+v", labels[0])
	}
	if !top(1)["radiation"] {
		t.Errorf("cluster 1 should feature 'radiation': %+v", labels[1])
	}
	// Weights are sorted descending.
	for cluster, kws := range labels {
		for i := 1; i < len(kws); i++ {
			if kws[i].Weight > kws[i-1].Weight {
				t.Errorf("cluster %d keywords not sorted by weight", cluster)
			}
		}
	}
}

func TestLabelClustersIgnoresNoise(t *testing.T) {
	labels := labelClusters([]string{"bone loss", "radiation"}, []int{core.NoiseTopicID, core.NoiseTopicID})
	if len(labels) != 0 {
		t.Fatalf("noise papers must not produce labels: %+v", labels)
	}
}

func TestCoherenceBounds(t *testing.T) {
	texts := []string{
		"bone loss microgravity", "bone loss microgravity",
		"radiation damage", "radiation damage",
	}
	coherent := coherenceNPMI([]core.KeywordWeight{{Keyword: "bone"}, {Keyword: "loss"}}, texts)
	incoherent := coherenceNPMI([]core.KeywordWeight{{Keyword: "bone"}, {Keyword: "radiation"}}, texts)
	if coherent < -1 || coherent > 1 || incoherent < -1 || incoherent > 1 {
		t.Fatalf("NPMI out of bounds: %f, %f", coherent, incoherent)
	}
	if coherent <= incoherent {
		t.Errorf("co-occurring keywords should score higher: %f vs %f", coherent, incoherent)
	}
}

func TestRunReleasesEmbedder(t *testing.T) {
	embedder := &fixedEmbedder{}
	model := NewWith(testTopicConfig(), embedder)
	if _, err := model.Run(papersOf(2)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	model.Close()
	if !embedder.closed {
		t.Error("Close must release the embedding model")
	}
}
