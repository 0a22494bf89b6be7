package relex

import (
	"regexp"
	"strings"
	"testing"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/core"
	"github.com/NimaFathima/astrobiomers/internal/ner"
)

var testWordRe = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}-]*|[^\s\p{L}\p{N}]`)

func makeSentence(index int, text string) core.Sentence {
	var tokens []core.Token
	for _, loc := range testWordRe.FindAllStringIndex(text, -1) {
		tokens = append(tokens, core.Token{Text: text[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
	}
	return core.Sentence{Index: index, Text: text, Tokens: tokens}
}

// mention locates a surface string inside the sentence and builds the Mention.
func mention(t *testing.T, paperID string, s core.Sentence, surface string, entityType core.EntityType) core.Mention {
	t.Helper()
	start := strings.Index(s.Text, surface)
	if start < 0 {
		t.Fatalf("surface %q not in sentence %q", surface, s.Text)
	}
	return core.Mention{
		PaperID:       paperID,
		SentenceIndex: s.Index,
		Start:         start,
		End:           start + len(surface),
		Surface:       surface,
		NormalizedKey: core.NormalizeKey(surface),
		Type:          entityType,
		Confidence:    0.9,
		Extractor:     ner.ExtractorPatterns,
	}
}

func testREConfig() config.RE {
	return config.RE{
		DependencyEnabled:           true,
		PatternsEnabled:             true,
		CooccurrenceEnabled:         true,
		CooccurrenceWindowSentences: 1,
		MinConfidence:               0.5,
	}
}

func findRel(rels []*core.Relationship, subject, object string, pred core.Predicate) *core.Relationship {
	for _, r := range rels {
		if r.Subject.NormalizedKey == subject && r.Object.NormalizedKey == object && r.Predicate == pred {
			return r
		}
	}
	return nil
}

func TestActiveVoiceCauses(t *testing.T) {
	s := makeSentence(0, "Microgravity induces bone loss in mice.")
	paper := &core.Paper{LiteratureID: "P1", Sentences: []core.Sentence{s}}
	mentions := []core.Mention{
		mention(t, "P1", s, "Microgravity", core.EntityStressor),
		mention(t, "P1", s, "bone loss", core.EntityPhenotype),
		mention(t, "P1", s, "mice", core.EntityOrganism),
	}
	rels := NewEngine(testREConfig()).Run([]*core.Paper{paper}, mentions)

	rel := findRel(rels, "microgravity", "bone loss", core.PredicateCauses)
	if rel == nil {
		t.Fatalf("expected (microgravity, CAUSES, bone loss), got %v", relsSummary(rels))
	}
	if rel.Confidence < 0.8 {
		t.Errorf("active-voice trigger confidence too low: %f", rel.Confidence)
	}
	if len(rel.Evidence) == 0 {
		t.Fatal("relationship without evidence")
	}
	if rel.Evidence[0].PaperID != "P1" || rel.Evidence[0].SentenceIndex != 0 {
		t.Errorf("evidence does not point at its sentence: %+v", rel.Evidence[0])
	}
}

func TestPassiveVoiceFlipsDirection(t *testing.T) {
	s := makeSentence(0, "TP53 is upregulated by ionizing radiation.")
	paper := &core.Paper{LiteratureID: "P2", Sentences: []core.Sentence{s}}
	mentions := []core.Mention{
		mention(t, "P2", s, "TP53", core.EntityGene),
		mention(t, "P2", s, "ionizing radiation", core.EntityStressor),
	}
	rels := NewEngine(testREConfig()).Run([]*core.Paper{paper}, mentions)

	rel := findRel(rels, "ionizing radiation", "tp53", core.PredicateUpregulates)
	if rel == nil {
		t.Fatalf("expected (ionizing radiation, UPREGULATES, TP53), got %v", relsSummary(rels))
	}
	// Base 0.9 minus one passive hop.
	if rel.Confidence != 0.8 {
		t.Errorf("passive construction should cost 0.1, got %f", rel.Confidence)
	}
	if findRel(rels, "tp53", "ionizing radiation", core.PredicateUpregulates) != nil {
		t.Error("reverse direction must not also be asserted")
	}
}

func TestPassiveDownregulation(t *testing.T) {
	s := makeSentence(1, "MYOD1 is downregulated in skeletal muscle during spaceflight.")
	paper := &core.Paper{LiteratureID: "P1", Sentences: []core.Sentence{s}}
	mentions := []core.Mention{
		mention(t, "P1", s, "MYOD1", core.EntityGene),
		mention(t, "P1", s, "spaceflight", core.EntityStressor),
	}
	rels := NewEngine(testREConfig()).Run([]*core.Paper{paper}, mentions)
	if findRel(rels, "spaceflight", "myod1", core.PredicateDownregulates) == nil {
		t.Fatalf("expected (spaceflight, DOWNREGULATES, MYOD1), got %v", relsSummary(rels))
	}
}

func TestTypeIncompatiblePairSkipped(t *testing.T) {
	s := makeSentence(0, "TP53 induces MYOD1 here.")
	paper := &core.Paper{LiteratureID: "P1", Sentences: []core.Sentence{s}}
	mentions := []core.Mention{
		mention(t, "P1", s, "TP53", core.EntityGene),
		mention(t, "P1", s, "MYOD1", core.EntityGene),
	}
	rels := NewEngine(testREConfig()).Run([]*core.Paper{paper}, mentions)
	// GENE CAUSES GENE is not in the table; only the co-occurrence fallback
	// may connect the pair.
	for _, r := range rels {
		if r.Predicate != core.PredicateAssociatedWith {
			t.Errorf("unexpected typed relationship: %s %s %s", r.Subject, r.Predicate, r.Object)
		}
	}
}

func TestNoSelfRelationships(t *testing.T) {
	s := makeSentence(0, "Radiation induces radiation damage.")
	paper := &core.Paper{LiteratureID: "P1", Sentences: []core.Sentence{s}}
	first := mention(t, "P1", s, "Radiation", core.EntityStressor)
	second := first
	second.Start = strings.LastIndex(s.Text, "radiation")
	second.End = second.Start + len("radiation")
	second.Surface = "radiation"
	mentions := []core.Mention{first, second}

	rels := NewEngine(testREConfig()).Run([]*core.Paper{paper}, mentions)
	for _, r := range rels {
		if r.Subject == r.Object {
			t.Fatalf("self relationship emitted: %+v", r)
		}
	}
}

func TestConflictingRegulationsBothRetained(t *testing.T) {
	s1 := makeSentence(0, "CDKN1A is upregulated by microgravity.")
	s2 := makeSentence(0, "CDKN1A is downregulated by microgravity.")
	p1 := &core.Paper{LiteratureID: "P1", Sentences: []core.Sentence{s1}}
	p2 := &core.Paper{LiteratureID: "P2", Sentences: []core.Sentence{s2}}
	mentions := []core.Mention{
		mention(t, "P1", s1, "CDKN1A", core.EntityGene),
		mention(t, "P1", s1, "microgravity", core.EntityStressor),
		mention(t, "P2", s2, "CDKN1A", core.EntityGene),
		mention(t, "P2", s2, "microgravity", core.EntityStressor),
	}
	rels := NewEngine(testREConfig()).Run([]*core.Paper{p1, p2}, mentions)

	up := findRel(rels, "microgravity", "cdkn1a", core.PredicateUpregulates)
	down := findRel(rels, "microgravity", "cdkn1a", core.PredicateDownregulates)
	if up == nil || down == nil {
		t.Fatalf("both conflicting regulations must survive, got %v", relsSummary(rels))
	}
	if len(up.Evidence) != 1 || len(down.Evidence) != 1 {
		t.Errorf("each conflict keeps its own evidence: up=%d down=%d", len(up.Evidence), len(down.Evidence))
	}
}

func TestEvidenceAccumulatesAcrossPapers(t *testing.T) {
	s1 := makeSentence(0, "Microgravity induces bone loss in mice.")
	s2 := makeSentence(0, "Microgravity induces bone loss in rats.")
	p1 := &core.Paper{LiteratureID: "P1", Sentences: []core.Sentence{s1}}
	p2 := &core.Paper{LiteratureID: "P3", Sentences: []core.Sentence{s2}}
	mentions := []core.Mention{
		mention(t, "P1", s1, "Microgravity", core.EntityStressor),
		mention(t, "P1", s1, "bone loss", core.EntityPhenotype),
		mention(t, "P3", s2, "Microgravity", core.EntityStressor),
		mention(t, "P3", s2, "bone loss", core.EntityPhenotype),
	}
	rels := NewEngine(testREConfig()).Run([]*core.Paper{p1, p2}, mentions)

	rel := findRel(rels, "microgravity", "bone loss", core.PredicateCauses)
	if rel == nil {
		t.Fatalf("missing relationship: %v", relsSummary(rels))
	}
	papersSeen := map[string]bool{}
	for _, ev := range rel.Evidence {
		papersSeen[ev.PaperID] = true
	}
	if !papersSeen["P1"] || !papersSeen["P3"] {
		t.Errorf("evidence should span both papers: %+v", rel.Evidence)
	}
}

func TestCooccurrenceFallback(t *testing.T) {
	s := makeSentence(0, "Cortisol and lymphocytes were measured after landing.")
	paper := &core.Paper{LiteratureID: "P1", Sentences: []core.Sentence{s}}
	mentions := []core.Mention{
		mention(t, "P1", s, "Cortisol", core.EntityChemical),
		mention(t, "P1", s, "lymphocytes", core.EntityCellType),
	}
	rels := NewEngine(testREConfig()).Run([]*core.Paper{paper}, mentions)

	var assoc *core.Relationship
	for _, r := range rels {
		if r.Predicate == core.PredicateAssociatedWith {
			assoc = r
		}
	}
	if assoc == nil {
		t.Fatalf("expected co-occurrence fallback, got %v", relsSummary(rels))
	}
	if assoc.Confidence != 0.1 {
		t.Errorf("single co-occurrence should score 0.1, got %f", assoc.Confidence)
	}
}

func TestCooccurrenceSkipsClaimedPairs(t *testing.T) {
	s := makeSentence(0, "Microgravity induces bone loss in mice.")
	paper := &core.Paper{LiteratureID: "P1", Sentences: []core.Sentence{s}}
	mentions := []core.Mention{
		mention(t, "P1", s, "Microgravity", core.EntityStressor),
		mention(t, "P1", s, "bone loss", core.EntityPhenotype),
	}
	rels := NewEngine(testREConfig()).Run([]*core.Paper{paper}, mentions)
	for _, r := range rels {
		if r.Predicate == core.PredicateAssociatedWith &&
			((r.Subject.NormalizedKey == "microgravity" && r.Object.NormalizedKey == "bone loss") ||
				(r.Subject.NormalizedKey == "bone loss" && r.Object.NormalizedKey == "microgravity")) {
			t.Fatal("claimed pair must not also get a co-occurrence edge")
		}
	}
}

func TestCooccurrenceConfidenceCap(t *testing.T) {
	cfg := testREConfig()
	cfg.DependencyEnabled = false
	cfg.PatternsEnabled = false

	var papers []*core.Paper
	var mentions []core.Mention
	// Seven sightings of the same pair; confidence must cap at 0.5.
	for i := 0; i < 7; i++ {
		s := makeSentence(0, "Cortisol and lymphocytes were measured.")
		id := "P" + string(rune('1'+i))
		papers = append(papers, &core.Paper{LiteratureID: id, Sentences: []core.Sentence{s}})
		mentions = append(mentions,
			mention(t, id, s, "Cortisol", core.EntityChemical),
			mention(t, id, s, "lymphocytes", core.EntityCellType),
		)
	}
	rels := NewEngine(cfg).Run(papers, mentions)
	if len(rels) != 1 {
		t.Fatalf("expected one deduplicated association, got %d", len(rels))
	}
	if rels[0].Confidence != 0.5 {
		t.Errorf("co-occurrence confidence must cap at 0.5, got %f", rels[0].Confidence)
	}
	if len(rels[0].Evidence) != 7 {
		t.Errorf("expected 7 evidence records, got %d", len(rels[0].Evidence))
	}
}

func TestAllRelationshipsTypeCompatible(t *testing.T) {
	s := makeSentence(0, "Microgravity induces bone loss and TP53 is upregulated by radiation in mice.")
	paper := &core.Paper{LiteratureID: "P1", Sentences: []core.Sentence{s}}
	mentions := []core.Mention{
		mention(t, "P1", s, "Microgravity", core.EntityStressor),
		mention(t, "P1", s, "bone loss", core.EntityPhenotype),
		mention(t, "P1", s, "TP53", core.EntityGene),
		mention(t, "P1", s, "radiation", core.EntityStressor),
		mention(t, "P1", s, "mice", core.EntityOrganism),
	}
	rels := NewEngine(testREConfig()).Run([]*core.Paper{paper}, mentions)
	for _, r := range rels {
		if !core.Compatible(r.Subject.Type, r.Predicate, r.Object.Type) {
			t.Errorf("incompatible relationship emitted: %s %s %s", r.Subject, r.Predicate, r.Object)
		}
		if len(r.Evidence) == 0 {
			t.Errorf("relationship without evidence: %+v", r)
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			t.Errorf("confidence out of bounds: %f", r.Confidence)
		}
	}
}

func relsSummary(rels []*core.Relationship) []string {
	var out []string
	for _, r := range rels {
		out = append(out, r.Subject.String()+" "+string(r.Predicate)+" "+r.Object.String())
	}
	return out
}
