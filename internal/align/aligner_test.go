package align

import (
	"testing"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/core"
)

func testAlignerConfig() config.Aligner {
	return config.Aligner{
		OntologiesEnabled: config.KnownOntologies,
		MatchThreshold:    0.8,
	}
}

func entity(t core.EntityType, name string) *core.Entity {
	return &core.Entity{Type: t, CanonicalName: name, NormalizedKey: core.NormalizeKey(name)}
}

func TestExactLabelMatch(t *testing.T) {
	a, err := New(testAlignerConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entities := a.Run([]*core.Entity{entity(core.EntityDisease, "Osteoporosis")})
	refs := entities[0].OntologyRefs
	if len(refs) == 0 {
		t.Fatal("expected a MONDO alignment for osteoporosis")
	}
	if refs[0].Ontology != "MONDO" || refs[0].Tier != 1 || refs[0].Score != 1.0 {
		t.Errorf("expected tier-1 MONDO match, got %+v", refs[0])
	}
}

func TestSynonymMatch(t *testing.T) {
	a, err := New(testAlignerConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entities := a.Run([]*core.Entity{entity(core.EntityPhenotype, "bone loss")})
	refs := entities[0].OntologyRefs
	if len(refs) == 0 {
		t.Fatal("expected an HPO alignment via synonym")
	}
	if refs[0].Tier != 2 {
		t.Errorf("synonym match should be tier 2, got %+v", refs[0])
	}
	if refs[0].TermID != "HP:0004349" {
		t.Errorf("wrong term: %+v", refs[0])
	}
}

func TestTokenJaccardMatch(t *testing.T) {
	cfg := testAlignerConfig()
	cfg.MatchThreshold = 0.5
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// "muscle atrophy skeletal" shares 3-of-3 tokens with the HPO label
	// "skeletal muscle atrophy" but is not an exact string match.
	entities := a.Run([]*core.Entity{entity(core.EntityPhenotype, "muscle atrophy skeletal")})
	refs := entities[0].OntologyRefs
	if len(refs) == 0 {
		t.Fatal("expected a token-overlap alignment")
	}
	if refs[0].Tier != 3 {
		t.Errorf("expected tier-3 match, got %+v", refs[0])
	}
	if refs[0].Score < 0.5 {
		t.Errorf("score below threshold slipped through: %+v", refs[0])
	}
}

func TestNoMatchIsNotAnError(t *testing.T) {
	a, err := New(testAlignerConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entities := a.Run([]*core.Entity{entity(core.EntityDisease, "zorgomax syndrome")})
	if len(entities[0].OntologyRefs) != 0 {
		t.Errorf("nonsense term should not align: %+v", entities[0].OntologyRefs)
	}
}

func TestTypeRouting(t *testing.T) {
	a, err := New(testAlignerConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// "osteoporosis" exists in both HPO and MONDO; a DISEASE entity must only
	// collect MONDO references, a PHENOTYPE only HPO.
	disease := entity(core.EntityDisease, "osteoporosis")
	phenotype := entity(core.EntityPhenotype, "osteoporosis")
	a.Run([]*core.Entity{disease, phenotype})

	for _, ref := range disease.OntologyRefs {
		if ref.Ontology != "MONDO" {
			t.Errorf("disease routed to %s", ref.Ontology)
		}
	}
	for _, ref := range phenotype.OntologyRefs {
		if ref.Ontology != "HPO" {
			t.Errorf("phenotype routed to %s", ref.Ontology)
		}
	}
}

func TestDisabledOntologySkipped(t *testing.T) {
	cfg := testAlignerConfig()
	cfg.OntologiesEnabled = []string{"GO"}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entities := a.Run([]*core.Entity{entity(core.EntityDisease, "osteoporosis")})
	if len(entities[0].OntologyRefs) != 0 {
		t.Errorf("MONDO disabled but still matched: %+v", entities[0].OntologyRefs)
	}
}

func TestCandidateCap(t *testing.T) {
	cfg := testAlignerConfig()
	cfg.MatchThreshold = 0.1
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	entities := a.Run([]*core.Entity{entity(core.EntityCellType, "cell")})
	if len(entities[0].OntologyRefs) > 3 {
		t.Errorf("at most 3 candidates may be recorded, got %d", len(entities[0].OntologyRefs))
	}
}
