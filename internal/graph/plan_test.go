package graph

import (
	"reflect"
	"strings"
	"testing"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

func samplePlanInput() Input {
	microgravity := &core.Entity{
		Type: core.EntityStressor, CanonicalName: "microgravity", NormalizedKey: "microgravity",
		MentionCount: 3, PaperCount: 2,
		MentionsByPaper: map[string]int{"P1": 2, "P2": 1},
	}
	boneLoss := &core.Entity{
		Type: core.EntityPhenotype, CanonicalName: "bone loss", NormalizedKey: "bone loss",
		MentionCount: 1, PaperCount: 1,
		MentionsByPaper: map[string]int{"P1": 1},
	}
	mice := &core.Entity{
		Type: core.EntityOrganism, CanonicalName: "mice", NormalizedKey: "mice",
		MentionCount: 1, PaperCount: 1,
		MentionsByPaper: map[string]int{"P1": 1},
	}
	causes := &core.Relationship{
		Subject:    core.EntityKey{Type: core.EntityStressor, NormalizedKey: "microgravity"},
		Predicate:  core.PredicateCauses,
		Object:     core.EntityKey{Type: core.EntityPhenotype, NormalizedKey: "bone loss"},
		Confidence: 0.9,
		Evidence: []core.Evidence{
			{PaperID: "P1", SentenceIndex: 0, Confidence: 0.9, Extractor: "dependency_patterns"},
			{PaperID: "P1", SentenceIndex: 0, Confidence: 0.9, Extractor: "dependency_patterns"}, // duplicate
			{PaperID: "P2", SentenceIndex: 1, Confidence: 0.8, Extractor: "surface_patterns"},
		},
	}
	assoc := &core.Relationship{
		Subject:    core.EntityKey{Type: core.EntityStressor, NormalizedKey: "microgravity"},
		Predicate:  core.PredicateAssociatedWith,
		Object:     core.EntityKey{Type: core.EntityOrganism, NormalizedKey: "mice"},
		Confidence: 0.1,
		Evidence:   []core.Evidence{{PaperID: "P1", SentenceIndex: 0, Confidence: 0.1, Extractor: "cooccurrence"}},
	}
	return Input{
		Papers: []*core.Paper{
			{LiteratureID: "P1", Title: "one", SourceTags: []string{"curated"}},
			{LiteratureID: "P2", Title: "two", SourceTags: []string{"curated"}},
		},
		Entities:      []*core.Entity{microgravity, boneLoss, mice},
		Relationships: []*core.Relationship{causes, assoc},
		Assignments: []core.TopicAssignment{
			{PaperID: "P1", TopicID: -1}, {PaperID: "P2", TopicID: -1},
		},
		Topics: []core.Topic{{TopicID: -1, Label: "unclustered", Size: 2}},
	}
}

func TestBuildPlanDeterministic(t *testing.T) {
	a, err := BuildPlan(samplePlanInput(), 500)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	b, err := BuildPlan(samplePlanInput(), 500)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("plan is not deterministic across identical inputs")
	}
}

func TestBuildPlanNodeOrder(t *testing.T) {
	plan, err := BuildPlan(samplePlanInput(), 500)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.NodeBatches) == 0 {
		t.Fatal("no node batches")
	}
	// Papers load first, then entities by type, then topics last.
	if plan.NodeBatches[0].Label != "Paper" {
		t.Errorf("papers must load first, got %s", plan.NodeBatches[0].Label)
	}
	if plan.NodeBatches[len(plan.NodeBatches)-1].Label != "Topic" {
		t.Errorf("topics must load last, got %s", plan.NodeBatches[len(plan.NodeBatches)-1].Label)
	}
}

func TestBuildPlanEvidenceDeduped(t *testing.T) {
	plan, err := BuildPlan(samplePlanInput(), 500)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	var causesRow *EdgeRow
	for i := range plan.EdgeBatches {
		if plan.EdgeBatches[i].Type == string(core.PredicateCauses) {
			causesRow = &plan.EdgeBatches[i].Rows[0]
		}
	}
	if causesRow == nil {
		t.Fatal("CAUSES edge missing from plan")
	}
	keys := causesRow.Props["evidence_keys"].([]string)
	if len(keys) != 2 {
		t.Fatalf("duplicate evidence must collapse: %v", keys)
	}
	sample := causesRow.Props["evidence_sample"].([]string)
	if len(sample) != 2 {
		t.Fatalf("evidence sample wrong: %v", sample)
	}
	if causesRow.Props["headline_confidence"].(float64) != 0.9 {
		t.Errorf("headline confidence: %v", causesRow.Props["headline_confidence"])
	}
}

func TestBuildPlanExcludesCooccurrenceByDefault(t *testing.T) {
	plan, err := BuildPlan(samplePlanInput(), 500)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	for _, batch := range plan.EdgeBatches {
		if batch.Type == string(core.PredicateAssociatedWith) {
			t.Fatal("ASSOCIATED_WITH loaded despite toggle off")
		}
	}

	in := samplePlanInput()
	in.IncludeCooccurrence = true
	plan, err = BuildPlan(in, 500)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	found := false
	for _, batch := range plan.EdgeBatches {
		if batch.Type == string(core.PredicateAssociatedWith) {
			found = true
		}
	}
	if !found {
		t.Fatal("ASSOCIATED_WITH missing with toggle on")
	}
}

func TestBuildPlanMentionEdges(t *testing.T) {
	plan, err := BuildPlan(samplePlanInput(), 500)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	mentionRows := map[string]int{}
	studied := 0
	for _, batch := range plan.EdgeBatches {
		switch batch.Type {
		case EdgeMentions:
			for _, row := range batch.Rows {
				key := row.SourceKey["literature_id"].(string) + "->" + row.TargetKey["normalized_key"].(string)
				mentionRows[key] = row.Props["mention_count"].(int)
			}
		case EdgeStudiedIn:
			studied += len(batch.Rows)
		}
	}
	// mention_count is per paper.
	if mentionRows["P1->microgravity"] != 2 {
		t.Errorf("P1 microgravity mention_count: %d", mentionRows["P1->microgravity"])
	}
	if mentionRows["P2->microgravity"] != 1 {
		t.Errorf("P2 microgravity mention_count: %d", mentionRows["P2->microgravity"])
	}
	if studied != 1 {
		t.Errorf("expected one STUDIED_IN edge for the organism, got %d", studied)
	}
}

func TestBuildPlanBatching(t *testing.T) {
	in := samplePlanInput()
	plan, err := BuildPlan(in, 1)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	for _, batch := range plan.NodeBatches {
		if len(batch.Rows) > 1 {
			t.Fatalf("node batch exceeds batch size: %d", len(batch.Rows))
		}
	}
	for _, batch := range plan.EdgeBatches {
		if len(batch.Rows) > 1 {
			t.Fatalf("edge batch exceeds batch size: %d", len(batch.Rows))
		}
	}
	if _, err := BuildPlan(in, 0); err == nil {
		t.Fatal("batch size 0 must be rejected")
	}
}

func TestBuildPlanEmptyCorpus(t *testing.T) {
	plan, err := BuildPlan(Input{}, 500)
	if err != nil {
		t.Fatalf("BuildPlan: %v", err)
	}
	if len(plan.NodeBatches) != 0 || len(plan.EdgeBatches) != 0 {
		t.Fatalf("empty input must produce an empty plan: %+v", plan)
	}
}

func TestSchemaStatementsCoverEveryEntityType(t *testing.T) {
	stmts := schemaStatements()
	for _, entityType := range core.EntityTypes {
		found := false
		for _, stmt := range stmts {
			if strings.Contains(stmt, ":"+string(entityType)+")") {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("no uniqueness constraint for %s", entityType)
		}
	}
}
