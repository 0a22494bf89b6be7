package acquire

import (
	"context"
	"errors"
	"testing"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/core"
)

func testAcquisitionConfig() config.Acquisition {
	return config.Acquisition{
		CuratedEnabled: true,
		MaxPapers:      100,
	}
}

func TestLoadCurated(t *testing.T) {
	papers, rejects, err := LoadCurated()
	if err != nil {
		t.Fatalf("LoadCurated: %v", err)
	}
	if len(rejects) != 0 {
		t.Errorf("bundled curated list should have no invalid records, got %d", len(rejects))
	}
	if len(papers) == 0 {
		t.Fatal("bundled curated list is empty")
	}
	for _, p := range papers {
		if p.LiteratureID == "" || p.Title == "" {
			t.Errorf("curated record %q missing id or title", p.LiteratureID)
		}
	}
}

func TestRunCuratedOnly(t *testing.T) {
	a, err := New(testAcquisitionConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	papers, _, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(papers) == 0 {
		t.Fatal("expected curated papers")
	}
	for _, p := range papers {
		if !p.HasSourceTag(SourceCurated) {
			t.Errorf("paper %s missing curated source tag", p.LiteratureID)
		}
	}
}

func TestMaxPapersCap(t *testing.T) {
	cfg := testAcquisitionConfig()
	cfg.MaxPapers = 3
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	papers, _, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(papers) != 3 {
		t.Errorf("expected cap of 3 papers, got %d", len(papers))
	}
}

func TestDedupFirstWriteWins(t *testing.T) {
	d := newDedupSet()
	first := &core.Paper{LiteratureID: "PMID:1", Title: "first title"}
	duplicate := &core.Paper{LiteratureID: "PMID:1", Title: "other title"}
	d.add(first, SourceCurated)
	d.add(duplicate, SourceLiterature)

	papers := d.papers()
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper after dedup, got %d", len(papers))
	}
	// First write wins; the later duplicate only unions its source tag.
	if papers[0].Title != "first title" {
		t.Errorf("dedup kept the wrong record: %q", papers[0].Title)
	}
	if !papers[0].HasSourceTag(SourceCurated) || !papers[0].HasSourceTag(SourceLiterature) {
		t.Errorf("source tags not unioned: %v", papers[0].SourceTags)
	}
}

func TestDedupPreservesInsertionOrder(t *testing.T) {
	d := newDedupSet()
	d.add(&core.Paper{LiteratureID: "PMID:2", Title: "b"}, SourceCurated)
	d.add(&core.Paper{LiteratureID: "PMID:1", Title: "a"}, SourceCurated)
	d.add(&core.Paper{LiteratureID: "PMID:3", Title: "c"}, SourceCurated)

	papers := d.papers()
	want := []string{"PMID:2", "PMID:1", "PMID:3"}
	for i, id := range want {
		if papers[i].LiteratureID != id {
			t.Fatalf("order not stable: got %s at %d, want %s", papers[i].LiteratureID, i, id)
		}
	}
}

func TestZeroPapersIsAcquisitionError(t *testing.T) {
	cfg := config.Acquisition{CuratedEnabled: false, MaxPapers: 10}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, _, err = a.Run(context.Background())
	if !errors.Is(err, core.ErrAcquisition) {
		t.Fatalf("expected AcquisitionError, got %v", err)
	}
}

func TestIncrementalFilterSkipsExisting(t *testing.T) {
	a, err := New(testAcquisitionConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	all, _, err := a.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	skip := map[string]bool{}
	for _, p := range all[:len(all)-1] {
		skip[p.LiteratureID] = true
	}
	b, err := New(testAcquisitionConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.SkipIDs = skip
	delta, _, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("incremental Run: %v", err)
	}
	if len(delta) != 1 {
		t.Fatalf("expected only the delta paper, got %d", len(delta))
	}
	if delta[0].LiteratureID != all[len(all)-1].LiteratureID {
		t.Errorf("wrong delta paper: %s", delta[0].LiteratureID)
	}
}

func TestLiteratureRequiresContactEmail(t *testing.T) {
	cfg := testAcquisitionConfig()
	cfg.LiteratureEnabled = true
	_, err := New(cfg)
	if !errors.Is(err, core.ErrConfig) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}
