// Package acquire fetches paper records from curated lists, the external
// literature service, and optional secondary sources, and normalizes them into
// the common Paper record.
package acquire

import (
	"context"
	"fmt"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/core"
	"github.com/NimaFathima/astrobiomers/internal/logger"
)

// Source tags, in dedup priority order.
const (
	SourceExplicit   = "explicit"
	SourceCurated    = "curated"
	SourceLiterature = "literature"
)

// Acquirer drives all enabled acquisition channels and deduplicates their
// output by literature ID, first write wins per source priority.
type Acquirer struct {
	cfg        config.Acquisition
	literature *LiteratureClient
	secondary  []SourceAdapter

	// ExplicitIDs, when set, restricts the literature fetch to these ids and
	// gives the fetched records top dedup priority.
	ExplicitIDs []string

	// SkipIDs holds literature ids already present in the graph; used by
	// incremental runs to acquire only the delta.
	SkipIDs map[string]bool
}

// New builds an Acquirer from configuration. Secondary adapters are resolved
// from the configured source tags; unknown tags are skipped with a warning.
func New(cfg config.Acquisition) (*Acquirer, error) {
	a := &Acquirer{cfg: cfg}
	if cfg.LiteratureEnabled {
		if cfg.LiteratureContactEmail == "" {
			return nil, core.NewConfigError("acquisition.literature_contact_email",
				"required when literature_enabled is true")
		}
		a.literature = NewLiteratureClient(cfg)
	}
	log := logger.With("acquisition")
	for _, tag := range cfg.SecondarySources {
		adapter, err := NewSourceAdapter(tag)
		if err != nil {
			log.Warn().Str("source", tag).Err(err).Msg("skipping unknown secondary source")
			continue
		}
		a.secondary = append(a.secondary, adapter)
	}
	return a, nil
}

// Run executes every enabled channel in priority order and returns the
// deduplicated papers, capped at max_papers, plus record-level rejections.
func (a *Acquirer) Run(ctx context.Context) ([]*core.Paper, []core.RejectedRecord, error) {
	log := logger.With("acquisition")
	dedup := newDedupSet()
	var rejects []core.RejectedRecord

	if len(a.ExplicitIDs) > 0 && a.literature != nil {
		papers, err := a.literature.FetchByIDs(ctx, a.ExplicitIDs)
		if err != nil {
			return nil, nil, err
		}
		dedup.addAll(papers, SourceExplicit)
	}

	if a.cfg.CuratedEnabled {
		papers, curatedRejects, err := LoadCurated()
		if err != nil {
			return nil, nil, core.NewAcquisitionError("curated ingest failed", err)
		}
		rejects = append(rejects, curatedRejects...)
		dedup.addAll(papers, SourceCurated)
		log.Info().Int("count", len(papers)).Msg("curated records ingested")
	}

	if a.literature != nil && len(a.ExplicitIDs) == 0 {
		remaining := a.cfg.MaxPapers - dedup.len()
		if remaining > 0 {
			papers, err := a.literature.Search(ctx, a.cfg.SearchTerms, remaining)
			if err != nil {
				return nil, nil, err
			}
			dedup.addAll(papers, SourceLiterature)
			log.Info().Int("count", len(papers)).Msg("literature search complete")
		}
	}

	// Secondary source failures never stop the stage.
	for _, adapter := range a.secondary {
		papers, err := adapter.Fetch(ctx)
		if err != nil {
			log.Warn().Str("source", adapter.Tag()).Err(err).Msg("secondary source failed")
			continue
		}
		dedup.addAll(papers, adapter.Tag())
		log.Info().Str("source", adapter.Tag()).Int("count", len(papers)).Msg("secondary source ingested")
	}

	papers := dedup.papers()

	if a.SkipIDs != nil {
		var delta []*core.Paper
		for _, p := range papers {
			if !a.SkipIDs[p.LiteratureID] {
				delta = append(delta, p)
			}
		}
		log.Info().Int("skipped", len(papers)-len(delta)).Msg("incremental filter applied")
		papers = delta
	}

	// Validate and cap.
	var out []*core.Paper
	for _, p := range papers {
		if p.LiteratureID == "" {
			rejects = append(rejects, core.RejectedRecord{
				Stage: "acquisition", Reason: "missing_literature_id", Message: p.Title,
			})
			continue
		}
		if p.Title == "" {
			rejects = append(rejects, core.RejectedRecord{
				Stage: "acquisition", RecordID: p.LiteratureID, Reason: "missing_title",
			})
			continue
		}
		if p.Abstract == "" {
			// Kept but marked; it will not survive preprocessing.
			rejects = append(rejects, core.RejectedRecord{
				Stage: "acquisition", RecordID: p.LiteratureID, Reason: "missing_abstract",
				Message: "record will be dropped at preprocessing",
			})
		}
		out = append(out, p)
		if len(out) >= a.cfg.MaxPapers {
			break
		}
	}

	if len(out) == 0 && a.SkipIDs == nil {
		return nil, rejects, core.NewAcquisitionError("zero papers acquired", nil)
	}
	return out, rejects, nil
}

// dedupSet implements first-write-wins dedup on literature ID. Later
// duplicates only union their source tag onto the kept record. Insertion order
// is preserved for stable output.
type dedupSet struct {
	order []string
	byID  map[string]*core.Paper
}

func newDedupSet() *dedupSet {
	return &dedupSet{byID: make(map[string]*core.Paper)}
}

func (d *dedupSet) addAll(papers []*core.Paper, sourceTag string) {
	for _, p := range papers {
		d.add(p, sourceTag)
	}
}

func (d *dedupSet) add(p *core.Paper, sourceTag string) {
	if p == nil || p.LiteratureID == "" {
		return
	}
	if existing, ok := d.byID[p.LiteratureID]; ok {
		existing.AddSourceTag(sourceTag)
		return
	}
	p.AddSourceTag(sourceTag)
	d.byID[p.LiteratureID] = p
	d.order = append(d.order, p.LiteratureID)
}

func (d *dedupSet) len() int { return len(d.order) }

func (d *dedupSet) papers() []*core.Paper {
	out := make([]*core.Paper, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.byID[id])
	}
	return out
}

// NewSourceAdapter resolves a configured secondary source tag to its adapter.
func NewSourceAdapter(tag string) (SourceAdapter, error) {
	if factory, ok := adapterRegistry[tag]; ok {
		return factory()
	}
	return nil, fmt.Errorf("no adapter registered for source %q", tag)
}
