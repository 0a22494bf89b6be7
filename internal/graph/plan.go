package graph

import (
	"fmt"
	"sort"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// Edge type names beyond the per-predicate edges.
const (
	EdgeMentions  = "MENTIONS"
	EdgeHasTopic  = "HAS_TOPIC"
	EdgeStudiedIn = "STUDIED_IN"
)

// evidenceSampleLimit caps the evidence_sample property per edge.
const evidenceSampleLimit = 10

// NodeRow is one upsert row for a node batch.
type NodeRow struct {
	Label string
	Key   map[string]any
	Props map[string]any
}

// EdgeRow is one upsert row for an edge batch.
type EdgeRow struct {
	Type        string
	SourceLabel string
	SourceKey   map[string]any
	TargetLabel string
	TargetKey   map[string]any
	Props       map[string]any
}

// Plan is the fully materialized, ordered load: nodes before edges, papers
// before entities before topics. Building the plan is pure so idempotence is
// decided here, not in the store round-trip.
type Plan struct {
	NodeBatches []NodeBatch
	EdgeBatches []EdgeBatch
}

// NodeBatch groups same-label node rows for one UNWIND merge.
type NodeBatch struct {
	Label string
	Rows  []NodeRow
}

// EdgeBatch groups same-type, same-endpoint-label edge rows.
type EdgeBatch struct {
	Type        string
	SourceLabel string
	TargetLabel string
	Rows        []EdgeRow
}

// Input carries everything the loader materializes.
type Input struct {
	Papers        []*core.Paper
	Entities      []*core.Entity
	Relationships []*core.Relationship
	Assignments   []core.TopicAssignment
	Topics        []core.Topic

	// IncludeCooccurrence controls whether ASSOCIATED_WITH edges are loaded;
	// they are noisy and excluded by default.
	IncludeCooccurrence bool
}

// BuildPlan produces the deterministic load plan. Running it twice over the
// same input yields identical batches: rows are sorted by natural key and
// evidence lists are dedup-sorted sets.
func BuildPlan(in Input, batchSize int) (*Plan, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be >= 1, got %d", batchSize)
	}
	plan := &Plan{}

	// Paper nodes.
	paperRows := make([]NodeRow, 0, len(in.Papers))
	for _, p := range in.Papers {
		paperRows = append(paperRows, NodeRow{
			Label: "Paper",
			Key:   map[string]any{"literature_id": p.LiteratureID},
			Props: map[string]any{
				"title":            p.Title,
				"abstract":         p.Abstract,
				"authors":          p.Authors,
				"publication_year": yearOrNil(p.PublicationYear),
				"journal":          p.Journal,
				"source_tags":      p.SourceTags,
				"keywords":         p.Keywords,
			},
		})
	}
	sort.Slice(paperRows, func(i, j int) bool {
		return paperRows[i].Key["literature_id"].(string) < paperRows[j].Key["literature_id"].(string)
	})
	plan.appendNodeBatches("Paper", paperRows, batchSize)

	// Entity nodes, one label per type, in stable type order.
	byType := make(map[core.EntityType][]*core.Entity)
	for _, e := range in.Entities {
		byType[e.Type] = append(byType[e.Type], e)
	}
	for _, t := range core.EntityTypes {
		entities := byType[t]
		if len(entities) == 0 {
			continue
		}
		core.SortEntities(entities)
		rows := make([]NodeRow, 0, len(entities))
		for _, e := range entities {
			rows = append(rows, NodeRow{
				Label: string(t),
				Key:   map[string]any{"normalized_key": e.NormalizedKey},
				Props: map[string]any{
					"canonical_name": e.CanonicalName,
					"aliases":        e.Aliases,
					"external_ids":   externalIDStrings(e.ExternalIDs),
					"ontology_terms": ontologyRefStrings(e.OntologyRefs),
					"resolved":       e.Resolved,
					"mention_count":  e.MentionCount,
					"paper_count":    e.PaperCount,
				},
			})
		}
		plan.appendNodeBatches(string(t), rows, batchSize)
	}

	// Topic nodes.
	topics := append([]core.Topic(nil), in.Topics...)
	sort.Slice(topics, func(i, j int) bool { return topics[i].TopicID < topics[j].TopicID })
	topicRows := make([]NodeRow, 0, len(topics))
	for _, t := range topics {
		keywords := make([]string, 0, len(t.Keywords))
		for _, kw := range t.Keywords {
			keywords = append(keywords, kw.Keyword)
		}
		topicRows = append(topicRows, NodeRow{
			Label: "Topic",
			Key:   map[string]any{"topic_id": t.TopicID},
			Props: map[string]any{
				"label":     t.Label,
				"keywords":  keywords,
				"coherence": t.Coherence,
				"size":      t.Size,
			},
		})
	}
	plan.appendNodeBatches("Topic", topicRows, batchSize)

	// MENTIONS and STUDIED_IN edges from entity tallies.
	var mentionRows, studiedRows []EdgeRow
	for _, t := range core.EntityTypes {
		for _, e := range byType[t] {
			paperIDs := make([]string, 0, len(e.MentionsByPaper))
			for paperID := range e.MentionsByPaper {
				paperIDs = append(paperIDs, paperID)
			}
			sort.Strings(paperIDs)
			for _, paperID := range paperIDs {
				mentionRows = append(mentionRows, EdgeRow{
					Type:        EdgeMentions,
					SourceLabel: "Paper",
					SourceKey:   map[string]any{"literature_id": paperID},
					TargetLabel: string(e.Type),
					TargetKey:   map[string]any{"normalized_key": e.NormalizedKey},
					Props:       map[string]any{"mention_count": e.MentionsByPaper[paperID]},
				})
				if e.Type == core.EntityOrganism {
					studiedRows = append(studiedRows, EdgeRow{
						Type:        EdgeStudiedIn,
						SourceLabel: "Paper",
						SourceKey:   map[string]any{"literature_id": paperID},
						TargetLabel: string(core.EntityOrganism),
						TargetKey:   map[string]any{"normalized_key": e.NormalizedKey},
						Props:       map[string]any{},
					})
				}
			}
		}
	}
	plan.appendEdgeBatchesGrouped(mentionRows, batchSize)
	plan.appendEdgeBatchesGrouped(studiedRows, batchSize)

	// HAS_TOPIC edges.
	assignments := append([]core.TopicAssignment(nil), in.Assignments...)
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].PaperID < assignments[j].PaperID })
	var topicEdges []EdgeRow
	for _, a := range assignments {
		topicEdges = append(topicEdges, EdgeRow{
			Type:        EdgeHasTopic,
			SourceLabel: "Paper",
			SourceKey:   map[string]any{"literature_id": a.PaperID},
			TargetLabel: "Topic",
			TargetKey:   map[string]any{"topic_id": a.TopicID},
			Props:       map[string]any{},
		})
	}
	plan.appendEdgeBatchesGrouped(topicEdges, batchSize)

	// Predicate edges.
	rels := append([]*core.Relationship(nil), in.Relationships...)
	core.SortRelationships(rels)
	var relRows []EdgeRow
	for _, rel := range rels {
		if rel.Predicate == core.PredicateAssociatedWith && !in.IncludeCooccurrence {
			continue
		}
		evidence := dedupEvidence(rel.Evidence)
		keys := make([]string, 0, len(evidence))
		for _, ev := range evidence {
			keys = append(keys, fmt.Sprintf("%s#%d#%s", ev.PaperID, ev.SentenceIndex, ev.Extractor))
		}
		sample := make([]string, 0, evidenceSampleLimit)
		for _, ev := range evidence {
			if len(sample) == evidenceSampleLimit {
				break
			}
			sample = append(sample, fmt.Sprintf("%s#%d", ev.PaperID, ev.SentenceIndex))
		}
		relRows = append(relRows, EdgeRow{
			Type:        string(rel.Predicate),
			SourceLabel: string(rel.Subject.Type),
			SourceKey:   map[string]any{"normalized_key": rel.Subject.NormalizedKey},
			TargetLabel: string(rel.Object.Type),
			TargetKey:   map[string]any{"normalized_key": rel.Object.NormalizedKey},
			Props: map[string]any{
				"headline_confidence": rel.Confidence,
				"evidence_keys":       keys,
				"evidence_sample":     sample,
			},
		})
	}
	plan.appendEdgeBatchesGrouped(relRows, batchSize)

	return plan, nil
}

func (p *Plan) appendNodeBatches(label string, rows []NodeRow, batchSize int) {
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		p.NodeBatches = append(p.NodeBatches, NodeBatch{Label: label, Rows: rows[start:end]})
	}
}

// appendEdgeBatchesGrouped splits rows by (type, source label, target label)
// so each batch runs as one UNWIND statement, preserving row order.
func (p *Plan) appendEdgeBatchesGrouped(rows []EdgeRow, batchSize int) {
	type groupKey struct{ t, s, d string }
	var order []groupKey
	groups := make(map[groupKey][]EdgeRow)
	for _, row := range rows {
		k := groupKey{row.Type, row.SourceLabel, row.TargetLabel}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], row)
	}
	for _, k := range order {
		group := groups[k]
		for start := 0; start < len(group); start += batchSize {
			end := start + batchSize
			if end > len(group) {
				end = len(group)
			}
			p.EdgeBatches = append(p.EdgeBatches, EdgeBatch{
				Type:        k.t,
				SourceLabel: k.s,
				TargetLabel: k.d,
				Rows:        group[start:end],
			})
		}
	}
}

// dedupEvidence returns the evidence list as a sorted set keyed by
// (paper, sentence, extractor).
func dedupEvidence(evidence []core.Evidence) []core.Evidence {
	seen := make(map[string]bool, len(evidence))
	var out []core.Evidence
	for _, ev := range evidence {
		k := fmt.Sprintf("%s#%d#%s", ev.PaperID, ev.SentenceIndex, ev.Extractor)
		if !seen[k] {
			seen[k] = true
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PaperID != out[j].PaperID {
			return out[i].PaperID < out[j].PaperID
		}
		if out[i].SentenceIndex != out[j].SentenceIndex {
			return out[i].SentenceIndex < out[j].SentenceIndex
		}
		return out[i].Extractor < out[j].Extractor
	})
	return out
}

func yearOrNil(year int) any {
	if year == 0 {
		return nil
	}
	return year
}

func externalIDStrings(ids []core.ExternalID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Registry+":"+id.PrimaryID)
	}
	sort.Strings(out)
	return out
}

func ontologyRefStrings(refs []core.OntologyRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.TermID)
	}
	return out
}
