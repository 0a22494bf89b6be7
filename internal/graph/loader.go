package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/NimaFathima/astrobiomers/internal/config"
	"github.com/NimaFathima/astrobiomers/internal/logger"
)

// batchRetries is how often a failing batch is retried before quarantine.
const batchRetries = 3

// Report summarizes one load: counts per node label and edge type, plus
// quarantined batches.
type Report struct {
	NodeCounts     map[string]int `json:"node_counts"`
	EdgeCounts     map[string]int `json:"edge_counts"`
	TotalNodes     int            `json:"total_nodes"`
	TotalEdges     int            `json:"total_edges"`
	RejectedBatches int           `json:"rejected_batches"`
	Mode           string         `json:"mode"`
}

// rejectedBatch is one quarantined batch written to the rejection file.
type rejectedBatch struct {
	Kind    string `json:"kind"`
	Label   string `json:"label,omitempty"`
	Type    string `json:"type,omitempty"`
	Rows    int    `json:"rows"`
	Message string `json:"message"`
}

// Loader executes a Plan against the graph store. Each batch is one
// transaction; a persistently failing batch is quarantined to the rejection
// file and the load continues unless failFast is set.
type Loader struct {
	client   *Client
	cfg      config.Graph
	failFast bool
	// rejectionPath receives quarantined batches; empty disables the file.
	rejectionPath string
}

// NewLoader builds a loader over an open client.
func NewLoader(client *Client, cfg config.Graph, failFast bool, rejectionPath string) *Loader {
	return &Loader{client: client, cfg: cfg, failFast: failFast, rejectionPath: rejectionPath}
}

// Load ensures the schema and materializes the plan: nodes in label order,
// then edges, upserted by natural key.
func (l *Loader) Load(ctx context.Context, plan *Plan) (*Report, error) {
	log := logger.With("graph")
	if err := l.client.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	report := &Report{
		NodeCounts: make(map[string]int),
		EdgeCounts: make(map[string]int),
		Mode:       l.cfg.Mode,
	}
	var rejected []rejectedBatch

	if l.cfg.Mode == "replace" {
		if err := l.deleteExisting(ctx, plan); err != nil {
			return nil, err
		}
	}

	for _, batch := range plan.NodeBatches {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		err := l.runBatch(ctx, func(tx neo4j.ManagedTransaction) error {
			return mergeNodes(ctx, tx, batch)
		})
		if err != nil {
			rejected = append(rejected, rejectedBatch{
				Kind: "nodes", Label: batch.Label, Rows: len(batch.Rows), Message: err.Error(),
			})
			if l.failFast {
				l.writeRejections(rejected, report)
				return report, err
			}
			continue
		}
		report.NodeCounts[batch.Label] += len(batch.Rows)
		report.TotalNodes += len(batch.Rows)
	}

	for _, batch := range plan.EdgeBatches {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		err := l.runBatch(ctx, func(tx neo4j.ManagedTransaction) error {
			return mergeEdges(ctx, tx, batch)
		})
		if err != nil {
			rejected = append(rejected, rejectedBatch{
				Kind: "edges", Type: batch.Type, Rows: len(batch.Rows), Message: err.Error(),
			})
			if l.failFast {
				l.writeRejections(rejected, report)
				return report, err
			}
			continue
		}
		report.EdgeCounts[batch.Type] += len(batch.Rows)
		report.TotalEdges += len(batch.Rows)
	}

	l.writeRejections(rejected, report)
	log.Info().
		Int("nodes", report.TotalNodes).
		Int("edges", report.TotalEdges).
		Int("rejected_batches", report.RejectedBatches).
		Msg("graph load complete")
	return report, nil
}

// runBatch executes one transactional batch with retry and backoff.
func (l *Loader) runBatch(ctx context.Context, work func(neo4j.ManagedTransaction) error) error {
	session := l.client.session(ctx)
	defer session.Close(ctx)

	operation := func() error {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return nil, work(tx)
		})
		return err
	}
	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(time.Second),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
	), batchRetries)
	return backoff.Retry(operation, backoff.WithContext(policy, ctx))
}

// deleteExisting removes nodes whose keys appear in the input before a
// replace-mode load.
func (l *Loader) deleteExisting(ctx context.Context, plan *Plan) error {
	for _, batch := range plan.NodeBatches {
		keys := make([]map[string]any, 0, len(batch.Rows))
		for _, row := range batch.Rows {
			keys = append(keys, row.Key)
		}
		query := fmt.Sprintf(
			"UNWIND $keys AS key MATCH (n:%s) WHERE %s DETACH DELETE n",
			batch.Label, keyPredicate(batch.Rows[0].Key, "n"))
		err := l.runBatch(ctx, func(tx neo4j.ManagedTransaction) error {
			_, err := tx.Run(ctx, query, map[string]any{"keys": keys})
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeNodes(ctx context.Context, tx neo4j.ManagedTransaction, batch NodeBatch) error {
	rows := make([]map[string]any, 0, len(batch.Rows))
	for _, row := range batch.Rows {
		rows = append(rows, map[string]any{"key": row.Key, "props": row.Props})
	}
	query := fmt.Sprintf(
		"UNWIND $rows AS row MERGE (n:%s {%s}) SET n += row.props",
		batch.Label, keyMergePattern(batch.Rows[0].Key))
	_, err := tx.Run(ctx, query, map[string]any{"rows": rows})
	return err
}

// mergeEdges upserts by (source, type, target). Evidence-carrying properties
// are recomputed in the plan; the store-side merge takes the max headline
// confidence and the union of the stored and incoming evidence key sets so
// re-loads and incremental loads both converge.
func mergeEdges(ctx context.Context, tx neo4j.ManagedTransaction, batch EdgeBatch) error {
	rows := make([]map[string]any, 0, len(batch.Rows))
	for _, row := range batch.Rows {
		rows = append(rows, map[string]any{
			"src":   row.SourceKey,
			"dst":   row.TargetKey,
			"props": row.Props,
		})
	}
	sample := batch.Rows[0]
	_, withEvidence := sample.Props["evidence_keys"]

	var set string
	if withEvidence {
		// Union the evidence key set, recompute the count from the union, and
		// keep the maximum headline confidence, so re-loads are no-ops and
		// incremental loads accumulate.
		set = `
SET r.evidence_keys = [x IN coalesce(r.evidence_keys, []) WHERE NOT x IN row.props.evidence_keys] + row.props.evidence_keys
SET r.evidence_count = size(r.evidence_keys)
SET r.evidence_sample = row.props.evidence_sample
SET r.headline_confidence = CASE
  WHEN r.headline_confidence IS NULL OR row.props.headline_confidence > r.headline_confidence
  THEN row.props.headline_confidence ELSE r.headline_confidence END`
	} else {
		set = "\nSET r += row.props"
	}

	query := fmt.Sprintf(`UNWIND $rows AS row
MATCH (a:%s {%s})
MATCH (b:%s {%s})
MERGE (a)-[r:%s]->(b)%s`,
		batch.SourceLabel, keyMergePatternNamed(sample.SourceKey, "src"),
		batch.TargetLabel, keyMergePatternNamed(sample.TargetKey, "dst"),
		batch.Type, set)
	_, err := tx.Run(ctx, query, map[string]any{"rows": rows})
	return err
}

// keyMergePattern renders "k1: row.key.k1, ..." for node merges.
func keyMergePattern(key map[string]any) string {
	return renderKeys(key, "row.key")
}

func keyMergePatternNamed(key map[string]any, field string) string {
	return renderKeys(key, "row."+field)
}

func renderKeys(key map[string]any, prefix string) string {
	out := ""
	for _, name := range sortedKeyNames(key) {
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%s: %s.%s", name, prefix, name)
	}
	return out
}

func keyPredicate(key map[string]any, node string) string {
	out := ""
	for _, name := range sortedKeyNames(key) {
		if out != "" {
			out += " AND "
		}
		out += fmt.Sprintf("%s.%s = key.%s", node, name, name)
	}
	return out
}

func sortedKeyNames(key map[string]any) []string {
	names := make([]string, 0, len(key))
	for name := range key {
		names = append(names, name)
	}
	// Natural keys are single-field today; sorting keeps multi-field keys
	// deterministic if they appear.
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			if names[j] < names[i] {
				names[i], names[j] = names[j], names[i]
			}
		}
	}
	return names
}

func (l *Loader) writeRejections(rejected []rejectedBatch, report *Report) {
	report.RejectedBatches = len(rejected)
	if len(rejected) == 0 || l.rejectionPath == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(l.rejectionPath), 0o755); err != nil {
		return
	}
	data, err := json.MarshalIndent(rejected, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(l.rejectionPath, data, 0o644)
}

// ExistingPaperIDs returns the literature ids already present in the graph.
// Incremental runs acquire only papers outside this set.
func (c *Client) ExistingPaperIDs(ctx context.Context) (map[string]bool, error) {
	session := c.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, "MATCH (p:Paper) RETURN p.literature_id AS id", nil)
		if err != nil {
			return nil, err
		}
		ids := make(map[string]bool)
		for records.Next(ctx) {
			if id, ok := records.Record().Get("id"); ok {
				if s, ok := id.(string); ok {
					ids[s] = true
				}
			}
		}
		return ids, records.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]bool), nil
}
