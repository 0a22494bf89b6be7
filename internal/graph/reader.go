package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Statistics is the aggregate view the external API layer consumes.
type Statistics struct {
	NodeCounts         map[string]int `json:"node_counts"`
	RelationshipCounts map[string]int `json:"relationship_counts"`
	TotalNodes         int            `json:"total_nodes"`
	TotalRelationships int            `json:"total_relationships"`
}

// GetGraphStatistics counts nodes per label and relationships per type.
func (c *Client) GetGraphStatistics(ctx context.Context) (*Statistics, error) {
	session := c.session(ctx)
	defer session.Close(ctx)

	stats := &Statistics{
		NodeCounts:         make(map[string]int),
		RelationshipCounts: make(map[string]int),
	}

	_, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (n) UNWIND labels(n) AS label RETURN label, count(*) AS c", nil)
		if err != nil {
			return nil, err
		}
		for records.Next(ctx) {
			rec := records.Record()
			label, _ := rec.Get("label")
			count, _ := rec.Get("c")
			stats.NodeCounts[label.(string)] = int(count.(int64))
			stats.TotalNodes += int(count.(int64))
		}
		if err := records.Err(); err != nil {
			return nil, err
		}

		records, err = tx.Run(ctx,
			"MATCH ()-[r]->() RETURN type(r) AS t, count(*) AS c", nil)
		if err != nil {
			return nil, err
		}
		for records.Next(ctx) {
			rec := records.Record()
			relType, _ := rec.Get("t")
			count, _ := rec.Get("c")
			stats.RelationshipCounts[relType.(string)] = int(count.(int64))
			stats.TotalRelationships += int(count.(int64))
		}
		return nil, records.Err()
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// ExecuteQuery is the parameterized pass-through for the API layer. The query
// is not interpreted here.
func (c *Client) ExecuteQuery(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	session := c.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		var out []map[string]any
		for records.Next(ctx) {
			out = append(out, records.Record().AsMap())
		}
		return out, records.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]map[string]any), nil
}
