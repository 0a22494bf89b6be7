package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/NimaFathima/astrobiomers/internal/core"
)

// schemaStatements builds the idempotent constraint and index DDL: uniqueness
// on every natural key plus the query-path indexes.
func schemaStatements() []string {
	stmts := []string{
		"CREATE CONSTRAINT paper_literature_id IF NOT EXISTS FOR (p:Paper) REQUIRE p.literature_id IS UNIQUE",
		"CREATE CONSTRAINT topic_topic_id IF NOT EXISTS FOR (t:Topic) REQUIRE t.topic_id IS UNIQUE",
		"CREATE INDEX paper_publication_year IF NOT EXISTS FOR (p:Paper) ON (p.publication_year)",
	}
	for _, t := range core.EntityTypes {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE CONSTRAINT %s_normalized_key IF NOT EXISTS FOR (e:%s) REQUIRE e.normalized_key IS UNIQUE",
			strings.ToLower(string(t)), t))
	}
	return stmts
}

// EnsureSchema creates missing constraints and indexes. A failure here is
// fatal for the load.
func (c *Client) EnsureSchema(ctx context.Context) error {
	session := c.session(ctx)
	defer session.Close(ctx)

	for _, stmt := range schemaStatements() {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			_, err := tx.Run(ctx, stmt, nil)
			return nil, err
		})
		if err != nil {
			return core.NewExternalServiceError("graph", "schema", fmt.Errorf("%s: %w", stmt, err))
		}
	}
	return nil
}
