// Package graph materializes the typed knowledge graph into Neo4j with an
// idempotent, batched load protocol, and exposes the read interface consumed
// by the API layer.
package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/NimaFathima/astrobiomers/internal/config"
)

// Client wraps the Neo4j driver for the loader and reader. Only the loader
// writes; the orchestrator enforces that no other stage holds a connection.
type Client struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewClient connects to the configured graph store.
func NewClient(cfg config.Graph) (*Client, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.Endpoint,
		neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, err
	}
	db := cfg.Database
	if db == "" {
		db = "neo4j"
	}
	return &Client{driver: driver, database: db}, nil
}

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

// Close releases the driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func (c *Client) session(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: c.database})
}
