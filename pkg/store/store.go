package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ewa/raredx/internal/types"
)

// StoreConfig selects and configures a collection backend.
type StoreConfig struct {
	Backend    string // "local" or "postgres"
	Collection string
	VectorDim  int

	// local backend
	PersistDir  string
	SettleDelay time.Duration // wait after wiping the persist dir

	// postgres backend
	ConnString string
	TableName  string
	BatchSize  int
}

func (c StoreConfig) withDefaults() StoreConfig {
	if c.Backend == "" {
		c.Backend = "local"
	}
	if c.Collection == "" {
		c.Collection = "rare_diseases_collection"
	}
	if c.VectorDim == 0 {
		c.VectorDim = 768
	}
	if c.PersistDir == "" {
		c.PersistDir = "./vector_db"
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = 2 * time.Second
	}
	if c.TableName == "" {
		c.TableName = "disease_chunks"
	}
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
	return c
}

// ResetAndCreate destroys any existing collection with the configured name,
// including its on-disk contents, and returns a fresh writable collection.
// Callers that depended on the old collection lose it; use Open to attach
// without wiping.
func ResetAndCreate(ctx context.Context, config StoreConfig) (types.Collection, error) {
	config = config.withDefaults()

	switch config.Backend {
	case "local":
		return resetLocal(ctx, config)
	case "postgres":
		return resetPostgres(ctx, config)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", config.Backend)
	}
}

// Open attaches to an existing collection without destroying prior data,
// creating it only if it does not exist yet.
func Open(ctx context.Context, config StoreConfig) (types.Collection, error) {
	config = config.withDefaults()

	switch config.Backend {
	case "local":
		return openLocal(ctx, config)
	case "postgres":
		return openPostgres(ctx, config)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", config.Backend)
	}
}
