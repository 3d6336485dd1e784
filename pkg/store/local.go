package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/liliang-cn/sqvect/v2/pkg/core"
	"github.com/liliang-cn/sqvect/v2/pkg/sqvect"

	"github.com/ewa/raredx/internal/models"
	"github.com/ewa/raredx/internal/types"
)

const localDBFile = "vectors.db"

// LocalCollection is the embedded collection backend: a single SQLite file
// under the persistence directory, cosine similarity, no server required.
type LocalCollection struct {
	db         *sqvect.DB
	store      core.Store
	collection string
}

func resetLocal(ctx context.Context, config StoreConfig) (types.Collection, error) {
	if _, err := os.Stat(config.PersistDir); err == nil {
		if err := os.RemoveAll(config.PersistDir); err != nil {
			log.Printf("failed to remove persist dir %s: %v", config.PersistDir, err)
			return nil, fmt.Errorf("failed to remove persist dir %s: %w", config.PersistDir, err)
		}
		// Let filesystem handles settle before recreating the directory.
		select {
		case <-time.After(config.SettleDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return openLocal(ctx, config)
}

func openLocal(ctx context.Context, config StoreConfig) (types.Collection, error) {
	if err := os.MkdirAll(config.PersistDir, 0o755); err != nil {
		log.Printf("failed to create persist dir %s: %v", config.PersistDir, err)
		return nil, fmt.Errorf("failed to create persist dir %s: %w", config.PersistDir, err)
	}

	db, err := sqvect.Open(sqvect.Config{
		Path:         filepath.Join(config.PersistDir, localDBFile),
		Dimensions:   config.VectorDim,
		SimilarityFn: core.CosineSimilarity,
		IndexType:    core.IndexTypeFlat,
	})
	if err != nil {
		log.Printf("failed to open vector database: %v", err)
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}

	vectors := db.Vector()

	// Dimensionality is recorded on the collection but not enforced here;
	// a mismatched embedding size is a configuration error.
	if _, err := vectors.GetCollection(ctx, config.Collection); err != nil {
		if _, err := vectors.CreateCollection(ctx, config.Collection, config.VectorDim); err != nil {
			db.Close()
			log.Printf("failed to create collection %s: %v", config.Collection, err)
			return nil, fmt.Errorf("failed to create collection %s: %w", config.Collection, err)
		}
	}

	return &LocalCollection{
		db:         db,
		store:      vectors,
		collection: config.Collection,
	}, nil
}

func (c *LocalCollection) Upsert(ctx context.Context, chunks []models.Chunk) error {
	embeddings := make([]*core.Embedding, 0, len(chunks))
	for _, chunk := range chunks {
		embeddings = append(embeddings, &core.Embedding{
			ID:         chunk.ID,
			Collection: c.collection,
			Vector:     chunk.Vector,
			Content:    chunk.Text,
			Metadata:   chunk.Metadata,
		})
	}

	if err := c.store.UpsertBatch(ctx, embeddings); err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}
	return nil
}

func (c *LocalCollection) Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]models.ScoredChunk, error) {
	results, err := c.store.Search(ctx, vector, core.SearchOptions{
		Collection: c.collection,
		TopK:       topK,
		Filter:     filter,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search collection: %w", err)
	}

	chunks := make([]models.ScoredChunk, 0, len(results))
	for _, result := range results {
		chunks = append(chunks, models.ScoredChunk{
			Chunk: models.Chunk{
				ID:       result.ID,
				Text:     result.Content,
				Vector:   result.Vector,
				Metadata: result.Metadata,
			},
			Score: result.Score,
		})
	}
	return chunks, nil
}

func (c *LocalCollection) Count(ctx context.Context) (int64, error) {
	stats, err := c.store.GetCollectionStats(ctx, c.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to read collection stats: %w", err)
	}
	return stats.Count, nil
}

func (c *LocalCollection) Close() error {
	return c.db.Close()
}
