package store

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/ewa/raredx/internal/models"
	"github.com/ewa/raredx/internal/types"
)

// PGCollection stores chunks in PostgreSQL with the pgvector extension.
// Reset semantics drop and recreate the table instead of removing a
// directory.
type PGCollection struct {
	config StoreConfig
	pool   *pgxpool.Pool
}

func resetPostgres(ctx context.Context, config StoreConfig) (types.Collection, error) {
	c, err := connectPostgres(ctx, config)
	if err != nil {
		return nil, err
	}

	if _, err := c.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", config.TableName)); err != nil {
		c.pool.Close()
		log.Printf("failed to drop table %s: %v", config.TableName, err)
		return nil, fmt.Errorf("failed to drop table %s: %w", config.TableName, err)
	}

	if err := c.initialize(ctx); err != nil {
		c.pool.Close()
		return nil, err
	}
	return c, nil
}

func openPostgres(ctx context.Context, config StoreConfig) (types.Collection, error) {
	c, err := connectPostgres(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := c.initialize(ctx); err != nil {
		c.pool.Close()
		return nil, err
	}
	return c, nil
}

func connectPostgres(ctx context.Context, config StoreConfig) (*PGCollection, error) {
	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		log.Printf("failed to connect to database: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &PGCollection{
		config: config,
		pool:   pool,
	}, nil
}

func (c *PGCollection) initialize(ctx context.Context) error {
	if _, err := c.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT,
			embedding vector(%d),
			metadata JSONB
		)`, c.config.TableName, c.config.VectorDim)

	if _, err := c.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		c.config.TableName, c.config.TableName)

	if _, err := c.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func (c *PGCollection) Upsert(ctx context.Context, chunks []models.Chunk) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		c.config.TableName)

	for _, chunk := range chunks {
		_, err := tx.Exec(ctx, stmt,
			chunk.ID,
			chunk.Text,
			pgvector.NewVector(chunk.Vector),
			chunk.Metadata,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (c *PGCollection) Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]models.ScoredChunk, error) {
	query := fmt.Sprintf(`
		SELECT id, content, metadata, embedding <=> $1 AS distance
		FROM %s`,
		c.config.TableName)

	args := []interface{}{pgvector.NewVector(vector)}

	predicate, args := filterPredicate(args, filter)
	query += predicate

	query += fmt.Sprintf(" ORDER BY distance LIMIT $%d", len(args)+1)
	args = append(args, topK)

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.ScoredChunk
	for rows.Next() {
		var chunk models.ScoredChunk
		var distance float64
		if err := rows.Scan(&chunk.ID, &chunk.Text, &chunk.Metadata, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		chunk.Score = 1 - distance
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return chunks, nil
}

// filterPredicate renders a metadata equality filter as WHERE/AND
// predicates. Both keys and values are bound as parameters so no filter
// content ever lands in the SQL text.
func filterPredicate(args []interface{}, filter map[string]string) (string, []interface{}) {
	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var predicate string
	for i, key := range keys {
		clause := "WHERE"
		if i > 0 {
			clause = "AND"
		}
		predicate += fmt.Sprintf(" %s metadata->>$%d = $%d", clause, len(args)+1, len(args)+2)
		args = append(args, key, filter[key])
	}
	return predicate, args
}

func (c *PGCollection) Count(ctx context.Context) (int64, error) {
	var count int64
	query := fmt.Sprintf("SELECT count(*) FROM %s", c.config.TableName)
	if err := c.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

func (c *PGCollection) Close() error {
	c.pool.Close()
	return nil
}
