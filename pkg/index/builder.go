package index

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ewa/raredx/internal/models"
	"github.com/ewa/raredx/internal/types"
)

// BuilderConfig wires the external collaborators of the index build:
// the splitter fixes chunk boundaries, the embedder computes vectors and
// the collection persists them.
type BuilderConfig struct {
	Splitter   types.TextSplitter
	Embedder   types.Embedder
	Collection types.Collection
	OnProgress func(done, total int)
}

type Builder struct {
	config BuilderConfig
}

func NewWithConfig(config BuilderConfig) (*Builder, error) {
	if config.Splitter == nil {
		return nil, fmt.Errorf("splitter is required")
	}
	if config.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if config.Collection == nil {
		return nil, fmt.Errorf("collection is required")
	}
	return &Builder{config: config}, nil
}

// Build chunks every document, embeds the chunks and inserts them into the
// collection with the parent document's metadata unchanged. The build is
// all-or-nothing: the first error aborts it and no partial index is
// presented as usable.
func (b *Builder) Build(ctx context.Context, documents []models.Document) error {
	for i, doc := range documents {
		if err := b.indexDocument(ctx, doc); err != nil {
			return fmt.Errorf("failed to index document %d: %w", i, err)
		}
		if b.config.OnProgress != nil {
			b.config.OnProgress(i+1, len(documents))
		}
	}
	return nil
}

func (b *Builder) indexDocument(ctx context.Context, doc models.Document) error {
	texts, err := b.config.Splitter.SplitText(doc.Text)
	if err != nil {
		return fmt.Errorf("failed to split document: %w", err)
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := b.config.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
	}

	chunks := make([]models.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, models.Chunk{
			ID:       uuid.NewString(),
			Text:     text,
			Vector:   vectors[i],
			Metadata: doc.Metadata,
		})
	}

	if err := b.config.Collection.Upsert(ctx, chunks); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	return nil
}
