package types

import (
	"context"
	"errors"

	"github.com/ewa/raredx/internal/models"
)

// Core interfaces. Production implementations live in pkg/llm and pkg/store;
// tests substitute fakes.

// Embedder turns text into fixed-length vectors. Matches the shape of
// langchaingo's embeddings.Embedder so the production client drops in.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// TextSplitter splits a document's text into chunks. Satisfied by
// langchaingo's textsplitter implementations.
type TextSplitter interface {
	SplitText(text string) ([]string, error)
}

// Collection is a named persistent store of embedded chunks supporting
// top-k similarity search with optional exact-match metadata filtering.
type Collection interface {
	Upsert(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

// Synthesizer combines retrieved chunks into one coherent answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, chunks []models.ScoredChunk) (string, error)
}

// SystemState tracks the pipeline lifecycle. Only Ready accepts queries;
// there is no transition back to Building without a process restart.
type SystemState int32

const (
	StateUninitialized SystemState = iota
	StateBuilding
	StateReady
	StateFailed
)

func (s SystemState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AllDiseases is the sentinel scope meaning "do not filter retrieval".
const AllDiseases = "All Diseases"

// ErrNotReady is returned when a query arrives before the index is built
// or after initialization has failed.
var ErrNotReady = errors.New("system is not ready")

// QueryRequest is one user question, optionally scoped to a disease.
type QueryRequest struct {
	Question string `json:"question"`
	Disease  string `json:"disease,omitempty"`
}

// Scoped reports whether the request targets a specific disease rather
// than the AllDiseases sentinel.
func (q QueryRequest) Scoped() bool {
	return q.Disease != "" && q.Disease != AllDiseases
}

// QueryResponse is the synthesized free-text answer.
type QueryResponse struct {
	Answer string `json:"answer"`
}
