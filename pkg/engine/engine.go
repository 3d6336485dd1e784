package engine

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/ewa/raredx/internal/models"
	"github.com/ewa/raredx/internal/types"
	"github.com/ewa/raredx/pkg/docs"
	"github.com/ewa/raredx/pkg/index"
)

// NotReadyMessage is returned for every query until the index has been
// built successfully, and for every query after a failed initialization.
const NotReadyMessage = "System is not ready. Please check the logs."

const (
	scopedTemplate = `Regarding %s:
%s
Please provide evidence-based clinical information.
`
	broadTemplate = `%s
Please provide evidence-based clinical information about relevant rare diseases.
`
)

// CollectionFactory produces the collection the pipeline indexes into.
// Production wires store.ResetAndCreate here; tests wire fakes.
type CollectionFactory func(ctx context.Context) (types.Collection, error)

// PipelineConfig wires the retrieval pipeline's collaborators.
type PipelineConfig struct {
	Records     map[string]models.DiseaseRecord
	Splitter    types.TextSplitter
	Embedder    types.Embedder
	Synthesizer types.Synthesizer
	Collection  CollectionFactory
	TopK        int
	OnProgress  func(done, total int)
}

// Pipeline owns the system lifecycle and dispatches queries against the
// built index. Queries are only accepted in the Ready state; a failed
// build requires a process restart.
type Pipeline struct {
	config     PipelineConfig
	state      atomic.Int32
	collection types.Collection
}

func NewWithConfig(config PipelineConfig) (*Pipeline, error) {
	if len(config.Records) == 0 {
		return nil, fmt.Errorf("no disease records provided")
	}
	if config.Splitter == nil {
		return nil, fmt.Errorf("splitter is required")
	}
	if config.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if config.Synthesizer == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	if config.Collection == nil {
		return nil, fmt.Errorf("collection factory is required")
	}
	if config.TopK == 0 {
		config.TopK = 5
	}

	return &Pipeline{config: config}, nil
}

// State returns the current lifecycle state.
func (p *Pipeline) State() types.SystemState {
	return types.SystemState(p.state.Load())
}

// Build runs the blocking initialization barrier: reset the collection,
// render the dataset into documents and index them. It can run once per
// process; any failure is final.
func (p *Pipeline) Build(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(types.StateUninitialized), int32(types.StateBuilding)) {
		return fmt.Errorf("build already attempted in state %s", p.State())
	}

	if err := p.build(ctx); err != nil {
		p.state.Store(int32(types.StateFailed))
		log.Printf("Initialization error: %v", err)
		return err
	}

	p.state.Store(int32(types.StateReady))
	return nil
}

func (p *Pipeline) build(ctx context.Context) error {
	collection, err := p.config.Collection(ctx)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	p.collection = collection

	documents := docs.Build(p.config.Records)
	if len(documents) == 0 {
		return fmt.Errorf("dataset produced no documents")
	}

	builder, err := index.NewWithConfig(index.BuilderConfig{
		Splitter:   p.config.Splitter,
		Embedder:   p.config.Embedder,
		Collection: collection,
		OnProgress: p.config.OnProgress,
	})
	if err != nil {
		return err
	}

	if err := builder.Build(ctx, documents); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	return nil
}

// Query answers one request. A specific disease scope narrows retrieval
// with an exact-match metadata filter; the AllDiseases sentinel searches
// the whole collection. Failures never propagate: they are logged and
// converted to a user-visible error string.
func (p *Pipeline) Query(ctx context.Context, req types.QueryRequest) types.QueryResponse {
	if p.State() != types.StateReady {
		return types.QueryResponse{Answer: NotReadyMessage}
	}

	question, filter := formatQuery(req)

	answer, err := p.dispatch(ctx, question, filter)
	if err != nil {
		log.Printf("Query error details: %v", err)
		return types.QueryResponse{Answer: fmt.Sprintf("Error during query: %v", err)}
	}

	return types.QueryResponse{Answer: answer}
}

func formatQuery(req types.QueryRequest) (string, map[string]string) {
	if req.Scoped() {
		question := fmt.Sprintf(scopedTemplate, req.Disease, req.Question)
		return question, map[string]string{models.MetaDisease: req.Disease}
	}
	return fmt.Sprintf(broadTemplate, req.Question), nil
}

func (p *Pipeline) dispatch(ctx context.Context, question string, filter map[string]string) (string, error) {
	vector, err := p.config.Embedder.EmbedQuery(ctx, question)
	if err != nil {
		return "", fmt.Errorf("failed to embed query: %w", err)
	}

	chunks, err := p.collection.Search(ctx, vector, p.config.TopK, filter)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve chunks: %w", err)
	}

	answer, err := p.config.Synthesizer.Synthesize(ctx, question, chunks)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize answer: %w", err)
	}
	return answer, nil
}

// Close releases the collection, if one was created.
func (p *Pipeline) Close() error {
	if p.collection != nil {
		return p.collection.Close()
	}
	return nil
}
