package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/ewa/raredx/internal/models"
)

// SynthesizerConfig represents the configuration for the answer synthesizer.
type SynthesizerConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string // Ollama server URL
	FanIn       int    // chunks combined per summarization call
}

const synthTemplate = `Context information from multiple sources is below.
---------------------
%s
---------------------
Given the information from multiple sources and not prior knowledge, answer the question: %s
`

// TreeSynthesizer combines retrieved chunks into one answer by hierarchical
// summarization: chunks are answered in groups, and the partial answers are
// combined level by level until a single response remains.
type TreeSynthesizer struct {
	config SynthesizerConfig
	model  llms.Model
}

// NewWithConfig creates a TreeSynthesizer backed by an Ollama chat model.
func NewWithConfig(config SynthesizerConfig) (*TreeSynthesizer, error) {
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	model, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewWithModel(model, config), nil
}

// NewWithModel creates a TreeSynthesizer around an existing model.
func NewWithModel(model llms.Model, config SynthesizerConfig) *TreeSynthesizer {
	if config.FanIn <= 1 {
		config.FanIn = 5
	}
	return &TreeSynthesizer{
		config: config,
		model:  model,
	}
}

// Synthesize answers the question from the retrieved chunks. With no chunks
// the model is asked directly; otherwise the chunk texts are reduced through
// grouped summarization calls until one coherent answer remains.
func (t *TreeSynthesizer) Synthesize(ctx context.Context, question string, chunks []models.ScoredChunk) (string, error) {
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}

	for len(texts) > t.config.FanIn {
		var reduced []string
		for start := 0; start < len(texts); start += t.config.FanIn {
			end := start + t.config.FanIn
			if end > len(texts) {
				end = len(texts)
			}

			partial, err := t.generate(ctx, question, texts[start:end])
			if err != nil {
				return "", fmt.Errorf("synthesis error: %w", err)
			}
			reduced = append(reduced, partial)
		}
		texts = reduced
	}

	answer, err := t.generate(ctx, question, texts)
	if err != nil {
		return "", fmt.Errorf("synthesis error: %w", err)
	}

	return answer, nil
}

func (t *TreeSynthesizer) generate(ctx context.Context, question string, texts []string) (string, error) {
	prompt := fmt.Sprintf(synthTemplate, strings.Join(texts, "\n\n"), question)

	answer, err := llms.GenerateFromSinglePrompt(ctx, t.model, prompt,
		llms.WithTemperature(t.config.Temperature),
		llms.WithMaxTokens(t.config.MaxTokens))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(answer), nil
}
