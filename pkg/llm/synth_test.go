package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/ewa/raredx/internal/models"
)

type fakeModel struct {
	prompts []string
	err     error
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}

	var prompt string
	for _, part := range messages[0].Parts {
		if text, ok := part.(llms.TextContent); ok {
			prompt = text.Text
		}
	}
	m.prompts = append(m.prompts, prompt)

	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: fmt.Sprintf("summary-%d", len(m.prompts))},
		},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func scoredChunks(texts ...string) []models.ScoredChunk {
	chunks := make([]models.ScoredChunk, 0, len(texts))
	for _, text := range texts {
		chunks = append(chunks, models.ScoredChunk{Chunk: models.Chunk{Text: text}})
	}
	return chunks
}

func TestSynthesizeSingleLevel(t *testing.T) {
	model := &fakeModel{}
	synth := NewWithModel(model, SynthesizerConfig{})

	answer, err := synth.Synthesize(context.Background(), "What causes Fabry disease?",
		scoredChunks("chunk one", "chunk two", "chunk three"))
	require.NoError(t, err)

	// Five or fewer chunks collapse in one call
	require.Len(t, model.prompts, 1)
	assert.Equal(t, "summary-1", answer)
	assert.Contains(t, model.prompts[0], "What causes Fabry disease?")
	assert.Contains(t, model.prompts[0], "chunk one")
	assert.Contains(t, model.prompts[0], "chunk three")
}

func TestSynthesizeReducesHierarchically(t *testing.T) {
	model := &fakeModel{}
	synth := NewWithModel(model, SynthesizerConfig{FanIn: 3})

	answer, err := synth.Synthesize(context.Background(), "q",
		scoredChunks("a", "b", "c", "d", "e", "f", "g"))
	require.NoError(t, err)

	// Seven chunks with fan-in 3: three partial answers, then one final call
	require.Len(t, model.prompts, 4)
	assert.Equal(t, "summary-4", answer)
	assert.Contains(t, model.prompts[3], "summary-1")
	assert.Contains(t, model.prompts[3], "summary-3")
}

func TestSynthesizeWithNoChunksStillAnswers(t *testing.T) {
	model := &fakeModel{}
	synth := NewWithModel(model, SynthesizerConfig{})

	answer, err := synth.Synthesize(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "summary-1", answer)
}

func TestSynthesizeModelError(t *testing.T) {
	model := &fakeModel{err: errors.New("model unavailable")}
	synth := NewWithModel(model, SynthesizerConfig{})

	_, err := synth.Synthesize(context.Background(), "q", scoredChunks("a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synthesis error")
}

func TestNewWithConfigValidation(t *testing.T) {
	_, err := NewWithConfig(SynthesizerConfig{Temperature: 3})
	assert.Error(t, err)

	_, err = NewWithConfig(SynthesizerConfig{MaxTokens: -1})
	assert.Error(t, err)
}
