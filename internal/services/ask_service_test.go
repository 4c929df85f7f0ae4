package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aihub/rag-go/internal/config"
	apperrors "github.com/aihub/rag-go/internal/errors"
	"github.com/aihub/rag-go/internal/knowledge"
)

func newAskService(embedder knowledge.Embedder, store knowledge.VectorStore, generator knowledge.Generator) *AskService {
	cfg := &config.Config{}
	cfg.Knowledge.TopK = 3
	return NewAskService(cfg, embedder, store, generator, newTestMetrics())
}

func askMatch(docID, title, text string, score float64) knowledge.Match {
	return knowledge.Match{
		ID:    docID + "#chunk-0",
		Score: score,
		Metadata: knowledge.RecordMetadata{
			DocID:     docID,
			Title:     title,
			ChunkText: text,
		},
	}
}

func TestAskService_NoMatchesReturnsFallback(t *testing.T) {
	embedder := new(MockEmbedder)
	store := new(MockVectorStore)
	generator := new(MockGenerator)

	embedder.On("Embed", mock.Anything, "What is Go?").Return([]float32{0.1, 0.2}, nil)
	store.On("Query", mock.Anything, []float32{0.1, 0.2}, 3).Return([]knowledge.Match{}, nil)

	service := newAskService(embedder, store, generator)
	result, err := service.Ask(context.Background(), "What is Go?", 3)

	require.NoError(t, err)
	assert.Equal(t, noDocumentsFallback, result.Answer)
	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.Sources)

	// 无匹配时不应调用生成模型
	generator.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestAskService_AnswersWithSources(t *testing.T) {
	embedder := new(MockEmbedder)
	store := new(MockVectorStore)
	generator := new(MockGenerator)

	embedder.On("Embed", mock.Anything, "question").Return([]float32{1, 0}, nil)
	store.On("Query", mock.Anything, []float32{1, 0}, 3).Return([]knowledge.Match{
		askMatch("doc-a", "Guide", "Go is a programming language.", 0.92),
		askMatch("doc-b", "FAQ", "Go was released in 2009.", 0.81),
	}, nil)
	generator.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return("Go is a programming language released in 2009.", nil)

	service := newAskService(embedder, store, generator)
	result, err := service.Ask(context.Background(), "question", 3)

	require.NoError(t, err)
	assert.Equal(t, "Go is a programming language released in 2009.", result.Answer)
	require.Len(t, result.Sources, 2)
	assert.Equal(t, Source{DocID: "doc-a", Title: "Guide"}, result.Sources[0])
	assert.Equal(t, Source{DocID: "doc-b", Title: "FAQ"}, result.Sources[1])

	// 上下文提示携带编号、标题和相关度
	prompt := generator.Calls[0].Arguments.String(2)
	assert.Contains(t, prompt, `[1] "Guide" (relevance: 92%)`)
	assert.Contains(t, prompt, `[2] "FAQ" (relevance: 81%)`)
	assert.Contains(t, prompt, "Question: question")
}

func TestAskService_EmptyGenerationFallsBack(t *testing.T) {
	embedder := new(MockEmbedder)
	store := new(MockVectorStore)
	generator := new(MockGenerator)

	embedder.On("Embed", mock.Anything, "q").Return([]float32{1}, nil)
	store.On("Query", mock.Anything, []float32{1}, 3).Return([]knowledge.Match{
		askMatch("doc-a", "Guide", "Some text.", 0.5),
	}, nil)
	generator.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("   \n", nil)

	service := newAskService(embedder, store, generator)
	result, err := service.Ask(context.Background(), "q", 3)

	require.NoError(t, err)
	assert.Equal(t, emptyAnswerFallback, result.Answer)
	require.Len(t, result.Sources, 1)
}

func TestAskService_InvalidTopKUsesDefault(t *testing.T) {
	embedder := new(MockEmbedder)
	store := new(MockVectorStore)
	generator := new(MockGenerator)

	embedder.On("Embed", mock.Anything, "q").Return([]float32{1}, nil)
	store.On("Query", mock.Anything, []float32{1}, 3).Return([]knowledge.Match{}, nil)

	service := newAskService(embedder, store, generator)
	_, err := service.Ask(context.Background(), "q", 0)
	require.NoError(t, err)

	store.AssertCalled(t, "Query", mock.Anything, []float32{1}, 3)
}

func TestAskService_EmbedFailurePropagates(t *testing.T) {
	embedder := new(MockEmbedder)
	store := new(MockVectorStore)
	generator := new(MockGenerator)

	embedder.On("Embed", mock.Anything, "q").
		Return(nil, apperrors.NewExternalServiceError("openai", "embedding request failed").WithCause(errors.New("timeout")))

	service := newAskService(embedder, store, generator)
	_, err := service.Ask(context.Background(), "q", 3)

	require.Error(t, err)
	assert.Equal(t, apperrors.KindExternalService, apperrors.KindOf(err))
	store.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything)
}

func TestExtractSources_DedupByDocID(t *testing.T) {
	matches := []knowledge.Match{
		askMatch("doc-a", "First Title", "chunk 1", 0.9),
		askMatch("doc-b", "Other", "chunk 2", 0.8),
		askMatch("doc-a", "Second Title", "chunk 3", 0.7),
	}

	sources := ExtractSources(matches)
	require.Len(t, sources, 2)
	// 同一文档保留首次出现的标题和顺序
	assert.Equal(t, Source{DocID: "doc-a", Title: "First Title"}, sources[0])
	assert.Equal(t, Source{DocID: "doc-b", Title: "Other"}, sources[1])
}

func TestRelevancePercent_Clamps(t *testing.T) {
	assert.Equal(t, 0, relevancePercent(-0.3))
	assert.Equal(t, 50, relevancePercent(0.5))
	assert.Equal(t, 100, relevancePercent(1.7))
}
