package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aihub/rag-go/internal/config"
	apperrors "github.com/aihub/rag-go/internal/errors"
	"github.com/aihub/rag-go/internal/knowledge"
)

func ingestConfig(batchSize int) *config.Config {
	cfg := &config.Config{}
	cfg.Knowledge.MaxChunkSize = 50
	cfg.Knowledge.MinChunkSize = 10
	cfg.Knowledge.UpsertBatchSize = batchSize
	return cfg
}

func TestIngestService_IngestsDocuments(t *testing.T) {
	cfg := ingestConfig(100)
	chunker := knowledge.NewChunker(cfg.Knowledge.MaxChunkSize, cfg.Knowledge.MinChunkSize)
	embedder := new(MockEmbedder)
	store := new(MockVectorStore)

	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.1, 0.2}, nil)
	store.On("DeleteByDocID", mock.Anything, "doc-1").Return(nil)
	store.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	service := NewIngestService(cfg, chunker, embedder, store, newTestMetrics())
	result, err := service.Ingest(context.Background(), []Document{
		{ID: "doc-1", Title: "Doc", Content: "A paragraph of text to ingest."},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.IngestedDocuments)
	assert.Equal(t, 1, result.IngestedChunks)

	store.AssertCalled(t, "DeleteByDocID", mock.Anything, "doc-1")
	records := store.Calls[1].Arguments.Get(1).([]knowledge.Record)
	require.Len(t, records, 1)
	assert.Equal(t, "doc-1#chunk-0", records[0].ID)
	assert.Equal(t, "doc-1", records[0].Metadata.DocID)
	assert.Equal(t, "Doc", records[0].Metadata.Title)
	assert.Equal(t, "A paragraph of text to ingest.", records[0].Metadata.ChunkText)
	assert.Equal(t, []float32{0.1, 0.2}, records[0].Vector)
}

func TestIngestService_BatchesUpserts(t *testing.T) {
	cfg := ingestConfig(2)
	chunker := knowledge.NewChunker(cfg.Knowledge.MaxChunkSize, cfg.Knowledge.MinChunkSize)
	embedder := new(MockEmbedder)
	store := new(MockVectorStore)

	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{1}, nil)
	store.On("DeleteByDocID", mock.Anything, mock.Anything).Return(nil)
	store.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	// 五个段落，每个都在10-50字符之间，产生五个块
	var content string
	for i := 0; i < 5; i++ {
		content += fmt.Sprintf("Paragraph number %d with enough length here.\n\n", i)
	}

	service := NewIngestService(cfg, chunker, embedder, store, newTestMetrics())
	result, err := service.Ingest(context.Background(), []Document{
		{ID: "doc-1", Title: "Doc", Content: content},
	})

	require.NoError(t, err)
	assert.Equal(t, 5, result.IngestedChunks)

	// 批大小2：5条记录分3批写入
	upserts := 0
	var batchSizes []int
	for _, call := range store.Calls {
		if call.Method == "Upsert" {
			upserts++
			batchSizes = append(batchSizes, len(call.Arguments.Get(1).([]knowledge.Record)))
		}
	}
	assert.Equal(t, 3, upserts)
	assert.Equal(t, []int{2, 2, 1}, batchSizes)
}

func TestIngestService_ReingestDeletesStaleChunks(t *testing.T) {
	cfg := ingestConfig(100)
	chunker := knowledge.NewChunker(cfg.Knowledge.MaxChunkSize, cfg.Knowledge.MinChunkSize)
	embedder := new(MockEmbedder)
	store := knowledge.NewMemoryVectorStore()

	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{1, 0}, nil)

	service := NewIngestService(cfg, chunker, embedder, store, newTestMetrics())
	ctx := context.Background()

	// 首次入库产生两个块
	longDoc := Document{
		ID:      "doc-1",
		Title:   "Doc",
		Content: "First paragraph with enough length here.\n\nSecond paragraph also long enough here.",
	}
	_, err := service.Ingest(ctx, []Document{longDoc})
	require.NoError(t, err)

	// 重新入库更短的版本，旧块不应残留
	shortDoc := Document{ID: "doc-1", Title: "Doc", Content: "Only one paragraph now, still long enough."}
	result, err := service.Ingest(ctx, []Document{shortDoc})
	require.NoError(t, err)
	assert.Equal(t, 1, result.IngestedChunks)

	matches, err := store.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "doc-1#chunk-0", matches[0].ID)
	assert.Equal(t, "Only one paragraph now, still long enough.", matches[0].Metadata.ChunkText)
}

func TestIngestService_DeleteFailureDoesNotAbort(t *testing.T) {
	cfg := ingestConfig(100)
	chunker := knowledge.NewChunker(cfg.Knowledge.MaxChunkSize, cfg.Knowledge.MinChunkSize)
	embedder := new(MockEmbedder)
	store := new(MockVectorStore)

	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{1}, nil)
	store.On("DeleteByDocID", mock.Anything, "doc-1").Return(errors.New("store offline"))
	store.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	service := NewIngestService(cfg, chunker, embedder, store, newTestMetrics())
	result, err := service.Ingest(context.Background(), []Document{
		{ID: "doc-1", Title: "Doc", Content: "Some content long enough to chunk."},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.IngestedDocuments)
	store.AssertCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestIngestService_EmptyDocumentCountsWithZeroChunks(t *testing.T) {
	cfg := ingestConfig(100)
	chunker := knowledge.NewChunker(cfg.Knowledge.MaxChunkSize, cfg.Knowledge.MinChunkSize)
	embedder := new(MockEmbedder)
	store := new(MockVectorStore)

	store.On("DeleteByDocID", mock.Anything, "doc-1").Return(nil)

	service := NewIngestService(cfg, chunker, embedder, store, newTestMetrics())
	result, err := service.Ingest(context.Background(), []Document{
		{ID: "doc-1", Title: "Empty", Content: "   "},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.IngestedDocuments)
	assert.Equal(t, 0, result.IngestedChunks)

	embedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestIngestService_EmbedFailureAborts(t *testing.T) {
	cfg := ingestConfig(100)
	chunker := knowledge.NewChunker(cfg.Knowledge.MaxChunkSize, cfg.Knowledge.MinChunkSize)
	embedder := new(MockEmbedder)
	store := new(MockVectorStore)

	store.On("DeleteByDocID", mock.Anything, mock.Anything).Return(nil)
	embedder.On("Embed", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewExternalServiceError("openai", "embedding request failed"))

	service := NewIngestService(cfg, chunker, embedder, store, newTestMetrics())
	_, err := service.Ingest(context.Background(), []Document{
		{ID: "doc-1", Title: "Doc", Content: "Some content long enough to chunk."},
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.KindExternalService, apperrors.KindOf(err))
	store.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}
