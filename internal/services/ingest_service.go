package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aihub/rag-go/internal/config"
	apperrors "github.com/aihub/rag-go/internal/errors"
	"github.com/aihub/rag-go/internal/knowledge"
	"github.com/aihub/rag-go/internal/logger"
)

// Document 待入库的文档
type Document struct {
	ID      string `json:"id" validate:"required"`
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}

// IngestResult 入库统计
type IngestResult struct {
	IngestedDocuments int `json:"ingestedDocuments"`
	IngestedChunks    int `json:"ingestedChunks"`
}

// IngestService 文档入库服务：删旧、分块、向量化、批量写入
type IngestService struct {
	chunker   *knowledge.Chunker
	embedder  knowledge.Embedder
	store     knowledge.VectorStore
	metrics   *MetricsService
	batchSize int
}

// NewIngestService 创建文档入库服务
func NewIngestService(cfg *config.Config, chunker *knowledge.Chunker, embedder knowledge.Embedder, store knowledge.VectorStore, metrics *MetricsService) *IngestService {
	batchSize := cfg.Knowledge.UpsertBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	return &IngestService{
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		metrics:   metrics,
		batchSize: batchSize,
	}
}

// Ingest 顺序处理每个文档。任一文档失败立即中止并返回错误，
// 已写入的文档保持已写入状态。
func (s *IngestService) Ingest(ctx context.Context, documents []Document) (*IngestResult, error) {
	started := time.Now()
	result := &IngestResult{}

	for _, doc := range documents {
		chunkCount, err := s.ingestDocument(ctx, doc)
		if err != nil {
			s.metrics.ObserveRequest("ingest", "error", started)
			return nil, err
		}
		result.IngestedDocuments++
		result.IngestedChunks += chunkCount
	}

	s.metrics.ObserveRequest("ingest", "success", started)
	s.metrics.AddIngestedChunks(result.IngestedChunks)

	logger.Info("documents ingested",
		zap.Int("documents", result.IngestedDocuments),
		zap.Int("chunks", result.IngestedChunks))
	return result, nil
}

// ingestDocument 处理单个文档，返回写入的块数。
// 先删除该文档的旧记录，保证重复入库不会残留陈旧块。
func (s *IngestService) ingestDocument(ctx context.Context, doc Document) (int, error) {
	// 删除失败不阻断本次入库，只记录告警
	if err := s.store.DeleteByDocID(ctx, doc.ID); err != nil {
		logger.Warn("failed to delete stale records",
			zap.String("doc_id", doc.ID),
			zap.Error(err))
	}

	chunks := s.chunker.Chunk(doc.ID, doc.Title, doc.Content)
	if len(chunks) == 0 {
		logger.Debug("document produced no chunks", zap.String("doc_id", doc.ID))
		return 0, nil
	}

	records := make([]knowledge.Record, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := s.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return 0, apperrors.AsAppError(err)
		}
		records = append(records, knowledge.Record{
			ID:     chunk.ChunkID,
			Vector: vector,
			Metadata: knowledge.RecordMetadata{
				DocID:     chunk.DocID,
				Title:     chunk.Title,
				ChunkText: chunk.Text,
			},
		})
	}

	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.store.Upsert(ctx, records[start:end]); err != nil {
			return 0, apperrors.AsAppError(err)
		}
	}

	logger.Debug("document ingested",
		zap.String("doc_id", doc.ID),
		zap.Int("chunks", len(records)))
	return len(records), nil
}
