package knowledge

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	apperrors "github.com/aihub/rag-go/internal/errors"
	"github.com/aihub/rag-go/internal/logger"
	"go.uber.org/zap"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address    string
	Username   string
	Password   string
	Collection string
	Database   string
	VectorSize int
	Distance   string
	UseTLS     bool
	Timeout    time.Duration
}

type milvusVectorStore struct {
	milvusClient client.Client
	collection   string
	vectorSize   int
	metricType   entity.MetricType
}

// NewMilvusVectorStore 创建Milvus向量存储
func NewMilvusVectorStore(opts MilvusOptions) (VectorStore, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.Collection == "" {
		opts.Collection = "rag_chunks"
	}
	if opts.Database == "" {
		opts.Database = "default"
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = 1536
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	milvusClient, err := client.NewClient(ctx, client.Config{
		Address:       opts.Address,
		DBName:        opts.Database,
		Username:      opts.Username,
		Password:      opts.Password,
		EnableTLSAuth: opts.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return &milvusVectorStore{
		milvusClient: milvusClient,
		collection:   opts.Collection,
		vectorSize:   opts.VectorSize,
		metricType:   milvusMetricType(opts.Distance),
	}, nil
}

func milvusMetricType(value string) entity.MetricType {
	switch value {
	case "dot", "ip", "inner_product", "DOT", "IP", "INNER_PRODUCT":
		return entity.IP
	case "l2", "euclidean", "L2", "EUCLIDEAN":
		return entity.L2
	default:
		return entity.COSINE
	}
}

func (s *milvusVectorStore) ensureCollection(ctx context.Context) error {
	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if hasCollection {
		return nil
	}

	schema := &entity.Schema{
		CollectionName: s.collection,
		Description:    "Document chunk vectors for retrieval-augmented answering",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{"max_length": "512"},
			},
			{
				Name:       "doc_id",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "512"},
			},
			{
				Name:       "title",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "1024"},
			},
			{
				Name:       "chunk_text",
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": "65535"},
			},
			{
				Name:       "vector",
				DataType:   entity.FieldTypeFloatVector,
				TypeParams: map[string]string{"dim": fmt.Sprintf("%d", s.vectorSize)},
			},
		},
	}

	if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// HNSW失败时降级为IVF_FLAT
	var index entity.Index
	var indexErr error
	index, indexErr = entity.NewIndexHNSW(s.metricType, 8, 64)
	if indexErr != nil {
		index, indexErr = entity.NewIndexIvfFlat(s.metricType, 128)
		if indexErr != nil {
			return fmt.Errorf("failed to create index: %w", indexErr)
		}
	}
	if err := s.milvusClient.CreateIndex(ctx, s.collection, "vector", index, false); err != nil {
		// 索引创建失败不影响写入，只记录警告
		logger.Warn("failed to create milvus index", zap.String("collection", s.collection), zap.Error(err))
	}

	if err := s.milvusClient.LoadCollection(ctx, s.collection, false); err != nil {
		logger.Warn("failed to load milvus collection", zap.String("collection", s.collection), zap.Error(err))
	}

	return nil
}

// normalizeVector 维度不匹配时填充或截断到集合维度
func (s *milvusVectorStore) normalizeVector(vector []float32) []float32 {
	if len(vector) == s.vectorSize {
		return vector
	}
	normalized := make([]float32, s.vectorSize)
	copy(normalized, vector)
	return normalized
}

func (s *milvusVectorStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return apperrors.NewExternalServiceError("milvus", "collection setup failed").WithCause(err)
	}

	ids := make([]string, len(records))
	docIDs := make([]string, len(records))
	titles := make([]string, len(records))
	texts := make([]string, len(records))
	vectors := make([][]float32, len(records))
	for i, record := range records {
		if len(record.Vector) == 0 {
			return apperrors.NewExternalServiceError("milvus", fmt.Sprintf("record %s has empty vector", record.ID))
		}
		ids[i] = record.ID
		docIDs[i] = record.Metadata.DocID
		titles[i] = record.Metadata.Title
		texts[i] = record.Metadata.ChunkText
		vectors[i] = s.normalizeVector(record.Vector)
	}

	_, err := s.milvusClient.Upsert(ctx, s.collection, "",
		entity.NewColumnVarChar("id", ids),
		entity.NewColumnVarChar("doc_id", docIDs),
		entity.NewColumnVarChar("title", titles),
		entity.NewColumnVarChar("chunk_text", texts),
		entity.NewColumnFloatVector("vector", s.vectorSize, vectors),
	)
	if err != nil {
		return apperrors.NewExternalServiceError("milvus", "upsert failed").WithCause(err)
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		logger.Warn("failed to flush milvus collection", zap.String("collection", s.collection), zap.Error(err))
	}
	return nil
}

func (s *milvusVectorStore) DeleteByDocID(ctx context.Context, docID string) error {
	if err := s.ensureCollection(ctx); err != nil {
		return apperrors.NewExternalServiceError("milvus", "collection setup failed").WithCause(err)
	}

	expr := fmt.Sprintf("doc_id == %s", strconv.Quote(docID))
	if err := s.milvusClient.Delete(ctx, s.collection, "", expr); err != nil {
		return apperrors.NewExternalServiceError("milvus", "delete failed").WithCause(err)
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		logger.Warn("failed to flush after delete", zap.String("collection", s.collection), zap.Error(err))
	}
	return nil
}

func (s *milvusVectorStore) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = 3
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, apperrors.NewExternalServiceError("milvus", "collection setup failed").WithCause(err)
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	searchResults, err := s.milvusClient.Search(
		ctx,
		s.collection,
		[]string{},
		"",
		[]string{"doc_id", "title", "chunk_text"},
		[]entity.Vector{entity.FloatVector(s.normalizeVector(vector))},
		"vector",
		s.metricType,
		topK,
		sp,
	)
	if err != nil {
		return nil, apperrors.NewExternalServiceError("milvus", "search failed").WithCause(err)
	}
	if len(searchResults) == 0 {
		return []Match{}, nil
	}

	// 只有一个查询向量，取第一个结果集
	result := searchResults[0]
	if result.Err != nil {
		return nil, apperrors.NewExternalServiceError("milvus", "search failed").WithCause(result.Err)
	}
	if result.ResultCount == 0 {
		return []Match{}, nil
	}

	var ids []string
	if idColumn, ok := result.IDs.(*entity.ColumnVarChar); ok {
		ids = idColumn.Data()
	}

	var docIDs, titles, texts []string
	for _, field := range result.Fields {
		column, ok := field.(*entity.ColumnVarChar)
		if !ok {
			continue
		}
		switch field.Name() {
		case "doc_id":
			docIDs = column.Data()
		case "title":
			titles = column.Data()
		case "chunk_text":
			texts = column.Data()
		}
	}

	matches := make([]Match, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		match := Match{}
		if i < len(ids) {
			match.ID = ids[i]
		}
		if i < len(result.Scores) {
			match.Score = float64(result.Scores[i])
		}
		if i < len(docIDs) {
			match.Metadata.DocID = docIDs[i]
		}
		if i < len(titles) {
			match.Metadata.Title = titles[i]
		}
		if i < len(texts) {
			match.Metadata.ChunkText = texts[i]
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func (s *milvusVectorStore) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}
