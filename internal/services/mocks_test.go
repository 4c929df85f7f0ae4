package services

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"

	"github.com/aihub/rag-go/internal/knowledge"
)

// MockEmbedder 模拟向量化器
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockEmbedder) Dimensions() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockEmbedder) Ready() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockVectorStore 模拟向量存储
type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) Upsert(ctx context.Context, records []knowledge.Record) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *MockVectorStore) Query(ctx context.Context, vector []float32, topK int) ([]knowledge.Match, error) {
	args := m.Called(ctx, vector, topK)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]knowledge.Match), args.Error(1)
}

func (m *MockVectorStore) DeleteByDocID(ctx context.Context, docID string) error {
	args := m.Called(ctx, docID)
	return args.Error(0)
}

func (m *MockVectorStore) Ready() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockGenerator 模拟答案生成器
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

func (m *MockGenerator) Ready() bool {
	args := m.Called()
	return args.Bool(0)
}

// newTestMetrics 每个测试用独立注册器，避免重复注册冲突
func newTestMetrics() *MetricsService {
	return NewMetricsService(prometheus.NewRegistry())
}
