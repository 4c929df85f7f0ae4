package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aihub/rag-go/internal/config"
	apperrors "github.com/aihub/rag-go/internal/errors"
	"github.com/aihub/rag-go/internal/knowledge"
	"github.com/aihub/rag-go/internal/logger"
)

const (
	// noDocumentsFallback 向量库无匹配时直接返回，不调用生成模型
	noDocumentsFallback = "I don't have any documents to answer this question. Please ingest some documents first."
	// emptyAnswerFallback 生成模型返回空内容时的兜底答案
	emptyAnswerFallback = "I couldn't generate an answer for this question. Please try rephrasing it."

	systemPrompt = "You are a helpful assistant that answers questions based strictly on the provided context. " +
		"Only use information from the context to answer. " +
		"If the context does not contain enough information to answer the question, say so explicitly."
)

// Source 答案引用的来源文档
type Source struct {
	DocID string `json:"docId"`
	Title string `json:"title"`
}

// AskResult 问答结果
type AskResult struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// AskService 问答服务：向量检索加答案生成
type AskService struct {
	embedder    knowledge.Embedder
	store       knowledge.VectorStore
	generator   knowledge.Generator
	metrics     *MetricsService
	defaultTopK int
}

// NewAskService 创建问答服务
func NewAskService(cfg *config.Config, embedder knowledge.Embedder, store knowledge.VectorStore, generator knowledge.Generator, metrics *MetricsService) *AskService {
	topK := cfg.Knowledge.TopK
	if topK <= 0 {
		topK = 3
	}
	return &AskService{
		embedder:    embedder,
		store:       store,
		generator:   generator,
		metrics:     metrics,
		defaultTopK: topK,
	}
}

// Ask 回答问题。topK不合法时使用配置的默认值
func (s *AskService) Ask(ctx context.Context, question string, topK int) (*AskResult, error) {
	started := time.Now()
	if topK <= 0 {
		topK = s.defaultTopK
	}

	result, err := s.answer(ctx, question, topK)
	if err != nil {
		s.metrics.ObserveRequest("ask", "error", started)
		return nil, err
	}
	s.metrics.ObserveRequest("ask", "success", started)
	return result, nil
}

func (s *AskService) answer(ctx context.Context, question string, topK int) (*AskResult, error) {
	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, apperrors.AsAppError(err)
	}

	matches, err := s.store.Query(ctx, vector, topK)
	if err != nil {
		return nil, apperrors.AsAppError(err)
	}

	// 空库或无匹配时直接兜底，不消耗生成调用
	if len(matches) == 0 {
		logger.Debug("no matches for question", zap.Int("top_k", topK))
		return &AskResult{
			Answer:  noDocumentsFallback,
			Sources: []Source{},
		}, nil
	}

	answer, err := s.generator.Complete(ctx, systemPrompt, buildPrompt(question, matches))
	if err != nil {
		return nil, apperrors.AsAppError(err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = emptyAnswerFallback
	}

	return &AskResult{
		Answer:  answer,
		Sources: ExtractSources(matches),
	}, nil
}

// buildPrompt 将检索结果组装为带编号和相关度的上下文提示
func buildPrompt(question string, matches []knowledge.Match) string {
	var b strings.Builder
	b.WriteString("Context:\n\n")
	for i, match := range matches {
		fmt.Fprintf(&b, "[%d] %q (relevance: %d%%):\n%s\n\n",
			i+1, match.Metadata.Title, relevancePercent(match.Score), match.Metadata.ChunkText)
	}
	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}

// relevancePercent 将相似度分数折算为0-100的整数百分比
func relevancePercent(score float64) int {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 100
	}
	return int(math.Round(score * 100))
}

// ExtractSources 按首次出现顺序对来源文档去重，同一文档取最先出现的标题
func ExtractSources(matches []knowledge.Match) []Source {
	seen := make(map[string]bool, len(matches))
	sources := make([]Source, 0, len(matches))
	for _, match := range matches {
		if match.Metadata.DocID == "" || seen[match.Metadata.DocID] {
			continue
		}
		seen[match.Metadata.DocID] = true
		sources = append(sources, Source{
			DocID: match.Metadata.DocID,
			Title: match.Metadata.Title,
		})
	}
	return sources
}
