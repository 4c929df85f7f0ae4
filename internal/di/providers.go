package di

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"github.com/aihub/rag-go/internal/config"
	"github.com/aihub/rag-go/internal/knowledge"
	"github.com/aihub/rag-go/internal/services"
)

// RegisterProviders 注册所有依赖提供者
func RegisterProviders(container *dig.Container) error {
	// 注册配置
	if err := container.Provide(func() (*config.Config, error) {
		cfg := config.GetAppConfig()
		if cfg == nil {
			return nil, fmt.Errorf("config not loaded")
		}
		return cfg, nil
	}); err != nil {
		return err
	}

	// 注册分块器
	if err := container.Provide(func(cfg *config.Config) *knowledge.Chunker {
		return knowledge.NewChunker(cfg.Knowledge.MaxChunkSize, cfg.Knowledge.MinChunkSize)
	}); err != nil {
		return err
	}

	// 注册向量化器
	if err := container.Provide(func(cfg *config.Config) knowledge.Embedder {
		return knowledge.NewOpenAIEmbedder(cfg.OpenAI.APIKey, cfg.OpenAI.EmbeddingModel)
	}); err != nil {
		return err
	}

	// 注册答案生成器
	if err := container.Provide(func(cfg *config.Config) knowledge.Generator {
		return knowledge.NewOpenAIGenerator(cfg.OpenAI.APIKey, cfg.OpenAI.ChatModel, cfg.OpenAI.Temperature, cfg.OpenAI.MaxTokens)
	}); err != nil {
		return err
	}

	// 注册向量存储，按配置选择后端
	if err := container.Provide(func(cfg *config.Config, embedder knowledge.Embedder) (knowledge.VectorStore, error) {
		switch cfg.Knowledge.VectorStore.Provider {
		case "milvus":
			milvusCfg := cfg.Knowledge.VectorStore.Milvus
			vectorSize := milvusCfg.VectorSize
			if embedder.Dimensions() > 0 {
				vectorSize = embedder.Dimensions()
			}
			return knowledge.NewMilvusVectorStore(knowledge.MilvusOptions{
				Address:    milvusCfg.Address,
				Username:   milvusCfg.Username,
				Password:   milvusCfg.Password,
				Collection: milvusCfg.Collection,
				Database:   milvusCfg.Database,
				VectorSize: vectorSize,
				Distance:   milvusCfg.Distance,
				UseTLS:     milvusCfg.TLS,
			})
		case "", "memory":
			return knowledge.NewMemoryVectorStore(), nil
		default:
			return nil, fmt.Errorf("unknown vector store provider: %s", cfg.Knowledge.VectorStore.Provider)
		}
	}); err != nil {
		return err
	}

	// 注册文件解析器
	if err := container.Provide(knowledge.NewFileParserManager); err != nil {
		return err
	}

	// 注册指标服务
	if err := container.Provide(func() *services.MetricsService {
		return services.NewMetricsService(prometheus.DefaultRegisterer)
	}); err != nil {
		return err
	}

	// 注册业务服务
	if err := container.Provide(services.NewIngestService); err != nil {
		return err
	}

	if err := container.Provide(services.NewAskService); err != nil {
		return err
	}

	return nil
}
